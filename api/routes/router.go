package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/luanpereira/vitrine-backend/api/controllers"
	webhookcontrollers "github.com/luanpereira/vitrine-backend/api/controllers/webhooks"
	"github.com/luanpereira/vitrine-backend/api/middleware"
	"github.com/luanpereira/vitrine-backend/pkg/config"
	"github.com/luanpereira/vitrine-backend/pkg/logger"
	pkgredis "github.com/luanpereira/vitrine-backend/pkg/redis"
)

// RouterParams bundles everything the HTTP surface needs. Services are the
// controller-facing interfaces so tests can hand in fakes.
type RouterParams struct {
	Config           *config.Config
	Logger           *logger.Logger
	Registry         *prometheus.Registry
	IdempotencyStore pkgredis.IdempotencyStore
	Pingers          map[string]controllers.Pinger
	FreightService   controllers.FreightService
	PaymentService   controllers.PaymentIntentService
	WebhookService   webhookcontrollers.MercadoPagoWebhookService
}

func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, params.Pingers))
	})

	if params.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(params.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/mercadopago", webhookcontrollers.MercadoPagoWebhook(params.WebhookService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Idempotency(params.IdempotencyStore, logg, cfg.Idempotency.IntentTTL))

		r.Post("/freight/quote", controllers.FreightQuote(params.FreightService, logg))
		r.Post("/payments/intent", controllers.PaymentIntent(params.PaymentService, logg))
	})

	return r
}
