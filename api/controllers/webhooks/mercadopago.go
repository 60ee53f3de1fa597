package webhooks

import (
	"context"
	"net/http"
	"strings"

	"github.com/luanpereira/vitrine-backend/api/responses"
	pkgerrors "github.com/luanpereira/vitrine-backend/pkg/errors"
	"github.com/luanpereira/vitrine-backend/pkg/logger"
)

type MercadoPagoWebhookService interface {
	HandleNotification(ctx context.Context, topic, paymentID string) error
}

// MercadoPagoWebhook receives gateway payment notifications. The body is
// deliberately ignored; the reconciler refetches the payment from the gateway
// API, so only the query parameters matter here. A non-2xx response makes the
// gateway redeliver, which is exactly what we want when reconciliation could
// not complete.
func MercadoPagoWebhook(svc MercadoPagoWebhookService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		query := r.URL.Query()
		topic := strings.TrimSpace(query.Get("topic"))
		if topic == "" {
			topic = strings.TrimSpace(query.Get("type"))
		}
		paymentID := strings.TrimSpace(query.Get("id"))
		if paymentID == "" {
			paymentID = strings.TrimSpace(query.Get("data.id"))
		}

		if err := svc.HandleNotification(ctx, topic, paymentID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]bool{"ok": true})
	}
}
