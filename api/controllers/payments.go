package controllers

import (
	"context"
	"net/http"

	"github.com/luanpereira/vitrine-backend/api/responses"
	"github.com/luanpereira/vitrine-backend/api/validators"
	"github.com/luanpereira/vitrine-backend/internal/payments"
	pkgerrors "github.com/luanpereira/vitrine-backend/pkg/errors"
	"github.com/luanpereira/vitrine-backend/pkg/logger"
)

type PaymentIntentService interface {
	CreateIntent(ctx context.Context, input payments.CreateIntentInput) (*payments.IntentResult, error)
}

// PaymentIntent creates a gateway checkout preference for an order.
func PaymentIntent(svc PaymentIntentService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		var payload payments.CreateIntentInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		intent, err := svc.CreateIntent(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, intent)
	}
}
