package controllers

import (
	"context"
	"net/http"

	"github.com/luanpereira/vitrine-backend/api/responses"
	"github.com/luanpereira/vitrine-backend/api/validators"
	"github.com/luanpereira/vitrine-backend/internal/freight"
	pkgerrors "github.com/luanpereira/vitrine-backend/pkg/errors"
	"github.com/luanpereira/vitrine-backend/pkg/logger"
)

type FreightService interface {
	Quote(ctx context.Context, req freight.QuoteRequest) ([]freight.Quote, error)
}

// FreightQuote returns the carrier options for a destination CEP.
func FreightQuote(svc FreightService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "freight service unavailable"))
			return
		}

		var payload freight.QuoteRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		quotes, err := svc.Quote(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"quotes": quotes})
	}
}
