package payments

import (
	"context"

	"gorm.io/gorm"

	"github.com/luanpereira/vitrine-backend/pkg/db/models"
	"github.com/luanpereira/vitrine-backend/pkg/mercadopago"
)

// Repository defines persistence operations for payment records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, record *models.PaymentRecord) error
	UpsertByGatewayTransaction(ctx context.Context, record *models.PaymentRecord) error
	FindByGatewayTransaction(ctx context.Context, gateway, transactionID string) (*models.PaymentRecord, error)
}

// GatewayClient is the slice of the Mercado Pago API the intent service uses.
type GatewayClient interface {
	CreatePreference(ctx context.Context, accessToken string, req mercadopago.PreferenceRequest) (*mercadopago.Preference, error)
}
