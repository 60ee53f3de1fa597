package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/luanpereira/vitrine-backend/pkg/db/models"
)

// Repository defines persistence operations on the orders table. The
// conditional updates report whether a row actually changed; callers use that
// signal to gate side effects, so replayed or out-of-order notifications
// become no-ops instead of duplicate triggers.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	MarkPaidProcessing(ctx context.Context, id uuid.UUID) (bool, error)
	MarkFailedCancelled(ctx context.Context, id uuid.UUID) (bool, error)
	MarkPaymentPending(ctx context.Context, id uuid.UUID) (bool, error)
}
