package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/luanpereira/vitrine-backend/pkg/db/models"
	"github.com/luanpereira/vitrine-backend/pkg/enums"
	pkgerrors "github.com/luanpereira/vitrine-backend/pkg/errors"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return &order, nil
}

// MarkPaidProcessing records a confirmed payment. The guard keeps an order
// that already entered fulfillment from being bounced back: once processing,
// shipped or delivered, an approved replay changes nothing and the caller
// must not trigger fulfillment again.
func (r *repository) MarkPaidProcessing(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Where("status NOT IN ?", []enums.OrderStatus{
			enums.OrderStatusProcessing,
			enums.OrderStatusShipped,
			enums.OrderStatusDelivered,
		}).
		Updates(map[string]any{
			"payment_status": enums.PaymentStatusPaid,
			"status":         enums.OrderStatusProcessing,
			"updated_at":     time.Now().UTC(),
		})
	if res.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "mark order paid")
	}
	return res.RowsAffected > 0, nil
}

// MarkFailedCancelled records a rejected or cancelled payment. Orders that
// already shipped are never cancelled by a late gateway notification.
func (r *repository) MarkFailedCancelled(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Where("status NOT IN ?", []enums.OrderStatus{
			enums.OrderStatusShipped,
			enums.OrderStatusDelivered,
		}).
		Updates(map[string]any{
			"payment_status": enums.PaymentStatusFailed,
			"status":         enums.OrderStatusCancelled,
			"updated_at":     time.Now().UTC(),
		})
	if res.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "mark order cancelled")
	}
	return res.RowsAffected > 0, nil
}

// MarkPaymentPending refreshes payment_status for in-flight gateway states.
// Only orders still sitting in pending are touched; anything further along
// already has a stronger signal.
func (r *repository) MarkPaymentPending(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Where("status = ?", enums.OrderStatusPending).
		Updates(map[string]any{
			"payment_status": enums.PaymentStatusPending,
			"updated_at":     time.Now().UTC(),
		})
	if res.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "mark order payment pending")
	}
	return res.RowsAffected > 0, nil
}
