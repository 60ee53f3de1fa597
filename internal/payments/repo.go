package payments

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/luanpereira/vitrine-backend/pkg/db/models"
	pkgerrors "github.com/luanpereira/vitrine-backend/pkg/errors"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a payment record repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, record *models.PaymentRecord) error {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment record")
	}
	return nil
}

// UpsertByGatewayTransaction inserts or refreshes the record for one gateway
// transaction in a single statement. Concurrent deliveries of the same
// notification race on the unique index instead of producing duplicates; the
// loser's write lands as an update.
func (r *repository) UpsertByGatewayTransaction(ctx context.Context, record *models.PaymentRecord) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "gateway"}, {Name: "gateway_transaction_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"order_id",
				"amount",
				"currency",
				"status",
				"raw_payload",
				"updated_at",
			}),
		}).
		Create(record).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upsert payment record")
	}
	return nil
}

func (r *repository) FindByGatewayTransaction(ctx context.Context, gateway, transactionID string) (*models.PaymentRecord, error) {
	var record models.PaymentRecord
	err := r.db.WithContext(ctx).
		Where("gateway = ? AND gateway_transaction_id = ?", gateway, transactionID).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment record not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment record")
	}
	return &record, nil
}
