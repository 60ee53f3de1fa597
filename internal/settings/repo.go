package settings

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/luanpereira/vitrine-backend/pkg/db/models"
	pkgerrors "github.com/luanpereira/vitrine-backend/pkg/errors"
)

// Repository resolves the currently active provider credential rows. Lookups
// hit the database on every call so operators can swap providers without a
// restart.
type Repository interface {
	ActiveGateway(ctx context.Context) (*models.PaymentGateway, error)
	ActiveShippingProvider(ctx context.Context) (*models.ShippingProvider, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a settings repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) ActiveGateway(ctx context.Context) (*models.PaymentGateway, error) {
	var gateway models.PaymentGateway
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("updated_at DESC").
		First(&gateway).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "no active payment gateway configured")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load active payment gateway")
	}
	return &gateway, nil
}

func (r *repository) ActiveShippingProvider(ctx context.Context) (*models.ShippingProvider, error) {
	var provider models.ShippingProvider
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("updated_at DESC").
		First(&provider).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "no active shipping provider configured")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load active shipping provider")
	}
	return &provider, nil
}
