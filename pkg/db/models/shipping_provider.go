package models

import (
	"time"

	"github.com/google/uuid"
)

// ShippingProvider holds the freight-aggregator credentials plus the origin
// postal code quotes are calculated from. Same active-row contract as
// PaymentGateway.
type ShippingProvider struct {
	ID               uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name             string    `gorm:"column:name;type:text;not null"`
	APIToken         string    `gorm:"column:api_token;type:text;not null"`
	OriginPostalCode string    `gorm:"column:origin_postal_code;type:text;not null"`
	IsSandbox        bool      `gorm:"column:is_sandbox;not null;default:true"`
	Active           bool      `gorm:"column:active;not null;default:false"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
