package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentGateway is a provider credential row managed by the admin screens.
// The payment core reads the single active row per request; it never caches
// tokens across requests so rotation takes effect immediately.
type PaymentGateway struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string    `gorm:"column:name;type:text;not null"`
	AccessToken string    `gorm:"column:access_token;type:text;not null"`
	PublicKey   string    `gorm:"column:public_key;type:text"`
	IsSandbox   bool      `gorm:"column:is_sandbox;not null;default:true"`
	Active      bool      `gorm:"column:active;not null;default:false"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
