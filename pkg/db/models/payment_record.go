package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/luanpereira/vitrine-backend/pkg/types"
)

// PaymentRecord mirrors one gateway transaction attempt. The natural key is
// (gateway, gateway_transaction_id): repeated notifications for the same
// transaction coalesce into one row, while a second checkout attempt for the
// same order produces a second row.
type PaymentRecord struct {
	ID                   uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID              uuid.UUID       `gorm:"column:order_id;type:uuid;not null"`
	Gateway              string          `gorm:"column:gateway;type:text;not null;uniqueIndex:idx_payment_records_gateway_txn,priority:1"`
	GatewayTransactionID string          `gorm:"column:gateway_transaction_id;type:text;not null;uniqueIndex:idx_payment_records_gateway_txn,priority:2"`
	Amount               decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null"`
	Currency             string          `gorm:"column:currency;type:text;not null;default:'BRL'"`
	Status               string          `gorm:"column:status;type:text;not null;default:'pending'"`
	RawPayload           types.JSONMap   `gorm:"column:raw_payload;type:jsonb;serializer:json"`
	CreatedAt            time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
