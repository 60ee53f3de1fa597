package payments

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/luanpereira/vitrine-backend/pkg/db/models"
	pkgerrors "github.com/luanpereira/vitrine-backend/pkg/errors"
	"github.com/luanpereira/vitrine-backend/pkg/types"
)

func setupPaymentsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	records := `
CREATE TABLE IF NOT EXISTS payment_records (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  gateway TEXT NOT NULL,
  gateway_transaction_id TEXT NOT NULL,
  amount NUMERIC NOT NULL,
  currency TEXT NOT NULL DEFAULT 'BRL',
  status TEXT NOT NULL DEFAULT 'pending',
  raw_payload TEXT,
  created_at DATETIME,
  updated_at DATETIME
);
`
	index := `CREATE UNIQUE INDEX IF NOT EXISTS idx_payment_records_gateway_txn ON payment_records (gateway, gateway_transaction_id);`
	require.NoError(t, db.Exec(records).Error)
	require.NoError(t, db.Exec(index).Error)
	return db
}

func newRecord(orderID uuid.UUID, txnID, status string) *models.PaymentRecord {
	return &models.PaymentRecord{
		ID:                   uuid.New(),
		OrderID:              orderID,
		Gateway:              "mercadopago",
		GatewayTransactionID: txnID,
		Amount:               decimal.RequireFromString("149.90"),
		Currency:             "BRL",
		Status:               status,
		RawPayload:           types.JSONMap{"status": status},
	}
}

func TestUpsertInsertsNewRecord(t *testing.T) {
	db := setupPaymentsTestDB(t)
	repo := NewRepository(db)

	orderID := uuid.New()
	record := newRecord(orderID, "987", "pending")

	require.NoError(t, repo.UpsertByGatewayTransaction(context.Background(), record))

	found, err := repo.FindByGatewayTransaction(context.Background(), "mercadopago", "987")
	require.NoError(t, err)
	assert.Equal(t, orderID, found.OrderID)
	assert.Equal(t, "pending", found.Status)
}

func TestUpsertCoalescesReplays(t *testing.T) {
	db := setupPaymentsTestDB(t)
	repo := NewRepository(db)

	orderID := uuid.New()
	require.NoError(t, repo.UpsertByGatewayTransaction(context.Background(), newRecord(orderID, "987", "pending")))
	require.NoError(t, repo.UpsertByGatewayTransaction(context.Background(), newRecord(orderID, "987", "approved")))

	found, err := repo.FindByGatewayTransaction(context.Background(), "mercadopago", "987")
	require.NoError(t, err)
	assert.Equal(t, "approved", found.Status)

	var count int64
	require.NoError(t, db.Model(&models.PaymentRecord{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestUpsertKeepsDistinctTransactionsApart(t *testing.T) {
	db := setupPaymentsTestDB(t)
	repo := NewRepository(db)

	// Second checkout attempt for the same order is a separate row.
	orderID := uuid.New()
	require.NoError(t, repo.UpsertByGatewayTransaction(context.Background(), newRecord(orderID, "987", "rejected")))
	require.NoError(t, repo.UpsertByGatewayTransaction(context.Background(), newRecord(orderID, "988", "approved")))

	var count int64
	require.NoError(t, db.Model(&models.PaymentRecord{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestFindByGatewayTransactionNotFound(t *testing.T) {
	db := setupPaymentsTestDB(t)
	repo := NewRepository(db)

	_, err := repo.FindByGatewayTransaction(context.Background(), "mercadopago", "missing")
	require.Error(t, err)

	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeNotFound, appErr.Code())
}

func TestCreate(t *testing.T) {
	db := setupPaymentsTestDB(t)
	repo := NewRepository(db)

	record := newRecord(uuid.New(), "pref-1", "pending")
	require.NoError(t, repo.Create(context.Background(), record))

	found, err := repo.FindByGatewayTransaction(context.Background(), "mercadopago", "pref-1")
	require.NoError(t, err)
	assert.True(t, found.Amount.Equal(decimal.RequireFromString("149.90")))
}
