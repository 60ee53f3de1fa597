package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/luanpereira/vitrine-backend/pkg/db/models"
	"github.com/luanpereira/vitrine-backend/pkg/enums"
	pkgerrors "github.com/luanpereira/vitrine-backend/pkg/errors"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	ordersTable := `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  customer_email TEXT NOT NULL,
  total_amount NUMERIC NOT NULL,
  currency TEXT NOT NULL DEFAULT 'BRL',
  status TEXT NOT NULL DEFAULT 'pending',
  payment_status TEXT NOT NULL DEFAULT 'pending',
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(ordersTable).Error)
	return db
}

func seedOrder(t *testing.T, db *gorm.DB, status enums.OrderStatus, paymentStatus enums.PaymentStatus) *models.Order {
	t.Helper()

	order := &models.Order{
		ID:            uuid.New(),
		CustomerEmail: "cliente@example.com",
		TotalAmount:   decimal.RequireFromString("149.90"),
		Currency:      "BRL",
		Status:        status,
		PaymentStatus: paymentStatus,
		CreatedAt:     time.Now().UTC(),
		UpdatedAt:     time.Now().UTC(),
	}
	require.NoError(t, db.Create(order).Error)
	return order
}

func TestFindByID(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	order := seedOrder(t, db, enums.OrderStatusPending, enums.PaymentStatusPending)

	found, err := repo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, found.ID)
	assert.True(t, found.TotalAmount.Equal(decimal.RequireFromString("149.90")))
}

func TestFindByIDNotFound(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	_, err := repo.FindByID(context.Background(), uuid.New())
	require.Error(t, err)

	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeNotFound, appErr.Code())
}

func TestMarkPaidProcessing(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	order := seedOrder(t, db, enums.OrderStatusPending, enums.PaymentStatusPending)

	changed, err := repo.MarkPaidProcessing(context.Background(), order.ID)
	require.NoError(t, err)
	assert.True(t, changed)

	found, err := repo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusProcessing, found.Status)
	assert.Equal(t, enums.PaymentStatusPaid, found.PaymentStatus)
}

func TestMarkPaidProcessingIdempotent(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	order := seedOrder(t, db, enums.OrderStatusPending, enums.PaymentStatusPending)

	changed, err := repo.MarkPaidProcessing(context.Background(), order.ID)
	require.NoError(t, err)
	assert.True(t, changed)

	// Replay: the order already entered fulfillment, nothing changes.
	changed, err = repo.MarkPaidProcessing(context.Background(), order.ID)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestMarkPaidProcessingSkipsShipped(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	order := seedOrder(t, db, enums.OrderStatusShipped, enums.PaymentStatusPaid)

	changed, err := repo.MarkPaidProcessing(context.Background(), order.ID)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestMarkFailedCancelled(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	order := seedOrder(t, db, enums.OrderStatusPending, enums.PaymentStatusPending)

	changed, err := repo.MarkFailedCancelled(context.Background(), order.ID)
	require.NoError(t, err)
	assert.True(t, changed)

	found, err := repo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, found.Status)
	assert.Equal(t, enums.PaymentStatusFailed, found.PaymentStatus)
}

func TestMarkFailedCancelledOverridesProcessing(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	// A rejection for an order that was optimistically marked processing
	// still cancels it; only shipped/delivered orders are protected.
	order := seedOrder(t, db, enums.OrderStatusProcessing, enums.PaymentStatusPaid)

	changed, err := repo.MarkFailedCancelled(context.Background(), order.ID)
	require.NoError(t, err)
	assert.True(t, changed)

	found, err := repo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, found.Status)
}

func TestMarkFailedCancelledSkipsDelivered(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	order := seedOrder(t, db, enums.OrderStatusDelivered, enums.PaymentStatusPaid)

	changed, err := repo.MarkFailedCancelled(context.Background(), order.ID)
	require.NoError(t, err)
	assert.False(t, changed)

	found, err := repo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusDelivered, found.Status)
	assert.Equal(t, enums.PaymentStatusPaid, found.PaymentStatus)
}

func TestMarkPaymentPending(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	order := seedOrder(t, db, enums.OrderStatusPending, enums.PaymentStatusPending)

	changed, err := repo.MarkPaymentPending(context.Background(), order.ID)
	require.NoError(t, err)
	assert.True(t, changed)
}

func TestMarkPaymentPendingSkipsProcessing(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	// An in-flight notification arriving after approval must not regress
	// the stronger signal.
	order := seedOrder(t, db, enums.OrderStatusProcessing, enums.PaymentStatusPaid)

	changed, err := repo.MarkPaymentPending(context.Background(), order.ID)
	require.NoError(t, err)
	assert.False(t, changed)

	found, err := repo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPaid, found.PaymentStatus)
}

func TestWithTx(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	order := seedOrder(t, db, enums.OrderStatusPending, enums.PaymentStatusPending)

	err := db.Transaction(func(tx *gorm.DB) error {
		changed, err := repo.WithTx(tx).MarkPaidProcessing(context.Background(), order.ID)
		require.NoError(t, err)
		assert.True(t, changed)
		return nil
	})
	require.NoError(t, err)

	found, err := repo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusProcessing, found.Status)
}
