package fulfillment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/luanpereira/vitrine-backend/pkg/errors"
	"github.com/luanpereira/vitrine-backend/pkg/logger"
)

type fakePublishResult struct {
	err error
}

func (f fakePublishResult) Get(context.Context) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "server-id-1", nil
}

type fakePublisher struct {
	messages []*gcppubsub.Message
	err      error
}

func (f *fakePublisher) Publish(ctx context.Context, msg *gcppubsub.Message) PublishResult {
	f.messages = append(f.messages, msg)
	return fakePublishResult{err: f.err}
}

func newTestService(t *testing.T, pub Publisher) *Service {
	t.Helper()

	svc, err := NewService(ServiceParams{
		Publisher:      pub,
		Logger:         logger.New(logger.Options{ServiceName: "vitrine-test", Output: &bytes.Buffer{}}),
		PublishTimeout: time.Second,
	})
	require.NoError(t, err)
	return svc
}

func TestOnPaymentConfirmed(t *testing.T) {
	pub := &fakePublisher{}
	svc := newTestService(t, pub)

	orderID := uuid.New()
	require.NoError(t, svc.OnPaymentConfirmed(context.Background(), orderID))

	require.Len(t, pub.messages, 1)
	msg := pub.messages[0]
	assert.Equal(t, EventTypeShipmentRequested, msg.Attributes["event_type"])
	assert.Equal(t, orderID.String(), msg.Attributes["order_id"])

	var event ShipmentRequested
	require.NoError(t, json.Unmarshal(msg.Data, &event))
	assert.Equal(t, 1, event.SchemaVersion)
	assert.Equal(t, EventTypeShipmentRequested, event.EventType)
	assert.Equal(t, orderID.String(), event.OrderID)
	assert.False(t, event.OccurredAt.IsZero())
}

func TestOnPaymentConfirmedEachCallPublishes(t *testing.T) {
	pub := &fakePublisher{}
	svc := newTestService(t, pub)

	orderID := uuid.New()
	require.NoError(t, svc.OnPaymentConfirmed(context.Background(), orderID))
	require.NoError(t, svc.OnPaymentConfirmed(context.Background(), orderID))

	// No internal dedup: gating lives with the caller.
	assert.Len(t, pub.messages, 2)
}

func TestOnPaymentConfirmedPublishFailure(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker unavailable")}
	svc := newTestService(t, pub)

	err := svc.OnPaymentConfirmed(context.Background(), uuid.New())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.As(err).Code())
}
