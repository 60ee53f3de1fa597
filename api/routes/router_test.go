package routes

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/luanpereira/vitrine-backend/internal/payments"
	"github.com/luanpereira/vitrine-backend/pkg/config"
	"github.com/luanpereira/vitrine-backend/pkg/logger"
)

type fakeStore struct {
	data map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string)}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	str, _ := value.(string)
	f.data[key] = str
	return true, nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("fake:%s:%s", scope, id)
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

type countingIntentService struct {
	calls int
}

func (c *countingIntentService) CreateIntent(_ context.Context, input payments.CreateIntentInput) (*payments.IntentResult, error) {
	c.calls++
	return &payments.IntentResult{
		PreferenceID:      "pref-1",
		CheckoutURL:       "https://mp.example/init",
		ExternalReference: input.OrderID.String(),
	}, nil
}

func newTestRouter(svc *countingIntentService) http.Handler {
	return NewRouter(RouterParams{
		Config: &config.Config{
			App:         config.AppConfig{Env: "test"},
			Idempotency: config.IdempotencyConfig{IntentTTL: time.Hour},
		},
		Logger:           logger.New(logger.Options{ServiceName: "router-test", Output: &bytes.Buffer{}}),
		IdempotencyStore: newFakeStore(),
		PaymentService:   svc,
	})
}

func intentBody() string {
	return `{"order_id":"3f0c8fb4-9a45-4be2-9f5e-6f2f8f714d6a","amount":150.00}`
}

func TestRouterIntentRequiresIdempotencyKey(t *testing.T) {
	svc := &countingIntentService{}
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/intent", strings.NewReader(intentBody()))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without idempotency key, got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.calls != 0 {
		t.Fatalf("service should not run without idempotency key, got %d calls", svc.calls)
	}
}

func TestRouterIntentReplaysDuplicateKey(t *testing.T) {
	svc := &countingIntentService{}
	router := newTestRouter(svc)

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/intent", strings.NewReader(intentBody()))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Idempotency-Key", "K1")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	first := send()
	if first.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", first.Code, first.Body.String())
	}
	replay := send()
	if replay.Code != http.StatusCreated {
		t.Fatalf("expected replayed 201, got %d", replay.Code)
	}
	if replay.Body.String() != first.Body.String() {
		t.Fatalf("replay body differs from original")
	}
	if svc.calls != 1 {
		t.Fatalf("expected exactly one service invocation, got %d", svc.calls)
	}
}

func TestRouterIntentRejectsKeyReuseWithDifferentBody(t *testing.T) {
	svc := &countingIntentService{}
	router := newTestRouter(svc)

	first := httptest.NewRequest(http.MethodPost, "/api/v1/payments/intent", strings.NewReader(intentBody()))
	first.Header.Set("Content-Type", "application/json")
	first.Header.Set("Idempotency-Key", "K1")
	router.ServeHTTP(httptest.NewRecorder(), first)

	second := httptest.NewRequest(http.MethodPost, "/api/v1/payments/intent", strings.NewReader(`{"order_id":"3f0c8fb4-9a45-4be2-9f5e-6f2f8f714d6a","amount":99.90}`))
	second.Header.Set("Content-Type", "application/json")
	second.Header.Set("Idempotency-Key", "K1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, second)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 on key reuse with different body, got %d", rec.Code)
	}
	if svc.calls != 1 {
		t.Fatalf("expected one service invocation, got %d", svc.calls)
	}
}
