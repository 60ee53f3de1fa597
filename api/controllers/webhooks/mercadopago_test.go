package webhooks

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	pkgerrors "github.com/luanpereira/vitrine-backend/pkg/errors"
)

type fakeReconciler struct {
	calls  int
	topics []string
	ids    []string
	err    error
}

func (f *fakeReconciler) HandleNotification(_ context.Context, topic, paymentID string) error {
	f.calls++
	f.topics = append(f.topics, topic)
	f.ids = append(f.ids, paymentID)
	return f.err
}

func TestMercadoPagoWebhook_Success(t *testing.T) {
	svc := &fakeReconciler{}
	handler := MercadoPagoWebhook(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/mercadopago?topic=payment&id=12345", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.calls != 1 {
		t.Fatalf("expected service called once, got %d", svc.calls)
	}
	if svc.topics[0] != "payment" || svc.ids[0] != "12345" {
		t.Fatalf("unexpected forwarding: topic=%s id=%s", svc.topics[0], svc.ids[0])
	}
}

func TestMercadoPagoWebhook_TypeAndDataIDFallback(t *testing.T) {
	svc := &fakeReconciler{}
	handler := MercadoPagoWebhook(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/mercadopago?type=payment&data.id=987", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if svc.topics[0] != "payment" || svc.ids[0] != "987" {
		t.Fatalf("unexpected forwarding: topic=%s id=%s", svc.topics[0], svc.ids[0])
	}
}

func TestMercadoPagoWebhook_ValidationErrorReturns400(t *testing.T) {
	svc := &fakeReconciler{err: pkgerrors.New(pkgerrors.CodeValidation, "payment id is required")}
	handler := MercadoPagoWebhook(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/mercadopago?topic=payment", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestMercadoPagoWebhook_DependencyFailureWithholdsAck(t *testing.T) {
	svc := &fakeReconciler{err: pkgerrors.New(pkgerrors.CodeDependency, "gateway refetch failed")}
	handler := MercadoPagoWebhook(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/mercadopago?topic=payment&id=555", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 so the gateway redelivers, got %d", rec.Code)
	}
}

func TestMercadoPagoWebhook_NilService(t *testing.T) {
	handler := MercadoPagoWebhook(nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/mercadopago?topic=payment&id=1", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}
