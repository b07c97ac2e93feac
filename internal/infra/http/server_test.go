//go:build !integration

package http

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"ege-billing/internal/config"
	"ege-billing/internal/usecase"
)

type stubWebhookUC struct {
	result usecase.WebhookResult
	err    error
	events []usecase.WebhookEvent
}

func (s *stubWebhookUC) Process(ctx context.Context, ev usecase.WebhookEvent) (usecase.WebhookResult, error) {
	s.events = append(s.events, ev)
	return s.result, s.err
}

type stubVerifier struct{ ok bool }

func (s *stubVerifier) Verify(payload map[string]any) bool { return s.ok }

func newTestServer(uc usecase.WebhookUseCase, verify bool) *Server {
	logger := zerolog.New(io.Discard)
	cfg := &config.Config{}
	cfg.Webhook.Path = "/payment/webhook"
	return NewServer(cfg, uc, &stubVerifier{ok: verify}, &logger)
}

func post(t *testing.T, s *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/payment/webhook", strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.handleWebhook(rec, req)
	return rec
}

const confirmedBody = `{"TerminalKey":"t","OrderId":"ord-1","Status":"CONFIRMED","PaymentId":700001,"Amount":299000,"Token":"x"}`

func TestHandleWebhook(t *testing.T) {
	t.Run("acks a processed delivery", func(t *testing.T) {
		uc := &stubWebhookUC{result: usecase.ResultActivated}
		rec := post(t, newTestServer(uc, true), confirmedBody)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if rec.Body.String() != "OK" {
			t.Errorf("body = %q, want the provider's expected OK", rec.Body.String())
		}
		if len(uc.events) != 1 || uc.events[0].OrderID != "ord-1" || uc.events[0].PaymentID != "700001" {
			t.Errorf("events = %+v", uc.events)
		}
	})

	t.Run("rejects an invalid signature with 403", func(t *testing.T) {
		uc := &stubWebhookUC{}
		rec := post(t, newTestServer(uc, false), confirmedBody)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("status = %d, want 403", rec.Code)
		}
		if len(uc.events) != 0 {
			t.Errorf("unsigned delivery reached processing")
		}
	})

	t.Run("acks intermediate statuses without processing", func(t *testing.T) {
		uc := &stubWebhookUC{}
		body := `{"OrderId":"ord-1","Status":"REFUNDED","Token":"x"}`
		rec := post(t, newTestServer(uc, true), body)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if len(uc.events) != 0 {
			t.Errorf("ignored status reached processing")
		}
	})

	t.Run("returns 5xx for retryable failures", func(t *testing.T) {
		uc := &stubWebhookUC{err: &usecase.ActivationError{
			Stage: usecase.StageEntitlements,
			Kind:  usecase.KindTransient,
		}}
		rec := post(t, newTestServer(uc, true), confirmedBody)
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("status = %d, want 503 so the provider retries", rec.Code)
		}
	})

	t.Run("acks non-retryable activation failures", func(t *testing.T) {
		uc := &stubWebhookUC{err: &usecase.ActivationError{
			Stage: usecase.StageLoadPayment,
			Kind:  usecase.KindUnknownOrder,
		}}
		rec := post(t, newTestServer(uc, true), confirmedBody)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200; resending cannot fix an unknown order", rec.Code)
		}
	})

	t.Run("rejects a malformed body", func(t *testing.T) {
		rec := post(t, newTestServer(&stubWebhookUC{}, true), "{not json")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("rejects a body without an order id", func(t *testing.T) {
		rec := post(t, newTestServer(&stubWebhookUC{}, true), `{"Status":"CONFIRMED","Token":"x"}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})
}
