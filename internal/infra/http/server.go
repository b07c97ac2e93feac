// File: internal/infra/http/server.go
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"ege-billing/internal/config"
	"ege-billing/internal/domain/model"
	"ege-billing/internal/domain/ports/adapter"
	"ege-billing/internal/infra/logging"
	"ege-billing/internal/usecase"
)

// Server receives provider payment notifications.
type Server struct {
	cfg       *config.Config
	webhookUC usecase.WebhookUseCase
	verifier  adapter.SignatureVerifier
	log       *zerolog.Logger
	server    *http.Server
}

func NewServer(cfg *config.Config, webhookUC usecase.WebhookUseCase, verifier adapter.SignatureVerifier, logger *zerolog.Logger) *Server {
	l := logger.With().Str("component", "WebhookServer").Logger()
	return &Server{cfg: cfg, webhookUC: webhookUC, verifier: verifier, log: &l}
}

func (s *Server) Start() error {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Post(s.cfg.Webhook.Path, s.handleWebhook)
	r.Get("/health", s.handleHealth)

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.cfg.Webhook.Port),
		Handler: r,
	}
	s.log.Info().Int("port", s.cfg.Webhook.Port).Str("path", s.cfg.Webhook.Path).Msg("webhook server listening")
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

// notification is the provider's webhook body shape. PaymentId arrives as a
// JSON number.
type notification struct {
	OrderID   string      `json:"OrderId"`
	Status    string      `json:"Status"`
	PaymentID json.Number `json:"PaymentId"`
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "read error", http.StatusBadRequest)
		return
	}

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		s.log.Warn().Err(err).Msg("malformed webhook body")
		http.Error(w, "bad payload", http.StatusBadRequest)
		return
	}
	if !s.verifier.Verify(raw) {
		s.log.Warn().Msg("invalid webhook signature")
		http.Error(w, "Invalid signature", http.StatusForbidden)
		return
	}

	var n notification
	if err := json.Unmarshal(body, &n); err != nil || n.OrderID == "" {
		http.Error(w, "bad payload", http.StatusBadRequest)
		return
	}

	ctx := logging.WithOrderID(r.Context(), n.OrderID)
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		ctx = logging.WithTraceID(ctx, reqID)
	}
	log := logging.With(ctx, s.log)

	status := model.WebhookStatus(n.Status)
	switch status {
	case model.WebhookStatusAuthorized, model.WebhookStatusConfirmed, model.WebhookStatusRejected:
	default:
		// Refunds and intermediate statuses are acked without processing.
		log.Info().Str("status", n.Status).Msg("ignoring status")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "OK")
		return
	}

	result, err := s.webhookUC.Process(ctx, usecase.WebhookEvent{
		OrderID:   n.OrderID,
		Status:    status,
		PaymentID: n.PaymentID.String(),
		Raw:       body,
	})
	if err != nil {
		var aerr *usecase.ActivationError
		if errors.As(err, &aerr) && !aerr.Retryable() {
			// Resending cannot fix an unknown order or a bad catalog row;
			// the operator alert already went out. Ack so the provider
			// stops hammering.
			log.Error().Err(err).Msg("non-retryable activation failure acked")
			w.WriteHeader(http.StatusOK)
			fmt.Fprint(w, "OK")
			return
		}
		// Retryable: 5xx makes the provider deliver again. This is also the
		// path a duplicate-with-incomplete-activation takes when the re-drive
		// fails; it must never be acked with 200.
		log.Error().Err(err).Msg("webhook processing failed")
		http.Error(w, "temporary failure", http.StatusServiceUnavailable)
		return
	}

	log.Info().Str("result", string(result)).Msg("webhook processed")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}
