// File: internal/infra/web/server.go
package web

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"ege-billing/internal/domain"
	"ege-billing/internal/usecase"
)

// Server is the operator-facing admin API: derived stats, plan catalog
// inspection, metrics. Everything except login and metrics sits behind the
// JWT session.
type Server struct {
	statsUC   usecase.StatsUseCase
	planUC    usecase.PlanUseCase
	paymentUC usecase.PaymentUseCase
	auth      *AuthManager
	apiKey    string
	log       *zerolog.Logger
}

func NewServer(statsUC usecase.StatsUseCase, planUC usecase.PlanUseCase, paymentUC usecase.PaymentUseCase, auth *AuthManager, apiKey string, logger *zerolog.Logger) *Server {
	l := logger.With().Str("component", "AdminAPI").Logger()
	return &Server{statsUC: statsUC, planUC: planUC, paymentUC: paymentUC, auth: auth, apiKey: apiKey, log: &l}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Post("/api/v1/login", s.handleLogin)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Get("/api/v1/stats", s.handleStats)
		r.Get("/api/v1/plans", s.handlePlans)
		r.Post("/api/v1/orders", s.handleCreateOrder)
		r.Get("/api/v1/orders/{orderID}", s.handleGetOrder)
	})
	return r
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := s.auth.ParseFromRequest(r); err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	key := r.Header.Get("X-Api-Key")
	if subtle.ConstantTimeCompare([]byte(key), []byte(s.apiKey)) != 1 {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	token, err := s.auth.Mint(w)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]string{"token": token})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	activated, err := s.statsUC.ActivatedToday(ctx)
	if err != nil {
		http.Error(w, "stats error", http.StatusInternalServerError)
		return
	}
	revenue, err := s.statsUC.RevenueByPeriod(ctx, "day")
	if err != nil {
		http.Error(w, "stats error", http.StatusInternalServerError)
		return
	}
	byModule, err := s.statsUC.ActiveByModule(ctx)
	if err != nil {
		http.Error(w, "stats error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{
		"activated_today":     activated,
		"revenue_kopecks_day": revenue,
		"active_by_module":    byModule,
	})
}

func (s *Server) handlePlans(w http.ResponseWriter, r *http.Request) {
	plans, err := s.planUC.List(r.Context())
	if err != nil {
		http.Error(w, "plans error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, plans)
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID int64  `json:"user_id"`
		PlanID string `json:"plan_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	attempt, err := s.paymentUC.Initiate(r.Context(), req.UserID, req.PlanID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrInvalidArgument) {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		s.log.Error().Err(err).Int64("user_id", req.UserID).Str("plan_id", req.PlanID).Msg("order create failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, attempt)
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")
	attempt, err := s.paymentUC.GetByOrderID(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, attempt)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
