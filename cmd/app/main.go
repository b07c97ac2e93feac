// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ege-billing/internal/config"
	"ege-billing/internal/domain/ports/adapter"
	pg "ege-billing/internal/infra/db/postgres"
	httpapi "ege-billing/internal/infra/http"
	"ege-billing/internal/infra/logging"
	"ege-billing/internal/infra/metrics"
	"ege-billing/internal/infra/payment"
	red "ege-billing/internal/infra/redis"
	"ege-billing/internal/infra/sched"
	tele "ege-billing/internal/infra/telegram"
	"ege-billing/internal/infra/web"
	"ege-billing/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, relaxed cookies)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("dev mode enabled")
	}

	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connect failed")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connect failed")
	}
	defer redisClient.Close()
	locker := red.NewLocker(redisClient)

	// ---- Repositories ----
	payRepo := pg.NewPaymentRepo(pool)
	entRepo := pg.NewEntitlementRepo(pool)
	whRepo := pg.NewWebhookRepo(pool)
	teacherRepo := pg.NewTeacherProfileRepo(pool)
	planCatalog := pg.NewPlanRepoCacheDecorator(pg.NewPostgresPlanRepo(pool), redisClient)
	txm := pg.NewTxManager(pool)

	// ---- Notifier ----
	var notifier adapter.Notifier
	if cfg.Notify.BotToken != "" {
		notifier, err = tele.NewNotifier(cfg.Notify.BotToken, cfg.Notify.AdminChatID, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("telegram notifier init failed")
		}
	} else {
		logger.Warn().Msg("notify.bot_token not set, notifications go to the log only")
		notifier = tele.NewLogNotifier(logger)
	}

	// ---- Use cases ----
	teacherProv := usecase.NewTeacherProvisioner(teacherRepo, logger)
	activationUC := usecase.NewActivationUseCase(payRepo, entRepo, planCatalog, teacherProv, txm, notifier, logger)
	webhookUC := usecase.NewWebhookUseCase(whRepo, payRepo, activationUC, logger)
	reconcileUC := usecase.NewReconcileUseCase(payRepo, entRepo, activationUC, notifier, cfg.Reconciler.MaxRedrives, logger)
	paymentUC := usecase.NewPaymentUseCase(payRepo, planCatalog, logger)
	statsUC := usecase.NewStatsUseCase(payRepo, entRepo)
	planUC := usecase.NewPlanUseCase(planCatalog)

	// ---- Webhook server ----
	verifier := payment.NewTinkoffVerifier(cfg.Webhook.SecretKey)
	webhookSrv := httpapi.NewServer(cfg, webhookUC, verifier, logger)
	go func() {
		logger.Info().Int("port", cfg.Webhook.Port).Str("path", cfg.Webhook.Path).Msg("webhook server listening")
		if err := webhookSrv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("webhook server error")
		}
	}()

	// ---- Admin API ----
	auth := web.NewAuthManager(cfg.Admin.JWTSecret, !cfg.Runtime.Dev, "", cfg.Admin.SessionTTL)
	adminAPI := web.NewServer(statsUC, planUC, paymentUC, auth, cfg.Admin.APIKey, logger)
	adminSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Admin.Port),
		Handler: adminAPI.Routes(),
	}
	go func() {
		logger.Info().Int("port", cfg.Admin.Port).Msg("admin server listening")
		if err := adminSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("admin server error")
		}
	}()

	// ---- Background workers ----
	reconWorker := sched.NewReconcilerWorker(cfg.Reconciler.Interval, cfg.Reconciler.Window, reconcileUC, locker, logger)
	go func() { _ = reconWorker.Run(ctx) }()

	reaper := sched.NewEntitlementReaper(cfg.Reaper.Interval, entRepo, logger)
	go func() { _ = reaper.Run(ctx) }()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := webhookSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("webhook server shutdown error")
	}
	if err := adminSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("admin server shutdown error")
	}
}
