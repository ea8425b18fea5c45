package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"voicecampaign-platform/internal/audit"
	"voicecampaign-platform/internal/auth"
	"voicecampaign-platform/internal/bolna"
	"voicecampaign-platform/internal/calls"
	"voicecampaign-platform/internal/campaigns"
	"voicecampaign-platform/internal/config"
	"voicecampaign-platform/internal/events"
	"voicecampaign-platform/internal/httpapi"
	"voicecampaign-platform/internal/poller"
	"voicecampaign-platform/internal/reporting"
	"voicecampaign-platform/internal/tenant"
	"voicecampaign-platform/pkg/logger"
	"voicecampaign-platform/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Local convenience only; the env wins over the file.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	vendorClient, err := bolna.NewClient(bolna.Config{
		BaseURL: cfg.Bolna.BaseURL,
		APIKey:  cfg.Bolna.APIKey,
	})
	if err != nil {
		log.Error("vendor client init failed", "err", err)
		os.Exit(1)
	}

	callStore := calls.NewPostgresStore(db)
	auditSvc := audit.NewService(audit.NewMemoryRepo())

	// Events flow: poller/webhook -> dial-cap release -> redis pub/sub.
	capLimiter := campaigns.NewRedisCapLimiter(rdb)
	sink := campaigns.NewDialCapSink(events.NewRedisEmitter(rdb, log), capLimiter, log)

	callPoller := poller.New(callStore, vendorClient, sink, poller.Config{
		Interval:             cfg.Poller.Interval,
		MaxAttempts:          cfg.Poller.MaxAttempts,
		MaxConsecutiveErrors: cfg.Poller.MaxConsecutiveErrors,
	}, log)

	campaignSvc := campaigns.NewService(
		campaigns.NewMemoryRepo(),
		callStore,
		vendorClient,
		callPoller,
		capLimiter,
		auditSvc,
		campaigns.Config{},
		log,
	)

	// No user directory wired: user records live in the identity provider
	// in front of this service, so the guard checks payloads against the
	// token's organization claim only.
	guard := tenant.NewGuard(nil, auditSvc, log)

	handlers := httpapi.Handlers{
		Auth:      authManager,
		Store:     callStore,
		Poller:    callPoller,
		Dialer:    vendorClient,
		Campaigns: campaignSvc,
		Reporting: reporting.NewService(reporting.NewStoreRepo(callStore)),
		AgentID:   cfg.Bolna.AgentID,
	}

	webhook := bolna.StatusWebhookHandler{
		Store:  callStore,
		Poller: callPoller,
		Sink:   sink,
		Log:    log,
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, handlers, webhook, auth.RequireAccessToken(authManager), guard.Middleware())

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}

	// Drain poll sessions so no timer fires after the stores close.
	callPoller.StopAll()

	_ = logger.ShutdownFlush(shutdownCtx, 2*time.Second)
}
