package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cimillas/channel-inventory/internal/app"
	"github.com/cimillas/channel-inventory/internal/clock"
	"github.com/cimillas/channel-inventory/internal/config"
	"github.com/cimillas/channel-inventory/internal/storage/postgres"
	"github.com/cimillas/channel-inventory/internal/storage/rediscache"
	transporthttp "github.com/cimillas/channel-inventory/internal/transport/http"
	"github.com/cimillas/channel-inventory/migrations"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	startupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(startupCtx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("connect to db", zap.Error(err))
	}
	defer pool.Close()

	if err := pool.Ping(startupCtx); err != nil {
		logger.Fatal("db ping", zap.Error(err))
	}
	if err := migrations.Apply(startupCtx, pool); err != nil {
		logger.Fatal("apply migrations", zap.Error(err))
	}

	var cache rediscache.Client
	if cfg.RedisAddr != "" {
		redis, err := rediscache.New(startupCtx, cfg.RedisAddr)
		if err != nil {
			logger.Fatal("connect to redis", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		defer redis.Close()
		cache = redis
	}

	clk := clock.NewSystem()

	allotRepo := postgres.NewAllotmentRepository(pool)
	adminRepo := postgres.NewAdminRepository(pool)
	settingsRepo := postgres.NewSettingsRepository(pool, cache)
	eventRepo := postgres.NewEventRepository(pool)

	settingsSvc := app.NewSettingsService(settingsRepo, clk)
	allotSvc := app.NewAllotmentService(allotRepo, settingsRepo, clk,
		app.WithLogger(logger),
		app.WithEventRecorder(eventRepo),
	)
	adminSvc := app.NewAdminService(adminRepo, settingsRepo, allotSvc, clk)
	releaseSvc := app.NewReleaseService(allotRepo, settingsRepo, allotSvc, clk, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", transporthttp.HealthHandler)
	mux.Handle("/allotments", transporthttp.HandleGetAllotment(allotSvc))
	mux.Handle("/allotments/set-allocation", transporthttp.HandleSetAllocation(allotSvc))
	mux.Handle("/allotments/transfer", transporthttp.HandleTransfer(allotSvc))
	mux.Handle("/allotments/bulk-apply", transporthttp.HandleBulkApply(allotSvc))
	mux.Handle("/allotments/copy-forward", transporthttp.HandleCopyForward(allotSvc))
	mux.Handle("/allotments/resolve-preview", transporthttp.HandleResolvePreview(allotSvc))
	mux.Handle("/bookings", transporthttp.HandleApplyBooking(allotSvc))
	mux.Handle("/events", transporthttp.HandleEvents(eventRepo))
	mux.Handle("/settings", transporthttp.HandleSettings(settingsSvc))
	mux.Handle("/admin/room-types", transporthttp.HandleAdminRoomTypes(adminSvc))
	mux.Handle("/admin/room-types/", transporthttp.HandleAdminChannels(adminSvc))
	mux.Handle("/", transporthttp.NotFoundHandler())

	handler := transporthttp.RequestLogger(transporthttp.CORS(cfg.Origins(), mux), logger)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler,
	}

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.SweepEnabled {
		go releaseSvc.Run(stopCtx, cfg.SweepEvery)
	}

	logger.Info("api listening", zap.String("port", cfg.Port))

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
		}
	case <-stopCtx.Done():
		logger.Info("shutdown signal received, stopping server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}
