package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/RohanSantra/Connecto-sub000/internal/app/registry"
	"github.com/RohanSantra/Connecto-sub000/internal/app/server"
	"github.com/RohanSantra/Connecto-sub000/internal/app/server/handlers"
	"github.com/RohanSantra/Connecto-sub000/internal/app/worker"
	"github.com/RohanSantra/Connecto-sub000/internal/config"
	"github.com/RohanSantra/Connecto-sub000/internal/core/services"
	"github.com/RohanSantra/Connecto-sub000/internal/migrate"
	"github.com/RohanSantra/Connecto-sub000/internal/platform/logger"
	"github.com/RohanSantra/Connecto-sub000/internal/platform/scheduler"
	"github.com/RohanSantra/Connecto-sub000/internal/platform/telemetry"
	"github.com/RohanSantra/Connecto-sub000/internal/plugins/postgres"
	redisPlugin "github.com/RohanSantra/Connecto-sub000/internal/plugins/redis"
)

func main() {
	// Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Config
	cfg := config.Load()

	// Logger
	log := logger.NewLogger(*cfg)
	log.Info("starting application")

	otelShutdown, err := telemetry.InitTelemetry(ctx, *cfg)
	if err != nil {
		log.Error("failed to initialize telemetry", "err", err)
	}
	defer func() {
		log.Info("flushing telemetry...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			log.Error("telemetry shutdown failed", "err", err)
		}
	}()

	// Infra
	if cfg.Postgres.Migrate {
		if err := migrate.Up(ctx, cfg.Postgres.DSN); err != nil {
			log.Error("migrations failed", "err", err)
			return
		}
		log.Info("migrations applied")
	}
	var pdb *sql.DB
	if pdb, err = postgres.New(ctx, *cfg.Postgres); err != nil {
		log.Error("postgres connection failed", "DSN", cfg.Postgres.DSN)
		return
	}
	log.Info("postgres connected")
	var rdb *redis.Client
	if rdb, err = redisPlugin.NewRedisClient(ctx, *cfg.Redis); err != nil {
		log.Error("redis connection failed", "url", cfg.Redis.URL)
		return
	}
	log.Info("redis connected")

	// Adapters
	convRepo := postgres.NewConversationRepo(pdb)
	msgRepo := postgres.NewMessageRepo(pdb)
	callRepo := postgres.NewCallRepo(pdb)
	statusRepo := postgres.NewUserStatusRepo(pdb)
	blockRepo := postgres.NewBlockRepo(pdb)
	presStore := redisPlugin.NewRedisPresenceStore(rdb)
	msgQueue := redisPlugin.NewRedisMessageQueue(log, rdb)
	limiter := redisPlugin.NewRedisRateLimiter(rdb, cfg.Coordinator.CallCooldown)

	// Core Services
	hub := registry.NewRegistry()
	txManager := services.NewTxManager(pdb)
	bcast := services.NewBroadcastService(log, hub, convRepo)
	receiptSvc := services.NewReceiptService(
		log, msgRepo, convRepo, txManager, bcast,
		cfg.Coordinator.ReceiptBufferMax,
		cfg.Coordinator.ReceiptsPerBuffer,
		cfg.Coordinator.ReceiptBufferTTL,
	)
	go receiptSvc.Run(ctx)
	sweeper := services.NewOfflineSweeper(log, msgRepo, receiptSvc, cfg.Coordinator.SweepLimit)
	presenceSvc := services.NewPresenceService(log, hub, statusRepo, presStore, bcast, sweeper)
	callSvc := services.NewCallService(
		log, convRepo, callRepo, blockRepo, limiter,
		scheduler.New(), bcast, cfg.Coordinator.RingTimeout,
	)
	msgSvc := services.NewMessageService(log, msgQueue, bcast, msgRepo, convRepo, receiptSvc, txManager)
	tokenSvc := services.NewTokenService(cfg.SecretToken)

	wrkr := worker.NewConversationWorker(log, msgQueue, msgSvc, cfg.Worker.MessageGroup)
	msgSvc.RunWorker(ctx, wrkr.Run)

	// Server
	wsHandler := handlers.NewWSHandler(log, presenceSvc, receiptSvc, callSvc, msgSvc)
	srv := server.NewServer(log, cfg.Service.Name, cfg.Service.Addr, tokenSvc, wsHandler)
	if err := srv.Start(); err != nil {
		log.Error("server stopped", "err", err)
	}
}
