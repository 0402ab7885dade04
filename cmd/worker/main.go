package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/hugh/canicloud/internal/database"
	"github.com/hugh/canicloud/internal/mailer"
	"github.com/hugh/canicloud/internal/store"
	"github.com/hugh/canicloud/internal/tasks"
	"github.com/hugh/canicloud/pkg/config"
	"github.com/hugh/canicloud/pkg/queue"
	"github.com/hugh/canicloud/pkg/util"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := util.NewLogger(cfg.Server.Env)
	slog.SetDefault(logger)

	logger.Info("starting canicloud worker", "concurrency", cfg.Worker.Concurrency)

	if err := util.ValidateCronExpr(cfg.Worker.SweepCron); err != nil {
		logger.Error("invalid SWEEP_CRON", "cron", cfg.Worker.SweepCron, "error", err)
		os.Exit(1)
	}

	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	m, err := mailer.New(cfg.SMTP, logger)
	if err != nil {
		logger.Error("failed to create mailer", "error", err)
		os.Exit(1)
	}
	if !m.Enabled() {
		logger.Warn("SMTP_HOST not set, OTP emails will only be logged")
	}

	srv := queue.NewServer(&cfg.Redis, cfg.Worker.Concurrency, logger)

	handler := tasks.NewHandler(store.New(db), m, logger)
	mux := asynq.NewServeMux()
	handler.RegisterHandlers(mux)

	scheduler := queue.NewScheduler(&cfg.Redis)
	entryID, err := scheduler.Register(cfg.Worker.SweepCron, tasks.NewSweepTask())
	if err != nil {
		logger.Error("failed to register sweep", "error", err)
		os.Exit(1)
	}
	if next, err := util.NextCronTime(cfg.Worker.SweepCron, time.Now()); err == nil {
		logger.Info("sweep scheduled", "entry_id", entryID, "cron", cfg.Worker.SweepCron, "next_run", next)
	}

	if err := scheduler.Start(); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}

	if err := srv.Start(mux); err != nil {
		logger.Error("failed to start worker", "error", err)
		os.Exit(1)
	}
	logger.Info("worker started, waiting for tasks...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down worker...")
	scheduler.Shutdown()
	srv.Shutdown()

	sqlDB, _ := db.DB()
	sqlDB.Close()

	logger.Info("worker stopped")
}
