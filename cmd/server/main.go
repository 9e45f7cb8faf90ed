package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/hartline-electric/backoffice/internal/config"
	"github.com/hartline-electric/backoffice/internal/domain/conversion"
	"github.com/hartline-electric/backoffice/internal/domain/difficulty"
	"github.com/hartline-electric/backoffice/internal/domain/estimates"
	"github.com/hartline-electric/backoffice/internal/domain/jobs"
	"github.com/hartline-electric/backoffice/internal/domain/materials"
	"github.com/hartline-electric/backoffice/internal/infra/alert"
	"github.com/hartline-electric/backoffice/internal/infra/db"
	httpx "github.com/hartline-electric/backoffice/internal/infra/http"
	"github.com/hartline-electric/backoffice/internal/infra/logger"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/shopspring/decimal"
	"github.com/subosito/gotenv"
)

func runMigrations(dsn string, log *slog.Logger) error {
	sqlDB, err := goose.OpenDBWithDriver("postgres", dsn)
	if err != nil {
		return err
	}
	defer func() { _ = sqlDB.Close() }()
	return goose.Up(sqlDB, "migrations")
}

func main() {
	_ = gotenv.Load()

	cfg, err := config.Load("config/example.yaml")
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg.App.Env)

	if err := runMigrations(cfg.Postgres.DSN, log); err != nil {
		log.Error("migrations failed", "err", err)
		return
	}
	log.Info("migrations applied")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg.Postgres.DSN)
	if err != nil {
		log.Error("db connect failed", "err", err)
		return
	}
	defer pool.Close()
	log.Info("db connected")

	var sink materials.AlertSink
	if cfg.Alerts.TelegramToken != "" {
		tg, err := alert.NewTelegram(cfg.Alerts.TelegramToken, cfg.Alerts.AdminChatID, log)
		if err != nil {
			log.Error("telegram sink init failed", "err", err)
			return
		}
		sink = tg
		log.Info("price alerts enabled", "chat_id", cfg.Alerts.AdminChatID)
	}

	materialsRepo := materials.NewRepo(pool)
	api := &httpx.API{
		Tracker:    materials.NewTracker(materialsRepo, sink, log),
		Materials:  materialsRepo,
		Converter:  conversion.NewService(conversion.NewPgRunner(pool), log),
		Estimates:  estimates.NewRepo(pool),
		Jobs:       jobs.NewRepo(pool),
		Difficulty: difficulty.NewRepo(pool),
		Defaults: httpx.EstimateDefaults{
			LaborRate:      decimal.NewFromFloat(cfg.Estimating.LaborRate),
			MaterialMarkup: decimal.NewFromFloat(cfg.Estimating.MaterialMarkup),
			TaxRate:        decimal.NewFromFloat(cfg.Estimating.TaxRate),
		},
		Log: log,
	}

	srv := httpx.New(cfg.HTTP.Addr, pool, cfg.Metrics.Enabled, api)
	go func() {
		if err := srv.Start(); err != nil && err.Error() != "http: Server closed" {
			log.Error("http server error", "err", err)
		}
	}()
	log.Info("HTTP server started", "addr", cfg.HTTP.Addr)

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info("graceful shutdown complete")
}
