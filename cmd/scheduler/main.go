package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pipeline_board_backend/internal/events"
	"pipeline_board_backend/internal/pipeline/repository"
	"pipeline_board_backend/internal/pipeline/telemetry"
	"pipeline_board_backend/internal/scheduler"
	"pipeline_board_backend/platform/config"
	"pipeline_board_backend/platform/db"
	"pipeline_board_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.LoadBase()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env, "queue", cfg.GetAsynqQueueName())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := db.WithRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)
	telemetry.Subscribe(eventBus, telemetry.NewMetrics(), log)

	worker, err := scheduler.NewWorker(cfg, repository.New(pool), eventBus, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
}
