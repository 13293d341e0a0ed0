package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leadbroker_backend/internal/events"
	"leadbroker_backend/internal/leads"
	"leadbroker_backend/internal/queue"
	"leadbroker_backend/internal/scheduler"
	"leadbroker_backend/platform/config"
	"leadbroker_backend/platform/db"
	"leadbroker_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
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

	// Worker-side wiring: the same bounded contexts as the API binary,
	// minus HTTP handlers, so no validator is needed.
	queueModule := queue.NewModule(pool, eventBus, nil, cfg, log)
	leadsModule := leads.NewModule(pool, queueModule.Service(), eventBus, nil, cfg, log)

	group, groupCtx := errgroup.WithContext(ctx)

	sweeper := scheduler.NewExpirySweeper(leadsModule.Service(), log, cfg.GetExpirySweepInterval())
	group.Go(func() error {
		sweeper.Run(groupCtx)
		return nil
	})

	distributor := scheduler.NewLeadDistributor(leadsModule.Service(), log, cfg.GetDistributionPassInterval())
	group.Go(func() error {
		distributor.Run(groupCtx)
		return nil
	})

	recalculator := scheduler.NewQueueRecalculator(queueModule.Service(), log, cfg.GetQueueRecalcInterval())
	group.Go(func() error {
		recalculator.Run(groupCtx)
		return nil
	})

	cleanup := scheduler.NewRetentionCleanup(leadsModule.Service(), queueModule.Service(), log, cfg.GetRetentionCleanupInterval(), cfg.GetRetentionWindow())
	group.Go(func() error {
		cleanup.Run(groupCtx)
		return nil
	})

	if cfg.GetRedisURL() != "" {
		worker, err := scheduler.NewWorker(cfg, leadsModule.Service(), log)
		if err != nil {
			log.Error("failed to initialize scheduler worker", "error", err)
			panic("failed to initialize scheduler worker: " + err.Error())
		}
		group.Go(func() error {
			worker.Run(groupCtx)
			return nil
		})
	} else {
		log.Warn("REDIS_URL not configured; running sweep loops only")
	}

	if err := group.Wait(); err != nil {
		log.Error("scheduler stopped", "error", err)
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
