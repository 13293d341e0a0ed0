package scheduler

import (
	"context"
	"fmt"

	leadsservice "leadbroker_backend/internal/leads/service"
	"leadbroker_backend/platform/config"
	"leadbroker_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Worker consumes scheduled tasks. Today that is only the per-lead
// reservation expiry.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	leads  *leadsservice.Service
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, leads *leadsservice.Service, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		leads:  leads,
		log:    log,
	}

	mux.HandleFunc(TaskReservationExpire, w.handleReservationExpire)

	return w, nil
}

func (w *Worker) handleReservationExpire(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseReservationExpirePayload(task)
	if err != nil {
		return err
	}

	leadID, err := uuid.Parse(payload.LeadID)
	if err != nil {
		return err
	}

	// No-op for leads that were answered before the window closed.
	return w.leads.ExpireReservation(ctx, leadID)
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
