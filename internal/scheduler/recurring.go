package scheduler

import (
	"context"
	"time"

	leadsservice "leadbroker_backend/internal/leads/service"
	queueservice "leadbroker_backend/internal/queue/service"
	"leadbroker_backend/platform/logger"
)

const (
	defaultExpirySweepInterval      = time.Minute
	defaultDistributionPassInterval = time.Minute
	defaultQueueRecalcInterval      = 10 * time.Minute
	defaultRetentionCleanupInterval = time.Hour
	defaultRetentionWindow          = 30 * 24 * time.Hour
)

// ExpirySweeper is the safety net behind the per-lead expiry tasks: it
// periodically releases every overdue reservation, so a lost task or an
// unavailable Redis never leaves a lead stuck.
type ExpirySweeper struct {
	leads    *leadsservice.Service
	log      *logger.Logger
	interval time.Duration
}

func NewExpirySweeper(leads *leadsservice.Service, log *logger.Logger, interval time.Duration) *ExpirySweeper {
	if interval <= 0 {
		interval = defaultExpirySweepInterval
	}
	return &ExpirySweeper{leads: leads, log: log, interval: interval}
}

func (s *ExpirySweeper) Run(ctx context.Context) {
	if s == nil || s.leads == nil {
		return
	}

	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *ExpirySweeper) sweep(ctx context.Context) {
	released, err := s.leads.ReleaseExpiredReservations(ctx)
	s.log.TaskRun("reservation_expiry_sweep", released, err)
}

// LeadDistributor periodically re-runs distribution over leads still
// sitting available: earlier passes had nobody eligible, and nothing
// else revisits a lead without a reservation. Capacity freed by an
// accept, complete or deactivation is picked up here.
type LeadDistributor struct {
	leads    *leadsservice.Service
	log      *logger.Logger
	interval time.Duration
}

func NewLeadDistributor(leads *leadsservice.Service, log *logger.Logger, interval time.Duration) *LeadDistributor {
	if interval <= 0 {
		interval = defaultDistributionPassInterval
	}
	return &LeadDistributor{leads: leads, log: log, interval: interval}
}

func (d *LeadDistributor) Run(ctx context.Context) {
	if d == nil || d.leads == nil {
		return
	}

	d.pass(ctx)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.pass(ctx)
		}
	}
}

func (d *LeadDistributor) pass(ctx context.Context) {
	processed, err := d.leads.DistributeAvailableLeads(ctx)
	d.log.TaskRun("lead_distribution_pass", processed, err)
}

// QueueRecalculator periodically rewrites queue positions from scores.
// Between runs positions may lag the scores; distribution reads the
// stored positions, so ordering changes take effect on the next run.
type QueueRecalculator struct {
	queue    *queueservice.Service
	log      *logger.Logger
	interval time.Duration
}

func NewQueueRecalculator(queue *queueservice.Service, log *logger.Logger, interval time.Duration) *QueueRecalculator {
	if interval <= 0 {
		interval = defaultQueueRecalcInterval
	}
	return &QueueRecalculator{queue: queue, log: log, interval: interval}
}

func (r *QueueRecalculator) Run(ctx context.Context) {
	if r == nil || r.queue == nil {
		return
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			moved, err := r.queue.RecalculatePositions(ctx)
			r.log.TaskRun("queue_recalculation", int(moved), err)
		}
	}
}

// RetentionCleanup purges terminal leads and old score events past the
// retention window.
type RetentionCleanup struct {
	leads    *leadsservice.Service
	queue    *queueservice.Service
	log      *logger.Logger
	interval time.Duration
	window   time.Duration
}

func NewRetentionCleanup(leads *leadsservice.Service, queue *queueservice.Service, log *logger.Logger, interval, window time.Duration) *RetentionCleanup {
	if interval <= 0 {
		interval = defaultRetentionCleanupInterval
	}
	if window <= 0 {
		window = defaultRetentionWindow
	}
	return &RetentionCleanup{leads: leads, queue: queue, log: log, interval: interval, window: window}
}

func (c *RetentionCleanup) Run(ctx context.Context) {
	if c == nil || c.leads == nil || c.queue == nil {
		return
	}

	c.cleanup(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.cleanup(ctx)
		}
	}
}

func (c *RetentionCleanup) cleanup(ctx context.Context) {
	cutoff := time.Now().Add(-c.window)

	purgedLeads, err := c.leads.PurgeTerminal(ctx, cutoff)
	if err != nil {
		c.log.Warn("terminal lead purge failed", "error", err)
	} else if purgedLeads > 0 {
		c.log.Info("terminal lead purge deleted leads", "deleted", purgedLeads)
	}

	purgedEvents, err := c.queue.PurgeScoreEvents(ctx, cutoff)
	if err != nil {
		c.log.Warn("score event purge failed", "error", err)
	} else if purgedEvents > 0 {
		c.log.Info("score event purge deleted events", "deleted", purgedEvents)
	}
}
