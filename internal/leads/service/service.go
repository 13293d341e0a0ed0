package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"leadbroker_backend/internal/events"
	"leadbroker_backend/internal/leads/domain"
	"leadbroker_backend/internal/leads/repository"
	"leadbroker_backend/platform/apperr"
	"leadbroker_backend/platform/logger"
	"leadbroker_backend/platform/phone"
	"leadbroker_backend/platform/sanitize"

	"github.com/google/uuid"
)

// Store is everything the service needs from the lead registry.
type Store interface {
	repository.LeadReader
	repository.LeadWriter
	repository.CandidacyStore
	repository.Purger
}

// RealtorQueue is the service's view of the priority queue: who can
// take a lead next, and the score/slot feedback for every outcome.
type RealtorQueue interface {
	EligibleRealtors(ctx context.Context, exclude uuid.UUID) ([]uuid.UUID, error)
	ReserveSlot(ctx context.Context, realtorID uuid.UUID) error
	ReleaseSlot(ctx context.Context, realtorID uuid.UUID) error
	RecordAccepted(ctx context.Context, realtorID uuid.UUID, message string) error
	RecordRejected(ctx context.Context, realtorID uuid.UUID, message string) error
	RecordExpired(ctx context.Context, realtorID uuid.UUID, message string) error
	RecordCompleted(ctx context.Context, realtorID uuid.UUID, message string) error
}

// ExpiryScheduler enqueues a one-shot expiry check for the moment a
// reservation's window closes. Optional: the periodic sweep catches
// everything the scheduler would, just with more latency.
type ExpiryScheduler interface {
	ScheduleReservationExpiry(ctx context.Context, leadID uuid.UUID, at time.Time) error
}

// Config carries the distribution knobs.
type Config interface {
	GetReservationTTL() time.Duration
	GetMaxDistributionAttempts() int
}

type Service struct {
	store     Store
	queue     RealtorQueue
	cfg       Config
	log       *logger.Logger
	eventBus  events.Bus
	scheduler ExpiryScheduler
}

func New(store Store, queue RealtorQueue, cfg Config, log *logger.Logger, eventBus events.Bus) *Service {
	return &Service{
		store:    store,
		queue:    queue,
		cfg:      cfg,
		log:      log,
		eventBus: eventBus,
	}
}

// SetExpiryScheduler wires the optional per-lead expiry scheduling.
func (s *Service) SetExpiryScheduler(scheduler ExpiryScheduler) {
	s.scheduler = scheduler
}

// CreateLeadInput is the sanitized intake payload.
type CreateLeadInput struct {
	PropertyID   uuid.UUID `json:"propertyId" validate:"required"`
	ContactName  string    `json:"contactName" validate:"required,max=200"`
	ContactEmail string    `json:"contactEmail" validate:"required,email"`
	ContactPhone string    `json:"contactPhone" validate:"required"`
	// RealtorID makes the lead direct: it bypasses the queue and is
	// accepted for this realtor immediately.
	RealtorID    *uuid.UUID `json:"realtorId"`
	MuralVisible bool       `json:"muralVisible"`
}

// Create registers a new lead and, unless it is direct, runs a
// distribution pass for it.
func (s *Service) Create(ctx context.Context, in CreateLeadInput) (repository.Lead, error) {
	normalized := phone.NormalizeE164(in.ContactPhone)
	if normalized == "" {
		return repository.Lead{}, apperr.Validation("contact phone is required")
	}

	params := repository.CreateLeadParams{
		PropertyID:   in.PropertyID,
		ContactName:  sanitize.Text(in.ContactName),
		ContactEmail: sanitize.Text(in.ContactEmail),
		ContactPhone: normalized,
		Status:       domain.StatusAvailable,
		MuralVisible: in.MuralVisible,
	}

	if in.RealtorID != nil {
		return s.createDirect(ctx, params, *in.RealtorID)
	}

	lead, err := s.store.Create(ctx, params)
	if err != nil {
		return repository.Lead{}, err
	}

	if err := s.DistributeNewLead(ctx, lead); err != nil {
		// The lead is persisted and available; a failed pass only
		// delays the offer until the next sweep.
		s.log.Error("initial distribution failed", "lead_id", lead.ID, "error", err)
	}

	return s.store.GetByID(ctx, lead.ID)
}

// createDirect skips distribution: the lead lands accepted on the
// named realtor, occupying a slot but earning no score.
func (s *Service) createDirect(ctx context.Context, params repository.CreateLeadParams, realtorID uuid.UUID) (repository.Lead, error) {
	params.Status = domain.StatusAccepted
	params.RealtorID = &realtorID
	params.IsDirect = true
	params.MuralVisible = false

	lead, err := s.store.Create(ctx, params)
	if err != nil {
		return repository.Lead{}, err
	}

	// Direct realtors may not be queue members at all.
	if err := s.queue.ReserveSlot(ctx, realtorID); err != nil && !apperr.Is(err, apperr.KindNotFound) {
		s.log.Error("direct lead slot reservation failed", "lead_id", lead.ID, "realtor_id", realtorID, "error", err)
	}

	s.publish(ctx, events.LeadAccepted{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    lead.ID,
		RealtorID: realtorID,
		IsDirect:  true,
	})
	return lead, nil
}

func (s *Service) Get(ctx context.Context, leadID uuid.UUID) (repository.Lead, error) {
	lead, err := s.store.GetByID(ctx, leadID)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.Lead{}, apperr.NotFound("lead not found")
	}
	return lead, err
}

// ListMine returns the caller's current workload.
func (s *Service) ListMine(ctx context.Context, realtorID uuid.UUID) ([]repository.Lead, error) {
	return s.store.ListByRealtor(ctx, realtorID)
}

// Mural returns the public board of unclaimed leads.
func (s *Service) Mural(ctx context.Context, limit int) ([]repository.Lead, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.store.ListMural(ctx, limit)
}

// MarkViewed moves a reserved lead to the explicit-decision phase.
// Calling it again once the lead is already waiting is a no-op.
func (s *Service) MarkViewed(ctx context.Context, leadID, realtorID uuid.UUID) (repository.Lead, error) {
	lead, err := s.store.MarkViewed(ctx, leadID, realtorID)
	if errors.Is(err, repository.ErrStale) {
		current, getErr := s.Get(ctx, leadID)
		if getErr != nil {
			return repository.Lead{}, getErr
		}
		if current.Status == domain.StatusWaitingRealtorAccept && holds(current, realtorID) {
			return current, nil
		}
		return repository.Lead{}, staleConflict(current)
	}
	return lead, err
}

// Accept commits the caller's reservation and feeds the score loop.
func (s *Service) Accept(ctx context.Context, leadID, realtorID uuid.UUID) (repository.Lead, error) {
	lead, err := s.store.Accept(ctx, leadID, realtorID)
	if errors.Is(err, repository.ErrStale) {
		current, getErr := s.Get(ctx, leadID)
		if getErr != nil {
			return repository.Lead{}, getErr
		}
		if current.Status == domain.StatusAccepted && holds(current, realtorID) {
			return current, nil
		}
		return repository.Lead{}, staleConflict(current)
	}
	if err != nil {
		return repository.Lead{}, err
	}

	if err := s.queue.RecordAccepted(ctx, realtorID, "lead accepted"); err != nil {
		s.log.Error("score update failed after accept", "lead_id", leadID, "realtor_id", realtorID, "error", err)
	}
	if _, err := s.store.ClearCandidates(ctx, leadID); err != nil {
		s.log.Error("candidacy cleanup failed", "lead_id", leadID, "error", err)
	}

	s.publish(ctx, events.LeadAccepted{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    leadID,
		RealtorID: realtorID,
	})
	return lead, nil
}

// Reject returns the lead to the pool, penalizes the caller, and
// immediately tries the next realtor in line.
func (s *Service) Reject(ctx context.Context, leadID, realtorID uuid.UUID) (repository.Lead, error) {
	_, err := s.store.ReleaseToAvailable(ctx, leadID, realtorID)
	if errors.Is(err, repository.ErrStale) {
		current, getErr := s.Get(ctx, leadID)
		if getErr != nil {
			return repository.Lead{}, getErr
		}
		return repository.Lead{}, staleConflict(current)
	}
	if err != nil {
		return repository.Lead{}, err
	}

	if err := s.queue.RecordRejected(ctx, realtorID, "lead rejected"); err != nil {
		s.log.Error("score update failed after reject", "lead_id", leadID, "realtor_id", realtorID, "error", err)
	}

	s.publish(ctx, events.LeadRejected{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    leadID,
		RealtorID: realtorID,
	})

	if err := s.attemptDistribution(ctx, leadID); err != nil {
		s.log.Error("redistribution after reject failed", "lead_id", leadID, "error", err)
	}
	return s.Get(ctx, leadID)
}

// Complete closes an accepted lead as won business, awarding the
// largest score bonus.
func (s *Service) Complete(ctx context.Context, leadID, realtorID uuid.UUID) (repository.Lead, error) {
	lead, err := s.store.Complete(ctx, leadID, realtorID)
	if errors.Is(err, repository.ErrStale) {
		current, getErr := s.Get(ctx, leadID)
		if getErr != nil {
			return repository.Lead{}, getErr
		}
		if current.Status == domain.StatusCompleted && holds(current, realtorID) {
			return current, nil
		}
		return repository.Lead{}, staleConflict(current)
	}
	if err != nil {
		return repository.Lead{}, err
	}

	if err := s.queue.RecordCompleted(ctx, realtorID, "lead completed"); err != nil {
		s.log.Error("score update failed after complete", "lead_id", leadID, "realtor_id", realtorID, "error", err)
	}

	s.publish(ctx, events.LeadCompleted{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    leadID,
		RealtorID: realtorID,
	})
	return lead, nil
}

// Cancel withdraws a lead from the pipeline. Admin operation: works
// from any non-terminal status and frees the holder's slot without a
// score penalty.
func (s *Service) Cancel(ctx context.Context, leadID uuid.UUID) (repository.Lead, error) {
	before, err := s.Get(ctx, leadID)
	if err != nil {
		return repository.Lead{}, err
	}

	lead, err := s.store.Cancel(ctx, leadID)
	if errors.Is(err, repository.ErrStale) {
		return repository.Lead{}, staleConflict(before)
	}
	if err != nil {
		return repository.Lead{}, err
	}

	if before.RealtorID != nil && (before.Status.HoldsReservation() || before.Status == domain.StatusAccepted) {
		if err := s.queue.ReleaseSlot(ctx, *before.RealtorID); err != nil {
			s.log.Error("slot release failed after cancel", "lead_id", leadID, "error", err)
		}
	}
	if _, err := s.store.ClearCandidates(ctx, leadID); err != nil {
		s.log.Error("candidacy cleanup failed", "lead_id", leadID, "error", err)
	}

	s.publish(ctx, events.LeadCancelled{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    leadID,
	})
	return lead, nil
}

// SetPipelineStage updates the workflow annotation on an accepted lead.
func (s *Service) SetPipelineStage(ctx context.Context, leadID, realtorID uuid.UUID, stage string) (repository.Lead, error) {
	stage = sanitize.Text(stage)
	if stage == "" {
		return repository.Lead{}, apperr.Validation("pipeline stage is required")
	}

	lead, err := s.store.SetPipelineStage(ctx, leadID, realtorID, stage)
	if errors.Is(err, repository.ErrStale) {
		current, getErr := s.Get(ctx, leadID)
		if getErr != nil {
			return repository.Lead{}, getErr
		}
		return repository.Lead{}, staleConflict(current)
	}
	return lead, err
}

// PurgeTerminal deletes terminal leads older than the cutoff.
func (s *Service) PurgeTerminal(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.store.DeleteTerminalBefore(ctx, cutoff)
}

func (s *Service) publish(ctx context.Context, ev events.Event) {
	if s.eventBus == nil {
		return
	}
	s.eventBus.Publish(ctx, ev)
}

func holds(lead repository.Lead, realtorID uuid.UUID) bool {
	return lead.RealtorID != nil && *lead.RealtorID == realtorID
}

func staleConflict(current repository.Lead) error {
	return apperr.Conflict(fmt.Sprintf("lead is %s", current.Status))
}
