// Package service implements the realtor queue business logic: ranked
// membership, the score ledger and the feedback loop applied on every
// lead outcome.
package service

import (
	"context"
	"errors"
	"time"

	"leadbroker_backend/internal/events"
	"leadbroker_backend/internal/leads/domain"
	"leadbroker_backend/internal/queue/repository"
	"leadbroker_backend/platform/apperr"
	"leadbroker_backend/platform/sanitize"

	"github.com/google/uuid"
)

const errRealtorNotInQueue = "realtor is not in the queue"

// Store is the persistence contract the service needs.
type Store interface {
	repository.EntryReader
	repository.EntryWriter
	repository.ScoreLedger
	repository.Ranker
	repository.Purger
}

// CapConfig provides the distribution concurrency cap.
type CapConfig interface {
	GetActiveLeadCap() int
}

// LeadCounter reports lead counts per status for the stats endpoint.
// Implemented by an adapter over the leads repository.
type LeadCounter interface {
	CountByStatus(ctx context.Context) (map[string]int, error)
}

// Service provides business logic for the realtor queue.
type Service struct {
	store       Store
	cfg         CapConfig
	eventBus    events.Bus
	leadCounter LeadCounter
}

// New creates a new queue service.
func New(store Store, cfg CapConfig, eventBus events.Bus) *Service {
	return &Service{
		store:    store,
		cfg:      cfg,
		eventBus: eventBus,
	}
}

// SetLeadCounter wires the optional lead-status counter used by Stats.
func (s *Service) SetLeadCounter(counter LeadCounter) {
	s.leadCounter = counter
}

// Join adds the realtor to the tail of the queue. Joining twice returns
// the existing entry unchanged.
func (s *Service) Join(ctx context.Context, realtorID uuid.UUID) (repository.Entry, error) {
	entry, created, err := s.store.Join(ctx, realtorID)
	if err != nil {
		return repository.Entry{}, err
	}

	if created && s.eventBus != nil {
		s.eventBus.Publish(ctx, events.RealtorJoinedQueue{
			BaseEvent: events.NewBaseEvent(),
			RealtorID: entry.RealtorID,
			Position:  entry.Position,
		})
	}

	return entry, nil
}

// Deactivate excludes the realtor from distribution without losing history.
func (s *Service) Deactivate(ctx context.Context, realtorID uuid.UUID) error {
	return s.setStatus(ctx, realtorID, repository.StatusInactive)
}

// Reactivate re-admits a deactivated realtor to distribution.
func (s *Service) Reactivate(ctx context.Context, realtorID uuid.UUID) error {
	return s.setStatus(ctx, realtorID, repository.StatusActive)
}

func (s *Service) setStatus(ctx context.Context, realtorID uuid.UUID, status repository.EntryStatus) error {
	err := s.store.SetStatus(ctx, realtorID, status)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound(errRealtorNotInQueue)
	}
	return err
}

// GetEntry returns the realtor's queue entry.
func (s *Service) GetEntry(ctx context.Context, realtorID uuid.UUID) (repository.Entry, error) {
	entry, err := s.store.GetByRealtorID(ctx, realtorID)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.Entry{}, apperr.NotFound(errRealtorNotInQueue)
	}
	return entry, err
}

// QueueStats aggregates queue composition and, when a lead counter is
// wired, lead counts per status.
type QueueStats struct {
	ActiveRealtors   int
	InactiveRealtors int
	TotalActiveLeads int
	LeadsByStatus    map[string]int
}

// Stats returns aggregate queue statistics.
func (s *Service) Stats(ctx context.Context) (QueueStats, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return QueueStats{}, err
	}

	result := QueueStats{
		ActiveRealtors:   stats.ActiveRealtors,
		InactiveRealtors: stats.InactiveRealtors,
		TotalActiveLeads: stats.TotalActiveLeads,
	}

	if s.leadCounter != nil {
		counts, err := s.leadCounter.CountByStatus(ctx)
		if err != nil {
			return QueueStats{}, err
		}
		result.LeadsByStatus = counts
	}

	return result, nil
}

// AdjustScore applies an admin-triggered score delta, audited identically
// to automatic adjustments.
func (s *Service) AdjustScore(ctx context.Context, realtorID uuid.UUID, delta int64, message string) (repository.Entry, error) {
	entry, err := s.store.AdjustScore(ctx, repository.AdjustScoreParams{
		RealtorID: realtorID,
		Delta:     delta,
		Reason:    string(domain.ReasonAdminAdjust),
		Message:   sanitize.Text(message),
	})
	if errors.Is(err, repository.ErrNotFound) {
		return repository.Entry{}, apperr.NotFound(errRealtorNotInQueue)
	}
	if err != nil {
		return repository.Entry{}, err
	}

	s.publishScoreAdjusted(ctx, entry, delta, domain.ReasonAdminAdjust)
	return entry, nil
}

// GrantBonusLeads gives a realtor temporary priority credits that raise
// their concurrency capacity.
func (s *Service) GrantBonusLeads(ctx context.Context, realtorID uuid.UUID, count int) error {
	err := s.store.GrantBonusLeads(ctx, realtorID, count)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound(errRealtorNotInQueue)
	}
	return err
}

// Ledger returns the most recent score events for a realtor.
func (s *Service) Ledger(ctx context.Context, realtorID uuid.UUID, limit int) ([]repository.ScoreEvent, error) {
	if _, err := s.GetEntry(ctx, realtorID); err != nil {
		return nil, err
	}
	return s.store.ListScoreEvents(ctx, realtorID, limit)
}

// =============================================================================
// Distribution-facing operations (leads module port)
// =============================================================================

// EligibleRealtors returns the IDs of ACTIVE realtors under their
// concurrency capacity, in distribution order. A non-nil exclude drops
// the lead's most recent holder for this pass.
func (s *Service) EligibleRealtors(ctx context.Context, exclude uuid.UUID) ([]uuid.UUID, error) {
	entries, err := s.store.ListEligible(ctx, s.cfg.GetActiveLeadCap(), exclude)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(entries))
	for _, entry := range entries {
		ids = append(ids, entry.RealtorID)
	}
	return ids, nil
}

// ReserveSlot counts a new reservation against the realtor.
func (s *Service) ReserveSlot(ctx context.Context, realtorID uuid.UUID) error {
	err := s.store.IncrementActive(ctx, realtorID)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound(errRealtorNotInQueue)
	}
	return err
}

// ReleaseSlot frees a reservation slot without scoring an outcome
// (external cancellation).
func (s *Service) ReleaseSlot(ctx context.Context, realtorID uuid.UUID) error {
	err := s.store.DecrementActive(ctx, realtorID)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound(errRealtorNotInQueue)
	}
	return err
}

// RecordAccepted scores an accepted offer. The lead stays active against
// the realtor until completed.
func (s *Service) RecordAccepted(ctx context.Context, realtorID uuid.UUID, message string) error {
	return s.recordOutcome(ctx, repository.ApplyOutcomeParams{
		RealtorID:         realtorID,
		Delta:             domain.DeltaAccepted,
		Reason:            string(domain.ReasonLeadAccepted),
		Message:           message,
		AcceptedIncrement: 1,
	})
}

// RecordRejected scores a rejected offer and frees the slot.
func (s *Service) RecordRejected(ctx context.Context, realtorID uuid.UUID, message string) error {
	return s.recordOutcome(ctx, repository.ApplyOutcomeParams{
		RealtorID:         realtorID,
		Delta:             domain.DeltaRejected,
		Reason:            string(domain.ReasonLeadRejected),
		Message:           message,
		RejectedIncrement: 1,
		ActiveDelta:       -1,
	})
}

// RecordExpired scores an unanswered offer and frees the slot.
func (s *Service) RecordExpired(ctx context.Context, realtorID uuid.UUID, message string) error {
	return s.recordOutcome(ctx, repository.ApplyOutcomeParams{
		RealtorID:        realtorID,
		Delta:            domain.DeltaExpired,
		Reason:           string(domain.ReasonLeadExpired),
		Message:          message,
		ExpiredIncrement: 1,
		ActiveDelta:      -1,
	})
}

// RecordCompleted scores a completed lead and frees the slot.
func (s *Service) RecordCompleted(ctx context.Context, realtorID uuid.UUID, message string) error {
	return s.recordOutcome(ctx, repository.ApplyOutcomeParams{
		RealtorID:   realtorID,
		Delta:       domain.DeltaCompleted,
		Reason:      string(domain.ReasonLeadCompleted),
		Message:     message,
		ActiveDelta: -1,
	})
}

func (s *Service) recordOutcome(ctx context.Context, p repository.ApplyOutcomeParams) error {
	entry, err := s.store.ApplyOutcome(ctx, p)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound(errRealtorNotInQueue)
	}
	if err != nil {
		return err
	}

	s.publishScoreAdjusted(ctx, entry, p.Delta, domain.ScoreReason(p.Reason))
	return nil
}

func (s *Service) publishScoreAdjusted(ctx context.Context, entry repository.Entry, delta int64, reason domain.ScoreReason) {
	if s.eventBus == nil {
		return
	}
	s.eventBus.Publish(ctx, events.ScoreAdjusted{
		BaseEvent: events.NewBaseEvent(),
		RealtorID: entry.RealtorID,
		Delta:     delta,
		Reason:    string(reason),
		NewScore:  entry.Score,
	})
}

// =============================================================================
// Scheduler-facing operations
// =============================================================================

// RecalculatePositions rewrites the dense 1..N ranking from current
// scores. Invoked on its own interval, decoupled from the score writes.
func (s *Service) RecalculatePositions(ctx context.Context) (int64, error) {
	return s.store.RecalculatePositions(ctx)
}

// PurgeScoreEvents deletes ledger records older than the cutoff.
func (s *Service) PurgeScoreEvents(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.store.DeleteScoreEventsBefore(ctx, cutoff)
}
