package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"leadbroker_backend/internal/events"
	"leadbroker_backend/internal/leads/domain"
	"leadbroker_backend/internal/leads/repository"

	"github.com/google/uuid"
)

// dueReservationBatch caps how many overdue reservations one sweep
// pass processes.
const dueReservationBatch = 100

// availableLeadBatch caps how many undistributed leads one recurring
// distribution pass processes.
const availableLeadBatch = 100

// errNoCandidates signals an empty eligible set. Internal: the lead
// simply stays available.
var errNoCandidates = errors.New("no eligible realtors")

// DistributeNewLead runs a distribution pass for a freshly created
// lead.
func (s *Service) DistributeNewLead(ctx context.Context, lead repository.Lead) error {
	if lead.Status != domain.StatusAvailable {
		return nil
	}
	return s.attemptDistribution(ctx, lead.ID)
}

// attemptDistribution offers an available lead to the highest-priority
// eligible realtor. A lead that exhausted its attempt budget goes
// terminal instead. Concurrency-safe without locks: the reserve update
// carries a status guard, so of two racing passes exactly one wins.
func (s *Service) attemptDistribution(ctx context.Context, leadID uuid.UUID) error {
	lead, err := s.store.GetByID(ctx, leadID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}
	if lead.Status != domain.StatusAvailable {
		return nil
	}

	if lead.DistributionAttempts >= s.cfg.GetMaxDistributionAttempts() {
		return s.parkExhausted(ctx, lead)
	}

	realtorID, err := s.selectPriorityRealtor(ctx, lead)
	if err != nil {
		if errors.Is(err, errNoCandidates) {
			// Nobody can take it right now. The lead stays available
			// on the mural; the next pass will pick it up.
			s.log.Info("no eligible realtor for lead", "lead_id", lead.ID)
			return nil
		}
		return err
	}

	return s.offerLead(ctx, lead, realtorID)
}

// selectPriorityRealtor picks the next realtor in queue order,
// honoring the ping-pong exclusion: the realtor who just gave the lead
// back is never re-offered it in the same pass. When the exclusion
// empties the candidate set, the pass stays offerless and the
// exclusion is dropped so the next cycle may offer to them again.
func (s *Service) selectPriorityRealtor(ctx context.Context, lead repository.Lead) (uuid.UUID, error) {
	exclude := uuid.Nil
	if lead.LastRealtorID != nil {
		exclude = *lead.LastRealtorID
	}

	candidates, err := s.queue.EligibleRealtors(ctx, exclude)
	if err != nil {
		return uuid.Nil, fmt.Errorf("list eligible realtors: %w", err)
	}

	if len(candidates) == 0 {
		if exclude != uuid.Nil {
			if err := s.store.ClearLastRealtor(ctx, lead.ID); err != nil {
				return uuid.Nil, err
			}
		}
		return uuid.Nil, errNoCandidates
	}
	return candidates[0], nil
}

// offerLead reserves the lead for the realtor and starts the response
// window.
func (s *Service) offerLead(ctx context.Context, lead repository.Lead, realtorID uuid.UUID) error {
	expiresAt := time.Now().Add(s.cfg.GetReservationTTL())

	reserved, err := s.store.Reserve(ctx, lead.ID, realtorID, expiresAt)
	if errors.Is(err, repository.ErrStale) {
		// Another pass got here first.
		return nil
	}
	if err != nil {
		return err
	}

	if err := s.queue.ReserveSlot(ctx, realtorID); err != nil {
		s.log.Error("slot reservation failed after reserve", "lead_id", lead.ID, "realtor_id", realtorID, "error", err)
	}

	if s.scheduler != nil {
		if err := s.scheduler.ScheduleReservationExpiry(ctx, lead.ID, expiresAt); err != nil {
			// The periodic sweep is the safety net.
			s.log.Error("expiry task scheduling failed", "lead_id", lead.ID, "error", err)
		}
	}

	s.publish(ctx, events.LeadReserved{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    reserved.ID,
		RealtorID: realtorID,
		ExpiresAt: expiresAt,
	})
	return nil
}

// parkExhausted moves a lead that burned through its attempt budget to
// terminal expired.
func (s *Service) parkExhausted(ctx context.Context, lead repository.Lead) error {
	expired, err := s.store.MarkExpiredTerminal(ctx, lead.ID)
	if errors.Is(err, repository.ErrStale) {
		return nil
	}
	if err != nil {
		return err
	}

	if _, err := s.store.ClearCandidates(ctx, lead.ID); err != nil {
		s.log.Error("candidacy cleanup failed", "lead_id", lead.ID, "error", err)
	}

	var lastRealtor uuid.UUID
	if lead.LastRealtorID != nil {
		lastRealtor = *lead.LastRealtorID
	}
	s.publish(ctx, events.LeadOfferExpired{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    expired.ID,
		RealtorID: lastRealtor,
		Terminal:  true,
	})
	return nil
}

// DistributeAvailableLeads re-runs distribution for leads sitting in
// the pool: earlier offerless passes, or capacity that freed up after
// the lead arrived. One lead failing never blocks the rest.
func (s *Service) DistributeAvailableLeads(ctx context.Context) (int, error) {
	available, err := s.store.ListAvailable(ctx, availableLeadBatch)
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, lead := range available {
		if err := s.attemptDistribution(ctx, lead.ID); err != nil {
			s.log.Error("distribution pass failed", "lead_id", lead.ID, "error", err)
			continue
		}
		processed++
	}
	return processed, nil
}

// ExpireReservation handles a single lead's reservation deadline. Used
// by the scheduled per-lead expiry task; safe to call for leads that
// already moved on.
func (s *Service) ExpireReservation(ctx context.Context, leadID uuid.UUID) error {
	lead, err := s.store.GetByID(ctx, leadID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}
	if !lead.Status.HoldsReservation() || lead.ExpiresAt == nil {
		return nil
	}
	if lead.ExpiresAt.After(time.Now()) {
		return nil
	}
	return s.expireReservation(ctx, lead)
}

// ReleaseExpiredReservations sweeps every overdue reservation,
// penalizes the non-responding realtors and re-offers the leads. One
// lead failing never blocks the rest of the batch.
func (s *Service) ReleaseExpiredReservations(ctx context.Context) (int, error) {
	due, err := s.store.ListDueReservations(ctx, time.Now(), dueReservationBatch)
	if err != nil {
		return 0, err
	}

	released := 0
	for _, lead := range due {
		if err := s.expireReservation(ctx, lead); err != nil {
			s.log.Error("reservation expiry failed", "lead_id", lead.ID, "error", err)
			continue
		}
		released++
	}
	return released, nil
}

func (s *Service) expireReservation(ctx context.Context, lead repository.Lead) error {
	if lead.RealtorID == nil {
		return nil
	}
	realtorID := *lead.RealtorID

	released, err := s.store.ExpireToAvailable(ctx, lead.ID, realtorID)
	if errors.Is(err, repository.ErrStale) {
		// The realtor responded between the sweep read and now.
		return nil
	}
	if err != nil {
		return err
	}

	if err := s.queue.RecordExpired(ctx, realtorID, "reservation expired"); err != nil {
		s.log.Error("score update failed after expiry", "lead_id", lead.ID, "realtor_id", realtorID, "error", err)
	}

	s.publish(ctx, events.LeadOfferExpired{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    released.ID,
		RealtorID: realtorID,
		Terminal:  false,
	})

	return s.attemptDistribution(ctx, released.ID)
}
