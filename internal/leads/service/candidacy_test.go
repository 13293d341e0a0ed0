package service

import (
	"context"
	"errors"
	"testing"

	"leadbroker_backend/internal/leads/domain"
	"leadbroker_backend/platform/apperr"

	"github.com/google/uuid"
)

func TestCandidateToLeadIsIdempotent(t *testing.T) {
	store := newFakeLeadStore()
	realtorID := uuid.New()
	svc, _ := newTestService(store, newFakeQueue(realtorID))

	lead := seedAvailableLead(t, store)

	if err := svc.CandidateToLead(context.Background(), lead.ID, realtorID); err != nil {
		t.Fatalf("CandidateToLead failed: %v", err)
	}
	if err := svc.CandidateToLead(context.Background(), lead.ID, realtorID); err != nil {
		t.Fatalf("repeated candidacy must be a no-op, got: %v", err)
	}

	candidates, err := svc.Candidates(context.Background(), lead.ID)
	if err != nil {
		t.Fatalf("Candidates failed: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("expected one candidacy, got %d", len(candidates))
	}
}

func TestCandidateToLeadRejectsClosedLeads(t *testing.T) {
	store := newFakeLeadStore()
	holder := uuid.New()
	bidder := uuid.New()
	svc, _ := newTestService(store, newFakeQueue(holder, bidder))

	lead := seedAvailableLead(t, store)
	if err := svc.DistributeNewLead(context.Background(), lead); err != nil {
		t.Fatalf("DistributeNewLead failed: %v", err)
	}

	err := svc.CandidateToLead(context.Background(), lead.ID, bidder)
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Kind != apperr.KindConflict {
		t.Fatalf("expected conflict for a reserved lead, got: %v", err)
	}
}

func TestResolveReservesBestRankedCandidate(t *testing.T) {
	store := newFakeLeadStore()
	top := uuid.New()
	middle := uuid.New()
	bottom := uuid.New()
	queue := newFakeQueue(top, middle, bottom)
	svc, bus := newTestService(store, queue)

	lead := seedAvailableLead(t, store)

	// Candidacies arrive in reverse rank order; the resolution must
	// still pick the best-ranked realtor.
	for _, id := range []uuid.UUID{bottom, middle, top} {
		if err := svc.CandidateToLead(context.Background(), lead.ID, id); err != nil {
			t.Fatalf("CandidateToLead failed: %v", err)
		}
	}

	resolved, err := svc.ResolvePriorityCandidate(context.Background(), lead.ID)
	if err != nil {
		t.Fatalf("ResolvePriorityCandidate failed: %v", err)
	}
	if resolved.Status != domain.StatusReserved {
		t.Fatalf("expected reserved, got %s", resolved.Status)
	}
	if resolved.RealtorID == nil || *resolved.RealtorID != top {
		t.Fatalf("resolution must reserve for the best-ranked candidate")
	}

	candidates, _ := svc.Candidates(context.Background(), lead.ID)
	if len(candidates) != 0 {
		t.Fatalf("losing candidacies must be discarded, %d left", len(candidates))
	}
	if len(bus.named("leads.lead.reserved")) != 1 {
		t.Fatalf("resolution must publish a reservation event")
	}
}

func TestResolveSkipsCandidatesAtCapacity(t *testing.T) {
	store := newFakeLeadStore()
	capped := uuid.New()
	open := uuid.New()
	// Only the second realtor is still eligible.
	queue := newFakeQueue(open)
	svc, _ := newTestService(store, queue)

	lead := seedAvailableLead(t, store)
	for _, id := range []uuid.UUID{capped, open} {
		if err := svc.CandidateToLead(context.Background(), lead.ID, id); err != nil {
			t.Fatalf("CandidateToLead failed: %v", err)
		}
	}

	resolved, err := svc.ResolvePriorityCandidate(context.Background(), lead.ID)
	if err != nil {
		t.Fatalf("ResolvePriorityCandidate failed: %v", err)
	}
	if resolved.RealtorID == nil || *resolved.RealtorID != open {
		t.Fatalf("resolution must skip ineligible candidates")
	}
}

func TestResolveWithoutCandidaciesConflicts(t *testing.T) {
	store := newFakeLeadStore()
	svc, _ := newTestService(store, newFakeQueue(uuid.New()))

	lead := seedAvailableLead(t, store)

	_, err := svc.ResolvePriorityCandidate(context.Background(), lead.ID)
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Kind != apperr.KindConflict {
		t.Fatalf("expected conflict for a lead without candidacies, got: %v", err)
	}
}
