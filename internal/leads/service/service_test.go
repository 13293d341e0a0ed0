package service

import (
	"context"
	"testing"

	"leadbroker_backend/internal/leads/domain"
	"leadbroker_backend/platform/apperr"

	"github.com/google/uuid"
)

func TestCreateNormalizesAndDistributes(t *testing.T) {
	store := newFakeLeadStore()
	realtorID := uuid.New()
	queue := newFakeQueue(realtorID)
	svc, _ := newTestService(store, queue)

	lead, err := svc.Create(context.Background(), CreateLeadInput{
		PropertyID:   uuid.New(),
		ContactName:  "  João <b>Silva</b>  ",
		ContactEmail: "joao@example.com",
		ContactPhone: "(11) 98765-4321",
		MuralVisible: true,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if lead.ContactPhone != "+5511987654321" {
		t.Fatalf("phone must be normalized to E.164, got %q", lead.ContactPhone)
	}
	if lead.ContactName != "João Silva" {
		t.Fatalf("name must be sanitized, got %q", lead.ContactName)
	}
	if lead.Status != domain.StatusReserved {
		t.Fatalf("new lead must be distributed immediately, got %s", lead.Status)
	}
}

func TestCreateDirectLeadSkipsDistribution(t *testing.T) {
	store := newFakeLeadStore()
	realtorID := uuid.New()
	queue := newFakeQueue(realtorID)
	svc, bus := newTestService(store, queue)

	lead, err := svc.Create(context.Background(), CreateLeadInput{
		PropertyID:   uuid.New(),
		ContactName:  "Ana Lima",
		ContactEmail: "ana@example.com",
		ContactPhone: "+5511912345678",
		RealtorID:    &realtorID,
		MuralVisible: true,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if lead.Status != domain.StatusAccepted {
		t.Fatalf("direct lead must be accepted on arrival, got %s", lead.Status)
	}
	if !lead.IsDirect {
		t.Fatal("direct flag must be set")
	}
	if lead.MuralVisible {
		t.Fatal("direct lead must never surface on the mural")
	}
	if queue.slots[realtorID] != 1 {
		t.Fatal("direct lead must occupy a slot")
	}
	if queue.outcomeCount("accepted") != 0 {
		t.Fatal("direct lead must not earn acceptance score")
	}
	if len(bus.named("leads.lead.accepted")) != 1 {
		t.Fatal("expected one accepted event")
	}
}

func TestAcceptAwardsScoreAndClearsCandidacies(t *testing.T) {
	store := newFakeLeadStore()
	realtorID := uuid.New()
	queue := newFakeQueue(realtorID)
	svc, bus := newTestService(store, queue)

	seeded := seedAvailableLead(t, store)
	_ = svc.DistributeNewLead(context.Background(), seeded)

	lead, err := svc.Accept(context.Background(), seeded.ID, realtorID)
	if err != nil {
		t.Fatalf("Accept failed: %v", err)
	}

	if lead.Status != domain.StatusAccepted {
		t.Fatalf("expected accepted, got %s", lead.Status)
	}
	if lead.ExpiresAt != nil {
		t.Fatal("accept must clear the reservation deadline")
	}
	if lead.RespondedAt == nil {
		t.Fatal("accept must stamp the response time")
	}
	if queue.outcomeCount("accepted") != 1 {
		t.Fatal("accept must feed the score loop once")
	}

	cands, _ := store.ListCandidates(context.Background(), seeded.ID)
	if len(cands) != 0 {
		t.Fatal("settled lead must carry no candidacies")
	}
	if len(bus.named("leads.lead.accepted")) != 1 {
		t.Fatal("expected one accepted event")
	}
}

func TestAcceptIsIdempotentForTheHolder(t *testing.T) {
	store := newFakeLeadStore()
	realtorID := uuid.New()
	queue := newFakeQueue(realtorID)
	svc, _ := newTestService(store, queue)

	seeded := seedAvailableLead(t, store)
	_ = svc.DistributeNewLead(context.Background(), seeded)

	if _, err := svc.Accept(context.Background(), seeded.ID, realtorID); err != nil {
		t.Fatalf("first accept failed: %v", err)
	}
	lead, err := svc.Accept(context.Background(), seeded.ID, realtorID)
	if err != nil {
		t.Fatalf("repeated accept by the holder must succeed: %v", err)
	}
	if lead.Status != domain.StatusAccepted {
		t.Fatalf("expected accepted, got %s", lead.Status)
	}
	if queue.outcomeCount("accepted") != 1 {
		t.Fatal("repeated accept must not double-award score")
	}
}

func TestAcceptByNonHolderConflicts(t *testing.T) {
	store := newFakeLeadStore()
	holder := uuid.New()
	intruder := uuid.New()
	queue := newFakeQueue(holder)
	svc, _ := newTestService(store, queue)

	seeded := seedAvailableLead(t, store)
	_ = svc.DistributeNewLead(context.Background(), seeded)

	_, err := svc.Accept(context.Background(), seeded.ID, intruder)
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected Conflict, got %v", err)
	}
}

func TestMarkViewedMovesToExplicitDecision(t *testing.T) {
	store := newFakeLeadStore()
	realtorID := uuid.New()
	queue := newFakeQueue(realtorID)
	svc, _ := newTestService(store, queue)

	seeded := seedAvailableLead(t, store)
	_ = svc.DistributeNewLead(context.Background(), seeded)

	lead, err := svc.MarkViewed(context.Background(), seeded.ID, realtorID)
	if err != nil {
		t.Fatalf("MarkViewed failed: %v", err)
	}
	if lead.Status != domain.StatusWaitingRealtorAccept {
		t.Fatalf("expected waiting_realtor_accept, got %s", lead.Status)
	}

	// Second view is a no-op, not a conflict.
	again, err := svc.MarkViewed(context.Background(), seeded.ID, realtorID)
	if err != nil {
		t.Fatalf("repeat MarkViewed failed: %v", err)
	}
	if again.Status != domain.StatusWaitingRealtorAccept {
		t.Fatalf("expected waiting_realtor_accept, got %s", again.Status)
	}

	// A viewed lead can still be accepted.
	accepted, err := svc.Accept(context.Background(), seeded.ID, realtorID)
	if err != nil {
		t.Fatalf("accept after view failed: %v", err)
	}
	if accepted.Status != domain.StatusAccepted {
		t.Fatalf("expected accepted, got %s", accepted.Status)
	}
}

func TestCompleteAwardsBonus(t *testing.T) {
	store := newFakeLeadStore()
	realtorID := uuid.New()
	queue := newFakeQueue(realtorID)
	svc, bus := newTestService(store, queue)

	seeded := seedAvailableLead(t, store)
	_ = svc.DistributeNewLead(context.Background(), seeded)
	_, _ = svc.Accept(context.Background(), seeded.ID, realtorID)

	lead, err := svc.Complete(context.Background(), seeded.ID, realtorID)
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if lead.Status != domain.StatusCompleted {
		t.Fatalf("expected completed, got %s", lead.Status)
	}
	if lead.CompletedAt == nil {
		t.Fatal("completion must be timestamped")
	}
	if queue.outcomeCount("completed") != 1 {
		t.Fatal("completion must feed the score loop")
	}
	if len(bus.named("leads.lead.completed")) != 1 {
		t.Fatal("expected one completed event")
	}
}

func TestCompleteRequiresAcceptedStatus(t *testing.T) {
	store := newFakeLeadStore()
	realtorID := uuid.New()
	queue := newFakeQueue(realtorID)
	svc, _ := newTestService(store, queue)

	seeded := seedAvailableLead(t, store)
	_ = svc.DistributeNewLead(context.Background(), seeded)

	// Still reserved, not accepted.
	_, err := svc.Complete(context.Background(), seeded.ID, realtorID)
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected Conflict, got %v", err)
	}
}

func TestCancelFreesHolderSlotWithoutPenalty(t *testing.T) {
	store := newFakeLeadStore()
	realtorID := uuid.New()
	queue := newFakeQueue(realtorID)
	svc, bus := newTestService(store, queue)

	seeded := seedAvailableLead(t, store)
	_ = svc.DistributeNewLead(context.Background(), seeded)

	lead, err := svc.Cancel(context.Background(), seeded.ID)
	if err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if lead.Status != domain.StatusCancelled {
		t.Fatalf("expected cancelled, got %s", lead.Status)
	}
	if queue.slots[realtorID] != 0 {
		t.Fatal("cancel must free the holder's slot")
	}
	if len(queue.outcomes) != 0 {
		t.Fatalf("cancel must carry no score penalty, got %v", queue.outcomes)
	}
	if len(bus.named("leads.lead.cancelled")) != 1 {
		t.Fatal("expected one cancelled event")
	}

	// Terminal: a second cancel conflicts.
	if _, err := svc.Cancel(context.Background(), seeded.ID); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected Conflict on repeat cancel, got %v", err)
	}
}

func TestSetPipelineStage(t *testing.T) {
	store := newFakeLeadStore()
	realtorID := uuid.New()
	queue := newFakeQueue(realtorID)
	svc, _ := newTestService(store, queue)

	seeded := seedAvailableLead(t, store)
	_ = svc.DistributeNewLead(context.Background(), seeded)
	_, _ = svc.Accept(context.Background(), seeded.ID, realtorID)

	lead, err := svc.SetPipelineStage(context.Background(), seeded.ID, realtorID, "visit_scheduled")
	if err != nil {
		t.Fatalf("SetPipelineStage failed: %v", err)
	}
	if lead.PipelineStage != "visit_scheduled" {
		t.Fatalf("expected stage update, got %q", lead.PipelineStage)
	}

	// Stage never feeds back into status.
	if lead.Status != domain.StatusAccepted {
		t.Fatalf("stage change must not touch status, got %s", lead.Status)
	}

	if _, err := svc.SetPipelineStage(context.Background(), seeded.ID, realtorID, "   "); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected Validation for blank stage, got %v", err)
	}
}

func TestGetUnknownLeadMapsToNotFound(t *testing.T) {
	store := newFakeLeadStore()
	svc, _ := newTestService(store, newFakeQueue())

	_, err := svc.Get(context.Background(), uuid.New())
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}
