package repository

import (
	"context"
	"time"

	"leadbroker_backend/internal/leads/domain"

	"github.com/google/uuid"
)

// LeadReader provides read access to the lead registry.
type LeadReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (Lead, error)
	ListByRealtor(ctx context.Context, realtorID uuid.UUID) ([]Lead, error)
	ListAvailable(ctx context.Context, limit int) ([]Lead, error)
	ListMural(ctx context.Context, limit int) ([]Lead, error)
	ListDueReservations(ctx context.Context, now time.Time, limit int) ([]Lead, error)
	CountByStatus(ctx context.Context, status domain.Status) (int64, error)
}

// LeadWriter covers intake and every conditional state transition.
// Transition methods return ErrStale when the status guard matched no
// row.
type LeadWriter interface {
	Create(ctx context.Context, p CreateLeadParams) (Lead, error)
	Reserve(ctx context.Context, leadID, realtorID uuid.UUID, expiresAt time.Time) (Lead, error)
	MarkViewed(ctx context.Context, leadID, realtorID uuid.UUID) (Lead, error)
	Accept(ctx context.Context, leadID, realtorID uuid.UUID) (Lead, error)
	ReleaseToAvailable(ctx context.Context, leadID, realtorID uuid.UUID) (Lead, error)
	ExpireToAvailable(ctx context.Context, leadID, realtorID uuid.UUID) (Lead, error)
	MarkExpiredTerminal(ctx context.Context, leadID uuid.UUID) (Lead, error)
	Complete(ctx context.Context, leadID, realtorID uuid.UUID) (Lead, error)
	Cancel(ctx context.Context, leadID uuid.UUID) (Lead, error)
	ClearLastRealtor(ctx context.Context, leadID uuid.UUID) error
	SetPipelineStage(ctx context.Context, leadID, realtorID uuid.UUID, stage string) (Lead, error)
}

// CandidacyStore tracks mural candidacies: realtors who volunteered
// for an open lead.
type CandidacyStore interface {
	AddCandidate(ctx context.Context, leadID, realtorID uuid.UUID) (bool, error)
	ListCandidates(ctx context.Context, leadID uuid.UUID) ([]Candidacy, error)
	ClearCandidates(ctx context.Context, leadID uuid.UUID) (int64, error)
}

// Purger removes terminal leads past the retention window.
type Purger interface {
	DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
