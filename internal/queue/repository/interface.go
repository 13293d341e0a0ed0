package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// =====================================
// Segregated Interfaces (Interface Segregation Principle)
// =====================================

// EntryReader provides read-only access to queue entries.
type EntryReader interface {
	GetByRealtorID(ctx context.Context, realtorID uuid.UUID) (Entry, error)
	ListEligible(ctx context.Context, cap int, exclude uuid.UUID) ([]Entry, error)
	Stats(ctx context.Context) (Stats, error)
}

// EntryWriter provides write operations for queue membership.
type EntryWriter interface {
	Join(ctx context.Context, realtorID uuid.UUID) (Entry, bool, error)
	SetStatus(ctx context.Context, realtorID uuid.UUID, status EntryStatus) error
	IncrementActive(ctx context.Context, realtorID uuid.UUID) error
	DecrementActive(ctx context.Context, realtorID uuid.UUID) error
	GrantBonusLeads(ctx context.Context, realtorID uuid.UUID, count int) error
}

// ScoreLedger provides atomic score mutation with an audit trail.
type ScoreLedger interface {
	AdjustScore(ctx context.Context, p AdjustScoreParams) (Entry, error)
	ApplyOutcome(ctx context.Context, p ApplyOutcomeParams) (Entry, error)
	ListScoreEvents(ctx context.Context, realtorID uuid.UUID, limit int) ([]ScoreEvent, error)
	SumScoreDeltas(ctx context.Context, realtorID uuid.UUID) (int64, error)
}

// Ranker rewrites positions from scores.
type Ranker interface {
	RecalculatePositions(ctx context.Context) (int64, error)
}

// Purger removes aged audit records.
type Purger interface {
	DeleteScoreEventsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
