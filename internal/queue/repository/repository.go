package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("queue entry not found")

// EntryStatus marks whether a realtor participates in distribution.
type EntryStatus string

const (
	StatusActive   EntryStatus = "active"
	StatusInactive EntryStatus = "inactive"
)

// Entry is one realtor's row in the ranked distribution queue.
type Entry struct {
	ID            uuid.UUID
	RealtorID     uuid.UUID
	Position      int
	Score         int64
	Status        EntryStatus
	ActiveLeads   int
	BonusLeads    int
	TotalAccepted int
	TotalRejected int
	TotalExpired  int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ScoreEvent is one immutable audit record in the score ledger.
type ScoreEvent struct {
	ID        uuid.UUID
	RealtorID uuid.UUID
	Delta     int64
	Reason    string
	Message   string
	CreatedAt time.Time
}

// Stats aggregates queue composition.
type Stats struct {
	ActiveRealtors   int
	InactiveRealtors int
	TotalActiveLeads int
}

// AdjustScoreParams carries a single score delta and its audit trail.
type AdjustScoreParams struct {
	RealtorID uuid.UUID
	Delta     int64
	Reason    string
	Message   string
}

// ApplyOutcomeParams records a lead outcome: score delta, lifetime
// counter bumps and the active-lead adjustment, all in one transaction.
type ApplyOutcomeParams struct {
	RealtorID         uuid.UUID
	Delta             int64
	Reason            string
	Message           string
	AcceptedIncrement int
	RejectedIncrement int
	ExpiredIncrement  int
	ActiveDelta       int
}

const entryColumns = `id, realtor_id, position, score, status, active_leads, bonus_leads,
	total_accepted, total_rejected, total_expired, created_at, updated_at`

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanEntry(row pgx.Row) (Entry, error) {
	var e Entry
	var status string
	err := row.Scan(
		&e.ID, &e.RealtorID, &e.Position, &e.Score, &status, &e.ActiveLeads, &e.BonusLeads,
		&e.TotalAccepted, &e.TotalRejected, &e.TotalExpired, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return Entry{}, err
	}
	e.Status = EntryStatus(status)
	return e, nil
}

// Join appends the realtor at the queue tail. Joining twice is a no-op
// that returns the existing entry; the boolean reports whether a new
// entry was created.
func (r *Repository) Join(ctx context.Context, realtorID uuid.UUID) (Entry, bool, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO realtor_queue_entries (realtor_id, position)
		VALUES ($1, (SELECT COALESCE(MAX(position), 0) + 1 FROM realtor_queue_entries))
		ON CONFLICT (realtor_id) DO NOTHING
		RETURNING `+entryColumns,
		realtorID,
	)

	entry, err := scanEntry(row)
	if err == nil {
		return entry, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, false, err
	}

	entry, err = r.GetByRealtorID(ctx, realtorID)
	return entry, false, err
}

func (r *Repository) GetByRealtorID(ctx context.Context, realtorID uuid.UUID) (Entry, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+entryColumns+`
		FROM realtor_queue_entries WHERE realtor_id = $1
	`, realtorID)

	entry, err := scanEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	return entry, err
}

// ListEligible returns ACTIVE realtors with distribution capacity left,
// in distribution order: position ascending, ties by score descending,
// then earliest created. Bonus leads raise the realtor's capacity above
// the configured cap. A non-nil exclude filters out the lead's most
// recent holder for one pass.
func (r *Repository) ListEligible(ctx context.Context, cap int, exclude uuid.UUID) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+entryColumns+`
		FROM realtor_queue_entries
		WHERE status = 'active'
		  AND active_leads < $1 + bonus_leads
		  AND ($2::uuid IS NULL OR realtor_id <> $2)
		ORDER BY position ASC, score DESC, created_at ASC
	`, cap, uuidOrNil(exclude))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (r *Repository) SetStatus(ctx context.Context, realtorID uuid.UUID, status EntryStatus) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE realtor_queue_entries
		SET status = $2, updated_at = now()
		WHERE realtor_id = $1
	`, realtorID, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) IncrementActive(ctx context.Context, realtorID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE realtor_queue_entries
		SET active_leads = active_leads + 1, updated_at = now()
		WHERE realtor_id = $1
	`, realtorID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) DecrementActive(ctx context.Context, realtorID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE realtor_queue_entries
		SET active_leads = GREATEST(active_leads - 1, 0), updated_at = now()
		WHERE realtor_id = $1
	`, realtorID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) GrantBonusLeads(ctx context.Context, realtorID uuid.UUID, count int) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE realtor_queue_entries
		SET bonus_leads = bonus_leads + $2, updated_at = now()
		WHERE realtor_id = $1
	`, realtorID, count)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AdjustScore atomically applies a score delta and appends the matching
// ledger event. The delta is never written without its audit record.
func (r *Repository) AdjustScore(ctx context.Context, p AdjustScoreParams) (Entry, error) {
	return r.ApplyOutcome(ctx, ApplyOutcomeParams{
		RealtorID: p.RealtorID,
		Delta:     p.Delta,
		Reason:    p.Reason,
		Message:   p.Message,
	})
}

// ApplyOutcome applies a lead outcome to the realtor's entry in a single
// transaction: score delta, lifetime counters, active-lead adjustment and
// the ledger event.
func (r *Repository) ApplyOutcome(ctx context.Context, p ApplyOutcomeParams) (Entry, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Entry{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `
		UPDATE realtor_queue_entries SET
			score = score + $2,
			total_accepted = total_accepted + $3,
			total_rejected = total_rejected + $4,
			total_expired = total_expired + $5,
			active_leads = GREATEST(active_leads + $6, 0),
			updated_at = now()
		WHERE realtor_id = $1
		RETURNING `+entryColumns,
		p.RealtorID, p.Delta, p.AcceptedIncrement, p.RejectedIncrement, p.ExpiredIncrement, p.ActiveDelta,
	)

	entry, err := scanEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO score_events (realtor_id, delta, reason, message)
		VALUES ($1, $2, $3, $4)
	`, p.RealtorID, p.Delta, p.Reason, p.Message)
	if err != nil {
		return Entry{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

func (r *Repository) ListScoreEvents(ctx context.Context, realtorID uuid.UUID, limit int) ([]ScoreEvent, error) {
	if limit < 1 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, realtor_id, delta, reason, message, created_at
		FROM score_events
		WHERE realtor_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, realtorID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]ScoreEvent, 0)
	for rows.Next() {
		var ev ScoreEvent
		if err := rows.Scan(&ev.ID, &ev.RealtorID, &ev.Delta, &ev.Reason, &ev.Message, &ev.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, ev)
	}
	return items, rows.Err()
}

// SumScoreDeltas returns the ledger total for a realtor. Within the
// retention window this equals the entry's score.
func (r *Repository) SumScoreDeltas(ctx context.Context, realtorID uuid.UUID) (int64, error) {
	var sum int64
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(delta), 0) FROM score_events WHERE realtor_id = $1
	`, realtorID).Scan(&sum)
	return sum, err
}

// RecalculatePositions rewrites position as a dense 1..N ranking over
// ACTIVE entries ordered by score descending, ties by earliest joined.
// This is the only mutation of position outside of Join.
func (r *Repository) RecalculatePositions(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		WITH ranked AS (
			SELECT id, ROW_NUMBER() OVER (ORDER BY score DESC, created_at ASC) AS rank
			FROM realtor_queue_entries
			WHERE status = 'active'
		)
		UPDATE realtor_queue_entries e
		SET position = ranked.rank, updated_at = now()
		FROM ranked
		WHERE e.id = ranked.id AND e.position <> ranked.rank
	`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *Repository) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	err := r.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status = 'active'),
			COUNT(*) FILTER (WHERE status = 'inactive'),
			COALESCE(SUM(active_leads) FILTER (WHERE status = 'active'), 0)
		FROM realtor_queue_entries
	`).Scan(&s.ActiveRealtors, &s.InactiveRealtors, &s.TotalActiveLeads)
	return s, err
}

func (r *Repository) DeleteScoreEventsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM score_events WHERE created_at < $1
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func uuidOrNil(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}
