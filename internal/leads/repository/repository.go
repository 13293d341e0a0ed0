package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"leadbroker_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound means no lead exists under the given id.
	ErrNotFound = errors.New("lead not found")
	// ErrStale means the conditional transition matched no row: another
	// actor moved the lead first. Callers treat this as losing a race,
	// not as a failure.
	ErrStale = errors.New("lead state changed concurrently")
)

// Lead is one unit of buyer interest moving through the pipeline.
type Lead struct {
	ID                   uuid.UUID
	PropertyID           uuid.UUID
	ContactName          string
	ContactEmail         string
	ContactPhone         string
	Status               domain.Status
	PipelineStage        string
	RealtorID            *uuid.UUID
	LastRealtorID        *uuid.UUID
	IsDirect             bool
	MuralVisible         bool
	DistributionAttempts int
	CreatedAt            time.Time
	UpdatedAt            time.Time
	RespondedAt          *time.Time
	ExpiresAt            *time.Time
	CompletedAt          *time.Time
}

// CreateLeadParams carries the intake payload for a new lead.
type CreateLeadParams struct {
	PropertyID   uuid.UUID
	ContactName  string
	ContactEmail string
	ContactPhone string
	Status       domain.Status
	RealtorID    *uuid.UUID
	IsDirect     bool
	MuralVisible bool
}

const leadColumns = `id, property_id, contact_name, contact_email, contact_phone, status,
	pipeline_stage, realtor_id, last_realtor_id, is_direct, mural_visible,
	distribution_attempts, created_at, updated_at, responded_at, expires_at, completed_at`

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanLead(row pgx.Row) (Lead, error) {
	var l Lead
	var status string
	err := row.Scan(
		&l.ID, &l.PropertyID, &l.ContactName, &l.ContactEmail, &l.ContactPhone, &status,
		&l.PipelineStage, &l.RealtorID, &l.LastRealtorID, &l.IsDirect, &l.MuralVisible,
		&l.DistributionAttempts, &l.CreatedAt, &l.UpdatedAt, &l.RespondedAt, &l.ExpiresAt, &l.CompletedAt,
	)
	if err != nil {
		return Lead{}, err
	}
	l.Status = domain.Status(status)
	return l, nil
}

// Create inserts a new lead. Direct leads arrive already bound to a
// realtor and skip distribution entirely.
func (r *Repository) Create(ctx context.Context, p CreateLeadParams) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO leads (property_id, contact_name, contact_email, contact_phone,
			status, realtor_id, is_direct, mural_visible)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+leadColumns+`
	`, p.PropertyID, p.ContactName, p.ContactEmail, p.ContactPhone,
		string(p.Status), p.RealtorID, p.IsDirect, p.MuralVisible)

	lead, err := scanLead(row)
	if err != nil {
		return Lead{}, fmt.Errorf("create lead: %w", err)
	}
	return lead, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Lead, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id)
	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	if err != nil {
		return Lead{}, fmt.Errorf("get lead: %w", err)
	}
	return lead, nil
}

// Reserve binds an available lead to a realtor and starts the response
// window. The status guard makes concurrent distribution passes safe:
// whichever update lands first wins, the loser sees ErrStale.
func (r *Repository) Reserve(ctx context.Context, leadID, realtorID uuid.UUID, expiresAt time.Time) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE leads
		SET status = 'reserved',
		    realtor_id = $2,
		    last_realtor_id = NULL,
		    expires_at = $3,
		    distribution_attempts = distribution_attempts + 1,
		    updated_at = now()
		WHERE id = $1 AND status = 'available'
		RETURNING `+leadColumns,
		leadID, realtorID, expiresAt)

	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrStale
	}
	if err != nil {
		return Lead{}, fmt.Errorf("reserve lead: %w", err)
	}
	return lead, nil
}

// MarkViewed moves a reserved lead into the explicit-decision phase the
// moment the realtor opens it. Idempotent at the caller level: a second
// view attempt loses the status guard and reports ErrStale.
func (r *Repository) MarkViewed(ctx context.Context, leadID, realtorID uuid.UUID) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE leads
		SET status = 'waiting_realtor_accept', updated_at = now()
		WHERE id = $1 AND realtor_id = $2 AND status = 'reserved'
		RETURNING `+leadColumns,
		leadID, realtorID)

	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrStale
	}
	if err != nil {
		return Lead{}, fmt.Errorf("mark lead viewed: %w", err)
	}
	return lead, nil
}

// Accept commits the reservation. Clearing expires_at takes the lead
// out of the expiry sweep's view in the same statement, so a sweep
// running concurrently can never expire an accepted lead.
func (r *Repository) Accept(ctx context.Context, leadID, realtorID uuid.UUID) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE leads
		SET status = 'accepted',
		    responded_at = now(),
		    expires_at = NULL,
		    updated_at = now()
		WHERE id = $1 AND realtor_id = $2
		  AND status IN ('reserved', 'waiting_realtor_accept')
		RETURNING `+leadColumns,
		leadID, realtorID)

	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrStale
	}
	if err != nil {
		return Lead{}, fmt.Errorf("accept lead: %w", err)
	}
	return lead, nil
}

// ReleaseToAvailable hands a held lead back to the pool after the
// holder rejects it. The rejection is their answer, so responded_at is
// stamped; the realtor is remembered in last_realtor_id so the next
// distribution pass can skip them.
func (r *Repository) ReleaseToAvailable(ctx context.Context, leadID, realtorID uuid.UUID) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE leads
		SET status = 'available',
		    last_realtor_id = realtor_id,
		    realtor_id = NULL,
		    expires_at = NULL,
		    responded_at = now(),
		    updated_at = now()
		WHERE id = $1 AND realtor_id = $2
		  AND status IN ('reserved', 'waiting_realtor_accept')
		RETURNING `+leadColumns,
		leadID, realtorID)

	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrStale
	}
	if err != nil {
		return Lead{}, fmt.Errorf("release lead: %w", err)
	}
	return lead, nil
}

// ExpireToAvailable returns an unanswered reservation to the pool.
// The holder never responded, so responded_at stays untouched.
func (r *Repository) ExpireToAvailable(ctx context.Context, leadID, realtorID uuid.UUID) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE leads
		SET status = 'available',
		    last_realtor_id = realtor_id,
		    realtor_id = NULL,
		    expires_at = NULL,
		    updated_at = now()
		WHERE id = $1 AND realtor_id = $2
		  AND status IN ('reserved', 'waiting_realtor_accept')
		RETURNING `+leadColumns,
		leadID, realtorID)

	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrStale
	}
	if err != nil {
		return Lead{}, fmt.Errorf("expire reservation: %w", err)
	}
	return lead, nil
}

// MarkExpiredTerminal parks an undistributed lead that exhausted its
// attempt budget. Terminal: no further transitions. The guard only
// matches available leads, so a reservation won by a concurrent pass
// is never torn down.
func (r *Repository) MarkExpiredTerminal(ctx context.Context, leadID uuid.UUID) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE leads
		SET status = 'expired',
		    updated_at = now()
		WHERE id = $1 AND status = 'available'
		RETURNING `+leadColumns,
		leadID)

	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrStale
	}
	if err != nil {
		return Lead{}, fmt.Errorf("expire lead: %w", err)
	}
	return lead, nil
}

// Complete closes out an accepted lead as won business.
func (r *Repository) Complete(ctx context.Context, leadID, realtorID uuid.UUID) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE leads
		SET status = 'completed', completed_at = now(), updated_at = now()
		WHERE id = $1 AND realtor_id = $2 AND status = 'accepted'
		RETURNING `+leadColumns,
		leadID, realtorID)

	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrStale
	}
	if err != nil {
		return Lead{}, fmt.Errorf("complete lead: %w", err)
	}
	return lead, nil
}

// Cancel withdraws a lead from the pipeline. Allowed from any
// non-terminal status.
func (r *Repository) Cancel(ctx context.Context, leadID uuid.UUID) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE leads
		SET status = 'cancelled',
		    realtor_id = NULL,
		    expires_at = NULL,
		    updated_at = now()
		WHERE id = $1 AND status NOT IN ('completed', 'expired', 'cancelled')
		RETURNING `+leadColumns,
		leadID)

	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrStale
	}
	if err != nil {
		return Lead{}, fmt.Errorf("cancel lead: %w", err)
	}
	return lead, nil
}

// ClearLastRealtor lifts the ping-pong exclusion once a distribution
// pass found nobody else to offer the lead to.
func (r *Repository) ClearLastRealtor(ctx context.Context, leadID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE leads SET last_realtor_id = NULL, updated_at = now() WHERE id = $1
	`, leadID)
	if err != nil {
		return fmt.Errorf("clear last realtor: %w", err)
	}
	return nil
}

// SetPipelineStage updates the realtor-facing workflow annotation for
// an accepted lead. The stage never feeds back into status.
func (r *Repository) SetPipelineStage(ctx context.Context, leadID, realtorID uuid.UUID, stage string) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE leads
		SET pipeline_stage = $3, updated_at = now()
		WHERE id = $1 AND realtor_id = $2 AND status = 'accepted'
		RETURNING `+leadColumns,
		leadID, realtorID, stage)

	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrStale
	}
	if err != nil {
		return Lead{}, fmt.Errorf("set pipeline stage: %w", err)
	}
	return lead, nil
}

// ListDueReservations returns leads whose response window closed at or
// before now. The partial index on expires_at keeps this cheap; the
// conditional updates downstream carry the correctness.
func (r *Repository) ListDueReservations(ctx context.Context, now time.Time, limit int) ([]Lead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE expires_at <= $1
		  AND status IN ('reserved', 'waiting_realtor_accept')
		ORDER BY expires_at ASC
		LIMIT $2
	`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list due reservations: %w", err)
	}
	defer rows.Close()
	return collectLeads(rows)
}

// ListAvailable returns undistributed leads oldest first, so the
// recurring distribution pass retries the longest-waiting leads before
// fresh ones.
func (r *Repository) ListAvailable(ctx context.Context, limit int) ([]Lead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE status = 'available'
		ORDER BY created_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list available leads: %w", err)
	}
	defer rows.Close()
	return collectLeads(rows)
}

// ListMural returns available leads flagged for the public board,
// newest first.
func (r *Repository) ListMural(ctx context.Context, limit int) ([]Lead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE status = 'available' AND mural_visible
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list mural leads: %w", err)
	}
	defer rows.Close()
	return collectLeads(rows)
}

// ListByRealtor returns the realtor's current workload: everything
// reserved for, waiting on, or accepted by them.
func (r *Repository) ListByRealtor(ctx context.Context, realtorID uuid.UUID) ([]Lead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE realtor_id = $1
		  AND status IN ('reserved', 'waiting_realtor_accept', 'accepted')
		ORDER BY created_at DESC
	`, realtorID)
	if err != nil {
		return nil, fmt.Errorf("list realtor leads: %w", err)
	}
	defer rows.Close()
	return collectLeads(rows)
}

func (r *Repository) CountByStatus(ctx context.Context, status domain.Status) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM leads WHERE status = $1`, string(status)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count leads: %w", err)
	}
	return n, nil
}

// DeleteTerminalBefore purges terminal leads older than the retention
// cutoff. Candidacy rows go with them via the FK cascade.
func (r *Repository) DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM leads
		WHERE status IN ('expired', 'cancelled')
		  AND updated_at < $1
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge terminal leads: %w", err)
	}
	return tag.RowsAffected(), nil
}

func collectLeads(rows pgx.Rows) ([]Lead, error) {
	leads := make([]Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		leads = append(leads, lead)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leads: %w", err)
	}
	return leads, nil
}
