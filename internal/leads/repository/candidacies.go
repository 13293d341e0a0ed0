package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Candidacy is a realtor's expressed interest in an open mural lead.
// The unique (lead_id, realtor_id) pair makes repeated candidacies a
// no-op.
type Candidacy struct {
	ID        uuid.UUID
	LeadID    uuid.UUID
	RealtorID uuid.UUID
	CreatedAt time.Time
}

// AddCandidate links a realtor to a lead. Returns false when the pair
// already existed.
func (r *Repository) AddCandidate(ctx context.Context, leadID, realtorID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO candidacies (lead_id, realtor_id)
		VALUES ($1, $2)
		ON CONFLICT (lead_id, realtor_id) DO NOTHING
	`, leadID, realtorID)
	if err != nil {
		return false, fmt.Errorf("add candidacy: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListCandidates returns a lead's candidates in queue order, so the
// first element is the next realtor to offer the lead to.
func (r *Repository) ListCandidates(ctx context.Context, leadID uuid.UUID) ([]Candidacy, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT c.id, c.lead_id, c.realtor_id, c.created_at
		FROM candidacies c
		JOIN realtor_queue_entries e ON e.realtor_id = c.realtor_id
		WHERE c.lead_id = $1
		ORDER BY e.position ASC, e.score DESC, e.created_at ASC
	`, leadID)
	if err != nil {
		return nil, fmt.Errorf("list candidacies: %w", err)
	}
	defer rows.Close()

	items := make([]Candidacy, 0)
	for rows.Next() {
		var c Candidacy
		if err := rows.Scan(&c.ID, &c.LeadID, &c.RealtorID, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan candidacy: %w", err)
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidacies: %w", err)
	}
	return items, nil
}

// ClearCandidates drops every candidacy for a lead once the lead
// settles or goes terminal.
func (r *Repository) ClearCandidates(ctx context.Context, leadID uuid.UUID) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM candidacies WHERE lead_id = $1`, leadID)
	if err != nil {
		return 0, fmt.Errorf("clear candidacies: %w", err)
	}
	return tag.RowsAffected(), nil
}
