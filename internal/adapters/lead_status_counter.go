// Package adapters bridges bounded contexts without letting their
// service packages import each other.
package adapters

import (
	"context"

	"leadbroker_backend/internal/leads/domain"
	leadsrepo "leadbroker_backend/internal/leads/repository"
)

// LeadStatusCounter adapts the leads repository to the queue module's
// LeadCounter port for the admin stats endpoint.
type LeadStatusCounter struct {
	repo leadsrepo.LeadReader
}

func NewLeadStatusCounter(repo leadsrepo.LeadReader) *LeadStatusCounter {
	return &LeadStatusCounter{repo: repo}
}

// CountByStatus returns the lead population per status.
func (a *LeadStatusCounter) CountByStatus(ctx context.Context) (map[string]int, error) {
	statuses := []domain.Status{
		domain.StatusAvailable,
		domain.StatusReserved,
		domain.StatusWaitingRealtorAccept,
		domain.StatusAccepted,
		domain.StatusCompleted,
		domain.StatusExpired,
		domain.StatusCancelled,
	}

	counts := make(map[string]int, len(statuses))
	for _, status := range statuses {
		n, err := a.repo.CountByStatus(ctx, status)
		if err != nil {
			return nil, err
		}
		counts[string(status)] = int(n)
	}
	return counts, nil
}
