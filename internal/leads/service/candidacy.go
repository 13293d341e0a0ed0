package service

import (
	"context"

	"leadbroker_backend/internal/leads/domain"
	"leadbroker_backend/internal/leads/repository"
	"leadbroker_backend/platform/apperr"

	"github.com/google/uuid"
)

// CandidateToLead records a realtor's interest in an open mural lead.
// Repeating the call for the same pair is a no-op.
func (s *Service) CandidateToLead(ctx context.Context, leadID, realtorID uuid.UUID) error {
	lead, err := s.Get(ctx, leadID)
	if err != nil {
		return err
	}
	if lead.Status != domain.StatusAvailable || !lead.MuralVisible {
		return apperr.Conflict("lead is not open for candidacy")
	}

	created, err := s.store.AddCandidate(ctx, leadID, realtorID)
	if err != nil {
		return err
	}
	if created {
		s.log.Info("candidacy recorded", "lead_id", leadID, "realtor_id", realtorID)
	}
	return nil
}

// Candidates lists a lead's open candidacies in queue order.
func (s *Service) Candidates(ctx context.Context, leadID uuid.UUID) ([]repository.Candidacy, error) {
	if _, err := s.Get(ctx, leadID); err != nil {
		return nil, err
	}
	return s.store.ListCandidates(ctx, leadID)
}

// ResolvePriorityCandidate reserves an open lead for its best-ranked
// eligible candidate and discards the remaining candidacies. Candidates
// who left the queue or sit at their active-lead cap are skipped.
func (s *Service) ResolvePriorityCandidate(ctx context.Context, leadID uuid.UUID) (repository.Lead, error) {
	lead, err := s.Get(ctx, leadID)
	if err != nil {
		return repository.Lead{}, err
	}
	if lead.Status != domain.StatusAvailable {
		return repository.Lead{}, staleConflict(lead)
	}

	candidates, err := s.store.ListCandidates(ctx, leadID)
	if err != nil {
		return repository.Lead{}, err
	}
	if len(candidates) == 0 {
		return repository.Lead{}, apperr.Conflict("lead has no open candidacies")
	}

	candidateSet := make(map[uuid.UUID]struct{}, len(candidates))
	for _, c := range candidates {
		candidateSet[c.RealtorID] = struct{}{}
	}

	// The queue is the rank authority: the first eligible realtor in
	// queue order who candidated wins.
	eligible, err := s.queue.EligibleRealtors(ctx, uuid.Nil)
	if err != nil {
		return repository.Lead{}, err
	}
	winner := uuid.Nil
	for _, id := range eligible {
		if _, ok := candidateSet[id]; ok {
			winner = id
			break
		}
	}
	if winner == uuid.Nil {
		return repository.Lead{}, apperr.Conflict("no eligible candidate for lead")
	}

	if err := s.offerLead(ctx, lead, winner); err != nil {
		return repository.Lead{}, err
	}
	if _, err := s.store.ClearCandidates(ctx, leadID); err != nil {
		s.log.Error("candidacy cleanup failed after resolution", "lead_id", leadID, "error", err)
	}

	resolved, err := s.Get(ctx, leadID)
	if err != nil {
		return repository.Lead{}, err
	}
	if !holds(resolved, winner) {
		// A concurrent distribution pass won the reserve race.
		return repository.Lead{}, staleConflict(resolved)
	}
	return resolved, nil
}
