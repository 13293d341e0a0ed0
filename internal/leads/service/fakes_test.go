package service

import (
	"context"
	"sync"
	"time"

	"leadbroker_backend/internal/events"
	"leadbroker_backend/internal/leads/domain"
	"leadbroker_backend/internal/leads/repository"
	"leadbroker_backend/platform/apperr"

	"github.com/google/uuid"
)

// fakeLeadStore mirrors the SQL repository's conditional guards in
// memory so the service sees the same ErrStale semantics.
type fakeLeadStore struct {
	mu          sync.Mutex
	leads       map[uuid.UUID]*repository.Lead
	candidacies map[uuid.UUID][]uuid.UUID
}

func newFakeLeadStore() *fakeLeadStore {
	return &fakeLeadStore{
		leads:       make(map[uuid.UUID]*repository.Lead),
		candidacies: make(map[uuid.UUID][]uuid.UUID),
	}
}

func (f *fakeLeadStore) Create(_ context.Context, p repository.CreateLeadParams) (repository.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	l := &repository.Lead{
		ID:            uuid.New(),
		PropertyID:    p.PropertyID,
		ContactName:   p.ContactName,
		ContactEmail:  p.ContactEmail,
		ContactPhone:  p.ContactPhone,
		Status:        p.Status,
		PipelineStage: "new",
		RealtorID:     p.RealtorID,
		IsDirect:      p.IsDirect,
		MuralVisible:  p.MuralVisible,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	f.leads[l.ID] = l
	return *l, nil
}

func (f *fakeLeadStore) GetByID(_ context.Context, id uuid.UUID) (repository.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.leads[id]
	if !ok {
		return repository.Lead{}, repository.ErrNotFound
	}
	return *l, nil
}

func (f *fakeLeadStore) Reserve(_ context.Context, leadID, realtorID uuid.UUID, expiresAt time.Time) (repository.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.leads[leadID]
	if !ok || l.Status != domain.StatusAvailable {
		return repository.Lead{}, repository.ErrStale
	}
	rid := realtorID
	exp := expiresAt
	l.Status = domain.StatusReserved
	l.RealtorID = &rid
	l.LastRealtorID = nil
	l.ExpiresAt = &exp
	l.DistributionAttempts++
	l.UpdatedAt = time.Now()
	return *l, nil
}

func (f *fakeLeadStore) MarkViewed(_ context.Context, leadID, realtorID uuid.UUID) (repository.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.leads[leadID]
	if !ok || l.Status != domain.StatusReserved || !heldBy(l, realtorID) {
		return repository.Lead{}, repository.ErrStale
	}
	l.Status = domain.StatusWaitingRealtorAccept
	l.UpdatedAt = time.Now()
	return *l, nil
}

func (f *fakeLeadStore) Accept(_ context.Context, leadID, realtorID uuid.UUID) (repository.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.leads[leadID]
	if !ok || !l.Status.HoldsReservation() || !heldBy(l, realtorID) {
		return repository.Lead{}, repository.ErrStale
	}
	now := time.Now()
	l.Status = domain.StatusAccepted
	l.RespondedAt = &now
	l.ExpiresAt = nil
	l.UpdatedAt = now
	return *l, nil
}

func (f *fakeLeadStore) ReleaseToAvailable(_ context.Context, leadID, realtorID uuid.UUID) (repository.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.leads[leadID]
	if !ok || !l.Status.HoldsReservation() || !heldBy(l, realtorID) {
		return repository.Lead{}, repository.ErrStale
	}
	now := time.Now()
	last := *l.RealtorID
	l.Status = domain.StatusAvailable
	l.LastRealtorID = &last
	l.RealtorID = nil
	l.ExpiresAt = nil
	l.RespondedAt = &now
	l.UpdatedAt = now
	return *l, nil
}

func (f *fakeLeadStore) ExpireToAvailable(_ context.Context, leadID, realtorID uuid.UUID) (repository.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.leads[leadID]
	if !ok || !l.Status.HoldsReservation() || !heldBy(l, realtorID) {
		return repository.Lead{}, repository.ErrStale
	}
	last := *l.RealtorID
	l.Status = domain.StatusAvailable
	l.LastRealtorID = &last
	l.RealtorID = nil
	l.ExpiresAt = nil
	l.UpdatedAt = time.Now()
	return *l, nil
}

func (f *fakeLeadStore) MarkExpiredTerminal(_ context.Context, leadID uuid.UUID) (repository.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.leads[leadID]
	if !ok || l.Status != domain.StatusAvailable {
		return repository.Lead{}, repository.ErrStale
	}
	l.Status = domain.StatusExpired
	l.UpdatedAt = time.Now()
	return *l, nil
}

func (f *fakeLeadStore) Complete(_ context.Context, leadID, realtorID uuid.UUID) (repository.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.leads[leadID]
	if !ok || l.Status != domain.StatusAccepted || !heldBy(l, realtorID) {
		return repository.Lead{}, repository.ErrStale
	}
	now := time.Now()
	l.Status = domain.StatusCompleted
	l.CompletedAt = &now
	l.UpdatedAt = now
	return *l, nil
}

func (f *fakeLeadStore) Cancel(_ context.Context, leadID uuid.UUID) (repository.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.leads[leadID]
	if !ok || l.Status.IsTerminal() {
		return repository.Lead{}, repository.ErrStale
	}
	l.Status = domain.StatusCancelled
	l.RealtorID = nil
	l.ExpiresAt = nil
	l.UpdatedAt = time.Now()
	return *l, nil
}

func (f *fakeLeadStore) ClearLastRealtor(_ context.Context, leadID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if l, ok := f.leads[leadID]; ok {
		l.LastRealtorID = nil
	}
	return nil
}

func (f *fakeLeadStore) SetPipelineStage(_ context.Context, leadID, realtorID uuid.UUID, stage string) (repository.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.leads[leadID]
	if !ok || l.Status != domain.StatusAccepted || !heldBy(l, realtorID) {
		return repository.Lead{}, repository.ErrStale
	}
	l.PipelineStage = stage
	l.UpdatedAt = time.Now()
	return *l, nil
}

func (f *fakeLeadStore) ListByRealtor(_ context.Context, realtorID uuid.UUID) ([]repository.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]repository.Lead, 0)
	for _, l := range f.leads {
		if heldBy(l, realtorID) && !l.Status.IsTerminal() {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (f *fakeLeadStore) ListAvailable(_ context.Context, limit int) ([]repository.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]repository.Lead, 0)
	for _, l := range f.leads {
		if l.Status == domain.StatusAvailable && len(out) < limit {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (f *fakeLeadStore) ListMural(_ context.Context, limit int) ([]repository.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]repository.Lead, 0)
	for _, l := range f.leads {
		if l.Status == domain.StatusAvailable && l.MuralVisible && len(out) < limit {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (f *fakeLeadStore) ListDueReservations(_ context.Context, now time.Time, limit int) ([]repository.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]repository.Lead, 0)
	for _, l := range f.leads {
		if l.Status.HoldsReservation() && l.ExpiresAt != nil && !l.ExpiresAt.After(now) && len(out) < limit {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (f *fakeLeadStore) CountByStatus(_ context.Context, status domain.Status) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, l := range f.leads {
		if l.Status == status {
			n++
		}
	}
	return n, nil
}

func (f *fakeLeadStore) DeleteTerminalBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var deleted int64
	for id, l := range f.leads {
		if (l.Status == domain.StatusExpired || l.Status == domain.StatusCancelled) && l.UpdatedAt.Before(cutoff) {
			delete(f.leads, id)
			delete(f.candidacies, id)
			deleted++
		}
	}
	return deleted, nil
}

func (f *fakeLeadStore) AddCandidate(_ context.Context, leadID, realtorID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range f.candidacies[leadID] {
		if id == realtorID {
			return false, nil
		}
	}
	f.candidacies[leadID] = append(f.candidacies[leadID], realtorID)
	return true, nil
}

func (f *fakeLeadStore) ListCandidates(_ context.Context, leadID uuid.UUID) ([]repository.Candidacy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]repository.Candidacy, 0)
	for _, rid := range f.candidacies[leadID] {
		out = append(out, repository.Candidacy{ID: uuid.New(), LeadID: leadID, RealtorID: rid})
	}
	return out, nil
}

func (f *fakeLeadStore) ClearCandidates(_ context.Context, leadID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := int64(len(f.candidacies[leadID]))
	delete(f.candidacies, leadID)
	return n, nil
}

func heldBy(l *repository.Lead, realtorID uuid.UUID) bool {
	return l.RealtorID != nil && *l.RealtorID == realtorID
}

// fakeQueue is a scripted RealtorQueue: eligible returns the configured
// order minus the excluded realtor, and every feedback call is recorded.
type fakeQueue struct {
	mu       sync.Mutex
	eligible []uuid.UUID
	slots    map[uuid.UUID]int
	outcomes []string
}

func newFakeQueue(eligible ...uuid.UUID) *fakeQueue {
	return &fakeQueue{eligible: eligible, slots: make(map[uuid.UUID]int)}
}

func (q *fakeQueue) EligibleRealtors(_ context.Context, exclude uuid.UUID) ([]uuid.UUID, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]uuid.UUID, 0, len(q.eligible))
	for _, id := range q.eligible {
		if exclude != uuid.Nil && id == exclude {
			continue
		}
		out = append(out, id)
	}
	return out, nil
}

func (q *fakeQueue) ReserveSlot(_ context.Context, realtorID uuid.UUID) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.knows(realtorID) {
		return apperr.NotFound("realtor is not in the queue")
	}
	q.slots[realtorID]++
	return nil
}

func (q *fakeQueue) ReleaseSlot(_ context.Context, realtorID uuid.UUID) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.slots[realtorID] > 0 {
		q.slots[realtorID]--
	}
	return nil
}

func (q *fakeQueue) RecordAccepted(_ context.Context, realtorID uuid.UUID, _ string) error {
	return q.record("accepted", realtorID)
}

func (q *fakeQueue) RecordRejected(_ context.Context, realtorID uuid.UUID, _ string) error {
	return q.record("rejected", realtorID)
}

func (q *fakeQueue) RecordExpired(_ context.Context, realtorID uuid.UUID, _ string) error {
	return q.record("expired", realtorID)
}

func (q *fakeQueue) RecordCompleted(_ context.Context, realtorID uuid.UUID, _ string) error {
	return q.record("completed", realtorID)
}

func (q *fakeQueue) record(kind string, realtorID uuid.UUID) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.outcomes = append(q.outcomes, kind+":"+realtorID.String())
	switch kind {
	case "rejected", "expired", "completed":
		if q.slots[realtorID] > 0 {
			q.slots[realtorID]--
		}
	case "accepted":
	}
	return nil
}

func (q *fakeQueue) knows(realtorID uuid.UUID) bool {
	for _, id := range q.eligible {
		if id == realtorID {
			return true
		}
	}
	return false
}

func (q *fakeQueue) outcomeCount(kind string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for _, o := range q.outcomes {
		if len(o) > len(kind) && o[:len(kind)] == kind {
			n++
		}
	}
	return n
}

// recordingBus captures published events synchronously.
type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Publish(_ context.Context, ev events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, ev)
}

func (b *recordingBus) PublishSync(ctx context.Context, ev events.Event) error {
	b.Publish(ctx, ev)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func (b *recordingBus) named(name string) []events.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]events.Event, 0)
	for _, ev := range b.events {
		if ev.EventName() == name {
			out = append(out, ev)
		}
	}
	return out
}

type fakeScheduler struct {
	mu        sync.Mutex
	scheduled []uuid.UUID
	failWith  error
}

func (s *fakeScheduler) ScheduleReservationExpiry(_ context.Context, leadID uuid.UUID, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	s.scheduled = append(s.scheduled, leadID)
	return nil
}

type testConfig struct {
	ttl         time.Duration
	maxAttempts int
}

func (c testConfig) GetReservationTTL() time.Duration  { return c.ttl }
func (c testConfig) GetMaxDistributionAttempts() int   { return c.maxAttempts }
