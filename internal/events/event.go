// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"leadbroker_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Queue Domain Events
// =============================================================================

// RealtorJoinedQueue is published when a realtor enters the distribution queue.
type RealtorJoinedQueue struct {
	BaseEvent
	RealtorID uuid.UUID `json:"realtorId"`
	Position  int       `json:"position"`
}

func (e RealtorJoinedQueue) EventName() string { return "queue.realtor.joined" }

// ScoreAdjusted is published after every score delta is recorded,
// automatic or admin-triggered.
type ScoreAdjusted struct {
	BaseEvent
	RealtorID uuid.UUID `json:"realtorId"`
	Delta     int64     `json:"delta"`
	Reason    string    `json:"reason"`
	NewScore  int64     `json:"newScore"`
}

func (e ScoreAdjusted) EventName() string { return "queue.score.adjusted" }

// =============================================================================
// Lead Domain Events
// =============================================================================

// LeadReserved is published when a lead is reserved to a realtor. The
// external notification collaborator delivers the offer to the realtor.
type LeadReserved struct {
	BaseEvent
	LeadID    uuid.UUID `json:"leadId"`
	RealtorID uuid.UUID `json:"realtorId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (e LeadReserved) EventName() string { return "leads.lead.reserved" }

// LeadOfferExpired is published when a reservation deadline passes.
// Terminal is true when the lead exhausted its distribution attempts and
// will not be re-offered.
type LeadOfferExpired struct {
	BaseEvent
	LeadID    uuid.UUID `json:"leadId"`
	RealtorID uuid.UUID `json:"realtorId"`
	Terminal  bool      `json:"terminal"`
}

func (e LeadOfferExpired) EventName() string { return "leads.lead.offer_expired" }

// LeadAccepted is published when a realtor accepts a reserved lead.
// Downstream collaborators schedule visit/approval flows on it.
type LeadAccepted struct {
	BaseEvent
	LeadID    uuid.UUID `json:"leadId"`
	RealtorID uuid.UUID `json:"realtorId"`
	IsDirect  bool      `json:"isDirect"`
}

func (e LeadAccepted) EventName() string { return "leads.lead.accepted" }

// LeadRejected is published when a realtor rejects a reserved lead.
type LeadRejected struct {
	BaseEvent
	LeadID    uuid.UUID `json:"leadId"`
	RealtorID uuid.UUID `json:"realtorId"`
}

func (e LeadRejected) EventName() string { return "leads.lead.rejected" }

// LeadCompleted is published when an accepted lead is closed successfully.
type LeadCompleted struct {
	BaseEvent
	LeadID    uuid.UUID `json:"leadId"`
	RealtorID uuid.UUID `json:"realtorId"`
}

func (e LeadCompleted) EventName() string { return "leads.lead.completed" }

// LeadCancelled is published when an external collaborator withdraws a lead.
type LeadCancelled struct {
	BaseEvent
	LeadID uuid.UUID `json:"leadId"`
}

func (e LeadCancelled) EventName() string { return "leads.lead.cancelled" }
