// Package domain provides core business rules for the leads bounded context:
// the lead status state machine and the scoring reasons derived from it.
package domain

// Status is the lead state machine state. Stored as text; the closed set
// below is the contract every transition is checked against.
type Status string

const (
	// StatusAvailable means the lead has no reservation and is eligible
	// for distribution (and, when mural-visible, for candidacy).
	StatusAvailable Status = "available"
	// StatusReserved means the lead is exclusively offered to one realtor
	// with a deadline, and the realtor has not opened the offer yet.
	StatusReserved Status = "reserved"
	// StatusWaitingRealtorAccept means the realtor has opened the offer
	// but not answered. Treated identically to reserved by the expiry clock.
	StatusWaitingRealtorAccept Status = "waiting_realtor_accept"
	// StatusAccepted means the reservation holder took the lead.
	StatusAccepted Status = "accepted"
	// StatusCompleted is the terminal success state.
	StatusCompleted Status = "completed"
	// StatusExpired is the terminal failure state reached when
	// distribution attempts are exhausted.
	StatusExpired Status = "expired"
	// StatusCancelled is the terminal state set by external withdrawal.
	StatusCancelled Status = "cancelled"
)

var knownStatuses = map[Status]struct{}{
	StatusAvailable:            {},
	StatusReserved:             {},
	StatusWaitingRealtorAccept: {},
	StatusAccepted:             {},
	StatusCompleted:            {},
	StatusExpired:              {},
	StatusCancelled:            {},
}

// IsKnownStatus reports whether the value is part of the closed status set.
func IsKnownStatus(s Status) bool {
	_, ok := knownStatuses[s]
	return ok
}

// IsTerminal reports whether no further transitions can occur.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusExpired, StatusCancelled:
		return true
	case StatusAvailable, StatusReserved, StatusWaitingRealtorAccept, StatusAccepted:
		return false
	}
	return false
}

// HoldsReservation reports whether the status carries an active,
// deadline-bound reservation.
func (s Status) HoldsReservation() bool {
	return s == StatusReserved || s == StatusWaitingRealtorAccept
}

// RequiresRealtor reports whether a lead in this status must have a
// non-nil realtor assignment.
func (s Status) RequiresRealtor() bool {
	switch s {
	case StatusReserved, StatusWaitingRealtorAccept, StatusAccepted, StatusCompleted:
		return true
	case StatusAvailable, StatusExpired, StatusCancelled:
		return false
	}
	return false
}

// CanTransitionTo reports whether the state machine allows moving from s
// to next. The expiry clock and realtor actions both consult this table;
// a disallowed pair is either a caller error or a benign race loss,
// decided by the storage layer's conditional update.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusAvailable:
		return next == StatusReserved || next == StatusCancelled || next == StatusExpired
	case StatusReserved:
		return next == StatusWaitingRealtorAccept || next == StatusAccepted ||
			next == StatusAvailable || next == StatusExpired || next == StatusCancelled
	case StatusWaitingRealtorAccept:
		return next == StatusAccepted || next == StatusAvailable ||
			next == StatusExpired || next == StatusCancelled
	case StatusAccepted:
		return next == StatusCompleted || next == StatusCancelled
	case StatusCompleted, StatusExpired, StatusCancelled:
		return false
	}
	return false
}
