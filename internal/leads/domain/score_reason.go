package domain

// ScoreReason tags every score delta written to the ledger.
type ScoreReason string

const (
	ReasonLeadAccepted  ScoreReason = "LEAD_ACCEPTED"
	ReasonLeadRejected  ScoreReason = "LEAD_REJECTED"
	ReasonLeadExpired   ScoreReason = "LEAD_EXPIRED"
	ReasonLeadCompleted ScoreReason = "LEAD_COMPLETED"
	ReasonAdminAdjust   ScoreReason = "ADMIN_ADJUST"
)

// Default deltas applied by the feedback loop. Admin adjustments carry
// their own delta and are not listed here.
const (
	DeltaAccepted  int64 = 10
	DeltaRejected  int64 = -5
	DeltaExpired   int64 = -15
	DeltaCompleted int64 = 25
)

var knownReasons = map[ScoreReason]struct{}{
	ReasonLeadAccepted:  {},
	ReasonLeadRejected:  {},
	ReasonLeadExpired:   {},
	ReasonLeadCompleted: {},
	ReasonAdminAdjust:   {},
}

// IsKnownReason reports whether the value is part of the closed reason set.
func IsKnownReason(r ScoreReason) bool {
	_, ok := knownReasons[r]
	return ok
}

// DeltaFor returns the default delta for an outcome reason. Returns 0 for
// ADMIN_ADJUST and unknown reasons.
func DeltaFor(r ScoreReason) int64 {
	switch r {
	case ReasonLeadAccepted:
		return DeltaAccepted
	case ReasonLeadRejected:
		return DeltaRejected
	case ReasonLeadExpired:
		return DeltaExpired
	case ReasonLeadCompleted:
		return DeltaCompleted
	case ReasonAdminAdjust:
		return 0
	}
	return 0
}
