package domain

import "testing"

func TestTerminalStatusesAllowNoTransitions(t *testing.T) {
	terminals := []Status{StatusCompleted, StatusExpired, StatusCancelled}
	all := []Status{
		StatusAvailable, StatusReserved, StatusWaitingRealtorAccept,
		StatusAccepted, StatusCompleted, StatusExpired, StatusCancelled,
	}

	for _, from := range terminals {
		if !from.IsTerminal() {
			t.Fatalf("expected %s to be terminal", from)
		}
		for _, to := range all {
			if from.CanTransitionTo(to) {
				t.Fatalf("terminal status %s must not transition to %s", from, to)
			}
		}
	}
}

func TestReservationStatusesShareExpiryBehavior(t *testing.T) {
	for _, s := range []Status{StatusReserved, StatusWaitingRealtorAccept} {
		if !s.HoldsReservation() {
			t.Fatalf("expected %s to hold a reservation", s)
		}
		if !s.CanTransitionTo(StatusAvailable) {
			t.Fatalf("expected %s to release back to available", s)
		}
		if !s.CanTransitionTo(StatusExpired) {
			t.Fatalf("expected %s to allow terminal expiry", s)
		}
		if !s.CanTransitionTo(StatusAccepted) {
			t.Fatalf("expected %s to allow accept", s)
		}
	}

	if StatusAvailable.HoldsReservation() || StatusAccepted.HoldsReservation() {
		t.Fatal("only reserved and waiting statuses carry a deadline")
	}
}

func TestAcceptedOnlyCompletesOrCancels(t *testing.T) {
	if !StatusAccepted.CanTransitionTo(StatusCompleted) {
		t.Fatal("accepted must allow completion")
	}
	if !StatusAccepted.CanTransitionTo(StatusCancelled) {
		t.Fatal("accepted must allow external cancellation")
	}
	if StatusAccepted.CanTransitionTo(StatusAvailable) {
		t.Fatal("accepted must not release back to available")
	}
	if StatusAccepted.CanTransitionTo(StatusExpired) {
		t.Fatal("accepted leads are not subject to the expiry clock")
	}
}

func TestRequiresRealtorMatchesReservationInvariant(t *testing.T) {
	withRealtor := []Status{StatusReserved, StatusWaitingRealtorAccept, StatusAccepted, StatusCompleted}
	withoutRealtor := []Status{StatusAvailable, StatusExpired, StatusCancelled}

	for _, s := range withRealtor {
		if !s.RequiresRealtor() {
			t.Fatalf("expected %s to require a realtor assignment", s)
		}
	}
	for _, s := range withoutRealtor {
		if s.RequiresRealtor() {
			t.Fatalf("expected %s to carry no realtor assignment", s)
		}
	}
}

func TestKnownStatusAndReasonSets(t *testing.T) {
	if !IsKnownStatus(StatusWaitingRealtorAccept) {
		t.Fatal("waiting_realtor_accept must be a known status")
	}
	if IsKnownStatus(Status("on_hold")) {
		t.Fatal("on_hold is not part of the closed status set")
	}
	if !IsKnownReason(ReasonAdminAdjust) {
		t.Fatal("ADMIN_ADJUST must be a known reason")
	}
	if IsKnownReason(ScoreReason("LEAD_LOST")) {
		t.Fatal("LEAD_LOST is not part of the closed reason set")
	}
}

func TestDeltaForOutcomes(t *testing.T) {
	cases := []struct {
		reason ScoreReason
		want   int64
	}{
		{ReasonLeadAccepted, DeltaAccepted},
		{ReasonLeadRejected, DeltaRejected},
		{ReasonLeadExpired, DeltaExpired},
		{ReasonLeadCompleted, DeltaCompleted},
		{ReasonAdminAdjust, 0},
	}
	for _, tc := range cases {
		if got := DeltaFor(tc.reason); got != tc.want {
			t.Fatalf("DeltaFor(%s) = %d, want %d", tc.reason, got, tc.want)
		}
	}

	if DeltaRejected >= 0 || DeltaExpired >= 0 {
		t.Fatal("reject and expiry deltas must be negative")
	}
	if DeltaExpired >= DeltaRejected {
		t.Fatal("letting an offer expire must cost more than rejecting it")
	}
}
