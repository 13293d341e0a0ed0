// Package transport defines the request and response shapes of the
// queue HTTP API.
package transport

import (
	"time"

	"leadbroker_backend/internal/queue/repository"
	"leadbroker_backend/internal/queue/service"

	"github.com/google/uuid"
)

// AdjustScoreRequest is the admin payload for a manual score delta.
type AdjustScoreRequest struct {
	Delta   int64  `json:"delta" validate:"required,ne=0"`
	Message string `json:"message" validate:"required,max=500"`
}

// GrantBonusLeadsRequest raises a realtor's concurrent lead capacity.
type GrantBonusLeadsRequest struct {
	Count int `json:"count" validate:"required,min=1,max=10"`
}

// EntryResponse is a realtor's own view of their queue membership.
type EntryResponse struct {
	RealtorID     uuid.UUID `json:"realtorId"`
	Position      int       `json:"position"`
	Score         int64     `json:"score"`
	Status        string    `json:"status"`
	ActiveLeads   int       `json:"activeLeads"`
	BonusLeads    int       `json:"bonusLeads"`
	TotalAccepted int       `json:"totalAccepted"`
	TotalRejected int       `json:"totalRejected"`
	TotalExpired  int       `json:"totalExpired"`
	JoinedAt      time.Time `json:"joinedAt"`
}

func ToEntryResponse(e repository.Entry) EntryResponse {
	return EntryResponse{
		RealtorID:     e.RealtorID,
		Position:      e.Position,
		Score:         e.Score,
		Status:        string(e.Status),
		ActiveLeads:   e.ActiveLeads,
		BonusLeads:    e.BonusLeads,
		TotalAccepted: e.TotalAccepted,
		TotalRejected: e.TotalRejected,
		TotalExpired:  e.TotalExpired,
		JoinedAt:      e.CreatedAt,
	}
}

// ScoreEventResponse is one ledger record.
type ScoreEventResponse struct {
	ID        uuid.UUID `json:"id"`
	Delta     int64     `json:"delta"`
	Reason    string    `json:"reason"`
	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func ToScoreEventResponses(events []repository.ScoreEvent) []ScoreEventResponse {
	out := make([]ScoreEventResponse, 0, len(events))
	for _, ev := range events {
		out = append(out, ScoreEventResponse{
			ID:        ev.ID,
			Delta:     ev.Delta,
			Reason:    ev.Reason,
			Message:   ev.Message,
			CreatedAt: ev.CreatedAt,
		})
	}
	return out
}

// StatsResponse is the admin queue overview.
type StatsResponse struct {
	ActiveRealtors   int            `json:"activeRealtors"`
	InactiveRealtors int            `json:"inactiveRealtors"`
	TotalActiveLeads int            `json:"totalActiveLeads"`
	LeadsByStatus    map[string]int `json:"leadsByStatus"`
}

func ToStatsResponse(s service.QueueStats) StatsResponse {
	return StatsResponse{
		ActiveRealtors:   s.ActiveRealtors,
		InactiveRealtors: s.InactiveRealtors,
		TotalActiveLeads: s.TotalActiveLeads,
		LeadsByStatus:    s.LeadsByStatus,
	}
}
