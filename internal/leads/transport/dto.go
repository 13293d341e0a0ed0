// Package transport defines the request and response shapes of the
// leads HTTP API.
package transport

import (
	"time"

	"leadbroker_backend/internal/leads/repository"
	"leadbroker_backend/internal/leads/service"

	"github.com/google/uuid"
)

// CreateLeadRequest is the intake payload. Setting realtorId makes the
// lead direct: it bypasses the queue and is accepted for that realtor.
type CreateLeadRequest struct {
	PropertyID   uuid.UUID  `json:"propertyId" validate:"required"`
	ContactName  string     `json:"contactName" validate:"required,max=200"`
	ContactEmail string     `json:"contactEmail" validate:"required,email,max=254"`
	ContactPhone string     `json:"contactPhone" validate:"required,max=32"`
	RealtorID    *uuid.UUID `json:"realtorId"`
	MuralVisible *bool      `json:"muralVisible"`
}

// ToInput converts the request into the service input. Mural
// visibility defaults to true for distributed leads.
func (r CreateLeadRequest) ToInput() service.CreateLeadInput {
	muralVisible := true
	if r.MuralVisible != nil {
		muralVisible = *r.MuralVisible
	}
	return service.CreateLeadInput{
		PropertyID:   r.PropertyID,
		ContactName:  r.ContactName,
		ContactEmail: r.ContactEmail,
		ContactPhone: r.ContactPhone,
		RealtorID:    r.RealtorID,
		MuralVisible: muralVisible,
	}
}

// UpdatePipelineStageRequest changes the workflow annotation of an
// accepted lead.
type UpdatePipelineStageRequest struct {
	Stage string `json:"stage" validate:"required,max=64"`
}

// LeadResponse is the full lead view for its holder and for admins.
type LeadResponse struct {
	ID                   uuid.UUID  `json:"id"`
	PropertyID           uuid.UUID  `json:"propertyId"`
	ContactName          string     `json:"contactName"`
	ContactEmail         string     `json:"contactEmail"`
	ContactPhone         string     `json:"contactPhone"`
	Status               string     `json:"status"`
	PipelineStage        string     `json:"pipelineStage"`
	RealtorID            *uuid.UUID `json:"realtorId,omitempty"`
	IsDirect             bool       `json:"isDirect"`
	MuralVisible         bool       `json:"muralVisible"`
	DistributionAttempts int        `json:"distributionAttempts"`
	CreatedAt            time.Time  `json:"createdAt"`
	RespondedAt          *time.Time `json:"respondedAt,omitempty"`
	ExpiresAt            *time.Time `json:"expiresAt,omitempty"`
	CompletedAt          *time.Time `json:"completedAt,omitempty"`
}

func ToLeadResponse(l repository.Lead) LeadResponse {
	return LeadResponse{
		ID:                   l.ID,
		PropertyID:           l.PropertyID,
		ContactName:          l.ContactName,
		ContactEmail:         l.ContactEmail,
		ContactPhone:         l.ContactPhone,
		Status:               string(l.Status),
		PipelineStage:        l.PipelineStage,
		RealtorID:            l.RealtorID,
		IsDirect:             l.IsDirect,
		MuralVisible:         l.MuralVisible,
		DistributionAttempts: l.DistributionAttempts,
		CreatedAt:            l.CreatedAt,
		RespondedAt:          l.RespondedAt,
		ExpiresAt:            l.ExpiresAt,
		CompletedAt:          l.CompletedAt,
	}
}

func ToLeadResponses(leads []repository.Lead) []LeadResponse {
	out := make([]LeadResponse, 0, len(leads))
	for _, l := range leads {
		out = append(out, ToLeadResponse(l))
	}
	return out
}

// CandidacyResponse is a single mural candidacy, listed for the
// resolving admin in queue order.
type CandidacyResponse struct {
	LeadID    uuid.UUID `json:"leadId"`
	RealtorID uuid.UUID `json:"realtorId"`
	CreatedAt time.Time `json:"createdAt"`
}

func ToCandidacyResponses(candidates []repository.Candidacy) []CandidacyResponse {
	out := make([]CandidacyResponse, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, CandidacyResponse{LeadID: c.LeadID, RealtorID: c.RealtorID, CreatedAt: c.CreatedAt})
	}
	return out
}

// MuralLeadResponse is the public board view. Contact details are
// withheld until a realtor actually holds the lead.
type MuralLeadResponse struct {
	ID         uuid.UUID `json:"id"`
	PropertyID uuid.UUID `json:"propertyId"`
	CreatedAt  time.Time `json:"createdAt"`
}

func ToMuralResponses(leads []repository.Lead) []MuralLeadResponse {
	out := make([]MuralLeadResponse, 0, len(leads))
	for _, l := range leads {
		out = append(out, MuralLeadResponse{ID: l.ID, PropertyID: l.PropertyID, CreatedAt: l.CreatedAt})
	}
	return out
}
