package handler

import (
	"context"
	"net/http"
	"strconv"

	"leadbroker_backend/internal/leads/repository"
	"leadbroker_backend/internal/leads/service"
	"leadbroker_backend/internal/leads/transport"
	"leadbroker_backend/platform/httpkit"
	"leadbroker_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes mounts the authenticated lead routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/mine", h.ListMine)
	rg.GET("/mural", h.Mural)
	rg.GET("/:id", h.GetByID)
	rg.POST("/:id/candidate", h.Candidate)
	rg.POST("/:id/view", h.MarkViewed)
	rg.POST("/:id/accept", h.Accept)
	rg.POST("/:id/reject", h.Reject)
	rg.POST("/:id/complete", h.Complete)
	rg.PATCH("/:id/stage", h.UpdateStage)
}

// RegisterAdminRoutes mounts intake and cancellation for admins and
// trusted intake collaborators.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.POST("/leads", h.Create)
	rg.POST("/leads/:id/cancel", h.Cancel)
	rg.GET("/leads/:id/candidates", h.ListCandidates)
	rg.POST("/leads/:id/resolve", h.Resolve)
}

func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	lead, err := h.svc.Create(c.Request.Context(), req.ToInput())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.ToLeadResponse(lead))
}

func (h *Handler) GetByID(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	leadID, ok := parseID(c)
	if !ok {
		return
	}

	lead, err := h.svc.Get(c.Request.Context(), leadID)
	if httpkit.HandleError(c, err) {
		return
	}

	// Only the holder or an admin sees contact details.
	holder := lead.RealtorID != nil && *lead.RealtorID == identity.RealtorID()
	if !holder && !identity.HasRole("admin") {
		httpkit.Error(c, http.StatusForbidden, "forbidden", nil)
		return
	}
	httpkit.OK(c, transport.ToLeadResponse(lead))
}

func (h *Handler) ListMine(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	leads, err := h.svc.ListMine(c.Request.Context(), identity.RealtorID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToLeadResponses(leads))
}

func (h *Handler) Mural(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	leads, err := h.svc.Mural(c.Request.Context(), limit)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToMuralResponses(leads))
}

func (h *Handler) Candidate(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	leadID, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.svc.CandidateToLead(c.Request.Context(), leadID, identity.RealtorID()); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ListCandidates(c *gin.Context) {
	leadID, ok := parseID(c)
	if !ok {
		return
	}

	candidates, err := h.svc.Candidates(c.Request.Context(), leadID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToCandidacyResponses(candidates))
}

func (h *Handler) Resolve(c *gin.Context) {
	leadID, ok := parseID(c)
	if !ok {
		return
	}

	lead, err := h.svc.ResolvePriorityCandidate(c.Request.Context(), leadID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToLeadResponse(lead))
}

func (h *Handler) MarkViewed(c *gin.Context) {
	h.transition(c, h.svc.MarkViewed)
}

func (h *Handler) Accept(c *gin.Context) {
	h.transition(c, h.svc.Accept)
}

func (h *Handler) Reject(c *gin.Context) {
	h.transition(c, h.svc.Reject)
}

func (h *Handler) Complete(c *gin.Context) {
	h.transition(c, h.svc.Complete)
}

func (h *Handler) UpdateStage(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	leadID, ok := parseID(c)
	if !ok {
		return
	}

	var req transport.UpdatePipelineStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	lead, err := h.svc.SetPipelineStage(c.Request.Context(), leadID, identity.RealtorID(), req.Stage)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToLeadResponse(lead))
}

func (h *Handler) Cancel(c *gin.Context) {
	leadID, ok := parseID(c)
	if !ok {
		return
	}

	lead, err := h.svc.Cancel(c.Request.Context(), leadID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToLeadResponse(lead))
}

// transition factors the shared shape of the lifecycle endpoints:
// authenticated caller, lead id in the path, lead back in the body.
func (h *Handler) transition(c *gin.Context, op func(ctx context.Context, leadID, realtorID uuid.UUID) (repository.Lead, error)) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	leadID, ok := parseID(c)
	if !ok {
		return
	}

	lead, err := op(c.Request.Context(), leadID, identity.RealtorID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToLeadResponse(lead))
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return uuid.Nil, false
	}
	return id, true
}
