package handler

import (
	"net/http"
	"strconv"

	"leadbroker_backend/internal/queue/service"
	"leadbroker_backend/internal/queue/transport"
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

// RegisterRoutes mounts the realtor-facing queue routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/join", h.Join)
	rg.POST("/deactivate", h.Deactivate)
	rg.POST("/reactivate", h.Reactivate)
	rg.GET("/me", h.Me)
	rg.GET("/me/ledger", h.Ledger)
}

// RegisterAdminRoutes mounts the admin queue routes.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup, rateLimit gin.HandlerFunc) {
	rg.GET("/queue/stats", h.Stats)
	rg.GET("/queue/:realtorId/ledger", h.LedgerByRealtor)
	rg.POST("/queue/:realtorId/score", rateLimit, h.AdjustScore)
	rg.POST("/queue/:realtorId/bonus-leads", rateLimit, h.GrantBonusLeads)
}

func (h *Handler) Join(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	entry, err := h.svc.Join(c.Request.Context(), identity.RealtorID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToEntryResponse(entry))
}

func (h *Handler) Deactivate(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	if err := h.svc.Deactivate(c.Request.Context(), identity.RealtorID()); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) Reactivate(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	if err := h.svc.Reactivate(c.Request.Context(), identity.RealtorID()); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) Me(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	entry, err := h.svc.GetEntry(c.Request.Context(), identity.RealtorID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToEntryResponse(entry))
}

func (h *Handler) Ledger(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	h.ledgerFor(c, identity.RealtorID())
}

func (h *Handler) LedgerByRealtor(c *gin.Context) {
	realtorID, ok := parseRealtorID(c)
	if !ok {
		return
	}
	h.ledgerFor(c, realtorID)
}

func (h *Handler) ledgerFor(c *gin.Context, realtorID uuid.UUID) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	events, err := h.svc.Ledger(c.Request.Context(), realtorID, limit)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToScoreEventResponses(events))
}

func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.svc.Stats(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToStatsResponse(stats))
}

func (h *Handler) AdjustScore(c *gin.Context) {
	realtorID, ok := parseRealtorID(c)
	if !ok {
		return
	}

	var req transport.AdjustScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	entry, err := h.svc.AdjustScore(c.Request.Context(), realtorID, req.Delta, req.Message)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToEntryResponse(entry))
}

func (h *Handler) GrantBonusLeads(c *gin.Context) {
	realtorID, ok := parseRealtorID(c)
	if !ok {
		return
	}

	var req transport.GrantBonusLeadsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	if err := h.svc.GrantBonusLeads(c.Request.Context(), realtorID, req.Count); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}

func parseRealtorID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("realtorId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return uuid.Nil, false
	}
	return id, true
}
