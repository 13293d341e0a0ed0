// Package leads provides the lead distribution bounded context module.
// This file defines the module that encapsulates all leads setup and route registration.
package leads

import (
	apphttp "leadbroker_backend/internal/http"
	"leadbroker_backend/internal/leads/handler"
	"leadbroker_backend/internal/leads/repository"
	"leadbroker_backend/internal/leads/service"
	"leadbroker_backend/platform/config"
	"leadbroker_backend/platform/events"
	"leadbroker_backend/platform/logger"
	"leadbroker_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repository
}

// NewModule creates and initializes the leads module. The queue is
// injected rather than constructed here: distribution is a consumer of
// the queue context, never its owner.
func NewModule(pool *pgxpool.Pool, queue service.RealtorQueue, eventBus events.Bus, val *validator.Validator, cfg config.DistributionConfig, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, queue, cfg, log, eventBus)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// Service returns the lead service for the scheduler and other
// composition-root wiring.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the lead repository for cross-module adapters.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes mounts leads routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/leads"))
	m.handler.RegisterAdminRoutes(ctx.Admin)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
