// Package queue provides the realtor queue bounded context module.
package queue

import (
	apphttp "leadbroker_backend/internal/http"
	"leadbroker_backend/internal/queue/handler"
	"leadbroker_backend/internal/queue/repository"
	"leadbroker_backend/internal/queue/service"
	"leadbroker_backend/platform/config"
	"leadbroker_backend/platform/events"
	"leadbroker_backend/platform/logger"
	"leadbroker_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the queue bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the queue module.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, val *validator.Validator, cfg config.DistributionConfig, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, cfg, eventBus)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "queue"
}

// Service returns the queue service. The leads module consumes it as
// its RealtorQueue port, and the scheduler drives recalculation and
// retention through it.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts queue routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/queue"))
	m.handler.RegisterAdminRoutes(ctx.Admin, ctx.AdminRateLimiter.RateLimit())
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
