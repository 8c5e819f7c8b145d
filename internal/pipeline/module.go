// Package pipeline provides the pipeline board bounded context module.
// This file wires the engine, its collaborators and the HTTP routes.
package pipeline

import (
	"pipeline_board_backend/internal/events"
	apphttp "pipeline_board_backend/internal/http"
	"pipeline_board_backend/internal/pipeline/board"
	"pipeline_board_backend/internal/pipeline/cadence"
	"pipeline_board_backend/internal/pipeline/handler"
	"pipeline_board_backend/internal/pipeline/history"
	"pipeline_board_backend/internal/pipeline/ports"
	"pipeline_board_backend/internal/pipeline/reasons"
	"pipeline_board_backend/internal/pipeline/repository"
	"pipeline_board_backend/internal/pipeline/telemetry"
	"pipeline_board_backend/platform/config"
	"pipeline_board_backend/platform/logger"
	"pipeline_board_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the pipeline board bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	engine  *board.Engine
	repo    *repository.Repository
	reasons *reasons.Service
}

// NewModule creates and initializes the pipeline module. lock may be nil for
// the in-process drag lock; reminders may be nil when no scheduler is configured.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, lock board.SessionLock, reminders ports.ReminderScheduler, val *validator.Validator, cfg config.BoardConfig, log *logger.Logger) (*Module, error) {
	repo := repository.New(pool)

	reasonSvc, err := reasons.New(repo)
	if err != nil {
		return nil, err
	}

	var cadenceOpts []cadence.Option
	if reminders != nil {
		cadenceOpts = append(cadenceOpts, cadence.WithReminders(reminders))
	}

	engine := board.NewEngine(board.EngineDeps{
		Store:     repo,
		Reasons:   repo,
		History:   history.New(repo, log, cfg.GetHistoryDedupWindow()),
		Cadence:   cadence.New(repo, log, cadenceOpts...),
		Lock:      lock,
		Bus:       eventBus,
		Log:       log,
		Validator: val,
	}, board.EngineOptions{
		SessionTTL: cfg.GetDragSessionTTL(),
		MemberSort: cfg.GetMemberSort(),
	})

	telemetry.Subscribe(eventBus, telemetry.NewMetrics(), log)

	return &Module{
		handler: handler.New(engine, reasonSvc, repo, val),
		engine:  engine,
		repo:    repo,
		reasons: reasonSvc,
	}, nil
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "pipeline"
}

// Engine returns the board engine for background jobs.
func (m *Module) Engine() *board.Engine {
	return m.engine
}

// Repository returns the repository for direct access if needed.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// Reasons returns the outcome reason service.
func (m *Module) Reasons() *reasons.Service {
	return m.reasons
}

// RegisterRoutes mounts board routes on the authenticated group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	var mutate []gin.HandlerFunc
	if ctx.MutationLimiter != nil {
		mutate = append(mutate, ctx.MutationLimiter)
	}
	m.handler.RegisterRoutes(ctx.Protected, mutate...)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
