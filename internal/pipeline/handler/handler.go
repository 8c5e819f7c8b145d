package handler

import (
	"context"
	"net/http"
	"time"

	"pipeline_board_backend/internal/pipeline/board"
	"pipeline_board_backend/internal/pipeline/domain"
	"pipeline_board_backend/internal/pipeline/metrics"
	"pipeline_board_backend/internal/pipeline/reasons"
	"pipeline_board_backend/internal/pipeline/transport"
	"pipeline_board_backend/platform/httpkit"
	"pipeline_board_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// BoardEngine is the slice of the board engine the HTTP layer drives.
type BoardEngine interface {
	ListOrdered(ctx context.Context, boardID uuid.UUID) ([]domain.Stage, error)
	AddStage(ctx context.Context, boardID uuid.UUID, name, color string, cadence []domain.CadenceStep) (domain.Stage, error)
	UpdateStage(ctx context.Context, boardID, stageID uuid.UUID, name, color *string, cadence []domain.CadenceStep) (domain.Stage, error)
	RemoveStage(ctx context.Context, boardID, stageID uuid.UUID) error
	ReorderStages(ctx context.Context, boardID uuid.UUID, order []uuid.UUID) ([]domain.Stage, error)
	MembersOf(ctx context.Context, boardID, stageID uuid.UUID, sortKey string) ([]domain.Lead, error)
	MetricsFor(ctx context.Context, boardID uuid.UUID) (metrics.BoardMetrics, error)
	Reload(boardID uuid.UUID)

	Begin(ctx context.Context, boardID, leadID, actorID uuid.UUID) (board.SessionInfo, error)
	Hover(ctx context.Context, sessionID, candidate uuid.UUID) (board.HoverFeedback, error)
	Drop(ctx context.Context, sessionID, target uuid.UUID) (board.MoveResult, error)
	ResolveGate(ctx context.Context, sessionID uuid.UUID, in domain.ReasonInput) (board.MoveResult, error)
	Cancel(ctx context.Context, sessionID uuid.UUID)
	Session(sessionID uuid.UUID) (board.SessionInfo, bool)
	Move(ctx context.Context, boardID, leadID, target, actorID uuid.UUID, reason *domain.ReasonInput) (board.MoveResult, error)
}

// ReasonManager manages the predefined outcome reasons of a board.
type ReasonManager interface {
	List(ctx context.Context, boardID uuid.UUID, outcome *domain.Role, activeOnly bool) ([]domain.OutcomeReason, error)
	Create(ctx context.Context, boardID uuid.UUID, outcome domain.Role, text string) (domain.OutcomeReason, error)
	Update(ctx context.Context, boardID, reasonID uuid.UUID, text *string, active *bool) (domain.OutcomeReason, error)
	Reorder(ctx context.Context, boardID uuid.UUID, ids []uuid.UUID) error
	SeedDefaults(ctx context.Context, boardID uuid.UUID) (reasons.SeedResult, error)
}

// LeadRecords reads and updates the persisted history and tasks of leads.
type LeadRecords interface {
	ListLeadHistory(ctx context.Context, boardID, leadID uuid.UUID) ([]domain.HistoryEntry, error)
	ListLeadTasks(ctx context.Context, boardID, leadID uuid.UUID) ([]domain.Task, error)
	CompleteTask(ctx context.Context, boardID, taskID uuid.UUID, at time.Time) (domain.Task, error)
	DeleteTask(ctx context.Context, boardID, taskID uuid.UUID) error
	TaskStats(ctx context.Context, boardID uuid.UUID, now time.Time) (domain.TaskStats, error)
}

// Handler handles HTTP requests for pipeline boards.
type Handler struct {
	engine  BoardEngine
	reasons ReasonManager
	records LeadRecords
	val     *validator.Validator
	now     func() time.Time
}

const (
	msgInvalidRequest = "invalid request"
	msgInvalidBoardID = "invalid board id"
	msgInvalidStageID = "invalid stage id"
	msgInvalidLeadID  = "invalid lead id"
	msgInvalidTaskID  = "invalid task id"
	msgInvalidSession = "invalid session id"
	msgInvalidReason  = "invalid reason id"
	msgUnauthorized   = "unauthorized"
)

// New creates a new pipeline board handler.
func New(engine BoardEngine, reasonSvc ReasonManager, records LeadRecords, val *validator.Validator) *Handler {
	return &Handler{
		engine:  engine,
		reasons: reasonSvc,
		records: records,
		val:     val,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// RegisterRoutes mounts board routes on group, which is expected to be
// authenticated. mutate guards every state-changing route.
func (h *Handler) RegisterRoutes(group *gin.RouterGroup, mutate ...gin.HandlerFunc) {
	b := group.Group("/boards/:boardId")
	w := b.Group("")
	w.Use(mutate...)

	b.GET("/stages", h.ListStages)
	w.POST("/stages", h.CreateStage)
	w.PUT("/stages/order", h.ReorderStages)
	w.PATCH("/stages/:stageId", h.UpdateStage)
	w.DELETE("/stages/:stageId", h.DeleteStage)
	b.GET("/stages/:stageId/leads", h.ListStageLeads)
	b.GET("/metrics", h.GetMetrics)
	w.POST("/reload", h.ReloadBoard)

	w.POST("/drag", h.BeginDrag)
	b.GET("/drag/:sessionId", h.GetDrag)
	b.POST("/drag/:sessionId/hover", h.Hover)
	w.POST("/drag/:sessionId/drop", h.Drop)
	w.POST("/drag/:sessionId/reason", h.ResolveReason)
	w.DELETE("/drag/:sessionId", h.CancelDrag)

	w.POST("/leads/:leadId/move", h.MoveLead)
	b.GET("/leads/:leadId/history", h.ListLeadHistory)
	b.GET("/leads/:leadId/tasks", h.ListLeadTasks)

	b.GET("/tasks/stats", h.GetTaskStats)
	w.POST("/tasks/:taskId/complete", h.CompleteTask)
	w.DELETE("/tasks/:taskId", h.DeleteTask)

	b.GET("/reasons", h.ListReasons)
	w.POST("/reasons", h.CreateReason)
	w.PUT("/reasons/order", h.ReorderReasons)
	w.PATCH("/reasons/:reasonId", h.UpdateReason)
	w.POST("/reasons/defaults", h.SeedDefaultReasons)
}

// bind decodes and validates a JSON body. It writes the error response itself.
func (h *Handler) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.ValidationFailed(c, err)
		return false
	}
	return true
}

func paramID(c *gin.Context, name, msg string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msg, nil)
		return uuid.Nil, false
	}
	return id, true
}

func mustActor(c *gin.Context) (uuid.UUID, bool) {
	id, ok := httpkit.ActorID(c)
	if !ok {
		httpkit.Error(c, http.StatusUnauthorized, msgUnauthorized, nil)
		return uuid.Nil, false
	}
	return id, true
}

func moveResponse(res board.MoveResult) transport.MoveResponse {
	out := transport.MoveResponse{
		Status:      string(res.Status),
		LeadID:      res.Transition.LeadID,
		FromStageID: res.Transition.FromStageID,
		ToStageID:   res.Transition.ToStageID,
		ToRole:      res.Transition.ToRole,
	}
	if res.Status != board.DropCommitted {
		return out
	}
	lead := transport.FromLead(res.Lead)
	out.Lead = &lead
	if res.Reason != nil {
		out.Reason = &transport.AppliedReasonResponse{
			Outcome:  res.Reason.Outcome,
			ReasonID: res.Reason.ReasonID,
			Text:     res.Reason.Text,
			Notes:    res.Reason.Notes,
		}
	}
	if res.History != nil {
		entry := transport.FromHistoryEntry(*res.History)
		out.History = &entry
	}
	if len(res.Tasks) > 0 {
		out.Tasks = transport.FromTasks(res.Tasks).Items
	}
	m := res.Metrics
	out.Metrics = &m
	return out
}
