// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"pipeline_board_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Pipeline Board Events
// =============================================================================

// LeadStageChanged is published after a move has been persisted.
type LeadStageChanged struct {
	BaseEvent
	BoardID     uuid.UUID `json:"boardId"`
	LeadID      uuid.UUID `json:"leadId"`
	FromStageID uuid.UUID `json:"fromStageId"`
	ToStageID   uuid.UUID `json:"toStageId"`
	ToRole      string    `json:"toRole"`
	ActorID     uuid.UUID `json:"actorId"`
}

func (e LeadStageChanged) EventName() string { return "pipeline.lead.stage_changed" }

// LeadOutcomeRecorded is published when a lead is persisted into won or lost.
type LeadOutcomeRecorded struct {
	BaseEvent
	BoardID    uuid.UUID  `json:"boardId"`
	LeadID     uuid.UUID  `json:"leadId"`
	Outcome    string     `json:"outcome"`
	ReasonID   *uuid.UUID `json:"reasonId,omitempty"`
	ReasonText string     `json:"reasonText"`
	ValueCents int64      `json:"valueCents"`
}

func (e LeadOutcomeRecorded) EventName() string { return "pipeline.lead.outcome_recorded" }

// TransitionRolledBack is published when a move was undone because it could
// not be persisted.
type TransitionRolledBack struct {
	BaseEvent
	BoardID   uuid.UUID `json:"boardId"`
	LeadID    uuid.UUID `json:"leadId"`
	ToStageID uuid.UUID `json:"toStageId"`
}

func (e TransitionRolledBack) EventName() string { return "pipeline.transition.rolled_back" }

// CadenceTasksScheduled is published when a stage entry created follow-up tasks.
type CadenceTasksScheduled struct {
	BaseEvent
	BoardID uuid.UUID `json:"boardId"`
	LeadID  uuid.UUID `json:"leadId"`
	StageID uuid.UUID `json:"stageId"`
	Count   int       `json:"count"`
}

func (e CadenceTasksScheduled) EventName() string { return "pipeline.cadence.tasks_scheduled" }

// DragSessionExpired is published when an idle drag session is reaped.
type DragSessionExpired struct {
	BaseEvent
	BoardID   uuid.UUID `json:"boardId"`
	SessionID uuid.UUID `json:"sessionId"`
}

func (e DragSessionExpired) EventName() string { return "pipeline.drag.session_expired" }

// TaskDue is published by the scheduler worker when a cadence task falls due.
type TaskDue struct {
	BaseEvent
	TaskID  uuid.UUID `json:"taskId"`
	BoardID uuid.UUID `json:"boardId"`
	LeadID  uuid.UUID `json:"leadId"`
	Channel string    `json:"channel"`
	Title   string    `json:"title"`
	DueAt   time.Time `json:"dueAt"`
}

func (e TaskDue) EventName() string { return "pipeline.task.due" }
