package domain

import (
	"time"

	"github.com/google/uuid"
)

// Lead is a deal record sitting in exactly one stage of one board.
type Lead struct {
	ID             uuid.UUID
	BoardID        uuid.UUID
	StageID        uuid.UUID
	Fields         map[string]any
	ValueCents     int64
	EnteredStageAt time.Time
}

// TransitionStatus tracks a move through the gate protocol.
type TransitionStatus string

const (
	TransitionPending        TransitionStatus = "pending"
	TransitionAwaitingReason TransitionStatus = "awaiting-reason"
	TransitionCommitted      TransitionStatus = "committed"
	TransitionRolledBack     TransitionStatus = "rolled-back"
)

// Transition is the ephemeral record of one requested move.
type Transition struct {
	BoardID     uuid.UUID
	LeadID      uuid.UUID
	FromStageID uuid.UUID
	ToStageID   uuid.UUID
	ToRole      Role
	RequestedAt time.Time
	Status      TransitionStatus
}

// ReasonInput is what a user supplies to release a gated transition.
// Either ReasonID or Text must be usable.
type ReasonInput struct {
	ReasonID *uuid.UUID
	Text     string
	Notes    string
}

// AppliedReason is the resolved outcome reason of a terminal transition.
type AppliedReason struct {
	Outcome  Role
	ReasonID *uuid.UUID
	Text     string
	Notes    string
}

// CommittedTransition is a transition cleared to be applied and persisted.
// Reason is set exactly when the destination is terminal.
type CommittedTransition struct {
	Transition
	Reason *AppliedReason
}

// OutcomeReason is a predefined reason a board offers for won or lost deals.
type OutcomeReason struct {
	ID           uuid.UUID
	BoardID      uuid.UUID
	AppliesTo    Role
	Text         string
	Active       bool
	DisplayOrder int
}

// History actions.
const (
	HistoryActionStageChange = "stage_change"
	HistoryActionWon         = "outcome_won"
	HistoryActionLost        = "outcome_lost"
)

// HistoryEntry is an append-only audit record of one committed transition.
type HistoryEntry struct {
	ID          uuid.UUID
	BoardID     uuid.UUID
	LeadID      uuid.UUID
	Action      string
	Description string
	ActorID     uuid.UUID
	OldStageID  uuid.UUID
	NewStageID  uuid.UUID
	Metadata    map[string]any
	Timestamp   time.Time
}

// TaskStatus is the lifecycle state of a follow-up task.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskCompleted TaskStatus = "completed"
)

// Task is a follow-up activity generated from a stage cadence.
type Task struct {
	ID             uuid.UUID
	BoardID        uuid.UUID
	LeadID         uuid.UUID
	StageID        uuid.UUID
	EnteredStageAt time.Time
	DayOffset      int
	StepOrder      int
	Channel        string
	ActionType     string
	Title          string
	Description    string
	Template       string
	DueAt          time.Time
	Status         TaskStatus
	CompletedAt    *time.Time
}

// TaskStats summarizes the tasks of a board.
type TaskStats struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Completed int `json:"completed"`
	Overdue   int `json:"overdue"`
}
