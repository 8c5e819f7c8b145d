// Package ports defines the interfaces the pipeline engine requires from
// storage and scheduling collaborators. The engine only knows about the data
// it needs, in the shape it wants; internal/pipeline/repository implements
// them on PostgreSQL.
package ports

import (
	"context"
	"time"

	"pipeline_board_backend/internal/pipeline/domain"

	"github.com/google/uuid"
)

// BoardData is the raw state of one board as stored. Stages are normalized by
// the engine on mount.
type BoardData struct {
	Stages []domain.RawStage
	Leads  []domain.Lead
}

// MoveRecord is everything a committed transition writes in one unit.
type MoveRecord struct {
	BoardID        uuid.UUID
	LeadID         uuid.UUID
	FromStageID    uuid.UUID
	ToStageID      uuid.UUID
	EnteredStageAt time.Time
	ActorID        uuid.UUID
	// Outcome is set for moves into a won or lost stage and is stored in the
	// same write as the stage change.
	Outcome *domain.AppliedReason
}

// Persistence is the authoritative board store.
type Persistence interface {
	// LoadBoard returns domain.ErrBoardNotFound for unknown boards.
	LoadBoard(ctx context.Context, boardID uuid.UUID) (BoardData, error)
	PersistMove(ctx context.Context, rec MoveRecord) error
	// SaveStages replaces the stage list of a board. Stages absent from the
	// list are deleted.
	SaveStages(ctx context.Context, boardID uuid.UUID, stages []domain.RawStage) error
}

// ReasonLookup lists the predefined outcome reasons of a board.
type ReasonLookup interface {
	ListReasons(ctx context.Context, boardID uuid.UUID, outcome domain.Role) ([]domain.OutcomeReason, error)
}

// AuditSink stores history entries. Failures never undo a committed move.
type AuditSink interface {
	Append(ctx context.Context, entry domain.HistoryEntry) error
}

// TaskStore stores cadence tasks.
type TaskStore interface {
	// CreateTasks inserts tasks and returns the ones actually written. Rows
	// that collide with an existing (lead, stage, entered_at, step) are skipped.
	CreateTasks(ctx context.Context, tasks []domain.Task) ([]domain.Task, error)
	FindExisting(ctx context.Context, leadID, stageID uuid.UUID, enteredAt time.Time) ([]domain.Task, error)
}

// ReminderScheduler enqueues a reminder that fires when a task falls due.
type ReminderScheduler interface {
	ScheduleTaskReminder(ctx context.Context, task domain.Task) error
}
