package repository

import (
	"context"
	"errors"
	"time"

	"pipeline_board_backend/internal/pipeline/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const taskColumns = `id, board_id, lead_id, stage_id, entered_stage_at, day_offset, step_order, channel,
	action_type, title, description, template, due_at, status, completed_at`

func scanTask(s rowScanner) (domain.Task, error) {
	var t domain.Task
	var status string
	err := s.Scan(
		&t.ID, &t.BoardID, &t.LeadID, &t.StageID, &t.EnteredStageAt, &t.DayOffset, &t.StepOrder, &t.Channel,
		&t.ActionType, &t.Title, &t.Description, &t.Template, &t.DueAt, &status, &t.CompletedAt,
	)
	t.Status = domain.TaskStatus(status)
	return t, err
}

func collectTasks(rows pgx.Rows) ([]domain.Task, error) {
	defer rows.Close()
	tasks := make([]domain.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return tasks, nil
}

// CreateTasks inserts tasks in one batch. Tasks that collide with an existing
// (lead, stage, entered_stage_at, step) are skipped and left out of the result.
func (r *Repository) CreateTasks(ctx context.Context, tasks []domain.Task) ([]domain.Task, error) {
	if len(tasks) == 0 {
		return nil, nil
	}
	batch := &pgx.Batch{}
	for _, t := range tasks {
		batch.Queue(`
			INSERT INTO lead_tasks (
				id, board_id, lead_id, stage_id, entered_stage_at, day_offset, step_order, channel,
				action_type, title, description, template, due_at, status
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
			ON CONFLICT (lead_id, stage_id, entered_stage_at, day_offset, channel, step_order) DO NOTHING
			RETURNING id
		`, t.ID, t.BoardID, t.LeadID, t.StageID, t.EnteredStageAt, t.DayOffset, t.StepOrder, t.Channel,
			t.ActionType, t.Title, t.Description, t.Template, t.DueAt, string(t.Status))
	}
	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	created := make([]domain.Task, 0, len(tasks))
	for _, t := range tasks {
		var id uuid.UUID
		err := results.QueryRow().Scan(&id)
		if errors.Is(err, pgx.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, err
		}
		created = append(created, t)
	}
	return created, nil
}

// FindExisting lists the tasks of one stage entry.
func (r *Repository) FindExisting(ctx context.Context, leadID, stageID uuid.UUID, enteredAt time.Time) ([]domain.Task, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+taskColumns+`
		FROM lead_tasks
		WHERE lead_id = $1 AND stage_id = $2 AND entered_stage_at = $3
		ORDER BY day_offset, step_order
	`, leadID, stageID, enteredAt)
	if err != nil {
		return nil, err
	}
	return collectTasks(rows)
}

// ListLeadTasks lists a lead's tasks by due date.
func (r *Repository) ListLeadTasks(ctx context.Context, boardID, leadID uuid.UUID) ([]domain.Task, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+taskColumns+`
		FROM lead_tasks
		WHERE board_id = $1 AND lead_id = $2
		ORDER BY due_at ASC, step_order ASC
	`, boardID, leadID)
	if err != nil {
		return nil, err
	}
	return collectTasks(rows)
}

// GetTask returns one task.
func (r *Repository) GetTask(ctx context.Context, taskID uuid.UUID) (domain.Task, error) {
	t, err := scanTask(r.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM lead_tasks WHERE id = $1`, taskID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Task{}, domain.ErrTaskNotFound
	}
	return t, err
}

// CompleteTask marks a task completed. Completing twice keeps the first time.
func (r *Repository) CompleteTask(ctx context.Context, boardID, taskID uuid.UUID, at time.Time) (domain.Task, error) {
	t, err := scanTask(r.pool.QueryRow(ctx, `
		UPDATE lead_tasks
		SET status = 'completed', completed_at = COALESCE(completed_at, $3)
		WHERE id = $1 AND board_id = $2
		RETURNING `+taskColumns,
		taskID, boardID, at))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Task{}, domain.ErrTaskNotFound
	}
	return t, err
}

// DeleteTask removes a task.
func (r *Repository) DeleteTask(ctx context.Context, boardID, taskID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM lead_tasks WHERE id = $1 AND board_id = $2`, taskID, boardID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

// TaskStats counts a board's tasks. Overdue tasks are pending tasks due before now.
func (r *Repository) TaskStats(ctx context.Context, boardID uuid.UUID, now time.Time) (domain.TaskStats, error) {
	var s domain.TaskStats
	err := r.pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'completed'),
			COUNT(*) FILTER (WHERE status = 'pending' AND due_at < $2)
		FROM lead_tasks
		WHERE board_id = $1
	`, boardID, now).Scan(&s.Total, &s.Pending, &s.Completed, &s.Overdue)
	return s, err
}
