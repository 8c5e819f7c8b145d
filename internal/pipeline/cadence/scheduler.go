// Package cadence turns a stage's cadence definition into follow-up tasks
// when a lead enters the stage.
package cadence

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"pipeline_board_backend/internal/pipeline/domain"
	"pipeline_board_backend/internal/pipeline/ports"
	"pipeline_board_backend/platform/logger"

	"github.com/google/uuid"
)

// ErrDuplicateTask is returned by task stores that reject a task already
// present for its (lead, stage, entered-at, step). The scheduler absorbs it.
var ErrDuplicateTask = errors.New("cadence task already exists")

const day = 24 * time.Hour

type stepKey struct {
	dayOffset int
	channel   string
	order     int
}

func keyOf(t domain.Task) stepKey {
	return stepKey{dayOffset: t.DayOffset, channel: t.Channel, order: t.StepOrder}
}

// Scheduler creates cadence tasks. Calls for the same lead are serialized in
// process; the store's unique key covers other replicas.
type Scheduler struct {
	store     ports.TaskStore
	reminders ports.ReminderScheduler
	log       *logger.Logger

	mu    sync.Mutex
	locks map[uuid.UUID]*leadLock
}

type leadLock struct {
	mu   sync.Mutex
	refs int
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithReminders enqueues a due-date reminder for every created task.
func WithReminders(r ports.ReminderScheduler) Option {
	return func(s *Scheduler) { s.reminders = r }
}

// New creates a cadence scheduler.
func New(store ports.TaskStore, log *logger.Logger, opts ...Option) *Scheduler {
	if log == nil {
		log = logger.Discard()
	}
	s := &Scheduler{store: store, log: log, locks: make(map[uuid.UUID]*leadLock)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Plan computes the tasks a stage entry calls for, without storing them.
// Inactive steps are skipped; dueAt is enteredStageAt plus dayOffset days.
func Plan(lead domain.Lead, stage domain.Stage) []domain.Task {
	steps := make([]domain.CadenceStep, 0, len(stage.Cadence))
	for _, step := range stage.Cadence {
		if step.Active {
			steps = append(steps, step)
		}
	}
	sort.SliceStable(steps, func(i, j int) bool {
		if steps[i].DayOffset != steps[j].DayOffset {
			return steps[i].DayOffset < steps[j].DayOffset
		}
		return steps[i].Order < steps[j].Order
	})

	tasks := make([]domain.Task, 0, len(steps))
	for _, step := range steps {
		tasks = append(tasks, domain.Task{
			ID:             uuid.New(),
			BoardID:        lead.BoardID,
			LeadID:         lead.ID,
			StageID:        stage.ID,
			EnteredStageAt: lead.EnteredStageAt,
			DayOffset:      step.DayOffset,
			StepOrder:      step.Order,
			Channel:        step.Channel,
			ActionType:     step.ActionType,
			Title:          step.Title,
			Description:    step.Description,
			Template:       step.Template,
			DueAt:          lead.EnteredStageAt.Add(time.Duration(step.DayOffset) * day),
			Status:         domain.TaskPending,
		})
	}
	return tasks
}

// OnStageEntered stores the cadence tasks for lead's entry into stage and
// returns every task that exists for that entry afterwards. Calling it again
// for the same (lead, stage, enteredStageAt) creates nothing new.
func (s *Scheduler) OnStageEntered(ctx context.Context, lead domain.Lead, stage domain.Stage) ([]domain.Task, error) {
	planned := Plan(lead, stage)
	if len(planned) == 0 {
		return nil, nil
	}

	unlock := s.lock(lead.ID)
	defer unlock()

	existing, err := s.store.FindExisting(ctx, lead.ID, stage.ID, lead.EnteredStageAt)
	if err != nil {
		return nil, fmt.Errorf("find existing cadence tasks: %w", err)
	}
	have := make(map[stepKey]struct{}, len(existing))
	for _, t := range existing {
		have[keyOf(t)] = struct{}{}
	}

	missing := make([]domain.Task, 0, len(planned))
	for _, t := range planned {
		if _, ok := have[keyOf(t)]; !ok {
			missing = append(missing, t)
		}
	}
	if len(missing) == 0 {
		return existing, nil
	}

	created, err := s.store.CreateTasks(ctx, missing)
	if errors.Is(err, ErrDuplicateTask) {
		s.log.Debug("cadence tasks already created elsewhere", "lead_id", lead.ID, "stage_id", stage.ID)
		return s.store.FindExisting(ctx, lead.ID, stage.ID, lead.EnteredStageAt)
	}
	if err != nil {
		return nil, fmt.Errorf("create cadence tasks: %w", err)
	}

	s.scheduleReminders(ctx, created)
	return append(existing, created...), nil
}

func (s *Scheduler) scheduleReminders(ctx context.Context, tasks []domain.Task) {
	if s.reminders == nil {
		return
	}
	for _, t := range tasks {
		if err := s.reminders.ScheduleTaskReminder(ctx, t); err != nil {
			s.log.Warn("failed to schedule task reminder", "task_id", t.ID, "lead_id", t.LeadID, "error", err)
		}
	}
}

func (s *Scheduler) lock(leadID uuid.UUID) func() {
	s.mu.Lock()
	l, ok := s.locks[leadID]
	if !ok {
		l = &leadLock{}
		s.locks[leadID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, leadID)
		}
		s.mu.Unlock()
	}
}
