package cadence

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"pipeline_board_backend/internal/pipeline/domain"

	"github.com/google/uuid"
)

type memoryTaskStore struct {
	mu         sync.Mutex
	tasks      []domain.Task
	createErr  error
	createCall int
}

func (m *memoryTaskStore) CreateTasks(_ context.Context, tasks []domain.Task) ([]domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCall++
	if m.createErr != nil {
		return nil, m.createErr
	}
	var created []domain.Task
	for _, t := range tasks {
		dup := false
		for _, e := range m.tasks {
			if e.LeadID == t.LeadID && e.StageID == t.StageID && e.EnteredStageAt.Equal(t.EnteredStageAt) && keyOf(e) == keyOf(t) {
				dup = true
				break
			}
		}
		if !dup {
			m.tasks = append(m.tasks, t)
			created = append(created, t)
		}
	}
	return created, nil
}

func (m *memoryTaskStore) FindExisting(_ context.Context, leadID, stageID uuid.UUID, enteredAt time.Time) ([]domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Task
	for _, t := range m.tasks {
		if t.LeadID == leadID && t.StageID == stageID && t.EnteredStageAt.Equal(enteredAt) {
			out = append(out, t)
		}
	}
	return out, nil
}

type recordingReminders struct {
	mu    sync.Mutex
	tasks []domain.Task
	err   error
}

func (r *recordingReminders) ScheduleTaskReminder(_ context.Context, t domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks = append(r.tasks, t)
	return r.err
}

var entered = time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC)

func qualifyStage() domain.Stage {
	return domain.Stage{
		ID:   uuid.New(),
		Name: "Qualify",
		Role: domain.RoleCustom,
		Cadence: []domain.CadenceStep{
			{DayOffset: 3, Order: 1, Channel: domain.ChannelCall, Title: "Follow-up call", Active: true},
			{DayOffset: 0, Order: 2, Channel: domain.ChannelWhatsApp, Title: "Intro message", Active: true},
			{DayOffset: 0, Order: 1, Channel: domain.ChannelEmail, Title: "Welcome email", Active: true},
			{DayOffset: 7, Order: 1, Channel: domain.ChannelSMS, Title: "Disabled", Active: false},
		},
	}
}

func TestPlanComputesDueDatesAndSkipsInactive(t *testing.T) {
	lead := domain.Lead{ID: uuid.New(), BoardID: uuid.New(), EnteredStageAt: entered}
	tasks := Plan(lead, qualifyStage())
	if len(tasks) != 3 {
		t.Fatalf("expected 3 tasks, got %d", len(tasks))
	}
	wantTitles := []string{"Welcome email", "Intro message", "Follow-up call"}
	for i, task := range tasks {
		if task.Title != wantTitles[i] {
			t.Fatalf("task %d: expected %q, got %q", i, wantTitles[i], task.Title)
		}
		if task.Status != domain.TaskPending || task.LeadID != lead.ID || task.BoardID != lead.BoardID {
			t.Fatalf("task %d carries wrong identity or status: %+v", i, task)
		}
	}
	if want := entered.Add(72 * time.Hour); !tasks[2].DueAt.Equal(want) {
		t.Fatalf("expected call due at %v, got %v", want, tasks[2].DueAt)
	}
	if !tasks[0].DueAt.Equal(entered) {
		t.Fatalf("day zero task should be due on entry, got %v", tasks[0].DueAt)
	}
}

func TestOnStageEnteredIsIdempotent(t *testing.T) {
	store := &memoryTaskStore{}
	reminders := &recordingReminders{}
	s := New(store, nil, WithReminders(reminders))
	lead := domain.Lead{ID: uuid.New(), EnteredStageAt: entered}
	stage := qualifyStage()

	first, err := s.OnStageEntered(context.Background(), lead, stage)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	second, err := s.OnStageEntered(context.Background(), lead, stage)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}

	if len(store.tasks) != 3 {
		t.Fatalf("expected 3 stored tasks, got %d", len(store.tasks))
	}
	if len(first) != 3 || len(second) != 3 {
		t.Fatalf("both calls should report the same 3 tasks, got %d and %d", len(first), len(second))
	}
	if store.createCall != 1 {
		t.Fatalf("second call should not write, got %d writes", store.createCall)
	}
	if len(reminders.tasks) != 3 {
		t.Fatalf("expected one reminder per created task, got %d", len(reminders.tasks))
	}
}

func TestOnStageEnteredConcurrentCallsDoNotDuplicate(t *testing.T) {
	store := &memoryTaskStore{}
	s := New(store, nil)
	lead := domain.Lead{ID: uuid.New(), EnteredStageAt: entered}
	stage := qualifyStage()

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.OnStageEntered(context.Background(), lead, stage); err != nil {
				t.Errorf("concurrent call: %v", err)
			}
		}()
	}
	wg.Wait()

	if len(store.tasks) != 3 {
		t.Fatalf("expected 3 stored tasks, got %d", len(store.tasks))
	}
	if len(s.locks) != 0 {
		t.Fatalf("lead locks should be released, %d left", len(s.locks))
	}
}

func TestNewEntryTimeCreatesNewTasks(t *testing.T) {
	store := &memoryTaskStore{}
	s := New(store, nil)
	lead := domain.Lead{ID: uuid.New(), EnteredStageAt: entered}
	stage := qualifyStage()

	_, _ = s.OnStageEntered(context.Background(), lead, stage)
	lead.EnteredStageAt = entered.Add(48 * time.Hour)
	_, _ = s.OnStageEntered(context.Background(), lead, stage)

	if len(store.tasks) != 6 {
		t.Fatalf("re-entering the stage should schedule a fresh cadence, got %d tasks", len(store.tasks))
	}
}

func TestDuplicateTaskErrorIsSuppressed(t *testing.T) {
	store := &memoryTaskStore{createErr: ErrDuplicateTask}
	s := New(store, nil)
	lead := domain.Lead{ID: uuid.New(), EnteredStageAt: entered}

	tasks, err := s.OnStageEntered(context.Background(), lead, qualifyStage())
	if err != nil {
		t.Fatalf("duplicate error must not surface, got %v", err)
	}
	if len(tasks) != 0 {
		t.Fatalf("expected no tasks from an empty store, got %d", len(tasks))
	}
}

func TestStoreAndReminderFailures(t *testing.T) {
	store := &memoryTaskStore{createErr: errors.New("connection reset")}
	s := New(store, nil)
	lead := domain.Lead{ID: uuid.New(), EnteredStageAt: entered}
	if _, err := s.OnStageEntered(context.Background(), lead, qualifyStage()); err == nil {
		t.Fatal("expected store failure to surface")
	}

	reminders := &recordingReminders{err: errors.New("redis down")}
	s = New(&memoryTaskStore{}, nil, WithReminders(reminders))
	tasks, err := s.OnStageEntered(context.Background(), lead, qualifyStage())
	if err != nil || len(tasks) != 3 {
		t.Fatalf("reminder failures must not fail the call, got %d tasks, err %v", len(tasks), err)
	}
}

func TestStageWithoutCadence(t *testing.T) {
	store := &memoryTaskStore{}
	s := New(store, nil)
	tasks, err := s.OnStageEntered(context.Background(), domain.Lead{ID: uuid.New()}, domain.Stage{ID: uuid.New()})
	if err != nil || len(tasks) != 0 || store.createCall != 0 {
		t.Fatalf("expected no work, got tasks=%d err=%v writes=%d", len(tasks), err, store.createCall)
	}
}
