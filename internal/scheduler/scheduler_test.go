package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"pipeline_board_backend/internal/events"
	"pipeline_board_backend/internal/pipeline/domain"
	platformevents "pipeline_board_backend/platform/events"
	"pipeline_board_backend/platform/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
)

type testSchedulerConfig struct {
	redisURL string
}

func (c testSchedulerConfig) GetRedisURL() string       { return c.redisURL }
func (c testSchedulerConfig) GetRedisTLSInsecure() bool { return false }
func (c testSchedulerConfig) GetAsynqQueueName() string { return "" }
func (c testSchedulerConfig) GetAsynqConcurrency() int  { return 0 }

type taskMap map[uuid.UUID]domain.Task

func (m taskMap) GetTask(_ context.Context, id uuid.UUID) (domain.Task, error) {
	t, ok := m[id]
	if !ok {
		return domain.Task{}, domain.ErrTaskNotFound
	}
	return t, nil
}

func TestScheduleTaskReminderIsIdempotent(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := NewClient(testSchedulerConfig{redisURL: "redis://" + mr.Addr()})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	task := domain.Task{ID: uuid.New(), BoardID: uuid.New(), DueAt: time.Now().Add(48 * time.Hour)}
	if err := client.ScheduleTaskReminder(context.Background(), task); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if err := client.ScheduleTaskReminder(context.Background(), task); err != nil {
		t.Fatalf("second schedule should be absorbed, got %v", err)
	}

	members, err := mr.ZMembers("asynq:{default}:scheduled")
	if err != nil {
		t.Fatalf("read scheduled set: %v", err)
	}
	if len(members) != 1 || members[0] != task.ID.String() {
		t.Fatalf("expected one scheduled reminder for %s, got %v", task.ID, members)
	}
}

func TestNewClientRequiresRedis(t *testing.T) {
	if _, err := NewClient(testSchedulerConfig{}); err == nil {
		t.Fatal("expected error without redis url")
	}
}

func TestHandleLeadTaskDue(t *testing.T) {
	pending := domain.Task{ID: uuid.New(), BoardID: uuid.New(), LeadID: uuid.New(), Channel: domain.ChannelCall, Title: "Call", Status: domain.TaskPending}
	done := domain.Task{ID: uuid.New(), Status: domain.TaskCompleted}

	bus := platformevents.NewInMemoryBus(logger.Discard())
	var mu sync.Mutex
	var got []events.TaskDue
	bus.Subscribe(events.TaskDue{}.EventName(), events.HandlerFunc(func(_ context.Context, e events.Event) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, e.(events.TaskDue))
		return nil
	}))

	w := &Worker{tasks: taskMap{pending.ID: pending, done.ID: done}, bus: bus, log: logger.Discard()}

	for _, id := range []uuid.UUID{pending.ID, done.ID, uuid.New()} {
		task, err := NewLeadTaskDueTask(LeadTaskDuePayload{TaskID: id.String()})
		if err != nil {
			t.Fatalf("new task: %v", err)
		}
		if err := w.handleLeadTaskDue(context.Background(), task); err != nil {
			t.Fatalf("handle %s: %v", id, err)
		}
	}

	if len(got) != 1 || got[0].TaskID != pending.ID || got[0].LeadID != pending.LeadID {
		t.Fatalf("expected one TaskDue for the pending task, got %+v", got)
	}

	bad, _ := NewLeadTaskDueTask(LeadTaskDuePayload{TaskID: "not-a-uuid"})
	if err := w.handleLeadTaskDue(context.Background(), bad); err == nil {
		t.Fatal("expected malformed payload to fail")
	}
}

type countingCanceller struct {
	mu     sync.Mutex
	calls  int
	maxAge time.Duration
}

func (c *countingCanceller) CancelStale(_ context.Context, maxAge time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	c.maxAge = maxAge
	return 1
}

func TestSessionReaper(t *testing.T) {
	if r := NewSessionReaper(&countingCanceller{}, logger.Discard(), 0, time.Second); r != nil {
		t.Fatal("zero max age should disable the reaper")
	}

	c := &countingCanceller{}
	r := NewSessionReaper(c, logger.Discard(), 20*time.Millisecond, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for {
		c.mu.Lock()
		calls := c.calls
		c.mu.Unlock()
		if calls > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("reaper never ran")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done

	if c.maxAge != 20*time.Millisecond {
		t.Fatalf("expected max age passed through, got %v", c.maxAge)
	}
}

func TestWorkerWithoutBus(t *testing.T) {
	id := uuid.New()
	w := &Worker{tasks: taskMap{id: {ID: id, Status: domain.TaskPending}}, log: logger.Discard()}
	task, _ := NewLeadTaskDueTask(LeadTaskDuePayload{TaskID: id.String()})
	if err := w.handleLeadTaskDue(context.Background(), task); err != nil {
		t.Fatalf("expected nil without bus, got %v", err)
	}
}
