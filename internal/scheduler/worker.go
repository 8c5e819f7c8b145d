package scheduler

import (
	"context"
	"errors"
	"fmt"

	"pipeline_board_backend/internal/events"
	"pipeline_board_backend/internal/pipeline/domain"
	"pipeline_board_backend/platform/config"
	"pipeline_board_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// TaskReader loads cadence tasks. *repository.Repository satisfies it.
type TaskReader interface {
	GetTask(ctx context.Context, taskID uuid.UUID) (domain.Task, error)
}

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	tasks  TaskReader
	bus    events.Bus
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, tasks TaskReader, bus events.Bus, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		tasks:  tasks,
		bus:    bus,
		log:    log,
	}

	mux.HandleFunc(TaskLeadTaskDue, w.handleLeadTaskDue)

	return w, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

// handleLeadTaskDue publishes TaskDue for tasks that are still pending.
// Deleted and completed tasks are dropped silently.
func (w *Worker) handleLeadTaskDue(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseLeadTaskDuePayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	taskID, err := uuid.Parse(payload.TaskID)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	t, err := w.tasks.GetTask(ctx, taskID)
	if errors.Is(err, domain.ErrTaskNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if t.Status != domain.TaskPending {
		return nil
	}

	if w.bus == nil {
		return nil
	}

	return w.bus.PublishSync(ctx, events.TaskDue{
		BaseEvent: events.NewBaseEvent(),
		TaskID:    t.ID,
		BoardID:   t.BoardID,
		LeadID:    t.LeadID,
		Channel:   t.Channel,
		Title:     t.Title,
		DueAt:     t.DueAt,
	})
}
