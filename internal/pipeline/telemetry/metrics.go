// Package telemetry exports Prometheus counters fed from pipeline domain events.
package telemetry

import (
	"context"
	"sync"

	"pipeline_board_backend/internal/events"
	"pipeline_board_backend/platform/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds the pipeline counters.
type Metrics struct {
	TransitionsTotal     *prometheus.CounterVec
	RollbacksTotal       prometheus.Counter
	OutcomesTotal        *prometheus.CounterVec
	OutcomeValueCents    *prometheus.CounterVec
	CadenceTasksTotal    prometheus.Counter
	ExpiredSessionsTotal prometheus.Counter
	TasksDueTotal        *prometheus.CounterVec
}

// NewMetrics creates and registers the pipeline metrics once per process.
//
// Metrics:
//   - pipeline_transitions_total{to_role} - committed moves
//   - pipeline_transition_rollbacks_total - moves undone after a failed write
//   - pipeline_outcomes_total{outcome} - leads closed as won or lost
//   - pipeline_outcome_value_cents_total{outcome} - deal value closed per outcome
//   - pipeline_cadence_tasks_scheduled_total - follow-up tasks created
//   - pipeline_drag_sessions_expired_total - idle drag sessions reaped
//   - pipeline_tasks_due_total{channel} - task reminders that fired
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			TransitionsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "pipeline_transitions_total",
					Help: "Total number of committed lead moves",
				},
				[]string{"to_role"},
			),
			RollbacksTotal: promauto.NewCounter(prometheus.CounterOpts{
				Name: "pipeline_transition_rollbacks_total",
				Help: "Total number of lead moves rolled back after a persistence failure",
			}),
			OutcomesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "pipeline_outcomes_total",
					Help: "Total number of leads closed, by outcome",
				},
				[]string{"outcome"},
			),
			OutcomeValueCents: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "pipeline_outcome_value_cents_total",
					Help: "Sum of deal value of closed leads in cents, by outcome",
				},
				[]string{"outcome"},
			),
			CadenceTasksTotal: promauto.NewCounter(prometheus.CounterOpts{
				Name: "pipeline_cadence_tasks_scheduled_total",
				Help: "Total number of cadence tasks created on stage entry",
			}),
			ExpiredSessionsTotal: promauto.NewCounter(prometheus.CounterOpts{
				Name: "pipeline_drag_sessions_expired_total",
				Help: "Total number of idle drag sessions cancelled",
			}),
			TasksDueTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "pipeline_tasks_due_total",
					Help: "Total number of task reminders that fired, by channel",
				},
				[]string{"channel"},
			),
		}
	})
	return globalMetrics
}

// Subscribe feeds m from the pipeline events published on bus.
func Subscribe(bus events.Bus, m *Metrics, log *logger.Logger) {
	bus.Subscribe(events.LeadStageChanged{}.EventName(), events.HandlerFunc(func(_ context.Context, e events.Event) error {
		if ev, ok := e.(events.LeadStageChanged); ok {
			m.TransitionsTotal.WithLabelValues(ev.ToRole).Inc()
		}
		return nil
	}))

	bus.Subscribe(events.TransitionRolledBack{}.EventName(), events.HandlerFunc(func(_ context.Context, e events.Event) error {
		m.RollbacksTotal.Inc()
		return nil
	}))

	bus.Subscribe(events.LeadOutcomeRecorded{}.EventName(), events.HandlerFunc(func(_ context.Context, e events.Event) error {
		if ev, ok := e.(events.LeadOutcomeRecorded); ok {
			m.OutcomesTotal.WithLabelValues(ev.Outcome).Inc()
			if ev.ValueCents > 0 {
				m.OutcomeValueCents.WithLabelValues(ev.Outcome).Add(float64(ev.ValueCents))
			}
		}
		return nil
	}))

	bus.Subscribe(events.CadenceTasksScheduled{}.EventName(), events.HandlerFunc(func(_ context.Context, e events.Event) error {
		if ev, ok := e.(events.CadenceTasksScheduled); ok {
			m.CadenceTasksTotal.Add(float64(ev.Count))
		}
		return nil
	}))

	bus.Subscribe(events.DragSessionExpired{}.EventName(), events.HandlerFunc(func(_ context.Context, e events.Event) error {
		m.ExpiredSessionsTotal.Inc()
		return nil
	}))

	bus.Subscribe(events.TaskDue{}.EventName(), events.HandlerFunc(func(_ context.Context, e events.Event) error {
		if ev, ok := e.(events.TaskDue); ok {
			m.TasksDueTotal.WithLabelValues(ev.Channel).Inc()
			log.Info("lead task due", "task_id", ev.TaskID, "lead_id", ev.LeadID, "channel", ev.Channel, "title", ev.Title)
		}
		return nil
	}))
}
