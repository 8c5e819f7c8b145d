package telemetry

import (
	"context"
	"testing"

	"pipeline_board_backend/internal/events"
	"pipeline_board_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewMetricsIsSingleton(t *testing.T) {
	if NewMetrics() != NewMetrics() {
		t.Fatal("metrics must be registered once")
	}
}

func TestSubscribeCountsEvents(t *testing.T) {
	m := NewMetrics()
	bus := events.NewInMemoryBus(logger.Discard())
	Subscribe(bus, m, logger.Discard())
	ctx := context.Background()

	wonBefore := testutil.ToFloat64(m.TransitionsTotal.WithLabelValues("won"))
	outcomeBefore := testutil.ToFloat64(m.OutcomesTotal.WithLabelValues("won"))
	valueBefore := testutil.ToFloat64(m.OutcomeValueCents.WithLabelValues("won"))
	tasksBefore := testutil.ToFloat64(m.CadenceTasksTotal)
	rollbacksBefore := testutil.ToFloat64(m.RollbacksTotal)
	dueBefore := testutil.ToFloat64(m.TasksDueTotal.WithLabelValues("call"))

	publish := func(e events.Event) {
		if err := bus.PublishSync(ctx, e); err != nil {
			t.Fatalf("publish %s: %v", e.EventName(), err)
		}
	}
	publish(events.LeadStageChanged{BaseEvent: events.NewBaseEvent(), LeadID: uuid.New(), ToRole: "won"})
	publish(events.LeadOutcomeRecorded{BaseEvent: events.NewBaseEvent(), Outcome: "won", ValueCents: 2500})
	publish(events.CadenceTasksScheduled{BaseEvent: events.NewBaseEvent(), Count: 3})
	publish(events.TransitionRolledBack{BaseEvent: events.NewBaseEvent()})
	publish(events.TaskDue{BaseEvent: events.NewBaseEvent(), Channel: "call"})

	checks := []struct {
		name   string
		before float64
		after  float64
		delta  float64
	}{
		{"transitions", wonBefore, testutil.ToFloat64(m.TransitionsTotal.WithLabelValues("won")), 1},
		{"outcomes", outcomeBefore, testutil.ToFloat64(m.OutcomesTotal.WithLabelValues("won")), 1},
		{"outcome value", valueBefore, testutil.ToFloat64(m.OutcomeValueCents.WithLabelValues("won")), 2500},
		{"cadence tasks", tasksBefore, testutil.ToFloat64(m.CadenceTasksTotal), 3},
		{"rollbacks", rollbacksBefore, testutil.ToFloat64(m.RollbacksTotal), 1},
		{"tasks due", dueBefore, testutil.ToFloat64(m.TasksDueTotal.WithLabelValues("call")), 1},
	}
	for _, c := range checks {
		if c.after-c.before != c.delta {
			t.Fatalf("%s: expected +%v, got +%v", c.name, c.delta, c.after-c.before)
		}
	}
}
