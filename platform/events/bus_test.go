package events

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type testEvent struct {
	BaseEvent
}

func (testEvent) EventName() string { return "test.event" }

func TestPublishSyncRunsAllHandlersAndReturnsFirstError(t *testing.T) {
	bus := NewInMemoryBus(nil)
	var calls int32
	boom := errors.New("boom")

	bus.Subscribe("test.event", HandlerFunc(func(context.Context, Event) error {
		atomic.AddInt32(&calls, 1)
		return boom
	}))
	bus.Subscribe("test.event", HandlerFunc(func(context.Context, Event) error {
		atomic.AddInt32(&calls, 1)
		return nil
	}))

	err := bus.PublishSync(context.Background(), testEvent{BaseEvent: NewBaseEvent()})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 handler calls, got %d", calls)
	}
}

func TestPublishRecoversFromPanickingHandler(t *testing.T) {
	bus := NewInMemoryBus(nil)
	var delivered int32

	bus.Subscribe("test.event", HandlerFunc(func(context.Context, Event) error {
		panic("handler exploded")
	}))
	bus.Subscribe("test.event", HandlerFunc(func(context.Context, Event) error {
		atomic.AddInt32(&delivered, 1)
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	bus.Publish(ctx, testEvent{BaseEvent: NewBaseEvent()})
	cancel()

	done := make(chan struct{})
	go func() {
		bus.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("handlers did not finish")
	}
	if atomic.LoadInt32(&delivered) != 1 {
		t.Fatalf("expected the healthy handler to run once, got %d", delivered)
	}
}
