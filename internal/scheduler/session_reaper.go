package scheduler

import (
	"context"
	"time"

	"pipeline_board_backend/platform/logger"
)

const defaultReaperInterval = time.Minute

// StaleSessionCanceller cancels drag sessions idle longer than maxAge.
// *board.Engine satisfies it.
type StaleSessionCanceller interface {
	CancelStale(ctx context.Context, maxAge time.Duration) int
}

// SessionReaper periodically cancels abandoned drag sessions so their board
// lock is released.
type SessionReaper struct {
	engine   StaleSessionCanceller
	log      *logger.Logger
	maxAge   time.Duration
	interval time.Duration
}

// NewSessionReaper returns nil when maxAge is not positive, which disables reaping.
func NewSessionReaper(engine StaleSessionCanceller, log *logger.Logger, maxAge, interval time.Duration) *SessionReaper {
	if maxAge <= 0 {
		return nil
	}
	if interval <= 0 {
		interval = defaultReaperInterval
	}
	if interval > maxAge {
		interval = maxAge
	}
	return &SessionReaper{engine: engine, log: log, maxAge: maxAge, interval: interval}
}

func (r *SessionReaper) Run(ctx context.Context) {
	if r == nil || r.engine == nil {
		return
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.reap(ctx)
		}
	}
}

func (r *SessionReaper) reap(ctx context.Context) {
	if n := r.engine.CancelStale(ctx, r.maxAge); n > 0 {
		r.log.Info("cancelled stale drag sessions", "cancelled", n, "max_age", r.maxAge.String())
	}
}
