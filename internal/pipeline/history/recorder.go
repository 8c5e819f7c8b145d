// Package history writes the append-only audit trail of committed moves.
package history

import (
	"context"
	"sync"
	"time"

	"pipeline_board_backend/internal/pipeline/domain"
	"pipeline_board_backend/internal/pipeline/ports"
	"pipeline_board_backend/platform/logger"

	"github.com/google/uuid"
)

// DefaultDedupWindow is how long a recorded transition is remembered for
// retries when no window is configured.
const DefaultDedupWindow = 2 * time.Second

// dedupKey identifies one transition. A retry carries the same RequestedAt;
// a new drag between the same stages never does.
type dedupKey struct {
	leadID      uuid.UUID
	from        uuid.UUID
	to          uuid.UUID
	requestedAt int64
}

type seenEntry struct {
	entry  domain.HistoryEntry
	seenAt time.Time
}

// Recorder turns committed transitions into history entries. It never fails:
// sink errors are logged and the move stays committed.
type Recorder struct {
	sink   ports.AuditSink
	log    *logger.Logger
	window time.Duration
	now    func() time.Time

	mu   sync.Mutex
	seen map[dedupKey]seenEntry
}

// New creates a recorder. A non-positive window falls back to DefaultDedupWindow.
func New(sink ports.AuditSink, log *logger.Logger, window time.Duration) *Recorder {
	if window <= 0 {
		window = DefaultDedupWindow
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Recorder{
		sink:   sink,
		log:    log,
		window: window,
		now:    func() time.Time { return time.Now().UTC() },
		seen:   make(map[dedupKey]seenEntry),
	}
}

// Record appends the audit entry of ct. A second call for the same lead,
// stages and request time returns the first entry without writing again.
func (r *Recorder) Record(ctx context.Context, ct domain.CommittedTransition, actorID uuid.UUID) domain.HistoryEntry {
	now := r.now()
	key := dedupKey{
		leadID:      ct.LeadID,
		from:        ct.FromStageID,
		to:          ct.ToStageID,
		requestedAt: ct.RequestedAt.UnixNano(),
	}

	r.mu.Lock()
	r.prune(now)
	if prev, ok := r.seen[key]; ok {
		r.mu.Unlock()
		return prev.entry
	}
	entry := newEntry(ct, actorID, now)
	r.seen[key] = seenEntry{entry: entry, seenAt: now}
	r.mu.Unlock()

	if r.sink != nil {
		if err := r.sink.Append(ctx, entry); err != nil {
			r.log.AuditWriteFailed(entry.LeadID.String(), entry.ID.String(), err)
		}
	}
	return entry
}

// prune drops keys that can no longer collide with a retry. Callers hold mu.
func (r *Recorder) prune(now time.Time) {
	horizon := 2 * r.window
	if horizon < time.Minute {
		horizon = time.Minute
	}
	for k, v := range r.seen {
		if now.Sub(v.seenAt) > horizon {
			delete(r.seen, k)
		}
	}
}

func newEntry(ct domain.CommittedTransition, actorID uuid.UUID, at time.Time) domain.HistoryEntry {
	entry := domain.HistoryEntry{
		ID:         uuid.New(),
		BoardID:    ct.BoardID,
		LeadID:     ct.LeadID,
		Action:     domain.HistoryActionStageChange,
		ActorID:    actorID,
		OldStageID: ct.FromStageID,
		NewStageID: ct.ToStageID,
		Metadata: map[string]any{
			"fromStageId": ct.FromStageID.String(),
			"toStageId":   ct.ToStageID.String(),
			"toRole":      string(ct.ToRole),
		},
		Timestamp: at,
	}
	entry.Description = "Lead moved to another stage"

	if ct.Reason != nil {
		switch ct.Reason.Outcome {
		case domain.RoleWon:
			entry.Action = domain.HistoryActionWon
			entry.Description = "Lead marked as won: " + ct.Reason.Text
		case domain.RoleLost:
			entry.Action = domain.HistoryActionLost
			entry.Description = "Lead marked as lost: " + ct.Reason.Text
		}
		entry.Metadata["reasonText"] = ct.Reason.Text
		if ct.Reason.ReasonID != nil {
			entry.Metadata["reasonId"] = ct.Reason.ReasonID.String()
		}
		if ct.Reason.Notes != "" {
			entry.Metadata["notes"] = ct.Reason.Notes
		}
	}
	return entry
}
