package board

import (
	"context"
	"sync"
	"time"

	"pipeline_board_backend/internal/events"
	"pipeline_board_backend/internal/pipeline/domain"
	"pipeline_board_backend/internal/pipeline/metrics"
	"pipeline_board_backend/internal/pipeline/ports"

	"github.com/google/uuid"
)

// DropStatus is the outcome of a drop or gate resolution.
type DropStatus string

const (
	DropUnchanged      DropStatus = "unchanged"
	DropAwaitingReason DropStatus = "awaiting-reason"
	DropCommitted      DropStatus = "committed"
)

// MoveResult describes what a drop did.
type MoveResult struct {
	Status     DropStatus
	Transition domain.Transition
	Lead       domain.Lead
	Reason     *domain.AppliedReason
	History    *domain.HistoryEntry
	Tasks      []domain.Task
	Metrics    metrics.BoardMetrics
}

// HoverFeedback tells the UI how a drop on a stage would be treated.
type HoverFeedback struct {
	StageID        uuid.UUID   `json:"stageId"`
	Valid          bool        `json:"valid"`
	SameStage      bool        `json:"sameStage"`
	RequiresReason bool        `json:"requiresReason"`
	Role           domain.Role `json:"role,omitempty"`
}

// Session is one in-progress drag. Its mutex serializes calls on the session
// so a drop cannot race a cancel.
type Session struct {
	ID        uuid.UUID
	BoardID   uuid.UUID
	LeadID    uuid.UUID
	ActorID   uuid.UUID
	StartedAt time.Time

	mu         sync.Mutex
	board      *Board
	lastSeen   time.Time
	transition *domain.Transition
	ended      bool
}

// SessionInfo is a read-only view of a session.
type SessionInfo struct {
	ID        uuid.UUID               `json:"id"`
	BoardID   uuid.UUID               `json:"boardId"`
	LeadID    uuid.UUID               `json:"leadId"`
	ActorID   uuid.UUID               `json:"actorId"`
	StartedAt time.Time               `json:"startedAt"`
	Status    domain.TransitionStatus `json:"status,omitempty"`
	ToStageID *uuid.UUID              `json:"toStageId,omitempty"`
}

// Begin opens a drag session for a lead. Only one session may be open per
// board; a second Begin fails with ErrAlreadyDragging until the first ends.
func (e *Engine) Begin(ctx context.Context, boardID, leadID, actorID uuid.UUID) (SessionInfo, error) {
	b, err := e.mount(ctx, boardID)
	if err != nil {
		return SessionInfo{}, err
	}
	b.mu.Lock()
	_, ok := b.index.Lead(leadID)
	b.mu.Unlock()
	if !ok {
		return SessionInfo{}, domain.ErrLeadNotFound
	}

	s := &Session{
		ID:        uuid.New(),
		BoardID:   boardID,
		LeadID:    leadID,
		ActorID:   actorID,
		StartedAt: e.now(),
		board:     b,
	}
	s.lastSeen = s.StartedAt

	acquired, err := e.lock.Acquire(ctx, boardID, s.ID, e.lockTTL)
	if err != nil {
		return SessionInfo{}, err
	}
	if !acquired {
		return SessionInfo{}, domain.ErrAlreadyDragging
	}

	e.mu.Lock()
	var lapsed []*Session
	for _, other := range e.sessions {
		if other.BoardID == boardID {
			lapsed = append(lapsed, other)
		}
	}
	e.sessions[s.ID] = s
	e.mu.Unlock()

	// The claim was free, so any local session of this board lost it.
	for _, other := range lapsed {
		if other.mu.TryLock() {
			e.expire(ctx, other)
			other.mu.Unlock()
		}
	}
	return s.info(), nil
}

// Hover reports how dropping on candidate would be treated. It changes nothing.
func (e *Engine) Hover(_ context.Context, sessionID, candidate uuid.UUID) (HoverFeedback, error) {
	s, ok := e.session(sessionID)
	if !ok {
		return HoverFeedback{}, domain.ErrSessionNotFound
	}
	b := s.board
	b.mu.Lock()
	defer b.mu.Unlock()

	fb := HoverFeedback{StageID: candidate}
	role, ok := b.registry.RoleOf(candidate)
	if !ok {
		return fb, nil
	}
	current, _ := b.index.StageOf(s.LeadID)
	fb.Valid = true
	fb.Role = role
	fb.SameStage = current == candidate
	fb.RequiresReason = !fb.SameStage && b.gate.RequiresGate(candidate)
	return fb, nil
}

// Drop asks to move the session's lead into target. Dropping on the current
// stage is a no-op. Terminal targets return DropAwaitingReason and keep the
// session open until ResolveGate or Cancel; every other outcome, success or
// error, ends the session.
func (e *Engine) Drop(ctx context.Context, sessionID, target uuid.UUID) (MoveResult, error) {
	s, ok := e.session(sessionID)
	if !ok {
		return MoveResult{}, domain.ErrSessionNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return MoveResult{}, domain.ErrSessionNotFound
	}
	if s.transition != nil {
		return MoveResult{}, domain.ErrGateNotPending
	}
	if err := e.touch(ctx, s); err != nil {
		return MoveResult{}, err
	}

	b := s.board
	b.mu.Lock()
	lead, ok := b.index.Lead(s.LeadID)
	if !ok {
		b.mu.Unlock()
		e.endSession(ctx, s)
		return MoveResult{}, domain.ErrLeadNotFound
	}
	if lead.StageID == target {
		b.mu.Unlock()
		e.endSession(ctx, s)
		return MoveResult{Status: DropUnchanged, Lead: lead}, nil
	}
	if !b.registry.IsValidDestination(target) {
		b.mu.Unlock()
		e.endSession(ctx, s)
		return MoveResult{}, domain.ErrInvalidDestination
	}

	t := &domain.Transition{
		BoardID:     s.BoardID,
		LeadID:      s.LeadID,
		FromStageID: lead.StageID,
		ToStageID:   target,
		RequestedAt: e.now(),
		Status:      domain.TransitionPending,
	}
	committed, ok, err := b.gate.Evaluate(t)
	b.mu.Unlock()
	if err != nil {
		e.endSession(ctx, s)
		return MoveResult{}, err
	}
	if !ok {
		s.transition = t
		return MoveResult{Status: DropAwaitingReason, Transition: *t, Lead: lead}, nil
	}

	defer e.endSession(ctx, s)
	return e.commit(ctx, b, committed, s.ActorID)
}

// ResolveGate supplies the outcome reason of a drop that is awaiting one. A
// rejected reason keeps the session waiting so the user can try again.
func (e *Engine) ResolveGate(ctx context.Context, sessionID uuid.UUID, in domain.ReasonInput) (MoveResult, error) {
	s, ok := e.session(sessionID)
	if !ok {
		return MoveResult{}, domain.ErrSessionNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return MoveResult{}, domain.ErrSessionNotFound
	}
	if s.transition == nil {
		return MoveResult{}, domain.ErrGateNotPending
	}
	if err := e.touch(ctx, s); err != nil {
		return MoveResult{}, err
	}

	b := s.board
	committed, err := b.gate.Resolve(ctx, s.transition, in)
	if err != nil {
		return MoveResult{}, err
	}

	defer e.endSession(ctx, s)
	return e.commit(ctx, b, committed, s.ActorID)
}

// Cancel discards a session without touching the board. Unknown or finished
// sessions are ignored. A drop whose write is in flight finishes first.
func (e *Engine) Cancel(ctx context.Context, sessionID uuid.UUID) {
	s, ok := e.session(sessionID)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e.cancelLocked(ctx, s)
}

func (e *Engine) cancelLocked(ctx context.Context, s *Session) {
	if s.ended {
		return
	}
	if s.transition != nil {
		_ = s.board.gate.Cancel(s.transition)
	}
	e.endSession(ctx, s)
}

// touch marks s active and renews its board claim for another lock TTL. A
// session whose claim lapsed is expired and reported as not found, since
// another session may already own the board. Callers hold s.mu.
func (e *Engine) touch(ctx context.Context, s *Session) error {
	held, err := e.lock.Extend(ctx, s.BoardID, s.ID, e.lockTTL)
	if err != nil {
		return err
	}
	if !held {
		e.log.Warn("drag session lost its board claim", "board_id", s.BoardID, "session_id", s.ID)
		e.expire(ctx, s)
		return domain.ErrSessionNotFound
	}
	s.lastSeen = e.now()
	return nil
}

// expire cancels s and announces it. Callers hold s.mu.
func (e *Engine) expire(ctx context.Context, s *Session) {
	if s.ended {
		return
	}
	e.cancelLocked(ctx, s)
	e.publish(ctx, events.DragSessionExpired{
		BaseEvent: events.NewBaseEvent(),
		BoardID:   s.BoardID,
		SessionID: s.ID,
	})
}

// CancelStale cancels sessions idle for longer than maxAge and returns how
// many it cancelled. Sessions busy with a drop are skipped.
func (e *Engine) CancelStale(ctx context.Context, maxAge time.Duration) int {
	if maxAge <= 0 {
		return 0
	}
	cutoff := e.now().Add(-maxAge)

	e.mu.Lock()
	candidates := make([]*Session, 0, len(e.sessions))
	for _, s := range e.sessions {
		candidates = append(candidates, s)
	}
	e.mu.Unlock()

	n := 0
	for _, s := range candidates {
		if !s.mu.TryLock() {
			continue
		}
		if !s.ended && s.lastSeen.Before(cutoff) {
			e.expire(ctx, s)
			n++
		}
		s.mu.Unlock()
	}
	return n
}

// Session returns a view of an open session.
func (e *Engine) Session(sessionID uuid.UUID) (SessionInfo, bool) {
	s, ok := e.session(sessionID)
	if !ok {
		return SessionInfo{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info(), true
}

// Move runs begin, drop and, for terminal targets, gate resolution in one
// call. A terminal move without a reason fails with ErrEmptyReason and
// leaves the lead where it was.
func (e *Engine) Move(ctx context.Context, boardID, leadID, target, actorID uuid.UUID, reason *domain.ReasonInput) (MoveResult, error) {
	info, err := e.Begin(ctx, boardID, leadID, actorID)
	if err != nil {
		return MoveResult{}, err
	}
	res, err := e.Drop(ctx, info.ID, target)
	if err != nil || res.Status != DropAwaitingReason {
		return res, err
	}
	if reason == nil {
		e.Cancel(ctx, info.ID)
		return MoveResult{}, domain.ErrEmptyReason
	}
	res, err = e.ResolveGate(ctx, info.ID, *reason)
	if err != nil {
		e.Cancel(ctx, info.ID)
		return MoveResult{}, err
	}
	return res, nil
}

// commit applies a cleared transition: optimistic move, persist, then either
// reconcile (history, cadence, events, metrics) or restore the snapshot.
func (e *Engine) commit(ctx context.Context, b *Board, ct domain.CommittedTransition, actorID uuid.UUID) (MoveResult, error) {
	b.mu.Lock()
	if !b.registry.IsValidDestination(ct.ToStageID) {
		b.mu.Unlock()
		return MoveResult{}, domain.ErrInvalidDestination
	}
	stage, _ := b.registry.Stage(ct.ToStageID)
	snap := b.index.Snapshot()
	b.index.Move(ct.LeadID, ct.ToStageID, e.now())
	lead, _ := b.index.Lead(ct.LeadID)
	b.moving++
	b.mu.Unlock()

	err := e.store.PersistMove(ctx, ports.MoveRecord{
		BoardID:        ct.BoardID,
		LeadID:         ct.LeadID,
		FromStageID:    ct.FromStageID,
		ToStageID:      ct.ToStageID,
		EnteredStageAt: lead.EnteredStageAt,
		ActorID:        actorID,
		Outcome:        ct.Reason,
	})
	if err != nil {
		b.mu.Lock()
		b.index.Restore(snap)
		b.moving--
		b.mu.Unlock()

		e.log.TransitionRolledBack(ct.BoardID.String(), ct.LeadID.String(), ct.ToStageID.String(), err)
		e.publish(ctx, events.TransitionRolledBack{
			BaseEvent: events.NewBaseEvent(),
			BoardID:   ct.BoardID,
			LeadID:    ct.LeadID,
			ToStageID: ct.ToStageID,
		})
		return MoveResult{}, domain.ErrPersistenceFailed.WithOp("board.persist_move").Wrap(err)
	}

	b.mu.Lock()
	b.moving--
	b.mu.Unlock()

	e.log.TransitionCommitted(ct.BoardID.String(), ct.LeadID.String(), ct.FromStageID.String(), ct.ToStageID.String())
	res := MoveResult{Status: DropCommitted, Transition: ct.Transition, Lead: lead, Reason: ct.Reason}

	if e.history != nil {
		entry := e.history.Record(ctx, ct, actorID)
		res.History = &entry
	}
	if e.cadence != nil {
		tasks, err := e.cadence.OnStageEntered(ctx, lead, stage)
		if err != nil {
			e.log.Warn("failed to schedule cadence tasks", "board_id", ct.BoardID, "lead_id", ct.LeadID, "stage_id", stage.ID, "error", err)
		}
		res.Tasks = tasks
		if len(tasks) > 0 {
			e.publish(ctx, events.CadenceTasksScheduled{
				BaseEvent: events.NewBaseEvent(),
				BoardID:   ct.BoardID,
				LeadID:    ct.LeadID,
				StageID:   stage.ID,
				Count:     len(tasks),
			})
		}
	}

	e.publish(ctx, events.LeadStageChanged{
		BaseEvent:   events.NewBaseEvent(),
		BoardID:     ct.BoardID,
		LeadID:      ct.LeadID,
		FromStageID: ct.FromStageID,
		ToStageID:   ct.ToStageID,
		ToRole:      string(ct.ToRole),
		ActorID:     actorID,
	})
	if ct.Reason != nil {
		e.publish(ctx, events.LeadOutcomeRecorded{
			BaseEvent:  events.NewBaseEvent(),
			BoardID:    ct.BoardID,
			LeadID:     ct.LeadID,
			Outcome:    string(ct.Reason.Outcome),
			ReasonID:   ct.Reason.ReasonID,
			ReasonText: ct.Reason.Text,
			ValueCents: lead.ValueCents,
		})
	}

	b.mu.Lock()
	res.Metrics = b.metricsLocked()
	b.mu.Unlock()
	return res, nil
}

func (e *Engine) session(id uuid.UUID) (*Session, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.sessions[id]
	return s, ok
}

// endSession forgets s and frees its board. Callers hold s.mu.
func (e *Engine) endSession(ctx context.Context, s *Session) {
	if s.ended {
		return
	}
	s.ended = true
	e.mu.Lock()
	delete(e.sessions, s.ID)
	e.mu.Unlock()
	if err := e.lock.Release(context.WithoutCancel(ctx), s.BoardID, s.ID); err != nil {
		e.log.Warn("failed to release drag lock", "board_id", s.BoardID, "session_id", s.ID, "error", err)
	}
}

func (s *Session) info() SessionInfo {
	info := SessionInfo{
		ID:        s.ID,
		BoardID:   s.BoardID,
		LeadID:    s.LeadID,
		ActorID:   s.ActorID,
		StartedAt: s.StartedAt,
	}
	if s.transition != nil {
		info.Status = s.transition.Status
		to := s.transition.ToStageID
		info.ToStageID = &to
	}
	return info
}
