// Package board is the transition engine of pipeline boards. It mounts a
// board's stages and leads in memory, serializes drag sessions per board and
// runs every move through validate, gate, optimistic apply, persist and then
// reconcile or roll back.
package board

import (
	"context"
	"errors"
	"sync"
	"time"

	"pipeline_board_backend/internal/events"
	"pipeline_board_backend/internal/pipeline/cadence"
	"pipeline_board_backend/internal/pipeline/domain"
	"pipeline_board_backend/internal/pipeline/gate"
	"pipeline_board_backend/internal/pipeline/history"
	"pipeline_board_backend/internal/pipeline/index"
	"pipeline_board_backend/internal/pipeline/metrics"
	"pipeline_board_backend/internal/pipeline/ports"
	"pipeline_board_backend/internal/pipeline/registry"
	"pipeline_board_backend/platform/logger"
	"pipeline_board_backend/platform/validator"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// EngineDeps are the collaborators of an Engine. Store is required; History,
// Cadence and Bus are optional.
type EngineDeps struct {
	Store     ports.Persistence
	Reasons   ports.ReasonLookup
	History   *history.Recorder
	Cadence   *cadence.Scheduler
	Lock      SessionLock
	Bus       events.Bus
	Log       *logger.Logger
	Validator *validator.Validator
}

// EngineOptions tune an Engine.
type EngineOptions struct {
	// SessionTTL bounds how long a drag lock may be held without release.
	// Zero keeps locks until the session ends.
	SessionTTL time.Duration
	// MemberSort is the default member ordering, see index.SortByName.
	MemberSort string
}

// Engine owns every mounted board of the process.
type Engine struct {
	store     ports.Persistence
	reasons   ports.ReasonLookup
	history   *history.Recorder
	cadence   *cadence.Scheduler
	lock      SessionLock
	bus       events.Bus
	log       *logger.Logger
	val       *validator.Validator
	sort      index.SortFunc
	lockTTL   time.Duration
	now       func() time.Time
	mountOnce singleflight.Group

	mu       sync.Mutex
	boards   map[uuid.UUID]*Board
	sessions map[uuid.UUID]*Session
}

// NewEngine creates an engine.
func NewEngine(deps EngineDeps, opts EngineOptions) *Engine {
	if deps.Log == nil {
		deps.Log = logger.Discard()
	}
	if deps.Lock == nil {
		deps.Lock = NewMemoryLock()
	}
	if deps.Validator == nil {
		deps.Validator = validator.New()
	}
	return &Engine{
		store:    deps.Store,
		reasons:  deps.Reasons,
		history:  deps.History,
		cadence:  deps.Cadence,
		lock:     deps.Lock,
		bus:      deps.Bus,
		log:      deps.Log,
		val:      deps.Validator,
		sort:     index.SortByName(opts.MemberSort),
		lockTTL:  opts.SessionTTL,
		now:      func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
		boards:   make(map[uuid.UUID]*Board),
		sessions: make(map[uuid.UUID]*Session),
	}
}

// Board is the mounted state of one board. mu guards registry, index and
// moving, the number of moves whose write is in flight.
type Board struct {
	ID uuid.UUID

	mu       sync.Mutex
	registry *registry.Registry
	index    *index.Index
	gate     *gate.Gate
	moving   int
}

// boardRoles resolves roles against the board's current registry. Callers
// hold the board mutex.
type boardRoles struct{ b *Board }

func (r boardRoles) RoleOf(id uuid.UUID) (domain.Role, bool) {
	return r.b.registry.RoleOf(id)
}

// mount returns the in-memory board, loading it on first use. Concurrent
// first uses share one load.
func (e *Engine) mount(ctx context.Context, boardID uuid.UUID) (*Board, error) {
	e.mu.Lock()
	b, ok := e.boards[boardID]
	e.mu.Unlock()
	if ok {
		return b, nil
	}

	v, err, _ := e.mountOnce.Do(boardID.String(), func() (any, error) {
		e.mu.Lock()
		if b, ok := e.boards[boardID]; ok {
			e.mu.Unlock()
			return b, nil
		}
		e.mu.Unlock()

		b, err := e.load(ctx, boardID)
		if err != nil {
			return nil, err
		}
		e.mu.Lock()
		e.boards[boardID] = b
		e.mu.Unlock()
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Board), nil
}

func (e *Engine) load(ctx context.Context, boardID uuid.UUID) (*Board, error) {
	data, err := e.store.LoadBoard(ctx, boardID)
	if err != nil {
		if errors.Is(err, domain.ErrBoardNotFound) {
			return nil, err
		}
		return nil, domain.ErrPersistenceFailed.WithOp("board.load").Wrap(err)
	}

	stages := make([]domain.Stage, 0, len(data.Stages))
	for _, raw := range data.Stages {
		raw.BoardID = boardID
		stages = append(stages, domain.NormalizeStage(raw))
	}
	if len(stages) == 0 {
		stages = registry.DefaultStages(boardID)
		if err := e.store.SaveStages(ctx, boardID, denormalizeAll(stages)); err != nil {
			return nil, domain.ErrPersistenceFailed.WithOp("board.seed_stages").Wrap(err)
		}
		e.log.Info("seeded default stages", "board_id", boardID)
	}

	reg, err := registry.New(boardID, stages)
	if err != nil {
		return nil, err
	}
	idx, orphans := index.New(reg.IDs(), data.Leads, e.sort)
	for _, o := range orphans {
		e.log.Warn("lead references a stage outside its board", "board_id", boardID, "lead_id", o.ID, "stage_id", o.StageID)
	}

	b := &Board{ID: boardID, registry: reg, index: idx}
	b.gate = gate.New(boardID, boardRoles{b: b}, e.reasons, e.val)
	return b, nil
}

// Reload drops the mounted copy of a board so the next call reads storage.
func (e *Engine) Reload(boardID uuid.UUID) {
	e.mu.Lock()
	delete(e.boards, boardID)
	e.mu.Unlock()
}

// ListOrdered returns the stages of a board in order.
func (e *Engine) ListOrdered(ctx context.Context, boardID uuid.UUID) ([]domain.Stage, error) {
	b, err := e.mount(ctx, boardID)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.registry.ListOrdered(), nil
}

// MembersOf returns the leads of a stage. An empty sortKey uses the engine
// default.
func (e *Engine) MembersOf(ctx context.Context, boardID, stageID uuid.UUID, sortKey string) ([]domain.Lead, error) {
	b, err := e.mount(ctx, boardID)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.registry.IsValidDestination(stageID) {
		return nil, domain.ErrStageNotFound
	}
	var sort index.SortFunc
	if sortKey != "" {
		sort = index.SortByName(sortKey)
	}
	return b.index.MembersOf(stageID, sort), nil
}

// MetricsFor computes the aggregates of a board from its current membership.
func (e *Engine) MetricsFor(ctx context.Context, boardID uuid.UUID) (metrics.BoardMetrics, error) {
	b, err := e.mount(ctx, boardID)
	if err != nil {
		return metrics.BoardMetrics{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.metricsLocked(), nil
}

func (b *Board) metricsLocked() metrics.BoardMetrics {
	return metrics.Compute(b.ID, b.registry.ListOrdered(), b.index)
}

// ReorderStages reorders the custom stages of a board.
func (e *Engine) ReorderStages(ctx context.Context, boardID uuid.UUID, order []uuid.UUID) ([]domain.Stage, error) {
	var out []domain.Stage
	err := e.mutateStages(ctx, boardID, func(b *Board, reg *registry.Registry) error {
		if err := reg.ReorderCustom(order); err != nil {
			return err
		}
		out = reg.ListOrdered()
		return nil
	})
	return out, err
}

// AddStage appends a custom stage before the terminal anchors.
func (e *Engine) AddStage(ctx context.Context, boardID uuid.UUID, name, color string, cadence []domain.CadenceStep) (domain.Stage, error) {
	var (
		out   domain.Stage
		added *Board
	)
	err := e.mutateStages(ctx, boardID, func(b *Board, reg *registry.Registry) error {
		s, err := reg.AddCustom(name, color, cadence)
		if err != nil {
			return err
		}
		added = b
		out = s
		return nil
	})
	if err != nil {
		return domain.Stage{}, err
	}
	added.mu.Lock()
	added.index.AddStage(out.ID)
	added.mu.Unlock()
	return out, nil
}

// UpdateStage changes the name, color or cadence of a stage. Roles never change.
func (e *Engine) UpdateStage(ctx context.Context, boardID, stageID uuid.UUID, name, color *string, cadence []domain.CadenceStep) (domain.Stage, error) {
	var out domain.Stage
	err := e.mutateStages(ctx, boardID, func(b *Board, reg *registry.Registry) error {
		s, err := reg.UpdateStage(stageID, name, color, cadence)
		if err != nil {
			return err
		}
		out = s
		return nil
	})
	return out, err
}

// RemoveStage deletes an empty custom stage.
func (e *Engine) RemoveStage(ctx context.Context, boardID, stageID uuid.UUID) error {
	var removed *Board
	err := e.mutateStages(ctx, boardID, func(b *Board, reg *registry.Registry) error {
		if b.index.Count(stageID) > 0 {
			return domain.ErrStageInUse
		}
		removed = b
		return reg.RemoveCustom(stageID)
	})
	if err != nil {
		return err
	}
	removed.mu.Lock()
	removed.index.RemoveStage(stageID)
	removed.mu.Unlock()
	return nil
}

// mutateStages applies fn to a copy of the registry, stores the result and
// swaps it in. The board keeps its old stages if fn or the store fails. It
// refuses with ErrAlreadyDragging while a move is being written, as a failed
// write restores leads into the stages they left.
func (e *Engine) mutateStages(ctx context.Context, boardID uuid.UUID, fn func(*Board, *registry.Registry) error) error {
	b, err := e.mount(ctx, boardID)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.moving > 0 {
		return domain.ErrAlreadyDragging
	}

	next := b.registry.Clone()
	if err := fn(b, next); err != nil {
		return err
	}
	if err := e.store.SaveStages(ctx, boardID, denormalizeAll(next.ListOrdered())); err != nil {
		e.log.DatabaseError("save_stages", err)
		return domain.ErrPersistenceFailed.WithOp("board.save_stages").Wrap(err)
	}
	b.registry = next
	return nil
}

func denormalizeAll(stages []domain.Stage) []domain.RawStage {
	out := make([]domain.RawStage, 0, len(stages))
	for _, s := range stages {
		out = append(out, domain.Denormalize(s))
	}
	return out
}

func (e *Engine) publish(ctx context.Context, event events.Event) {
	if e.bus != nil {
		e.bus.Publish(ctx, event)
	}
}
