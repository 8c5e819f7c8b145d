// Package registry holds the canonical, ordered stage list of a board.
package registry

import (
	"fmt"
	"sort"
	"strings"

	"pipeline_board_backend/internal/pipeline/domain"

	"github.com/google/uuid"
)

// Registry is the ordered stage list of one board. Anchor stages (intake,
// won, lost) are always present and never move; custom stages sit between
// them. Registry is not safe for concurrent use; the owning board guards it.
type Registry struct {
	boardID uuid.UUID
	stages  []domain.Stage
	byID    map[uuid.UUID]int
}

// New validates stages and returns them as a registry. Stages must belong to
// boardID, contain exactly one stage per anchor role, and be ordered as
// intake < every custom < won < lost.
func New(boardID uuid.UUID, stages []domain.Stage) (*Registry, error) {
	sorted := make([]domain.Stage, 0, len(stages))
	roles := map[domain.Role]int{}
	seen := make(map[uuid.UUID]struct{}, len(stages))
	for _, s := range stages {
		if s.BoardID != boardID {
			return nil, domain.ErrBrokenBoard.Wrap(fmt.Errorf("stage %s belongs to board %s", s.ID, s.BoardID))
		}
		if _, dup := seen[s.ID]; dup {
			return nil, domain.ErrBrokenBoard.Wrap(fmt.Errorf("duplicate stage %s", s.ID))
		}
		if !s.Role.Valid() {
			return nil, domain.ErrBrokenBoard.Wrap(fmt.Errorf("stage %s has unknown role %q", s.ID, s.Role))
		}
		seen[s.ID] = struct{}{}
		roles[s.Role]++
		sorted = append(sorted, s.Clone())
	}
	if roles[domain.RoleIntake] != 1 || roles[domain.RoleWon] != 1 || roles[domain.RoleLost] != 1 {
		return nil, domain.ErrBrokenBoard
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].OrderIndex < sorted[j].OrderIndex
	})

	n := len(sorted)
	if sorted[0].Role != domain.RoleIntake || sorted[n-2].Role != domain.RoleWon || sorted[n-1].Role != domain.RoleLost {
		return nil, domain.ErrBrokenBoard.Wrap(fmt.Errorf("anchor stages are out of place"))
	}
	for i := 1; i < n; i++ {
		if sorted[i].OrderIndex == sorted[i-1].OrderIndex {
			return nil, domain.ErrBrokenBoard.Wrap(fmt.Errorf("order index %d is used twice", sorted[i].OrderIndex))
		}
	}

	r := &Registry{boardID: boardID, stages: sorted}
	r.reindex()
	return r, nil
}

// DefaultStages returns the anchor stages a new board starts with.
func DefaultStages(boardID uuid.UUID) []domain.Stage {
	return []domain.Stage{
		{ID: uuid.New(), BoardID: boardID, Name: "Lead", OrderIndex: domain.IntakeOrderIndex, Role: domain.RoleIntake, Color: "#3B82F6"},
		{ID: uuid.New(), BoardID: boardID, Name: "Won", OrderIndex: domain.WonOrderIndex, Role: domain.RoleWon, Color: "#10B981"},
		{ID: uuid.New(), BoardID: boardID, Name: "Lost", OrderIndex: domain.LostOrderIndex, Role: domain.RoleLost, Color: "#EF4444"},
	}
}

func (r *Registry) reindex() {
	r.byID = make(map[uuid.UUID]int, len(r.stages))
	for i, s := range r.stages {
		r.byID[s.ID] = i
	}
}

// BoardID returns the board the registry belongs to.
func (r *Registry) BoardID() uuid.UUID {
	return r.boardID
}

// ListOrdered returns a copy of the stages sorted by order index.
func (r *Registry) ListOrdered() []domain.Stage {
	out := make([]domain.Stage, len(r.stages))
	for i, s := range r.stages {
		out[i] = s.Clone()
	}
	return out
}

// IDs returns stage ids in board order.
func (r *Registry) IDs() []uuid.UUID {
	out := make([]uuid.UUID, len(r.stages))
	for i, s := range r.stages {
		out[i] = s.ID
	}
	return out
}

// Stage looks up a stage by id.
func (r *Registry) Stage(id uuid.UUID) (domain.Stage, bool) {
	i, ok := r.byID[id]
	if !ok {
		return domain.Stage{}, false
	}
	return r.stages[i].Clone(), true
}

// IsValidDestination reports whether a lead of this board may be moved to id.
func (r *Registry) IsValidDestination(id uuid.UUID) bool {
	_, ok := r.byID[id]
	return ok
}

// RoleOf returns the role of a stage.
func (r *Registry) RoleOf(id uuid.UUID) (domain.Role, bool) {
	i, ok := r.byID[id]
	if !ok {
		return "", false
	}
	return r.stages[i].Role, true
}

// StageOfRole returns the single stage holding an anchor role.
func (r *Registry) StageOfRole(role domain.Role) (domain.Stage, bool) {
	for _, s := range r.stages {
		if s.Role == role {
			return s.Clone(), true
		}
	}
	return domain.Stage{}, false
}

func (r *Registry) customs() []domain.Stage {
	return r.stages[1 : len(r.stages)-2]
}

// Clone returns an independent copy, used to stage changes before persisting.
func (r *Registry) Clone() *Registry {
	cp := &Registry{boardID: r.boardID, stages: r.ListOrdered()}
	cp.reindex()
	return cp
}

// ReorderCustom rearranges the custom stages into newOrder and renumbers them
// 1..n. newOrder must list every custom stage exactly once and no anchor.
// Anchors are never touched. On error the registry is unchanged.
func (r *Registry) ReorderCustom(newOrder []uuid.UUID) error {
	customs := r.customs()
	if len(newOrder) != len(customs) {
		return domain.ErrInvalidOrder.WithDetails(map[string]any{
			"expected": len(customs),
			"got":      len(newOrder),
		})
	}

	current := make(map[uuid.UUID]domain.Stage, len(customs))
	for _, s := range customs {
		current[s.ID] = s
	}

	reordered := make([]domain.Stage, 0, len(newOrder))
	used := make(map[uuid.UUID]struct{}, len(newOrder))
	for i, id := range newOrder {
		s, ok := current[id]
		if !ok {
			if role, known := r.RoleOf(id); known && role.IsAnchor() {
				return domain.ErrInvalidOrder.WithDetails(map[string]any{"anchor": id.String()})
			}
			return domain.ErrInvalidOrder.WithDetails(map[string]any{"unknown": id.String()})
		}
		if _, dup := used[id]; dup {
			return domain.ErrInvalidOrder.WithDetails(map[string]any{"duplicate": id.String()})
		}
		used[id] = struct{}{}
		s.OrderIndex = i + 1
		reordered = append(reordered, s)
	}

	copy(r.stages[1:len(r.stages)-2], reordered)
	r.reindex()
	return nil
}

// AddCustom appends a custom stage after the existing custom stages.
func (r *Registry) AddCustom(name, color string, cadence []domain.CadenceStep) (domain.Stage, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Stage{}, domain.ErrInvalidStage.WithDetails(map[string]any{"name": "required"})
	}
	customs := r.customs()
	next := len(customs) + 1
	won := r.stages[len(r.stages)-2]
	if next >= won.OrderIndex {
		return domain.Stage{}, domain.ErrInvalidStage.WithDetails(map[string]any{"capacity": won.OrderIndex - 1})
	}

	stage := domain.Stage{
		ID:         uuid.New(),
		BoardID:    r.boardID,
		Name:       name,
		OrderIndex: next,
		Role:       domain.RoleCustom,
		Color:      color,
		Cadence:    append([]domain.CadenceStep(nil), cadence...),
	}

	stages := make([]domain.Stage, 0, len(r.stages)+1)
	stages = append(stages, r.stages[:len(r.stages)-2]...)
	stages = append(stages, stage)
	stages = append(stages, r.stages[len(r.stages)-2:]...)
	r.stages = stages
	r.renumberCustoms()
	r.reindex()
	return stage.Clone(), nil
}

// RemoveCustom deletes a custom stage. Anchors cannot be removed.
// Callers must make sure no lead sits in the stage.
func (r *Registry) RemoveCustom(id uuid.UUID) error {
	i, ok := r.byID[id]
	if !ok {
		return domain.ErrStageNotFound
	}
	if r.stages[i].Role.IsAnchor() {
		return domain.ErrAnchorStage
	}
	r.stages = append(r.stages[:i], r.stages[i+1:]...)
	r.renumberCustoms()
	r.reindex()
	return nil
}

// UpdateStage changes the presentation and cadence of a stage. Roles and
// order never change here, so anchors may be renamed without losing theirs.
func (r *Registry) UpdateStage(id uuid.UUID, name, color *string, cadence []domain.CadenceStep) (domain.Stage, error) {
	i, ok := r.byID[id]
	if !ok {
		return domain.Stage{}, domain.ErrStageNotFound
	}
	s := &r.stages[i]
	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if trimmed == "" {
			return domain.Stage{}, domain.ErrInvalidStage.WithDetails(map[string]any{"name": "required"})
		}
		s.Name = trimmed
	}
	if color != nil {
		s.Color = *color
	}
	if cadence != nil {
		s.Cadence = append([]domain.CadenceStep(nil), cadence...)
	}
	return s.Clone(), nil
}

func (r *Registry) renumberCustoms() {
	for i := 1; i < len(r.stages)-2; i++ {
		r.stages[i].OrderIndex = i
	}
}
