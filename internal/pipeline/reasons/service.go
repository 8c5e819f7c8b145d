// Package reasons manages the predefined outcome reasons of a board.
package reasons

import (
	"context"
	"strings"

	"pipeline_board_backend/internal/pipeline/domain"
	"pipeline_board_backend/internal/pipeline/repository"

	"github.com/google/uuid"
)

// Store is the persistence the service needs. *repository.Repository satisfies it.
type Store interface {
	FindReasons(ctx context.Context, f repository.ReasonFilter) ([]domain.OutcomeReason, error)
	CreateReason(ctx context.Context, boardID uuid.UUID, outcome domain.Role, text string) (domain.OutcomeReason, error)
	UpdateReason(ctx context.Context, boardID, reasonID uuid.UUID, text *string, active *bool) (domain.OutcomeReason, error)
	ReorderReasons(ctx context.Context, boardID uuid.UUID, ids []uuid.UUID) error
	InsertReasonsIfMissing(ctx context.Context, boardID uuid.UUID, outcome domain.Role, texts []string) (int, error)
	BoardExists(ctx context.Context, boardID uuid.UUID) (bool, error)
}

// Service manages outcome reasons.
type Service struct {
	store    Store
	defaults Defaults
}

// New creates the service with the embedded default reason set.
func New(store Store) (*Service, error) {
	d, err := LoadDefaults()
	if err != nil {
		return nil, err
	}
	return &Service{store: store, defaults: d}, nil
}

// SeedResult reports how many defaults were added per outcome.
type SeedResult struct {
	Won  int `json:"won"`
	Lost int `json:"lost"`
}

// List returns reasons of a board, optionally for one outcome only.
func (s *Service) List(ctx context.Context, boardID uuid.UUID, outcome *domain.Role, activeOnly bool) ([]domain.OutcomeReason, error) {
	if outcome != nil && !outcome.IsTerminal() {
		return nil, domain.ErrInvalidReason.WithDetails(map[string]string{"outcome": "must be won or lost"})
	}
	return s.store.FindReasons(ctx, repository.ReasonFilter{BoardID: boardID, Outcome: outcome, ActiveOnly: activeOnly})
}

// Create adds a reason at the end of its outcome's list.
func (s *Service) Create(ctx context.Context, boardID uuid.UUID, outcome domain.Role, text string) (domain.OutcomeReason, error) {
	if !outcome.IsTerminal() {
		return domain.OutcomeReason{}, domain.ErrInvalidReason.WithDetails(map[string]string{"outcome": "must be won or lost"})
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.OutcomeReason{}, domain.ErrInvalidReason.WithDetails(map[string]string{"text": "required"})
	}
	if err := s.requireBoard(ctx, boardID); err != nil {
		return domain.OutcomeReason{}, err
	}
	return s.store.CreateReason(ctx, boardID, outcome, text)
}

// Update changes text and/or the active flag. Deactivated reasons stay in
// history but can no longer release a gate.
func (s *Service) Update(ctx context.Context, boardID, reasonID uuid.UUID, text *string, active *bool) (domain.OutcomeReason, error) {
	if text != nil {
		trimmed := strings.TrimSpace(*text)
		if trimmed == "" {
			return domain.OutcomeReason{}, domain.ErrInvalidReason.WithDetails(map[string]string{"text": "required"})
		}
		text = &trimmed
	}
	return s.store.UpdateReason(ctx, boardID, reasonID, text, active)
}

// Reorder sets the display order of reasons to their position in ids.
func (s *Service) Reorder(ctx context.Context, boardID uuid.UUID, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return domain.ErrInvalidReason.WithDetails(map[string]string{"reasonIds": "required"})
	}
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return domain.ErrInvalidReason.WithDetails(map[string]string{"reasonIds": "duplicate " + id.String()})
		}
		seen[id] = struct{}{}
	}
	return s.store.ReorderReasons(ctx, boardID, ids)
}

// SeedDefaults adds the default reasons a board does not have yet.
func (s *Service) SeedDefaults(ctx context.Context, boardID uuid.UUID) (SeedResult, error) {
	if err := s.requireBoard(ctx, boardID); err != nil {
		return SeedResult{}, err
	}
	won, err := s.store.InsertReasonsIfMissing(ctx, boardID, domain.RoleWon, labels(s.defaults.Won))
	if err != nil {
		return SeedResult{}, err
	}
	lost, err := s.store.InsertReasonsIfMissing(ctx, boardID, domain.RoleLost, labels(s.defaults.Lost))
	if err != nil {
		return SeedResult{}, err
	}
	return SeedResult{Won: won, Lost: lost}, nil
}

func (s *Service) requireBoard(ctx context.Context, boardID uuid.UUID) error {
	ok, err := s.store.BoardExists(ctx, boardID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrBoardNotFound
	}
	return nil
}
