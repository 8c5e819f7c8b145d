package reasons

import (
	"context"
	"errors"
	"strings"
	"testing"

	"pipeline_board_backend/internal/pipeline/domain"
	"pipeline_board_backend/internal/pipeline/repository"

	"github.com/google/uuid"
)

type memoryStore struct {
	boards  map[uuid.UUID]bool
	reasons []domain.OutcomeReason
	order   []uuid.UUID
}

func newMemoryStore(boardID uuid.UUID) *memoryStore {
	return &memoryStore{boards: map[uuid.UUID]bool{boardID: true}}
}

func (m *memoryStore) FindReasons(_ context.Context, f repository.ReasonFilter) ([]domain.OutcomeReason, error) {
	var out []domain.OutcomeReason
	for _, r := range m.reasons {
		if r.BoardID != f.BoardID || (f.Outcome != nil && r.AppliesTo != *f.Outcome) || (f.ActiveOnly && !r.Active) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (m *memoryStore) CreateReason(_ context.Context, boardID uuid.UUID, outcome domain.Role, text string) (domain.OutcomeReason, error) {
	r := domain.OutcomeReason{ID: uuid.New(), BoardID: boardID, AppliesTo: outcome, Text: text, Active: true, DisplayOrder: len(m.reasons) + 1}
	m.reasons = append(m.reasons, r)
	return r, nil
}

func (m *memoryStore) UpdateReason(_ context.Context, boardID, reasonID uuid.UUID, text *string, active *bool) (domain.OutcomeReason, error) {
	for i, r := range m.reasons {
		if r.ID == reasonID && r.BoardID == boardID {
			if text != nil {
				m.reasons[i].Text = *text
			}
			if active != nil {
				m.reasons[i].Active = *active
			}
			return m.reasons[i], nil
		}
	}
	return domain.OutcomeReason{}, domain.ErrReasonNotFound
}

func (m *memoryStore) ReorderReasons(_ context.Context, _ uuid.UUID, ids []uuid.UUID) error {
	m.order = ids
	return nil
}

func (m *memoryStore) InsertReasonsIfMissing(ctx context.Context, boardID uuid.UUID, outcome domain.Role, texts []string) (int, error) {
	added := 0
	for _, text := range texts {
		exists := false
		for _, r := range m.reasons {
			if r.BoardID == boardID && r.AppliesTo == outcome && strings.EqualFold(r.Text, text) {
				exists = true
				break
			}
		}
		if !exists {
			_, _ = m.CreateReason(ctx, boardID, outcome, text)
			added++
		}
	}
	return added, nil
}

func (m *memoryStore) BoardExists(_ context.Context, boardID uuid.UUID) (bool, error) {
	return m.boards[boardID], nil
}

func TestEmbeddedDefaultsParse(t *testing.T) {
	d, err := LoadDefaults()
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	if len(d.Won) != 5 || len(d.Lost) != 7 {
		t.Fatalf("expected 5 won and 7 lost defaults, got %d and %d", len(d.Won), len(d.Lost))
	}
}

func TestParseDefaultsRejectsBadSets(t *testing.T) {
	cases := map[string]string{
		"missing label": "won:\n  - key: a\n",
		"duplicate":     "lost:\n  - label: No budget\n  - label: no budget\n",
		"not yaml":      "won: [",
	}
	for name, data := range cases {
		if _, err := ParseDefaults([]byte(data)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestSeedDefaultsIsIdempotent(t *testing.T) {
	boardID := uuid.New()
	store := newMemoryStore(boardID)
	svc, err := New(store)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()

	if _, err := svc.Create(ctx, boardID, domain.RoleLost, "price too high"); err != nil {
		t.Fatalf("create: %v", err)
	}
	res, err := svc.SeedDefaults(ctx, boardID)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if res.Won != 5 || res.Lost != 6 {
		t.Fatalf("expected 5 won and 6 lost added, got %+v", res)
	}
	res, _ = svc.SeedDefaults(ctx, boardID)
	if res.Won != 0 || res.Lost != 0 {
		t.Fatalf("second seed should add nothing, got %+v", res)
	}

	if _, err := svc.SeedDefaults(ctx, uuid.New()); !errors.Is(err, domain.ErrBoardNotFound) {
		t.Fatalf("expected BOARD_NOT_FOUND, got %v", err)
	}
}

func TestCreateAndUpdateValidation(t *testing.T) {
	boardID := uuid.New()
	svc, _ := New(newMemoryStore(boardID))
	ctx := context.Background()

	if _, err := svc.Create(ctx, boardID, domain.RoleCustom, "x"); !errors.Is(err, domain.ErrInvalidReason) {
		t.Fatalf("expected INVALID_REASON for non-terminal outcome, got %v", err)
	}
	if _, err := svc.Create(ctx, boardID, domain.RoleWon, "   "); !errors.Is(err, domain.ErrInvalidReason) {
		t.Fatalf("expected INVALID_REASON for blank text, got %v", err)
	}

	r, err := svc.Create(ctx, boardID, domain.RoleWon, "  Referral  ")
	if err != nil || r.Text != "Referral" {
		t.Fatalf("create: %+v err %v", r, err)
	}
	inactive := false
	updated, err := svc.Update(ctx, boardID, r.ID, nil, &inactive)
	if err != nil || updated.Active {
		t.Fatalf("deactivate: %+v err %v", updated, err)
	}
	active, _ := svc.List(ctx, boardID, nil, true)
	if len(active) != 0 {
		t.Fatalf("inactive reason listed as active: %v", active)
	}
	blank := " "
	if _, err := svc.Update(ctx, boardID, r.ID, &blank, nil); !errors.Is(err, domain.ErrInvalidReason) {
		t.Fatalf("expected INVALID_REASON, got %v", err)
	}
}

func TestReorderRejectsDuplicates(t *testing.T) {
	boardID := uuid.New()
	store := newMemoryStore(boardID)
	svc, _ := New(store)
	id := uuid.New()
	if err := svc.Reorder(context.Background(), boardID, []uuid.UUID{id, id}); !errors.Is(err, domain.ErrInvalidReason) {
		t.Fatalf("expected INVALID_REASON, got %v", err)
	}
	other := uuid.New()
	if err := svc.Reorder(context.Background(), boardID, []uuid.UUID{other, id}); err != nil {
		t.Fatalf("reorder: %v", err)
	}
	if len(store.order) != 2 || store.order[0] != other {
		t.Fatalf("store did not receive order: %v", store.order)
	}
}
