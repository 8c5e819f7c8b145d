package registry

import (
	"errors"
	"testing"

	"pipeline_board_backend/internal/pipeline/domain"

	"github.com/google/uuid"
)

type testBoard struct {
	id       uuid.UUID
	intake   domain.Stage
	proposal domain.Stage
	qualify  domain.Stage
	won      domain.Stage
	lost     domain.Stage
}

func newTestBoard() testBoard {
	boardID := uuid.New()
	mk := func(name string, idx int, role domain.Role) domain.Stage {
		return domain.Stage{ID: uuid.New(), BoardID: boardID, Name: name, OrderIndex: idx, Role: role}
	}
	return testBoard{
		id:       boardID,
		intake:   mk("Intake", 0, domain.RoleIntake),
		proposal: mk("Proposal", 1, domain.RoleCustom),
		qualify:  mk("Qualify", 2, domain.RoleCustom),
		won:      mk("Won", 998, domain.RoleWon),
		lost:     mk("Lost", 999, domain.RoleLost),
	}
}

func (b testBoard) stages() []domain.Stage {
	// deliberately shuffled: the registry sorts on load
	return []domain.Stage{b.won, b.qualify, b.intake, b.lost, b.proposal}
}

func assertAnchors(t *testing.T, stages []domain.Stage) {
	t.Helper()
	n := len(stages)
	if stages[0].Role != domain.RoleIntake {
		t.Fatalf("expected intake first, got %q", stages[0].Role)
	}
	if stages[n-2].Role != domain.RoleWon || stages[n-1].Role != domain.RoleLost {
		t.Fatalf("expected won, lost last, got %q, %q", stages[n-2].Role, stages[n-1].Role)
	}
	counts := map[domain.Role]int{}
	for i, s := range stages {
		counts[s.Role]++
		if i > 0 && s.OrderIndex <= stages[i-1].OrderIndex {
			t.Fatalf("order index not strictly increasing at %d: %d <= %d", i, s.OrderIndex, stages[i-1].OrderIndex)
		}
	}
	if counts[domain.RoleIntake] != 1 || counts[domain.RoleWon] != 1 || counts[domain.RoleLost] != 1 {
		t.Fatalf("expected exactly one of each anchor, got %v", counts)
	}
}

func TestNewSortsAndKeepsAnchors(t *testing.T) {
	b := newTestBoard()
	r, err := New(b.id, b.stages())
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ordered := r.ListOrdered()
	assertAnchors(t, ordered)
	if ordered[1].ID != b.proposal.ID || ordered[2].ID != b.qualify.ID {
		t.Fatalf("expected Proposal then Qualify between anchors")
	}
}

func TestNewRejectsBrokenBoards(t *testing.T) {
	b := newTestBoard()
	misplacedWon := b.won
	misplacedWon.OrderIndex = 1
	foreign := b.qualify
	foreign.BoardID = uuid.New()
	secondIntake := b.proposal
	secondIntake.Role = domain.RoleIntake

	tests := []struct {
		name   string
		stages []domain.Stage
	}{
		{"missing lost", []domain.Stage{b.intake, b.won}},
		{"two intakes", []domain.Stage{b.intake, secondIntake, b.won, b.lost}},
		{"won before custom", []domain.Stage{b.intake, misplacedWon, b.qualify, b.lost}},
		{"foreign stage", []domain.Stage{b.intake, foreign, b.won, b.lost}},
		{"duplicate id", []domain.Stage{b.intake, b.qualify, b.qualify, b.won, b.lost}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(b.id, tc.stages); !errors.Is(err, domain.ErrBrokenBoard) {
				t.Fatalf("expected ErrBrokenBoard, got %v", err)
			}
		})
	}
}

func TestReorderCustomSwapsCustomsOnly(t *testing.T) {
	b := newTestBoard()
	r, err := New(b.id, b.stages())
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	if err := r.ReorderCustom([]uuid.UUID{b.qualify.ID, b.proposal.ID}); err != nil {
		t.Fatalf("ReorderCustom returned error: %v", err)
	}

	qualify, _ := r.Stage(b.qualify.ID)
	proposal, _ := r.Stage(b.proposal.ID)
	if qualify.OrderIndex >= proposal.OrderIndex {
		t.Fatalf("expected Qualify (%d) before Proposal (%d)", qualify.OrderIndex, proposal.OrderIndex)
	}
	intake, _ := r.Stage(b.intake.ID)
	won, _ := r.Stage(b.won.ID)
	lost, _ := r.Stage(b.lost.ID)
	if intake.OrderIndex != 0 || won.OrderIndex != 998 || lost.OrderIndex != 999 {
		t.Fatalf("anchors moved: intake=%d won=%d lost=%d", intake.OrderIndex, won.OrderIndex, lost.OrderIndex)
	}
	assertAnchors(t, r.ListOrdered())
}

func TestReorderCustomRejectsInvalidOrders(t *testing.T) {
	b := newTestBoard()
	tests := []struct {
		name  string
		order []uuid.UUID
	}{
		{"includes anchor", []uuid.UUID{b.qualify.ID, b.won.ID}},
		{"omits custom", []uuid.UUID{b.qualify.ID}},
		{"unknown id", []uuid.UUID{b.qualify.ID, uuid.New()}},
		{"duplicate", []uuid.UUID{b.qualify.ID, b.qualify.ID}},
		{"anchor added to full list", []uuid.UUID{b.qualify.ID, b.proposal.ID, b.intake.ID}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r, err := New(b.id, b.stages())
			if err != nil {
				t.Fatalf("New returned error: %v", err)
			}
			before := r.ListOrdered()
			if err := r.ReorderCustom(tc.order); !errors.Is(err, domain.ErrInvalidOrder) {
				t.Fatalf("expected ErrInvalidOrder, got %v", err)
			}
			after := r.ListOrdered()
			for i := range before {
				if before[i].ID != after[i].ID || before[i].OrderIndex != after[i].OrderIndex {
					t.Fatalf("registry changed after rejected reorder at %d", i)
				}
			}
		})
	}
}

func TestAddAndRemoveCustom(t *testing.T) {
	b := newTestBoard()
	r, err := New(b.id, b.stages())
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	added, err := r.AddCustom("Negotiation", "#999", nil)
	if err != nil {
		t.Fatalf("AddCustom returned error: %v", err)
	}
	ordered := r.ListOrdered()
	assertAnchors(t, ordered)
	if ordered[3].ID != added.ID || added.OrderIndex != 3 {
		t.Fatalf("expected new stage right before won, got index %d", added.OrderIndex)
	}

	if err := r.RemoveCustom(b.won.ID); !errors.Is(err, domain.ErrAnchorStage) {
		t.Fatalf("expected ErrAnchorStage, got %v", err)
	}
	if err := r.RemoveCustom(b.proposal.ID); err != nil {
		t.Fatalf("RemoveCustom returned error: %v", err)
	}
	if r.IsValidDestination(b.proposal.ID) {
		t.Fatalf("removed stage is still a valid destination")
	}
	ordered = r.ListOrdered()
	assertAnchors(t, ordered)
	if ordered[1].ID != b.qualify.ID || ordered[1].OrderIndex != 1 {
		t.Fatalf("expected customs renumbered from 1")
	}
}

func TestUpdateStageKeepsAnchorRole(t *testing.T) {
	b := newTestBoard()
	r, err := New(b.id, b.stages())
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	name := "Closed Won"
	updated, err := r.UpdateStage(b.won.ID, &name, nil, nil)
	if err != nil {
		t.Fatalf("UpdateStage returned error: %v", err)
	}
	if updated.Role != domain.RoleWon || updated.OrderIndex != 998 {
		t.Fatalf("anchor lost its role or position: %+v", updated)
	}
	blank := "  "
	if _, err := r.UpdateStage(b.won.ID, &blank, nil, nil); !errors.Is(err, domain.ErrInvalidStage) {
		t.Fatalf("expected ErrInvalidStage for blank name, got %v", err)
	}
}

func TestIsValidDestinationAndRoleOf(t *testing.T) {
	b := newTestBoard()
	r, err := New(b.id, b.stages())
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if !r.IsValidDestination(b.qualify.ID) {
		t.Fatalf("expected qualify to be a valid destination")
	}
	if r.IsValidDestination(uuid.New()) {
		t.Fatalf("unknown stage must not be a valid destination")
	}
	if role, _ := r.RoleOf(b.lost.ID); role != domain.RoleLost {
		t.Fatalf("expected lost role, got %q", role)
	}
}

func TestDefaultStagesFormValidBoard(t *testing.T) {
	boardID := uuid.New()
	r, err := New(boardID, DefaultStages(boardID))
	if err != nil {
		t.Fatalf("default stages rejected: %v", err)
	}
	assertAnchors(t, r.ListOrdered())
}
