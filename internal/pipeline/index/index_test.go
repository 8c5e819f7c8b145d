package index

import (
	"reflect"
	"testing"
	"time"

	"pipeline_board_backend/internal/pipeline/domain"

	"github.com/google/uuid"
)

var base = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func lead(stageID uuid.UUID, value int64, enteredAgo time.Duration) domain.Lead {
	return domain.Lead{
		ID:             uuid.New(),
		StageID:        stageID,
		ValueCents:     value,
		EnteredStageAt: base.Add(-enteredAgo),
	}
}

func TestNewSkipsLeadsOfUnknownStages(t *testing.T) {
	intake, won := uuid.New(), uuid.New()
	stray := lead(uuid.New(), 0, 0)
	idx, orphans := New([]uuid.UUID{intake, won}, []domain.Lead{lead(intake, 100, time.Hour), stray}, nil)

	if len(orphans) != 1 || orphans[0].ID != stray.ID {
		t.Fatalf("expected stray lead reported as orphan, got %v", orphans)
	}
	if idx.Len() != 1 || idx.Count(intake) != 1 {
		t.Fatalf("expected one indexed lead in intake, got len=%d count=%d", idx.Len(), idx.Count(intake))
	}
	if _, ok := idx.StageOf(stray.ID); ok {
		t.Fatal("orphan must not be indexed")
	}
}

func TestMoveKeepsSingleMembership(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	l := lead(a, 500, time.Hour)
	idx, _ := New([]uuid.UUID{a, b, c}, []domain.Lead{l}, nil)

	at := base.Add(time.Minute)
	from := idx.Move(l.ID, b, at)
	if from != a {
		t.Fatalf("expected move to report previous stage %s, got %s", a, from)
	}
	idx.Move(l.ID, c, at.Add(time.Minute))

	total := 0
	for _, s := range []uuid.UUID{a, b, c} {
		for _, m := range idx.MembersOf(s, nil) {
			if m.ID == l.ID {
				total++
				if s != c {
					t.Fatalf("lead found in stale stage %s", s)
				}
			}
		}
	}
	if total != 1 {
		t.Fatalf("expected lead in exactly one stage, found in %d", total)
	}
	got, _ := idx.Lead(l.ID)
	if !got.EnteredStageAt.Equal(at.Add(time.Minute)) {
		t.Fatalf("entered_stage_at not updated: %v", got.EnteredStageAt)
	}
}

func TestMoveUnknownLeadIsIgnored(t *testing.T) {
	a := uuid.New()
	idx, _ := New([]uuid.UUID{a}, nil, nil)
	if from := idx.Move(uuid.New(), a, base); from != uuid.Nil {
		t.Fatalf("expected nil stage for unknown lead, got %s", from)
	}
	if idx.Count(a) != 0 {
		t.Fatal("unknown lead must not be added")
	}
}

func TestRestoreIsExact(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	l1, l2 := lead(a, 100, 2*time.Hour), lead(b, 200, time.Hour)
	idx, _ := New([]uuid.UUID{a, b}, []domain.Lead{l1, l2}, nil)

	beforeA, beforeB := idx.MembersOf(a, nil), idx.MembersOf(b, nil)
	snap := idx.Snapshot()

	idx.Move(l1.ID, b, base)
	idx.Move(l2.ID, a, base)
	idx.Restore(snap)

	if !reflect.DeepEqual(idx.MembersOf(a, nil), beforeA) || !reflect.DeepEqual(idx.MembersOf(b, nil), beforeB) {
		t.Fatal("restore did not return membership to its snapshot")
	}
	got, _ := idx.Lead(l1.ID)
	if !got.EnteredStageAt.Equal(l1.EnteredStageAt) {
		t.Fatalf("restore did not reset entered_stage_at: %v", got.EnteredStageAt)
	}
	if stage, _ := snap.StageOf(l1.ID); stage != a {
		t.Fatalf("snapshot should still report original stage, got %s", stage)
	}
}

func TestMembersOfOrdering(t *testing.T) {
	a := uuid.New()
	oldCheap := lead(a, 100, 3*time.Hour)
	newMid := lead(a, 500, time.Hour)
	midRich := lead(a, 900, 2*time.Hour)
	idx, _ := New([]uuid.UUID{a}, []domain.Lead{oldCheap, newMid, midRich}, SortByName("entered_desc"))

	tests := []struct {
		name string
		sort SortFunc
		want []uuid.UUID
	}{
		{"default entered desc", nil, []uuid.UUID{newMid.ID, midRich.ID, oldCheap.ID}},
		{"entered asc", SortByName(SortEnteredAsc), []uuid.UUID{oldCheap.ID, midRich.ID, newMid.ID}},
		{"value desc", SortByName(SortValueDesc), []uuid.UUID{midRich.ID, newMid.ID, oldCheap.ID}},
		{"unknown key falls back", SortByName("bogus"), []uuid.UUID{newMid.ID, midRich.ID, oldCheap.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			members := idx.MembersOf(a, tt.sort)
			for i, m := range members {
				if m.ID != tt.want[i] {
					t.Fatalf("position %d: expected %s, got %s", i, tt.want[i], m.ID)
				}
			}
		})
	}
}

func TestTotalsAndStageLifecycle(t *testing.T) {
	a := uuid.New()
	idx, _ := New([]uuid.UUID{a}, []domain.Lead{lead(a, 150, 0), lead(a, 250, 0)}, nil)
	if got := idx.TotalValue(a); got != 400 {
		t.Fatalf("expected total 400, got %d", got)
	}

	fresh := uuid.New()
	idx.AddStage(fresh)
	if idx.Count(fresh) != 0 || idx.StageCount() != 2 {
		t.Fatalf("new stage must start empty, stages=%d", idx.StageCount())
	}
	if idx.RemoveStage(a) {
		t.Fatal("removing a stage with leads must fail")
	}
	if !idx.RemoveStage(fresh) || idx.StageCount() != 1 {
		t.Fatal("removing an empty stage must succeed")
	}
}
