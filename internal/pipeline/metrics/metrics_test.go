package metrics

import (
	"math"
	"testing"

	"pipeline_board_backend/internal/pipeline/domain"

	"github.com/google/uuid"
)

type fakeReader map[uuid.UUID][]int64

func (f fakeReader) Count(id uuid.UUID) int { return len(f[id]) }

func (f fakeReader) TotalValue(id uuid.UUID) int64 {
	var sum int64
	for _, v := range f[id] {
		sum += v
	}
	return sum
}

func board() []domain.Stage {
	return []domain.Stage{
		{ID: uuid.New(), Role: domain.RoleIntake},
		{ID: uuid.New(), Role: domain.RoleCustom},
		{ID: uuid.New(), Role: domain.RoleWon},
		{ID: uuid.New(), Role: domain.RoleLost},
	}
}

func TestComputeTotalsMatchPerStage(t *testing.T) {
	stages := board()
	reader := fakeReader{
		stages[0].ID: {100, 200},
		stages[1].ID: {300},
		stages[2].ID: {1000, 500},
		stages[3].ID: {50, 50, 50},
	}
	m := Compute(uuid.New(), stages, reader)

	sumCount, sumValue := 0, int64(0)
	for _, sm := range m.PerStage {
		sumCount += sm.Count
		sumValue += sm.TotalValueCents
	}
	if m.TotalLeads != sumCount || m.TotalLeads != 8 {
		t.Fatalf("total leads %d does not match per-stage sum %d", m.TotalLeads, sumCount)
	}
	if m.TotalValueCents != sumValue || m.TotalValueCents != 2250 {
		t.Fatalf("total value %d does not match per-stage sum %d", m.TotalValueCents, sumValue)
	}
	if want := 2.0 / 8.0; math.Abs(m.ConversionRate-want) > 1e-9 {
		t.Fatalf("expected conversion %v, got %v", want, m.ConversionRate)
	}
	if m.Won != 2 || m.Lost != 3 || m.Active != 3 {
		t.Fatalf("unexpected role split won=%d lost=%d active=%d", m.Won, m.Lost, m.Active)
	}
}

func TestComputeEmptyBoard(t *testing.T) {
	stages := board()
	m := Compute(uuid.New(), stages, fakeReader{})
	if m.TotalLeads != 0 || m.ConversionRate != 0 {
		t.Fatalf("expected zero metrics, got %+v", m)
	}
	if len(m.PerStage) != len(stages) {
		t.Fatalf("every stage should be reported, got %d", len(m.PerStage))
	}
}
