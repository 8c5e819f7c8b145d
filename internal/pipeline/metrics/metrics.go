// Package metrics derives board aggregates from the lead index. Nothing here
// is stored; every read recomputes.
package metrics

import (
	"pipeline_board_backend/internal/pipeline/domain"

	"github.com/google/uuid"
)

// Reader is the read side of the lead index the aggregator needs.
type Reader interface {
	Count(stageID uuid.UUID) int
	TotalValue(stageID uuid.UUID) int64
}

// StageMetrics are the aggregates of one stage.
type StageMetrics struct {
	Count           int   `json:"count"`
	TotalValueCents int64 `json:"totalValueCents"`
}

// BoardMetrics are the aggregates of one board.
type BoardMetrics struct {
	BoardID         uuid.UUID                  `json:"boardId"`
	PerStage        map[uuid.UUID]StageMetrics `json:"perStage"`
	TotalLeads      int                        `json:"totalLeads"`
	TotalValueCents int64                      `json:"totalValueCents"`
	Won             int                        `json:"won"`
	Lost            int                        `json:"lost"`
	Active          int                        `json:"active"`
	ConversionRate  float64                    `json:"conversionRate"`
}

// Compute aggregates stages over r. Conversion rate is won / (won + lost +
// active) and zero for an empty board.
func Compute(boardID uuid.UUID, stages []domain.Stage, r Reader) BoardMetrics {
	m := BoardMetrics{
		BoardID:  boardID,
		PerStage: make(map[uuid.UUID]StageMetrics, len(stages)),
	}
	for _, s := range stages {
		sm := StageMetrics{Count: r.Count(s.ID), TotalValueCents: r.TotalValue(s.ID)}
		m.PerStage[s.ID] = sm
		m.TotalLeads += sm.Count
		m.TotalValueCents += sm.TotalValueCents

		switch s.Role {
		case domain.RoleWon:
			m.Won += sm.Count
		case domain.RoleLost:
			m.Lost += sm.Count
		default:
			m.Active += sm.Count
		}
	}
	if denom := m.Won + m.Lost + m.Active; denom > 0 {
		m.ConversionRate = float64(m.Won) / float64(denom)
	}
	return m
}
