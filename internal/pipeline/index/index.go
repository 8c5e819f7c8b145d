// Package index keeps the in-memory grouping of a board's leads by stage.
package index

import (
	"maps"
	"slices"
	"strings"
	"time"

	"pipeline_board_backend/internal/pipeline/domain"

	"github.com/google/uuid"
)

// SortFunc orders leads inside a stage. It follows the cmp convention.
type SortFunc func(a, b domain.Lead) int

// Member sort keys accepted by SortByName.
const (
	SortEnteredDesc = "entered_desc"
	SortEnteredAsc  = "entered_asc"
	SortValueDesc   = "value_desc"
)

// SortByEnteredDesc lists the most recent arrivals first.
func SortByEnteredDesc(a, b domain.Lead) int {
	if c := b.EnteredStageAt.Compare(a.EnteredStageAt); c != 0 {
		return c
	}
	return strings.Compare(a.ID.String(), b.ID.String())
}

// SortByEnteredAsc lists the longest-waiting leads first.
func SortByEnteredAsc(a, b domain.Lead) int {
	if c := a.EnteredStageAt.Compare(b.EnteredStageAt); c != 0 {
		return c
	}
	return strings.Compare(a.ID.String(), b.ID.String())
}

// SortByValueDesc lists the biggest deals first.
func SortByValueDesc(a, b domain.Lead) int {
	switch {
	case a.ValueCents > b.ValueCents:
		return -1
	case a.ValueCents < b.ValueCents:
		return 1
	}
	return SortByEnteredDesc(a, b)
}

// SortByName resolves a configured key; unknown keys fall back to entered_desc.
func SortByName(name string) SortFunc {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case SortEnteredAsc:
		return SortByEnteredAsc
	case SortValueDesc:
		return SortByValueDesc
	default:
		return SortByEnteredDesc
	}
}

// Index maps leads to stages in both directions so membership reads and
// moves are O(1). It is not safe for concurrent use; the owning board guards it.
type Index struct {
	leads   map[uuid.UUID]domain.Lead
	members map[uuid.UUID]map[uuid.UUID]struct{}
	sort    SortFunc
}

// New builds an index over stageIDs. Leads pointing at a stage outside
// stageIDs are skipped and returned so the caller can report them.
func New(stageIDs []uuid.UUID, leads []domain.Lead, sort SortFunc) (*Index, []domain.Lead) {
	if sort == nil {
		sort = SortByEnteredDesc
	}
	idx := &Index{
		leads:   make(map[uuid.UUID]domain.Lead, len(leads)),
		members: make(map[uuid.UUID]map[uuid.UUID]struct{}, len(stageIDs)),
		sort:    sort,
	}
	for _, id := range stageIDs {
		idx.members[id] = make(map[uuid.UUID]struct{})
	}

	var orphans []domain.Lead
	for _, lead := range leads {
		set, ok := idx.members[lead.StageID]
		if !ok {
			orphans = append(orphans, lead)
			continue
		}
		idx.leads[lead.ID] = lead
		set[lead.ID] = struct{}{}
	}
	return idx, orphans
}

// MembersOf returns the leads currently in stageID, ordered by sort or the
// index default when sort is nil.
func (i *Index) MembersOf(stageID uuid.UUID, sort SortFunc) []domain.Lead {
	set := i.members[stageID]
	out := make([]domain.Lead, 0, len(set))
	for id := range set {
		out = append(out, i.leads[id])
	}
	if sort == nil {
		sort = i.sort
	}
	slices.SortFunc(out, sort)
	return out
}

// Count returns how many leads sit in stageID.
func (i *Index) Count(stageID uuid.UUID) int {
	return len(i.members[stageID])
}

// TotalValue sums ValueCents over the leads in stageID.
func (i *Index) TotalValue(stageID uuid.UUID) int64 {
	var total int64
	for id := range i.members[stageID] {
		total += i.leads[id].ValueCents
	}
	return total
}

// Len returns the number of indexed leads.
func (i *Index) Len() int {
	return len(i.leads)
}

// StageCount returns the number of registered stages, empty ones included.
func (i *Index) StageCount() int {
	return len(i.members)
}

// Lead returns the indexed copy of a lead.
func (i *Index) Lead(id uuid.UUID) (domain.Lead, bool) {
	lead, ok := i.leads[id]
	return lead, ok
}

// StageOf returns the stage currently holding a lead.
func (i *Index) StageOf(id uuid.UUID) (uuid.UUID, bool) {
	lead, ok := i.leads[id]
	if !ok {
		return uuid.Nil, false
	}
	return lead.StageID, true
}

// Move puts a lead into toStageID, stamps its stage entry time and returns
// the stage it left. Unknown leads are ignored and yield uuid.Nil; callers
// validate lead and stage before moving.
func (i *Index) Move(leadID, toStageID uuid.UUID, at time.Time) uuid.UUID {
	lead, ok := i.leads[leadID]
	if !ok {
		return uuid.Nil
	}
	from := lead.StageID
	if set, ok := i.members[from]; ok {
		delete(set, leadID)
	}
	to, ok := i.members[toStageID]
	if !ok {
		to = make(map[uuid.UUID]struct{})
		i.members[toStageID] = to
	}
	to[leadID] = struct{}{}
	lead.StageID = toStageID
	lead.EnteredStageAt = at
	i.leads[leadID] = lead
	return from
}

// Upsert adds a lead or refreshes its payload, moving it if its stage changed.
func (i *Index) Upsert(lead domain.Lead) {
	if prev, ok := i.leads[lead.ID]; ok {
		delete(i.members[prev.StageID], lead.ID)
	}
	set, ok := i.members[lead.StageID]
	if !ok {
		set = make(map[uuid.UUID]struct{})
		i.members[lead.StageID] = set
	}
	set[lead.ID] = struct{}{}
	i.leads[lead.ID] = lead
}

// AddStage registers an empty stage.
func (i *Index) AddStage(stageID uuid.UUID) {
	if _, ok := i.members[stageID]; !ok {
		i.members[stageID] = make(map[uuid.UUID]struct{})
	}
}

// RemoveStage drops an empty stage. It reports false if leads remain.
func (i *Index) RemoveStage(stageID uuid.UUID) bool {
	if len(i.members[stageID]) > 0 {
		return false
	}
	delete(i.members, stageID)
	return true
}

// Snapshot is an immutable copy of an index's membership.
type Snapshot struct {
	leads map[uuid.UUID]domain.Lead
}

// Snapshot captures the current state for a later Restore.
func (i *Index) Snapshot() Snapshot {
	return Snapshot{leads: maps.Clone(i.leads)}
}

// StageOf returns the stage a lead occupied when the snapshot was taken.
func (s Snapshot) StageOf(id uuid.UUID) (uuid.UUID, bool) {
	lead, ok := s.leads[id]
	return lead.StageID, ok
}

// Restore resets membership to a snapshot. Stages registered since the
// snapshot stay registered, empty.
func (i *Index) Restore(s Snapshot) {
	for stageID := range i.members {
		i.members[stageID] = make(map[uuid.UUID]struct{})
	}
	i.leads = maps.Clone(s.leads)
	for id, lead := range i.leads {
		set, ok := i.members[lead.StageID]
		if !ok {
			set = make(map[uuid.UUID]struct{})
			i.members[lead.StageID] = set
		}
		set[id] = struct{}{}
	}
}
