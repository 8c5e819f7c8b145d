package transport

import (
	"pipeline_board_backend/internal/pipeline/domain"
	"pipeline_board_backend/platform/sanitize"
)

// ToCadence converts request steps into domain steps. Steps default to active.
// Templates are kept verbatim since they may carry message markup.
func ToCadence(in []CadenceStepRequest) []domain.CadenceStep {
	if in == nil {
		return nil
	}
	out := make([]domain.CadenceStep, 0, len(in))
	for _, s := range in {
		active := true
		if s.Active != nil {
			active = *s.Active
		}
		out = append(out, domain.CadenceStep{
			DayOffset:   s.DayOffset,
			Order:       s.Order,
			Channel:     s.Channel,
			ActionType:  s.ActionType,
			Title:       sanitize.Label(s.Title),
			Description: sanitize.Text(s.Description),
			Template:    s.Template,
			Active:      active,
		})
	}
	return out
}

// ToReasonInput converts a reason request into the gate input.
func ToReasonInput(r ReasonRequest) domain.ReasonInput {
	return domain.ReasonInput{ReasonID: r.ReasonID, Text: sanitize.Label(r.Text), Notes: sanitize.Text(r.Notes)}
}

func FromStage(s domain.Stage) StageResponse {
	cadence := s.Cadence
	if cadence == nil {
		cadence = []domain.CadenceStep{}
	}
	return StageResponse{
		ID:         s.ID,
		BoardID:    s.BoardID,
		Name:       s.Name,
		OrderIndex: s.OrderIndex,
		Role:       s.Role,
		Color:      s.Color,
		Cadence:    cadence,
	}
}

func FromStages(stages []domain.Stage) StageListResponse {
	items := make([]StageResponse, 0, len(stages))
	for _, s := range stages {
		items = append(items, FromStage(s))
	}
	return StageListResponse{Items: items}
}

func FromLead(l domain.Lead) LeadResponse {
	return LeadResponse{
		ID:             l.ID,
		StageID:        l.StageID,
		ValueCents:     l.ValueCents,
		EnteredStageAt: l.EnteredStageAt,
		Fields:         l.Fields,
	}
}

func FromLeads(leads []domain.Lead) LeadListResponse {
	items := make([]LeadResponse, 0, len(leads))
	for _, l := range leads {
		items = append(items, FromLead(l))
	}
	return LeadListResponse{Items: items, Total: len(items)}
}

func FromHistoryEntry(e domain.HistoryEntry) HistoryEntryResponse {
	return HistoryEntryResponse{
		ID:          e.ID,
		LeadID:      e.LeadID,
		Action:      e.Action,
		Description: e.Description,
		ActorID:     e.ActorID,
		OldStageID:  e.OldStageID,
		NewStageID:  e.NewStageID,
		Metadata:    e.Metadata,
		Timestamp:   e.Timestamp,
	}
}

func FromHistory(entries []domain.HistoryEntry) HistoryListResponse {
	items := make([]HistoryEntryResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, FromHistoryEntry(e))
	}
	return HistoryListResponse{Items: items}
}

func FromTask(t domain.Task) TaskResponse {
	return TaskResponse{
		ID:          t.ID,
		LeadID:      t.LeadID,
		StageID:     t.StageID,
		DayOffset:   t.DayOffset,
		Channel:     t.Channel,
		ActionType:  t.ActionType,
		Title:       t.Title,
		Description: t.Description,
		Template:    t.Template,
		DueAt:       t.DueAt,
		Status:      t.Status,
		CompletedAt: t.CompletedAt,
	}
}

func FromTasks(tasks []domain.Task) TaskListResponse {
	items := make([]TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		items = append(items, FromTask(t))
	}
	return TaskListResponse{Items: items}
}

func FromReason(r domain.OutcomeReason) ReasonResponse {
	return ReasonResponse{
		ID:           r.ID,
		AppliesTo:    r.AppliesTo,
		Text:         r.Text,
		Active:       r.Active,
		DisplayOrder: r.DisplayOrder,
	}
}

func FromReasons(reasons []domain.OutcomeReason) ReasonListResponse {
	items := make([]ReasonResponse, 0, len(reasons))
	for _, r := range reasons {
		items = append(items, FromReason(r))
	}
	return ReasonListResponse{Items: items}
}
