package transport

import (
	"time"

	"pipeline_board_backend/internal/pipeline/domain"
	"pipeline_board_backend/internal/pipeline/metrics"

	"github.com/google/uuid"
)

// Stages

type CadenceStepRequest struct {
	DayOffset   int    `json:"dayOffset" validate:"min=0,max=365"`
	Order       int    `json:"order" validate:"min=0"`
	Channel     string `json:"channel" validate:"required,oneof=email whatsapp call sms task visit"`
	ActionType  string `json:"actionType,omitempty" validate:"max=50"`
	Title       string `json:"title" validate:"required,min=1,max=200"`
	Description string `json:"description,omitempty" validate:"max=2000"`
	Template    string `json:"template,omitempty" validate:"max=5000"`
	Active      *bool  `json:"active,omitempty"`
}

type CreateStageRequest struct {
	Name    string               `json:"name" validate:"required,min=1,max=100"`
	Color   string               `json:"color,omitempty" validate:"omitempty,hexcolor"`
	Cadence []CadenceStepRequest `json:"cadence,omitempty" validate:"omitempty,max=50,dive"`
}

type UpdateStageRequest struct {
	Name    *string              `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	Color   *string              `json:"color,omitempty" validate:"omitempty,hexcolor"`
	Cadence []CadenceStepRequest `json:"cadence,omitempty" validate:"omitempty,max=50,dive"`
}

type ReorderStagesRequest struct {
	StageIDs []uuid.UUID `json:"stageIds" validate:"required,dive,required"`
}

type ListMembersRequest struct {
	Sort string `form:"sort" validate:"omitempty,oneof=entered_desc entered_asc value_desc"`
}

type StageResponse struct {
	ID         uuid.UUID            `json:"id"`
	BoardID    uuid.UUID            `json:"boardId"`
	Name       string               `json:"name"`
	OrderIndex int                  `json:"orderIndex"`
	Role       domain.Role          `json:"role"`
	Color      string               `json:"color,omitempty"`
	Cadence    []domain.CadenceStep `json:"cadence"`
}

type StageListResponse struct {
	Items []StageResponse `json:"items"`
}

type LeadResponse struct {
	ID             uuid.UUID      `json:"id"`
	StageID        uuid.UUID      `json:"stageId"`
	ValueCents     int64          `json:"valueCents"`
	EnteredStageAt time.Time      `json:"enteredStageAt"`
	Fields         map[string]any `json:"fields,omitempty"`
}

type LeadListResponse struct {
	Items []LeadResponse `json:"items"`
	Total int            `json:"total"`
}

// Drag sessions

type BeginDragRequest struct {
	LeadID uuid.UUID `json:"leadId" validate:"required"`
}

type HoverRequest struct {
	StageID uuid.UUID `json:"stageId" validate:"required"`
}

type DropRequest struct {
	StageID uuid.UUID `json:"stageId" validate:"required"`
}

type ReasonRequest struct {
	ReasonID *uuid.UUID `json:"reasonId,omitempty"`
	Text     string     `json:"text,omitempty" validate:"max=500"`
	Notes    string     `json:"notes,omitempty" validate:"max=2000"`
}

type MoveLeadRequest struct {
	StageID uuid.UUID      `json:"stageId" validate:"required"`
	Reason  *ReasonRequest `json:"reason,omitempty"`
}

type AppliedReasonResponse struct {
	Outcome  domain.Role `json:"outcome"`
	ReasonID *uuid.UUID  `json:"reasonId,omitempty"`
	Text     string      `json:"text"`
	Notes    string      `json:"notes,omitempty"`
}

type MoveResponse struct {
	Status      string                 `json:"status"`
	LeadID      uuid.UUID              `json:"leadId"`
	FromStageID uuid.UUID              `json:"fromStageId"`
	ToStageID   uuid.UUID              `json:"toStageId"`
	ToRole      domain.Role            `json:"toRole,omitempty"`
	Lead        *LeadResponse          `json:"lead,omitempty"`
	Reason      *AppliedReasonResponse `json:"reason,omitempty"`
	History     *HistoryEntryResponse  `json:"history,omitempty"`
	Tasks       []TaskResponse         `json:"tasks,omitempty"`
	Metrics     *metrics.BoardMetrics  `json:"metrics,omitempty"`
}

// History

type HistoryEntryResponse struct {
	ID          uuid.UUID      `json:"id"`
	LeadID      uuid.UUID      `json:"leadId"`
	Action      string         `json:"action"`
	Description string         `json:"description"`
	ActorID     uuid.UUID      `json:"actorId"`
	OldStageID  uuid.UUID      `json:"oldStageId"`
	NewStageID  uuid.UUID      `json:"newStageId"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
}

type HistoryListResponse struct {
	Items []HistoryEntryResponse `json:"items"`
}

// Tasks

type TaskResponse struct {
	ID          uuid.UUID         `json:"id"`
	LeadID      uuid.UUID         `json:"leadId"`
	StageID     uuid.UUID         `json:"stageId"`
	DayOffset   int               `json:"dayOffset"`
	Channel     string            `json:"channel"`
	ActionType  string            `json:"actionType,omitempty"`
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	Template    string            `json:"template,omitempty"`
	DueAt       time.Time         `json:"dueAt"`
	Status      domain.TaskStatus `json:"status"`
	CompletedAt *time.Time        `json:"completedAt,omitempty"`
}

type TaskListResponse struct {
	Items []TaskResponse `json:"items"`
}

// Outcome reasons

type ListReasonsRequest struct {
	Outcome    string `form:"outcome" validate:"omitempty,oneof=won lost"`
	ActiveOnly bool   `form:"activeOnly"`
}

type CreateReasonRequest struct {
	Outcome string `json:"outcome" validate:"required,oneof=won lost"`
	Text    string `json:"text" validate:"required,notblank,max=500"`
}

type UpdateReasonRequest struct {
	Text   *string `json:"text,omitempty" validate:"omitempty,notblank,max=500"`
	Active *bool   `json:"active,omitempty"`
}

type ReorderReasonsRequest struct {
	ReasonIDs []uuid.UUID `json:"reasonIds" validate:"required,min=1,dive,required"`
}

type ReasonResponse struct {
	ID           uuid.UUID   `json:"id"`
	AppliesTo    domain.Role `json:"appliesTo"`
	Text         string      `json:"text"`
	Active       bool        `json:"active"`
	DisplayOrder int         `json:"displayOrder"`
}

type ReasonListResponse struct {
	Items []ReasonResponse `json:"items"`
}
