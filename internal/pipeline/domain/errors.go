package domain

import "pipeline_board_backend/platform/apperr"

// Engine error taxonomy. Match with errors.Is; wrapped copies keep the code.
var (
	ErrInvalidOrder       = apperr.Validation("INVALID_ORDER", "stage order violates anchor rules")
	ErrInvalidDestination = apperr.Validation("INVALID_DESTINATION", "destination stage is not part of this board")
	ErrEmptyReason        = apperr.Validation("EMPTY_REASON", "an outcome reason is required")
	ErrUnknownReason      = apperr.Validation("UNKNOWN_REASON", "outcome reason does not exist for this outcome")
	ErrGateNotPending     = apperr.Validation("GATE_NOT_PENDING", "transition is not awaiting a reason")
	ErrAlreadyDragging    = apperr.Conflict("ALREADY_DRAGGING", "another move is in progress on this board")
	ErrPersistenceFailed  = apperr.Unavailable("PERSISTENCE_FAILED", "the move could not be saved")
	ErrSessionNotFound    = apperr.NotFound("SESSION_NOT_FOUND", "drag session not found")
	ErrBoardNotFound      = apperr.NotFound("BOARD_NOT_FOUND", "board not found")
	ErrLeadNotFound       = apperr.NotFound("LEAD_NOT_FOUND", "lead not found")
	ErrStageNotFound      = apperr.NotFound("STAGE_NOT_FOUND", "stage not found")
	ErrStageInUse         = apperr.Conflict("STAGE_IN_USE", "stage still holds leads")
	ErrInvalidStage       = apperr.Validation("INVALID_STAGE", "stage data is invalid")
	ErrAnchorStage        = apperr.Validation("ANCHOR_STAGE", "anchor stages cannot be changed this way")
	ErrBrokenBoard        = apperr.Validation("BROKEN_BOARD", "board does not have exactly one intake, won and lost stage")
	ErrTaskNotFound       = apperr.NotFound("TASK_NOT_FOUND", "task not found")
	ErrReasonNotFound     = apperr.NotFound("REASON_NOT_FOUND", "outcome reason not found")
	ErrInvalidReason      = apperr.Validation("INVALID_REASON", "outcome reason data is invalid")
)
