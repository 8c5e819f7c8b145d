package handler

import (
	"net/http"

	"pipeline_board_backend/internal/pipeline/domain"
	"pipeline_board_backend/internal/pipeline/transport"
	"pipeline_board_backend/platform/httpkit"
	"pipeline_board_backend/platform/sanitize"

	"github.com/gin-gonic/gin"
)

// ListReasons returns the outcome reasons of a board.
// GET /api/v1/boards/:boardId/reasons?outcome=won|lost&activeOnly=true
func (h *Handler) ListReasons(c *gin.Context) {
	boardID, ok := paramID(c, "boardId", msgInvalidBoardID)
	if !ok {
		return
	}
	var req transport.ListReasonsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.ValidationFailed(c, err)
		return
	}

	var outcome *domain.Role
	if req.Outcome != "" {
		role := domain.Role(req.Outcome)
		outcome = &role
	}
	list, err := h.reasons.List(c.Request.Context(), boardID, outcome, req.ActiveOnly)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.FromReasons(list))
}

// CreateReason adds a predefined reason at the end of its outcome's list.
// POST /api/v1/boards/:boardId/reasons
func (h *Handler) CreateReason(c *gin.Context) {
	boardID, ok := paramID(c, "boardId", msgInvalidBoardID)
	if !ok {
		return
	}
	var req transport.CreateReasonRequest
	if !h.bind(c, &req) {
		return
	}

	reason, err := h.reasons.Create(c.Request.Context(), boardID, domain.Role(req.Outcome), sanitize.Label(req.Text))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.FromReason(reason))
}

// UpdateReason changes the text or active flag of a reason.
// PATCH /api/v1/boards/:boardId/reasons/:reasonId
func (h *Handler) UpdateReason(c *gin.Context) {
	boardID, ok := paramID(c, "boardId", msgInvalidBoardID)
	if !ok {
		return
	}
	reasonID, ok := paramID(c, "reasonId", msgInvalidReason)
	if !ok {
		return
	}
	var req transport.UpdateReasonRequest
	if !h.bind(c, &req) {
		return
	}

	reason, err := h.reasons.Update(c.Request.Context(), boardID, reasonID, sanitize.LabelPtr(req.Text), req.Active)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.FromReason(reason))
}

// ReorderReasons sets the display order of reasons to the given sequence.
// PUT /api/v1/boards/:boardId/reasons/order
func (h *Handler) ReorderReasons(c *gin.Context) {
	boardID, ok := paramID(c, "boardId", msgInvalidBoardID)
	if !ok {
		return
	}
	var req transport.ReorderReasonsRequest
	if !h.bind(c, &req) {
		return
	}
	if err := h.reasons.Reorder(c.Request.Context(), boardID, req.ReasonIDs); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}

// SeedDefaultReasons inserts the default won and lost reasons a board lacks.
// POST /api/v1/boards/:boardId/reasons/defaults
func (h *Handler) SeedDefaultReasons(c *gin.Context) {
	boardID, ok := paramID(c, "boardId", msgInvalidBoardID)
	if !ok {
		return
	}
	res, err := h.reasons.SeedDefaults(c.Request.Context(), boardID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, res)
}
