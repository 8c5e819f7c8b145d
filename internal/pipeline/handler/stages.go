package handler

import (
	"net/http"

	"pipeline_board_backend/internal/pipeline/transport"
	"pipeline_board_backend/platform/httpkit"
	"pipeline_board_backend/platform/sanitize"

	"github.com/gin-gonic/gin"
)

// ListStages returns the board's stages in display order.
// GET /api/v1/boards/:boardId/stages
func (h *Handler) ListStages(c *gin.Context) {
	boardID, ok := paramID(c, "boardId", msgInvalidBoardID)
	if !ok {
		return
	}
	stages, err := h.engine.ListOrdered(c.Request.Context(), boardID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.FromStages(stages))
}

// CreateStage appends a custom stage before the terminal stages.
// POST /api/v1/boards/:boardId/stages
func (h *Handler) CreateStage(c *gin.Context) {
	boardID, ok := paramID(c, "boardId", msgInvalidBoardID)
	if !ok {
		return
	}
	var req transport.CreateStageRequest
	if !h.bind(c, &req) {
		return
	}

	stage, err := h.engine.AddStage(c.Request.Context(), boardID, sanitize.Label(req.Name), req.Color, transport.ToCadence(req.Cadence))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.FromStage(stage))
}

// UpdateStage renames, recolors or replaces the cadence of a stage.
// PATCH /api/v1/boards/:boardId/stages/:stageId
func (h *Handler) UpdateStage(c *gin.Context) {
	boardID, ok := paramID(c, "boardId", msgInvalidBoardID)
	if !ok {
		return
	}
	stageID, ok := paramID(c, "stageId", msgInvalidStageID)
	if !ok {
		return
	}
	var req transport.UpdateStageRequest
	if !h.bind(c, &req) {
		return
	}

	stage, err := h.engine.UpdateStage(c.Request.Context(), boardID, stageID, sanitize.LabelPtr(req.Name), req.Color, transport.ToCadence(req.Cadence))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.FromStage(stage))
}

// DeleteStage removes an empty custom stage.
// DELETE /api/v1/boards/:boardId/stages/:stageId
func (h *Handler) DeleteStage(c *gin.Context) {
	boardID, ok := paramID(c, "boardId", msgInvalidBoardID)
	if !ok {
		return
	}
	stageID, ok := paramID(c, "stageId", msgInvalidStageID)
	if !ok {
		return
	}
	if err := h.engine.RemoveStage(c.Request.Context(), boardID, stageID); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}

// ReorderStages rewrites the order of the custom stages.
// PUT /api/v1/boards/:boardId/stages/order
func (h *Handler) ReorderStages(c *gin.Context) {
	boardID, ok := paramID(c, "boardId", msgInvalidBoardID)
	if !ok {
		return
	}
	var req transport.ReorderStagesRequest
	if !h.bind(c, &req) {
		return
	}

	stages, err := h.engine.ReorderStages(c.Request.Context(), boardID, req.StageIDs)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.FromStages(stages))
}

// ListStageLeads returns the leads in one stage.
// GET /api/v1/boards/:boardId/stages/:stageId/leads?sort=
func (h *Handler) ListStageLeads(c *gin.Context) {
	boardID, ok := paramID(c, "boardId", msgInvalidBoardID)
	if !ok {
		return
	}
	stageID, ok := paramID(c, "stageId", msgInvalidStageID)
	if !ok {
		return
	}
	var req transport.ListMembersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.ValidationFailed(c, err)
		return
	}

	leads, err := h.engine.MembersOf(c.Request.Context(), boardID, stageID, req.Sort)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.FromLeads(leads))
}

// GetMetrics returns the live aggregates of the board.
// GET /api/v1/boards/:boardId/metrics
func (h *Handler) GetMetrics(c *gin.Context) {
	boardID, ok := paramID(c, "boardId", msgInvalidBoardID)
	if !ok {
		return
	}
	m, err := h.engine.MetricsFor(c.Request.Context(), boardID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, m)
}

// ReloadBoard drops the in-memory copy of a board so the next request reads
// storage again. Used after stages were edited outside this process.
// POST /api/v1/boards/:boardId/reload
func (h *Handler) ReloadBoard(c *gin.Context) {
	boardID, ok := paramID(c, "boardId", msgInvalidBoardID)
	if !ok {
		return
	}
	h.engine.Reload(boardID)
	c.Status(http.StatusNoContent)
}
