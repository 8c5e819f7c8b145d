package handler

import (
	"net/http"

	"pipeline_board_backend/internal/pipeline/transport"
	"pipeline_board_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// ListLeadHistory returns the audit trail of a lead, oldest first.
// GET /api/v1/boards/:boardId/leads/:leadId/history
func (h *Handler) ListLeadHistory(c *gin.Context) {
	boardID, ok := paramID(c, "boardId", msgInvalidBoardID)
	if !ok {
		return
	}
	leadID, ok := paramID(c, "leadId", msgInvalidLeadID)
	if !ok {
		return
	}
	entries, err := h.records.ListLeadHistory(c.Request.Context(), boardID, leadID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.FromHistory(entries))
}

// ListLeadTasks returns the cadence tasks of a lead ordered by due date.
// GET /api/v1/boards/:boardId/leads/:leadId/tasks
func (h *Handler) ListLeadTasks(c *gin.Context) {
	boardID, ok := paramID(c, "boardId", msgInvalidBoardID)
	if !ok {
		return
	}
	leadID, ok := paramID(c, "leadId", msgInvalidLeadID)
	if !ok {
		return
	}
	tasks, err := h.records.ListLeadTasks(c.Request.Context(), boardID, leadID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.FromTasks(tasks))
}

// GetTaskStats summarizes the tasks of a board.
// GET /api/v1/boards/:boardId/tasks/stats
func (h *Handler) GetTaskStats(c *gin.Context) {
	boardID, ok := paramID(c, "boardId", msgInvalidBoardID)
	if !ok {
		return
	}
	stats, err := h.records.TaskStats(c.Request.Context(), boardID, h.now())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, stats)
}

// CompleteTask marks a task done. Completing twice keeps the first timestamp.
// POST /api/v1/boards/:boardId/tasks/:taskId/complete
func (h *Handler) CompleteTask(c *gin.Context) {
	boardID, ok := paramID(c, "boardId", msgInvalidBoardID)
	if !ok {
		return
	}
	taskID, ok := paramID(c, "taskId", msgInvalidTaskID)
	if !ok {
		return
	}
	task, err := h.records.CompleteTask(c.Request.Context(), boardID, taskID, h.now())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.FromTask(task))
}

// DeleteTask removes a task.
// DELETE /api/v1/boards/:boardId/tasks/:taskId
func (h *Handler) DeleteTask(c *gin.Context) {
	boardID, ok := paramID(c, "boardId", msgInvalidBoardID)
	if !ok {
		return
	}
	taskID, ok := paramID(c, "taskId", msgInvalidTaskID)
	if !ok {
		return
	}
	if err := h.records.DeleteTask(c.Request.Context(), boardID, taskID); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}
