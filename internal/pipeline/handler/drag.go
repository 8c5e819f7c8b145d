package handler

import (
	"net/http"

	"pipeline_board_backend/internal/pipeline/board"
	"pipeline_board_backend/internal/pipeline/domain"
	"pipeline_board_backend/internal/pipeline/transport"
	"pipeline_board_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// sessionFor resolves the :sessionId param and checks it belongs to :boardId
// and was opened by the caller. Any other session is reported as missing.
func (h *Handler) sessionFor(c *gin.Context) (board.SessionInfo, bool) {
	boardID, ok := paramID(c, "boardId", msgInvalidBoardID)
	if !ok {
		return board.SessionInfo{}, false
	}
	sessionID, ok := paramID(c, "sessionId", msgInvalidSession)
	if !ok {
		return board.SessionInfo{}, false
	}
	actorID, ok := mustActor(c)
	if !ok {
		return board.SessionInfo{}, false
	}
	info, found := h.engine.Session(sessionID)
	if !found || info.BoardID != boardID || info.ActorID != actorID {
		httpkit.HandleError(c, domain.ErrSessionNotFound)
		return board.SessionInfo{}, false
	}
	return info, true
}

// BeginDrag opens a drag session for a lead.
// POST /api/v1/boards/:boardId/drag
func (h *Handler) BeginDrag(c *gin.Context) {
	boardID, ok := paramID(c, "boardId", msgInvalidBoardID)
	if !ok {
		return
	}
	actorID, ok := mustActor(c)
	if !ok {
		return
	}
	var req transport.BeginDragRequest
	if !h.bind(c, &req) {
		return
	}

	info, err := h.engine.Begin(c.Request.Context(), boardID, req.LeadID, actorID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, info)
}

// GetDrag returns the state of an open drag session.
// GET /api/v1/boards/:boardId/drag/:sessionId
func (h *Handler) GetDrag(c *gin.Context) {
	info, ok := h.sessionFor(c)
	if !ok {
		return
	}
	httpkit.OK(c, info)
}

// Hover reports how a drop on a stage would be treated.
// POST /api/v1/boards/:boardId/drag/:sessionId/hover
func (h *Handler) Hover(c *gin.Context) {
	info, ok := h.sessionFor(c)
	if !ok {
		return
	}
	var req transport.HoverRequest
	if !h.bind(c, &req) {
		return
	}

	fb, err := h.engine.Hover(c.Request.Context(), info.ID, req.StageID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, fb)
}

// Drop moves the dragged lead into a stage, or parks the move until a
// reason is supplied when the stage closes the deal.
// POST /api/v1/boards/:boardId/drag/:sessionId/drop
func (h *Handler) Drop(c *gin.Context) {
	info, ok := h.sessionFor(c)
	if !ok {
		return
	}
	var req transport.DropRequest
	if !h.bind(c, &req) {
		return
	}

	res, err := h.engine.Drop(c.Request.Context(), info.ID, req.StageID)
	if httpkit.HandleError(c, err) {
		return
	}
	status := http.StatusOK
	if res.Status == board.DropAwaitingReason {
		status = http.StatusAccepted
	}
	httpkit.JSON(c, status, moveResponse(res))
}

// ResolveReason supplies the outcome reason of a parked move.
// POST /api/v1/boards/:boardId/drag/:sessionId/reason
func (h *Handler) ResolveReason(c *gin.Context) {
	info, ok := h.sessionFor(c)
	if !ok {
		return
	}
	var req transport.ReasonRequest
	if !h.bind(c, &req) {
		return
	}

	res, err := h.engine.ResolveGate(c.Request.Context(), info.ID, transport.ToReasonInput(req))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, moveResponse(res))
}

// CancelDrag abandons a drag session. Cancelling twice is harmless.
// DELETE /api/v1/boards/:boardId/drag/:sessionId
func (h *Handler) CancelDrag(c *gin.Context) {
	boardID, ok := paramID(c, "boardId", msgInvalidBoardID)
	if !ok {
		return
	}
	sessionID, ok := paramID(c, "sessionId", msgInvalidSession)
	if !ok {
		return
	}
	actorID, ok := mustActor(c)
	if !ok {
		return
	}
	if info, found := h.engine.Session(sessionID); found && info.BoardID == boardID && info.ActorID == actorID {
		h.engine.Cancel(c.Request.Context(), sessionID)
	}
	c.Status(http.StatusNoContent)
}

// MoveLead moves a lead in one call. Terminal stages need a reason.
// POST /api/v1/boards/:boardId/leads/:leadId/move
func (h *Handler) MoveLead(c *gin.Context) {
	boardID, ok := paramID(c, "boardId", msgInvalidBoardID)
	if !ok {
		return
	}
	leadID, ok := paramID(c, "leadId", msgInvalidLeadID)
	if !ok {
		return
	}
	actorID, ok := mustActor(c)
	if !ok {
		return
	}
	var req transport.MoveLeadRequest
	if !h.bind(c, &req) {
		return
	}

	var reason *domain.ReasonInput
	if req.Reason != nil {
		in := transport.ToReasonInput(*req.Reason)
		reason = &in
	}
	res, err := h.engine.Move(c.Request.Context(), boardID, leadID, req.StageID, actorID, reason)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, moveResponse(res))
}

