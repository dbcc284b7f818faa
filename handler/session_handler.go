package handler

import (
	"errors"
	"main/dto"
	"main/model"
	"main/usecase"
	"main/utils"

	"github.com/gin-gonic/gin"
)

type SessionHandler struct {
	service *usecase.SessionService
}

func NewSessionHandler(service *usecase.SessionService) *SessionHandler {
	return &SessionHandler{service: service}
}

// StartSession opens a new running session for the caller
func (h *SessionHandler) StartSession(c *gin.Context) {
	orgID, userID, ok := callerIdentity(c)
	if !ok {
		return
	}

	var req dto.StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		utils.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	session, err := h.service.Start(c.Request.Context(), orgID, userID, req.ProjectID, req.Task, req.Description)
	if err != nil {
		if errors.Is(err, model.ErrAlreadyRunning) {
			utils.Conflict(c, err.Error())
			return
		}
		utils.InternalError(c, err.Error())
		return
	}

	utils.Created(c, dto.ToSessionResponse(session))
}

// StopSession closes the caller's session; retried stops return the same
// final state
func (h *SessionHandler) StopSession(c *gin.Context) {
	orgID, userID, ok := callerIdentity(c)
	if !ok {
		return
	}

	session, err := h.service.Stop(c.Request.Context(), c.Param("id"), orgID, userID)
	if err != nil {
		respondSessionError(c, err)
		return
	}

	utils.Success(c, dto.ToSessionResponse(session))
}

// GetSession returns a session with its latest aggregates
func (h *SessionHandler) GetSession(c *gin.Context) {
	orgID, userID, ok := callerIdentity(c)
	if !ok {
		return
	}

	session, err := h.service.Get(c.Request.Context(), c.Param("id"), orgID, userID)
	if err != nil {
		respondSessionError(c, err)
		return
	}

	utils.Success(c, dto.ToSessionResponse(session))
}

// ListSessions returns the caller's sessions for one calendar day
func (h *SessionHandler) ListSessions(c *gin.Context) {
	orgID, userID, ok := callerIdentity(c)
	if !ok {
		return
	}

	var query dto.ListSessionsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		utils.BadRequest(c, "date query parameter is required (YYYY-MM-DD)")
		return
	}

	sessions, err := h.service.ListByDate(c.Request.Context(), orgID, userID, query.Date)
	if err != nil {
		utils.InternalError(c, err.Error())
		return
	}

	utils.Success(c, dto.ToSessionResponses(sessions))
}

// callerIdentity pulls the authenticated identity out of the gin context
func callerIdentity(c *gin.Context) (orgID, userID string, ok bool) {
	user, exists := c.Get("user_id")
	if !exists {
		utils.Unauthorized(c, "Missing user ID")
		return "", "", false
	}
	org, exists := c.Get("organization_id")
	if !exists {
		utils.Unauthorized(c, "Missing organization ID")
		return "", "", false
	}
	return org.(string), user.(string), true
}

func respondSessionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, model.ErrSessionNotFound):
		utils.NotFound(c, err.Error())
	case errors.Is(err, model.ErrForbidden):
		utils.Forbidden(c, err.Error())
	case errors.Is(err, model.ErrAlreadyRunning),
		errors.Is(err, model.ErrInvalidState),
		errors.Is(err, model.ErrConflict):
		utils.Conflict(c, err.Error())
	case errors.Is(err, model.ErrOutOfRangeTimestamp):
		utils.BadRequest(c, err.Error())
	default:
		utils.InternalError(c, err.Error())
	}
}
