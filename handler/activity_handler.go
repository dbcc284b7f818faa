package handler

import (
	"main/dto"
	"main/model"
	"main/usecase"
	"main/utils"

	"github.com/gin-gonic/gin"
)

type ActivityHandler struct {
	service *usecase.ActivityService
}

func NewActivityHandler(service *usecase.ActivityService) *ActivityHandler {
	return &ActivityHandler{service: service}
}

// RecordActivity accepts one active/idle pulse for a running session and
// returns 202 as soon as the event is durable; aggregation runs behind it.
func (h *ActivityHandler) RecordActivity(c *gin.Context) {
	orgID, userID, ok := callerIdentity(c)
	if !ok {
		return
	}

	var req dto.RecordActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	event, err := h.service.Record(
		c.Request.Context(),
		c.Param("id"),
		orgID,
		userID,
		model.ActivityType(req.Type),
		req.Timestamp,
	)
	if err != nil {
		respondSessionError(c, err)
		return
	}

	utils.Accepted(c, dto.ToActivityAcceptedResponse(event))
}
