package handler

import (
	"errors"
	"main/dto"
	"main/model"
	"main/repository"
	"main/usecase"
	"main/utils"

	"github.com/gin-gonic/gin"
)

type SummaryHandler struct {
	rollup    *usecase.RollupService
	summaries *repository.SummaryRepo
}

func NewSummaryHandler(rollup *usecase.RollupService, summaries *repository.SummaryRepo) *SummaryHandler {
	return &SummaryHandler{rollup: rollup, summaries: summaries}
}

// GetSummary returns the caller's rolled-up totals for one day
func (h *SummaryHandler) GetSummary(c *gin.Context) {
	orgID, userID, ok := callerIdentity(c)
	if !ok {
		return
	}

	date := c.Param("date")
	if !utils.ValidDateKey(date) {
		utils.BadRequest(c, "date must be YYYY-MM-DD")
		return
	}

	summary, err := h.summaries.GetSummary(c.Request.Context(), orgID, userID, date)
	if err != nil {
		if errors.Is(err, model.ErrSummaryNotFound) {
			utils.NotFound(c, err.Error())
			return
		}
		utils.InternalError(c, err.Error())
		return
	}

	utils.Success(c, dto.ToSummaryResponse(summary))
}

// TriggerRollup recomputes the caller's summary for one day on demand,
// in addition to the periodic sweep
func (h *SummaryHandler) TriggerRollup(c *gin.Context) {
	orgID, userID, ok := callerIdentity(c)
	if !ok {
		return
	}

	date := c.Param("date")
	if !utils.ValidDateKey(date) {
		utils.BadRequest(c, "date must be YYYY-MM-DD")
		return
	}

	summary, err := h.rollup.Rollup(c.Request.Context(), orgID, userID, date)
	if err != nil {
		utils.InternalError(c, err.Error())
		return
	}

	utils.Success(c, dto.ToSummaryResponse(summary))
}
