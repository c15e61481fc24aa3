package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/civicmitra/backend/internal/http/response"
)

// @Summary Role-scoped dashboard
// @Description Counts by status, category, priority and department plus recent complaints
// @Tags analytics
// @Produce json
// @Success 200 {object} response.Body
// @Failure 403 {object} response.Body
// @Router /api/analytics/dashboard [get]
func (h *Handler) Dashboard(c *gin.Context) {
	d, err := h.Analytics.Dashboard(c.Request.Context(), actor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, d)
}
