package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/civicmitra/backend/internal/http/response"
	"github.com/civicmitra/backend/internal/models"
	"github.com/civicmitra/backend/internal/service"
)

type CreateAlertRequest struct {
	Title       string   `json:"title" validate:"required,max=200"`
	Message     string   `json:"message" validate:"required,max=2000"`
	Type        string   `json:"type" validate:"omitempty,oneof=info warning maintenance emergency"`
	Severity    string   `json:"severity" validate:"omitempty,oneof=low medium high critical"`
	Category    string   `json:"category"`
	TargetRoles []string `json:"target_roles" validate:"dive,oneof=citizen staff worker admin"`
	ExpiresAt   string   `json:"expires_at"`
}

// @Summary Publish a system alert
// @Tags alerts
// @Accept json
// @Produce json
// @Param body body CreateAlertRequest true "alert"
// @Success 201 {object} response.Body
// @Router /api/alerts [post]
func (h *Handler) CreateAlert(c *gin.Context) {
	var req CreateAlertRequest
	if !h.bind(c, &req) {
		return
	}
	expires, err := parseTime("expires_at", req.ExpiresAt)
	if err != nil {
		response.Error(c, err)
		return
	}
	roles := make([]models.Role, 0, len(req.TargetRoles))
	for _, r := range req.TargetRoles {
		roles = append(roles, models.Role(r))
	}
	alert, err := h.Alerts.Create(c.Request.Context(), actor(c), service.AlertInput{
		Title:       req.Title,
		Message:     req.Message,
		Type:        req.Type,
		Severity:    req.Severity,
		Category:    req.Category,
		TargetRoles: roles,
		ExpiresAt:   expires,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, alert)
}

// ActiveAlerts lists unexpired alerts targeted at the caller's role.
func (h *Handler) ActiveAlerts(c *gin.Context) {
	items, err := h.Alerts.Active(c.Request.Context(), actor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	if items == nil {
		items = []models.SystemAlert{}
	}
	response.OK(c, items)
}

func (h *Handler) ListAlerts(c *gin.Context) {
	items, err := h.Alerts.List(c.Request.Context(), actor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	if items == nil {
		items = []models.SystemAlert{}
	}
	response.OK(c, items)
}

func (h *Handler) DeactivateAlert(c *gin.Context) {
	id, ok := pathID(c, "alert")
	if !ok {
		return
	}
	alert, err := h.Alerts.Deactivate(c.Request.Context(), actor(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, alert)
}
