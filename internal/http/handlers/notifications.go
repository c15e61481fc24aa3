package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/civicmitra/backend/internal/http/response"
)

func (h *Handler) ListNotifications(c *gin.Context) {
	p := page(c)
	items, total, err := h.Notifications.List(c.Request.Context(), actor(c), p)
	if err != nil {
		response.Error(c, err)
		return
	}
	list(c, items, total, p)
}

func (h *Handler) UnreadCount(c *gin.Context) {
	n, err := h.Notifications.UnreadCount(c.Request.Context(), actor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"unread": n})
}

func (h *Handler) MarkNotificationRead(c *gin.Context) {
	id, ok := pathID(c, "notification")
	if !ok {
		return
	}
	n, err := h.Notifications.MarkRead(c.Request.Context(), actor(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, n)
}

func (h *Handler) MarkAllNotificationsRead(c *gin.Context) {
	n, err := h.Notifications.MarkAllRead(c.Request.Context(), actor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"updated": n})
}
