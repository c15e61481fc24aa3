package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/civicmitra/backend/internal/http/response"
)

func (h *Handler) GetChat(c *gin.Context) {
	id, ok := pathID(c, "complaint")
	if !ok {
		return
	}
	chat, err := h.Chats.GetChat(c.Request.Context(), actor(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, chat)
}

type SendMessageRequest struct {
	Message string `json:"message" validate:"required"`
}

// @Summary Post to a complaint chat
// @Description The message is stored and pushed to subscribers of the complaint channel
// @Tags chats
// @Accept json
// @Produce json
// @Param id path string true "complaint id"
// @Param body body SendMessageRequest true "message"
// @Success 201 {object} response.Body
// @Router /api/chats/{id} [post]
func (h *Handler) SendMessage(c *gin.Context) {
	id, ok := pathID(c, "complaint")
	if !ok {
		return
	}
	var req SendMessageRequest
	if !h.bind(c, &req) {
		return
	}
	msg, err := h.Chats.SendMessage(c.Request.Context(), actor(c), id, req.Message)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, msg)
}
