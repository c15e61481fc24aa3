package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/civicmitra/backend/internal/http/middleware"
	"github.com/civicmitra/backend/internal/http/response"
)

// ServeWS upgrades to a websocket. Browsers cannot set headers on the upgrade
// request, so the token may also come in the query string.
func (h *Handler) ServeWS(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		token = middleware.BearerToken(c)
	}
	a, err := h.Users.Authenticate(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.Hub.Serve(c.Writer, c.Request, a.ID, h.Chats.ChannelAuthorizer(a)); err != nil {
		h.Logger.Warn().Err(err).Str("user_id", a.ID).Msg("websocket upgrade failed")
	}
}
