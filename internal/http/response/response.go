// Package response writes the JSON envelope shared by every endpoint:
// {"success": true, "data": ...} or {"success": false, "message": ..., "errors": [...]}.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/civicmitra/backend/internal/errs"
)

type Meta struct {
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

type Body struct {
	Success bool              `json:"success"`
	Data    any               `json:"data,omitempty"`
	Meta    *Meta             `json:"meta,omitempty"`
	Message string            `json:"message,omitempty"`
	Errors  []errs.FieldError `json:"errors,omitempty"`
}

func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Body{Success: true, Data: data})
}

func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, Body{Success: true, Data: data})
}

func List(c *gin.Context, data any, meta Meta) {
	c.JSON(http.StatusOK, Body{Success: true, Data: data, Meta: &meta})
}

// Error maps err to its status code and aborts the chain. Internal errors are
// logged by the request logger and never echoed to the client.
func Error(c *gin.Context, err error) {
	status := errs.HTTPStatus(err)
	body := Body{Success: false, Message: "internal server error"}
	if e, ok := errs.As(err); ok && e.Kind != errs.KindInternal {
		body.Message = e.Message
		body.Errors = e.Fields
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, body)
}
