package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/civicmitra/backend/internal/http/response"
	"github.com/civicmitra/backend/internal/service"
)

type DepartmentRequest struct {
	Name        string `json:"name" validate:"required,max=120"`
	Description string `json:"description" validate:"max=1000"`
}

func (h *Handler) ListDepartments(c *gin.Context) {
	items, err := h.Departments.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, items)
}

func (h *Handler) GetDepartment(c *gin.Context) {
	id, ok := pathID(c, "department")
	if !ok {
		return
	}
	d, err := h.Departments.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, d)
}

func (h *Handler) CreateDepartment(c *gin.Context) {
	var req DepartmentRequest
	if !h.bind(c, &req) {
		return
	}
	d, err := h.Departments.Create(c.Request.Context(), actor(c), service.DepartmentInput(req))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, d)
}

func (h *Handler) UpdateDepartment(c *gin.Context) {
	id, ok := pathID(c, "department")
	if !ok {
		return
	}
	var req DepartmentRequest
	if !h.bind(c, &req) {
		return
	}
	d, err := h.Departments.Update(c.Request.Context(), actor(c), id, service.DepartmentInput(req))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, d)
}

func (h *Handler) DeleteDepartment(c *gin.Context) {
	id, ok := pathID(c, "department")
	if !ok {
		return
	}
	if err := h.Departments.Delete(c.Request.Context(), actor(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"id": id})
}
