package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/civicmitra/backend/internal/http/response"
	"github.com/civicmitra/backend/internal/models"
	"github.com/civicmitra/backend/internal/service"
)

type CreateUserRequest struct {
	Name         string `json:"name" validate:"required,max=120"`
	Email        string `json:"email" validate:"required,email"`
	Phone        string `json:"phone" validate:"max=32"`
	Address      string `json:"address" validate:"max=500"`
	Password     string `json:"password" validate:"required,min=8,max=72"`
	Role         string `json:"role" validate:"required,oneof=citizen staff worker admin"`
	DepartmentID string `json:"department_id" validate:"omitempty,uuid"`
}

// @Summary Create a user
// @Tags users
// @Accept json
// @Produce json
// @Param body body CreateUserRequest true "user"
// @Success 201 {object} response.Body
// @Failure 403 {object} response.Body
// @Router /api/users [post]
func (h *Handler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if !h.bind(c, &req) {
		return
	}
	u, err := h.Users.CreateUser(c.Request.Context(), actor(c), service.UserInput{
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		Address:      req.Address,
		Password:     req.Password,
		Role:         models.Role(req.Role),
		DepartmentID: req.DepartmentID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, u)
}

type UpdateUserRequest struct {
	Name         string  `json:"name" validate:"max=120"`
	Email        string  `json:"email" validate:"omitempty,email"`
	Phone        *string `json:"phone"`
	Address      *string `json:"address"`
	Password     string  `json:"password" validate:"omitempty,min=8,max=72"`
	Role         string  `json:"role" validate:"omitempty,oneof=citizen staff worker admin"`
	DepartmentID *string `json:"department_id"`
	IsActive     *bool   `json:"is_active"`
}

func (h *Handler) UpdateUser(c *gin.Context) {
	id, ok := pathID(c, "user")
	if !ok {
		return
	}
	var req UpdateUserRequest
	if !h.bind(c, &req) {
		return
	}
	u, err := h.Users.UpdateUser(c.Request.Context(), actor(c), id, service.UserUpdate{
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		Address:      req.Address,
		Password:     req.Password,
		Role:         models.Role(req.Role),
		DepartmentID: req.DepartmentID,
		IsActive:     req.IsActive,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, u)
}

func (h *Handler) DeleteUser(c *gin.Context) {
	id, ok := pathID(c, "user")
	if !ok {
		return
	}
	if err := h.Users.DeleteUser(c.Request.Context(), actor(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"id": id})
}

func (h *Handler) ListUsers(c *gin.Context) {
	dept, ok := queryID(c, "department_id")
	if !ok {
		return
	}
	f := models.UserFilter{
		Role:         models.Role(c.Query("role")),
		DepartmentID: dept,
		Search:       c.Query("q"),
		Page:         page(c),
	}
	switch c.Query("active") {
	case "true":
		f.Active = boolPtr(true)
	case "false":
		f.Active = boolPtr(false)
	}
	items, total, err := h.Users.ListUsers(c.Request.Context(), actor(c), f)
	if err != nil {
		response.Error(c, err)
		return
	}
	list(c, items, total, f.Page)
}

// ListWorkers backs the assignment picker.
func (h *Handler) ListWorkers(c *gin.Context) {
	dept, ok := queryID(c, "department_id")
	if !ok {
		return
	}
	p := page(c)
	items, total, err := h.Users.ListWorkers(c.Request.Context(), actor(c), dept, p)
	if err != nil {
		response.Error(c, err)
		return
	}
	list(c, items, total, p)
}

func boolPtr(v bool) *bool { return &v }
