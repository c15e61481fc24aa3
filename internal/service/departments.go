package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"github.com/civicmitra/backend/internal/auth"
	"github.com/civicmitra/backend/internal/errs"
	"github.com/civicmitra/backend/internal/models"
)

type DepartmentService struct {
	Departments DepartmentStore
	Now         func() time.Time
}

type DepartmentInput struct {
	Name        string
	Description string
}

func (s *DepartmentService) List(ctx context.Context) ([]models.Department, error) {
	return s.Departments.ListDepartments(ctx)
}

func (s *DepartmentService) Get(ctx context.Context, id string) (*models.Department, error) {
	return s.Departments.GetDepartment(ctx, id)
}

func (s *DepartmentService) Create(ctx context.Context, actor auth.Actor, in DepartmentInput) (*models.Department, error) {
	if !actor.IsAdmin() {
		return nil, errs.Forbidden("only admins can manage departments")
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, errs.Validation("name is required", errs.FieldError{Field: "name", Message: "required"})
	}
	ts := now(s.Now)
	d := &models.Department{
		ID:          uuid.NewString(),
		Name:        name,
		Slug:        slug.Make(name),
		Description: strings.TrimSpace(in.Description),
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}
	if err := s.Departments.CreateDepartment(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *DepartmentService) Update(ctx context.Context, actor auth.Actor, id string, in DepartmentInput) (*models.Department, error) {
	if !actor.IsAdmin() {
		return nil, errs.Forbidden("only admins can manage departments")
	}
	d, err := s.Departments.GetDepartment(ctx, id)
	if err != nil {
		return nil, err
	}
	if name := strings.TrimSpace(in.Name); name != "" {
		d.Name = name
		d.Slug = slug.Make(name)
	}
	if in.Description != "" {
		d.Description = strings.TrimSpace(in.Description)
	}
	if err := s.Departments.UpdateDepartment(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *DepartmentService) Delete(ctx context.Context, actor auth.Actor, id string) error {
	if !actor.IsAdmin() {
		return errs.Forbidden("only admins can manage departments")
	}
	return s.Departments.DeleteDepartment(ctx, id)
}
