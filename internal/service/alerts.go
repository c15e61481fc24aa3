package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/civicmitra/backend/internal/auth"
	"github.com/civicmitra/backend/internal/errs"
	"github.com/civicmitra/backend/internal/models"
)

var (
	alertTypes      = []string{"info", "warning", "maintenance", "emergency"}
	alertSeverities = []string{"low", "medium", "high", "critical"}
)

type AlertService struct {
	Alerts AlertStore
	Now    func() time.Time
}

type AlertInput struct {
	Title       string
	Message     string
	Type        string
	Severity    string
	Category    string
	TargetRoles []models.Role
	ExpiresAt   *time.Time
}

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if a == v {
			return true
		}
	}
	return false
}

func (s *AlertService) Create(ctx context.Context, actor auth.Actor, in AlertInput) (*models.SystemAlert, error) {
	if !actor.IsAdmin() {
		return nil, errs.Forbidden("only admins can publish alerts")
	}
	if in.Type == "" {
		in.Type = "info"
	}
	if in.Severity == "" {
		in.Severity = "low"
	}
	ts := now(s.Now)

	var fields []errs.FieldError
	if strings.TrimSpace(in.Title) == "" {
		fields = append(fields, errs.FieldError{Field: "title", Message: "required"})
	}
	if strings.TrimSpace(in.Message) == "" {
		fields = append(fields, errs.FieldError{Field: "message", Message: "required"})
	}
	if !oneOf(in.Type, alertTypes) {
		fields = append(fields, errs.FieldError{Field: "type", Message: "must be one of " + strings.Join(alertTypes, ", ")})
	}
	if !oneOf(in.Severity, alertSeverities) {
		fields = append(fields, errs.FieldError{Field: "severity", Message: "must be one of " + strings.Join(alertSeverities, ", ")})
	}
	for _, r := range in.TargetRoles {
		if !r.Valid() {
			fields = append(fields, errs.FieldError{Field: "target_roles", Message: "unknown role " + string(r)})
		}
	}
	if in.ExpiresAt != nil && !in.ExpiresAt.After(ts) {
		fields = append(fields, errs.FieldError{Field: "expires_at", Message: "must be in the future"})
	}
	if len(fields) > 0 {
		return nil, errs.Validation("invalid alert", fields...)
	}

	a := &models.SystemAlert{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(in.Title),
		Message:     strings.TrimSpace(in.Message),
		Type:        in.Type,
		Severity:    in.Severity,
		Category:    strings.TrimSpace(in.Category),
		TargetRoles: in.TargetRoles,
		IsActive:    true,
		ExpiresAt:   in.ExpiresAt,
		CreatedBy:   actor.ID,
		CreatedAt:   ts,
	}
	if a.TargetRoles == nil {
		a.TargetRoles = []models.Role{}
	}
	if err := s.Alerts.CreateAlert(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Active lists the unexpired active alerts addressed to the actor's role.
func (s *AlertService) Active(ctx context.Context, actor auth.Actor) ([]models.SystemAlert, error) {
	return s.Alerts.ListActiveAlerts(ctx, actor.Role, now(s.Now))
}

func (s *AlertService) List(ctx context.Context, actor auth.Actor) ([]models.SystemAlert, error) {
	if !actor.IsAdmin() {
		return nil, errs.Forbidden("only admins can list all alerts")
	}
	return s.Alerts.ListAlerts(ctx)
}

func (s *AlertService) Deactivate(ctx context.Context, actor auth.Actor, id string) (*models.SystemAlert, error) {
	if !actor.IsAdmin() {
		return nil, errs.Forbidden("only admins can deactivate alerts")
	}
	return s.Alerts.DeactivateAlert(ctx, id)
}
