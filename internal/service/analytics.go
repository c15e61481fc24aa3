package service

import (
	"context"
	"time"

	"github.com/civicmitra/backend/internal/auth"
	"github.com/civicmitra/backend/internal/errs"
	"github.com/civicmitra/backend/internal/models"
)

const recentComplaints = 5

type AnalyticsService struct {
	Stats StatsStore
	Now   func() time.Time
}

type Dashboard struct {
	Scope  string                 `json:"scope"`
	Stats  *models.ComplaintStats `json:"stats"`
	Users  []models.CountByKey    `json:"users_by_role,omitempty"`
	Recent []models.Complaint     `json:"recent"`
}

// Dashboard aggregates the complaints the actor is responsible for: everything
// for an admin, the department for staff, own assignments for a worker.
func (s *AnalyticsService) Dashboard(ctx context.Context, actor auth.Actor) (*Dashboard, error) {
	f, err := scope(actor, models.ComplaintFilter{})
	if err != nil {
		return nil, errs.Forbidden("no dashboard for this role")
	}
	d := &Dashboard{Scope: string(actor.Role)}
	if d.Stats, err = s.Stats.ComplaintStats(ctx, f, now(s.Now)); err != nil {
		return nil, err
	}
	if actor.IsAdmin() {
		if d.Users, err = s.Stats.CountUsersByRole(ctx); err != nil {
			return nil, err
		}
	}
	f.Page = models.Page{Limit: recentComplaints}
	if d.Recent, _, err = s.Stats.ListComplaints(ctx, f); err != nil {
		return nil, err
	}
	if d.Recent == nil {
		d.Recent = []models.Complaint{}
	}
	return d, nil
}
