package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicmitra/backend/internal/errs"
	"github.com/civicmitra/backend/internal/models"
)

func TestDepartments(t *testing.T) {
	f := newFixture()
	svc := &DepartmentService{Departments: f.store, Now: clock}
	ctx := context.Background()

	_, err := svc.Create(ctx, f.staff, DepartmentInput{Name: "Parks and Gardens"})
	assert.True(t, errs.Is(err, errs.KindAuthorization))

	d, err := svc.Create(ctx, f.admin, DepartmentInput{Name: " Parks and Gardens ", Description: "Green spaces"})
	require.NoError(t, err)
	assert.Equal(t, "parks-and-gardens", d.Slug)

	_, err = svc.Create(ctx, f.admin, DepartmentInput{Name: "parks and gardens"})
	assert.True(t, errs.Is(err, errs.KindConflict))

	d, err = svc.Update(ctx, f.admin, d.ID, DepartmentInput{Name: "Parks"})
	require.NoError(t, err)
	assert.Equal(t, "parks", d.Slug)
	assert.Equal(t, "Green spaces", d.Description)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 3)

	require.NoError(t, svc.Delete(ctx, f.admin, d.ID))
	_, err = svc.Get(ctx, d.ID)
	assert.True(t, errs.Is(err, errs.KindNotFound))
}

func TestAlerts(t *testing.T) {
	f := newFixture()
	svc := &AlertService{Alerts: f.store, Now: clock}
	ctx := context.Background()

	_, err := svc.Create(ctx, f.citizen, AlertInput{Title: "t", Message: "m"})
	assert.True(t, errs.Is(err, errs.KindAuthorization))

	_, err = svc.Create(ctx, f.admin, AlertInput{Title: "t", Message: "m", Type: "party", ExpiresAt: ptr(fixedNow.Add(-time.Hour))})
	var e *errs.Error
	require.ErrorAs(t, err, &e)
	assert.Len(t, e.Fields, 2)

	everyone, err := svc.Create(ctx, f.admin, AlertInput{Title: "Water cut", Message: "Sunday 9 to 5", Type: "maintenance", Severity: "medium"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, f.admin, AlertInput{Title: "Staff meeting", Message: "Monday", TargetRoles: []models.Role{models.RoleStaff}})
	require.NoError(t, err)

	citizen, err := svc.Active(ctx, f.citizen)
	require.NoError(t, err)
	require.Len(t, citizen, 1)
	assert.Equal(t, everyone.ID, citizen[0].ID)

	staff, err := svc.Active(ctx, f.staff)
	require.NoError(t, err)
	assert.Len(t, staff, 2)

	_, err = svc.Deactivate(ctx, f.admin, everyone.ID)
	require.NoError(t, err)
	citizen, _ = svc.Active(ctx, f.citizen)
	assert.Empty(t, citizen)

	all, err := svc.List(ctx, f.admin)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestDashboards(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	svc := &AnalyticsService{Stats: f.store, Now: clock}
	c := f.pothole(ctx)
	_, err := f.complaints.Create(ctx, f.other, CreateComplaintInput{Title: "Leak", Description: "Pipe", Location: "Sector 4", Category: "Water Supply"})
	require.NoError(t, err)
	past := fixedNow.Add(-24 * time.Hour)
	_, err = f.complaints.AssignWorker(ctx, f.staff, c.ID, f.worker.ID, &past)
	require.NoError(t, err)

	admin, err := svc.Dashboard(ctx, f.admin)
	require.NoError(t, err)
	assert.Equal(t, 2, admin.Stats.Total)
	assert.Equal(t, 1, admin.Stats.Overdue)
	assert.NotEmpty(t, admin.Users)
	assert.Len(t, admin.Recent, 2)

	staff, err := svc.Dashboard(ctx, f.staff)
	require.NoError(t, err)
	assert.Equal(t, 1, staff.Stats.Total)
	assert.Empty(t, staff.Users)

	worker, err := svc.Dashboard(ctx, f.worker2)
	require.NoError(t, err)
	assert.Equal(t, 0, worker.Stats.Total)
	assert.NotNil(t, worker.Recent)

	_, err = svc.Dashboard(ctx, f.citizen)
	assert.True(t, errs.Is(err, errs.KindAuthorization))
}
