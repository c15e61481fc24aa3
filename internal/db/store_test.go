package db

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicmitra/backend/internal/errs"
	"github.com/civicmitra/backend/internal/models"
)

func TestComplaintWhere(t *testing.T) {
	w := complaintWhere(models.ComplaintFilter{
		DepartmentID: "d1",
		Status:       models.StatusInProgress,
		Search:       "pothole",
	})
	assert.Equal(t,
		" WHERE department_id = $1 AND status = $2 AND (title ILIKE $3 OR description ILIKE $3 OR location ILIKE $3)",
		w.sql())
	assert.Equal(t, []any{"d1", "In Progress", "%pothole%"}, w.args)

	assert.Equal(t, " LIMIT $4 OFFSET $5", w.page(20, 40))
	assert.Equal(t, []any{"d1", "In Progress", "%pothole%", 20, 40}, w.args)

	assert.Empty(t, complaintWhere(models.ComplaintFilter{}).sql())
}

func TestNotFound(t *testing.T) {
	assert.True(t, errs.Is(notFound(pgx.ErrNoRows, "complaint"), errs.KindNotFound))

	bad := fmt.Errorf("scan: %w", &pgconn.PgError{Code: "22P02", Message: `invalid input syntax for type uuid: "abc"`})
	err := notFound(bad, "complaint")
	assert.True(t, errs.Is(err, errs.KindNotFound))
	assert.Equal(t, "complaint not found", err.Error())

	other := errors.New("conn closed")
	assert.Same(t, other, notFound(other, "complaint"))
	assert.NoError(t, notFound(nil, "complaint"))
}

func testStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	require.NoError(t, MigrateUp(url, zerolog.Nop()))
	store, err := New(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(store.Close)
	return store
}

func TestComplaintLifecycleIntegration(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	citizen := &models.User{
		ID:           uuid.NewString(),
		Name:         "Asha",
		Email:        uuid.NewString() + "@example.org",
		Address:      "12 MG Road",
		Role:         models.RoleCitizen,
		PasswordHash: "x",
		Slug:         "asha-" + uuid.NewString(),
		IsActive:     true,
	}
	require.NoError(t, store.CreateUser(ctx, citizen))
	t.Cleanup(func() { _ = store.DeleteUser(ctx, citizen.ID) })

	now := time.Now().UTC()
	c := &models.Complaint{
		ID:          uuid.NewString(),
		Title:       "Pothole near school",
		Description: "Deep pothole",
		Category:    models.CategoryRoads,
		Priority:    models.PriorityHigh,
		Location:    "MG Road",
		Status:      models.StatusSubmitted,
		CitizenID:   citizen.ID,
		Timeline: []models.TimelineEntry{
			{Action: "Complaint Submitted", Status: models.StatusSubmitted, ActorID: citizen.ID, Timestamp: now},
		},
	}
	require.NoError(t, store.CreateComplaint(ctx, c))

	status := models.StatusInProgress
	updated, err := store.ApplyComplaintChange(ctx, c.ID, models.ComplaintChange{
		Status: &status,
		Append: &models.TimelineEntry{Action: "Status Update", Status: status, ActorID: citizen.ID, Timestamp: now},
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, updated.Status)
	require.Len(t, updated.Timeline, 2)
	assert.Equal(t, "Status Update", updated.Timeline[1].Action)

	items, total, err := store.ListComplaints(ctx, models.ComplaintFilter{CitizenID: citizen.ID, Page: models.Page{Limit: 10}})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, c.ID, items[0].ID)

	require.NoError(t, store.DeleteComplaint(ctx, c.ID))
	_, err = store.GetComplaint(ctx, c.ID)
	assert.True(t, errs.Is(err, errs.KindNotFound))
}
