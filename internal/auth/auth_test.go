package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicmitra/backend/internal/models"
)

func ptr(s string) *string { return &s }

func TestTokensRoundTrip(t *testing.T) {
	tok := NewTokens("secret", time.Hour)
	signed, exp, err := tok.Issue("u1", models.RoleStaff)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := tok.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, models.RoleStaff, claims.Role)
}

func TestTokensRejectExpiredAndForeign(t *testing.T) {
	tok := NewTokens("secret", time.Hour)
	signed, _, err := tok.Issue("u1", models.RoleCitizen)
	require.NoError(t, err)

	later := NewTokens("secret", time.Hour)
	later.Now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = later.Verify(signed)
	assert.Error(t, err)

	other := NewTokens("different", time.Hour)
	_, err = other.Verify(signed)
	assert.Error(t, err)
}

func TestPasswordHash(t *testing.T) {
	h, err := HashPassword("hunter22")
	require.NoError(t, err)
	assert.True(t, CheckPassword("hunter22", h))
	assert.False(t, CheckPassword("hunter23", h))
}

func TestCanAccessComplaint(t *testing.T) {
	c := &models.Complaint{
		CitizenID:    "citizen",
		DepartmentID: ptr("roads"),
		WorkerID:     ptr("worker"),
	}
	granted := []Actor{
		{ID: "citizen", Role: models.RoleCitizen},
		{ID: "staff", Role: models.RoleStaff, DepartmentID: "roads"},
		{ID: "worker", Role: models.RoleWorker, DepartmentID: "roads"},
		{ID: "admin", Role: models.RoleAdmin},
	}
	for _, a := range granted {
		assert.True(t, CanAccessComplaint(a, c), a.ID)
	}
	denied := []Actor{
		{ID: "someone", Role: models.RoleCitizen},
		{ID: "staff2", Role: models.RoleStaff, DepartmentID: "water"},
		{ID: "worker2", Role: models.RoleWorker, DepartmentID: "roads"},
		{ID: "", Role: models.RoleAdmin},
	}
	for _, a := range denied {
		assert.False(t, CanAccessComplaint(a, c), a.ID)
	}
}

func TestCanManageComplaint(t *testing.T) {
	c := &models.Complaint{DepartmentID: ptr("roads")}
	assert.True(t, CanManageComplaint(Actor{ID: "a", Role: models.RoleAdmin}, c))
	assert.True(t, CanManageComplaint(Actor{ID: "s", Role: models.RoleStaff, DepartmentID: "roads"}, c))
	assert.False(t, CanManageComplaint(Actor{ID: "s", Role: models.RoleStaff, DepartmentID: "water"}, c))
	assert.False(t, CanManageComplaint(Actor{ID: "w", Role: models.RoleWorker, DepartmentID: "roads"}, c))

	unrouted := &models.Complaint{}
	assert.False(t, CanManageComplaint(Actor{ID: "s", Role: models.RoleStaff, DepartmentID: "roads"}, unrouted))
}
