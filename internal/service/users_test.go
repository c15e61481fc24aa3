package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicmitra/backend/internal/auth"
	"github.com/civicmitra/backend/internal/errs"
	"github.com/civicmitra/backend/internal/models"
)

func newUserService(f *fixture) *UserService {
	return &UserService{
		Users:       f.store,
		Departments: f.store,
		Tokens:      auth.NewTokens("test-secret", time.Hour),
		Logger:      zerolog.Nop(),
		Now:         clock,
	}
}

func TestRegisterAndLogin(t *testing.T) {
	f := newFixture()
	svc := newUserService(f)
	ctx := context.Background()

	sess, err := svc.Register(ctx, UserInput{
		Name: "Priya Sharma", Email: "Priya@Example.com", Password: "secret-pass", Address: "12 MG Road",
		Role: models.RoleAdmin, DepartmentID: f.roads.ID,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Token)
	assert.Equal(t, models.RoleCitizen, sess.User.Role)
	assert.Nil(t, sess.User.DepartmentID)
	assert.Equal(t, "priya@example.com", sess.User.Email)
	assert.Equal(t, "priya-sharma", sess.User.Slug)
	assert.NotEqual(t, "secret-pass", sess.User.PasswordHash)

	actor, err := svc.Authenticate(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, actor.ID)

	_, err = svc.Login(ctx, "priya@example.com", "secret-pass")
	assert.NoError(t, err)
	_, err = svc.Login(ctx, "priya@example.com", "wrong-pass")
	assert.True(t, errs.Is(err, errs.KindAuthentication))
	_, err = svc.Login(ctx, "nobody@example.com", "secret-pass")
	assert.True(t, errs.Is(err, errs.KindAuthentication))
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture()
	svc := newUserService(f)

	_, err := svc.Register(context.Background(), UserInput{Name: "A", Email: "not-an-email", Password: "short"})
	require.Error(t, err)
	var e *errs.Error
	require.ErrorAs(t, err, &e)
	assert.Len(t, e.Fields, 2)

	_, err = svc.Register(context.Background(), UserInput{Name: "A", Email: "a@example.com", Password: "long-enough"})
	assert.True(t, errs.Is(err, errs.KindValidation), "citizens need an address")
}

func TestSlugsAreUnique(t *testing.T) {
	f := newFixture()
	svc := newUserService(f)
	ctx := context.Background()

	var slugs []string
	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		sess, err := svc.Register(ctx, UserInput{Name: "Ravi Kumar", Email: email, Password: "password1", Address: "x"})
		require.NoError(t, err)
		slugs = append(slugs, sess.User.Slug)
	}
	assert.Equal(t, []string{"ravi-kumar", "ravi-kumar-2", "ravi-kumar-3"}, slugs)
}

func TestAdminProvisioning(t *testing.T) {
	f := newFixture()
	svc := newUserService(f)
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, f.staff, UserInput{Name: "W", Email: "w@example.com", Password: "password1", Role: models.RoleWorker})
	assert.True(t, errs.Is(err, errs.KindAuthorization))

	_, err = svc.CreateUser(ctx, f.admin, UserInput{Name: "W", Email: "w@example.com", Password: "password1", Role: models.RoleWorker})
	assert.True(t, errs.Is(err, errs.KindValidation), "worker needs a department")

	_, err = svc.CreateUser(ctx, f.admin, UserInput{Name: "W", Email: "w@example.com", Password: "password1", Role: models.RoleWorker, DepartmentID: "nope"})
	assert.True(t, errs.Is(err, errs.KindValidation))

	u, err := svc.CreateUser(ctx, f.admin, UserInput{Name: "W", Email: "w@example.com", Password: "password1", Role: models.RoleWorker, DepartmentID: f.roads.ID})
	require.NoError(t, err)
	require.NotNil(t, u.DepartmentID)
	assert.Equal(t, f.roads.ID, *u.DepartmentID)

	_, err = svc.CreateUser(ctx, f.admin, UserInput{Name: "Other", Email: "w@example.com", Password: "password1", Role: models.RoleAdmin})
	assert.True(t, errs.Is(err, errs.KindConflict))
}

func TestUpdateUser(t *testing.T) {
	f := newFixture()
	svc := newUserService(f)
	ctx := context.Background()

	u, err := svc.UpdateUser(ctx, f.admin, f.worker.ID, UserUpdate{Name: "Kiran Rao", Role: models.RoleStaff})
	require.NoError(t, err)
	assert.Equal(t, "kiran-rao", u.Slug)
	assert.Equal(t, models.RoleStaff, u.Role)
	require.NotNil(t, u.DepartmentID)
	assert.Equal(t, f.roads.ID, *u.DepartmentID)

	u, err = svc.UpdateUser(ctx, f.admin, f.worker.ID, UserUpdate{Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.Nil(t, u.DepartmentID)

	_, err = svc.UpdateUser(ctx, f.admin, f.admin.ID, UserUpdate{IsActive: ptr(false)})
	assert.True(t, errs.Is(err, errs.KindValidation))

	u, err = svc.UpdateUser(ctx, f.admin, f.worker2.ID, UserUpdate{IsActive: ptr(false)})
	require.NoError(t, err)
	assert.False(t, u.IsActive)
	_, err = svc.Login(ctx, u.Email, "whatever1")
	assert.Error(t, err)
}

func TestListWorkersScopedToDepartment(t *testing.T) {
	f := newFixture()
	svc := newUserService(f)
	ctx := context.Background()
	f.store.PutUser(models.User{ID: "worker-x", Role: models.RoleWorker, DepartmentID: ptr("dept-water"), IsActive: true})

	workers, total, err := svc.ListWorkers(ctx, f.staff, "dept-water", pageAll)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	for _, w := range workers {
		assert.Equal(t, f.roads.ID, *w.DepartmentID)
	}

	_, total, err = svc.ListWorkers(ctx, f.admin, "", pageAll)
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	_, _, err = svc.ListWorkers(ctx, f.citizen, "", pageAll)
	assert.True(t, errs.Is(err, errs.KindAuthorization))
}

func TestDeleteUser(t *testing.T) {
	f := newFixture()
	svc := newUserService(f)
	ctx := context.Background()

	assert.True(t, errs.Is(svc.DeleteUser(ctx, f.admin, f.admin.ID), errs.KindValidation))
	assert.True(t, errs.Is(svc.DeleteUser(ctx, f.staff, f.worker.ID), errs.KindAuthorization))
	require.NoError(t, svc.DeleteUser(ctx, f.admin, f.worker.ID))
	assert.True(t, errs.Is(svc.DeleteUser(ctx, f.admin, f.worker.ID), errs.KindNotFound))
}
