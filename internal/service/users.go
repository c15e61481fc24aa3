package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/rs/zerolog"

	"github.com/civicmitra/backend/internal/auth"
	"github.com/civicmitra/backend/internal/errs"
	"github.com/civicmitra/backend/internal/models"
)

const minPasswordLen = 8

type UserService struct {
	Users       UserStore
	Departments DepartmentStore
	Tokens      *auth.Tokens
	Logger      zerolog.Logger
	Now         func() time.Time
}

type UserInput struct {
	Name         string
	Email        string
	Phone        string
	Address      string
	Password     string
	Role         models.Role
	DepartmentID string
}

type Session struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// validate checks the fields of a new user, or of an update when partial is set.
func (in UserInput) validate(partial bool) error {
	var fields []errs.FieldError
	if !partial || in.Name != "" {
		if strings.TrimSpace(in.Name) == "" {
			fields = append(fields, errs.FieldError{Field: "name", Message: "required"})
		}
	}
	if !partial || in.Email != "" {
		if _, err := mail.ParseAddress(in.Email); err != nil {
			fields = append(fields, errs.FieldError{Field: "email", Message: "invalid email"})
		}
	}
	if !partial || in.Password != "" {
		if len(in.Password) < minPasswordLen {
			fields = append(fields, errs.FieldError{Field: "password", Message: fmt.Sprintf("at least %d characters", minPasswordLen)})
		}
	}
	if in.Role != "" && !in.Role.Valid() {
		fields = append(fields, errs.FieldError{Field: "role", Message: "unknown role"})
	}
	if len(fields) > 0 {
		return errs.Validation("invalid user", fields...)
	}
	return nil
}

// uniqueSlug derives a slug from name, adding a numeric suffix until no other user has it.
func (s *UserService) uniqueSlug(ctx context.Context, name, exceptID string) (string, error) {
	base := slug.Make(name)
	if base == "" {
		base = "user"
	}
	candidate := base
	for i := 2; ; i++ {
		taken, err := s.Users.UserSlugExists(ctx, candidate, exceptID)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}

// checkDepartment enforces that staff and workers belong to exactly one existing
// department and other roles to none.
func (s *UserService) checkDepartment(ctx context.Context, role models.Role, departmentID string) (*string, error) {
	if !role.NeedsDepartment() {
		if departmentID != "" {
			return nil, errs.Validation("invalid department", errs.FieldError{Field: "department_id", Message: "only staff and workers belong to a department"})
		}
		return nil, nil
	}
	if departmentID == "" {
		return nil, errs.Validation("department is required", errs.FieldError{Field: "department_id", Message: "required for staff and workers"})
	}
	if _, err := s.Departments.GetDepartment(ctx, departmentID); err != nil {
		if errs.Is(err, errs.KindNotFound) {
			return nil, errs.Validation("invalid department", errs.FieldError{Field: "department_id", Message: "department not found"})
		}
		return nil, err
	}
	return &departmentID, nil
}

func (s *UserService) create(ctx context.Context, in UserInput) (*models.User, error) {
	if err := in.validate(false); err != nil {
		return nil, err
	}
	if in.Role == models.RoleCitizen && strings.TrimSpace(in.Address) == "" {
		return nil, errs.Validation("address is required", errs.FieldError{Field: "address", Message: "required for citizens"})
	}
	dept, err := s.checkDepartment(ctx, in.Role, in.DepartmentID)
	if err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	sl, err := s.uniqueSlug(ctx, in.Name, "")
	if err != nil {
		return nil, err
	}

	ts := now(s.Now)
	u := &models.User{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(in.Name),
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:        strings.TrimSpace(in.Phone),
		Address:      strings.TrimSpace(in.Address),
		Role:         in.Role,
		DepartmentID: dept,
		PasswordHash: hash,
		Slug:         sl,
		IsActive:     true,
		CreatedAt:    ts,
		UpdatedAt:    ts,
	}
	if err := s.Users.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *UserService) session(u *models.User) (*Session, error) {
	token, exp, err := s.Tokens.Issue(u.ID, u.Role)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: exp, User: u}, nil
}

// Register creates a citizen account and signs it in.
func (s *UserService) Register(ctx context.Context, in UserInput) (*Session, error) {
	in.Role = models.RoleCitizen
	in.DepartmentID = ""
	u, err := s.create(ctx, in)
	if err != nil {
		return nil, err
	}
	return s.session(u)
}

func (s *UserService) Login(ctx context.Context, email, password string) (*Session, error) {
	u, err := s.Users.GetUserByEmail(ctx, email)
	if err != nil {
		if errs.Is(err, errs.KindNotFound) {
			return nil, errs.Unauthenticated("invalid email or password")
		}
		return nil, err
	}
	if !auth.CheckPassword(password, u.PasswordHash) {
		return nil, errs.Unauthenticated("invalid email or password")
	}
	if !u.IsActive {
		return nil, errs.Forbidden("account is disabled")
	}
	return s.session(u)
}

func (s *UserService) Me(ctx context.Context, actor auth.Actor) (*models.User, error) {
	return s.Users.GetUser(ctx, actor.ID)
}

// Authenticate resolves a bearer token into the acting user.
func (s *UserService) Authenticate(ctx context.Context, token string) (auth.Actor, error) {
	claims, err := s.Tokens.Verify(token)
	if err != nil {
		return auth.Actor{}, errs.Unauthenticated("invalid or expired token")
	}
	u, err := s.Users.GetUser(ctx, claims.UserID)
	if err != nil {
		if errs.Is(err, errs.KindNotFound) {
			return auth.Actor{}, errs.Unauthenticated("user no longer exists")
		}
		return auth.Actor{}, err
	}
	if !u.IsActive {
		return auth.Actor{}, errs.Unauthenticated("account is disabled")
	}
	return auth.ActorFromUser(u), nil
}

// CreateUser provisions an account of any role on behalf of an admin.
func (s *UserService) CreateUser(ctx context.Context, actor auth.Actor, in UserInput) (*models.User, error) {
	if !actor.IsAdmin() {
		return nil, errs.Forbidden("only admins can create users")
	}
	if in.Role == "" {
		return nil, errs.Validation("role is required", errs.FieldError{Field: "role", Message: "required"})
	}
	return s.create(ctx, in)
}

type UserUpdate struct {
	Name         string
	Email        string
	Phone        *string
	Address      *string
	Password     string
	Role         models.Role
	DepartmentID *string
	IsActive     *bool
}

// UpdateUser applies the set fields. The slug follows a name change and the
// password hash a password change.
func (s *UserService) UpdateUser(ctx context.Context, actor auth.Actor, id string, in UserUpdate) (*models.User, error) {
	if !actor.IsAdmin() {
		return nil, errs.Forbidden("only admins can update users")
	}
	check := UserInput{Name: in.Name, Email: in.Email, Password: in.Password, Role: in.Role}
	if err := check.validate(true); err != nil {
		return nil, err
	}
	u, err := s.Users.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != "" && strings.TrimSpace(in.Name) != u.Name {
		u.Name = strings.TrimSpace(in.Name)
		if u.Slug, err = s.uniqueSlug(ctx, u.Name, u.ID); err != nil {
			return nil, err
		}
	}
	if in.Email != "" {
		u.Email = strings.ToLower(strings.TrimSpace(in.Email))
	}
	if in.Phone != nil {
		u.Phone = strings.TrimSpace(*in.Phone)
	}
	if in.Address != nil {
		u.Address = strings.TrimSpace(*in.Address)
	}
	if in.Password != "" {
		if u.PasswordHash, err = auth.HashPassword(in.Password); err != nil {
			return nil, err
		}
	}
	if in.IsActive != nil {
		if u.ID == actor.ID && !*in.IsActive {
			return nil, errs.Validation("cannot deactivate yourself", errs.FieldError{Field: "is_active", Message: "cannot deactivate your own account"})
		}
		u.IsActive = *in.IsActive
	}
	if in.Role != "" || in.DepartmentID != nil {
		role := u.Role
		if in.Role != "" {
			role = in.Role
		}
		dept := ""
		if in.DepartmentID != nil {
			dept = *in.DepartmentID
		} else if u.DepartmentID != nil && role.NeedsDepartment() {
			dept = *u.DepartmentID
		}
		if u.DepartmentID, err = s.checkDepartment(ctx, role, dept); err != nil {
			return nil, err
		}
		u.Role = role
	}
	if u.Role == models.RoleCitizen && u.Address == "" {
		return nil, errs.Validation("address is required", errs.FieldError{Field: "address", Message: "required for citizens"})
	}

	if err := s.Users.UpdateUser(ctx, u); err != nil {
		return nil, err
	}
	// Reload so the joined department name is current.
	return s.Users.GetUser(ctx, u.ID)
}

func (s *UserService) DeleteUser(ctx context.Context, actor auth.Actor, id string) error {
	if !actor.IsAdmin() {
		return errs.Forbidden("only admins can delete users")
	}
	if id == actor.ID {
		return errs.Validation("cannot delete yourself", errs.FieldError{Field: "id", Message: "cannot delete your own account"})
	}
	return s.Users.DeleteUser(ctx, id)
}

func (s *UserService) ListUsers(ctx context.Context, actor auth.Actor, f models.UserFilter) ([]models.User, int, error) {
	if !actor.IsAdmin() {
		return nil, 0, errs.Forbidden("only admins can list users")
	}
	return s.Users.ListUsers(ctx, f)
}

// ListWorkers returns active workers: a staff member sees their own department,
// an admin may pass any department or none.
func (s *UserService) ListWorkers(ctx context.Context, actor auth.Actor, departmentID string, page models.Page) ([]models.User, int, error) {
	switch actor.Role {
	case models.RoleAdmin:
	case models.RoleStaff:
		departmentID = actor.DepartmentID
	default:
		return nil, 0, errs.Forbidden("not allowed to list workers")
	}
	active := true
	return s.Users.ListUsers(ctx, models.UserFilter{
		Role:         models.RoleWorker,
		DepartmentID: departmentID,
		Active:       &active,
		Page:         page,
	})
}

// Bootstrap creates an admin account, used from the command line.
func (s *UserService) Bootstrap(ctx context.Context, name, email, password string) (*models.User, error) {
	u, err := s.create(ctx, UserInput{Name: name, Email: email, Password: password, Role: models.RoleAdmin})
	if err != nil {
		return nil, err
	}
	s.Logger.Info().Str("user_id", u.ID).Str("email", u.Email).Msg("admin created")
	return u, nil
}
