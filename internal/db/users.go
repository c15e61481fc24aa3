package db

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/civicmitra/backend/internal/models"
)

const userColumns = `u.id, u.name, u.email, u.phone, u.address, u.role, u.department_id, COALESCE(d.name, ''),
	u.password_hash, u.slug, u.is_active, u.created_at, u.updated_at`

const userFrom = ` FROM users u LEFT JOIN departments d ON d.id = u.department_id`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	var role string
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.Address, &role, &u.DepartmentID, &u.Department,
		&u.PasswordHash, &u.Slug, &u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.Role = models.Role(role)
	return &u, nil
}

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	err := s.Pool.QueryRow(ctx, `
		INSERT INTO users (id, name, email, phone, address, role, department_id, password_hash, slug, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING created_at, updated_at
	`, u.ID, u.Name, strings.ToLower(u.Email), u.Phone, u.Address, string(u.Role), u.DepartmentID, u.PasswordHash, u.Slug, u.IsActive,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	return uniqueViolation(err, "email or slug already in use")
}

func (s *Store) UpdateUser(ctx context.Context, u *models.User) error {
	err := s.Pool.QueryRow(ctx, `
		UPDATE users SET name = $2, email = $3, phone = $4, address = $5, role = $6, department_id = $7,
			password_hash = $8, slug = $9, is_active = $10, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`, u.ID, u.Name, strings.ToLower(u.Email), u.Phone, u.Address, string(u.Role), u.DepartmentID, u.PasswordHash, u.Slug, u.IsActive,
	).Scan(&u.UpdatedAt)
	if err != nil {
		return uniqueViolation(notFound(err, "user"), "email or slug already in use")
	}
	return nil
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return notFound(pgx.ErrNoRows, "user")
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	u, err := scanUser(s.Pool.QueryRow(ctx, `SELECT `+userColumns+userFrom+` WHERE u.id = $1`, id))
	return u, notFound(err, "user")
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(s.Pool.QueryRow(ctx, `SELECT `+userColumns+userFrom+` WHERE u.email = $1`, strings.ToLower(strings.TrimSpace(email))))
	return u, notFound(err, "user")
}

func (s *Store) UserSlugExists(ctx context.Context, slug, exceptID string) (bool, error) {
	var exists bool
	err := s.Pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE slug = $1 AND id::text <> $2)`, slug, exceptID).Scan(&exists)
	return exists, err
}

// FindDepartmentStaff returns the active staff of a department, oldest first.
func (s *Store) FindDepartmentStaff(ctx context.Context, departmentID string) ([]models.User, error) {
	users, _, err := s.ListUsers(ctx, models.UserFilter{
		Role:         models.RoleStaff,
		DepartmentID: departmentID,
		Active:       boolPtr(true),
		Page:         models.Page{Limit: models.MaxPageSize},
	})
	return users, err
}

func (s *Store) ListUsers(ctx context.Context, f models.UserFilter) ([]models.User, int, error) {
	var w where
	if f.Role != "" {
		w.add("u.role = $%d", string(f.Role))
	}
	if f.DepartmentID != "" {
		w.add("u.department_id = $%d", f.DepartmentID)
	}
	if f.Active != nil {
		w.add("u.is_active = $%d", *f.Active)
	}
	if f.Search != "" {
		w.add("(u.name ILIKE $%[1]d OR u.email ILIKE $%[1]d)", "%"+f.Search+"%")
	}

	var total int
	if err := s.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM users u`+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	p := f.Page.Normalized()
	query := `SELECT ` + userColumns + userFrom + w.sql() + ` ORDER BY u.created_at ASC, u.id ASC` + w.page(p.Limit, p.Offset)
	rows, err := s.Pool.Query(ctx, query, w.args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *u)
	}
	return out, total, rows.Err()
}

func (s *Store) CountUsersByRole(ctx context.Context) ([]models.CountByKey, error) {
	return s.countBy(ctx, `SELECT role, COUNT(*) FROM users GROUP BY role ORDER BY role`)
}

func boolPtr(b bool) *bool { return &b }
