package db

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/civicmitra/backend/internal/models"
)

const departmentColumns = `id, name, slug, description, created_at, updated_at`

func scanDepartment(row pgx.Row) (*models.Department, error) {
	var d models.Department
	if err := row.Scan(&d.ID, &d.Name, &d.Slug, &d.Description, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *Store) CreateDepartment(ctx context.Context, d *models.Department) error {
	err := s.Pool.QueryRow(ctx, `
		INSERT INTO departments (id, name, slug, description) VALUES ($1,$2,$3,$4)
		RETURNING created_at, updated_at
	`, d.ID, d.Name, d.Slug, d.Description).Scan(&d.CreatedAt, &d.UpdatedAt)
	return uniqueViolation(err, "department already exists")
}

func (s *Store) UpdateDepartment(ctx context.Context, d *models.Department) error {
	err := s.Pool.QueryRow(ctx, `
		UPDATE departments SET name = $2, slug = $3, description = $4, updated_at = NOW()
		WHERE id = $1 RETURNING updated_at
	`, d.ID, d.Name, d.Slug, d.Description).Scan(&d.UpdatedAt)
	if err != nil {
		return uniqueViolation(notFound(err, "department"), "department already exists")
	}
	return nil
}

func (s *Store) DeleteDepartment(ctx context.Context, id string) error {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM departments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return notFound(pgx.ErrNoRows, "department")
	}
	return nil
}

func (s *Store) GetDepartment(ctx context.Context, id string) (*models.Department, error) {
	d, err := scanDepartment(s.Pool.QueryRow(ctx, `SELECT `+departmentColumns+` FROM departments WHERE id = $1`, id))
	return d, notFound(err, "department")
}

func (s *Store) GetDepartmentByName(ctx context.Context, name string) (*models.Department, error) {
	d, err := scanDepartment(s.Pool.QueryRow(ctx, `SELECT `+departmentColumns+` FROM departments WHERE LOWER(name) = LOWER($1)`, name))
	return d, notFound(err, "department")
}

func (s *Store) ListDepartments(ctx context.Context) ([]models.Department, error) {
	rows, err := s.Pool.Query(ctx, `SELECT `+departmentColumns+` FROM departments ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Department
	for rows.Next() {
		d, err := scanDepartment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}
