package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/civicmitra/backend/internal/models"
)

const alertColumns = `id, title, message, type, severity, category, target_roles, is_active, expires_at,
	COALESCE(created_by::text, ''), created_at`

func scanAlert(row pgx.Row) (*models.SystemAlert, error) {
	var a models.SystemAlert
	var roles []string
	if err := row.Scan(&a.ID, &a.Title, &a.Message, &a.Type, &a.Severity, &a.Category, &roles, &a.IsActive,
		&a.ExpiresAt, &a.CreatedBy, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.TargetRoles = make([]models.Role, 0, len(roles))
	for _, r := range roles {
		a.TargetRoles = append(a.TargetRoles, models.Role(r))
	}
	return &a, nil
}

func (s *Store) CreateAlert(ctx context.Context, a *models.SystemAlert) error {
	roles := make([]string, 0, len(a.TargetRoles))
	for _, r := range a.TargetRoles {
		roles = append(roles, string(r))
	}
	var createdBy *string
	if a.CreatedBy != "" {
		createdBy = &a.CreatedBy
	}
	return s.Pool.QueryRow(ctx, `
		INSERT INTO system_alerts (id, title, message, type, severity, category, target_roles, is_active, expires_at, created_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING created_at
	`, a.ID, a.Title, a.Message, a.Type, a.Severity, a.Category, roles, a.IsActive, a.ExpiresAt, createdBy).Scan(&a.CreatedAt)
}

// ListActiveAlerts returns unexpired active alerts addressed to role. An alert
// with no target roles is addressed to everyone.
func (s *Store) ListActiveAlerts(ctx context.Context, role models.Role, now time.Time) ([]models.SystemAlert, error) {
	return s.queryAlerts(ctx, `SELECT `+alertColumns+` FROM system_alerts
		WHERE is_active AND (expires_at IS NULL OR expires_at > $2)
			AND (cardinality(target_roles) = 0 OR $1 = ANY(target_roles))
		ORDER BY created_at DESC`, string(role), now)
}

func (s *Store) ListAlerts(ctx context.Context) ([]models.SystemAlert, error) {
	return s.queryAlerts(ctx, `SELECT `+alertColumns+` FROM system_alerts ORDER BY created_at DESC`)
}

func (s *Store) DeactivateAlert(ctx context.Context, id string) (*models.SystemAlert, error) {
	a, err := scanAlert(s.Pool.QueryRow(ctx,
		`UPDATE system_alerts SET is_active = FALSE WHERE id = $1 RETURNING `+alertColumns, id))
	return a, notFound(err, "alert")
}

func (s *Store) queryAlerts(ctx context.Context, query string, args ...any) ([]models.SystemAlert, error) {
	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.SystemAlert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}
