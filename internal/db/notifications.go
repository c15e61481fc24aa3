package db

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/civicmitra/backend/internal/models"
)

const notificationColumns = `id, user_id, title, message, complaint_id, is_read, created_at`

func scanNotification(row pgx.Row) (*models.Notification, error) {
	var n models.Notification
	if err := row.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.ComplaintID, &n.IsRead, &n.CreatedAt); err != nil {
		return nil, err
	}
	return &n, nil
}

func (s *Store) CreateNotification(ctx context.Context, n *models.Notification) error {
	return s.Pool.QueryRow(ctx, `
		INSERT INTO notifications (id, user_id, title, message, complaint_id, is_read) VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at
	`, n.ID, n.UserID, n.Title, n.Message, n.ComplaintID, n.IsRead).Scan(&n.CreatedAt)
}

func (s *Store) GetNotification(ctx context.Context, id string) (*models.Notification, error) {
	n, err := scanNotification(s.Pool.QueryRow(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, id))
	return n, notFound(err, "notification")
}

func (s *Store) MarkNotificationRead(ctx context.Context, id string) (*models.Notification, error) {
	n, err := scanNotification(s.Pool.QueryRow(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE id = $1 RETURNING `+notificationColumns, id))
	return n, notFound(err, "notification")
}

func (s *Store) MarkAllNotificationsRead(ctx context.Context, userID string) (int, error) {
	tag, err := s.Pool.Exec(ctx, `UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND NOT is_read`, userID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// ListNotifications returns a user's notifications newest first.
func (s *Store) ListNotifications(ctx context.Context, userID string, page models.Page) ([]models.Notification, int, error) {
	var total int
	if err := s.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM notifications WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}
	p := page.Normalized()
	rows, err := s.Pool.Query(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE user_id = $1
		ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`, userID, p.Limit, p.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []models.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *n)
	}
	return out, total, rows.Err()
}

func (s *Store) UnreadNotificationCount(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND NOT is_read`, userID).Scan(&n)
	return n, err
}
