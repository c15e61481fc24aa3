package db

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/civicmitra/backend/internal/models"
)

// GetChatByComplaint loads a chat with its messages in send order. Sender name and
// role come from the users table; system messages have neither.
func (s *Store) GetChatByComplaint(ctx context.Context, complaintID string) (*models.Chat, error) {
	var c models.Chat
	err := s.Pool.QueryRow(ctx, `
		SELECT id, complaint_id, citizen_id, staff_id, created_at, updated_at
		FROM chats WHERE complaint_id = $1
	`, complaintID).Scan(&c.ID, &c.ComplaintID, &c.CitizenID, &c.StaffID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, notFound(err, "chat")
	}

	rows, err := s.Pool.Query(ctx, `
		SELECT m.id, m.chat_id, m.sender_id, COALESCE(u.name, ''), COALESCE(u.role, ''), m.message, m.created_at
		FROM chat_messages m LEFT JOIN users u ON u.id = m.sender_id
		WHERE m.chat_id = $1
		ORDER BY m.created_at ASC, m.id ASC
	`, c.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	c.Messages = []models.ChatMessage{}
	for rows.Next() {
		var m models.ChatMessage
		var role string
		if err := rows.Scan(&m.ID, &m.ChatID, &m.SenderID, &m.SenderName, &role, &m.Message, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.SenderRole = models.Role(role)
		c.Messages = append(c.Messages, m)
	}
	return &c, rows.Err()
}

// CreateChat inserts the chat and its opening messages unless the complaint already
// has one. created reports whether this call made it.
func (s *Store) CreateChat(ctx context.Context, c *models.Chat) (created bool, err error) {
	err = s.WithTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			INSERT INTO chats (id, complaint_id, citizen_id, staff_id) VALUES ($1,$2,$3,$4)
			ON CONFLICT (complaint_id) DO NOTHING
		`, c.ID, c.ComplaintID, c.CitizenID, c.StaffID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return nil
		}
		created = true
		for i := range c.Messages {
			m := &c.Messages[i]
			m.ChatID = c.ID
			if err := insertMessage(ctx, tx, m); err != nil {
				return err
			}
		}
		_, err = tx.Exec(ctx, `UPDATE complaints SET chat_id = $2 WHERE id = $1`, c.ComplaintID, c.ID)
		return err
	})
	return created, err
}

func (s *Store) AppendChatMessage(ctx context.Context, m *models.ChatMessage) error {
	return s.WithTx(ctx, func(tx pgx.Tx) error {
		if err := insertMessage(ctx, tx, m); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `UPDATE chats SET updated_at = NOW() WHERE id = $1`, m.ChatID)
		return err
	})
}

func insertMessage(ctx context.Context, tx pgx.Tx, m *models.ChatMessage) error {
	return tx.QueryRow(ctx, `
		INSERT INTO chat_messages (id, chat_id, sender_id, message) VALUES ($1,$2,$3,$4)
		RETURNING created_at
	`, m.ID, m.ChatID, m.SenderID, m.Message).Scan(&m.CreatedAt)
}
