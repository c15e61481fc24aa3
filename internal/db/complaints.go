package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/civicmitra/backend/internal/models"
)

const complaintColumns = `id, title, description, category, department_id, priority, location, latitude, longitude,
	attachments, status, citizen_id, staff_id, worker_id, deadline, timeline, ai_confidence, ai_reasoning,
	ai_classified, resolution_proof, chat_id, created_at, updated_at`

func scanComplaint(row pgx.Row) (*models.Complaint, error) {
	var (
		c                              models.Complaint
		category, priority, status     string
		attachments, timeline, proofJS []byte
	)
	if err := row.Scan(&c.ID, &c.Title, &c.Description, &category, &c.DepartmentID, &priority, &c.Location,
		&c.Latitude, &c.Longitude, &attachments, &status, &c.CitizenID, &c.StaffID, &c.WorkerID, &c.Deadline,
		&timeline, &c.AIConfidence, &c.AIReasoning, &c.AIClassified, &proofJS, &c.ChatID, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	c.Category = models.Category(category)
	c.Priority = models.Priority(priority)
	c.Status = models.Status(status)
	if err := json.Unmarshal(attachments, &c.Attachments); err != nil {
		return nil, fmt.Errorf("decode attachments: %w", err)
	}
	if err := json.Unmarshal(timeline, &c.Timeline); err != nil {
		return nil, fmt.Errorf("decode timeline: %w", err)
	}
	if err := json.Unmarshal(proofJS, &c.ResolutionProof); err != nil {
		return nil, fmt.Errorf("decode resolution proof: %w", err)
	}
	return &c, nil
}

func jsonArray[T any](v []T) ([]byte, error) {
	if v == nil {
		v = []T{}
	}
	return json.Marshal(v)
}

func (s *Store) CreateComplaint(ctx context.Context, c *models.Complaint) error {
	attachments, err := jsonArray(c.Attachments)
	if err != nil {
		return err
	}
	timeline, err := jsonArray(c.Timeline)
	if err != nil {
		return err
	}
	proof, err := jsonArray(c.ResolutionProof)
	if err != nil {
		return err
	}
	return s.Pool.QueryRow(ctx, `
		INSERT INTO complaints (id, title, description, category, department_id, priority, location, latitude, longitude,
			attachments, status, citizen_id, staff_id, worker_id, deadline, timeline, ai_confidence, ai_reasoning,
			ai_classified, resolution_proof, chat_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10::jsonb,$11,$12,$13,$14,$15,$16::jsonb,$17,$18,$19,$20::jsonb,$21)
		RETURNING created_at, updated_at
	`, c.ID, c.Title, c.Description, string(c.Category), c.DepartmentID, string(c.Priority), c.Location, c.Latitude, c.Longitude,
		string(attachments), string(c.Status), c.CitizenID, c.StaffID, c.WorkerID, c.Deadline, string(timeline), c.AIConfidence,
		c.AIReasoning, c.AIClassified, string(proof), c.ChatID,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
}

func (s *Store) GetComplaint(ctx context.Context, id string) (*models.Complaint, error) {
	c, err := scanComplaint(s.Pool.QueryRow(ctx, `SELECT `+complaintColumns+` FROM complaints WHERE id = $1`, id))
	return c, notFound(err, "complaint")
}

// ApplyComplaintChange updates the listed fields and appends the timeline entry in one
// statement, so a status change and its timeline record land together.
func (s *Store) ApplyComplaintChange(ctx context.Context, id string, ch models.ComplaintChange) (*models.Complaint, error) {
	args := []any{id}
	var sets []string
	set := func(format string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf(format, len(args)))
	}
	if ch.Status != nil {
		set("status = $%d", string(*ch.Status))
	}
	if ch.StaffID != nil {
		set("staff_id = $%d", *ch.StaffID)
	}
	if ch.WorkerID != nil {
		set("worker_id = $%d", *ch.WorkerID)
	}
	if ch.Deadline != nil {
		set("deadline = $%d", *ch.Deadline)
	}
	if ch.ChatID != nil {
		set("chat_id = $%d", *ch.ChatID)
	}
	if ch.Latitude != nil && ch.Longitude != nil {
		set("latitude = $%d", *ch.Latitude)
		set("longitude = $%d", *ch.Longitude)
	}
	if len(ch.AddResolutionProof) > 0 {
		b, err := json.Marshal(ch.AddResolutionProof)
		if err != nil {
			return nil, err
		}
		set("resolution_proof = resolution_proof || $%d::jsonb", string(b))
	}
	if ch.Append != nil {
		b, err := json.Marshal([]models.TimelineEntry{*ch.Append})
		if err != nil {
			return nil, err
		}
		set("timeline = timeline || $%d::jsonb", string(b))
	}
	sets = append(sets, "updated_at = NOW()")

	cond := "id = $1"
	if ch.ExpectStatus != nil {
		args = append(args, string(*ch.ExpectStatus))
		cond += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query := `UPDATE complaints SET ` + strings.Join(sets, ", ") + ` WHERE ` + cond + ` RETURNING ` + complaintColumns
	c, err := scanComplaint(s.Pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) && ch.ExpectStatus != nil {
		var exists bool
		if err := s.Pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM complaints WHERE id = $1)`, id).Scan(&exists); err != nil {
			return nil, err
		}
		if exists {
			return nil, models.ErrStatusChanged
		}
	}
	return c, notFound(err, "complaint")
}

func (s *Store) DeleteComplaint(ctx context.Context, id string) error {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM complaints WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return notFound(pgx.ErrNoRows, "complaint")
	}
	return nil
}

func complaintWhere(f models.ComplaintFilter) *where {
	w := &where{}
	if f.CitizenID != "" {
		w.add("citizen_id = $%d", f.CitizenID)
	}
	if f.DepartmentID != "" {
		w.add("department_id = $%d", f.DepartmentID)
	}
	if f.WorkerID != "" {
		w.add("worker_id = $%d", f.WorkerID)
	}
	if f.Status != "" {
		w.add("status = $%d", string(f.Status))
	}
	if f.Category != "" {
		w.add("category = $%d", string(f.Category))
	}
	if f.Priority != "" {
		w.add("priority = $%d", string(f.Priority))
	}
	if f.Search != "" {
		w.add("(title ILIKE $%[1]d OR description ILIKE $%[1]d OR location ILIKE $%[1]d)", "%"+f.Search+"%")
	}
	return w
}

func (s *Store) ListComplaints(ctx context.Context, f models.ComplaintFilter) ([]models.Complaint, int, error) {
	w := complaintWhere(f)
	var total int
	if err := s.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM complaints`+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	p := f.Page.Normalized()
	query := `SELECT ` + complaintColumns + ` FROM complaints` + w.sql() + ` ORDER BY created_at DESC, id ASC` + w.page(p.Limit, p.Offset)
	items, err := s.queryComplaints(ctx, query, w.args...)
	return items, total, err
}

// ListGeocodedComplaints returns up to limit complaints that have coordinates, newest first.
func (s *Store) ListGeocodedComplaints(ctx context.Context, limit int) ([]models.Complaint, error) {
	return s.queryComplaints(ctx, `SELECT `+complaintColumns+` FROM complaints
		WHERE latitude IS NOT NULL AND longitude IS NOT NULL ORDER BY created_at DESC LIMIT $1`, limit)
}

func (s *Store) queryComplaints(ctx context.Context, query string, args ...any) ([]models.Complaint, error) {
	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Complaint
	for rows.Next() {
		c, err := scanComplaint(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}
