package db

import (
	"context"
	"fmt"
	"time"

	"github.com/civicmitra/backend/internal/models"
)

// ComplaintStats aggregates the complaints matched by f. Paging fields are ignored.
func (s *Store) ComplaintStats(ctx context.Context, f models.ComplaintFilter, now time.Time) (*models.ComplaintStats, error) {
	w := complaintWhere(f)
	from := ` FROM complaints c` + w.sql()

	var st models.ComplaintStats
	args := append(append([]any{}, w.args...), now)
	err := s.Pool.QueryRow(ctx, `SELECT COUNT(*),
		`+fmt.Sprintf(`COUNT(*) FILTER (WHERE deadline < $%d AND status NOT IN ('Resolved', 'Closed'))`, len(args))+from,
		args...).Scan(&st.Total, &st.Overdue)
	if err != nil {
		return nil, err
	}

	if st.ByStatus, err = s.countBy(ctx, `SELECT status, COUNT(*)`+from+` GROUP BY 1 ORDER BY 1`, w.args...); err != nil {
		return nil, err
	}
	if st.ByCategory, err = s.countBy(ctx, `SELECT category, COUNT(*)`+from+` GROUP BY 1 ORDER BY 1`, w.args...); err != nil {
		return nil, err
	}
	if st.ByPriority, err = s.countBy(ctx, `SELECT priority, COUNT(*)`+from+` GROUP BY 1 ORDER BY 1`, w.args...); err != nil {
		return nil, err
	}
	st.ByDepartment, err = s.countBy(ctx, `SELECT COALESCE(d.name, 'Unassigned'), COUNT(*)
		FROM (SELECT department_id`+from+`) c
		LEFT JOIN departments d ON d.id = c.department_id GROUP BY 1 ORDER BY 1`, w.args...)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// countBy runs a grouped query selecting a key and a count.
func (s *Store) countBy(ctx context.Context, query string, args ...any) ([]models.CountByKey, error) {
	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.CountByKey{}
	for rows.Next() {
		var kc models.CountByKey
		if err := rows.Scan(&kc.Key, &kc.Count); err != nil {
			return nil, err
		}
		out = append(out, kc)
	}
	return out, rows.Err()
}
