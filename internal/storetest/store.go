// Package storetest provides an in-memory implementation of the store
// interfaces the services depend on, for use in tests.
package storetest

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/civicmitra/backend/internal/errs"
	"github.com/civicmitra/backend/internal/models"
)

// Store is an in-memory stand-in for *db.Store. It enforces the same
// guarded-write and not-found semantics and is safe for concurrent use.
type Store struct {
	mu            sync.Mutex
	users         map[string]models.User
	departments   map[string]models.Department
	complaints    map[string]models.Complaint
	chats         map[string]models.Chat // by complaint id
	notifications map[string]models.Notification
	alerts        map[string]models.SystemAlert
	order         []string // notification ids in insert order

	failChat bool
}

func New() *Store {
	return &Store{
		users:         map[string]models.User{},
		departments:   map[string]models.Department{},
		complaints:    map[string]models.Complaint{},
		chats:         map[string]models.Chat{},
		notifications: map[string]models.Notification{},
		alerts:        map[string]models.SystemAlert{},
	}
}

func (m *Store) CreateComplaint(_ context.Context, c *models.Complaint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.complaints[c.ID] = cloneComplaint(*c)
	return nil
}

func (m *Store) GetComplaint(_ context.Context, id string) (*models.Complaint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.complaints[id]
	if !ok {
		return nil, errs.NotFound("complaint")
	}
	out := cloneComplaint(c)
	return &out, nil
}

func (m *Store) ApplyComplaintChange(_ context.Context, id string, ch models.ComplaintChange) (*models.Complaint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.complaints[id]
	if !ok {
		return nil, errs.NotFound("complaint")
	}
	if ch.ExpectStatus != nil && c.Status != *ch.ExpectStatus {
		return nil, models.ErrStatusChanged
	}
	c = cloneComplaint(c)
	if ch.Status != nil {
		c.Status = *ch.Status
	}
	if ch.StaffID != nil {
		c.StaffID = ptr(*ch.StaffID)
	}
	if ch.WorkerID != nil {
		c.WorkerID = ptr(*ch.WorkerID)
	}
	if ch.Deadline != nil {
		d := *ch.Deadline
		c.Deadline = &d
	}
	if ch.ChatID != nil {
		c.ChatID = ptr(*ch.ChatID)
	}
	if ch.Latitude != nil && ch.Longitude != nil {
		lat, lon := *ch.Latitude, *ch.Longitude
		c.Latitude, c.Longitude = &lat, &lon
	}
	c.ResolutionProof = append(c.ResolutionProof, ch.AddResolutionProof...)
	if ch.Append != nil {
		c.Timeline = append(c.Timeline, *ch.Append)
	}
	m.complaints[id] = c
	out := cloneComplaint(c)
	return &out, nil
}

func (m *Store) ListComplaints(_ context.Context, f models.ComplaintFilter) ([]models.Complaint, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Complaint
	for _, c := range m.complaints {
		if f.CitizenID != "" && c.CitizenID != f.CitizenID {
			continue
		}
		if f.DepartmentID != "" && (c.DepartmentID == nil || *c.DepartmentID != f.DepartmentID) {
			continue
		}
		if f.WorkerID != "" && (c.WorkerID == nil || *c.WorkerID != f.WorkerID) {
			continue
		}
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		out = append(out, cloneComplaint(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	total := len(out)
	p := f.Page.Normalized()
	if p.Offset > len(out) {
		p.Offset = len(out)
	}
	out = out[p.Offset:]
	if len(out) > p.Limit {
		out = out[:p.Limit]
	}
	return out, total, nil
}

func (m *Store) ListGeocodedComplaints(_ context.Context, limit int) ([]models.Complaint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Complaint
	for _, c := range m.complaints {
		if c.Latitude != nil && c.Longitude != nil {
			out = append(out, cloneComplaint(c))
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Store) DeleteComplaint(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.complaints[id]; !ok {
		return errs.NotFound("complaint")
	}
	delete(m.complaints, id)
	return nil
}

func (m *Store) CreateUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.users {
		if other.Email == u.Email || other.Slug == u.Slug {
			return errs.Conflict("email or slug already in use")
		}
	}
	m.users[u.ID] = *u
	return nil
}

func (m *Store) UpdateUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.ID]; !ok {
		return errs.NotFound("user")
	}
	m.users[u.ID] = *u
	return nil
}

func (m *Store) DeleteUser(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return errs.NotFound("user")
	}
	delete(m.users, id)
	return nil
}

func (m *Store) GetUser(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, errs.NotFound("user")
	}
	return &u, nil
}

func (m *Store) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == strings.ToLower(strings.TrimSpace(email)) {
			return &u, nil
		}
	}
	return nil, errs.NotFound("user")
}

func (m *Store) UserSlugExists(_ context.Context, slug, exceptID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Slug == slug && u.ID != exceptID {
			return true, nil
		}
	}
	return false, nil
}

func (m *Store) FindDepartmentStaff(ctx context.Context, departmentID string) ([]models.User, error) {
	active := true
	users, _, err := m.ListUsers(ctx, models.UserFilter{Role: models.RoleStaff, DepartmentID: departmentID, Active: &active})
	return users, err
}

func (m *Store) ListUsers(_ context.Context, f models.UserFilter) ([]models.User, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.User
	for _, u := range m.users {
		if f.Role != "" && u.Role != f.Role {
			continue
		}
		if f.DepartmentID != "" && (u.DepartmentID == nil || *u.DepartmentID != f.DepartmentID) {
			continue
		}
		if f.Active != nil && u.IsActive != *f.Active {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (m *Store) CreateDepartment(_ context.Context, d *models.Department) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.departments {
		if strings.EqualFold(other.Name, d.Name) {
			return errs.Conflict("department already exists")
		}
	}
	m.departments[d.ID] = *d
	return nil
}

func (m *Store) UpdateDepartment(_ context.Context, d *models.Department) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.departments[d.ID]; !ok {
		return errs.NotFound("department")
	}
	m.departments[d.ID] = *d
	return nil
}

func (m *Store) DeleteDepartment(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.departments[id]; !ok {
		return errs.NotFound("department")
	}
	delete(m.departments, id)
	return nil
}

func (m *Store) GetDepartment(_ context.Context, id string) (*models.Department, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.departments[id]
	if !ok {
		return nil, errs.NotFound("department")
	}
	return &d, nil
}

func (m *Store) GetDepartmentByName(_ context.Context, name string) (*models.Department, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.departments {
		if strings.EqualFold(d.Name, name) {
			return &d, nil
		}
	}
	return nil, errs.NotFound("department")
}

func (m *Store) ListDepartments(_ context.Context) ([]models.Department, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Department
	for _, d := range m.departments {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Store) GetChatByComplaint(_ context.Context, complaintID string) (*models.Chat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.chats[complaintID]
	if !ok {
		return nil, errs.NotFound("chat")
	}
	c.Messages = append([]models.ChatMessage(nil), c.Messages...)
	return &c, nil
}

func (m *Store) CreateChat(_ context.Context, c *models.Chat) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failChat {
		return false, errors.New("chat store down")
	}
	if _, ok := m.chats[c.ComplaintID]; ok {
		return false, nil
	}
	stored := *c
	stored.Messages = nil
	for _, msg := range c.Messages {
		msg.ChatID = c.ID
		stored.Messages = append(stored.Messages, msg)
	}
	m.chats[c.ComplaintID] = stored
	if cp, ok := m.complaints[c.ComplaintID]; ok {
		cp.ChatID = ptr(c.ID)
		m.complaints[c.ComplaintID] = cp
	}
	return true, nil
}

func (m *Store) AppendChatMessage(_ context.Context, msg *models.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, c := range m.chats {
		if c.ID == msg.ChatID {
			c.Messages = append(c.Messages, *msg)
			m.chats[k] = c
			return nil
		}
	}
	return errs.NotFound("chat")
}

func (m *Store) CreateNotification(_ context.Context, n *models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications[n.ID] = *n
	m.order = append(m.order, n.ID)
	return nil
}

func (m *Store) GetNotification(_ context.Context, id string) (*models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notifications[id]
	if !ok {
		return nil, errs.NotFound("notification")
	}
	return &n, nil
}

func (m *Store) MarkNotificationRead(_ context.Context, id string) (*models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notifications[id]
	if !ok {
		return nil, errs.NotFound("notification")
	}
	n.IsRead = true
	m.notifications[id] = n
	return &n, nil
}

func (m *Store) MarkAllNotificationsRead(_ context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for id, n := range m.notifications {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			m.notifications[id] = n
			count++
		}
	}
	return count, nil
}

func (m *Store) ListNotifications(_ context.Context, userID string, _ models.Page) ([]models.Notification, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Notification
	for i := len(m.order) - 1; i >= 0; i-- {
		if n := m.notifications[m.order[i]]; n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, len(out), nil
}

func (m *Store) UnreadNotificationCount(_ context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, n := range m.notifications {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

// NotificationsFor returns a user's notifications in insert order.
func (m *Store) NotificationsFor(userID string) []models.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Notification
	for _, id := range m.order {
		if n := m.notifications[id]; n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

func (m *Store) CreateAlert(_ context.Context, a *models.SystemAlert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts[a.ID] = *a
	return nil
}

func (m *Store) ListActiveAlerts(_ context.Context, role models.Role, at time.Time) ([]models.SystemAlert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.SystemAlert
	for _, a := range m.alerts {
		if !a.IsActive || (a.ExpiresAt != nil && !a.ExpiresAt.After(at)) {
			continue
		}
		match := len(a.TargetRoles) == 0
		for _, r := range a.TargetRoles {
			match = match || r == role
		}
		if match {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *Store) ListAlerts(_ context.Context) ([]models.SystemAlert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.SystemAlert
	for _, a := range m.alerts {
		out = append(out, a)
	}
	return out, nil
}

func (m *Store) DeactivateAlert(_ context.Context, id string) (*models.SystemAlert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.alerts[id]
	if !ok {
		return nil, errs.NotFound("alert")
	}
	a.IsActive = false
	m.alerts[id] = a
	return &a, nil
}

func (m *Store) ComplaintStats(ctx context.Context, f models.ComplaintFilter, at time.Time) (*models.ComplaintStats, error) {
	f.Page = models.Page{Limit: models.MaxPageSize}
	items, total, _ := m.ListComplaints(ctx, f)
	st := &models.ComplaintStats{Total: total}
	byStatus := map[string]int{}
	for _, c := range items {
		byStatus[string(c.Status)]++
		if c.Deadline != nil && c.Deadline.Before(at) && c.Status != models.StatusResolved && c.Status != models.StatusClosed {
			st.Overdue++
		}
	}
	for k, v := range byStatus {
		st.ByStatus = append(st.ByStatus, models.CountByKey{Key: k, Count: v})
	}
	return st, nil
}

func (m *Store) CountUsersByRole(_ context.Context) ([]models.CountByKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[string]int{}
	for _, u := range m.users {
		counts[string(u.Role)]++
	}
	var out []models.CountByKey
	for k, v := range counts {
		out = append(out, models.CountByKey{Key: k, Count: v})
	}
	return out, nil
}

func cloneComplaint(c models.Complaint) models.Complaint {
	c.Timeline = append([]models.TimelineEntry(nil), c.Timeline...)
	c.Attachments = append([]models.Attachment(nil), c.Attachments...)
	c.ResolutionProof = append([]models.Attachment(nil), c.ResolutionProof...)
	return c
}

func ptr[T any](v T) *T { return &v }

// PutUser stores u as is, bypassing the uniqueness checks of CreateUser.
func (m *Store) PutUser(u models.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
}

func (m *Store) PutDepartment(d models.Department) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.departments[d.ID] = d
}

// FailChats makes CreateChat fail until called again with false.
func (m *Store) FailChats(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failChat = fail
}

// SetStatus overwrites a complaint's status without touching its timeline.
func (m *Store) SetStatus(id string, status models.Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.complaints[id]; ok {
		c.Status = status
		m.complaints[id] = c
	}
}

func (m *Store) ComplaintCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.complaints)
}

func (m *Store) NotificationCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.notifications)
}

func (m *Store) Notification(id string) (models.Notification, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notifications[id]
	return n, ok
}
