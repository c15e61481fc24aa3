package service

import (
	"context"
	"time"

	"github.com/civicmitra/backend/internal/models"
)

// The store interfaces below are the slices of *db.Store each service uses.

type ComplaintStore interface {
	CreateComplaint(ctx context.Context, c *models.Complaint) error
	GetComplaint(ctx context.Context, id string) (*models.Complaint, error)
	ApplyComplaintChange(ctx context.Context, id string, ch models.ComplaintChange) (*models.Complaint, error)
	ListComplaints(ctx context.Context, f models.ComplaintFilter) ([]models.Complaint, int, error)
	ListGeocodedComplaints(ctx context.Context, limit int) ([]models.Complaint, error)
	DeleteComplaint(ctx context.Context, id string) error
}

type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	UpdateUser(ctx context.Context, u *models.User) error
	DeleteUser(ctx context.Context, id string) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UserSlugExists(ctx context.Context, slug, exceptID string) (bool, error)
	FindDepartmentStaff(ctx context.Context, departmentID string) ([]models.User, error)
	ListUsers(ctx context.Context, f models.UserFilter) ([]models.User, int, error)
}

type DepartmentStore interface {
	CreateDepartment(ctx context.Context, d *models.Department) error
	UpdateDepartment(ctx context.Context, d *models.Department) error
	DeleteDepartment(ctx context.Context, id string) error
	GetDepartment(ctx context.Context, id string) (*models.Department, error)
	GetDepartmentByName(ctx context.Context, name string) (*models.Department, error)
	ListDepartments(ctx context.Context) ([]models.Department, error)
}

type ChatStore interface {
	GetChatByComplaint(ctx context.Context, complaintID string) (*models.Chat, error)
	CreateChat(ctx context.Context, c *models.Chat) (bool, error)
	AppendChatMessage(ctx context.Context, m *models.ChatMessage) error
}

type NotificationStore interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
	GetNotification(ctx context.Context, id string) (*models.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) (*models.Notification, error)
	MarkAllNotificationsRead(ctx context.Context, userID string) (int, error)
	ListNotifications(ctx context.Context, userID string, page models.Page) ([]models.Notification, int, error)
	UnreadNotificationCount(ctx context.Context, userID string) (int, error)
}

type AlertStore interface {
	CreateAlert(ctx context.Context, a *models.SystemAlert) error
	ListActiveAlerts(ctx context.Context, role models.Role, now time.Time) ([]models.SystemAlert, error)
	ListAlerts(ctx context.Context) ([]models.SystemAlert, error)
	DeactivateAlert(ctx context.Context, id string) (*models.SystemAlert, error)
}

type StatsStore interface {
	ComplaintStats(ctx context.Context, f models.ComplaintFilter, now time.Time) (*models.ComplaintStats, error)
	CountUsersByRole(ctx context.Context) ([]models.CountByKey, error)
	ListComplaints(ctx context.Context, f models.ComplaintFilter) ([]models.Complaint, int, error)
}

// Publisher pushes an event to live subscribers of a channel.
type Publisher interface {
	Publish(ctx context.Context, channel, event string, payload any) error
}

// EventSink receives complaint lifecycle events for downstream consumers.
type EventSink interface {
	ProduceComplaintEvent(complaintID, event string, payload map[string]any)
}
