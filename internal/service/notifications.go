package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/civicmitra/backend/internal/auth"
	"github.com/civicmitra/backend/internal/errs"
	"github.com/civicmitra/backend/internal/models"
	"github.com/civicmitra/backend/internal/realtime"
)

// Notifier persists notifications and pushes them to the recipient's live channel.
type Notifier struct {
	Store  NotificationStore
	Hub    Publisher
	Logger zerolog.Logger
	Now    func() time.Time
}

// Notify is a no-op for an empty userID. The stored row is the durable record;
// the live push is advisory and its failure is only logged.
func (n *Notifier) Notify(ctx context.Context, userID, title, message string, complaintID *string) (*models.Notification, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, nil
	}
	rec := &models.Notification{
		ID:          uuid.NewString(),
		UserID:      userID,
		Title:       title,
		Message:     message,
		ComplaintID: complaintID,
		CreatedAt:   now(n.Now),
	}
	if err := n.Store.CreateNotification(ctx, rec); err != nil {
		return nil, err
	}
	if n.Hub != nil {
		attempt(n.Logger, "push notification", func() error {
			return n.Hub.Publish(ctx, realtime.UserChannel(userID), realtime.EventNewNotification, rec)
		})
	}
	return rec, nil
}

// MarkRead flips the read flag of a notification owned by the actor. Marking an
// already read notification succeeds.
func (n *Notifier) MarkRead(ctx context.Context, actor auth.Actor, id string) (*models.Notification, error) {
	rec, err := n.Store.GetNotification(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.UserID != actor.ID {
		return nil, errs.Forbidden("not your notification")
	}
	if rec.IsRead {
		return rec, nil
	}
	return n.Store.MarkNotificationRead(ctx, id)
}

func (n *Notifier) MarkAllRead(ctx context.Context, actor auth.Actor) (int, error) {
	return n.Store.MarkAllNotificationsRead(ctx, actor.ID)
}

func (n *Notifier) List(ctx context.Context, actor auth.Actor, page models.Page) ([]models.Notification, int, error) {
	return n.Store.ListNotifications(ctx, actor.ID, page)
}

func (n *Notifier) UnreadCount(ctx context.Context, actor auth.Actor) (int, error) {
	return n.Store.UnreadNotificationCount(ctx, actor.ID)
}

// notifyQuietly sends a notification as a secondary effect of another operation.
func (n *Notifier) notifyQuietly(ctx context.Context, userID, title, message string, complaintID *string) {
	if n == nil {
		return
	}
	attempt(n.Logger, "notify "+title, func() error {
		_, err := n.Notify(ctx, userID, title, message, complaintID)
		return err
	})
}

func now(fn func() time.Time) time.Time {
	if fn != nil {
		return fn().UTC()
	}
	return time.Now().UTC()
}
