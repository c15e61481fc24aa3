package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/civicmitra/backend/internal/auth"
	"github.com/civicmitra/backend/internal/errs"
	"github.com/civicmitra/backend/internal/models"
	"github.com/civicmitra/backend/internal/realtime"
)

const maxChatMessageLen = 2000

type ChatService struct {
	Chats      ChatStore
	Complaints ComplaintStore
	Hub        Publisher
	Logger     zerolog.Logger
	Now        func() time.Time
}

func welcomeMessage(c *models.Complaint) string {
	return fmt.Sprintf("Chat started for complaint %q. Updates and questions about this complaint can be posted here.", c.Title)
}

// ensureChat returns the complaint's chat, creating it with a system welcome
// message when it does not exist yet.
func (s *ChatService) ensureChat(ctx context.Context, c *models.Complaint) (*models.Chat, error) {
	chat, err := s.Chats.GetChatByComplaint(ctx, c.ID)
	if err == nil {
		return chat, nil
	}
	if !errs.Is(err, errs.KindNotFound) {
		return nil, err
	}

	ts := now(s.Now)
	chat = &models.Chat{
		ID:          uuid.NewString(),
		ComplaintID: c.ID,
		CitizenID:   c.CitizenID,
		StaffID:     c.StaffID,
		Messages: []models.ChatMessage{{
			ID:        uuid.NewString(),
			Message:   welcomeMessage(c),
			CreatedAt: ts,
		}},
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	if _, err := s.Chats.CreateChat(ctx, chat); err != nil {
		return nil, err
	}
	// A concurrent caller may have won the insert; read back whichever chat exists.
	return s.Chats.GetChatByComplaint(ctx, c.ID)
}

func (s *ChatService) authorizedComplaint(ctx context.Context, actor auth.Actor, complaintID string) (*models.Complaint, error) {
	c, err := s.Complaints.GetComplaint(ctx, complaintID)
	if err != nil {
		return nil, err
	}
	if !auth.CanAccessComplaint(actor, c) {
		return nil, errs.Forbidden("not allowed to access this chat")
	}
	return c, nil
}

func (s *ChatService) GetChat(ctx context.Context, actor auth.Actor, complaintID string) (*models.Chat, error) {
	c, err := s.authorizedComplaint(ctx, actor, complaintID)
	if err != nil {
		return nil, err
	}
	return s.ensureChat(ctx, c)
}

// SendMessage stores the message and then broadcasts it to the complaint channel.
// A failed broadcast does not undo the stored message.
func (s *ChatService) SendMessage(ctx context.Context, actor auth.Actor, complaintID, text string) (*models.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errs.Validation("message is required", errs.FieldError{Field: "message", Message: "required"})
	}
	if len(text) > maxChatMessageLen {
		return nil, errs.Validation("message is too long", errs.FieldError{Field: "message", Message: fmt.Sprintf("at most %d characters", maxChatMessageLen)})
	}

	c, err := s.authorizedComplaint(ctx, actor, complaintID)
	if err != nil {
		return nil, err
	}
	chat, err := s.ensureChat(ctx, c)
	if err != nil {
		return nil, err
	}

	sender := actor.ID
	msg := &models.ChatMessage{
		ID:         uuid.NewString(),
		ChatID:     chat.ID,
		SenderID:   &sender,
		SenderName: actor.Name,
		SenderRole: actor.Role,
		Message:    text,
		CreatedAt:  now(s.Now),
	}
	if err := s.Chats.AppendChatMessage(ctx, msg); err != nil {
		return nil, err
	}

	if s.Hub != nil {
		attempt(s.Logger, "broadcast chat message", func() error {
			return s.Hub.Publish(ctx, realtime.ComplaintChannel(c.ID), realtime.EventNewChatMessage, map[string]any{
				"complaint_id": c.ID,
				"message":      msg,
			})
		})
	}
	return msg, nil
}

// ChannelAuthorizer lets a live connection join complaint channels the actor can read.
func (s *ChatService) ChannelAuthorizer(actor auth.Actor) realtime.Authorizer {
	return func(ctx context.Context, channel string) error {
		if channel == realtime.UserChannel(actor.ID) {
			return nil
		}
		id, ok := strings.CutPrefix(channel, "complaint:")
		if !ok || id == "" {
			return errs.Forbidden("unknown channel")
		}
		_, err := s.authorizedComplaint(ctx, actor, id)
		return err
	}
}
