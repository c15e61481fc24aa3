// Package realtime is the live connection registry. Connections subscribe to channels
// ("user:<id>", "complaint:<id>") and the services publish events to them.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	EventNewNotification = "new_notification"
	EventNewChatMessage  = "new_chat_message"

	redisPrefix = "civicmitra:rt:"
)

func UserChannel(userID string) string { return "user:" + userID }

func ComplaintChannel(complaintID string) string { return "complaint:" + complaintID }

// Event is the frame written to subscribers.
type Event struct {
	Event     string    `json:"event"`
	Channel   string    `json:"channel"`
	Payload   any       `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

// Hub maps channels to the connections subscribed to them. With a redis client,
// publishes go through redis pub/sub so every instance delivers to its own connections.
type Hub struct {
	mu       sync.RWMutex
	channels map[string]map[*Client]struct{}
	redis    *redis.Client
	logger   zerolog.Logger
}

func NewHub(logger zerolog.Logger, rdb *redis.Client) *Hub {
	return &Hub{
		channels: make(map[string]map[*Client]struct{}),
		redis:    rdb,
		logger:   logger,
	}
}

func (h *Hub) Subscribe(channel string, c *Client) {
	h.mu.Lock()
	subs, ok := h.channels[channel]
	if !ok {
		subs = make(map[*Client]struct{})
		h.channels[channel] = subs
	}
	subs[c] = struct{}{}
	h.mu.Unlock()
	c.track(channel, true)
}

func (h *Hub) Unsubscribe(channel string, c *Client) {
	h.mu.Lock()
	h.unsubscribeLocked(channel, c)
	h.mu.Unlock()
	c.track(channel, false)
}

func (h *Hub) unsubscribeLocked(channel string, c *Client) {
	if subs, ok := h.channels[channel]; ok {
		delete(subs, c)
		if len(subs) == 0 {
			delete(h.channels, channel)
		}
	}
}

// Remove drops c from every channel it joined.
func (h *Hub) Remove(c *Client) {
	channels := c.Channels()
	h.mu.Lock()
	for _, ch := range channels {
		h.unsubscribeLocked(ch, c)
	}
	h.mu.Unlock()
	for _, ch := range channels {
		c.track(ch, false)
	}
}

func (h *Hub) Subscribers(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[channel])
}

// Publish never blocks on slow connections; a full send buffer drops the frame.
func (h *Hub) Publish(ctx context.Context, channel, event string, payload any) error {
	data, err := json.Marshal(Event{Event: event, Channel: channel, Payload: payload, Timestamp: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if h.redis != nil {
		return h.redis.Publish(ctx, redisPrefix+channel, data).Err()
	}
	h.deliver(channel, data)
	return nil
}

func (h *Hub) deliver(channel string, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.channels[channel] {
		select {
		case c.send <- data:
		default:
			h.logger.Warn().Str("client_id", c.ID).Str("channel", channel).Msg("send buffer full, dropping frame")
		}
	}
}

// RunRelay forwards redis messages to local connections until ctx ends. It returns
// immediately when no redis client is configured.
func (h *Hub) RunRelay(ctx context.Context) error {
	if h.redis == nil {
		return nil
	}
	pubsub := h.redis.PSubscribe(ctx, redisPrefix+"*")
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			h.deliver(strings.TrimPrefix(msg.Channel, redisPrefix), []byte(msg.Payload))
		}
	}
}
