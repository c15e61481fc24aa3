package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	maxFrame   = 4096
	sendBuffer = 64
)

// Authorizer decides whether the connection may join a channel.
type Authorizer func(ctx context.Context, channel string) error

type Client struct {
	ID     string
	UserID string

	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu       sync.Mutex
	channels map[string]bool
}

type subscription struct {
	Type   string   `json:"type"`
	Topics []string `json:"topics"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func newClient(h *Hub, conn *websocket.Conn, userID string) *Client {
	return &Client{
		ID:       uuid.NewString(),
		UserID:   userID,
		hub:      h,
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
		channels: make(map[string]bool),
	}
}

func (c *Client) track(channel string, on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if on {
		c.channels[channel] = true
	} else {
		delete(c.channels, channel)
	}
}

func (c *Client) Channels() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.channels))
	for ch := range c.channels {
		out = append(out, ch)
	}
	return out
}

// Serve upgrades the request and joins the user's own channel. Further channels are
// joined on client request after authorize allows them. Serve returns once the
// connection is set up; the pumps run until it closes.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID string, authorize Authorizer) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	c := newClient(h, conn, userID)
	h.Subscribe(UserChannel(userID), c)
	h.logger.Debug().Str("client_id", c.ID).Str("user_id", userID).Msg("client connected")

	go c.writePump()
	go c.readPump(authorize)
	return nil
}

func (c *Client) readPump(authorize Authorizer) {
	defer func() {
		c.hub.Remove(c)
		close(c.send)
		c.conn.Close()
		c.hub.logger.Debug().Str("client_id", c.ID).Msg("client disconnected")
	}()

	c.conn.SetReadLimit(maxFrame)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn().Err(err).Str("client_id", c.ID).Msg("websocket read error")
			}
			return
		}
		var sub subscription
		if err := json.Unmarshal(message, &sub); err != nil {
			c.reply("error", "invalid frame")
			continue
		}
		c.handleSubscription(sub, authorize)
	}
}

func (c *Client) handleSubscription(sub subscription, authorize Authorizer) {
	for _, topic := range sub.Topics {
		switch sub.Type {
		case "subscribe":
			if authorize != nil {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				err := authorize(ctx, topic)
				cancel()
				if err != nil {
					c.reply("error", map[string]string{"topic": topic, "message": err.Error()})
					continue
				}
			}
			c.hub.Subscribe(topic, c)
			c.reply("subscribed", topic)
		case "unsubscribe":
			if topic == UserChannel(c.UserID) {
				continue
			}
			c.hub.Unsubscribe(topic, c)
			c.reply("unsubscribed", topic)
		default:
			c.reply("error", "unknown frame type")
			return
		}
	}
}

func (c *Client) reply(event string, payload any) {
	data, err := json.Marshal(Event{Event: event, Channel: "system", Payload: payload, Timestamp: time.Now().UTC()})
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
