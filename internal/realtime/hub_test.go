package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recv(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case data := <-c.send:
		var ev Event
		require.NoError(t, json.Unmarshal(data, &ev))
		return ev
	case <-time.After(time.Second):
		t.Fatal("no frame received")
	}
	return Event{}
}

func TestPublishReachesOnlySubscribers(t *testing.T) {
	h := NewHub(zerolog.Nop(), nil)
	a := newClient(h, nil, "a")
	b := newClient(h, nil, "b")
	h.Subscribe(UserChannel("a"), a)
	h.Subscribe(UserChannel("b"), b)

	require.NoError(t, h.Publish(context.Background(), UserChannel("a"), EventNewNotification, map[string]string{"title": "hi"}))

	ev := recv(t, a)
	assert.Equal(t, EventNewNotification, ev.Event)
	assert.Equal(t, "user:a", ev.Channel)
	assert.Len(t, b.send, 0)
}

func TestRemoveDropsAllChannels(t *testing.T) {
	h := NewHub(zerolog.Nop(), nil)
	c := newClient(h, nil, "u")
	h.Subscribe(UserChannel("u"), c)
	h.Subscribe(ComplaintChannel("c1"), c)
	assert.Equal(t, 1, h.Subscribers("complaint:c1"))

	h.Remove(c)
	assert.Equal(t, 0, h.Subscribers("complaint:c1"))
	assert.Equal(t, 0, h.Subscribers("user:u"))
	assert.Empty(t, c.Channels())

	require.NoError(t, h.Publish(context.Background(), "user:u", EventNewNotification, nil))
	assert.Len(t, c.send, 0)
}

func TestPublishDoesNotBlockOnFullBuffer(t *testing.T) {
	h := NewHub(zerolog.Nop(), nil)
	c := newClient(h, nil, "u")
	h.Subscribe("user:u", c)

	done := make(chan struct{})
	go func() {
		for i := 0; i < sendBuffer*2; i++ {
			_ = h.Publish(context.Background(), "user:u", EventNewNotification, i)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked")
	}
	assert.Len(t, c.send, sendBuffer)
}

func TestWebsocketSubscribeFlow(t *testing.T) {
	h := NewHub(zerolog.Nop(), nil)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := h.Serve(w, r, "u1", func(_ context.Context, channel string) error {
			if channel == ComplaintChannel("mine") {
				return nil
			}
			return errors.New("forbidden")
		})
		require.NoError(t, err)
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(subscription{Type: "subscribe", Topics: []string{"complaint:mine", "complaint:theirs"}}))

	var ev Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, "subscribed", ev.Event)
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, "error", ev.Event)

	require.Eventually(t, func() bool { return h.Subscribers("complaint:mine") == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, h.Subscribers("complaint:theirs"))
	assert.Equal(t, 1, h.Subscribers("user:u1"))

	require.NoError(t, h.Publish(context.Background(), "complaint:mine", EventNewChatMessage, map[string]string{"message": "hello"}))
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, EventNewChatMessage, ev.Event)
	assert.Equal(t, "complaint:mine", ev.Channel)
}
