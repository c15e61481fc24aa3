package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	delay  time.Duration
	fail   bool
	closed bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	time.Sleep(w.delay)
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return errors.New("writer closed")
	}
	if w.fail {
		return errors.New("broker unreachable")
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func TestProducerDisabledWithoutBrokers(t *testing.T) {
	for _, p := range []*Producer{
		NewProducer(nil, "civicmitra.complaints", zerolog.Nop()),
		NewProducer([]string{"localhost:9092"}, "", zerolog.Nop()),
		nil,
	} {
		assert.False(t, p.Enabled())
		assert.NotPanics(t, func() {
			p.ProduceComplaintEvent("c1", EventComplaintCreated, map[string]any{"status": "Submitted"})
		})
		assert.NoError(t, p.Close())
	}
}

func TestProducerEnabledWithBrokers(t *testing.T) {
	p := NewProducer([]string{"localhost:9092"}, "civicmitra.complaints", zerolog.Nop())
	assert.True(t, p.Enabled())
	w, ok := p.writer.(*kafka.Writer)
	require.True(t, ok)
	assert.Equal(t, "civicmitra.complaints", w.Topic)
	assert.NoError(t, p.Close())
}

func TestProducerWritesInOrderAndDrainsOnClose(t *testing.T) {
	w := &recordingWriter{delay: time.Millisecond}
	p := newProducer(w, zerolog.Nop())

	const n = 50
	for i := 0; i < n; i++ {
		p.ProduceComplaintEvent("c1", EventComplaintWorkerUpd, map[string]any{"seq": i})
	}
	require.NoError(t, p.Close())

	w.mu.Lock()
	defer w.mu.Unlock()
	require.Len(t, w.msgs, n)
	for i, m := range w.msgs {
		assert.Equal(t, "c1", string(m.Key))
		var body map[string]any
		require.NoError(t, json.Unmarshal(m.Value, &body))
		assert.Equal(t, EventComplaintWorkerUpd, body["event"])
		assert.Equal(t, float64(i), body["seq"], fmt.Sprintf("message %d", i))
	}
	assert.True(t, w.closed)
}

func TestProducerAfterCloseIsNoop(t *testing.T) {
	w := &recordingWriter{}
	p := newProducer(w, zerolog.Nop())
	require.NoError(t, p.Close())
	require.NoError(t, p.Close())

	assert.NotPanics(t, func() {
		p.ProduceComplaintEvent("c1", EventComplaintCreated, nil)
	})
	w.mu.Lock()
	defer w.mu.Unlock()
	assert.Empty(t, w.msgs)
}

func TestProducerWriteFailureIsLogged(t *testing.T) {
	w := &recordingWriter{fail: true}
	p := newProducer(w, zerolog.Nop())
	p.ProduceComplaintEvent("c1", EventComplaintCreated, nil)
	assert.NoError(t, p.Close())
	assert.True(t, w.closed)
}
