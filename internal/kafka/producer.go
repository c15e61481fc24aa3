package kafka

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

const (
	EventComplaintCreated   = "complaint.created"
	EventComplaintStatus    = "complaint.status_changed"
	EventComplaintAssigned  = "complaint.assigned"
	EventComplaintReassign  = "complaint.assignment_updated"
	EventComplaintWorkerUpd = "complaint.worker_update"
)

const (
	queueSize    = 256
	writeTimeout = 5 * time.Second
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer writes complaint lifecycle events to a topic. Writes are best-effort:
// events are queued and written in order by a single goroutine off the request
// path, and dropped when the queue is full. With no brokers or topic every call
// is a no-op.
type Producer struct {
	writer messageWriter
	logger zerolog.Logger

	mu     sync.Mutex
	closed bool
	queue  chan kafka.Message
	done   chan struct{}
}

func NewProducer(brokers []string, topic string, logger zerolog.Logger) *Producer {
	if len(brokers) == 0 || topic == "" {
		return &Producer{logger: logger}
	}
	return newProducer(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
	}, logger)
}

func newProducer(w messageWriter, logger zerolog.Logger) *Producer {
	p := &Producer{
		writer: w,
		logger: logger,
		queue:  make(chan kafka.Message, queueSize),
		done:   make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *Producer) Enabled() bool { return p != nil && p.writer != nil }

// ProduceComplaintEvent keys the message by complaint id, so a complaint's
// events land on one partition in the order they were produced.
func (p *Producer) ProduceComplaintEvent(complaintID, event string, payload map[string]any) {
	if !p.Enabled() {
		return
	}
	msg := map[string]any{"event": event, "complaint_id": complaintID, "time": time.Now().UTC()}
	for k, v := range payload {
		msg[k] = v
	}
	body, err := json.Marshal(msg)
	if err != nil {
		p.logger.Warn().Err(err).Str("event", event).Msg("kafka: marshal complaint event")
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	select {
	case p.queue <- kafka.Message{Key: []byte(complaintID), Value: body}:
	default:
		p.logger.Warn().Str("event", event).Str("complaint_id", complaintID).Msg("kafka: queue full, dropping complaint event")
	}
}

func (p *Producer) run() {
	defer close(p.done)
	for msg := range p.queue {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		if err := p.writer.WriteMessages(ctx, msg); err != nil {
			p.logger.Warn().Err(err).Str("complaint_id", string(msg.Key)).Msg("kafka: write complaint event")
		}
		cancel()
	}
}

// Close stops accepting events, waits for the queued ones to be written and
// closes the writer.
func (p *Producer) Close() error {
	if !p.Enabled() {
		return nil
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	<-p.done
	return p.writer.Close()
}
