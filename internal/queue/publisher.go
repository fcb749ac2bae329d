package queue

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/iliyamo/event-registration/internal/domain"
)

// Publisher implements domain.FollowUp over RabbitMQ. It keeps one
// connection, reconnects lazily when a publish finds it closed, and
// never propagates broker errors to callers: a lost message costs at
// most a delayed email or promotion sweep, both of which are
// recoverable.
type Publisher struct {
	url string
	log zerolog.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewPublisher dials the broker and declares the three queues. A dial
// failure is returned so the caller can decide to fall back to the
// in-process dispatcher.
func NewPublisher(url string, log zerolog.Logger) (*Publisher, error) {
	p := &Publisher{url: url, log: log}
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

// Close shuts down the broker connection.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.conn, p.ch = nil, nil
}

// connect must be called with p.mu held, except from NewPublisher.
func (p *Publisher) connect() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return err
	}
	for _, name := range []string{PromoteQueueName, NotifyQueueName, QRQueueName} {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return err
		}
	}
	p.conn, p.ch = conn, ch
	return nil
}

func (p *Publisher) publish(ctx context.Context, queueName string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil || p.conn.IsClosed() {
		if err := p.connect(); err != nil {
			return err
		}
	}
	// The default exchange routes by queue name.
	return p.ch.PublishWithContext(ctx, "", queueName, false, false, pub)
}

// PromotionNeeded schedules a promotion sweep for the event.
func (p *Publisher) PromotionNeeded(ctx context.Context, eventID uint64) {
	if err := p.publish(ctx, PromoteQueueName, PromotionTask{EventID: eventID}); err != nil {
		p.log.Warn().Err(err).Uint64("event_id", eventID).Msg("publish promotion task failed")
	}
}

// Notify queues one lifecycle email.
func (p *Publisher) Notify(ctx context.Context, n domain.Notification) {
	if err := p.publish(ctx, NotifyQueueName, n); err != nil {
		p.log.Warn().Err(err).Str("to", n.Email).Msg("publish notification failed")
	}
}

// RenderQR queues the QR batch of one issuance.
func (p *Publisher) RenderQR(ctx context.Context, jobs []domain.QRJob) {
	if len(jobs) == 0 {
		return
	}
	if err := p.publish(ctx, QRQueueName, QRBatch{Jobs: jobs}); err != nil {
		p.log.Warn().Err(err).Int("jobs", len(jobs)).Msg("publish qr batch failed")
	}
}
