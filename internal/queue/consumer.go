package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/iliyamo/event-registration/internal/domain"
)

// Sender delivers one lifecycle email.
type Sender interface {
	Send(n domain.Notification) error
}

// ImageRenderer writes QR images for a batch of tickets.
type ImageRenderer interface {
	Render(jobs []domain.QRJob) error
}

// Worker consumes the three work queues and executes each task:
// promotion sweeps against the domain service, emails through the
// mailer, QR batches through the renderer.
type Worker struct {
	svc      *domain.Service
	mailer   Sender
	renderer ImageRenderer
	log      zerolog.Logger
}

func NewWorker(svc *domain.Service, mailer Sender, renderer ImageRenderer, log zerolog.Logger) *Worker {
	return &Worker{svc: svc, mailer: mailer, renderer: renderer, log: log}
}

// Run connects to the broker and consumes until ctx is cancelled. It
// reconnects with exponential backoff, so a broker restart only delays
// task processing. Failed tasks are rejected without requeue to avoid
// tight redelivery loops; promotion is safe to drop because any later
// capacity change schedules a fresh sweep.
func (w *Worker) Run(ctx context.Context, url string) error {
	backoff := time.Second
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		conn, err := amqp.Dial(url)
		if err != nil {
			w.log.Warn().Err(err).Dur("retry_in", backoff).Msg("worker: broker dial failed")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		if err := w.consume(ctx, conn); err != nil && !errors.Is(err, context.Canceled) {
			w.log.Warn().Err(err).Msg("worker: consume loop ended, reconnecting")
		}
		_ = conn.Close()
		if err := ctx.Err(); err != nil {
			return err
		}
		time.Sleep(2 * time.Second)
	}
}

func (w *Worker) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		w.log.Warn().Err(err).Msg("worker: set QoS failed")
	}

	handlers := map[string]func(context.Context, []byte) error{
		PromoteQueueName: w.handlePromote,
		NotifyQueueName:  w.handleNotify,
		QRQueueName:      w.handleQR,
	}

	var wg sync.WaitGroup
	for name, handle := range handlers {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", name, err)
		}
		msgs, err := ch.Consume(name, "", false, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("queue consume %s: %w", name, err)
		}
		wg.Add(1)
		go func(name string, handle func(context.Context, []byte) error, msgs <-chan amqp.Delivery) {
			defer wg.Done()
			for d := range msgs {
				if err := handle(ctx, d.Body); err != nil {
					w.log.Warn().Err(err).Str("queue", name).Msg("worker: task failed")
					_ = d.Nack(false, false)
					continue
				}
				_ = d.Ack(false)
			}
		}(name, handle, msgs)
	}

	closed := conn.NotifyClose(make(chan *amqp.Error, 1))
	select {
	case <-ctx.Done():
		_ = ch.Close()
		wg.Wait()
		return ctx.Err()
	case amqpErr := <-closed:
		wg.Wait()
		if amqpErr != nil {
			return amqpErr
		}
		return errors.New("connection closed")
	}
}

func (w *Worker) handlePromote(ctx context.Context, body []byte) error {
	var task PromotionTask
	if err := json.Unmarshal(body, &task); err != nil {
		return fmt.Errorf("unmarshal promotion task: %w", err)
	}
	promoted, err := w.svc.PromoteWaitlist(ctx, task.EventID)
	if err != nil {
		return fmt.Errorf("promote event %d: %w", task.EventID, err)
	}
	if len(promoted) > 0 {
		w.log.Info().Uint64("event_id", task.EventID).Int("promoted", len(promoted)).Msg("worker: waitlist promoted")
	}
	return nil
}

func (w *Worker) handleNotify(_ context.Context, body []byte) error {
	var n domain.Notification
	if err := json.Unmarshal(body, &n); err != nil {
		return fmt.Errorf("unmarshal notification: %w", err)
	}
	return w.mailer.Send(n)
}

func (w *Worker) handleQR(_ context.Context, body []byte) error {
	var batch QRBatch
	if err := json.Unmarshal(body, &batch); err != nil {
		return fmt.Errorf("unmarshal qr batch: %w", err)
	}
	return w.renderer.Render(batch.Jobs)
}
