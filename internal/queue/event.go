// Package queue carries post-commit work over RabbitMQ: waitlist
// promotion runs, registration emails, and ticket QR rendering. All
// payloads are JSON and all queues are durable.
package queue

import "github.com/iliyamo/event-registration/internal/domain"

const (
	// PromoteQueueName receives PromotionTask messages whenever a
	// committed operation freed capacity on an event.
	PromoteQueueName = "waitlist.promote"
	// NotifyQueueName receives domain.Notification messages for the
	// registration lifecycle emails.
	NotifyQueueName = "registration.notify"
	// QRQueueName receives QRBatch messages, one per ticket issuance.
	QRQueueName = "ticket.qr"
)

// PromotionTask asks the worker to run a promotion sweep for one event.
// It carries only the id; the worker re-reads state under the event
// lock, so stale or duplicate tasks are harmless.
type PromotionTask struct {
	EventID uint64 `json:"event_id"`
}

// QRBatch bundles the QR render jobs of a single issuance so one
// message covers one registration's tickets.
type QRBatch struct {
	Jobs []domain.QRJob `json:"jobs"`
}
