package domain

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/event-registration/internal/model"
)

// Store is the persistence boundary of the domain layer. Transact
// acquires an atomic multi-record write context spanning events,
// registrations, waitlist entries and tickets: fn either commits as a
// whole or every write in it is rolled back. Implementations must
// guarantee release of the transaction on every exit path and may
// retry fn a bounded number of times on transient conflicts, so fn
// must be safe to re-run.
//
// The read methods outside Transact serve lookups that the error
// taxonomy requires before a transaction is opened (not-found checks)
// and listing queries.
type Store interface {
	Transact(ctx context.Context, fn func(tx Tx) error) error

	GetEvent(ctx context.Context, eventID uint64) (*model.Event, error)
	GetRegistration(ctx context.Context, regID uint64) (*model.Registration, error)
	GetTicket(ctx context.Context, ticketID uint64) (*model.Ticket, error)
	ListTicketsByRegistration(ctx context.Context, regID uint64) ([]model.Ticket, error)
	ListRegistrationsByUser(ctx context.Context, userID uint64) ([]model.Registration, error)
	UserEmail(ctx context.Context, userID uint64) (string, error)
}

// Tx is the set of writes and locked reads available inside one
// atomic transaction. The *ForUpdate reads take an exclusive lock on
// the underlying record: locking the event row is what serializes
// concurrent admission, cancellation and promotion for one event.
// Capacity is only ever changed through AdjustCapacity, which applies
// an atomic delta and fails rather than letting the counter go
// negative.
type Tx interface {
	// Event and capacity ledger.
	EventForUpdate(ctx context.Context, eventID uint64) (*model.Event, error)
	AdjustCapacity(ctx context.Context, eventID uint64, delta int) error
	SetEventStatus(ctx context.Context, eventID uint64, status model.EventStatus) error
	OrgSuspended(ctx context.Context, orgID uint64) (bool, error)
	AddAttendee(ctx context.Context, eventID, userID uint64) error
	RemoveAttendee(ctx context.Context, eventID, userID uint64) error

	// Registrations.
	ActiveRegistrationExists(ctx context.Context, eventID, userID uint64) (bool, error)
	InsertRegistration(ctx context.Context, reg *model.Registration) error
	RegistrationForUpdate(ctx context.Context, regID uint64) (*model.Registration, error)
	SetRegistrationStatus(ctx context.Context, regID uint64, status model.RegistrationStatus) error
	SetRegistrationQuantity(ctx context.Context, regID uint64, quantity, ticketsIssued int) error
	DeleteRegistration(ctx context.Context, regID uint64) error
	ListRegistrationsByEvent(ctx context.Context, eventID uint64) ([]model.Registration, error)

	// Waitlist: an ordered FIFO per event with O(1) head pop and
	// O(1) rotate-to-tail.
	WaitlistPush(ctx context.Context, eventID, regID uint64) error
	WaitlistFront(ctx context.Context, eventID uint64) (*model.Registration, error)
	WaitlistRotate(ctx context.Context, eventID uint64) error
	WaitlistRemove(ctx context.Context, eventID, regID uint64) error
	WaitlistSize(ctx context.Context, eventID uint64) (int, error)

	// Tickets.
	InsertTickets(ctx context.Context, tickets []*model.Ticket) error
	TicketForUpdate(ctx context.Context, ticketID uint64) (*model.Ticket, error)
	TicketForUpdateByCode(ctx context.Context, code string) (*model.Ticket, error)
	SetTicketStatus(ctx context.Context, ticketID uint64, status model.TicketStatus) error
	MarkTicketUsed(ctx context.Context, ticketID uint64, scannedBy uint64, scannedAt time.Time) error
	DeleteTicketsByRegistration(ctx context.Context, regID uint64) error
	DeleteTrailingTickets(ctx context.Context, regID uint64, n int) error
	CancelTicketsByEvent(ctx context.Context, eventID uint64) error
}

// NotificationKind selects the email template for a notification task.
type NotificationKind string

const (
	NotifyConfirmed  NotificationKind = "confirmed"
	NotifyWaitlisted NotificationKind = "waitlisted"
	NotifyPromoted   NotificationKind = "promoted"
	NotifyCancelled  NotificationKind = "cancelled"
)

// Notification is a fire-and-forget email task.
type Notification struct {
	Kind           NotificationKind `json:"kind"`
	Email          string           `json:"email"`
	EventName      string           `json:"event_name"`
	RegistrationID string           `json:"registration_id"`
	Quantity       int              `json:"quantity"`
}

// QRJob asks for a ticket code to be rendered as a QR image. Rendering
// is best-effort: a failed render leaves the ticket valid without an
// image.
type QRJob struct {
	TicketID uint64 `json:"ticket_id"`
	Code     string `json:"code"`
}

// FollowUp dispatches the non-transactional side effects of an
// operation strictly after its transaction has committed. All three
// methods are best-effort: implementations log failures and never
// propagate them back into the triggering request.
type FollowUp interface {
	// PromotionNeeded schedules a waitlist promotion run for the
	// event; invoked after any commit that increased its capacity.
	PromotionNeeded(ctx context.Context, eventID uint64)
	Notify(ctx context.Context, n Notification)
	RenderQR(ctx context.Context, jobs []QRJob)
}

// Promotion describes one registration confirmed by a promotion run.
type Promotion struct {
	RegistrationID uint64 `json:"registration_id"`
	PublicID       string `json:"public_id"`
	UserID         uint64 `json:"user_id"`
	Quantity       int    `json:"quantity"`
}

// Service wires the state machines to a Store and a FollowUp
// dispatcher. now is injectable for tests and defaults to time.Now.
type Service struct {
	store    Store
	followUp FollowUp
	log      zerolog.Logger
	now      func() time.Time
}

// NewService constructs a Service. A nil followUp disables side
// effects entirely (used by the queue worker, which must not
// re-trigger itself).
func NewService(store Store, followUp FollowUp, log zerolog.Logger) *Service {
	return &Service{store: store, followUp: followUp, log: log, now: time.Now}
}

// notify sends a best-effort notification if a dispatcher is present.
func (s *Service) notify(ctx context.Context, kind NotificationKind, userID uint64, eventName, publicID string, quantity int) {
	if s.followUp == nil {
		return
	}
	email, err := s.store.UserEmail(ctx, userID)
	if err != nil {
		s.log.Warn().Err(err).Uint64("user_id", userID).Msg("lookup email for notification failed")
		return
	}
	s.followUp.Notify(ctx, Notification{
		Kind:           kind,
		Email:          email,
		EventName:      eventName,
		RegistrationID: publicID,
		Quantity:       quantity,
	})
}

// renderTickets queues QR rendering for freshly issued tickets.
func (s *Service) renderTickets(ctx context.Context, tickets []*model.Ticket) {
	if s.followUp == nil || len(tickets) == 0 {
		return
	}
	jobs := make([]QRJob, 0, len(tickets))
	for _, t := range tickets {
		jobs = append(jobs, QRJob{TicketID: t.ID, Code: t.Code})
	}
	s.followUp.RenderQR(ctx, jobs)
}

// promotionNeeded schedules a follow-up promotion run.
func (s *Service) promotionNeeded(ctx context.Context, eventID uint64) {
	if s.followUp == nil {
		return
	}
	s.followUp.PromotionNeeded(ctx, eventID)
}
