package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog"

	"github.com/iliyamo/event-registration/internal/domain"
	"github.com/iliyamo/event-registration/internal/model"
)

// MySQL error numbers for transient transaction conflicts.
const (
	mysqlErrDeadlock        = 1213
	mysqlErrLockWaitTimeout = 1205
	mysqlErrDuplicateKey    = 1062
)

// maxTxAttempts bounds the retry loop for transient conflicts.
const maxTxAttempts = 3

// Store implements domain.Store over MySQL by composing the per-table
// repositories. Transact is the single entry point for every
// state-changing operation: it opens one transaction, hands the
// domain layer a write context, rolls back on any error or panic, and
// retries a bounded number of times when MySQL reports a deadlock or
// lock-wait timeout.
type Store struct {
	db       *sql.DB
	events   *EventRepo
	regs     *RegistrationRepo
	waitlist *WaitlistRepo
	tickets  *TicketRepo
	users    *UserRepo
	log      zerolog.Logger
}

// NewStore constructs a Store and its repositories over one database
// handle.
func NewStore(db *sql.DB, log zerolog.Logger) *Store {
	return &Store{
		db:       db,
		events:   NewEventRepo(db),
		regs:     NewRegistrationRepo(db),
		waitlist: NewWaitlistRepo(db),
		tickets:  NewTicketRepo(db),
		users:    NewUserRepo(db),
		log:      log,
	}
}

// Events exposes the event repository for non-transactional reads and
// event CRUD used by handlers.
func (s *Store) Events() *EventRepo { return s.events }

// Tickets exposes the ticket repository for listing queries.
func (s *Store) Tickets() *TicketRepo { return s.tickets }

// Registrations exposes the registration repository for listing queries.
func (s *Store) Registrations() *RegistrationRepo { return s.regs }

// Transact runs fn inside a MySQL transaction. fn may be re-run when
// the engine reports a transient conflict, so it must be idempotent
// with respect to its captured state.
func (s *Store) Transact(ctx context.Context, fn func(tx domain.Tx) error) error {
	var lastErr error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err := s.runOnce(ctx, fn)
		if err == nil {
			return nil
		}
		if !isRetryable(err) || attempt == maxTxAttempts {
			return err
		}
		lastErr = err
		s.log.Warn().Err(err).Int("attempt", attempt).Msg("transaction conflict, retrying")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * 25 * time.Millisecond):
		}
	}
	return lastErr
}

func (s *Store) runOnce(ctx context.Context, fn func(tx domain.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&storeTx{tx: tx, s: s}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	committed = true
	return nil
}

// isRetryable reports whether the error is a transient MySQL conflict
// worth re-running the transaction for.
func isRetryable(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == mysqlErrDeadlock || me.Number == mysqlErrLockWaitTimeout
	}
	return false
}

// isDuplicateKey reports whether the error is a unique-key violation.
func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlErrDuplicateKey
}

// ── domain.Store reads ──

func (s *Store) GetEvent(ctx context.Context, eventID uint64) (*model.Event, error) {
	return s.events.GetByID(ctx, eventID)
}

func (s *Store) GetRegistration(ctx context.Context, regID uint64) (*model.Registration, error) {
	return s.regs.GetByID(ctx, regID)
}

func (s *Store) GetTicket(ctx context.Context, ticketID uint64) (*model.Ticket, error) {
	return s.tickets.GetByID(ctx, ticketID)
}

func (s *Store) ListTicketsByRegistration(ctx context.Context, regID uint64) ([]model.Ticket, error) {
	return s.tickets.ListByRegistration(ctx, regID)
}

func (s *Store) ListRegistrationsByUser(ctx context.Context, userID uint64) ([]model.Registration, error) {
	return s.regs.ListByUser(ctx, userID)
}

func (s *Store) UserEmail(ctx context.Context, userID uint64) (string, error) {
	return s.users.EmailByID(ctx, userID)
}

// storeTx adapts one *sql.Tx to the domain.Tx write context by
// delegating to the repositories' Tx-scoped methods.
type storeTx struct {
	tx *sql.Tx
	s  *Store
}

func (t *storeTx) EventForUpdate(ctx context.Context, eventID uint64) (*model.Event, error) {
	return t.s.events.ForUpdateTx(ctx, t.tx, eventID)
}

func (t *storeTx) AdjustCapacity(ctx context.Context, eventID uint64, delta int) error {
	return t.s.events.AdjustCapacityTx(ctx, t.tx, eventID, delta)
}

func (t *storeTx) SetEventStatus(ctx context.Context, eventID uint64, status model.EventStatus) error {
	return t.s.events.SetStatusTx(ctx, t.tx, eventID, status)
}

func (t *storeTx) OrgSuspended(ctx context.Context, orgID uint64) (bool, error) {
	return t.s.events.OrgSuspendedTx(ctx, t.tx, orgID)
}

func (t *storeTx) AddAttendee(ctx context.Context, eventID, userID uint64) error {
	return t.s.events.AddAttendeeTx(ctx, t.tx, eventID, userID)
}

func (t *storeTx) RemoveAttendee(ctx context.Context, eventID, userID uint64) error {
	return t.s.events.RemoveAttendeeTx(ctx, t.tx, eventID, userID)
}

func (t *storeTx) ActiveRegistrationExists(ctx context.Context, eventID, userID uint64) (bool, error) {
	return t.s.regs.ActiveExistsTx(ctx, t.tx, eventID, userID)
}

func (t *storeTx) InsertRegistration(ctx context.Context, reg *model.Registration) error {
	return t.s.regs.InsertTx(ctx, t.tx, reg)
}

func (t *storeTx) RegistrationForUpdate(ctx context.Context, regID uint64) (*model.Registration, error) {
	return t.s.regs.ForUpdateTx(ctx, t.tx, regID)
}

func (t *storeTx) SetRegistrationStatus(ctx context.Context, regID uint64, status model.RegistrationStatus) error {
	return t.s.regs.SetStatusTx(ctx, t.tx, regID, status)
}

func (t *storeTx) SetRegistrationQuantity(ctx context.Context, regID uint64, quantity, ticketsIssued int) error {
	return t.s.regs.SetQuantityTx(ctx, t.tx, regID, quantity, ticketsIssued)
}

func (t *storeTx) DeleteRegistration(ctx context.Context, regID uint64) error {
	return t.s.regs.DeleteTx(ctx, t.tx, regID)
}

func (t *storeTx) ListRegistrationsByEvent(ctx context.Context, eventID uint64) ([]model.Registration, error) {
	return t.s.regs.ListByEventTx(ctx, t.tx, eventID)
}

func (t *storeTx) WaitlistPush(ctx context.Context, eventID, regID uint64) error {
	return t.s.waitlist.PushTx(ctx, t.tx, eventID, regID)
}

func (t *storeTx) WaitlistFront(ctx context.Context, eventID uint64) (*model.Registration, error) {
	return t.s.waitlist.FrontTx(ctx, t.tx, eventID)
}

func (t *storeTx) WaitlistRotate(ctx context.Context, eventID uint64) error {
	return t.s.waitlist.RotateTx(ctx, t.tx, eventID)
}

func (t *storeTx) WaitlistRemove(ctx context.Context, eventID, regID uint64) error {
	return t.s.waitlist.RemoveTx(ctx, t.tx, eventID, regID)
}

func (t *storeTx) WaitlistSize(ctx context.Context, eventID uint64) (int, error) {
	return t.s.waitlist.SizeTx(ctx, t.tx, eventID)
}

func (t *storeTx) InsertTickets(ctx context.Context, tickets []*model.Ticket) error {
	return t.s.tickets.InsertBulkTx(ctx, t.tx, tickets)
}

func (t *storeTx) TicketForUpdate(ctx context.Context, ticketID uint64) (*model.Ticket, error) {
	return t.s.tickets.ForUpdateTx(ctx, t.tx, ticketID)
}

func (t *storeTx) TicketForUpdateByCode(ctx context.Context, code string) (*model.Ticket, error) {
	return t.s.tickets.ForUpdateByCodeTx(ctx, t.tx, code)
}

func (t *storeTx) SetTicketStatus(ctx context.Context, ticketID uint64, status model.TicketStatus) error {
	return t.s.tickets.SetStatusTx(ctx, t.tx, ticketID, status)
}

func (t *storeTx) MarkTicketUsed(ctx context.Context, ticketID uint64, scannedBy uint64, scannedAt time.Time) error {
	return t.s.tickets.MarkUsedTx(ctx, t.tx, ticketID, scannedBy, scannedAt)
}

func (t *storeTx) DeleteTicketsByRegistration(ctx context.Context, regID uint64) error {
	return t.s.tickets.DeleteByRegistrationTx(ctx, t.tx, regID)
}

func (t *storeTx) DeleteTrailingTickets(ctx context.Context, regID uint64, n int) error {
	return t.s.tickets.DeleteTrailingTx(ctx, t.tx, regID, n)
}

func (t *storeTx) CancelTicketsByEvent(ctx context.Context, eventID uint64) error {
	return t.s.tickets.CancelByEventTx(ctx, t.tx, eventID)
}
