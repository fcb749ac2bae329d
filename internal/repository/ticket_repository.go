package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/event-registration/internal/domain"
	"github.com/iliyamo/event-registration/internal/model"
)

const ticketColumns = `id, registration_id, event_id, user_id, status, code, qr_expires_at, scanned_at, scanned_by, created_at`

// TicketRepo provides data access to the tickets table. Scanners only
// ever address tickets by their opaque code; the numeric id stays
// internal.
type TicketRepo struct {
	db *sql.DB
}

// NewTicketRepo returns a TicketRepo bound to the given database.
func NewTicketRepo(db *sql.DB) *TicketRepo { return &TicketRepo{db: db} }

func scanTicket(row interface{ Scan(...any) error }) (*model.Ticket, error) {
	var (
		t         model.Ticket
		expires   sql.NullTime
		scannedAt sql.NullTime
		scannedBy sql.NullInt64
	)
	err := row.Scan(&t.ID, &t.RegistrationID, &t.EventID, &t.UserID, &t.Status,
		&t.Code, &expires, &scannedAt, &scannedBy, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTicketNotFound
		}
		return nil, err
	}
	if expires.Valid {
		e := expires.Time
		t.QRExpiresAt = &e
	}
	if scannedAt.Valid {
		s := scannedAt.Time
		t.ScannedAt = &s
	}
	if scannedBy.Valid {
		b := uint64(scannedBy.Int64)
		t.ScannedBy = &b
	}
	return &t, nil
}

// InsertBulkTx inserts multiple tickets in one statement and fills in
// their generated IDs. MySQL assigns consecutive ids for a multi-row
// insert, so the first LastInsertId anchors the whole batch.
func (r *TicketRepo) InsertBulkTx(ctx context.Context, tx *sql.Tx, tickets []*model.Ticket) error {
	if len(tickets) == 0 {
		return nil
	}
	query := `INSERT INTO tickets (registration_id, event_id, user_id, status, code, qr_expires_at) VALUES `
	args := make([]any, 0, len(tickets)*6)
	for i, t := range tickets {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?, ?)"
		var expires any
		if t.QRExpiresAt != nil {
			expires = t.QRExpiresAt.UTC()
		}
		args = append(args, t.RegistrationID, t.EventID, t.UserID, t.Status, t.Code, expires)
	}
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	first, err := res.LastInsertId()
	if err != nil {
		return err
	}
	for i, t := range tickets {
		t.ID = uint64(first) + uint64(i)
	}
	return nil
}

// GetByID returns a ticket or domain.ErrTicketNotFound.
func (r *TicketRepo) GetByID(ctx context.Context, id uint64) (*model.Ticket, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id = ?`, id)
	return scanTicket(row)
}

// ForUpdateTx reads a ticket row under an exclusive lock.
func (r *TicketRepo) ForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Ticket, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id = ? FOR UPDATE`, id)
	return scanTicket(row)
}

// ForUpdateByCodeTx reads a ticket row by its scan code under an
// exclusive lock, so two scanners presenting the same code serialize.
func (r *TicketRepo) ForUpdateByCodeTx(ctx context.Context, tx *sql.Tx, code string) (*model.Ticket, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE code = ? FOR UPDATE`, code)
	return scanTicket(row)
}

// SetStatusTx updates a ticket's status.
func (r *TicketRepo) SetStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status model.TicketStatus) error {
	_, err := tx.ExecContext(ctx, `UPDATE tickets SET status = ? WHERE id = ?`, status, id)
	return err
}

// MarkUsedTx records the VALID→USED transition with scan metadata.
func (r *TicketRepo) MarkUsedTx(ctx context.Context, tx *sql.Tx, id uint64, scannedBy uint64, scannedAt time.Time) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE tickets SET status = ?, scanned_at = ?, scanned_by = ? WHERE id = ?`,
		model.TicketUsed, scannedAt.UTC(), scannedBy, id)
	return err
}

// DeleteByRegistrationTx destroys every ticket bound to a registration.
func (r *TicketRepo) DeleteByRegistrationTx(ctx context.Context, tx *sql.Tx, regID uint64) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM tickets WHERE registration_id = ?`, regID)
	return err
}

// DeleteTrailingTx destroys the n most recently issued tickets of a
// registration.
func (r *TicketRepo) DeleteTrailingTx(ctx context.Context, tx *sql.Tx, regID uint64, n int) error {
	if n <= 0 {
		return nil
	}
	_, err := tx.ExecContext(ctx,
		`DELETE FROM tickets WHERE registration_id = ? ORDER BY id DESC LIMIT ?`,
		regID, n)
	return err
}

// CancelByEventTx voids all still-valid tickets of an event.
func (r *TicketRepo) CancelByEventTx(ctx context.Context, tx *sql.Tx, eventID uint64) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE tickets SET status = ? WHERE event_id = ? AND status = ?`,
		model.TicketCancelled, eventID, model.TicketValid)
	return err
}

// ListByRegistration returns all tickets of a registration, oldest first.
func (r *TicketRepo) ListByRegistration(ctx context.Context, regID uint64) ([]model.Ticket, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+ticketColumns+` FROM tickets WHERE registration_id = ? ORDER BY id ASC`, regID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var tickets []model.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, *t)
	}
	return tickets, rows.Err()
}
