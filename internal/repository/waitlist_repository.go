package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/event-registration/internal/model"
)

// WaitlistRepo persists each event's FIFO waitlist as rows ordered by
// a monotonically increasing position. The head is the row with the
// smallest position; rotating the head to the tail assigns it
// max(position)+1, so both the pop and the rotate are O(1) index
// lookups rather than renumbering the queue.
type WaitlistRepo struct {
	db *sql.DB
}

// NewWaitlistRepo returns a WaitlistRepo bound to the given database.
func NewWaitlistRepo(db *sql.DB) *WaitlistRepo { return &WaitlistRepo{db: db} }

// nextPositionTx computes the tail position for an event.
func (r *WaitlistRepo) nextPositionTx(ctx context.Context, tx *sql.Tx, eventID uint64) (uint64, error) {
	var pos sql.NullInt64
	err := tx.QueryRowContext(ctx,
		`SELECT MAX(position) FROM waitlist_entries WHERE event_id = ?`, eventID).Scan(&pos)
	if err != nil {
		return 0, err
	}
	if !pos.Valid {
		return 1, nil
	}
	return uint64(pos.Int64) + 1, nil
}

// PushTx appends a registration to the tail of the event's waitlist.
func (r *WaitlistRepo) PushTx(ctx context.Context, tx *sql.Tx, eventID, regID uint64) error {
	pos, err := r.nextPositionTx(ctx, tx, eventID)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO waitlist_entries (event_id, registration_id, position) VALUES (?, ?, ?)`,
		eventID, regID, pos)
	return err
}

// FrontTx returns the registration at the head of the waitlist, or
// domain.ErrRegistrationNotFound when the waitlist is empty. Callers
// are expected to have checked SizeTx first.
func (r *WaitlistRepo) FrontTx(ctx context.Context, tx *sql.Tx, eventID uint64) (*model.Registration, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT r.id, r.public_id, r.event_id, r.user_id, r.quantity, r.status, r.tickets_issued, r.created_at, r.updated_at
		 FROM waitlist_entries w
		 JOIN registrations r ON r.id = w.registration_id
		 WHERE w.event_id = ?
		 ORDER BY w.position ASC
		 LIMIT 1`, eventID)
	return scanRegistration(row)
}

// RotateTx moves the head entry to the tail of the queue.
func (r *WaitlistRepo) RotateTx(ctx context.Context, tx *sql.Tx, eventID uint64) error {
	pos, err := r.nextPositionTx(ctx, tx, eventID)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE waitlist_entries SET position = ?
		 WHERE event_id = ?
		 ORDER BY position ASC
		 LIMIT 1`, pos, eventID)
	return err
}

// RemoveTx deletes the entry for a registration from the waitlist.
func (r *WaitlistRepo) RemoveTx(ctx context.Context, tx *sql.Tx, eventID, regID uint64) error {
	_, err := tx.ExecContext(ctx,
		`DELETE FROM waitlist_entries WHERE event_id = ? AND registration_id = ?`,
		eventID, regID)
	return err
}

// SizeTx returns the number of entries queued for an event.
func (r *WaitlistRepo) SizeTx(ctx context.Context, tx *sql.Tx, eventID uint64) (int, error) {
	var n int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM waitlist_entries WHERE event_id = ?`, eventID).Scan(&n)
	return n, err
}
