package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/event-registration/internal/domain"
	"github.com/iliyamo/event-registration/internal/model"
)

const registrationColumns = `id, public_id, event_id, user_id, quantity, status, tickets_issued, created_at, updated_at`

// RegistrationRepo provides data access to the registrations table.
// The (event_id, user_id) pair carries a uniqueness constraint over
// non-cancelled rows (enforced via the active_pair generated column in
// the schema), so a duplicate admission loses at the storage layer
// even if two requests race past the in-transaction check.
type RegistrationRepo struct {
	db *sql.DB
}

// NewRegistrationRepo returns a RegistrationRepo bound to the given database.
func NewRegistrationRepo(db *sql.DB) *RegistrationRepo { return &RegistrationRepo{db: db} }

func scanRegistration(row interface{ Scan(...any) error }) (*model.Registration, error) {
	var reg model.Registration
	err := row.Scan(&reg.ID, &reg.PublicID, &reg.EventID, &reg.UserID, &reg.Quantity,
		&reg.Status, &reg.TicketsIssued, &reg.CreatedAt, &reg.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRegistrationNotFound
		}
		return nil, err
	}
	return &reg, nil
}

// InsertTx inserts a new registration and populates its generated ID.
// A unique-key violation on the active (event, user) pair is mapped to
// domain.ErrAlreadyRegistered.
func (r *RegistrationRepo) InsertTx(ctx context.Context, tx *sql.Tx, reg *model.Registration) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO registrations (public_id, event_id, user_id, quantity, status, tickets_issued)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		reg.PublicID, reg.EventID, reg.UserID, reg.Quantity, reg.Status, reg.TicketsIssued)
	if err != nil {
		if isDuplicateKey(err) {
			return domain.ErrAlreadyRegistered
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	reg.ID = uint64(id)
	return nil
}

// GetByID returns a registration or domain.ErrRegistrationNotFound.
func (r *RegistrationRepo) GetByID(ctx context.Context, id uint64) (*model.Registration, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+registrationColumns+` FROM registrations WHERE id = ?`, id)
	return scanRegistration(row)
}

// ForUpdateTx reads a registration row under an exclusive lock so the
// issued counter can be checked and advanced without a double-issue
// window.
func (r *RegistrationRepo) ForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Registration, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+registrationColumns+` FROM registrations WHERE id = ? FOR UPDATE`, id)
	return scanRegistration(row)
}

// ActiveExistsTx reports whether a non-cancelled registration exists
// for the (event, user) pair.
func (r *RegistrationRepo) ActiveExistsTx(ctx context.Context, tx *sql.Tx, eventID, userID uint64) (bool, error) {
	var n int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM registrations WHERE event_id = ? AND user_id = ? AND status <> ?`,
		eventID, userID, model.RegistrationCancelled).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// SetStatusTx updates the registration status.
func (r *RegistrationRepo) SetStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status model.RegistrationStatus) error {
	_, err := tx.ExecContext(ctx, `UPDATE registrations SET status = ? WHERE id = ?`, status, id)
	return err
}

// SetQuantityTx updates quantity and the issued-ticket counter together.
func (r *RegistrationRepo) SetQuantityTx(ctx context.Context, tx *sql.Tx, id uint64, quantity, ticketsIssued int) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE registrations SET quantity = ?, tickets_issued = ? WHERE id = ?`,
		quantity, ticketsIssued, id)
	return err
}

// DeleteTx hard-deletes a registration row.
func (r *RegistrationRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM registrations WHERE id = ?`, id)
	return err
}

// ListByEventTx returns every registration for an event.
func (r *RegistrationRepo) ListByEventTx(ctx context.Context, tx *sql.Tx, eventID uint64) ([]model.Registration, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT `+registrationColumns+` FROM registrations WHERE event_id = ? ORDER BY created_at ASC`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var regs []model.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		regs = append(regs, *reg)
	}
	return regs, rows.Err()
}

// ListByUser returns a user's registrations, newest first.
func (r *RegistrationRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Registration, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+registrationColumns+` FROM registrations WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var regs []model.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		regs = append(regs, *reg)
	}
	return regs, rows.Err()
}
