package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/event-registration/internal/domain"
	"github.com/iliyamo/event-registration/internal/model"
)

const eventColumns = `id, org_id, owner_id, name, description, status, starts_at, ends_at, capacity, created_at, updated_at`

// EventRepo provides data access to the events and organizations
// tables and owns every write to the capacity column. Capacity is
// only ever changed through AdjustCapacityTx, which applies an atomic
// delta guarded so the counter cannot go negative; plain reads of the
// column outside a transaction are for display only and must never
// feed a write.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo returns an EventRepo bound to the given database.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

// DB exposes the underlying handle for transaction management.
func (r *EventRepo) DB() *sql.DB { return r.db }

func scanEvent(row interface{ Scan(...any) error }) (*model.Event, error) {
	var e model.Event
	err := row.Scan(&e.ID, &e.OrgID, &e.OwnerID, &e.Name, &e.Description, &e.Status,
		&e.StartsAt, &e.EndsAt, &e.Capacity, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrEventNotFound
		}
		return nil, err
	}
	return &e, nil
}

// Create inserts a new event and populates its generated ID.
func (r *EventRepo) Create(ctx context.Context, e *model.Event) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO events (org_id, owner_id, name, description, status, starts_at, ends_at, capacity)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.OrgID, e.OwnerID, e.Name, e.Description, e.Status, e.StartsAt.UTC(), e.EndsAt.UTC(), e.Capacity)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	return nil
}

// GetByID returns a single event or domain.ErrEventNotFound.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (*model.Event, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	return scanEvent(row)
}

// List returns all events ordered by start time.
func (r *EventRepo) List(ctx context.Context) ([]model.Event, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+eventColumns+` FROM events ORDER BY starts_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

// ForUpdateTx reads the event row under an exclusive lock. Locking
// this row is what serializes concurrent admission, cancellation and
// promotion for the event.
func (r *EventRepo) ForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Event, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ? FOR UPDATE`, id)
	return scanEvent(row)
}

// AdjustCapacityTx applies an atomic delta to the capacity counter.
// The WHERE guard refuses any update that would take the counter
// negative; since callers hold the row lock, an affected-rows count of
// zero means the delta genuinely did not fit.
func (r *EventRepo) AdjustCapacityTx(ctx context.Context, tx *sql.Tx, id uint64, delta int) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE events SET capacity = capacity + ? WHERE id = ? AND capacity + ? >= 0`,
		delta, id, delta)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrEventFull
	}
	return nil
}

// SetStatusTx updates the event lifecycle state.
func (r *EventRepo) SetStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status model.EventStatus) error {
	_, err := tx.ExecContext(ctx, `UPDATE events SET status = ? WHERE id = ?`, status, id)
	return err
}

// OrgSuspendedTx reports whether the owning organization is suspended.
func (r *EventRepo) OrgSuspendedTx(ctx context.Context, tx *sql.Tx, orgID uint64) (bool, error) {
	var suspended bool
	err := tx.QueryRowContext(ctx, `SELECT suspended FROM organizations WHERE id = ?`, orgID).Scan(&suspended)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// No directory record counts as not suspended.
			return false, nil
		}
		return false, err
	}
	return suspended, nil
}

// AddAttendeeTx records the user in the event's attendee set. The
// insert is idempotent.
func (r *EventRepo) AddAttendeeTx(ctx context.Context, tx *sql.Tx, eventID, userID uint64) error {
	_, err := tx.ExecContext(ctx,
		`INSERT IGNORE INTO event_attendees (event_id, user_id) VALUES (?, ?)`,
		eventID, userID)
	return err
}

// RemoveAttendeeTx removes the user from the event's attendee set.
func (r *EventRepo) RemoveAttendeeTx(ctx context.Context, tx *sql.Tx, eventID, userID uint64) error {
	_, err := tx.ExecContext(ctx,
		`DELETE FROM event_attendees WHERE event_id = ? AND user_id = ?`,
		eventID, userID)
	return err
}
