package model

import "time"

// EventStatus enumerates the lifecycle states of an event.
type EventStatus string

const (
	EventUpcoming  EventStatus = "UPCOMING"
	EventOngoing   EventStatus = "ONGOING"
	EventCompleted EventStatus = "COMPLETED"
	EventCancelled EventStatus = "CANCELLED"
)

// Event represents a bookable event owned by an organization.
// Capacity is the number of seats still allocatable right now: it is a
// running counter mutated by atomic deltas, not a value derived from a
// fixed total. It must never go negative.
//
// Fields:
//  ID          – primary key identifier.
//  OrgID       – owning organization.
//  OwnerID     – user who created the event (organizer).
//  Name        – display name.
//  Description – free-form description.
//  Status      – lifecycle state (UPCOMING, ONGOING, COMPLETED, CANCELLED).
//  StartsAt    – scheduled start.
//  EndsAt      – scheduled end; admission closes once this has passed.
//  Capacity    – remaining allocatable seats.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Event struct {
	ID          uint64      // events.id
	OrgID       uint64      // events.org_id
	OwnerID     uint64      // events.owner_id
	Name        string      // events.name
	Description string      // events.description
	Status      EventStatus // events.status
	StartsAt    time.Time   // events.starts_at
	EndsAt      time.Time   // events.ends_at
	Capacity    int         // events.capacity
	CreatedAt   time.Time   // events.created_at
	UpdatedAt   time.Time   // events.updated_at
}

// Accepting reports whether the event can admit new registrations at the
// given instant: it must be upcoming and its end time still in the future.
func (e *Event) Accepting(now time.Time) bool {
	return e.Status == EventUpcoming && e.EndsAt.After(now)
}

// Organization is the identity-directory record an event belongs to.
// A suspended organization cannot accept registrations for any of its
// events.
type Organization struct {
	ID        uint64    // organizations.id
	Name      string    // organizations.name
	Suspended bool      // organizations.suspended
	CreatedAt time.Time // organizations.created_at
}
