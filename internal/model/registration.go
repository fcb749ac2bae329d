package model

import "time"

// RegistrationStatus enumerates the states of a registration.
// CANCELLED is terminal; WAITLISTED may move to CONFIRMED (promotion)
// or CANCELLED; CONFIRMED may only move to CANCELLED.
type RegistrationStatus string

const (
	RegistrationConfirmed  RegistrationStatus = "CONFIRMED"
	RegistrationWaitlisted RegistrationStatus = "WAITLISTED"
	RegistrationCancelled  RegistrationStatus = "CANCELLED"
)

// Registration records a user's admission request for an event. A
// confirmed registration holds Quantity seats in the event's capacity
// counter, reflected there exactly once. TicketsIssued never exceeds
// Quantity, and equals the number of live tickets bound to the
// registration.
//
// Fields:
//  ID            – primary key identifier.
//  PublicID      – human-readable opaque identifier exposed to clients
//                  (e.g. "REG-4H7K2M9QPX"); stable and distinct from ID.
//  EventID       – event being registered for (immutable).
//  UserID        – registering user (immutable).
//  Quantity      – number of seats requested; positive.
//  Status        – CONFIRMED, WAITLISTED or CANCELLED.
//  TicketsIssued – number of tickets currently issued; <= Quantity.
//  CreatedAt     – creation timestamp.
//  UpdatedAt     – last update timestamp.
type Registration struct {
	ID            uint64             // registrations.id
	PublicID      string             // registrations.public_id
	EventID       uint64             // registrations.event_id
	UserID        uint64             // registrations.user_id
	Quantity      int                // registrations.quantity
	Status        RegistrationStatus // registrations.status
	TicketsIssued int                // registrations.tickets_issued
	CreatedAt     time.Time          // registrations.created_at
	UpdatedAt     time.Time          // registrations.updated_at
}

// WaitlistEntry places a registration in an event's FIFO waitlist.
// Position is monotonically increasing per event; the entry with the
// smallest position is the head. Rotating an entry to the tail assigns
// it a position greater than every other entry for the event.
type WaitlistEntry struct {
	ID             uint64    // waitlist_entries.id
	EventID        uint64    // waitlist_entries.event_id
	RegistrationID uint64    // waitlist_entries.registration_id
	Position       uint64    // waitlist_entries.position
	CreatedAt      time.Time // waitlist_entries.created_at
}
