package model

import "time"

// TicketStatus enumerates the states of a ticket. Transitions are
// one-way: VALID may become USED or CANCELLED, both terminal.
type TicketStatus string

const (
	TicketValid     TicketStatus = "VALID"
	TicketUsed      TicketStatus = "USED"
	TicketCancelled TicketStatus = "CANCELLED"
)

// Ticket is a single admission credential bound 1:1 to an allocated
// seat of a confirmed registration. Code is the only identifier ever
// exposed to scanners; it carries no relationship to the internal ID.
//
// Fields:
//  ID             – primary key identifier.
//  RegistrationID – owning registration (immutable).
//  EventID        – event the ticket admits to (immutable).
//  UserID         – holder (immutable).
//  Status         – VALID, USED or CANCELLED.
//  Code           – opaque scan identifier, unique across all tickets.
//  QRExpiresAt    – instant after which an unscanned ticket is rejected
//                   as expired (nil = never expires).
//  ScannedAt      – when the ticket was marked USED (nil until then).
//  ScannedBy      – user who performed the scan (nil until scanned).
//  CreatedAt      – creation timestamp.
type Ticket struct {
	ID             uint64       // tickets.id
	RegistrationID uint64       // tickets.registration_id
	EventID        uint64       // tickets.event_id
	UserID         uint64       // tickets.user_id
	Status         TicketStatus // tickets.status
	Code           string       // tickets.code
	QRExpiresAt    *time.Time   // tickets.qr_expires_at (nullable)
	ScannedAt      *time.Time   // tickets.scanned_at (nullable)
	ScannedBy      *uint64      // tickets.scanned_by (nullable)
	CreatedAt      time.Time    // tickets.created_at
}
