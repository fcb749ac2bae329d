// Package domain implements the registration business rules: the
// capacity ledger, the admission state machine, ticket issuance and
// the waitlist promotion engine. All state-changing operations run
// inside a single atomic transaction obtained from the Store; side
// effects that must not be transactional (emails, QR rendering,
// follow-up promotion) are handed to a FollowUp dispatcher after
// commit.
package domain

import "errors"

// Sentinel errors returned by domain operations. Handlers map these
// onto HTTP statuses; anything not listed here is treated as an
// internal error and never shown to the caller in detail.
var (
	// Not-found family. Checked before or at the start of a transaction.
	ErrEventNotFound        = errors.New("event not found")
	ErrRegistrationNotFound = errors.New("registration not found")
	ErrTicketNotFound       = errors.New("ticket not found")

	// Validation family. Rejected before any transaction is opened.
	ErrInvalidQuantity = errors.New("quantity must be a positive integer")

	// Conflict family. Detected transactionally and abort the
	// transaction with a machine-readable cause.
	ErrEventClosed       = errors.New("event is not accepting registrations")
	ErrOrgSuspended      = errors.New("organization is suspended")
	ErrAlreadyRegistered = errors.New("user already has an active registration for this event")
	ErrEventFull         = errors.New("insufficient capacity")
	ErrQuantityExceeds   = errors.New("requested tickets exceed registration quantity")
	ErrAlreadyIssued     = errors.New("registration is already fully ticketed")
	ErrNotConfirmed      = errors.New("registration is not confirmed")
	ErrAlreadyCancelled  = errors.New("already cancelled")
	ErrTicketUsed        = errors.New("ticket already used")
	ErrTicketCancelled   = errors.New("ticket is cancelled")
	ErrTicketExpired     = errors.New("ticket is expired")

	// Forbidden family.
	ErrForbidden = errors.New("forbidden")
)
