package utils

import (
	"strings"

	"github.com/google/uuid"
)

// NewTicketCode returns the opaque identifier printed into a ticket's
// QR payload. It is a random UUIDv4, so nothing about the internal
// numeric ticket id can be derived from it.
func NewTicketCode() string {
	return uuid.NewString()
}

// NewRegistrationID returns a human-readable public registration
// identifier such as "REG-4H7K2M9QPX": a "REG-" prefix followed by
// ten characters drawn from the random half of a UUID, upper-cased
// with hyphens removed. It is stable and opaque, distinct from the
// database primary key.
func NewRegistrationID() string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "REG-" + raw[:10]
}
