// Package handler defines the HTTP handlers.
package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-registration/internal/domain"
	"github.com/iliyamo/event-registration/internal/model"
)

// getUserID extracts the authenticated user id from the context. The
// JWT middleware stores the raw claim, whose type depends on the JSON
// decoder, so every plausible shape is accepted.
func getUserID(c echo.Context) (uint64, error) {
	switch t := c.Get("user_id").(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// isAdmin reports whether the current request carries the ADMIN role.
func isAdmin(c echo.Context) bool {
	role, _ := c.Get("role").(string)
	return role == model.RoleAdmin
}

// pathID parses the named path parameter as a positive integer id.
func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

// fail maps domain errors onto the HTTP taxonomy: validation 400,
// not-found 404, conflict 409, forbidden 403, everything else a
// generic 500 so internals never leak to the caller.
func fail(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidQuantity):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "INVALID_QUANTITY"})
	case errors.Is(err, domain.ErrEventNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "EVENT_NOT_FOUND"})
	case errors.Is(err, domain.ErrRegistrationNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "REGISTRATION_NOT_FOUND"})
	case errors.Is(err, domain.ErrTicketNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "TICKET_NOT_FOUND"})
	case errors.Is(err, domain.ErrEventClosed):
		return c.JSON(http.StatusConflict, echo.Map{"error": "EVENT_CLOSED"})
	case errors.Is(err, domain.ErrOrgSuspended):
		return c.JSON(http.StatusConflict, echo.Map{"error": "ORG_SUSPENDED"})
	case errors.Is(err, domain.ErrAlreadyRegistered):
		return c.JSON(http.StatusConflict, echo.Map{"error": "ALREADY_REGISTERED"})
	case errors.Is(err, domain.ErrEventFull):
		return c.JSON(http.StatusConflict, echo.Map{"error": "INSUFFICIENT_CAPACITY"})
	case errors.Is(err, domain.ErrQuantityExceeds):
		return c.JSON(http.StatusConflict, echo.Map{"error": "QUANTITY_EXCEEDS_ALLOCATION"})
	case errors.Is(err, domain.ErrAlreadyIssued):
		return c.JSON(http.StatusConflict, echo.Map{"error": "ALREADY_ISSUED"})
	case errors.Is(err, domain.ErrNotConfirmed):
		return c.JSON(http.StatusConflict, echo.Map{"error": "NOT_CONFIRMED"})
	case errors.Is(err, domain.ErrAlreadyCancelled):
		return c.JSON(http.StatusConflict, echo.Map{"error": "ALREADY_CANCELLED"})
	case errors.Is(err, domain.ErrTicketUsed):
		return c.JSON(http.StatusConflict, echo.Map{"error": "TICKET_ALREADY_USED"})
	case errors.Is(err, domain.ErrTicketCancelled):
		return c.JSON(http.StatusConflict, echo.Map{"error": "TICKET_CANCELLED"})
	case errors.Is(err, domain.ErrTicketExpired):
		return c.JSON(http.StatusConflict, echo.Map{"error": "TICKET_EXPIRED"})
	case errors.Is(err, domain.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "FORBIDDEN"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}

// ----- shared response shapes -----

type registrationResp struct {
	ID             uint64 `json:"id"`
	RegistrationID string `json:"registration_id"`
	EventID        uint64 `json:"event_id"`
	Quantity       int    `json:"quantity"`
	Status         string `json:"status"`
	TicketsIssued  int    `json:"tickets_issued"`
}

func newRegistrationResp(r *model.Registration) registrationResp {
	return registrationResp{
		ID:             r.ID,
		RegistrationID: r.PublicID,
		EventID:        r.EventID,
		Quantity:       r.Quantity,
		Status:         string(r.Status),
		TicketsIssued:  r.TicketsIssued,
	}
}

type ticketResp struct {
	ID          uint64  `json:"id"`
	Code        string  `json:"code"`
	EventID     uint64  `json:"event_id"`
	Status      string  `json:"status"`
	QRExpiresAt *string `json:"qr_expires_at,omitempty"`
	ScannedAt   *string `json:"scanned_at,omitempty"`
}

func newTicketResp(t *model.Ticket) ticketResp {
	resp := ticketResp{
		ID:      t.ID,
		Code:    t.Code,
		EventID: t.EventID,
		Status:  string(t.Status),
	}
	if t.QRExpiresAt != nil {
		s := t.QRExpiresAt.UTC().Format(time.RFC3339)
		resp.QRExpiresAt = &s
	}
	if t.ScannedAt != nil {
		s := t.ScannedAt.UTC().Format(time.RFC3339)
		resp.ScannedAt = &s
	}
	return resp
}
