package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-registration/internal/domain"
)

// TicketHandler serves ticket issuance, cancellation and scanning.
type TicketHandler struct {
	Svc *domain.Service
}

func NewTicketHandler(svc *domain.Service) *TicketHandler {
	return &TicketHandler{Svc: svc}
}

type issueReq struct {
	Quantity int `json:"quantity"`
}

// Issue creates up to quantity tickets for a confirmed registration,
// bounded by its allocated seat count.
func (h *TicketHandler) Issue(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	regID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req issueReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	tickets, err := h.Svc.IssueTickets(c.Request().Context(), regID, req.Quantity, uid, isAdmin(c))
	if err != nil {
		return fail(c, err)
	}
	out := make([]ticketResp, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, newTicketResp(t))
	}
	return c.JSON(http.StatusCreated, echo.Map{"tickets": out})
}

// Cancel voids a single VALID ticket and frees its seat.
func (h *TicketHandler) Cancel(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ticketID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if err := h.Svc.CancelTicket(c.Request().Context(), ticketID, uid, isAdmin(c)); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type scanReq struct {
	Code string `json:"code"`
}

// Scan validates a ticket by its opaque code and marks it USED. A
// second scan of the same ticket is a conflict, not a crash.
func (h *TicketHandler) Scan(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req scanReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Code) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "code required"})
	}

	t, err := h.Svc.Scan(c.Request().Context(), strings.TrimSpace(req.Code), uid)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, newTicketResp(t))
}

// AdminMarkUsed marks a ticket USED by internal id, bypassing the code
// lookup. Admin only.
func (h *TicketHandler) AdminMarkUsed(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ticketID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	t, err := h.Svc.MarkUsed(c.Request().Context(), ticketID, uid)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, newTicketResp(t))
}
