package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-registration/internal/domain"
	"github.com/iliyamo/event-registration/internal/repository"
)

// RegistrationHandler serves the admission surface: creating
// registrations, quantity updates, cancellation and the admin
// promotion/delete endpoints.
type RegistrationHandler struct {
	Svc   *domain.Service
	Store *repository.Store
}

func NewRegistrationHandler(svc *domain.Service, store *repository.Store) *RegistrationHandler {
	return &RegistrationHandler{Svc: svc, Store: store}
}

type admitReq struct {
	Quantity int `json:"quantity"`
}

// Create admits the caller to the event: CONFIRMED when the seats fit
// within remaining capacity, WAITLISTED otherwise.
func (h *RegistrationHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	eventID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req admitReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	reg, err := h.Svc.Admit(c.Request().Context(), eventID, uid, req.Quantity)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, newRegistrationResp(reg))
}

type quantityUpdateReq struct {
	Quantity int `json:"quantity"`
}

// Update changes the registration's seat count. Growth beyond the
// event's remaining capacity is rejected; shrinking frees capacity and
// may promote waitlisted registrations.
func (h *RegistrationHandler) Update(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	regID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req quantityUpdateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	reg, err := h.Svc.UpdateQuantity(c.Request().Context(), regID, req.Quantity, uid, isAdmin(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, newRegistrationResp(reg))
}

// Cancel marks the registration CANCELLED, deletes its tickets and
// frees any held capacity.
func (h *RegistrationHandler) Cancel(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	regID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if err := h.Svc.Cancel(c.Request().Context(), regID, uid, isAdmin(c)); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// AdminDelete removes the registration row and its ticket cascade.
func (h *RegistrationHandler) AdminDelete(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	regID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if err := h.Svc.Delete(c.Request().Context(), regID, uid, true); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Promote runs an explicit waitlist promotion sweep for the event and
// returns the registrations it confirmed. An empty list is a normal
// outcome.
func (h *RegistrationHandler) Promote(c echo.Context) error {
	eventID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	promoted, err := h.Svc.PromoteWaitlist(c.Request().Context(), eventID)
	if err != nil {
		return fail(c, err)
	}
	if promoted == nil {
		promoted = []domain.Promotion{}
	}
	return c.JSON(http.StatusOK, echo.Map{"promotions": promoted})
}

// MyRegistrations lists the caller's registrations with their tickets.
func (h *RegistrationHandler) MyRegistrations(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx := c.Request().Context()

	regs, err := h.Store.ListRegistrationsByUser(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list registrations failed"})
	}

	type regWithTickets struct {
		registrationResp
		Tickets []ticketResp `json:"tickets"`
	}
	out := make([]regWithTickets, 0, len(regs))
	for i := range regs {
		tickets, err := h.Store.ListTicketsByRegistration(ctx, regs[i].ID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list tickets failed"})
		}
		entry := regWithTickets{
			registrationResp: newRegistrationResp(&regs[i]),
			Tickets:          make([]ticketResp, 0, len(tickets)),
		}
		for j := range tickets {
			entry.Tickets = append(entry.Tickets, newTicketResp(&tickets[j]))
		}
		out = append(out, entry)
	}
	return c.JSON(http.StatusOK, echo.Map{"registrations": out})
}
