package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-registration/internal/domain"
	"github.com/iliyamo/event-registration/internal/model"
	"github.com/iliyamo/event-registration/internal/repository"
	"github.com/iliyamo/event-registration/pkg/validator"
)

// EventHandler serves event creation, browsing and the organizer
// capacity/cancel operations.
type EventHandler struct {
	Events *repository.EventRepo
	Users  *repository.UserRepo
	Svc    *domain.Service
}

func NewEventHandler(events *repository.EventRepo, users *repository.UserRepo, svc *domain.Service) *EventHandler {
	return &EventHandler{Events: events, Users: users, Svc: svc}
}

type createEventReq struct {
	Name        string    `json:"name" validate:"required,max=255"`
	Description string    `json:"description" validate:"max=4096"`
	StartsAt    time.Time `json:"starts_at" validate:"required"`
	EndsAt      time.Time `json:"ends_at" validate:"required,future"`
	Capacity    int       `json:"capacity" validate:"required,gte=0"`
}

type eventResp struct {
	ID          uint64    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
	Capacity    int       `json:"capacity"`
}

func newEventResp(e *model.Event) eventResp {
	return eventResp{
		ID:          e.ID,
		Name:        e.Name,
		Description: e.Description,
		Status:      string(e.Status),
		StartsAt:    e.StartsAt,
		EndsAt:      e.EndsAt,
		Capacity:    e.Capacity,
	}
}

// Create registers a new upcoming event under the organizer's
// organization with its initial capacity.
func (h *EventHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createEventReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := validator.Validate(c.Request().Context(), req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if !req.EndsAt.After(req.StartsAt) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "ends_at must follow starts_at"})
	}

	ctx := c.Request().Context()
	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}

	ev := &model.Event{
		OrgID:       u.OrgID,
		OwnerID:     uid,
		Name:        req.Name,
		Description: req.Description,
		Status:      model.EventUpcoming,
		StartsAt:    req.StartsAt.UTC(),
		EndsAt:      req.EndsAt.UTC(),
		Capacity:    req.Capacity,
	}
	if err := h.Events.Create(ctx, ev); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create event failed"})
	}
	return c.JSON(http.StatusCreated, newEventResp(ev))
}

// List returns all events. Served behind the response cache.
func (h *EventHandler) List(c echo.Context) error {
	events, err := h.Events.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list events failed"})
	}
	out := make([]eventResp, 0, len(events))
	for i := range events {
		out = append(out, newEventResp(&events[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"events": out})
}

// Get returns one event by id.
func (h *EventHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ev, err := h.Events.GetByID(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, newEventResp(ev))
}

type capacityReq struct {
	Delta int `json:"delta"`
}

// AdjustCapacity applies a signed capacity delta. An increase may
// trigger waitlist promotion once the change is committed.
func (h *EventHandler) AdjustCapacity(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req capacityReq
	if err := c.Bind(&req); err != nil || req.Delta == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "non-zero delta required"})
	}

	ev, err := h.Svc.AdjustEventCapacity(c.Request().Context(), id, req.Delta, uid, isAdmin(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, newEventResp(ev))
}

// Cancel marks the event CANCELLED and voids all of its tickets.
func (h *EventHandler) Cancel(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if err := h.Svc.CancelEvent(c.Request().Context(), id, uid, isAdmin(c)); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
