package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-registration/internal/handler"
	"github.com/iliyamo/event-registration/internal/middleware"
	"github.com/iliyamo/event-registration/internal/model"
)

// RegisterOrganizer registers the event management endpoints. Only
// organizers and admins may create events or change capacity; the
// domain layer additionally verifies ownership of the specific event.
func RegisterOrganizer(e *echo.Echo, ev *handler.EventHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleOrganizer, model.RoleAdmin),
	)

	g.POST("/events", ev.Create)
	g.PATCH("/events/:id/capacity", ev.AdjustCapacity)
	g.DELETE("/events/:id", ev.Cancel)
}
