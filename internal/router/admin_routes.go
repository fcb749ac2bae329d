package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-registration/internal/handler"
	"github.com/iliyamo/event-registration/internal/middleware"
	"github.com/iliyamo/event-registration/internal/model"
)

// RegisterAdmin registers the administrative endpoints: hard deletion
// of registrations, explicit promotion runs and marking tickets used
// by internal id.
func RegisterAdmin(e *echo.Echo, r *handler.RegistrationHandler, t *handler.TicketHandler, jwtSecret string) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)

	g.DELETE("/registrations/:id", r.AdminDelete)
	g.POST("/events/:id/promote", r.Promote)
	g.POST("/tickets/:id/used", t.AdminMarkUsed)
}
