package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-registration/internal/handler"
	"github.com/iliyamo/event-registration/internal/middleware"
	"github.com/iliyamo/event-registration/internal/model"
)

// RegisterRegistration registers the attendee-facing admission and
// ticket endpoints. Any authenticated role may register for events;
// ownership checks happen inside the domain layer.
func RegisterRegistration(e *echo.Echo, r *handler.RegistrationHandler, t *handler.TicketHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleCustomer, model.RoleOrganizer, model.RoleAdmin),
	)
	if limiter != nil {
		g.Use(limiter)
	}

	g.POST("/events/:id/registrations", r.Create)
	g.PATCH("/registrations/:id", r.Update)
	g.DELETE("/registrations/:id", r.Cancel)
	g.GET("/my-registrations", r.MyRegistrations)

	g.POST("/registrations/:id/tickets", t.Issue)
	g.DELETE("/tickets/:id", t.Cancel)
	g.POST("/scan", t.Scan)
}
