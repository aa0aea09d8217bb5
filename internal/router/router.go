package router // route registration for the booking API

import (
	"github.com/labstack/echo/v4"

	"github.com/cinebook/booking-core/internal/handler"
)

// RegisterRoutes registers routes that need no dependencies. Currently
// that is only the health check used by load balancers and monitoring.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterCatalog registers the administrative movie catalog routes.
func RegisterCatalog(e *echo.Echo, m *handler.MovieHandler) {
	e.POST("/v1/movies", m.CreateMovie)
	e.GET("/v1/movies", m.ListMovies)
	e.GET("/v1/movies/:id", m.GetMovie)
	e.DELETE("/v1/movies/:id", m.DeleteMovie)
	e.POST("/v1/casts", m.CreateCredit("casts"))
	e.POST("/v1/crews", m.CreateCredit("crews"))
}

// RegisterBooking registers show administration, availability and the
// booking lifecycle. readCache, when non-nil, is applied only to the
// availability reads: those are the high-traffic endpoints and the only
// ones where a briefly stale answer is acceptable. Booking writes are
// never cached.
func RegisterBooking(e *echo.Echo, s *handler.ShowHandler, b *handler.BookingHandler, readCache echo.MiddlewareFunc) {
	// Show administration.
	e.POST("/v1/shows", s.CreateShow)
	e.DELETE("/v1/shows/:id", s.CancelShow)

	// Availability queries.
	if readCache != nil {
		e.GET("/v1/shows/:id/seats", s.ListAvailableSeats, readCache)
		e.GET("/v1/shows/:id/bookable", s.IsBookable, readCache)
	} else {
		e.GET("/v1/shows/:id/seats", s.ListAvailableSeats)
		e.GET("/v1/shows/:id/bookable", s.IsBookable)
	}

	// Booking lifecycle.
	e.POST("/v1/shows/:id/bookings", b.RequestBooking)
	e.POST("/v1/bookings/:id/confirm", b.ConfirmBooking)
	e.DELETE("/v1/bookings/:id", b.CancelBooking)
	e.GET("/v1/bookings/:id", b.GetBooking)
	e.GET("/v1/users/:id/bookings", b.ListUserBookings)
}
