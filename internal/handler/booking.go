package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/cinebook/booking-core/internal/engine"
	"github.com/cinebook/booking-core/internal/queue"
	"github.com/cinebook/booking-core/internal/repository"
)

// BookingHandler exposes the hold -> confirm/cancel booking flow. The
// engine provides all consistency guarantees; the handler only binds
// requests, maps errors and publishes lifecycle events after the engine
// has committed. Event publication is best-effort: a broker outage must
// never fail a booking.
type BookingHandler struct {
	Engine      *engine.Engine
	BookingRepo *repository.BookingRepo // nil when running without MySQL-backed history
}

// NewBookingHandler constructs a BookingHandler. The engine must be
// non-nil; the booking repo may be nil, which disables history listing.
func NewBookingHandler(eng *engine.Engine, bookingRepo *repository.BookingRepo) *BookingHandler {
	if eng == nil {
		panic("nil engine passed to NewBookingHandler")
	}
	return &BookingHandler{Engine: eng, BookingRepo: bookingRepo}
}

// RequestBooking handles POST /v1/shows/:id/bookings. It holds the
// requested seats and returns the priced booking in HELD state together
// with its expiry deadline. Seat conflicts answer 409 with the
// conflicting seat ids; the client decides whether to pick other seats.
func (h *BookingHandler) RequestBooking(c echo.Context) error {
	showID, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid show id"})
	}
	var body struct {
		UserID  uint64   `json:"user_id"`
		SeatIDs []string `json:"seat_ids"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.UserID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id is required"})
	}
	if len(body.SeatIDs) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seat_ids is required"})
	}

	b, err := h.Engine.RequestBooking(c.Request().Context(), showID, body.UserID, body.SeatIDs)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"booking":    b,
		"expires_at": b.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// ConfirmBooking handles POST /v1/bookings/:id/confirm, typically from
// the payment callback. Confirming twice returns the identical booking;
// a lapsed hold answers 410 and the seats are already back on sale.
func (h *BookingHandler) ConfirmBooking(c echo.Context) error {
	bookingID := c.Param("id")
	if bookingID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	b, err := h.Engine.ConfirmBooking(c.Request().Context(), bookingID)
	if err != nil {
		return engineError(c, err)
	}

	// Publish after the confirm committed; failures are logged inside
	// the publisher and deliberately ignored here.
	_ = queue.PublishBookingConfirmed(c.Request().Context(), queue.BookingConfirmedEvent{
		BookingID:   b.ID,
		Reference:   b.Reference,
		UserID:      b.UserID,
		ShowID:      b.ShowID,
		SeatIDs:     b.SeatIDs,
		TotalCents:  b.TotalCents,
		ConfirmedAt: time.Now().UTC().Format(time.RFC3339),
	})
	return c.JSON(http.StatusOK, echo.Map{"booking": b})
}

// CancelBooking handles DELETE /v1/bookings/:id. Cancellation is
// allowed while the booking is held or confirmed and the screening has
// not started; the freed seats are visible to availability queries and
// new holds as soon as the response is written.
func (h *BookingHandler) CancelBooking(c echo.Context) error {
	bookingID := c.Param("id")
	if bookingID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	b, err := h.Engine.CancelBooking(c.Request().Context(), bookingID)
	if err != nil {
		return engineError(c, err)
	}

	_ = queue.PublishBookingCancelled(c.Request().Context(), queue.BookingCancelledEvent{
		BookingID:   b.ID,
		UserID:      b.UserID,
		ShowID:      b.ShowID,
		SeatIDs:     b.SeatIDs,
		CancelledAt: time.Now().UTC().Format(time.RFC3339),
	})
	return c.JSON(http.StatusOK, echo.Map{"booking": b})
}

// GetBooking handles GET /v1/bookings/:id.
func (h *BookingHandler) GetBooking(c echo.Context) error {
	bookingID := c.Param("id")
	if bookingID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	b, err := h.Engine.GetBooking(bookingID)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"booking": b})
}

// ListUserBookings handles GET /v1/users/:id/bookings. It reads from
// the database so history survives inventory eviction after showtime.
func (h *BookingHandler) ListUserBookings(c echo.Context) error {
	userID, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	if h.BookingRepo == nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "booking history unavailable"})
	}
	details, err := h.BookingRepo.ListByUser(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load bookings"})
	}
	if details == nil {
		details = []repository.BookingDetail{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": details})
}
