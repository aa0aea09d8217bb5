package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/cinebook/booking-core/internal/engine"
)

// engineError maps an engine error onto the HTTP response the API
// promises for it. Seat conflicts carry the conflicting seat ids so the
// client can offer the user alternatives. Unknown errors become a
// generic 500 without leaking internals.
func engineError(c echo.Context, err error) error {
	if seats, ok := engine.IsSeatUnavailable(err); ok {
		return c.JSON(http.StatusConflict, echo.Map{
			"error":       "seats unavailable",
			"unavailable": seats,
		})
	}
	switch {
	case errors.Is(err, engine.ErrShowNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "show not found"})
	case errors.Is(err, engine.ErrBookingNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
	case errors.Is(err, engine.ErrInvalidMovie):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "movie not found"})
	case errors.Is(err, engine.ErrShowNotBookable):
		return c.JSON(http.StatusConflict, echo.Map{"error": "show not bookable"})
	case errors.Is(err, engine.ErrHoldExpired):
		return c.JSON(http.StatusGone, echo.Map{"error": "hold expired"})
	case errors.Is(err, engine.ErrSeatNotFound):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, engine.ErrInvalidSeatMap), errors.Is(err, engine.ErrInvalidPricingRule):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
