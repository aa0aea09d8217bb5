package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/cinebook/booking-core/internal/engine"
)

// ShowHandler exposes show administration and availability queries.
// Show creation is an administrative flow: the caller supplies the full
// seat layout and optional per-show premium overrides, and the layout
// is frozen from that point on.
type ShowHandler struct {
	Engine *engine.Engine
}

// NewShowHandler constructs a ShowHandler. The engine must be non-nil.
func NewShowHandler(eng *engine.Engine) *ShowHandler {
	if eng == nil {
		panic("nil engine passed to NewShowHandler")
	}
	return &ShowHandler{Engine: eng}
}

// CreateShow handles POST /v1/shows. The request body names the movie,
// the screening window, the base ticket price in cents, the seat layout
// and optional seat-type premium overrides as fractions (0.5 = +50 %).
func (h *ShowHandler) CreateShow(c echo.Context) error {
	var body struct {
		MovieID        uint64             `json:"movie_id"`
		StartsAt       string             `json:"starts_at"`
		EndsAt         string             `json:"ends_at"`
		BasePriceCents int64              `json:"base_price_cents"`
		Seats          []engine.Seat      `json:"seats"`
		Overrides      map[string]float64 `json:"premium_overrides"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.MovieID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "movie_id is required"})
	}
	startsAt, err := time.Parse(time.RFC3339, body.StartsAt)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid starts_at format"})
	}
	var endsAt time.Time
	if body.EndsAt != "" {
		if endsAt, err = time.Parse(time.RFC3339, body.EndsAt); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ends_at format"})
		}
	}

	id, err := h.Engine.CreateShow(c.Request().Context(), body.MovieID, startsAt.UTC(), endsAt.UTC(),
		body.BasePriceCents, body.Seats, body.Overrides)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"show_id": id})
}

// CancelShow handles DELETE /v1/shows/:id. A cancelled show stops
// accepting holds immediately; existing bookings stay on record.
func (h *ShowHandler) CancelShow(c echo.Context) error {
	showID, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid show id"})
	}
	if err := h.Engine.CancelShow(c.Request().Context(), showID); err != nil {
		return engineError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListAvailableSeats handles GET /v1/shows/:id/seats. The response is a
// committed-state snapshot; it never blocks concurrent bookings.
func (h *ShowHandler) ListAvailableSeats(c echo.Context) error {
	showID, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid show id"})
	}
	seats, err := h.Engine.ListAvailableSeats(showID)
	if err != nil {
		return engineError(c, err)
	}
	total, booked, err := h.Engine.SeatCounts(showID)
	if err != nil {
		return engineError(c, err)
	}
	if seats == nil {
		seats = []engine.Seat{}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"seats":  seats,
		"total":  total,
		"booked": booked,
	})
}

// IsBookable handles GET /v1/shows/:id/bookable. It answers false for
// cancelled or past shows regardless of remaining capacity, and for
// sold-out shows.
func (h *ShowHandler) IsBookable(c echo.Context) error {
	showID, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid show id"})
	}
	ok, err := h.Engine.IsBookable(showID)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"bookable": ok})
}

// parseID extracts a positive integer path parameter.
func parseID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, echo.ErrBadRequest
	}
	return id, nil
}
