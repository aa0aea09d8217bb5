package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinebook/booking-core/internal/engine"
	"github.com/cinebook/booking-core/internal/repository"
)

func newTestEngine(t *testing.T) *engine.Engine {
	t.Helper()
	store := repository.NewMemStore()
	store.AddMovie(1)
	defaults, err := engine.NewPricingRules(map[string]float64{"VIP": 0.5})
	require.NoError(t, err)
	return engine.New(store, defaults)
}

func createShowRequest(t *testing.T, eng *engine.Engine) uint64 {
	t.Helper()
	h := NewShowHandler(eng)
	starts := time.Now().Add(2 * time.Hour).UTC().Format(time.RFC3339)
	body := `{
		"movie_id": 1,
		"starts_at": "` + starts + `",
		"base_price_cents": 10000,
		"seats": [
			{"id": "A1", "type": "STANDARD", "label": "Row A Seat 1"},
			{"id": "A2", "type": "STANDARD", "label": "Row A Seat 2"},
			{"id": "B1", "type": "VIP", "label": "Row B Seat 1"}
		]
	}`

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/shows", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	require.NoError(t, h.CreateShow(e.NewContext(req, rec)))
	require.Equal(t, http.StatusCreated, rec.Code)

	var out struct {
		ShowID uint64 `json:"show_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.NotZero(t, out.ShowID)
	return out.ShowID
}

func requestBooking(t *testing.T, eng *engine.Engine, showID uint64, body string) *httptest.ResponseRecorder {
	t.Helper()
	h := NewBookingHandler(eng, nil)
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/shows/:id/bookings", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(strconv.FormatUint(showID, 10))
	require.NoError(t, h.RequestBooking(c))
	return rec
}

func TestCreateShowRejectsUnknownMovie(t *testing.T) {
	eng := newTestEngine(t)
	h := NewShowHandler(eng)
	starts := time.Now().Add(2 * time.Hour).UTC().Format(time.RFC3339)
	body := `{"movie_id": 99, "starts_at": "` + starts + `", "base_price_cents": 1000,
		"seats": [{"id": "A1", "type": "STANDARD"}]}`

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/shows", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	require.NoError(t, h.CreateShow(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRequestBookingCreatesHold(t *testing.T) {
	eng := newTestEngine(t)
	showID := createShowRequest(t, eng)

	rec := requestBooking(t, eng, showID, `{"user_id": 42, "seat_ids": ["A1", "B1"]}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var out struct {
		Booking struct {
			ID         string   `json:"id"`
			SeatIDs    []string `json:"seat_ids"`
			TotalCents int64    `json:"total_cents"`
			Status     string   `json:"status"`
		} `json:"booking"`
		ExpiresAt string `json:"expires_at"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.NotEmpty(t, out.Booking.ID)
	assert.Equal(t, []string{"A1", "B1"}, out.Booking.SeatIDs)
	assert.Equal(t, int64(25000), out.Booking.TotalCents) // 100.00 + 150.00
	assert.Equal(t, "HELD", out.Booking.Status)
	assert.NotEmpty(t, out.ExpiresAt)
}

func TestRequestBookingConflictAnswers409(t *testing.T) {
	eng := newTestEngine(t)
	showID := createShowRequest(t, eng)

	rec := requestBooking(t, eng, showID, `{"user_id": 42, "seat_ids": ["A1"]}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = requestBooking(t, eng, showID, `{"user_id": 43, "seat_ids": ["A1", "A2"]}`)
	require.Equal(t, http.StatusConflict, rec.Code)

	var out struct {
		Error       string   `json:"error"`
		Unavailable []string `json:"unavailable"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, []string{"A1"}, out.Unavailable)
}

func TestRequestBookingValidation(t *testing.T) {
	eng := newTestEngine(t)
	showID := createShowRequest(t, eng)

	rec := requestBooking(t, eng, showID, `{"seat_ids": ["A1"]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = requestBooking(t, eng, showID, `{"user_id": 42}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = requestBooking(t, eng, showID, `{"user_id": 42, "seat_ids": ["Z9"]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = requestBooking(t, eng, 999, `{"user_id": 42, "seat_ids": ["A1"]}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListAvailableSeatsReflectsHolds(t *testing.T) {
	eng := newTestEngine(t)
	showID := createShowRequest(t, eng)

	rec := requestBooking(t, eng, showID, `{"user_id": 42, "seat_ids": ["A2"]}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	h := NewShowHandler(eng)
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/shows/:id/seats", nil)
	seatRec := httptest.NewRecorder()
	c := e.NewContext(req, seatRec)
	c.SetParamNames("id")
	c.SetParamValues(strconv.FormatUint(showID, 10))
	require.NoError(t, h.ListAvailableSeats(c))
	require.Equal(t, http.StatusOK, seatRec.Code)

	var out struct {
		Seats []struct {
			ID string `json:"id"`
		} `json:"seats"`
		Total  int `json:"total"`
		Booked int `json:"booked"`
	}
	require.NoError(t, json.Unmarshal(seatRec.Body.Bytes(), &out))
	assert.Equal(t, 3, out.Total)
	assert.Equal(t, 1, out.Booked)
	require.Len(t, out.Seats, 2)
	assert.Equal(t, "A1", out.Seats[0].ID)
	assert.Equal(t, "B1", out.Seats[1].ID)
}

func TestGetBookingNotFound(t *testing.T) {
	eng := newTestEngine(t)
	h := NewBookingHandler(eng, nil)
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/bookings/:id", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("no-such-booking")
	require.NoError(t, h.GetBooking(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCancelShowStopsBookings(t *testing.T) {
	eng := newTestEngine(t)
	showID := createShowRequest(t, eng)

	h := NewShowHandler(eng)
	e := echo.New()
	req := httptest.NewRequest(http.MethodDelete, "/v1/shows/:id", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(strconv.FormatUint(showID, 10))
	require.NoError(t, h.CancelShow(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	bookRec := requestBooking(t, eng, showID, `{"user_id": 42, "seat_ids": ["A1"]}`)
	assert.Equal(t, http.StatusConflict, bookRec.Code)
}
