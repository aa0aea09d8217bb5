// Package engine implements the seat-inventory and booking-consistency
// core for a single cinema: per-show seat maps, seat-type pricing,
// time-limited holds and the hold -> confirm/cancel booking lifecycle.
// All failures are reported as explicit error values so that callers
// (HTTP handlers, workers) can map them onto their own protocol. The
// engine never retries a seat conflict on the caller's behalf; the user
// picked specific seats, so the caller decides what to do next.
package engine

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSeatNotFound is returned when a requested seat identifier does not
// exist in the show's seat map. Handlers should translate this into an
// HTTP 400 response.
var ErrSeatNotFound = errors.New("seat not found")

// ErrShowNotFound is returned when the named show is not registered
// with the engine, either because it never existed or because its
// inventory was evicted after the screening ended.
var ErrShowNotFound = errors.New("show not found")

// ErrShowNotBookable is returned when a show is cancelled or its
// screening time has already passed. Remaining capacity is irrelevant:
// a cancelled show with every seat free is still not bookable.
var ErrShowNotBookable = errors.New("show not bookable")

// ErrHoldExpired is returned by confirm when the hold backing a booking
// lapsed before the confirmation arrived. The seats have returned to
// the available pool and the caller must start over.
var ErrHoldExpired = errors.New("hold expired")

// ErrBookingNotFound is returned when a booking identifier is unknown.
var ErrBookingNotFound = errors.New("booking not found")

// ErrInvalidPricingRule is returned at configuration time when a
// seat-type premium is negative or not a finite number.
var ErrInvalidPricingRule = errors.New("invalid pricing rule")

// ErrInvalidSeatMap is returned when a seat map contains duplicate or
// empty seat identifiers, or no seats at all.
var ErrInvalidSeatMap = errors.New("invalid seat map")

// ErrInvalidMovie is returned by show creation when the referenced
// movie does not exist in the catalog.
var ErrInvalidMovie = errors.New("invalid movie")

// SeatUnavailableError reports a hold attempt that lost to existing
// holds or bookings. SeatIDs lists exactly the conflicting seats so the
// caller can offer the user alternatives.
type SeatUnavailableError struct {
	SeatIDs []string
}

func (e *SeatUnavailableError) Error() string {
	return fmt.Sprintf("seats unavailable: %s", strings.Join(e.SeatIDs, ", "))
}

// IsSeatUnavailable reports whether err is a SeatUnavailableError and,
// when it is, returns the conflicting seat identifiers.
func IsSeatUnavailable(err error) ([]string, bool) {
	var su *SeatUnavailableError
	if errors.As(err, &su) {
		return su.SeatIDs, true
	}
	return nil, false
}
