package engine

import (
	"context"
	"time"
)

// Store is the narrow persistence boundary of the engine. The engine is
// the authority on seat state in memory; every hold, confirmation,
// cancellation and expiry is written through to the Store while the
// per-show lock is held, so a crash and restart never loses a live
// reservation. Implementations must be safe for concurrent use: the
// engine serialises writes per show, but different shows write in
// parallel.
type Store interface {
	// CreateShow durably records a new show together with its seat
	// layout and per-show premium overrides (seat type -> basis
	// points) and returns the assigned show identifier. It returns
	// ErrInvalidMovie when the referenced movie does not exist.
	CreateShow(ctx context.Context, show *Show, seats []Seat, overrides map[string]int64) (uint64, error)

	// CreateBooking durably records a HELD booking together with its
	// seat holds. The booking carries the hold token and expiry.
	CreateBooking(ctx context.Context, b *Booking) error

	// UpdateBookingStatus records a booking's transition out of HELD
	// (or, for cancellation, out of CONFIRMED) and releases its
	// persisted seat holds.
	UpdateBookingStatus(ctx context.Context, bookingID string, status BookingStatus) error

	// UpdateShowStatus records an administrative show status change.
	UpdateShowStatus(ctx context.Context, showID uint64, status ShowStatus) error

	// LoadOpenShows returns every show whose screening has not ended
	// by now, with its seats, premium overrides and all HELD and
	// CONFIRMED bookings, so the engine can rebuild its inventories
	// after a restart.
	LoadOpenShows(ctx context.Context, now time.Time) ([]*ShowState, error)
}

// ShowState is the rehydration snapshot of one show as loaded from the
// Store at startup.
type ShowState struct {
	Show      *Show
	Seats     []Seat
	Overrides map[string]int64 // seat type -> premium basis points
	Bookings  []*Booking       // HELD and CONFIRMED only
}
