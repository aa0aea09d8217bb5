package engine

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// ShowStatus enumerates the lifecycle states of a show.
type ShowStatus string

const (
	ShowScheduled ShowStatus = "SCHEDULED"
	ShowCancelled ShowStatus = "CANCELLED"
)

// BookingStatus enumerates the lifecycle states of a booking. A booking
// is created HELD and moves exactly once to CONFIRMED, CANCELLED or
// EXPIRED. Seats are taken while the booking is HELD or CONFIRMED.
type BookingStatus string

const (
	BookingHeld      BookingStatus = "HELD"
	BookingConfirmed BookingStatus = "CONFIRMED"
	BookingCancelled BookingStatus = "CANCELLED"
	BookingExpired   BookingStatus = "EXPIRED"
)

// Show carries the scheduling and pricing facts the engine needs about
// a screening. The seat layout lives in the accompanying SeatMap and is
// frozen once the show is registered.
//
// Fields:
//
//	ID             – identifier assigned by the store on creation.
//	MovieID        – catalog movie being screened.
//	StartsAt       – screening start; bookings close at this instant.
//	EndsAt         – screening end; the inventory is evicted after it.
//	BasePriceCents – ticket base price in cents before premiums.
//	Status         – SCHEDULED or CANCELLED.
type Show struct {
	ID             uint64     `json:"id"`
	MovieID        uint64     `json:"movie_id"`
	StartsAt       time.Time  `json:"starts_at"`
	EndsAt         time.Time  `json:"ends_at"`
	BasePriceCents int64      `json:"base_price_cents"`
	Status         ShowStatus `json:"status"`
}

// Booking is the record produced by a successful hold. While HELD it is
// backed by a hold token with an expiry deadline; once CONFIRMED the
// seat set and total are immutable. Reference is an opaque identifier
// suitable for tickets and payment correlation.
type Booking struct {
	ID         string        `json:"id"`
	Reference  string        `json:"reference"`
	ShowID     uint64        `json:"show_id"`
	UserID     uint64        `json:"user_id"`
	SeatIDs    []string      `json:"seat_ids"`
	TotalCents int64         `json:"total_cents"`
	Status     BookingStatus `json:"status"`
	HoldToken  string        `json:"-"`
	ExpiresAt  time.Time     `json:"expires_at"`
	CreatedAt  time.Time     `json:"created_at"`
}

// clone returns a copy of the booking with its own seat slice so that
// callers outside the inventory lock cannot alias internal state.
func (b *Booking) clone() *Booking {
	out := *b
	out.SeatIDs = make([]string, len(b.SeatIDs))
	copy(out.SeatIDs, b.SeatIDs)
	return &out
}

// randomToken generates a cryptographically random hex string of n
// bytes (2n characters). It backs hold tokens, which must be
// unguessable because presenting one is enough to confirm a booking.
func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
