// Package queue defines the booking lifecycle events exchanged over the
// message broker and the background consumer that records them.
package queue

// BookingConfirmedEvent is published after a booking is confirmed. It
// carries enough context for downstream consumers (ticket delivery,
// analytics) to act without querying the primary database.
type BookingConfirmedEvent struct {
	BookingID   string   `json:"booking_id"`
	Reference   string   `json:"reference"`
	UserID      uint64   `json:"user_id"`
	ShowID      uint64   `json:"show_id"`
	SeatIDs     []string `json:"seats"`
	TotalCents  int64    `json:"total_cents"`
	ConfirmedAt string   `json:"confirmed_at"`
}

// BookingCancelledEvent is published after a held or confirmed booking
// is cancelled and its seats have returned to the available pool.
type BookingCancelledEvent struct {
	BookingID   string   `json:"booking_id"`
	UserID      uint64   `json:"user_id"`
	ShowID      uint64   `json:"show_id"`
	SeatIDs     []string `json:"seats"`
	CancelledAt string   `json:"cancelled_at"`
}

// HoldsReclaimedEvent is published by the sweep when expired holds were
// reclaimed, one event per sweep run that freed anything.
type HoldsReclaimedEvent struct {
	Expired    int      `json:"expired"`
	SweptAt    string   `json:"swept_at"`
	BookingIDs []string `json:"booking_ids"`
}
