package repository

import (
	"context"
	"database/sql"
	"time"
)

// BookingDetail is the read model for a user's booking history: the
// booking joined with its show, movie title and seat labels. It feeds
// the listing endpoint and is never written back.
type BookingDetail struct {
	BookingID  string    `json:"booking_id"`
	Reference  string    `json:"reference"`
	Status     string    `json:"status"`
	TotalCents int64     `json:"total_cents"`
	CreatedAt  time.Time `json:"created_at"`
	ShowID     uint64    `json:"show_id"`
	StartsAt   time.Time `json:"starts_at"`
	MovieTitle string    `json:"movie_title"`
	Seats      []string  `json:"seats"`
}

// BookingRepo provides read access to booking records outside the
// engine's live inventories, e.g. for history listings that include
// shows whose inventories were already evicted.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a BookingRepo bound to the provided database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// ListByUser returns all bookings made by a user, newest first, with
// seat labels resolved from the show layout.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]BookingDetail, error) {
	const q = `SELECT b.id, b.reference, b.status, b.total_cents, b.created_at,
	                  s.id, s.starts_at, m.title
	           FROM bookings b
	           JOIN shows s ON s.id = b.show_id
	           JOIN movies m ON m.id = s.movie_id
	           WHERE b.user_id = ?
	           ORDER BY b.created_at DESC, b.id`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	var details []BookingDetail
	for rows.Next() {
		var d BookingDetail
		if err := rows.Scan(&d.BookingID, &d.Reference, &d.Status, &d.TotalCents, &d.CreatedAt,
			&d.ShowID, &d.StartsAt, &d.MovieTitle); err != nil {
			rows.Close()
			return nil, err
		}
		details = append(details, d)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	for i := range details {
		seats, err := r.seatLabels(ctx, details[i].BookingID)
		if err != nil {
			return nil, err
		}
		details[i].Seats = seats
	}
	return details, nil
}

// seatLabels resolves the position labels of a booking's seats so the
// ticket can say where the holder is sitting.
func (r *BookingRepo) seatLabels(ctx context.Context, bookingID string) ([]string, error) {
	const q = `SELECT ss.label
	           FROM booking_seats bs
	           JOIN show_seats ss ON ss.show_id = bs.show_id AND ss.seat_id = bs.seat_id
	           WHERE bs.booking_id = ?
	           ORDER BY bs.id`
	rows, err := r.db.QueryContext(ctx, q, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var labels []string
	for rows.Next() {
		var l string
		if err := rows.Scan(&l); err != nil {
			return nil, err
		}
		labels = append(labels, l)
	}
	return labels, rows.Err()
}
