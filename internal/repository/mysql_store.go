package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/cinebook/booking-core/internal/engine"
)

// MySQLStore implements engine.Store on top of the shows, show_seats,
// pricing_rules, bookings and booking_seats tables. The engine calls it
// while holding the per-show lock, so per-show writes arrive serialised
// already; the transactions here only guard multi-table atomicity.
type MySQLStore struct {
	db *sql.DB
}

// NewMySQLStore returns a MySQLStore bound to the provided database.
func NewMySQLStore(db *sql.DB) *MySQLStore { return &MySQLStore{db: db} }

// CreateShow persists a show with its frozen seat layout and per-show
// premium overrides, returning the assigned id. An unknown movie id
// fails with engine.ErrInvalidMovie before anything is written.
func (s *MySQLStore) CreateShow(ctx context.Context, show *engine.Show, seats []engine.Seat, overrides map[string]int64) (uint64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var one int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM movies WHERE id = ?`, show.MovieID).Scan(&one)
	if err == sql.ErrNoRows {
		return 0, engine.ErrInvalidMovie
	}
	if err != nil {
		return 0, err
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO shows (movie_id, starts_at, ends_at, base_price_cents, status) VALUES (?, ?, ?, ?, ?)`,
		show.MovieID, dbTime(show.StartsAt), dbTime(show.EndsAt), show.BasePriceCents, string(show.Status),
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	showID := uint64(id)

	query := `INSERT INTO show_seats (show_id, seat_id, seat_type, label) VALUES `
	args := make([]interface{}, 0, len(seats)*4)
	for i, seat := range seats {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?)"
		args = append(args, showID, seat.ID, seat.Type, seat.Label)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return 0, err
	}

	if len(overrides) > 0 {
		query = `INSERT INTO pricing_rules (show_id, seat_type, premium_bps) VALUES `
		args = args[:0]
		first := true
		for seatType, bps := range overrides {
			if !first {
				query += ","
			}
			first = false
			query += "(?, ?, ?)"
			args = append(args, showID, seatType, bps)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	committed = true
	return showID, nil
}

// CreateBooking persists a HELD booking and its seat rows atomically.
func (s *MySQLStore) CreateBooking(ctx context.Context, b *engine.Booking) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO bookings (id, reference, show_id, user_id, total_cents, status, hold_token, expires_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.Reference, b.ShowID, b.UserID, b.TotalCents, string(b.Status),
		b.HoldToken, dbTime(b.ExpiresAt), dbTime(b.CreatedAt),
	)
	if err != nil {
		return err
	}

	query := `INSERT INTO booking_seats (booking_id, show_id, seat_id) VALUES `
	args := make([]interface{}, 0, len(b.SeatIDs)*3)
	for i, sid := range b.SeatIDs {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?)"
		args = append(args, b.ID, b.ShowID, sid)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// UpdateBookingStatus records a status transition. Confirmed bookings
// drop their expiry so a later sweep cannot touch them.
func (s *MySQLStore) UpdateBookingStatus(ctx context.Context, bookingID string, status engine.BookingStatus) error {
	if status == engine.BookingConfirmed {
		_, err := s.db.ExecContext(ctx,
			`UPDATE bookings SET status = ?, expires_at = NULL WHERE id = ?`, string(status), bookingID)
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE bookings SET status = ? WHERE id = ?`, string(status), bookingID)
	return err
}

// UpdateShowStatus records an administrative show status change.
func (s *MySQLStore) UpdateShowStatus(ctx context.Context, showID uint64, status engine.ShowStatus) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE shows SET status = ? WHERE id = ?`, string(status), showID)
	return err
}

// LoadOpenShows loads every show still running at now, with seats,
// premium overrides and live bookings, for engine rehydration.
func (s *MySQLStore) LoadOpenShows(ctx context.Context, now time.Time) ([]*engine.ShowState, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, movie_id, starts_at, ends_at, base_price_cents, status FROM shows WHERE ends_at > ?`,
		dbTime(now),
	)
	if err != nil {
		return nil, err
	}
	var states []*engine.ShowState
	for rows.Next() {
		var show engine.Show
		var status string
		if err := rows.Scan(&show.ID, &show.MovieID, &show.StartsAt, &show.EndsAt, &show.BasePriceCents, &status); err != nil {
			rows.Close()
			return nil, err
		}
		show.Status = engine.ShowStatus(status)
		states = append(states, &engine.ShowState{Show: &show})
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	for _, st := range states {
		if st.Seats, err = s.loadSeats(ctx, st.Show.ID); err != nil {
			return nil, err
		}
		if st.Overrides, err = s.loadOverrides(ctx, st.Show.ID); err != nil {
			return nil, err
		}
		if st.Bookings, err = s.loadLiveBookings(ctx, st.Show.ID); err != nil {
			return nil, err
		}
	}
	return states, nil
}

func (s *MySQLStore) loadSeats(ctx context.Context, showID uint64) ([]engine.Seat, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT seat_id, seat_type, label FROM show_seats WHERE show_id = ? ORDER BY id`, showID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var seats []engine.Seat
	for rows.Next() {
		var seat engine.Seat
		if err := rows.Scan(&seat.ID, &seat.Type, &seat.Label); err != nil {
			return nil, err
		}
		seats = append(seats, seat)
	}
	return seats, rows.Err()
}

func (s *MySQLStore) loadOverrides(ctx context.Context, showID uint64) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT seat_type, premium_bps FROM pricing_rules WHERE show_id = ?`, showID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]int64)
	for rows.Next() {
		var seatType string
		var bps int64
		if err := rows.Scan(&seatType, &bps); err != nil {
			return nil, err
		}
		out[seatType] = bps
	}
	return out, rows.Err()
}

func (s *MySQLStore) loadLiveBookings(ctx context.Context, showID uint64) ([]*engine.Booking, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, reference, user_id, total_cents, status, hold_token, expires_at, created_at
		 FROM bookings WHERE show_id = ? AND status IN ('HELD', 'CONFIRMED')`, showID)
	if err != nil {
		return nil, err
	}
	var bookings []*engine.Booking
	for rows.Next() {
		b := &engine.Booking{ShowID: showID}
		var status string
		var expires sql.NullTime
		if err := rows.Scan(&b.ID, &b.Reference, &b.UserID, &b.TotalCents, &status, &b.HoldToken, &expires, &b.CreatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		b.Status = engine.BookingStatus(status)
		if expires.Valid {
			b.ExpiresAt = expires.Time
		}
		bookings = append(bookings, b)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	for _, b := range bookings {
		seatRows, err := s.db.QueryContext(ctx,
			`SELECT seat_id FROM booking_seats WHERE booking_id = ? ORDER BY id`, b.ID)
		if err != nil {
			return nil, err
		}
		for seatRows.Next() {
			var sid string
			if err := seatRows.Scan(&sid); err != nil {
				seatRows.Close()
				return nil, err
			}
			b.SeatIDs = append(b.SeatIDs, sid)
		}
		if err := seatRows.Close(); err != nil {
			return nil, err
		}
	}
	return bookings, nil
}

// LoadGlobalPremiums returns the cinema-wide default premiums (rows
// with a NULL show_id) as seat type -> basis points.
func (s *MySQLStore) LoadGlobalPremiums(ctx context.Context) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT seat_type, premium_bps FROM pricing_rules WHERE show_id IS NULL`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]int64)
	for rows.Next() {
		var seatType string
		var bps int64
		if err := rows.Scan(&seatType, &bps); err != nil {
			return nil, err
		}
		out[seatType] = bps
	}
	return out, rows.Err()
}

// dbTime formats a timestamp the way the MySQL driver expects DATETIME
// literals, always in UTC.
func dbTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05")
}
