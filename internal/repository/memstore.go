package repository

import (
	"context"
	"sync"
	"time"

	"github.com/cinebook/booking-core/internal/engine"
)

// MemStore is an in-memory engine.Store. It backs the engine test
// suites and local development without a database; it mirrors the
// MySQLStore contract including the movie existence check on show
// creation. All methods are safe for concurrent use.
type MemStore struct {
	mu         sync.Mutex
	nextShowID uint64
	movies     map[uint64]struct{}
	shows      map[uint64]*memShow
	bookings   map[string]*engine.Booking
}

type memShow struct {
	show      engine.Show
	seats     []engine.Seat
	overrides map[string]int64
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		movies:   make(map[uint64]struct{}),
		shows:    make(map[uint64]*memShow),
		bookings: make(map[string]*engine.Booking),
	}
}

// AddMovie registers a movie id so CreateShow can validate references.
func (s *MemStore) AddMovie(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.movies[id] = struct{}{}
}

// CreateShow implements engine.Store.
func (s *MemStore) CreateShow(_ context.Context, show *engine.Show, seats []engine.Seat, overrides map[string]int64) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.movies[show.MovieID]; !ok {
		return 0, engine.ErrInvalidMovie
	}
	s.nextShowID++
	id := s.nextShowID
	rec := *show
	rec.ID = id
	s.shows[id] = &memShow{show: rec, seats: seats, overrides: overrides}
	return id, nil
}

// CreateBooking implements engine.Store.
func (s *MemStore) CreateBooking(_ context.Context, b *engine.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *b
	c.SeatIDs = append([]string(nil), b.SeatIDs...)
	s.bookings[b.ID] = &c
	return nil
}

// UpdateBookingStatus implements engine.Store.
func (s *MemStore) UpdateBookingStatus(_ context.Context, bookingID string, status engine.BookingStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.bookings[bookingID]; ok {
		b.Status = status
		if status == engine.BookingConfirmed {
			b.ExpiresAt = time.Time{}
		}
	}
	return nil
}

// UpdateShowStatus implements engine.Store.
func (s *MemStore) UpdateShowStatus(_ context.Context, showID uint64, status engine.ShowStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sh, ok := s.shows[showID]; ok {
		sh.show.Status = status
	}
	return nil
}

// LoadOpenShows implements engine.Store.
func (s *MemStore) LoadOpenShows(_ context.Context, now time.Time) ([]*engine.ShowState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var states []*engine.ShowState
	for _, sh := range s.shows {
		if !sh.show.EndsAt.After(now) {
			continue
		}
		show := sh.show
		st := &engine.ShowState{
			Show:      &show,
			Seats:     append([]engine.Seat(nil), sh.seats...),
			Overrides: sh.overrides,
		}
		for _, b := range s.bookings {
			if b.ShowID != show.ID {
				continue
			}
			if b.Status != engine.BookingHeld && b.Status != engine.BookingConfirmed {
				continue
			}
			c := *b
			c.SeatIDs = append([]string(nil), b.SeatIDs...)
			st.Bookings = append(st.Bookings, &c)
		}
		states = append(states, st)
	}
	return states, nil
}

// BookingStatus reports the persisted status of a booking, which tests
// use to assert that transitions were written through.
func (s *MemStore) BookingStatus(bookingID string) (engine.BookingStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[bookingID]
	if !ok {
		return "", false
	}
	return b.Status, true
}
