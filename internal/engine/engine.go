package engine

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// DefaultHoldTTL is how long a hold keeps seats off the market when the
// host does not configure its own timeout.
const DefaultHoldTTL = 10 * time.Minute

// Engine is the booking facade consumed by the HTTP layer and the
// sweep worker. It routes every operation to the per-show inventory, so
// bookings for different shows never contend; within one show the
// inventory's lock provides the atomicity guarantees.
type Engine struct {
	store    Store
	defaults *PricingRules
	holdTTL  time.Duration
	now      func() time.Time

	mu          sync.RWMutex
	inventories map[uint64]*ShowInventory
	bookingShow map[string]uint64 // booking ID -> show ID
}

// Option customises an Engine at construction time.
type Option func(*Engine)

// WithHoldTTL overrides the hold expiry timeout.
func WithHoldTTL(ttl time.Duration) Option {
	return func(e *Engine) {
		if ttl > 0 {
			e.holdTTL = ttl
		}
	}
}

// WithClock replaces the engine's clock; tests use this to drive expiry
// deterministically.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// New constructs an Engine backed by the given store. defaults may be
// nil, meaning no seat type carries a premium until a show overrides it.
func New(store Store, defaults *PricingRules, opts ...Option) *Engine {
	e := &Engine{
		store:       store,
		defaults:    defaults,
		holdTTL:     DefaultHoldTTL,
		now:         time.Now,
		inventories: make(map[uint64]*ShowInventory),
		bookingShow: make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Rehydrate rebuilds the in-memory inventories from the store. Call it
// once at startup, before serving requests; holds that were live when
// the previous process died keep their seats until their expiry.
func (e *Engine) Rehydrate(ctx context.Context) error {
	states, err := e.store.LoadOpenShows(ctx, e.now())
	if err != nil {
		return fmt.Errorf("load open shows: %w", err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, st := range states {
		seatMap, err := NewSeatMap(st.Seats)
		if err != nil {
			return fmt.Errorf("show %d: %w", st.Show.ID, err)
		}
		rules := e.defaults.Merge(&PricingRules{premiums: st.Overrides})
		inv := newShowInventory(e.store, *st.Show, seatMap, rules, st.Bookings)
		e.inventories[st.Show.ID] = inv
		for _, b := range st.Bookings {
			e.bookingShow[b.ID] = st.Show.ID
		}
	}
	return nil
}

// CreateShow registers a new show: it validates the seat map and the
// premium overrides, persists everything, and opens an inventory for
// bookings. The seat layout is frozen from this point on.
func (e *Engine) CreateShow(ctx context.Context, movieID uint64, startsAt, endsAt time.Time, basePriceCents int64, seats []Seat, overrides map[string]float64) (uint64, error) {
	if basePriceCents < 0 {
		return 0, fmt.Errorf("%w: negative base price", ErrInvalidPricingRule)
	}
	if !endsAt.After(startsAt) {
		endsAt = startsAt.Add(3 * time.Hour) // longest realistic screening
	}
	seatMap, err := NewSeatMap(seats)
	if err != nil {
		return 0, err
	}
	var override *PricingRules
	if len(overrides) > 0 {
		override, err = NewPricingRules(overrides)
		if err != nil {
			return 0, err
		}
	}

	show := &Show{
		MovieID:        movieID,
		StartsAt:       startsAt,
		EndsAt:         endsAt,
		BasePriceCents: basePriceCents,
		Status:         ShowScheduled,
	}
	var bps map[string]int64
	if override != nil {
		bps = override.premiums
	}
	id, err := e.store.CreateShow(ctx, show, seatMap.Seats(), bps)
	if err != nil {
		return 0, err
	}
	show.ID = id

	inv := newShowInventory(e.store, *show, seatMap, e.defaults.Merge(override), nil)
	e.mu.Lock()
	e.inventories[id] = inv
	e.mu.Unlock()
	return id, nil
}

// RequestBooking holds the given seats for the user and returns the
// priced HELD booking with its expiry deadline. Errors pass through
// from the inventory unchanged: ErrSeatNotFound, SeatUnavailableError,
// ErrShowNotBookable.
func (e *Engine) RequestBooking(ctx context.Context, showID, userID uint64, seatIDs []string) (*Booking, error) {
	inv, err := e.inventory(showID)
	if err != nil {
		return nil, err
	}
	b, err := inv.TryHold(ctx, userID, seatIDs, e.now(), e.holdTTL)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	e.bookingShow[b.ID] = showID
	e.mu.Unlock()
	return b, nil
}

// ConfirmBooking finalises a held booking. Confirming twice returns the
// identical booking; a lapsed hold reports ErrHoldExpired.
func (e *Engine) ConfirmBooking(ctx context.Context, bookingID string) (*Booking, error) {
	inv, err := e.bookingInventory(bookingID)
	if err != nil {
		return nil, err
	}
	return inv.Confirm(ctx, bookingID, e.now())
}

// CancelBooking releases a held or confirmed booking before showtime.
// The freed seats are immediately visible to TryHold and availability.
func (e *Engine) CancelBooking(ctx context.Context, bookingID string) (*Booking, error) {
	inv, err := e.bookingInventory(bookingID)
	if err != nil {
		return nil, err
	}
	return inv.Cancel(ctx, bookingID, e.now())
}

// GetBooking returns a copy of a booking by ID.
func (e *Engine) GetBooking(bookingID string) (*Booking, error) {
	inv, err := e.bookingInventory(bookingID)
	if err != nil {
		return nil, err
	}
	return inv.Booking(bookingID)
}

// ListAvailableSeats returns the free seats of a show in layout order.
func (e *Engine) ListAvailableSeats(showID uint64) ([]Seat, error) {
	inv, err := e.inventory(showID)
	if err != nil {
		return nil, err
	}
	return inv.AvailableSeats(e.now()), nil
}

// IsBookable reports whether a show currently accepts holds.
func (e *Engine) IsBookable(showID uint64) (bool, error) {
	inv, err := e.inventory(showID)
	if err != nil {
		return false, err
	}
	return inv.IsBookable(e.now()), nil
}

// SeatCounts returns total and booked seat counts for a show.
func (e *Engine) SeatCounts(showID uint64) (total, booked int, err error) {
	inv, err := e.inventory(showID)
	if err != nil {
		return 0, 0, err
	}
	total, booked = inv.Counts(e.now())
	return total, booked, nil
}

// CancelShow marks a show cancelled; it stops accepting holds at once.
func (e *Engine) CancelShow(ctx context.Context, showID uint64) error {
	inv, err := e.inventory(showID)
	if err != nil {
		return err
	}
	return inv.CancelShow(ctx)
}

// ReclaimExpiredHolds sweeps every live inventory, expiring holds whose
// deadline is at or before now, and returns the expired bookings. The
// sweep never races a confirm: both take the same per-show lock, and a
// confirm that gets there first wins.
func (e *Engine) ReclaimExpiredHolds(ctx context.Context, now time.Time) ([]*Booking, error) {
	var all []*Booking
	for _, inv := range e.snapshot() {
		expired, err := inv.ReclaimExpired(ctx, now)
		all = append(all, expired...)
		if err != nil {
			return all, err
		}
	}
	return all, nil
}

// EvictEndedShows drops inventories for shows whose screening has ended
// and returns how many were evicted. Their bookings remain in the store.
func (e *Engine) EvictEndedShows(now time.Time) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	evicted := 0
	for id, inv := range e.inventories {
		if inv.Ended(now) {
			delete(e.inventories, id)
			evicted++
		}
	}
	if evicted > 0 {
		for bid, sid := range e.bookingShow {
			if _, live := e.inventories[sid]; !live {
				delete(e.bookingShow, bid)
			}
		}
	}
	return evicted
}

// HoldTTL exposes the configured hold timeout for handlers that report
// it to clients.
func (e *Engine) HoldTTL() time.Duration { return e.holdTTL }

func (e *Engine) inventory(showID uint64) (*ShowInventory, error) {
	e.mu.RLock()
	inv, ok := e.inventories[showID]
	e.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrShowNotFound, showID)
	}
	return inv, nil
}

func (e *Engine) bookingInventory(bookingID string) (*ShowInventory, error) {
	e.mu.RLock()
	showID, ok := e.bookingShow[bookingID]
	var inv *ShowInventory
	if ok {
		inv = e.inventories[showID]
	}
	e.mu.RUnlock()
	if !ok || inv == nil {
		return nil, fmt.Errorf("%w: %s", ErrBookingNotFound, bookingID)
	}
	return inv, nil
}

func (e *Engine) snapshot() []*ShowInventory {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*ShowInventory, 0, len(e.inventories))
	for _, inv := range e.inventories {
		out = append(out, inv)
	}
	return out
}
