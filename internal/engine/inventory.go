package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ShowInventory owns the mutable seat state of exactly one show: which
// seat is taken by which non-cancelled booking. All mutations happen
// under the inventory's write lock AND are written through to the Store
// before in-memory state changes, so a failed write leaves nothing
// behind and a crash never loses a live reservation. Reads take the
// shared read lock only, so availability queries do not block each
// other and block bookings no longer than a map lookup.
//
// Inventories for different shows share nothing; holds on show A never
// contend with holds on show B.
type ShowInventory struct {
	mu    sync.RWMutex
	store Store

	show    Show
	seatMap *SeatMap
	rules   *PricingRules

	// holders maps a seat ID to the booking currently occupying it.
	// A seat absent from the map is free. Entries whose booking is
	// HELD past its expiry are logically free and reclaimed lazily.
	holders  map[string]string
	bookings map[string]*Booking
}

// newShowInventory builds the inventory for a show and replays any
// surviving bookings (used during rehydration). Bookings referencing
// unknown seats are skipped; that only happens with a corrupted store.
func newShowInventory(store Store, show Show, seatMap *SeatMap, rules *PricingRules, existing []*Booking) *ShowInventory {
	inv := &ShowInventory{
		store:    store,
		show:     show,
		seatMap:  seatMap,
		rules:    rules,
		holders:  make(map[string]string),
		bookings: make(map[string]*Booking),
	}
	for _, b := range existing {
		if b.Status != BookingHeld && b.Status != BookingConfirmed {
			continue
		}
		c := b.clone()
		inv.bookings[c.ID] = c
		for _, sid := range c.SeatIDs {
			if _, ok := seatMap.Get(sid); ok {
				inv.holders[sid] = c.ID
			}
		}
	}
	return inv
}

// TryHold atomically claims the given seats for userID and returns the
// resulting HELD booking, priced and bound to a hold token that expires
// after ttl. For overlapping seat sets under concurrency, exactly one
// caller succeeds; losers fail fast with SeatUnavailableError naming
// the conflicting seats. Failure leaves the inventory untouched.
func (inv *ShowInventory) TryHold(ctx context.Context, userID uint64, seatIDs []string, now time.Time, ttl time.Duration) (*Booking, error) {
	unique := dedupe(seatIDs)
	if len(unique) == 0 {
		return nil, fmt.Errorf("%w: no seats requested", ErrSeatNotFound)
	}

	inv.mu.Lock()
	defer inv.mu.Unlock()

	if err := inv.bookableLocked(now); err != nil {
		return nil, err
	}

	seats := make([]Seat, 0, len(unique))
	for _, sid := range unique {
		seat, ok := inv.seatMap.Get(sid)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrSeatNotFound, sid)
		}
		seats = append(seats, seat)
	}

	// Reclaim lapsed holds first so their seats count as free below.
	if _, err := inv.expireDueLocked(ctx, now); err != nil {
		return nil, err
	}

	var conflicts []string
	for _, sid := range unique {
		if _, taken := inv.holders[sid]; taken {
			conflicts = append(conflicts, sid)
		}
	}
	if len(conflicts) > 0 {
		sort.Strings(conflicts)
		return nil, &SeatUnavailableError{SeatIDs: conflicts}
	}

	token, err := randomToken(32)
	if err != nil {
		return nil, fmt.Errorf("generate hold token: %w", err)
	}
	b := &Booking{
		ID:         uuid.NewString(),
		Reference:  token[:12],
		ShowID:     inv.show.ID,
		UserID:     userID,
		SeatIDs:    unique,
		TotalCents: inv.rules.PriceFor(inv.show.BasePriceCents, seats),
		Status:     BookingHeld,
		HoldToken:  token,
		ExpiresAt:  now.Add(ttl),
		CreatedAt:  now,
	}

	// Persist before touching memory: a store failure must leave no
	// partial hold observable to anyone.
	if err := inv.store.CreateBooking(ctx, b); err != nil {
		return nil, fmt.Errorf("persist hold: %w", err)
	}
	inv.bookings[b.ID] = b
	for _, sid := range unique {
		inv.holders[sid] = b.ID
	}
	return b.clone(), nil
}

// Confirm finalises a held booking. It is idempotent: confirming an
// already-confirmed booking returns the same booking and changes
// nothing. A confirm that arrives before the hold's expiry has been
// observed always wins against the sweep, because both paths run under
// the same write lock and compare against their caller's clock; once
// the expiry has been acted on, Confirm reports ErrHoldExpired.
func (inv *ShowInventory) Confirm(ctx context.Context, bookingID string, now time.Time) (*Booking, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	b, ok := inv.bookings[bookingID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBookingNotFound, bookingID)
	}
	switch b.Status {
	case BookingConfirmed:
		return b.clone(), nil
	case BookingExpired:
		return nil, fmt.Errorf("%w: booking %s", ErrHoldExpired, bookingID)
	case BookingCancelled:
		return nil, fmt.Errorf("%w: booking %s was cancelled", ErrHoldExpired, bookingID)
	}
	if !b.ExpiresAt.After(now) {
		if err := inv.expireBookingLocked(ctx, b); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: booking %s", ErrHoldExpired, bookingID)
	}
	if err := inv.store.UpdateBookingStatus(ctx, b.ID, BookingConfirmed); err != nil {
		return nil, fmt.Errorf("persist confirm: %w", err)
	}
	b.Status = BookingConfirmed
	b.ExpiresAt = time.Time{}
	return b.clone(), nil
}

// Cancel releases a held or confirmed booking before showtime and
// returns the cancelled record. Cancelling an already-cancelled booking
// is a no-op returning the same record. The freed seats are visible to
// TryHold and availability reads as soon as Cancel returns.
func (inv *ShowInventory) Cancel(ctx context.Context, bookingID string, now time.Time) (*Booking, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	b, ok := inv.bookings[bookingID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBookingNotFound, bookingID)
	}
	switch b.Status {
	case BookingCancelled:
		return b.clone(), nil
	case BookingExpired:
		return nil, fmt.Errorf("%w: booking %s", ErrHoldExpired, bookingID)
	}
	if !inv.show.StartsAt.After(now) {
		return nil, fmt.Errorf("%w: screening already started", ErrShowNotBookable)
	}
	if err := inv.store.UpdateBookingStatus(ctx, b.ID, BookingCancelled); err != nil {
		return nil, fmt.Errorf("persist cancel: %w", err)
	}
	b.Status = BookingCancelled
	inv.releaseSeatsLocked(b)
	return b.clone(), nil
}

// ReclaimExpired removes every hold whose expiry is at or before now
// and returns the expired bookings. Seats return to the available pool.
func (inv *ShowInventory) ReclaimExpired(ctx context.Context, now time.Time) ([]*Booking, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.expireDueLocked(ctx, now)
}

// CancelShow marks the show cancelled. Existing bookings stay on record
// but the show stops accepting holds immediately.
func (inv *ShowInventory) CancelShow(ctx context.Context) error {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if inv.show.Status == ShowCancelled {
		return nil
	}
	if err := inv.store.UpdateShowStatus(ctx, inv.show.ID, ShowCancelled); err != nil {
		return fmt.Errorf("persist show cancel: %w", err)
	}
	inv.show.Status = ShowCancelled
	return nil
}

// AvailableSeats returns the seats free for booking at the given
// instant, in seat-map order. Seats under a lapsed-but-unswept hold
// count as free; the next write will reclaim them.
func (inv *ShowInventory) AvailableSeats(now time.Time) []Seat {
	inv.mu.RLock()
	defer inv.mu.RUnlock()

	var free []Seat
	for _, seat := range inv.seatMap.Seats() {
		if inv.seatFreeLocked(seat.ID, now) {
			free = append(free, seat)
		}
	}
	return free
}

// IsBookable reports whether the show accepts new holds right now: it
// must be scheduled, its screening must not have started, and at least
// one seat must be free.
func (inv *ShowInventory) IsBookable(now time.Time) bool {
	inv.mu.RLock()
	defer inv.mu.RUnlock()

	if inv.bookableLocked(now) != nil {
		return false
	}
	for _, seat := range inv.seatMap.Seats() {
		if inv.seatFreeLocked(seat.ID, now) {
			return true
		}
	}
	return false
}

// Counts returns the total and currently booked seat counts. Booked
// means taken by a HELD (unexpired) or CONFIRMED booking, so
// booked ≤ total always holds.
func (inv *ShowInventory) Counts(now time.Time) (total, booked int) {
	inv.mu.RLock()
	defer inv.mu.RUnlock()

	total = inv.seatMap.Size()
	for _, seat := range inv.seatMap.Seats() {
		if !inv.seatFreeLocked(seat.ID, now) {
			booked++
		}
	}
	return total, booked
}

// Booking returns a copy of the booking with the given ID.
func (inv *ShowInventory) Booking(bookingID string) (*Booking, error) {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	b, ok := inv.bookings[bookingID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBookingNotFound, bookingID)
	}
	return b.clone(), nil
}

// Show returns a copy of the show's scheduling facts.
func (inv *ShowInventory) Show() Show {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	return inv.show
}

// Ended reports whether the screening has finished, which makes the
// inventory eligible for eviction from the registry.
func (inv *ShowInventory) Ended(now time.Time) bool {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	return !inv.show.EndsAt.After(now)
}

// bookableLocked checks show status and screening time. Callers hold at
// least the read lock.
func (inv *ShowInventory) bookableLocked(now time.Time) error {
	if inv.show.Status == ShowCancelled {
		return fmt.Errorf("%w: show cancelled", ErrShowNotBookable)
	}
	if !inv.show.StartsAt.After(now) {
		return fmt.Errorf("%w: screening already started", ErrShowNotBookable)
	}
	return nil
}

// seatFreeLocked reports whether a seat can be claimed at the given
// instant. Callers hold at least the read lock.
func (inv *ShowInventory) seatFreeLocked(seatID string, now time.Time) bool {
	holder, taken := inv.holders[seatID]
	if !taken {
		return true
	}
	b := inv.bookings[holder]
	return b.Status == BookingHeld && !b.ExpiresAt.After(now)
}

// expireDueLocked transitions every lapsed HELD booking to EXPIRED and
// frees its seats. Callers hold the write lock.
func (inv *ShowInventory) expireDueLocked(ctx context.Context, now time.Time) ([]*Booking, error) {
	var expired []*Booking
	for _, b := range inv.bookings {
		if b.Status == BookingHeld && !b.ExpiresAt.After(now) {
			if err := inv.expireBookingLocked(ctx, b); err != nil {
				return expired, err
			}
			expired = append(expired, b.clone())
		}
	}
	return expired, nil
}

// expireBookingLocked expires a single held booking, store first.
func (inv *ShowInventory) expireBookingLocked(ctx context.Context, b *Booking) error {
	if err := inv.store.UpdateBookingStatus(ctx, b.ID, BookingExpired); err != nil {
		return fmt.Errorf("persist expiry: %w", err)
	}
	b.Status = BookingExpired
	inv.releaseSeatsLocked(b)
	return nil
}

// releaseSeatsLocked frees the seats held by b, guarding against a seat
// having been re-assigned (possible only for already-released states).
func (inv *ShowInventory) releaseSeatsLocked(b *Booking) {
	for _, sid := range b.SeatIDs {
		if inv.holders[sid] == b.ID {
			delete(inv.holders, sid)
		}
	}
}

// dedupe drops empty and repeated seat IDs, preserving first-seen order.
func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
