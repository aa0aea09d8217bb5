package engine_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinebook/booking-core/internal/engine"
	"github.com/cinebook/booking-core/internal/repository"
)

// fakeClock lets tests drive hold expiry deterministically.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// testSeats is a small two-row layout: four standard seats and two VIP.
func testSeats() []engine.Seat {
	return []engine.Seat{
		{ID: "A1", Type: "STANDARD", Label: "Row A Seat 1"},
		{ID: "A2", Type: "STANDARD", Label: "Row A Seat 2"},
		{ID: "A3", Type: "STANDARD", Label: "Row A Seat 3"},
		{ID: "A4", Type: "STANDARD", Label: "Row A Seat 4"},
		{ID: "B1", Type: "VIP", Label: "Row B Seat 1"},
		{ID: "B2", Type: "VIP", Label: "Row B Seat 2"},
	}
}

func newTestEngine(t *testing.T) (*engine.Engine, *repository.MemStore, *fakeClock) {
	t.Helper()
	store := repository.NewMemStore()
	store.AddMovie(1)
	clock := newFakeClock()
	defaults, err := engine.NewPricingRules(map[string]float64{"VIP": 0.5})
	require.NoError(t, err)
	eng := engine.New(store, defaults,
		engine.WithHoldTTL(10*time.Minute),
		engine.WithClock(clock.Now),
	)
	return eng, store, clock
}

func createTestShow(t *testing.T, eng *engine.Engine, clock *fakeClock, basePriceCents int64) uint64 {
	t.Helper()
	showID, err := eng.CreateShow(context.Background(), 1,
		clock.Now().Add(2*time.Hour), clock.Now().Add(4*time.Hour),
		basePriceCents, testSeats(), nil)
	require.NoError(t, err)
	return showID
}

func TestCreateShowValidation(t *testing.T) {
	eng, _, clock := newTestEngine(t)
	ctx := context.Background()
	starts := clock.Now().Add(2 * time.Hour)
	ends := clock.Now().Add(4 * time.Hour)

	_, err := eng.CreateShow(ctx, 99, starts, ends, 1000, testSeats(), nil)
	assert.ErrorIs(t, err, engine.ErrInvalidMovie)

	_, err = eng.CreateShow(ctx, 1, starts, ends, 1000,
		[]engine.Seat{{ID: "A1"}, {ID: "A1"}}, nil)
	assert.ErrorIs(t, err, engine.ErrInvalidSeatMap)

	_, err = eng.CreateShow(ctx, 1, starts, ends, 1000, testSeats(),
		map[string]float64{"VIP": -0.5})
	assert.ErrorIs(t, err, engine.ErrInvalidPricingRule)
}

func TestRequestConfirmFlow(t *testing.T) {
	eng, store, clock := newTestEngine(t)
	ctx := context.Background()
	showID := createTestShow(t, eng, clock, 10000)

	b, err := eng.RequestBooking(ctx, showID, 42, []string{"B1", "B2"})
	require.NoError(t, err)
	assert.Equal(t, engine.BookingHeld, b.Status)
	assert.Equal(t, []string{"B1", "B2"}, b.SeatIDs)
	assert.Equal(t, int64(30000), b.TotalCents) // 2 × 100.00 × 1.5
	assert.Equal(t, clock.Now().Add(10*time.Minute), b.ExpiresAt)

	total, booked, err := eng.SeatCounts(showID)
	require.NoError(t, err)
	assert.Equal(t, 6, total)
	assert.Equal(t, 2, booked)

	confirmed, err := eng.ConfirmBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, engine.BookingConfirmed, confirmed.Status)
	assert.True(t, confirmed.ExpiresAt.IsZero())

	// The transition must have been written through.
	status, ok := store.BookingStatus(b.ID)
	require.True(t, ok)
	assert.Equal(t, engine.BookingConfirmed, status)
}

func TestConfirmIsIdempotent(t *testing.T) {
	eng, _, clock := newTestEngine(t)
	ctx := context.Background()
	showID := createTestShow(t, eng, clock, 10000)

	b, err := eng.RequestBooking(ctx, showID, 42, []string{"A1"})
	require.NoError(t, err)

	first, err := eng.ConfirmBooking(ctx, b.ID)
	require.NoError(t, err)
	second, err := eng.ConfirmBooking(ctx, b.ID)
	require.NoError(t, err)

	assert.Equal(t, first, second)

	// Inventory is unaffected by the second confirm.
	_, booked, err := eng.SeatCounts(showID)
	require.NoError(t, err)
	assert.Equal(t, 1, booked)
}

func TestConcurrentHoldsSameSeatExactlyOneWins(t *testing.T) {
	eng, _, clock := newTestEngine(t)
	ctx := context.Background()
	showID := createTestShow(t, eng, clock, 1000)

	const callers = 16
	start := make(chan struct{})
	var wg sync.WaitGroup
	var mu sync.Mutex
	var wins, conflicts int

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(userID uint64) {
			defer wg.Done()
			<-start
			_, err := eng.RequestBooking(ctx, showID, userID, []string{"A1"})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				wins++
				return
			}
			if seats, ok := engine.IsSeatUnavailable(err); ok {
				assert.Equal(t, []string{"A1"}, seats)
				conflicts++
			}
		}(uint64(i + 1))
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, callers-1, conflicts)
}

func TestConcurrentHoldsDisjointSeatsBothSucceed(t *testing.T) {
	eng, _, clock := newTestEngine(t)
	ctx := context.Background()
	showID := createTestShow(t, eng, clock, 1000)

	start := make(chan struct{})
	var wg sync.WaitGroup
	errs := make([]error, 2)
	seatSets := [][]string{{"A1", "A2"}, {"A3", "A4"}}

	for i := range seatSets {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = eng.RequestBooking(ctx, showID, uint64(i+1), seatSets[i])
		}(i)
	}
	close(start)
	wg.Wait()

	assert.NoError(t, errs[0])
	assert.NoError(t, errs[1])
}

func TestNoSeatEverDoubleBooked(t *testing.T) {
	// Hammer one show from many goroutines requesting overlapping seat
	// pairs, then check the invariants: booked ≤ total and every seat
	// belongs to at most one live booking.
	eng, _, clock := newTestEngine(t)
	ctx := context.Background()
	showID := createTestShow(t, eng, clock, 1000)

	pairs := [][]string{
		{"A1", "A2"}, {"A2", "A3"}, {"A3", "A4"}, {"A4", "B1"},
		{"B1", "B2"}, {"B2", "A1"}, {"A1", "A3"}, {"A2", "A4"},
	}
	var wg sync.WaitGroup
	var mu sync.Mutex
	var won [][]string

	for round := 0; round < 4; round++ {
		for i, seats := range pairs {
			wg.Add(1)
			go func(userID uint64, seats []string) {
				defer wg.Done()
				if b, err := eng.RequestBooking(ctx, showID, userID, seats); err == nil {
					mu.Lock()
					won = append(won, b.SeatIDs)
					mu.Unlock()
				}
			}(uint64(round*len(pairs)+i+1), seats)
		}
	}
	wg.Wait()

	claimed := make(map[string]bool)
	for _, seats := range won {
		for _, sid := range seats {
			assert.False(t, claimed[sid], "seat %s claimed twice", sid)
			claimed[sid] = true
		}
	}

	total, booked, err := eng.SeatCounts(showID)
	require.NoError(t, err)
	assert.LessOrEqual(t, booked, total)
	assert.Equal(t, len(claimed), booked)
}

func TestCancelReleasesSeats(t *testing.T) {
	eng, _, clock := newTestEngine(t)
	ctx := context.Background()
	showID := createTestShow(t, eng, clock, 1000)

	b, err := eng.RequestBooking(ctx, showID, 42, []string{"A1", "A2"})
	require.NoError(t, err)
	_, err = eng.ConfirmBooking(ctx, b.ID)
	require.NoError(t, err)

	cancelled, err := eng.CancelBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, engine.BookingCancelled, cancelled.Status)

	// The released seats are immediately holdable again.
	b2, err := eng.RequestBooking(ctx, showID, 43, []string{"A1", "A2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "A2"}, b2.SeatIDs)
}

func TestCancelAfterShowtimeRejected(t *testing.T) {
	eng, _, clock := newTestEngine(t)
	ctx := context.Background()
	showID := createTestShow(t, eng, clock, 1000)

	b, err := eng.RequestBooking(ctx, showID, 42, []string{"A1"})
	require.NoError(t, err)
	_, err = eng.ConfirmBooking(ctx, b.ID)
	require.NoError(t, err)

	clock.Advance(3 * time.Hour) // past StartsAt

	_, err = eng.CancelBooking(ctx, b.ID)
	assert.ErrorIs(t, err, engine.ErrShowNotBookable)
}

func TestExpiredHoldCannotBeConfirmed(t *testing.T) {
	eng, store, clock := newTestEngine(t)
	ctx := context.Background()
	showID := createTestShow(t, eng, clock, 1000)

	b, err := eng.RequestBooking(ctx, showID, 42, []string{"A1", "A2"})
	require.NoError(t, err)

	clock.Advance(11 * time.Minute) // past the 10-minute hold TTL

	_, err = eng.ConfirmBooking(ctx, b.ID)
	assert.ErrorIs(t, err, engine.ErrHoldExpired)

	status, ok := store.BookingStatus(b.ID)
	require.True(t, ok)
	assert.Equal(t, engine.BookingExpired, status)

	// The seats are available to a new hold.
	b2, err := eng.RequestBooking(ctx, showID, 43, []string{"A1", "A2"})
	require.NoError(t, err)
	assert.Equal(t, engine.BookingHeld, b2.Status)
}

func TestConfirmJustBeforeExpiryWins(t *testing.T) {
	eng, _, clock := newTestEngine(t)
	ctx := context.Background()
	showID := createTestShow(t, eng, clock, 1000)

	b, err := eng.RequestBooking(ctx, showID, 42, []string{"A1"})
	require.NoError(t, err)

	clock.Advance(10*time.Minute - time.Second)

	confirmed, err := eng.ConfirmBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, engine.BookingConfirmed, confirmed.Status)

	// A sweep after the original deadline must not touch the
	// confirmed booking.
	clock.Advance(time.Hour)
	expired, err := eng.ReclaimExpiredHolds(ctx, clock.Now())
	require.NoError(t, err)
	assert.Empty(t, expired)
}

func TestReclaimExpiredHolds(t *testing.T) {
	eng, _, clock := newTestEngine(t)
	ctx := context.Background()
	showID := createTestShow(t, eng, clock, 1000)

	held, err := eng.RequestBooking(ctx, showID, 42, []string{"A1"})
	require.NoError(t, err)
	confirmed, err := eng.RequestBooking(ctx, showID, 43, []string{"A2"})
	require.NoError(t, err)
	_, err = eng.ConfirmBooking(ctx, confirmed.ID)
	require.NoError(t, err)

	clock.Advance(11 * time.Minute)

	expired, err := eng.ReclaimExpiredHolds(ctx, clock.Now())
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, held.ID, expired[0].ID)
	assert.Equal(t, engine.BookingExpired, expired[0].Status)

	_, booked, err := eng.SeatCounts(showID)
	require.NoError(t, err)
	assert.Equal(t, 1, booked) // only the confirmed booking remains
}

func TestIsBookable(t *testing.T) {
	eng, _, clock := newTestEngine(t)
	ctx := context.Background()

	showID := createTestShow(t, eng, clock, 1000)
	ok, err := eng.IsBookable(showID)
	require.NoError(t, err)
	assert.True(t, ok)

	// Sold out: every seat held.
	_, err = eng.RequestBooking(ctx, showID, 42, []string{"A1", "A2", "A3", "A4", "B1", "B2"})
	require.NoError(t, err)
	ok, err = eng.IsBookable(showID)
	require.NoError(t, err)
	assert.False(t, ok)

	// Cancelled show: not bookable regardless of free seats.
	cancelledID := createTestShow(t, eng, clock, 1000)
	require.NoError(t, eng.CancelShow(ctx, cancelledID))
	ok, err = eng.IsBookable(cancelledID)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = eng.RequestBooking(ctx, cancelledID, 42, []string{"A1"})
	assert.ErrorIs(t, err, engine.ErrShowNotBookable)

	// Past show: not bookable regardless of free seats.
	pastID := createTestShow(t, eng, clock, 1000)
	clock.Advance(3 * time.Hour)
	ok, err = eng.IsBookable(pastID)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = eng.RequestBooking(ctx, pastID, 42, []string{"A1"})
	assert.ErrorIs(t, err, engine.ErrShowNotBookable)
}

func TestListAvailableSeats(t *testing.T) {
	eng, _, clock := newTestEngine(t)
	ctx := context.Background()
	showID := createTestShow(t, eng, clock, 1000)

	_, err := eng.RequestBooking(ctx, showID, 42, []string{"A2", "B1"})
	require.NoError(t, err)

	free, err := eng.ListAvailableSeats(showID)
	require.NoError(t, err)

	ids := make([]string, 0, len(free))
	for _, s := range free {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{"A1", "A3", "A4", "B2"}, ids)
}

func TestRequestBookingErrors(t *testing.T) {
	eng, _, clock := newTestEngine(t)
	ctx := context.Background()
	showID := createTestShow(t, eng, clock, 1000)

	_, err := eng.RequestBooking(ctx, showID, 42, []string{"Z9"})
	assert.ErrorIs(t, err, engine.ErrSeatNotFound)

	_, err = eng.RequestBooking(ctx, showID, 42, nil)
	assert.ErrorIs(t, err, engine.ErrSeatNotFound)

	_, err = eng.RequestBooking(ctx, 999, 42, []string{"A1"})
	assert.ErrorIs(t, err, engine.ErrShowNotFound)

	_, err = eng.ConfirmBooking(ctx, "no-such-booking")
	assert.ErrorIs(t, err, engine.ErrBookingNotFound)
}

func TestRehydrateRestoresLiveHolds(t *testing.T) {
	store := repository.NewMemStore()
	store.AddMovie(1)
	clock := newFakeClock()
	defaults, err := engine.NewPricingRules(map[string]float64{"VIP": 0.5})
	require.NoError(t, err)

	ctx := context.Background()
	eng1 := engine.New(store, defaults, engine.WithClock(clock.Now))
	showID, err := eng1.CreateShow(ctx, 1,
		clock.Now().Add(2*time.Hour), clock.Now().Add(4*time.Hour),
		10000, testSeats(), map[string]float64{"VIP": 1.0})
	require.NoError(t, err)

	held, err := eng1.RequestBooking(ctx, showID, 42, []string{"B1"})
	require.NoError(t, err)
	assert.Equal(t, int64(20000), held.TotalCents) // override: +100 %

	confirmed, err := eng1.RequestBooking(ctx, showID, 43, []string{"A1"})
	require.NoError(t, err)
	_, err = eng1.ConfirmBooking(ctx, confirmed.ID)
	require.NoError(t, err)

	// Simulate a restart: a fresh engine over the same store.
	eng2 := engine.New(store, defaults, engine.WithClock(clock.Now))
	require.NoError(t, eng2.Rehydrate(ctx))

	// Both the hold and the confirmed booking still own their seats.
	_, err = eng2.RequestBooking(ctx, showID, 44, []string{"B1"})
	_, conflict := engine.IsSeatUnavailable(err)
	assert.True(t, conflict)
	_, err = eng2.RequestBooking(ctx, showID, 44, []string{"A1"})
	_, conflict = engine.IsSeatUnavailable(err)
	assert.True(t, conflict)

	// The surviving hold can still be confirmed.
	b, err := eng2.ConfirmBooking(ctx, held.ID)
	require.NoError(t, err)
	assert.Equal(t, engine.BookingConfirmed, b.Status)
}

func TestEvictEndedShows(t *testing.T) {
	eng, _, clock := newTestEngine(t)
	showID := createTestShow(t, eng, clock, 1000)

	assert.Equal(t, 0, eng.EvictEndedShows(clock.Now()))

	clock.Advance(5 * time.Hour) // past EndsAt
	assert.Equal(t, 1, eng.EvictEndedShows(clock.Now()))

	_, err := eng.ListAvailableSeats(showID)
	assert.ErrorIs(t, err, engine.ErrShowNotFound)
}
