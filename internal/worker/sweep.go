// Package worker runs the scheduled maintenance jobs of the booking
// service: reclaiming expired seat holds and evicting inventories of
// finished shows.
package worker

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/cinebook/booking-core/internal/engine"
	"github.com/cinebook/booking-core/internal/queue"
)

// StartSweeper creates a gocron scheduler with two interval jobs: the
// expired-hold sweep and the ended-show eviction. It returns the
// running scheduler so the caller can shut it down on exit. The sweep
// is a safety net on top of the engine's lazy expiry: it frees seats of
// abandoned holds even when nobody touches the show, and publishes a
// holds.reclaimed event whenever it freed anything.
func StartSweeper(eng *engine.Engine, interval time.Duration) (gocron.Scheduler, error) {
	s, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, err
	}

	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() { sweepOnce(eng) }),
	)
	if err != nil {
		return nil, err
	}

	// Eviction can run far less often; an extra hour of idle inventory
	// costs only memory.
	_, err = s.NewJob(
		gocron.DurationJob(10*time.Minute),
		gocron.NewTask(func() {
			if n := eng.EvictEndedShows(time.Now().UTC()); n > 0 {
				log.Printf("sweep: evicted %d finished show inventories", n)
			}
		}),
	)
	if err != nil {
		return nil, err
	}

	s.Start()
	return s, nil
}

// sweepOnce runs a single reclaim pass. Exported through
// engine.ReclaimExpiredHolds so operators can also trigger it manually.
func sweepOnce(eng *engine.Engine) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	now := time.Now().UTC()
	expired, err := eng.ReclaimExpiredHolds(ctx, now)
	if err != nil {
		log.Printf("sweep: reclaim expired holds: %v", err)
	}
	if len(expired) == 0 {
		return
	}

	ids := make([]string, 0, len(expired))
	for _, b := range expired {
		ids = append(ids, b.ID)
	}
	log.Printf("sweep: reclaimed %d expired holds", len(expired))
	_ = queue.PublishHoldsReclaimed(ctx, queue.HoldsReclaimedEvent{
		Expired:    len(expired),
		SweptAt:    now.Format(time.RFC3339),
		BookingIDs: ids,
	})
}
