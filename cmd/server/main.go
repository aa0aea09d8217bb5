package main // Entry point package

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/cinebook/booking-core/internal/config"
	"github.com/cinebook/booking-core/internal/database"
	"github.com/cinebook/booking-core/internal/engine"
	"github.com/cinebook/booking-core/internal/handler"
	"github.com/cinebook/booking-core/internal/middleware"
	"github.com/cinebook/booking-core/internal/queue"
	"github.com/cinebook/booking-core/internal/repository"
	"github.com/cinebook/booking-core/internal/router"
	"github.com/cinebook/booking-core/internal/worker"
)

func main() {
	// Load .env when present; real deployments set the environment.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	store := repository.NewMySQLStore(db)

	// Cinema-wide default premiums come from the pricing_rules rows
	// without a show id; negative values are rejected here, before any
	// price is ever computed.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	globals, err := store.LoadGlobalPremiums(ctx)
	cancel()
	if err != nil {
		log.Fatalf("pricing rules: %v", err)
	}
	defaults, err := engine.PricingRulesFromBasisPoints(globals)
	if err != nil {
		log.Fatalf("pricing rules: %v", err)
	}

	eng := engine.New(store, defaults, engine.WithHoldTTL(cfg.HoldTTL))

	// Rebuild inventories so holds from before a restart keep their
	// seats until expiry.
	ctx, cancel = context.WithTimeout(context.Background(), 30*time.Second)
	err = eng.Rehydrate(ctx)
	cancel()
	if err != nil {
		log.Fatalf("rehydrate: %v", err)
	}

	sched, err := worker.StartSweeper(eng, cfg.SweepInterval)
	if err != nil {
		log.Fatalf("sweeper: %v", err)
	}
	defer func() { _ = sched.Shutdown() }()

	// The consumer tails booking.confirmed into logs/booking.log and
	// reconnects forever; run it in the background.
	go func() {
		if err := queue.StartBookingConsumer(); err != nil {
			log.Printf("booking consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	e.HideBanner = true

	rdb := config.NewRedisClient() // nil disables limiter and cache
	if rdb == nil {
		log.Println("redis unavailable; rate limiting and read cache disabled")
	}
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	readCache := middleware.NewReadCache(config.LoadCacheConfig(), rdb)

	router.RegisterRoutes(e)
	router.RegisterCatalog(e, handler.NewMovieHandler(repository.NewMovieRepo(db)))
	router.RegisterBooking(e,
		handler.NewShowHandler(eng),
		handler.NewBookingHandler(eng, repository.NewBookingRepo(db)),
		readCache,
	)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s, hold_ttl=%s)", addr, cfg.Env, cfg.HoldTTL)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
