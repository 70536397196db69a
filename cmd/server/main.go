/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the competition booking server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env, environment, then flags)
  2. Open the selected store, seeding it when empty
  3. Connect the points cache (Redis when configured, memory otherwise)
  4. Create the engine, start the cache warmer when configured
  5. Create the API handler and router
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS (override the environment):
  -env      .env file to load (default: .env, optional)
  -port     HTTP server port                         PORT
  -backend  json, sqlite or memory                   BOOKING_BACKEND
  -data     Directory of clubs.json and friends      BOOKING_DATA_DIR
  -db       SQLite database path                     BOOKING_DB
  -seed     JSON directory to seed an empty store    BOOKING_SEED_DIR
  -redis    Redis address for the points cache       REDIS_ADDR

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the cache warmer, close the store and the cache
  4. Exit

EXAMPLES:
  # Serve the JSON files in the current directory
  ./server

  # SQLite, seeded from the JSON files on first start
  ./server -backend=sqlite -db=./data/places.db -seed=.

  # Share the points board cache between instances
  ./server -backend=sqlite -redis=localhost:6379

SEE ALSO:
  - config/config.go: Environment variables
  - api/server.go: Router configuration
  - booking/engine.go: Reservation engine
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/places-engine/api"
	"github.com/warp/places-engine/booking"
	bookingstore "github.com/warp/places-engine/booking/store"
	"github.com/warp/places-engine/cache"
	"github.com/warp/places-engine/config"
	"github.com/warp/places-engine/store/jsonfile"
	"github.com/warp/places-engine/store/sqlite"
)

func main() {
	envFile := flag.String("env", ".env", "optional .env file")
	port := flag.Int("port", 0, "HTTP server port")
	backend := flag.String("backend", "", "storage backend: json, sqlite or memory")
	dataDir := flag.String("data", "", "directory holding clubs.json, competitions.json and bookings.json")
	dbPath := flag.String("db", "", "SQLite database path")
	seedDir := flag.String("seed", "", "JSON directory used to seed an empty sqlite or memory store")
	redisAddr := flag.String("redis", "", "Redis address for the points cache")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Flags win over the environment
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			cfg.Port = *port
		case "backend":
			cfg.Backend = *backend
		case "data":
			cfg.DataDir = *dataDir
		case "db":
			cfg.DBPath = *dbPath
		case "seed":
			cfg.SeedDir = *seedDir
		case "redis":
			cfg.RedisAddr = *redisAddr
		}
	})
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx := context.Background()

	// Initialize store
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize %s store: %v", cfg.Backend, err)
	}
	defer closeStore.Close()

	// Points cache
	points, closeCache := openCache(ctx, cfg)
	defer closeCache.Close()

	engine := booking.NewEngine(store, booking.WithPointsCache(points))

	warmer := cache.NewWarmer(engine, cfg.PointsWarmInterval)
	warmer.Start()
	defer warmer.Stop()

	handler := api.NewHandler(engine)
	router := api.NewRouter(handler, api.RouterConfig{
		CORSOrigins: cfg.CORSOrigins,
		Limiter:     api.NewRateLimiter(cfg.PurchaseRate, cfg.PurchaseBurst),
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on http://localhost:%d (%s backend)", cfg.Port, cfg.Backend)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// openStore builds the configured backend. sqlite and memory stores are
// seeded from cfg.SeedDir when they start empty.
func openStore(ctx context.Context, cfg config.Config) (booking.Store, io.Closer, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		s, err := sqlite.New(cfg.DBPath)
		if err != nil {
			return nil, nil, err
		}
		if err := seed(ctx, s, cfg.SeedDir); err != nil {
			s.Close()
			return nil, nil, err
		}
		return s, s, nil

	case config.BackendMemory:
		s := bookingstore.NewMemory(nil, nil)
		if err := seed(ctx, s, cfg.SeedDir); err != nil {
			return nil, nil, err
		}
		return s, nopCloser{}, nil

	default:
		s, err := jsonfile.New(cfg.DataDir)
		if err != nil {
			return nil, nil, err
		}
		return s, nopCloser{}, nil
	}
}

func seed(ctx context.Context, dst booking.Store, dir string) error {
	if dir == "" {
		return nil
	}
	src, err := jsonfile.Open(dir)
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	seeded, err := booking.Seed(ctx, dst, src)
	if err != nil {
		return err
	}
	if seeded {
		log.Printf("[Seed] store seeded from %s", dir)
	}
	return nil
}

// openCache prefers Redis and falls back to process memory when Redis is
// not configured or unreachable.
func openCache(ctx context.Context, cfg config.Config) (booking.PointsCache, io.Closer) {
	if cfg.RedisAddr != "" {
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()

		r, err := cache.Dial(pingCtx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.PointsCacheTTL)
		if err == nil {
			log.Printf("[Cache] points board cached in redis at %s", cfg.RedisAddr)
			return r, r
		}
		log.Printf("[Cache] redis at %s unavailable, using memory: %v", cfg.RedisAddr, err)
	}
	return cache.NewMemory(cfg.PointsCacheTTL), nopCloser{}
}
