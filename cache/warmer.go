package cache

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/warp/places-engine/booking"
)

// Warmer keeps the points board cached by reading it on a fixed interval.
// A read after expiry or after a booking refills the cache, so /api/points
// rarely pays for a full load.
//
// USAGE:
//
//	w := cache.NewWarmer(engine, time.Minute)
//	w.Start()
//	defer w.Stop()
type Warmer struct {
	Engine   *booking.Engine
	Interval time.Duration

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewWarmer creates a warmer. An interval <= 0 disables it.
func NewWarmer(engine *booking.Engine, interval time.Duration) *Warmer {
	return &Warmer{
		Engine:   engine,
		Interval: interval,
		stop:     make(chan struct{}),
	}
}

// Start begins warming in the background.
func (w *Warmer) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.Interval <= 0 {
		log.Println("[Warmer] Disabled, not starting")
		return
	}
	if w.ticker != nil {
		return
	}

	w.ticker = time.NewTicker(w.Interval)
	w.stop = make(chan struct{})
	w.wg.Add(1)
	go w.run()

	log.Printf("[Warmer] Started with interval: %v", w.Interval)
}

// Stop stops the warmer and waits for an in-flight refresh.
func (w *Warmer) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.ticker != nil {
		w.ticker.Stop()
		close(w.stop)
		w.wg.Wait()
		w.ticker = nil
		log.Println("[Warmer] Stopped")
	}
}

func (w *Warmer) run() {
	defer w.wg.Done()

	// Warm immediately on start
	w.RunNow()

	for {
		select {
		case <-w.ticker.C:
			w.RunNow()
		case <-w.stop:
			return
		}
	}
}

// RunNow refreshes the board once and returns the number of clubs on it.
func (w *Warmer) RunNow() int {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return len(w.Engine.ListClubPoints(ctx))
}
