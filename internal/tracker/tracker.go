// Package tracker turns a stream of geolocation readings into route points.
package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/pkordes/fleet-logbook/backend/internal/domain"
)

// Reading is one result from a watch: either a fix or an error.
type Reading struct {
	Fix domain.LatLng
	Err error
}

// Geolocator is the device position source.
//
// Watch returns a channel that yields readings until ctx is cancelled, after
// which the channel is closed. Once returns a single fix.
type Geolocator interface {
	Watch(ctx context.Context) (<-chan Reading, error)
	Once(ctx context.Context) (domain.LatLng, error)
}

// AppendFix appends fix to route unless it is bit-identical to the last
// point. The bool reports whether the route grew.
func AppendFix(route []domain.LatLng, fix domain.LatLng) ([]domain.LatLng, bool) {
	if n := len(route); n > 0 && sameBits(route[n-1], fix) {
		return route, false
	}
	return append(route, fix), true
}

func sameBits(a, b domain.LatLng) bool {
	return math.Float64bits(a.Lat) == math.Float64bits(b.Lat) &&
		math.Float64bits(a.Lng) == math.Float64bits(b.Lng)
}

// Sink receives readings from the pump goroutine. gen is the value passed to
// Start. A sink that hands work to another goroutine must give up when ctx is
// done, because Stop cancels ctx and then waits for the pump to return.
type Sink func(ctx context.Context, gen uint64, r Reading)

// Tracker runs at most one watch at a time.
type Tracker struct {
	geo    Geolocator
	logger *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Tracker over geo.
func New(geo Geolocator, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{geo: geo, logger: logger}
}

// Start begins a watch and delivers every reading to sink tagged with gen.
// A watch already running is stopped first. A reading carrying an error is
// the last one delivered.
func (t *Tracker) Start(ctx context.Context, gen uint64, sink Sink) error {
	t.Stop()

	t.mu.Lock()
	defer t.mu.Unlock()

	wctx, cancel := context.WithCancel(ctx)
	ch, err := t.geo.Watch(wctx)
	if err != nil {
		cancel()
		return fmt.Errorf("tracker.Tracker.Start: %w", err)
	}
	t.cancel = cancel

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		t.pump(wctx, gen, ch, sink)
	}()
	t.logger.Debug("tracking started", "gen", gen)
	return nil
}

func (t *Tracker) pump(ctx context.Context, gen uint64, ch <-chan Reading, sink Sink) {
	for {
		select {
		case <-ctx.Done():
			return
		case r, ok := <-ch:
			if !ok {
				return
			}
			if ctx.Err() != nil {
				return
			}
			sink(ctx, gen, r)
			if r.Err != nil {
				return
			}
		}
	}
}

// Stop cancels the current watch, if any, and returns once the pump has
// exited. No reading is delivered after Stop returns.
func (t *Tracker) Stop() {
	t.mu.Lock()
	cancel := t.cancel
	t.cancel = nil
	t.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	t.wg.Wait()
	t.logger.Debug("tracking stopped")
}

// Running reports whether a watch is active.
func (t *Tracker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancel != nil
}
