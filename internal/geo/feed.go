package geo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pkordes/fleet-logbook/backend/internal/domain"
	"github.com/pkordes/fleet-logbook/backend/internal/tracker"
)

// ErrNoFix is returned by Once when no recent fix is available before the
// context ends.
var ErrNoFix = errors.New("geo: no position fix available")

// DefaultMaxAge is how old the last fix may be for Once to reuse it.
const DefaultMaxAge = 30 * time.Second

const watchBuffer = 16

// Feed is a tracker.Geolocator backed by fixes the driver's device pushes to
// the server. Watchers receive every published reading; Once returns the last
// fix if fresh or waits for the next one.
type Feed struct {
	logger *slog.Logger
	maxAge time.Duration
	now    func() time.Time

	mu      sync.Mutex
	watches map[uint64]chan tracker.Reading
	nextID  uint64
	last    domain.LatLng
	lastAt  time.Time
	waiters []chan domain.LatLng
}

var _ tracker.Geolocator = (*Feed)(nil)

// NewFeed creates an empty Feed.
func NewFeed(logger *slog.Logger) *Feed {
	if logger == nil {
		logger = slog.Default()
	}
	return &Feed{
		logger:  logger,
		maxAge:  DefaultMaxAge,
		now:     time.Now,
		watches: make(map[uint64]chan tracker.Reading),
	}
}

// Publish records a fix from the device and fans it out.
func (f *Feed) Publish(fix domain.LatLng) error {
	if !Valid(fix) {
		return fmt.Errorf("geo.Feed.Publish: coordinate out of range: %w", domain.ErrValidation)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.last = fix
	f.lastAt = f.now()
	for _, w := range f.waiters {
		w <- fix
	}
	f.waiters = nil
	f.fanOut(tracker.Reading{Fix: fix})
	return nil
}

// Fail forwards a device-side geolocation error to every watcher.
func (f *Feed) Fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fanOut(tracker.Reading{Err: err})
}

// fanOut must be called with f.mu held.
func (f *Feed) fanOut(r tracker.Reading) {
	for id, ch := range f.watches {
		select {
		case ch <- r:
		default:
			f.logger.Warn("dropping position reading for slow watcher", "watch", id)
		}
	}
}

// Watch implements tracker.Geolocator.
func (f *Feed) Watch(ctx context.Context) (<-chan tracker.Reading, error) {
	ch := make(chan tracker.Reading, watchBuffer)

	f.mu.Lock()
	f.nextID++
	id := f.nextID
	f.watches[id] = ch
	f.mu.Unlock()

	go func() {
		<-ctx.Done()
		f.mu.Lock()
		delete(f.watches, id)
		close(ch)
		f.mu.Unlock()
	}()
	return ch, nil
}

// Once implements tracker.Geolocator.
func (f *Feed) Once(ctx context.Context) (domain.LatLng, error) {
	f.mu.Lock()
	if !f.lastAt.IsZero() && f.now().Sub(f.lastAt) <= f.maxAge {
		fix := f.last
		f.mu.Unlock()
		return fix, nil
	}
	w := make(chan domain.LatLng, 1)
	f.waiters = append(f.waiters, w)
	f.mu.Unlock()

	select {
	case fix := <-w:
		return fix, nil
	case <-ctx.Done():
		f.dropWaiter(w)
		return domain.LatLng{}, fmt.Errorf("geo.Feed.Once: %w: %w", ErrNoFix, ctx.Err())
	}
}

func (f *Feed) dropWaiter(w chan domain.LatLng) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, x := range f.waiters {
		if x == w {
			f.waiters = append(f.waiters[:i], f.waiters[i+1:]...)
			return
		}
	}
}

// Watchers returns the number of open watches.
func (f *Feed) Watchers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.watches)
}
