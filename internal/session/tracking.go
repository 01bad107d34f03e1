package session

import (
	"context"
	"strings"

	"github.com/pkordes/fleet-logbook/backend/internal/domain"
	"github.com/pkordes/fleet-logbook/backend/internal/tracker"
)

// ToggleTracking flips route tracking and returns the new value. If the
// position source cannot be watched a Notice is queued and tracking stays off.
func (s *Session) ToggleTracking() bool {
	var on bool
	_ = s.do(context.Background(), func() {
		if s.state != StateActive {
			return
		}
		s.trackGen++
		if s.tracking {
			s.stopTracking()
			return
		}
		gen := s.trackGen
		if err := s.tracker.Start(s.ctx, gen, s.sink); err != nil {
			s.logger.Warn("could not start route tracking", "error", err)
			s.notify(NoticeGeolocation, "Location is unavailable, route tracking was turned off.")
			return
		}
		s.tracking = true
		on = true
	})
	return on
}

// Tracking reports whether route tracking is on.
func (s *Session) Tracking() bool {
	var on bool
	_ = s.do(context.Background(), func() { on = s.tracking })
	return on
}

// stopTracking must run on the loop.
func (s *Session) stopTracking() {
	s.tracking = false
	s.tracker.Stop()
}

// sink runs on the tracker's pump goroutine. It gives up when the watch is
// cancelled so Stop never waits on the loop.
func (s *Session) sink(ctx context.Context, gen uint64, r tracker.Reading) {
	select {
	case s.ops <- func() { s.onReading(gen, r) }:
	case <-ctx.Done():
	case <-s.quit:
	}
}

func (s *Session) onReading(gen uint64, r tracker.Reading) {
	if gen != s.trackGen || !s.tracking || s.state != StateActive {
		return
	}
	if r.Err != nil {
		s.logger.Warn("position watch failed", "error", r.Err)
		s.notify(NoticeGeolocation, "Location is unavailable, route tracking was turned off.")
		s.trackGen++
		s.stopTracking()
		return
	}
	route, grew := tracker.AppendFix(s.trip.Route, r.Fix)
	if !grew {
		return
	}
	s.trip.Route = route
	s.persist()
}

// AddStop samples the current position and appends a stop with description,
// or DefaultStopDescription when blank. Sampling is asynchronous; if no fix
// arrives within the fix timeout a Notice is queued instead.
func (s *Session) AddStop(description string) {
	description = strings.TrimSpace(description)
	if description == "" {
		description = DefaultStopDescription
	}
	_ = s.do(context.Background(), func() {
		if s.state != StateActive {
			return
		}
		gen := s.tripGen
		s.goAsync(func() {
			ctx, cancel := context.WithTimeout(s.ctx, s.fixTimeout)
			defer cancel()
			fix, err := s.geo.Once(ctx)
			s.post(func() {
				if gen != s.tripGen || s.state != StateActive {
					return
				}
				if err != nil {
					s.logger.Warn("could not sample position for stop", "error", err)
					s.notify(NoticeGeolocation, "Could not get the current location, the stop was not recorded.")
					return
				}
				s.trip.Stops = append(s.trip.Stops, domain.Stop{
					Location:    fix,
					Timestamp:   s.now(),
					Description: description,
				})
				s.persist()
			})
		})
	})
}
