package session_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/fleet-logbook/backend/internal/domain"
	"github.com/pkordes/fleet-logbook/backend/internal/session"
)

func route(h *harness) []domain.LatLng {
	trip, _ := h.s.Snapshot()
	return trip.Route
}

func TestTracking_DedupesConsecutiveFixes(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	require.True(t, h.s.ToggleTracking())
	require.True(t, h.s.Tracking())
	require.Eventually(t, func() bool { return h.feed.Watchers() == 1 }, waitFor, tick)

	for _, f := range []domain.LatLng{{Lat: 1, Lng: 1}, {Lat: 1, Lng: 1}, {Lat: 2, Lng: 2}} {
		require.NoError(t, h.feed.Publish(f))
	}
	require.Eventually(t, func() bool { return len(route(h)) == 2 }, waitFor, tick)
	assert.Equal(t, []domain.LatLng{{Lat: 1, Lng: 1}, {Lat: 2, Lng: 2}}, route(h))

	stored, ok := h.store.stored()
	require.True(t, ok)
	assert.Len(t, stored.Route, 2, "route is persisted")
}

func TestTracking_OffIgnoresFixes(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	require.True(t, h.s.ToggleTracking())
	require.False(t, h.s.ToggleTracking())
	require.Eventually(t, func() bool { return h.feed.Watchers() == 0 }, waitFor, tick)

	require.NoError(t, h.feed.Publish(domain.LatLng{Lat: 3, Lng: 3}))
	assert.Empty(t, route(h))
}

func TestTracking_ErrorRaisesNoticeAndStops(t *testing.T) {
	h := newHarness(t)
	h.start(t)
	require.True(t, h.s.ToggleTracking())
	require.Eventually(t, func() bool { return h.feed.Watchers() == 1 }, waitFor, tick)

	h.feed.Fail(errors.New("permission denied"))

	require.Eventually(t, func() bool { return !h.s.Tracking() }, waitFor, tick)
	notices := h.s.TakeNotices()
	require.Len(t, notices, 1)
	assert.Equal(t, session.NoticeGeolocation, notices[0].Kind)

	// The driver may try again.
	assert.True(t, h.s.ToggleTracking())
}

func TestTracking_StopsOnEndTrip(t *testing.T) {
	h := newHarness(t)
	h.start(t)
	require.True(t, h.s.ToggleTracking())

	_, err := h.s.EndTrip(context.Background())
	require.NoError(t, err)
	assert.False(t, h.s.Tracking())
	require.Eventually(t, func() bool { return h.feed.Watchers() == 0 }, waitFor, tick)
}

func TestAddStop_UsesCurrentFix(t *testing.T) {
	h := newHarness(t)
	h.start(t)
	require.NoError(t, h.feed.Publish(domain.LatLng{Lat: -23.5, Lng: -46.6}))

	h.s.AddStop("")
	h.s.AddStop("Fuel station")

	require.Eventually(t, func() bool {
		trip, _ := h.s.Snapshot()
		return len(trip.Stops) == 2
	}, waitFor, tick)

	trip, _ := h.s.Snapshot()
	descriptions := []string{trip.Stops[0].Description, trip.Stops[1].Description}
	assert.ElementsMatch(t, []string{session.DefaultStopDescription, "Fuel station"}, descriptions)
	assert.Equal(t, -23.5, trip.Stops[0].Location.Lat)
	assert.False(t, h.s.Tracking(), "stops do not depend on tracking")
}

func TestAddStop_NoFixRaisesNotice(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	h.s.AddStop("Lunch")

	require.Eventually(t, func() bool { return len(h.s.TakeNotices()) == 1 }, waitFor, tick)
	trip, _ := h.s.Snapshot()
	assert.Empty(t, trip.Stops)
}
