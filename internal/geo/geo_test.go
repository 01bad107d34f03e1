package geo_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/fleet-logbook/backend/internal/domain"
	"github.com/pkordes/fleet-logbook/backend/internal/geo"
)

func TestHaversineKm(t *testing.T) {
	// São Paulo to Rio de Janeiro is roughly 360 km in a straight line.
	d := geo.HaversineKm(-23.5505, -46.6333, -22.9068, -43.1729)
	assert.InDelta(t, 360, d, 15)
	assert.Equal(t, 0.0, geo.HaversineKm(1, 1, 1, 1))
}

func TestRouteKm(t *testing.T) {
	assert.Equal(t, 0.0, geo.RouteKm(nil))
	assert.Equal(t, 0.0, geo.RouteKm([]domain.LatLng{{Lat: 1, Lng: 1}}))

	// One degree of latitude is about 111 km.
	got := geo.RouteKm([]domain.LatLng{{Lat: 0, Lng: 0}, {Lat: 1, Lng: 0}, {Lat: 2, Lng: 0}})
	assert.InDelta(t, 222.4, got, 1)
}

func TestValid(t *testing.T) {
	assert.True(t, geo.Valid(domain.LatLng{Lat: -90, Lng: 180}))
	assert.False(t, geo.Valid(domain.LatLng{Lat: 91, Lng: 0}))
	assert.False(t, geo.Valid(domain.LatLng{Lat: 0, Lng: -181}))
	assert.False(t, geo.Valid(domain.LatLng{Lat: math.NaN(), Lng: 0}))
}

func TestFeed_WatchReceivesPublished(t *testing.T) {
	f := geo.NewFeed(nil)
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := f.Watch(ctx)
	require.NoError(t, err)
	require.NoError(t, f.Publish(domain.LatLng{Lat: 1, Lng: 2}))
	f.Fail(errors.New("gps lost"))

	r := <-ch
	assert.Equal(t, domain.LatLng{Lat: 1, Lng: 2}, r.Fix)
	r = <-ch
	assert.EqualError(t, r.Err, "gps lost")

	cancel()
	require.Eventually(t, func() bool { return f.Watchers() == 0 }, time.Second, 5*time.Millisecond)
	_, open := <-ch
	assert.False(t, open)
}

func TestFeed_PublishRejectsInvalid(t *testing.T) {
	err := geo.NewFeed(nil).Publish(domain.LatLng{Lat: 200})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestFeed_OnceUsesFreshFix(t *testing.T) {
	f := geo.NewFeed(nil)
	require.NoError(t, f.Publish(domain.LatLng{Lat: 3, Lng: 4}))

	fix, err := f.Once(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3.0, fix.Lat)
}

func TestFeed_OnceWaitsForNextFix(t *testing.T) {
	f := geo.NewFeed(nil)
	go func() {
		time.Sleep(10 * time.Millisecond)
		_ = f.Publish(domain.LatLng{Lat: 5, Lng: 6})
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	fix, err := f.Once(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6.0, fix.Lng)
}

func TestFeed_OnceTimesOut(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := geo.NewFeed(nil).Once(ctx)
	assert.ErrorIs(t, err, geo.ErrNoFix)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
