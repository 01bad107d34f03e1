package repo_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/fleet-logbook/backend/internal/domain"
	"github.com/pkordes/fleet-logbook/backend/internal/repo"
	"github.com/pkordes/fleet-logbook/backend/testutil"
)

// newTestRepos opens a transaction against the test database and returns
// repos backed by it. The transaction is rolled back when the test finishes.
func newTestRepos(t *testing.T) (repo.TripRepo, repo.StopRepo) {
	t.Helper()
	pool := testutil.NewPool(t)

	tx, err := pool.Begin(context.Background())
	require.NoError(t, err, "begin transaction")

	t.Cleanup(func() {
		_ = tx.Rollback(context.Background())
	})

	return repo.NewTripRepo(tx), repo.NewStopRepo(tx)
}

func TestTripRepo_SaveAndGet(t *testing.T) {
	trips, _ := newTestRepos(t)
	ctx := context.Background()
	input := endedTrip()

	saved, created, err := trips.Save(ctx, input)
	require.NoError(t, err)
	assert.True(t, created)
	assert.False(t, saved.ArchivedAt.IsZero(), "ArchivedAt should be set by DB")

	got, err := trips.GetByID(ctx, input.ID)
	require.NoError(t, err)
	assert.Equal(t, input.DriverName, got.DriverName)
	assert.Equal(t, input.VehicleClass, got.VehicleClass)
	assert.Equal(t, 450, got.DistanceKm())
	require.Len(t, got.Expenses, 1)
	assert.True(t, got.StartedAt.Equal(input.StartedAt))
}

func TestTripRepo_Save_IsIdempotent(t *testing.T) {
	trips, stops := newTestRepos(t)
	ctx := context.Background()
	input := endedTrip()

	first, created, err := trips.Save(ctx, input)
	require.NoError(t, err)
	require.True(t, created)

	input.DriverName = "Changed"
	second, created, err := trips.Save(ctx, input)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "Ana", second.DriverName, "archived trips are immutable")
	assert.True(t, first.ArchivedAt.Equal(second.ArchivedAt))

	got, err := stops.ListByTripID(ctx, input.ID)
	require.NoError(t, err)
	assert.Len(t, got, 2, "stops are not duplicated")
}

func TestTripRepo_GetByID_NotFound_DB(t *testing.T) {
	trips, _ := newTestRepos(t)
	_, err := trips.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTripRepo_ListPagedAndTotals(t *testing.T) {
	trips, _ := newTestRepos(t)
	ctx := context.Background()

	before, err := trips.Totals(ctx)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, _, err := trips.Save(ctx, endedTrip())
		require.NoError(t, err)
	}

	page, total, err := trips.ListPaged(ctx, domain.NewPaginationParams(ptr(1), ptr(2)))
	require.NoError(t, err)
	assert.Len(t, page, 2)
	assert.Equal(t, before.Trips+3, total)

	after, err := trips.Totals(ctx)
	require.NoError(t, err)
	assert.Equal(t, before.Trips+3, after.Trips)
	assert.Equal(t, before.DistanceKm+3*450, after.DistanceKm)
	assert.InDelta(t, before.TotalCost+3*312.5, after.TotalCost, 0.001)
}

func TestTripRepo_Each(t *testing.T) {
	trips, _ := newTestRepos(t)
	ctx := context.Background()
	input := endedTrip()
	_, _, err := trips.Save(ctx, input)
	require.NoError(t, err)

	var seen bool
	err = trips.Each(ctx, func(a domain.ArchivedTrip) error {
		if a.ID == input.ID {
			seen = true
		}
		return nil
	})
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestStopRepo_ListByTripID(t *testing.T) {
	trips, stops := newTestRepos(t)
	ctx := context.Background()
	input := endedTrip()
	_, _, err := trips.Save(ctx, input)
	require.NoError(t, err)

	got, err := stops.ListByTripID(ctx, input.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 0, got[0].Seq)
	assert.Equal(t, "Fuel", got[0].Description)
	assert.Equal(t, input.ID, got[1].TripID)
	assert.True(t, got[1].Timestamp.Equal(input.Stops[1].Timestamp))

	empty, err := stops.ListByTripID(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, empty)
}
