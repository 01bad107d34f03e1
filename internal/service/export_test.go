package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/fleet-logbook/backend/internal/domain"
	"github.com/pkordes/fleet-logbook/backend/internal/service"
)

func TestFleetService_Export_FlattensEveryTrip(t *testing.T) {
	a, b := endedTrip(), endedTrip()
	b.DriverName = "Bruno"
	b.Expenses = []domain.Expense{{ID: "e1", Category: domain.ExpenseFood, Amount: 40, Timestamp: b.StartedAt}}
	at := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

	svc := service.NewFleetService(&mockTripRepo{
		each: func(_ context.Context, fn func(domain.ArchivedTrip) error) error {
			for _, tr := range []domain.Trip{a, b} {
				if err := fn(domain.ArchivedTrip{Trip: tr, ArchivedAt: at}); err != nil {
					return err
				}
			}
			return nil
		},
	}, nil, nil, nil)

	rows, err := svc.Export(context.Background())

	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, a.ID.String(), rows[0].TripID)
	assert.Equal(t, 320, rows[0].DistanceKm)
	assert.Equal(t, "Bruno", rows[1].DriverName)
	assert.Equal(t, 520.0, rows[1].TotalCost)
	assert.Equal(t, "truck", rows[1].VehicleClass)
}

func TestFleetService_Export_EmptyIsNotNil(t *testing.T) {
	svc := service.NewFleetService(&mockTripRepo{
		each: func(context.Context, func(domain.ArchivedTrip) error) error { return nil },
	}, nil, nil, nil)

	rows, err := svc.Export(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestFleetService_Export_RepoError(t *testing.T) {
	dbErr := errors.New("timeout")
	svc := service.NewFleetService(&mockTripRepo{
		each: func(context.Context, func(domain.ArchivedTrip) error) error { return dbErr },
	}, nil, nil, nil)

	_, err := svc.Export(context.Background())
	assert.ErrorIs(t, err, dbErr)
}
