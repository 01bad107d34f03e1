package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/fleet-logbook/backend/internal/domain"
	"github.com/pkordes/fleet-logbook/backend/internal/service"
)

func TestFleetService_ListStops_OK(t *testing.T) {
	tripID := uuid.New()
	stops := []domain.ArchivedStop{{ID: 1, TripID: tripID}, {ID: 2, TripID: tripID, Seq: 1}}
	svc := service.NewFleetService(
		&mockTripRepo{
			getByID: func(_ context.Context, id uuid.UUID) (domain.ArchivedTrip, error) {
				return domain.ArchivedTrip{Trip: domain.Trip{ID: id}}, nil
			},
		},
		&mockStopRepo{
			listByTripID: func(context.Context, uuid.UUID) ([]domain.ArchivedStop, error) { return stops, nil },
		},
		nil, nil,
	)

	got, err := svc.ListStops(context.Background(), tripID)

	require.NoError(t, err)
	assert.Equal(t, stops, got)
}

func TestFleetService_ListStops_TripNotFound(t *testing.T) {
	svc := service.NewFleetService(
		&mockTripRepo{
			getByID: func(context.Context, uuid.UUID) (domain.ArchivedTrip, error) {
				return domain.ArchivedTrip{}, domain.ErrNotFound
			},
		},
		&mockStopRepo{},
		nil, nil,
	)

	_, err := svc.ListStops(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
