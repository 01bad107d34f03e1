package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/pkordes/fleet-logbook/backend/internal/domain"
)

// ListStops returns the stops of an archived trip in logging order.
// Returns domain.ErrNotFound if the trip is not archived.
func (s *FleetService) ListStops(ctx context.Context, tripID uuid.UUID) ([]domain.ArchivedStop, error) {
	if _, err := s.trips.GetByID(ctx, tripID); err != nil {
		return nil, fmt.Errorf("service.FleetService.ListStops: %w", err)
	}
	stops, err := s.stops.ListByTripID(ctx, tripID)
	if err != nil {
		return nil, fmt.Errorf("service.FleetService.ListStops: %w", err)
	}
	return stops, nil
}
