// Package service contains the fleet-side business logic: archiving ended
// trips and reading them back for the fleet manager. Services validate inputs
// and orchestrate repo calls; no SQL lives here.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/pkordes/fleet-logbook/backend/internal/domain"
	"github.com/pkordes/fleet-logbook/backend/internal/repo"
)

// Publisher announces newly archived trips. *stream.Hub implements it.
type Publisher interface {
	PublishArchived(ctx context.Context, trip domain.ArchivedTrip) error
}

// FleetService archives trips handed off by the driver session and serves
// the fleet manager views.
type FleetService struct {
	trips  repo.TripRepo
	stops  repo.StopRepo
	feed   Publisher
	logger *slog.Logger
}

// NewFleetService constructs a FleetService. feed may be nil.
func NewFleetService(trips repo.TripRepo, stops repo.StopRepo, feed Publisher, logger *slog.Logger) *FleetService {
	if logger == nil {
		logger = slog.Default()
	}
	return &FleetService{trips: trips, stops: stops, feed: feed, logger: logger}
}

// Save archives an ended trip and returns its id. Saving the same trip again
// returns the same id without a second record or a second feed event.
func (s *FleetService) Save(ctx context.Context, trip domain.Trip) (uuid.UUID, error) {
	if trip.ID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("service.FleetService.Save: %w: trip has no id", domain.ErrValidation)
	}
	if trip.EndedAt == nil {
		return uuid.Nil, fmt.Errorf("service.FleetService.Save: %w: trip has not ended", domain.ErrValidation)
	}

	archived, created, err := s.trips.Save(ctx, trip)
	if err != nil {
		return uuid.Nil, fmt.Errorf("service.FleetService.Save: %w", err)
	}
	if !created {
		s.logger.InfoContext(ctx, "trip already archived", "trip_id", trip.ID)
		return archived.ID, nil
	}

	s.logger.InfoContext(ctx, "trip archived", "trip_id", archived.ID, "plate", archived.Plate)
	if s.feed != nil {
		if err := s.feed.PublishArchived(ctx, archived); err != nil {
			s.logger.WarnContext(ctx, "publish archived trip", "trip_id", archived.ID, "error", err)
		}
	}
	return archived.ID, nil
}

// GetByID returns a single archived trip.
func (s *FleetService) GetByID(ctx context.Context, id uuid.UUID) (domain.ArchivedTrip, error) {
	a, err := s.trips.GetByID(ctx, id)
	if err != nil {
		return domain.ArchivedTrip{}, fmt.Errorf("service.FleetService.GetByID: %w", err)
	}
	return a, nil
}

// ListPaged returns one page of archived trips, newest first.
func (s *FleetService) ListPaged(ctx context.Context, p domain.PaginationParams) ([]domain.ArchivedTrip, int64, error) {
	trips, total, err := s.trips.ListPaged(ctx, p)
	if err != nil {
		return nil, 0, fmt.Errorf("service.FleetService.ListPaged: %w", err)
	}
	return trips, total, nil
}

// Totals returns the fleet-wide aggregates.
func (s *FleetService) Totals(ctx context.Context) (domain.FleetTotals, error) {
	t, err := s.trips.Totals(ctx)
	if err != nil {
		return domain.FleetTotals{}, fmt.Errorf("service.FleetService.Totals: %w", err)
	}
	return t, nil
}
