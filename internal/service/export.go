package service

import (
	"context"
	"fmt"

	"github.com/pkordes/fleet-logbook/backend/internal/domain"
)

// Export returns one flat row per archived trip, oldest first.
func (s *FleetService) Export(ctx context.Context) ([]domain.ExportRow, error) {
	rows := []domain.ExportRow{}
	err := s.trips.Each(ctx, func(a domain.ArchivedTrip) error {
		rows = append(rows, domain.NewExportRow(a))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("service.FleetService.Export: %w", err)
	}
	return rows, nil
}
