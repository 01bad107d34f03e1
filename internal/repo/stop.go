package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pkordes/fleet-logbook/backend/internal/domain"
)

// StopRepo reads the stops archived with a trip. Stops are written by
// TripRepo.Save in the same transaction as their trip.
type StopRepo interface {
	// ListByTripID returns the stops of a trip in the order they were logged.
	// An unknown trip yields an empty slice.
	ListByTripID(ctx context.Context, tripID uuid.UUID) ([]domain.ArchivedStop, error)
}

type pgStopRepo struct {
	db db
}

// NewStopRepo constructs a StopRepo backed by the provided db connection.
func NewStopRepo(db db) StopRepo {
	return &pgStopRepo{db: db}
}

func (r *pgStopRepo) ListByTripID(ctx context.Context, tripID uuid.UUID) ([]domain.ArchivedStop, error) {
	const q = `
		SELECT id, trip_id, seq, lat, lng, description, stopped_at
		FROM archived_stops
		WHERE trip_id = @trip_id
		ORDER BY seq`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"trip_id": tripID})
	if err != nil {
		return nil, fmt.Errorf("repo.StopRepo.ListByTripID: %w", err)
	}
	defer rows.Close()

	stops := []domain.ArchivedStop{}
	for rows.Next() {
		var s domain.ArchivedStop
		err := rows.Scan(&s.ID, &s.TripID, &s.Seq, &s.Location.Lat, &s.Location.Lng, &s.Description, &s.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("repo.StopRepo.ListByTripID: scan: %w", err)
		}
		stops = append(stops, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.StopRepo.ListByTripID: rows: %w", err)
	}
	return stops, nil
}

// insertStops writes all stops of a trip with one statement.
func insertStops(ctx context.Context, tx pgx.Tx, tripID uuid.UUID, stops []domain.Stop) error {
	if len(stops) == 0 {
		return nil
	}

	const q = `
		INSERT INTO archived_stops (trip_id, seq, lat, lng, description, stopped_at)
		SELECT @trip_id, s.seq, s.lat, s.lng, s.description, s.stopped_at
		FROM unnest(@seqs::int[], @lats::float8[], @lngs::float8[], @descriptions::text[], @stopped_at::timestamptz[])
			AS s(seq, lat, lng, description, stopped_at)`

	var (
		seqs         = make([]int32, len(stops))
		lats         = make([]float64, len(stops))
		lngs         = make([]float64, len(stops))
		descriptions = make([]string, len(stops))
		stoppedAt    = make([]time.Time, len(stops))
	)
	for i, s := range stops {
		seqs[i] = int32(i)
		lats[i] = s.Location.Lat
		lngs[i] = s.Location.Lng
		descriptions[i] = s.Description
		stoppedAt[i] = s.Timestamp
	}

	_, err := tx.Exec(ctx, q, pgx.NamedArgs{
		"trip_id":      tripID,
		"seqs":         seqs,
		"lats":         lats,
		"lngs":         lngs,
		"descriptions": descriptions,
		"stopped_at":   stoppedAt,
	})
	if err != nil {
		return fmt.Errorf("insert stops: %w", err)
	}
	return nil
}
