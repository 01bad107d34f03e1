// Package repo contains the database access for the fleet archive.
// Each resource has its own file with an interface and a Postgres implementation.
// No business logic lives here, only SQL and type mapping.
package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pkordes/fleet-logbook/backend/internal/domain"
)

// db is the minimal interface satisfied by *pgxpool.Pool, pgx.Tx and
// pgxmock's pool. Integration tests pass a transaction that is rolled back
// after each test; a nested Begin on a pgx.Tx becomes a savepoint.
type db interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TripRepo stores finished trips. Archived trips are immutable.
type TripRepo interface {
	// Save archives trip and its stops under trip.ID. If that id is already
	// archived the stored record is returned with created == false.
	Save(ctx context.Context, trip domain.Trip) (archived domain.ArchivedTrip, created bool, err error)

	// GetByID returns domain.ErrNotFound if no trip with that ID is archived.
	GetByID(ctx context.Context, id uuid.UUID) (domain.ArchivedTrip, error)

	// ListPaged returns one page of trips, newest first, and the total count.
	ListPaged(ctx context.Context, p domain.PaginationParams) ([]domain.ArchivedTrip, int64, error)

	// Totals aggregates distance and cost over every archived trip.
	Totals(ctx context.Context) (domain.FleetTotals, error)

	// Each calls fn for every archived trip, oldest first. Iteration stops at
	// the first error from fn, which is returned.
	Each(ctx context.Context, fn func(domain.ArchivedTrip) error) error
}

type pgTripRepo struct {
	db db
}

// NewTripRepo constructs a TripRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewTripRepo(db db) TripRepo {
	return &pgTripRepo{db: db}
}

const selectArchived = `SELECT snapshot, archived_at FROM archived_trips`

func (r *pgTripRepo) Save(ctx context.Context, trip domain.Trip) (domain.ArchivedTrip, bool, error) {
	if trip.ID == uuid.Nil {
		return domain.ArchivedTrip{}, false, fmt.Errorf("repo.TripRepo.Save: %w: trip has no id", domain.ErrValidation)
	}
	snapshot, err := json.Marshal(trip)
	if err != nil {
		return domain.ArchivedTrip{}, false, fmt.Errorf("repo.TripRepo.Save: encode: %w", err)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return domain.ArchivedTrip{}, false, fmt.Errorf("repo.TripRepo.Save: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const q = `
		INSERT INTO archived_trips
			(id, driver_name, plate, vehicle_class, started_at, ended_at, distance_km, total_cost, snapshot)
		VALUES
			(@id, @driver_name, @plate, @vehicle_class, @started_at, @ended_at, @distance_km, @total_cost, @snapshot)
		ON CONFLICT (id) DO NOTHING
		RETURNING archived_at`

	args := pgx.NamedArgs{
		"id":            trip.ID,
		"driver_name":   trip.DriverName,
		"plate":         trip.Plate,
		"vehicle_class": trip.VehicleClass.String(),
		"started_at":    trip.StartedAt,
		"ended_at":      trip.EndedAt, // nil becomes NULL
		"distance_km":   trip.DistanceKm(),
		"total_cost":    trip.TotalCost(),
		"snapshot":      snapshot,
	}

	var archivedAt time.Time
	err = tx.QueryRow(ctx, q, args).Scan(&archivedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		existing, err := scanArchived(tx.QueryRow(ctx, selectArchived+` WHERE id = @id`, pgx.NamedArgs{"id": trip.ID}))
		if err != nil {
			return domain.ArchivedTrip{}, false, fmt.Errorf("repo.TripRepo.Save: existing: %w", err)
		}
		return existing, false, nil
	}
	if err != nil {
		return domain.ArchivedTrip{}, false, fmt.Errorf("repo.TripRepo.Save: %w", err)
	}

	if err := insertStops(ctx, tx, trip.ID, trip.Stops); err != nil {
		return domain.ArchivedTrip{}, false, fmt.Errorf("repo.TripRepo.Save: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.ArchivedTrip{}, false, fmt.Errorf("repo.TripRepo.Save: commit: %w", err)
	}
	return domain.ArchivedTrip{Trip: trip, ArchivedAt: archivedAt}, true, nil
}

func (r *pgTripRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.ArchivedTrip, error) {
	row := r.db.QueryRow(ctx, selectArchived+` WHERE id = @id`, pgx.NamedArgs{"id": id})
	a, err := scanArchived(row)
	if err != nil {
		return domain.ArchivedTrip{}, fmt.Errorf("repo.TripRepo.GetByID: %w", err)
	}
	return a, nil
}

func (r *pgTripRepo) ListPaged(ctx context.Context, p domain.PaginationParams) ([]domain.ArchivedTrip, int64, error) {
	var total int64
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM archived_trips`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repo.TripRepo.ListPaged: count: %w", err)
	}

	const q = selectArchived + `
		ORDER BY archived_at DESC, id
		LIMIT @limit OFFSET @offset`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"limit": p.Limit, "offset": p.Offset()})
	if err != nil {
		return nil, 0, fmt.Errorf("repo.TripRepo.ListPaged: %w", err)
	}
	defer rows.Close()

	trips := []domain.ArchivedTrip{}
	for rows.Next() {
		a, err := scanArchived(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("repo.TripRepo.ListPaged: scan: %w", err)
		}
		trips = append(trips, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("repo.TripRepo.ListPaged: rows: %w", err)
	}
	return trips, total, nil
}

func (r *pgTripRepo) Totals(ctx context.Context) (domain.FleetTotals, error) {
	const q = `
		SELECT count(*), COALESCE(sum(distance_km), 0), COALESCE(sum(total_cost), 0)
		FROM archived_trips`

	var t domain.FleetTotals
	if err := r.db.QueryRow(ctx, q).Scan(&t.Trips, &t.DistanceKm, &t.TotalCost); err != nil {
		return domain.FleetTotals{}, fmt.Errorf("repo.TripRepo.Totals: %w", err)
	}
	return t, nil
}

func (r *pgTripRepo) Each(ctx context.Context, fn func(domain.ArchivedTrip) error) error {
	rows, err := r.db.Query(ctx, selectArchived+` ORDER BY archived_at, id`)
	if err != nil {
		return fmt.Errorf("repo.TripRepo.Each: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		a, err := scanArchived(rows)
		if err != nil {
			return fmt.Errorf("repo.TripRepo.Each: scan: %w", err)
		}
		if err := fn(a); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("repo.TripRepo.Each: rows: %w", err)
	}
	return nil
}

// scanner is satisfied by both pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanArchived(s scanner) (domain.ArchivedTrip, error) {
	var (
		raw []byte
		a   domain.ArchivedTrip
	)
	if err := s.Scan(&raw, &a.ArchivedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ArchivedTrip{}, domain.ErrNotFound
		}
		return domain.ArchivedTrip{}, err
	}
	if err := json.Unmarshal(raw, &a.Trip); err != nil {
		return domain.ArchivedTrip{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return a, nil
}
