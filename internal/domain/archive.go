package domain

import "time"

// ArchivedTrip is a finished Trip as stored for the fleet manager.
// The embedded Trip is an immutable snapshot taken at hand-off; its ID is
// the archive key.
type ArchivedTrip struct {
	Trip
	ArchivedAt time.Time `json:"archived_at"`
}

// FleetTotals aggregates every archived trip.
type FleetTotals struct {
	Trips      int64   `json:"trips"`
	DistanceKm int64   `json:"distance_km"`
	TotalCost  float64 `json:"total_cost"`
}
