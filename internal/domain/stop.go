package domain

import (
	"time"

	"github.com/google/uuid"
)

// Stop is a manually logged point-in-time event during a trip.
type Stop struct {
	Location    LatLng    `json:"location"`
	Timestamp   time.Time `json:"timestamp"`
	Description string    `json:"description"`
}

// ArchivedStop is a Stop as stored alongside an archived trip.
type ArchivedStop struct {
	ID     int64     `json:"id"`
	TripID uuid.UUID `json:"trip_id"`
	Seq    int       `json:"seq"`
	Stop
}
