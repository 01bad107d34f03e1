package domain

import (
	"fmt"
	"strings"
	"time"
)

// AlertKind selects what drives a maintenance alert: distance or calendar.
type AlertKind int

const (
	AlertByDistance AlertKind = iota + 1
	AlertByDate
)

func (k AlertKind) String() string {
	switch k {
	case AlertByDistance:
		return "distance"
	case AlertByDate:
		return "date"
	default:
		return fmt.Sprintf("AlertKind(%d)", int(k))
	}
}

// ParseAlertKind converts "distance" or "date" into an AlertKind.
func ParseAlertKind(s string) (AlertKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "distance", "km":
		return AlertByDistance, nil
	case "date":
		return AlertByDate, nil
	}
	return 0, Invalidf("unknown alert kind %q", s)
}

func (k AlertKind) MarshalText() ([]byte, error) {
	if k != AlertByDistance && k != AlertByDate {
		return nil, Invalidf("invalid alert kind %d", int(k))
	}
	return []byte(k.String()), nil
}

func (k *AlertKind) UnmarshalText(b []byte) error {
	v, err := ParseAlertKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// MaintenanceAlert is a recurring service reminder keyed by distance or by
// calendar interval. Only the fields matching Kind are meaningful.
type MaintenanceAlert struct {
	ID   string    `json:"id"`
	Name string    `json:"name"`
	Kind AlertKind `json:"kind"`

	// AlertByDistance
	IntervalKm    int `json:"interval_km,omitempty"`
	LastServiceKm int `json:"last_service_km,omitempty"`

	// AlertByDate
	IntervalDays    int        `json:"interval_days,omitempty"`
	LastServiceDate *time.Time `json:"last_service_date,omitempty"`
}

func (a MaintenanceAlert) clone() MaintenanceAlert {
	if a.LastServiceDate != nil {
		d := *a.LastServiceDate
		a.LastServiceDate = &d
	}
	return a
}

// DefaultOilChangeID is the stable id of the alert every trip starts with.
const DefaultOilChangeID = "default-oil-change"

// DefaultOilChangeIntervalKm is the service interval of the default alert.
const DefaultOilChangeIntervalKm = 10000

// DefaultOilChange returns the engine oil alert seeded into every new trip,
// counted from the odometer reading at trip start.
func DefaultOilChange(initialOdometer int) MaintenanceAlert {
	return MaintenanceAlert{
		ID:            DefaultOilChangeID,
		Name:          "Engine oil change",
		Kind:          AlertByDistance,
		IntervalKm:    DefaultOilChangeIntervalKm,
		LastServiceKm: initialOdometer,
	}
}
