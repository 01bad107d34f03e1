// Package domain contains the core data types for the fleet logbook.
// This package has zero external dependencies beyond uuid and is imported by
// every other internal package (session, repo, service, handler).
package domain

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// LatLng is a single geolocation sample in decimal degrees.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// ChecklistItem is one inspection question with pass/fail and optional evidence.
// ID and Label come from the vehicle class template and never change once the
// trip has started.
type ChecklistItem struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Checked     bool   `json:"checked"`
	Observation string `json:"observation,omitempty"`
	PhotoRef    string `json:"photo_ref,omitempty"`
}

// ChecklistItemPatch carries the mutable parts of a ChecklistItem.
// Nil fields are left untouched by Apply.
type ChecklistItemPatch struct {
	Checked     *bool
	Observation *string
	PhotoRef    *string
}

// Apply merges p into item and returns the result.
func (p ChecklistItemPatch) Apply(item ChecklistItem) ChecklistItem {
	if p.Checked != nil {
		item.Checked = *p.Checked
	}
	if p.Observation != nil {
		item.Observation = *p.Observation
	}
	if p.PhotoRef != nil {
		item.PhotoRef = *p.PhotoRef
	}
	return item
}

// Trip is the full record of one driving assignment from setup to end.
// It is the top-level aggregate: checklist, alerts, route, stops, conditions
// and expenses all belong to it and are never shared between trips.
type Trip struct {
	// ID is assigned at start and reused as the archive key, so a retried
	// hand-off never creates a second record.
	ID uuid.UUID `json:"id"`

	DriverName   string       `json:"driver_name"`
	Plate        string       `json:"plate"`
	VehicleClass VehicleClass `json:"vehicle_class"`
	StartedAt    time.Time    `json:"started_at"`
	EndedAt      *time.Time   `json:"ended_at,omitempty"` // nil while the trip is live

	InitialOdometer int     `json:"initial_odometer"`
	FinalOdometer   int     `json:"final_odometer"` // 0 until the driver sets it
	FuelAdded       float64 `json:"fuel_added"`
	FuelCost        float64 `json:"fuel_cost"`

	Checklist         []ChecklistItem    `json:"checklist"`
	ChecklistSummary  string             `json:"checklist_summary,omitempty"`
	MaintenanceAlerts []MaintenanceAlert `json:"maintenance_alerts"`

	Route      []LatLng    `json:"route"`
	Stops      []Stop      `json:"stops"`
	Conditions []Condition `json:"conditions"`
	Expenses   []Expense   `json:"expenses"`

	GeneralObservations string `json:"general_observations,omitempty"`
	Signature           string `json:"signature,omitempty"`
}

// TripPatch carries the free numeric and text fields of a Trip.
// Checklist items and alerts are deliberately absent: they have dedicated
// operations that keep their ids stable.
type TripPatch struct {
	FinalOdometer       *int
	FuelAdded           *float64
	FuelCost            *float64
	GeneralObservations *string
}

// CurrentOdometer returns the odometer reading used for maintenance
// calculations: the final reading once set, the initial one before that.
func (t Trip) CurrentOdometer() int {
	if t.FinalOdometer > 0 {
		return t.FinalOdometer
	}
	return t.InitialOdometer
}

// DistanceKm returns the distance driven so far, or 0 if the final reading
// is missing or lower than the initial one.
func (t Trip) DistanceKm() int {
	if t.FinalOdometer > t.InitialOdometer {
		return t.FinalOdometer - t.InitialOdometer
	}
	return 0
}

// FuelEconomy returns km per litre. ok is false when either the distance or
// the fuel added is zero.
func (t Trip) FuelEconomy() (kmPerLitre float64, ok bool) {
	d := t.DistanceKm()
	if d == 0 || t.FuelAdded <= 0 {
		return 0, false
	}
	return float64(d) / t.FuelAdded, true
}

// ExpensesTotal sums every recorded expense, excluding fuel.
func (t Trip) ExpensesTotal() float64 {
	var sum float64
	for _, e := range t.Expenses {
		sum += e.Amount
	}
	return sum
}

// TotalCost is fuel plus all other expenses.
func (t Trip) TotalCost() float64 {
	return t.FuelCost + t.ExpensesTotal()
}

// FailedItems returns the checklist items that did not pass, in template order.
func (t Trip) FailedItems() []ChecklistItem {
	var out []ChecklistItem
	for _, item := range t.Checklist {
		if !item.Checked {
			out = append(out, item)
		}
	}
	return out
}

// Clone returns a deep copy of t. Every hand-off outside the session goes
// through Clone so later mutations can never leak into a snapshot.
func (t Trip) Clone() Trip {
	c := t
	if t.EndedAt != nil {
		ended := *t.EndedAt
		c.EndedAt = &ended
	}
	c.Checklist = slices.Clone(t.Checklist)
	c.MaintenanceAlerts = slices.Clone(t.MaintenanceAlerts)
	for i, a := range c.MaintenanceAlerts {
		c.MaintenanceAlerts[i] = a.clone()
	}
	c.Route = slices.Clone(t.Route)
	c.Stops = slices.Clone(t.Stops)
	c.Conditions = slices.Clone(t.Conditions)
	c.Expenses = slices.Clone(t.Expenses)
	return c
}
