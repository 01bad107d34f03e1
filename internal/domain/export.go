package domain

import "time"

// ExportRow is a single row in the fleet export.
// It is a flat, denormalized view: one row per archived trip with its
// derived totals, suitable for a spreadsheet.
type ExportRow struct {
	TripID       string
	ArchivedAt   time.Time
	StartedAt    time.Time
	DriverName   string
	Plate        string
	VehicleClass string

	DistanceKm  int
	FuelAdded   float64
	FuelCost    float64
	Expenses    float64
	TotalCost   float64
	FailedItems int
	Conditions  int
	Stops       int
}

// NewExportRow flattens an archived trip into an ExportRow.
func NewExportRow(a ArchivedTrip) ExportRow {
	return ExportRow{
		TripID:       a.ID.String(),
		ArchivedAt:   a.ArchivedAt,
		StartedAt:    a.StartedAt,
		DriverName:   a.DriverName,
		Plate:        a.Plate,
		VehicleClass: a.VehicleClass.String(),
		DistanceKm:   a.DistanceKm(),
		FuelAdded:    a.FuelAdded,
		FuelCost:     a.FuelCost,
		Expenses:     a.ExpensesTotal(),
		TotalCost:    a.TotalCost(),
		FailedItems:  len(a.FailedItems()),
		Conditions:   len(a.Conditions),
		Stops:        len(a.Stops),
	}
}
