package domain_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/fleet-logbook/backend/internal/domain"
)

func tripFixture() domain.Trip {
	last := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	return domain.Trip{
		DriverName:      "Ana",
		Plate:           "ABC1D23",
		VehicleClass:    domain.VehicleTruck,
		StartedAt:       time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC),
		InitialOdometer: 100000,
		Checklist: []domain.ChecklistItem{
			{ID: "tires", Label: "Tyres", Checked: true},
			{ID: "lights", Label: "Lights"},
		},
		MaintenanceAlerts: []domain.MaintenanceAlert{
			domain.DefaultOilChange(100000),
			{ID: "inspection", Name: "Annual inspection", Kind: domain.AlertByDate, IntervalDays: 365, LastServiceDate: &last},
		},
		Route:    []domain.LatLng{{Lat: 1, Lng: 1}},
		Expenses: []domain.Expense{{ID: "e1", Category: domain.ExpenseToll, Amount: 12.5}},
	}
}

func TestTrip_CurrentOdometer(t *testing.T) {
	trip := tripFixture()
	assert.Equal(t, 100000, trip.CurrentOdometer(), "initial reading before final is set")

	trip.FinalOdometer = 100420
	assert.Equal(t, 100420, trip.CurrentOdometer())
}

func TestTrip_DistanceAndEconomy(t *testing.T) {
	trip := tripFixture()

	_, ok := trip.FuelEconomy()
	assert.False(t, ok, "no distance yet")
	assert.Equal(t, 0, trip.DistanceKm())

	trip.FinalOdometer = 100300
	trip.FuelAdded = 100
	econ, ok := trip.FuelEconomy()
	require.True(t, ok)
	assert.InDelta(t, 3.0, econ, 1e-9)

	trip.FinalOdometer = 99000 // lower than initial: treated as unknown
	assert.Equal(t, 0, trip.DistanceKm())
}

func TestTrip_TotalCost(t *testing.T) {
	trip := tripFixture()
	trip.FuelCost = 200
	trip.Expenses = append(trip.Expenses, domain.Expense{ID: "e2", Category: domain.ExpenseFood, Amount: 30})

	assert.InDelta(t, 42.5, trip.ExpensesTotal(), 1e-9)
	assert.InDelta(t, 242.5, trip.TotalCost(), 1e-9)
}

func TestTrip_FailedItems(t *testing.T) {
	failed := tripFixture().FailedItems()
	require.Len(t, failed, 1)
	assert.Equal(t, "lights", failed[0].ID)
}

// TestTrip_Clone verifies that mutating the original after Clone does not
// affect the copy, including nested slices and pointer fields.
func TestTrip_Clone(t *testing.T) {
	orig := tripFixture()
	c := orig.Clone()

	orig.Checklist[0].Checked = false
	orig.Route[0].Lat = 99
	orig.Expenses[0].Amount = 0
	*orig.MaintenanceAlerts[1].LastServiceDate = time.Time{}
	orig.Route = append(orig.Route, domain.LatLng{Lat: 2, Lng: 2})

	assert.True(t, c.Checklist[0].Checked)
	assert.Equal(t, 1.0, c.Route[0].Lat)
	assert.Len(t, c.Route, 1)
	assert.Equal(t, 12.5, c.Expenses[0].Amount)
	assert.False(t, c.MaintenanceAlerts[1].LastServiceDate.IsZero())
}

func TestChecklistItemPatch_Apply(t *testing.T) {
	item := domain.ChecklistItem{ID: "oil", Label: "Oil level", Checked: true, Observation: "ok"}
	no := false
	photo := "img-1"

	got := domain.ChecklistItemPatch{Checked: &no, PhotoRef: &photo}.Apply(item)

	assert.False(t, got.Checked)
	assert.Equal(t, "ok", got.Observation, "nil fields are untouched")
	assert.Equal(t, "img-1", got.PhotoRef)
	assert.Equal(t, "oil", got.ID)
}

func TestTrip_JSONEnums(t *testing.T) {
	b, err := json.Marshal(tripFixture())
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(b, &raw))
	assert.Equal(t, "truck", raw["vehicle_class"])

	var back domain.Trip
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, domain.VehicleTruck, back.VehicleClass)
	assert.Equal(t, domain.AlertByDate, back.MaintenanceAlerts[1].Kind)
	assert.Equal(t, domain.ExpenseToll, back.Expenses[0].Category)
}
