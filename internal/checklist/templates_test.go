package checklist_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/fleet-logbook/backend/internal/checklist"
	"github.com/pkordes/fleet-logbook/backend/internal/domain"
)

func TestDefault_CoversEveryClass(t *testing.T) {
	tpl := checklist.Default()
	for _, c := range domain.VehicleClasses() {
		items := tpl.Items(c)
		require.NotEmpty(t, items, c.String())
		for _, it := range items {
			assert.False(t, it.Checked)
			assert.NotEmpty(t, it.ID)
			assert.NotEmpty(t, it.Label)
		}
	}
}

func TestDefault_TruckTemplate(t *testing.T) {
	items := checklist.Default().Items(domain.VehicleTruck)
	require.Len(t, items, 9)
	assert.Equal(t, "tires", items[0].ID)
	assert.Equal(t, "air_tanks", items[8].ID)
}

func TestItems_ReturnsFreshSlice(t *testing.T) {
	tpl := checklist.Default()
	a := tpl.Items(domain.VehicleCar)
	a[0].Checked = true
	b := tpl.Items(domain.VehicleCar)
	assert.False(t, b[0].Checked)
}

func TestParseTemplates_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"malformed", "car: [\n"},
		{"unknown class", "boat:\n  - {id: a, label: A}\n"},
		{"missing class", "car:\n  - {id: a, label: A}\n"},
		{"blank id", "car:\n  - {id: '', label: A}\nbus: []\ntruck: []\n"},
		{"duplicate id", "car:\n  - {id: a, label: A}\n  - {id: a, label: B}\nbus: []\ntruck: []\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := checklist.ParseTemplates([]byte(tc.yaml))
			assert.Error(t, err)
		})
	}
}

func TestParseTemplates_EmptyClassAllowed(t *testing.T) {
	tpl, err := checklist.ParseTemplates([]byte("car: []\nbus: []\ntruck:\n  - {id: a, label: A}\n"))
	require.NoError(t, err)
	assert.Empty(t, tpl.Items(domain.VehicleCar))
	assert.Len(t, tpl.Items(domain.VehicleTruck), 1)
}
