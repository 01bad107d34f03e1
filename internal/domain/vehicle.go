package domain

import (
	"fmt"
	"strings"
)

// VehicleClass selects the inspection checklist template for a trip.
type VehicleClass int

const (
	VehicleCar VehicleClass = iota + 1
	VehicleBus
	VehicleTruck
)

var vehicleClassNames = map[VehicleClass]string{
	VehicleCar:   "car",
	VehicleBus:   "bus",
	VehicleTruck: "truck",
}

// VehicleClasses lists every valid class in display order.
func VehicleClasses() []VehicleClass {
	return []VehicleClass{VehicleCar, VehicleBus, VehicleTruck}
}

func (c VehicleClass) String() string {
	if s, ok := vehicleClassNames[c]; ok {
		return s
	}
	return fmt.Sprintf("VehicleClass(%d)", int(c))
}

// Valid reports whether c is one of the declared classes.
func (c VehicleClass) Valid() bool {
	_, ok := vehicleClassNames[c]
	return ok
}

// ParseVehicleClass converts a case-insensitive class name into a VehicleClass.
func ParseVehicleClass(s string) (VehicleClass, error) {
	want := strings.ToLower(strings.TrimSpace(s))
	for c, name := range vehicleClassNames {
		if name == want {
			return c, nil
		}
	}
	return 0, Invalidf("unknown vehicle class %q", s)
}

func (c VehicleClass) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, Invalidf("invalid vehicle class %d", int(c))
	}
	return []byte(c.String()), nil
}

func (c *VehicleClass) UnmarshalText(b []byte) error {
	v, err := ParseVehicleClass(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}
