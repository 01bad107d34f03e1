package domain

import "strings"

// DamageCode classifies a damage report on a vehicle part.
type DamageCode string

const (
	DamageBroken    DamageCode = "Q"
	DamageScratched DamageCode = "R"
	DamageCracked   DamageCode = "T"
	DamageDented    DamageCode = "A"
	DamageMissing   DamageCode = "F"
)

var damageDescriptions = map[DamageCode]string{
	DamageBroken:    "broken",
	DamageScratched: "scratched",
	DamageCracked:   "cracked",
	DamageDented:    "dented",
	DamageMissing:   "missing",
}

// DamageCodes lists every valid code in a stable order.
func DamageCodes() []DamageCode {
	return []DamageCode{DamageBroken, DamageScratched, DamageCracked, DamageDented, DamageMissing}
}

// Description returns the human-readable meaning of the code.
func (c DamageCode) Description() string {
	return damageDescriptions[c]
}

// Valid reports whether c is one of the declared codes.
func (c DamageCode) Valid() bool {
	_, ok := damageDescriptions[c]
	return ok
}

// ParseDamageCode accepts a single-letter code in either case.
func ParseDamageCode(s string) (DamageCode, error) {
	c := DamageCode(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", Invalidf("unknown damage code %q", s)
	}
	return c, nil
}

// Condition is a damage report for one vehicle part.
type Condition struct {
	ID          string     `json:"id"`
	Part        string     `json:"part"`
	DamageCode  DamageCode `json:"damage_code"`
	Description string     `json:"description,omitempty"`
	PhotoRef    string     `json:"photo_ref,omitempty"`
}

// DamageAssessment is the result of classifying a damage photo.
type DamageAssessment struct {
	Code        DamageCode `json:"damage_code"`
	Description string     `json:"description"`
}
