// Package maintenance converts maintenance alert definitions into due/warning/ok
// states. Everything here is a pure function of its inputs: callers pass the
// current odometer and clock on every call and nothing is cached.
package maintenance

import (
	"fmt"
	"math"
	"time"

	"github.com/pkordes/fleet-logbook/backend/internal/domain"
)

// WarningFraction is the share of the interval, counted back from the due
// point, in which an alert reports DueSoon.
const WarningFraction = 0.15

// State is the computed status of one alert.
type State int

const (
	StateOK State = iota + 1
	StateDueSoon
	StateOverdue
)

func (s State) String() string {
	switch s {
	case StateOK:
		return "ok"
	case StateDueSoon:
		return "due_soon"
	case StateOverdue:
		return "overdue"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Unit is what Remaining is measured in.
type Unit string

const (
	UnitKm   Unit = "km"
	UnitDays Unit = "days"
)

// Result is the outcome of Status for one alert.
type Result struct {
	State State `json:"state"`
	Unit  Unit  `json:"unit"`

	// Remaining is the distance or whole days left until due; zero or
	// negative once overdue.
	Remaining int `json:"remaining"`

	// OverdueBy is -Remaining when overdue, 0 otherwise.
	OverdueBy int `json:"overdue_by"`

	// Threshold is the Remaining value at or below which the alert is DueSoon.
	Threshold float64 `json:"threshold"`

	// Progress is how much of the interval has elapsed, 0..100.
	Progress float64 `json:"progress"`
}

// Describe returns a short human-readable status line.
func (r Result) Describe() string {
	switch r.State {
	case StateOverdue:
		return fmt.Sprintf("Overdue by %d %s", r.OverdueBy, r.Unit)
	case StateDueSoon:
		return fmt.Sprintf("Due in %d %s", r.Remaining, r.Unit)
	default:
		return fmt.Sprintf("Next in %d %s", r.Remaining, r.Unit)
	}
}

// Status computes the state of alert given the current odometer reading and
// clock. Distance alerts ignore now; date alerts ignore currentOdometer.
//
// A zero interval is treated as 1 for both the threshold and the progress
// denominator so the result stays defined.
func Status(alert domain.MaintenanceAlert, currentOdometer int, now time.Time) Result {
	if alert.Kind == domain.AlertByDate {
		return byDate(alert, now)
	}
	return byDistance(alert, currentOdometer)
}

func byDistance(a domain.MaintenanceAlert, current int) Result {
	nextDue := a.LastServiceKm + a.IntervalKm
	return classify(nextDue-current, a.IntervalKm, UnitKm)
}

func byDate(a domain.MaintenanceAlert, now time.Time) Result {
	last := now
	if a.LastServiceDate != nil {
		last = *a.LastServiceDate
	}
	nextDue := last.AddDate(0, 0, a.IntervalDays)
	days := int(math.Ceil(nextDue.Sub(now).Hours() / 24))
	return classify(days, a.IntervalDays, UnitDays)
}

func classify(remaining, interval int, unit Unit) Result {
	r := Result{Unit: unit, Remaining: remaining}

	threshold := 1.0
	denom := 1.0
	if interval != 0 {
		threshold = WarningFraction * float64(interval)
		denom = float64(interval)
	}
	r.Threshold = threshold

	switch {
	case remaining <= 0:
		r.State = StateOverdue
		r.OverdueBy = -remaining
		r.Progress = 100
		return r
	case float64(remaining) <= threshold:
		r.State = StateDueSoon
	default:
		r.State = StateOK
	}
	r.Progress = clamp(100*(1-float64(remaining)/denom), 0, 100)
	return r
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// AlertStatus pairs an alert with its computed Result.
type AlertStatus struct {
	Alert  domain.MaintenanceAlert `json:"alert"`
	Result Result                  `json:"status"`
	Text   string                  `json:"text"`
}

// Evaluate runs Status over every alert in order.
func Evaluate(alerts []domain.MaintenanceAlert, currentOdometer int, now time.Time) []AlertStatus {
	out := make([]AlertStatus, 0, len(alerts))
	for _, a := range alerts {
		r := Status(a, currentOdometer, now)
		out = append(out, AlertStatus{Alert: a, Result: r, Text: r.Describe()})
	}
	return out
}
