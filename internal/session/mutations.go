package session

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/pkordes/fleet-logbook/backend/internal/domain"
	"github.com/pkordes/fleet-logbook/backend/internal/maintenance"
)

// mutate runs fn on the loop only while Active and persists afterwards when
// fn reports a change.
func (s *Session) mutate(fn func() bool) {
	_ = s.do(context.Background(), func() {
		if s.state != StateActive {
			return
		}
		if fn() {
			s.persist()
		}
	})
}

func usable(f float64) bool {
	return f >= 0 && !math.IsNaN(f) && !math.IsInf(f, 0)
}

// UpdateTrip merges the numeric and text fields of patch. Negative or
// non-finite numbers leave the field unchanged.
func (s *Session) UpdateTrip(patch domain.TripPatch) {
	s.mutate(func() bool {
		if patch.FinalOdometer != nil && *patch.FinalOdometer >= 0 {
			s.trip.FinalOdometer = *patch.FinalOdometer
		}
		if patch.FuelAdded != nil && usable(*patch.FuelAdded) {
			s.trip.FuelAdded = *patch.FuelAdded
		}
		if patch.FuelCost != nil && usable(*patch.FuelCost) {
			s.trip.FuelCost = *patch.FuelCost
		}
		if patch.GeneralObservations != nil {
			s.trip.GeneralObservations = *patch.GeneralObservations
		}
		return true
	})
}

// UpdateChecklistItem merges patch into the item with id. Unknown ids are
// ignored.
func (s *Session) UpdateChecklistItem(id string, patch domain.ChecklistItemPatch) {
	s.mutate(func() bool { return s.applyItemPatch(id, patch) })
}

func (s *Session) applyItemPatch(id string, patch domain.ChecklistItemPatch) bool {
	for i := range s.trip.Checklist {
		if s.trip.Checklist[i].ID == id {
			s.trip.Checklist[i] = patch.Apply(s.trip.Checklist[i])
			return true
		}
	}
	return false
}

// AddAlert appends def with a fresh id and returns that id, or "" when the
// definition is malformed or no trip is active.
func (s *Session) AddAlert(def domain.MaintenanceAlert) string {
	var id string
	s.mutate(func() bool {
		if strings.TrimSpace(def.Name) == "" || def.IntervalKm < 0 || def.IntervalDays < 0 || def.LastServiceKm < 0 {
			return false
		}
		switch def.Kind {
		case domain.AlertByDistance:
			def.IntervalDays, def.LastServiceDate = 0, nil
		case domain.AlertByDate:
			def.IntervalKm, def.LastServiceKm = 0, 0
		default:
			return false
		}
		def.ID = s.newID()
		def.Name = strings.TrimSpace(def.Name)
		if def.LastServiceDate != nil {
			d := *def.LastServiceDate
			def.LastServiceDate = &d
		}
		s.trip.MaintenanceAlerts = append(s.trip.MaintenanceAlerts, def)
		id = def.ID
		return true
	})
	return id
}

// MarkAlertServiced resets the alert's baseline to the current odometer or
// the current date, depending on its kind.
func (s *Session) MarkAlertServiced(id string) {
	s.mutate(func() bool {
		for i := range s.trip.MaintenanceAlerts {
			a := &s.trip.MaintenanceAlerts[i]
			if a.ID != id {
				continue
			}
			switch a.Kind {
			case domain.AlertByDistance:
				a.LastServiceKm = s.trip.CurrentOdometer()
			case domain.AlertByDate:
				now := s.now()
				a.LastServiceDate = &now
			}
			return true
		}
		return false
	})
}

// Alerts evaluates every alert of the current trip against its current
// odometer and now.
func (s *Session) Alerts(now time.Time) []maintenance.AlertStatus {
	var out []maintenance.AlertStatus
	_ = s.do(context.Background(), func() {
		if s.state == StateSetup {
			return
		}
		out = maintenance.Evaluate(s.trip.MaintenanceAlerts, s.trip.CurrentOdometer(), now)
	})
	return out
}

// AddExpense records e with a fresh id and returns it, or "" when e is
// malformed or no trip is active. A zero Timestamp is set to now.
func (s *Session) AddExpense(e domain.Expense) string {
	var id string
	s.mutate(func() bool {
		if !usable(e.Amount) {
			return false
		}
		if _, err := e.Category.MarshalText(); err != nil {
			return false
		}
		e.ID = s.newID()
		if e.Timestamp.IsZero() {
			e.Timestamp = s.now()
		}
		s.trip.Expenses = append(s.trip.Expenses, e)
		id = e.ID
		return true
	})
	return id
}

// AddCondition records a damage report and returns its id, or "" when the
// part is blank or the code unknown.
func (s *Session) AddCondition(c domain.Condition) string {
	var id string
	s.mutate(func() bool {
		if strings.TrimSpace(c.Part) == "" || !c.DamageCode.Valid() {
			return false
		}
		c.ID = s.newID()
		c.Part = strings.TrimSpace(c.Part)
		s.trip.Conditions = append(s.trip.Conditions, c)
		id = c.ID
		return true
	})
	return id
}

// SetSignature stores the driver's signature reference.
func (s *Session) SetSignature(signature string) {
	s.mutate(func() bool {
		s.trip.Signature = signature
		return true
	})
}
