package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkordes/fleet-logbook/backend/internal/domain"
	"github.com/pkordes/fleet-logbook/backend/internal/geo"
)

// activeTrip returns a clone of the trip and its generation, or
// ErrNoActiveTrip.
func (s *Session) activeTrip(ctx context.Context) (domain.Trip, uint64, error) {
	var (
		trip domain.Trip
		gen  uint64
		err  error
	)
	if derr := s.do(ctx, func() {
		if s.state != StateActive {
			err = ErrNoActiveTrip
			return
		}
		trip = s.trip.Clone()
		gen = s.tripGen
	}); derr != nil {
		return domain.Trip{}, 0, derr
	}
	return trip, gen, err
}

func (s *Session) aiContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.aiTimeout)
}

// Tip asks the advisor for a driving tip based on the trip so far. Advisor
// failures yield FallbackTip.
func (s *Session) Tip(ctx context.Context) (string, error) {
	trip, _, err := s.activeTrip(ctx)
	if err != nil {
		return "", fmt.Errorf("session.Session.Tip: %w", err)
	}
	if s.advisor == nil {
		return FallbackTip, nil
	}
	actx, cancel := s.aiContext(ctx)
	defer cancel()
	tip, err := s.advisor.SuggestTip(actx, trip)
	if err != nil {
		s.logger.Warn("tip generation failed", "error", err)
		return FallbackTip, nil
	}
	return tip, nil
}

// Diagnose asks the advisor about a mechanical problem, passing the vehicle
// class, plate and odometer as context. Advisor failures yield
// FallbackDiagnosis.
func (s *Session) Diagnose(ctx context.Context, description string) (string, error) {
	if strings.TrimSpace(description) == "" {
		return "", fmt.Errorf("session.Session.Diagnose: %w: description is required", domain.ErrValidation)
	}
	trip, _, err := s.activeTrip(ctx)
	if err != nil {
		return "", fmt.Errorf("session.Session.Diagnose: %w", err)
	}
	if s.advisor == nil {
		return FallbackDiagnosis, nil
	}
	vehicle := fmt.Sprintf("%s %s, %d km", trip.VehicleClass, trip.Plate, trip.CurrentOdometer())
	actx, cancel := s.aiContext(ctx)
	defer cancel()
	out, err := s.advisor.Diagnose(actx, description, vehicle)
	if err != nil {
		s.logger.Warn("diagnosis failed", "error", err)
		return FallbackDiagnosis, nil
	}
	return out, nil
}

// AnalyzeDamage classifies a photo of part and records the result as a
// Condition on the active trip.
func (s *Session) AnalyzeDamage(ctx context.Context, part string, image []byte, mimeType, photoRef string) (domain.Condition, error) {
	part = strings.TrimSpace(part)
	if part == "" || len(image) == 0 {
		return domain.Condition{}, fmt.Errorf("session.Session.AnalyzeDamage: %w: part and image are required", domain.ErrValidation)
	}
	_, gen, err := s.activeTrip(ctx)
	if err != nil {
		return domain.Condition{}, fmt.Errorf("session.Session.AnalyzeDamage: %w", err)
	}
	if s.advisor == nil {
		return domain.Condition{}, fmt.Errorf("session.Session.AnalyzeDamage: %w", ErrAnalysisUnavailable)
	}

	actx, cancel := s.aiContext(ctx)
	assessment, aerr := s.advisor.ClassifyDamage(actx, image, mimeType)
	cancel()
	if aerr != nil {
		s.logger.Warn("damage classification failed", "error", aerr)
		return domain.Condition{}, fmt.Errorf("session.Session.AnalyzeDamage: %w", ErrAnalysisUnavailable)
	}
	if !assessment.Code.Valid() {
		assessment.Code = domain.DamageBroken
	}

	var out domain.Condition
	if derr := s.do(ctx, func() {
		if gen != s.tripGen || s.state != StateActive {
			err = ErrNoActiveTrip
			return
		}
		out = domain.Condition{
			ID:          s.newID(),
			Part:        part,
			DamageCode:  assessment.Code,
			Description: assessment.Description,
			PhotoRef:    photoRef,
		}
		s.trip.Conditions = append(s.trip.Conditions, out)
		s.persist()
	}); derr != nil {
		return domain.Condition{}, fmt.Errorf("session.Session.AnalyzeDamage: %w", derr)
	}
	if err != nil {
		return domain.Condition{}, fmt.Errorf("session.Session.AnalyzeDamage: %w", err)
	}
	return out, nil
}

// Report renders the shareable plain-text trip report for the active or
// just-ended trip.
func (s *Session) Report() (string, error) {
	var (
		trip  domain.Trip
		state State
	)
	_ = s.do(context.Background(), func() {
		trip = s.trip.Clone()
		state = s.state
	})
	if state == StateSetup {
		return "", fmt.Errorf("session.Session.Report: %w", ErrNoActiveTrip)
	}
	return RenderReport(trip), nil
}

func orNone(lines []string) string {
	if len(lines) == 0 {
		return "None."
	}
	return strings.Join(lines, "\n")
}

// RenderReport formats trip as the driver's shareable summary.
func RenderReport(trip domain.Trip) string {
	economy := "N/A"
	if e, ok := trip.FuelEconomy(); ok {
		economy = fmt.Sprintf("%.2f", e)
	}
	summary := trip.ChecklistSummary
	if summary == "" {
		summary = "Awaiting checklist completion..."
	}

	var issues, damage, expenses []string
	for _, it := range trip.Checklist {
		if !it.Checked && it.Observation != "" {
			issues = append(issues, fmt.Sprintf("- %s: %s", it.Label, it.Observation))
		}
	}
	for _, c := range trip.Conditions {
		line := fmt.Sprintf("- %s: [%s] %s", c.Part, c.DamageCode, c.DamageCode.Description())
		if c.Description != "" {
			line += ", " + c.Description
		}
		damage = append(damage, line)
	}
	for _, e := range trip.Expenses {
		line := fmt.Sprintf("- %s: %.2f", e.Category, e.Amount)
		if e.Description != "" {
			line += " (" + e.Description + ")"
		}
		expenses = append(expenses, line)
	}
	observations := trip.GeneralObservations
	if observations == "" {
		observations = "None."
	}

	var b strings.Builder
	b.WriteString("*Trip Report*\n\n")
	fmt.Fprintf(&b, "*Driver:* %s\n", trip.DriverName)
	fmt.Fprintf(&b, "*Vehicle:* %s - %s\n", trip.VehicleClass, trip.Plate)
	fmt.Fprintf(&b, "*Started:* %s\n", trip.StartedAt.Format("2006-01-02 15:04"))
	if trip.EndedAt != nil {
		fmt.Fprintf(&b, "*Ended:* %s\n", trip.EndedAt.Format("2006-01-02 15:04"))
	}
	b.WriteString("\n*Trip data:*\n")
	fmt.Fprintf(&b, "- Distance: %d km\n", trip.DistanceKm())
	if len(trip.Route) > 1 {
		fmt.Fprintf(&b, "- GPS route: %.1f km over %d points\n", geo.RouteKm(trip.Route), len(trip.Route))
	}
	fmt.Fprintf(&b, "- Consumption: %s km/l\n", economy)
	fmt.Fprintf(&b, "- Total cost: %.2f\n", trip.TotalCost())
	b.WriteString("\n*Cost breakdown:*\n")
	fmt.Fprintf(&b, "- Fuel: %.2f\n", trip.FuelCost)
	fmt.Fprintf(&b, "- Extras: %.2f\n", trip.ExpensesTotal())
	fmt.Fprintf(&b, "\n*Checklist summary (AI):*\n%s\n", summary)
	fmt.Fprintf(&b, "\n*Checklist issues:*\n%s\n", orNone(issues))
	fmt.Fprintf(&b, "\n*Damage reports:*\n%s\n", orNone(damage))
	fmt.Fprintf(&b, "\n*Expenses:*\n%s\n", orNone(expenses))
	fmt.Fprintf(&b, "\n*General observations:*\n%s\n", observations)
	return b.String()
}
