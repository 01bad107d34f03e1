// Package advisor builds the fleet-assistant prompts and interprets model
// replies. It sits between the session and a text generation backend.
package advisor

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkordes/fleet-logbook/backend/internal/domain"
	"github.com/pkordes/fleet-logbook/backend/internal/gemini"
)

// NoIssuesSummary is returned by SummarizeIssues without calling the model
// when no failed item carries an observation.
const NoIssuesSummary = "All checklist items were inspected and passed. No pending issues."

// Generator is the model backend. *gemini.Client satisfies it.
type Generator interface {
	GenerateText(ctx context.Context, prompt string, images ...gemini.Image) (string, error)
	GenerateJSON(ctx context.Context, prompt string, schema gemini.Schema, out any, images ...gemini.Image) error
}

// Advisor implements the session's AI port.
type Advisor struct {
	gen Generator
}

// New creates an Advisor over gen.
func New(gen Generator) *Advisor {
	return &Advisor{gen: gen}
}

func damageCodeList() string {
	var parts []string
	for _, c := range domain.DamageCodes() {
		parts = append(parts, fmt.Sprintf("%s = %s", c, c.Description()))
	}
	return strings.Join(parts, ", ")
}

// ClassifyDamage asks the model to label the main damage in a photo. A code
// outside the known set is reported as DamageBroken.
func (a *Advisor) ClassifyDamage(ctx context.Context, image []byte, mimeType string) (domain.DamageAssessment, error) {
	prompt := "Analyse the image of a vehicle part. Identify the main type of damage and classify it with one of the following codes: " +
		damageCodeList() + ". Describe the damage concisely."

	codes := make([]string, 0, len(domain.DamageCodes()))
	for _, c := range domain.DamageCodes() {
		codes = append(codes, string(c))
	}
	schema := gemini.Schema{
		Type: "OBJECT",
		Properties: map[string]gemini.Schema{
			"damageCode":  {Type: "STRING", Enum: codes, Description: "One of the codes: " + strings.Join(codes, ", ")},
			"description": {Type: "STRING", Description: "A short description of the visible damage."},
		},
		Required: []string{"damageCode", "description"},
	}

	var out struct {
		DamageCode  string `json:"damageCode"`
		Description string `json:"description"`
	}
	if err := a.gen.GenerateJSON(ctx, prompt, schema, &out, gemini.Image{Data: image, MIMEType: mimeType}); err != nil {
		return domain.DamageAssessment{}, fmt.Errorf("advisor.Advisor.ClassifyDamage: %w", err)
	}

	code, err := domain.ParseDamageCode(out.DamageCode)
	if err != nil {
		code = domain.DamageBroken
	}
	return domain.DamageAssessment{Code: code, Description: strings.TrimSpace(out.Description)}, nil
}

// SummarizeIssues produces a maintenance-manager summary of the failed items
// that have an observation.
func (a *Advisor) SummarizeIssues(ctx context.Context, items []domain.ChecklistItem) (string, error) {
	var lines []string
	for _, it := range items {
		if !it.Checked && it.Observation != "" {
			lines = append(lines, fmt.Sprintf("- %s: %s", it.Label, it.Observation))
		}
	}
	if len(lines) == 0 {
		return NoIssuesSummary, nil
	}

	prompt := "You are a fleet management assistant. Summarise the following problems found during a vehicle checklist clearly and directly.\n" +
		"The summary must be useful to a maintenance manager.\n\n" +
		"Items with problems:\n" + strings.Join(lines, "\n") + "\n\nWrite a concise summary."

	out, err := a.gen.GenerateText(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("advisor.Advisor.SummarizeIssues: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// SuggestTip asks for a short personalised tip based on the trip so far.
func (a *Advisor) SuggestTip(ctx context.Context, trip domain.Trip) (string, error) {
	economy := "N/A"
	if e, ok := trip.FuelEconomy(); ok {
		economy = fmt.Sprintf("%.2f", e)
	}

	var b strings.Builder
	b.WriteString("You are an expert assistant in fleet management, finance and road safety.\n")
	b.WriteString("Based on the partial trip data below, write a useful, personalised tip for the driver.\n")
	b.WriteString("The tip must be short (1 to 2 sentences), friendly and focused on one relevant aspect: safety, fuel economy, spending or maintenance.\n\n")
	b.WriteString("Trip data:\n")
	fmt.Fprintf(&b, "- Vehicle: %s\n", trip.VehicleClass)
	fmt.Fprintf(&b, "- Distance so far: %d km\n", trip.DistanceKm())
	fmt.Fprintf(&b, "- Average consumption: %s km/l\n", economy)
	fmt.Fprintf(&b, "- Checklist items with problems: %d\n", len(trip.FailedItems()))
	fmt.Fprintf(&b, "- Damage reports: %d\n", len(trip.Conditions))
	fmt.Fprintf(&b, "- Number of stops: %d\n", len(trip.Stops))
	fmt.Fprintf(&b, "- Extra expenses (excluding fuel): %.2f\n\n", trip.ExpensesTotal())
	b.WriteString("Write one new tip relevant to this context.")

	out, err := a.gen.GenerateText(ctx, b.String())
	if err != nil {
		return "", fmt.Errorf("advisor.Advisor.SuggestTip: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// Diagnose reasons about a mechanical problem described by the driver.
// vehicleContext is free text such as "truck, 109200 km".
func (a *Advisor) Diagnose(ctx context.Context, description, vehicleContext string) (string, error) {
	prompt := "You are an experienced fleet mechanic. A driver reports the following problem.\n" +
		"Vehicle: " + vehicleContext + "\n" +
		"Problem: " + description + "\n\n" +
		"List the most likely causes in order of probability, what the driver can safely check on the road, " +
		"and whether it is safe to keep driving."

	out, err := a.gen.GenerateText(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("advisor.Advisor.Diagnose: %w", err)
	}
	return strings.TrimSpace(out), nil
}
