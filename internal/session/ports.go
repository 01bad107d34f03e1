package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/fleet-logbook/backend/internal/domain"
)

var (
	ErrTripActive     = errors.New("session: a trip is already active")
	ErrNoActiveTrip   = errors.New("session: no active trip")
	ErrHandoffPending = errors.New("session: trip archive hand-off pending")
	ErrClosed         = errors.New("session: closed")

	// ErrAnalysisUnavailable is returned by AnalyzeDamage when the advisor
	// could not classify the image.
	ErrAnalysisUnavailable = errors.New("session: damage analysis unavailable")
)

// Fallback texts used when the advisor fails or is not configured.
const (
	FallbackSummary   = "Could not generate the checklist issue summary."
	FallbackTip       = "Could not generate a tip right now. Keep driving safely!"
	FallbackDiagnosis = "Could not run a diagnosis right now. If the vehicle feels unsafe, stop in a safe place and call for assistance."

	DefaultStopDescription = "Quick stop"
)

// Speaker turns prompt text into audio.
type Speaker interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Advisor is the AI assistant. Every error is replaced by a fallback.
type Advisor interface {
	ClassifyDamage(ctx context.Context, image []byte, mimeType string) (domain.DamageAssessment, error)
	SummarizeIssues(ctx context.Context, items []domain.ChecklistItem) (string, error)
	SuggestTip(ctx context.Context, trip domain.Trip) (string, error)
	Diagnose(ctx context.Context, description, vehicleContext string) (string, error)
}

// Archive is the fleet-wide sink that receives finished trips. Save must be
// idempotent on trip.ID.
type Archive interface {
	Save(ctx context.Context, trip domain.Trip) (uuid.UUID, error)
}

// Store is the device-local cache of the live trip. A stored trip with
// EndedAt set is an ended trip whose hand-off has not been confirmed.
type Store interface {
	Load(ctx context.Context) (domain.Trip, bool, error)
	Persist(ctx context.Context, trip domain.Trip) error
	Clear(ctx context.Context) error
}

// NoticeKind names the capability a Notice is about.
type NoticeKind string

const (
	NoticeGeolocation NoticeKind = "geolocation"
	NoticeHandoff     NoticeKind = "handoff"
)

// Notice is a user-facing message about a capability failure. Each is
// returned by TakeNotices exactly once.
type Notice struct {
	Kind    NoticeKind `json:"kind"`
	Message string     `json:"message"`
	At      time.Time  `json:"at"`
}
