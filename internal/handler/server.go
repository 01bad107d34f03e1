// Package handler implements the HTTP surface of the fleet logbook API.
// The driver app talks to /session; the fleet dashboard reads /trips.
// Handlers are methods on Server, split into files per area.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/pkordes/fleet-logbook/backend/internal/domain"
	"github.com/pkordes/fleet-logbook/backend/internal/maintenance"
	"github.com/pkordes/fleet-logbook/backend/internal/session"
)

// Driver is the live trip session the driver app controls.
// *session.Session implements it.
type Driver interface {
	Start(ctx context.Context, in session.StartInput) (domain.Trip, error)
	EndTrip(ctx context.Context) (uuid.UUID, error)
	Snapshot() (domain.Trip, session.State)
	Tracking() bool
	HandoffPending() bool
	TakeNotices() []session.Notice

	UpdateTrip(patch domain.TripPatch)
	UpdateChecklistItem(id string, patch domain.ChecklistItemPatch)
	AddAlert(def domain.MaintenanceAlert) string
	MarkAlertServiced(id string)
	Alerts(now time.Time) []maintenance.AlertStatus
	AddExpense(e domain.Expense) string
	AddCondition(c domain.Condition) string
	SetSignature(signature string)

	StartChecklist(ctx context.Context) error
	AnswerChecklist(ctx context.Context, ok bool) error
	SubmitChecklistDetail(ctx context.Context, observation, photoRef string) error
	SkipChecklistDetail(ctx context.Context) error
	ChecklistView() (session.DialogueView, bool)
	PromptAudio(id uint64) ([]byte, bool)

	ToggleTracking() bool
	AddStop(description string)

	Tip(ctx context.Context) (string, error)
	Diagnose(ctx context.Context, description string) (string, error)
	AnalyzeDamage(ctx context.Context, part string, image []byte, mimeType, photoRef string) (domain.Condition, error)
	Report() (string, error)
}

// FleetServicer is the archive read side used by the fleet dashboard.
type FleetServicer interface {
	GetByID(ctx context.Context, id uuid.UUID) (domain.ArchivedTrip, error)
	ListPaged(ctx context.Context, p domain.PaginationParams) ([]domain.ArchivedTrip, int64, error)
	Totals(ctx context.Context) (domain.FleetTotals, error)
	ListStops(ctx context.Context, tripID uuid.UUID) ([]domain.ArchivedStop, error)
	Export(ctx context.Context) ([]domain.ExportRow, error)
}

// FixSink receives location fixes pushed by the driver device.
// *geo.Feed implements it.
type FixSink interface {
	Publish(fix domain.LatLng) error
	Fail(err error)
}

// Deps are the collaborators of a Server. Feed serves GET /trips/feed and
// may be nil, in which case the route answers 404.
type Deps struct {
	Driver  Driver
	Fleet   FleetServicer
	Fixes   FixSink
	Feed    http.Handler
	OpenAPI []byte
	Logger  *slog.Logger
	Now     func() time.Time
}

// Server holds the dependencies shared by all handlers.
type Server struct {
	driver   Driver
	fleet    FleetServicer
	fixes    FixSink
	feed     http.Handler
	openAPI  []byte
	logger   *slog.Logger
	now      func() time.Time
	validate *validator.Validate
}

// NewServer constructs the Server with all its dependencies.
func NewServer(d Deps) *Server {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonFieldName)
	return &Server{
		driver:   d.Driver,
		fleet:    d.Fleet,
		fixes:    d.Fixes,
		feed:     d.Feed,
		openAPI:  d.OpenAPI,
		logger:   d.Logger,
		now:      d.Now,
		validate: v,
	}
}

// jsonFieldName makes validator report fields by their JSON names.
func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	return name
}

// Routes returns the API router. Middleware is applied by the caller.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.GetHealth)
	r.Get("/openapi.yaml", s.GetOpenAPI)

	r.Route("/session", func(r chi.Router) {
		r.Post("/", s.StartTrip)
		r.Get("/", s.GetSession)
		r.Patch("/trip", s.PatchTrip)
		r.Post("/end", s.EndTrip)
		r.Get("/report", s.GetReport)
		r.Put("/signature", s.PutSignature)

		r.Patch("/checklist/{itemID}", s.PatchChecklistItem)
		r.Route("/checklist/dialogue", func(r chi.Router) {
			r.Post("/", s.StartDialogue)
			r.Get("/", s.GetDialogue)
			r.Post("/answer", s.AnswerDialogue)
			r.Post("/detail", s.SubmitDialogueDetail)
			r.Post("/skip", s.SkipDialogueDetail)
			r.Get("/audio/{promptID}", s.GetPromptAudio)
		})

		r.Get("/alerts", s.ListAlerts)
		r.Post("/alerts", s.CreateAlert)
		r.Post("/alerts/{alertID}/serviced", s.MarkAlertServiced)

		r.Post("/expenses", s.CreateExpense)
		r.Post("/conditions", s.CreateCondition)
		r.Post("/conditions/analyze", s.AnalyzeCondition)

		r.Post("/stops", s.CreateStop)
		r.Post("/tracking", s.ToggleTracking)
		r.Post("/position", s.PostPosition)
		r.Get("/position/ws", s.PositionStream)

		r.Post("/tip", s.GetTip)
		r.Post("/diagnose", s.PostDiagnose)
	})

	r.Route("/trips", func(r chi.Router) {
		r.Get("/", s.ListTrips)
		r.Get("/summary", s.GetFleetSummary)
		r.Get("/export", s.GetExport)
		r.Get("/feed", s.TripFeed)
		r.Get("/{id}", s.GetTrip)
		r.Get("/{id}/stops", s.ListTripStops)
	})

	return r
}
