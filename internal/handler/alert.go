package handler

import (
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/pkordes/fleet-logbook/backend/internal/domain"
	"github.com/pkordes/fleet-logbook/backend/internal/maintenance"
	"github.com/pkordes/fleet-logbook/backend/internal/session"
)

// CreateAlertRequest is the body of POST /session/alerts. Distance alerts
// use the _km fields and date alerts the _days/_date fields.
type CreateAlertRequest struct {
	Name            string              `json:"name" validate:"required"`
	Kind            domain.AlertKind    `json:"kind" validate:"required"`
	IntervalKm      int                 `json:"interval_km" validate:"gte=0"`
	LastServiceKm   int                 `json:"last_service_km" validate:"gte=0"`
	IntervalDays    int                 `json:"interval_days" validate:"gte=0"`
	LastServiceDate *openapi_types.Date `json:"last_service_date"`
}

func (req CreateAlertRequest) toDomain() domain.MaintenanceAlert {
	a := domain.MaintenanceAlert{
		Name:          req.Name,
		Kind:          req.Kind,
		IntervalKm:    req.IntervalKm,
		LastServiceKm: req.LastServiceKm,
		IntervalDays:  req.IntervalDays,
	}
	if req.LastServiceDate != nil {
		d := req.LastServiceDate.Time
		a.LastServiceDate = &d
	}
	return a
}

// ListAlerts handles GET /session/alerts. Each alert carries its current
// status evaluated against the trip's odometer and today's date.
func (s *Server) ListAlerts(w http.ResponseWriter, _ *http.Request) {
	if _, state := s.driver.Snapshot(); state == session.StateSetup {
		noActiveTrip(w)
		return
	}
	alerts := s.driver.Alerts(s.now())
	if alerts == nil {
		alerts = []maintenance.AlertStatus{}
	}
	writeJSON(w, http.StatusOK, alerts)
}

// CreateAlert handles POST /session/alerts.
func (s *Server) CreateAlert(w http.ResponseWriter, r *http.Request) {
	var req CreateAlertRequest
	if !s.decode(w, r, &req) {
		return
	}
	if _, ok := s.activeTrip(w); !ok {
		return
	}
	id := s.driver.AddAlert(req.toDomain())
	if id == "" {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "alert was rejected")
		return
	}
	s.writeAlert(w, http.StatusCreated, id)
}

// MarkAlertServiced handles POST /session/alerts/{alertID}/serviced.
func (s *Server) MarkAlertServiced(w http.ResponseWriter, r *http.Request) {
	trip, ok := s.activeTrip(w)
	if !ok {
		return
	}
	id := chi.URLParam(r, "alertID")
	if !slices.ContainsFunc(trip.MaintenanceAlerts, func(a domain.MaintenanceAlert) bool { return a.ID == id }) {
		notFound(w, "alert not found")
		return
	}
	s.driver.MarkAlertServiced(id)
	s.writeAlert(w, http.StatusOK, id)
}

func (s *Server) writeAlert(w http.ResponseWriter, status int, id string) {
	alerts := s.driver.Alerts(s.now())
	i := slices.IndexFunc(alerts, func(a maintenance.AlertStatus) bool { return a.Alert.ID == id })
	if i < 0 {
		notFound(w, "alert not found")
		return
	}
	writeJSON(w, status, alerts[i])
}
