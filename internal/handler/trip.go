package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"

	"github.com/pkordes/fleet-logbook/backend/internal/domain"
)

// Pagination describes the page returned by a list endpoint.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// TripListItem is the row shape of GET /trips. The full snapshot is served
// by GET /trips/{id}.
type TripListItem struct {
	ID           uuid.UUID           `json:"id"`
	DriverName   string              `json:"driver_name"`
	Plate        string              `json:"plate"`
	VehicleClass domain.VehicleClass `json:"vehicle_class"`
	StartedAt    time.Time           `json:"started_at"`
	EndedAt      *time.Time          `json:"ended_at,omitempty"`
	DistanceKm   int                 `json:"distance_km"`
	TotalCost    float64             `json:"total_cost"`
	FailedItems  int                 `json:"failed_items"`
	ArchivedAt   time.Time           `json:"archived_at"`
}

// TripListResponse is the body of GET /trips.
type TripListResponse struct {
	Data       []TripListItem `json:"data"`
	Pagination Pagination     `json:"pagination"`
}

func toListItem(a domain.ArchivedTrip) TripListItem {
	return TripListItem{
		ID:           a.ID,
		DriverName:   a.DriverName,
		Plate:        a.Plate,
		VehicleClass: a.VehicleClass,
		StartedAt:    a.StartedAt,
		EndedAt:      a.EndedAt,
		DistanceKm:   a.DistanceKm(),
		TotalCost:    a.TotalCost(),
		FailedItems:  len(a.FailedItems()),
		ArchivedAt:   a.ArchivedAt,
	}
}

// ListTrips handles GET /trips.
// Supports ?page= and ?limit= query parameters (defaults: page=1, limit=20, max=100).
func (s *Server) ListTrips(w http.ResponseWriter, r *http.Request) {
	var page, limit *int
	q := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, false, "page", q, &page); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "page must be an integer")
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "limit", q, &limit); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "limit must be an integer")
		return
	}

	params := domain.NewPaginationParams(page, limit)
	trips, total, err := s.fleet.ListPaged(r.Context(), params)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	data := make([]TripListItem, len(trips))
	for i, t := range trips {
		data[i] = toListItem(t)
	}
	writeJSON(w, http.StatusOK, TripListResponse{
		Data: data,
		Pagination: Pagination{
			Page:       params.Page,
			Limit:      params.Limit,
			Total:      total,
			TotalPages: params.TotalPages(total),
		},
	})
}

// GetTrip handles GET /trips/{id}.
func (s *Server) GetTrip(w http.ResponseWriter, r *http.Request) {
	id, ok := tripID(w, r)
	if !ok {
		return
	}
	trip, err := s.fleet.GetByID(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

// ListTripStops handles GET /trips/{id}/stops.
func (s *Server) ListTripStops(w http.ResponseWriter, r *http.Request) {
	id, ok := tripID(w, r)
	if !ok {
		return
	}
	stops, err := s.fleet.ListStops(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stops)
}

// GetFleetSummary handles GET /trips/summary.
func (s *Server) GetFleetSummary(w http.ResponseWriter, r *http.Request) {
	totals, err := s.fleet.Totals(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

// TripFeed handles GET /trips/feed, a websocket that announces every newly
// archived trip.
func (s *Server) TripFeed(w http.ResponseWriter, r *http.Request) {
	if s.feed == nil {
		notFound(w, "trip feed is not enabled")
		return
	}
	s.feed.ServeHTTP(w, r)
}

func tripID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	var id uuid.UUID
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "id must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}
