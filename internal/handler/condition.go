package handler

import (
	"net/http"
	"slices"

	"github.com/pkordes/fleet-logbook/backend/internal/domain"
)

// CreateConditionRequest is the body of POST /session/conditions.
type CreateConditionRequest struct {
	Part        string `json:"part" validate:"required"`
	DamageCode  string `json:"damage_code" validate:"required"`
	Description string `json:"description"`
	PhotoRef    string `json:"photo_ref"`
}

// AnalyzeConditionRequest is the body of POST /session/conditions/analyze.
// Image is base64 in JSON.
type AnalyzeConditionRequest struct {
	Part     string `json:"part" validate:"required"`
	Image    []byte `json:"image" validate:"required"`
	MimeType string `json:"mime_type" validate:"required"`
	PhotoRef string `json:"photo_ref"`
}

// CreateCondition handles POST /session/conditions.
func (s *Server) CreateCondition(w http.ResponseWriter, r *http.Request) {
	var req CreateConditionRequest
	if !s.decode(w, r, &req) {
		return
	}
	code, err := domain.ParseDamageCode(req.DamageCode)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if _, ok := s.activeTrip(w); !ok {
		return
	}
	id := s.driver.AddCondition(domain.Condition{
		Part:        req.Part,
		DamageCode:  code,
		Description: req.Description,
		PhotoRef:    req.PhotoRef,
	})
	if id == "" {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "condition was rejected")
		return
	}
	trip, _ := s.driver.Snapshot()
	i := slices.IndexFunc(trip.Conditions, func(c domain.Condition) bool { return c.ID == id })
	if i < 0 {
		notFound(w, "condition not found")
		return
	}
	writeJSON(w, http.StatusCreated, trip.Conditions[i])
}

// AnalyzeCondition handles POST /session/conditions/analyze. The photo is
// classified by the advisor and the resulting condition is recorded. When
// analysis is unavailable the driver is expected to fall back to
// POST /session/conditions.
func (s *Server) AnalyzeCondition(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeConditionRequest
	if !s.decode(w, r, &req) {
		return
	}
	c, err := s.driver.AnalyzeDamage(r.Context(), req.Part, req.Image, req.MimeType, req.PhotoRef)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}
