package handler

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/pkordes/fleet-logbook/backend/internal/domain"
	"github.com/pkordes/fleet-logbook/backend/internal/session"
)

// StartTripRequest is the body of POST /session.
type StartTripRequest struct {
	DriverName      string              `json:"driver_name" validate:"required"`
	VehicleClass    domain.VehicleClass `json:"vehicle_class" validate:"required"`
	InitialOdometer *int                `json:"initial_odometer" validate:"required,gte=0"`
	Plate           string              `json:"plate" validate:"required"`
}

// SessionResponse is the body of GET /session. Trip is null before the
// first trip starts.
type SessionResponse struct {
	State          session.State    `json:"state"`
	Trip           *domain.Trip     `json:"trip"`
	Tracking       bool             `json:"tracking"`
	HandoffPending bool             `json:"handoff_pending"`
	Notices        []session.Notice `json:"notices"`
}

// PatchTripRequest is the body of PATCH /session/trip. Absent fields are
// left as they are.
type PatchTripRequest struct {
	FinalOdometer       *int     `json:"final_odometer" validate:"omitempty,gte=0"`
	FuelAdded           *float64 `json:"fuel_added" validate:"omitempty,gte=0"`
	FuelCost            *float64 `json:"fuel_cost" validate:"omitempty,gte=0"`
	GeneralObservations *string  `json:"general_observations"`
}

// EndTripResponse is the body of POST /session/end. Archived is false when
// the fleet archive was unreachable and the hand-off is being retried.
type EndTripResponse struct {
	TripID   uuid.UUID `json:"trip_id"`
	Archived bool      `json:"archived"`
}

// SignatureRequest is the body of PUT /session/signature.
type SignatureRequest struct {
	Signature string `json:"signature" validate:"required"`
}

// activeTrip writes 409 and returns false unless a trip is active.
func (s *Server) activeTrip(w http.ResponseWriter) (domain.Trip, bool) {
	trip, state := s.driver.Snapshot()
	if state != session.StateActive {
		noActiveTrip(w)
		return domain.Trip{}, false
	}
	return trip, true
}

// StartTrip handles POST /session.
func (s *Server) StartTrip(w http.ResponseWriter, r *http.Request) {
	var req StartTripRequest
	if !s.decode(w, r, &req) {
		return
	}
	trip, err := s.driver.Start(r.Context(), session.StartInput{
		Driver:          req.DriverName,
		Class:           req.VehicleClass,
		InitialOdometer: *req.InitialOdometer,
		Plate:           req.Plate,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, trip)
}

// GetSession handles GET /session. Pending notices are delivered once.
func (s *Server) GetSession(w http.ResponseWriter, _ *http.Request) {
	trip, state := s.driver.Snapshot()
	resp := SessionResponse{
		State:          state,
		Tracking:       s.driver.Tracking(),
		HandoffPending: s.driver.HandoffPending(),
		Notices:        s.driver.TakeNotices(),
	}
	if state != session.StateSetup {
		resp.Trip = &trip
	}
	if resp.Notices == nil {
		resp.Notices = []session.Notice{}
	}
	writeJSON(w, http.StatusOK, resp)
}

// PatchTrip handles PATCH /session/trip.
func (s *Server) PatchTrip(w http.ResponseWriter, r *http.Request) {
	var req PatchTripRequest
	if !s.decode(w, r, &req) {
		return
	}
	if _, ok := s.activeTrip(w); !ok {
		return
	}
	s.driver.UpdateTrip(domain.TripPatch{
		FinalOdometer:       req.FinalOdometer,
		FuelAdded:           req.FuelAdded,
		FuelCost:            req.FuelCost,
		GeneralObservations: req.GeneralObservations,
	})
	trip, _ := s.driver.Snapshot()
	writeJSON(w, http.StatusOK, trip)
}

// EndTrip handles POST /session/end.
func (s *Server) EndTrip(w http.ResponseWriter, r *http.Request) {
	id, err := s.driver.EndTrip(r.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, EndTripResponse{TripID: id, Archived: true})
	case errors.Is(err, session.ErrHandoffPending):
		trip, _ := s.driver.Snapshot()
		writeJSON(w, http.StatusAccepted, EndTripResponse{TripID: trip.ID, Archived: false})
	default:
		s.writeServiceError(w, r, err)
	}
}

// GetReport handles GET /session/report.
func (s *Server) GetReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.driver.Report()
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(report))
}

// PutSignature handles PUT /session/signature.
func (s *Server) PutSignature(w http.ResponseWriter, r *http.Request) {
	var req SignatureRequest
	if !s.decode(w, r, &req) {
		return
	}
	if _, ok := s.activeTrip(w); !ok {
		return
	}
	s.driver.SetSignature(req.Signature)
	w.WriteHeader(http.StatusNoContent)
}
