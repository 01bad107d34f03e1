package handler

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pkordes/fleet-logbook/backend/internal/domain"
	"github.com/pkordes/fleet-logbook/backend/internal/stream"
)

const (
	positionReadLimit = 1024
	positionIdle      = 2 * time.Minute
)

// StopRequest is the body of POST /session/stops.
type StopRequest struct {
	Description string `json:"description"`
}

// TrackingResponse is the body of POST /session/tracking.
type TrackingResponse struct {
	Tracking bool `json:"tracking"`
}

// PositionMessage is one report from the device's location service, either
// a fix or the error the device got instead.
type PositionMessage struct {
	Lat   *float64 `json:"lat" validate:"required_without=Error"`
	Lng   *float64 `json:"lng" validate:"required_without=Error"`
	Error string   `json:"error"`
}

// positionError is a device-side geolocation failure.
type positionError string

func (e positionError) Error() string { return "device geolocation: " + string(e) }

// CreateStop handles POST /session/stops. The position is sampled in the
// background, so a stop that cannot be located only shows up as a notice.
func (s *Server) CreateStop(w http.ResponseWriter, r *http.Request) {
	var req StopRequest
	if !s.decode(w, r, &req) {
		return
	}
	if _, ok := s.activeTrip(w); !ok {
		return
	}
	s.driver.AddStop(req.Description)
	w.WriteHeader(http.StatusAccepted)
}

// ToggleTracking handles POST /session/tracking.
func (s *Server) ToggleTracking(w http.ResponseWriter, _ *http.Request) {
	if _, ok := s.activeTrip(w); !ok {
		return
	}
	writeJSON(w, http.StatusOK, TrackingResponse{Tracking: s.driver.ToggleTracking()})
}

// PostPosition handles POST /session/position.
func (s *Server) PostPosition(w http.ResponseWriter, r *http.Request) {
	var msg PositionMessage
	if !s.decode(w, r, &msg) {
		return
	}
	if err := s.applyPosition(msg); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) applyPosition(msg PositionMessage) error {
	if msg.Error != "" {
		s.fixes.Fail(positionError(msg.Error))
		return nil
	}
	if msg.Lat == nil || msg.Lng == nil {
		return domain.Invalidf("lat and lng are required")
	}
	return s.fixes.Publish(domain.LatLng{Lat: *msg.Lat, Lng: *msg.Lng})
}

// PositionStream handles GET /session/position/ws. The device keeps one
// websocket open and sends a PositionMessage per reading. Rejected messages
// are answered with an ErrorResponse on the same socket.
func (s *Server) PositionStream(w http.ResponseWriter, r *http.Request) {
	conn, err := stream.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WarnContext(r.Context(), "position upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(positionReadLimit)

	for {
		_ = conn.SetReadDeadline(time.Now().Add(positionIdle))
		var msg PositionMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.InfoContext(r.Context(), "position stream closed", "error", err)
			}
			return
		}
		if err := s.validate.Struct(msg); err != nil {
			_ = conn.WriteJSON(ErrorResponse{Error: ErrorDetail{Code: "validation_error", Message: validationMessage(err)}})
			continue
		}
		if err := s.applyPosition(msg); err != nil {
			_ = conn.WriteJSON(ErrorResponse{Error: ErrorDetail{Code: "validation_error", Message: unwrapMessage(err)}})
		}
	}
}
