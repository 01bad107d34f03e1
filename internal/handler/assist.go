package handler

import "net/http"

// TextResponse carries a generated text back to the driver.
type TextResponse struct {
	Text string `json:"text"`
}

// DiagnoseRequest is the body of POST /session/diagnose.
type DiagnoseRequest struct {
	Description string `json:"description" validate:"required"`
}

// GetTip handles POST /session/tip. Advisor failures come back as a
// fallback text, never as an error.
func (s *Server) GetTip(w http.ResponseWriter, r *http.Request) {
	tip, err := s.driver.Tip(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, TextResponse{Text: tip})
}

// PostDiagnose handles POST /session/diagnose.
func (s *Server) PostDiagnose(w http.ResponseWriter, r *http.Request) {
	var req DiagnoseRequest
	if !s.decode(w, r, &req) {
		return
	}
	out, err := s.driver.Diagnose(r.Context(), req.Description)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, TextResponse{Text: out})
}
