package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"

	"github.com/pkordes/fleet-logbook/backend/internal/domain"
)

// PromptAudioContentType describes the speech returned by the TTS model:
// 16-bit little-endian mono PCM at 24 kHz.
const PromptAudioContentType = "audio/L16;codec=pcm;rate=24000"

// ChecklistItemRequest is the body of PATCH /session/checklist/{itemID}.
type ChecklistItemRequest struct {
	Checked     *bool   `json:"checked"`
	Observation *string `json:"observation"`
	PhotoRef    *string `json:"photo_ref"`
}

// AnswerRequest is the body of POST /session/checklist/dialogue/answer.
type AnswerRequest struct {
	OK *bool `json:"ok" validate:"required"`
}

// DetailRequest is the body of POST /session/checklist/dialogue/detail.
type DetailRequest struct {
	Observation string `json:"observation"`
	PhotoRef    string `json:"photo_ref"`
}

// PatchChecklistItem handles PATCH /session/checklist/{itemID}.
func (s *Server) PatchChecklistItem(w http.ResponseWriter, r *http.Request) {
	var req ChecklistItemRequest
	if !s.decode(w, r, &req) {
		return
	}
	trip, ok := s.activeTrip(w)
	if !ok {
		return
	}
	id := chi.URLParam(r, "itemID")
	if _, found := findItem(trip.Checklist, id); !found {
		notFound(w, "checklist item not found")
		return
	}

	s.driver.UpdateChecklistItem(id, domain.ChecklistItemPatch{
		Checked:     req.Checked,
		Observation: req.Observation,
		PhotoRef:    req.PhotoRef,
	})
	trip, _ = s.driver.Snapshot()
	item, _ := findItem(trip.Checklist, id)
	writeJSON(w, http.StatusOK, item)
}

func findItem(items []domain.ChecklistItem, id string) (domain.ChecklistItem, bool) {
	for _, it := range items {
		if it.ID == id {
			return it, true
		}
	}
	return domain.ChecklistItem{}, false
}

// StartDialogue handles POST /session/checklist/dialogue.
func (s *Server) StartDialogue(w http.ResponseWriter, r *http.Request) {
	if err := s.driver.StartChecklist(r.Context()); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeDialogue(w, http.StatusCreated)
}

// GetDialogue handles GET /session/checklist/dialogue.
func (s *Server) GetDialogue(w http.ResponseWriter, _ *http.Request) {
	s.writeDialogue(w, http.StatusOK)
}

// AnswerDialogue handles POST /session/checklist/dialogue/answer.
func (s *Server) AnswerDialogue(w http.ResponseWriter, r *http.Request) {
	var req AnswerRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.driver.AnswerChecklist(r.Context(), *req.OK); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeDialogue(w, http.StatusOK)
}

// SubmitDialogueDetail handles POST /session/checklist/dialogue/detail.
func (s *Server) SubmitDialogueDetail(w http.ResponseWriter, r *http.Request) {
	var req DetailRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.driver.SubmitChecklistDetail(r.Context(), req.Observation, req.PhotoRef); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeDialogue(w, http.StatusOK)
}

// SkipDialogueDetail handles POST /session/checklist/dialogue/skip.
func (s *Server) SkipDialogueDetail(w http.ResponseWriter, r *http.Request) {
	if err := s.driver.SkipChecklistDetail(r.Context()); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeDialogue(w, http.StatusOK)
}

func (s *Server) writeDialogue(w http.ResponseWriter, status int) {
	view, ok := s.driver.ChecklistView()
	if !ok {
		notFound(w, "no checklist dialogue in progress")
		return
	}
	writeJSON(w, status, view)
}

// GetPromptAudio handles GET /session/checklist/dialogue/audio/{promptID}.
// Only the last few prompts are kept.
func (s *Server) GetPromptAudio(w http.ResponseWriter, r *http.Request) {
	var id uint64
	err := runtime.BindStyledParameterWithOptions("simple", "promptID", chi.URLParam(r, "promptID"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "promptID must be a positive integer")
		return
	}
	audio, ok := s.driver.PromptAudio(id)
	if !ok {
		notFound(w, "no audio for that prompt")
		return
	}
	w.Header().Set("Content-Type", PromptAudioContentType)
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(audio)
}
