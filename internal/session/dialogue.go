package session

import (
	"context"

	"github.com/pkordes/fleet-logbook/backend/internal/checklist"
	"github.com/pkordes/fleet-logbook/backend/internal/domain"
)

// DialogueView is the checklist dialogue as seen by the driver's device.
type DialogueView struct {
	checklist.View
	HasAudio bool `json:"has_audio"`
}

// StartChecklist begins the conversational checklist for the active trip.
// A dialogue already in progress is left as it is.
func (s *Session) StartChecklist(ctx context.Context) error {
	var err error
	if derr := s.do(ctx, func() {
		if s.state != StateActive {
			err = ErrNoActiveTrip
			return
		}
		if s.dialogue == nil {
			s.dialogue = s.newDialogue()
		}
		s.dialogue.Start()
	}); derr != nil {
		return derr
	}
	return err
}

func (s *Session) newDialogue() *checklist.Dialogue {
	gen := s.tripGen
	var d *checklist.Dialogue
	d = checklist.NewDialogue(s.trip.DriverName, s.trip.VehicleClass, s.trip.Checklist, checklist.Hooks{
		Speak: func(id uint64, text string) { s.speak(gen, d, id, text) },
		Update: func(itemID string, patch domain.ChecklistItemPatch) {
			if gen == s.tripGen && s.applyItemPatch(itemID, patch) {
				s.persist()
			}
		},
		Complete: func() {
			if gen == s.tripGen {
				s.summarizeChecklist()
			}
		},
	})
	return d
}

// speak synthesises text off the loop and then marks the prompt done. The
// result is dropped if the trip or dialogue changed meanwhile.
func (s *Session) speak(gen uint64, d *checklist.Dialogue, id uint64, text string) {
	speaker := s.speaker
	s.goAsync(func() {
		var audio []byte
		if speaker != nil {
			ctx, cancel := context.WithTimeout(s.ctx, s.aiTimeout)
			var err error
			audio, err = speaker.Synthesize(ctx, text)
			cancel()
			if err != nil {
				s.logger.Warn("speech synthesis failed", "prompt", id, "error", err)
				audio = nil
			}
		}
		s.post(func() {
			if gen != s.tripGen || s.dialogue != d {
				return
			}
			if len(audio) > 0 {
				s.audio = append(s.audio, promptAudio{id: id, audio: audio})
				if len(s.audio) > audioKeep {
					s.audio = s.audio[len(s.audio)-audioKeep:]
				}
			}
			d.PromptDone(id)
		})
	})
}

// summarizeChecklist asks the advisor for an issue summary and stores it on
// the trip.
func (s *Session) summarizeChecklist() {
	gen := s.tripGen
	items := s.trip.Clone().Checklist
	advisor := s.advisor
	s.goAsync(func() {
		summary := FallbackSummary
		if advisor != nil {
			ctx, cancel := context.WithTimeout(s.ctx, s.aiTimeout)
			out, err := advisor.SummarizeIssues(ctx, items)
			cancel()
			if err != nil {
				s.logger.Warn("checklist summary failed", "error", err)
			} else {
				summary = out
			}
		}
		s.post(func() {
			if gen != s.tripGen || s.state != StateActive {
				return
			}
			s.trip.ChecklistSummary = summary
			s.persist()
		})
	})
}

func (s *Session) withDialogue(ctx context.Context, fn func(d *checklist.Dialogue) error) error {
	var err error
	if derr := s.do(ctx, func() {
		switch {
		case s.state != StateActive:
			err = ErrNoActiveTrip
		case s.dialogue == nil:
			err = checklist.ErrOutOfTurn
		default:
			err = fn(s.dialogue)
		}
	}); derr != nil {
		return derr
	}
	return err
}

// AnswerChecklist answers the current question.
func (s *Session) AnswerChecklist(ctx context.Context, ok bool) error {
	return s.withDialogue(ctx, func(d *checklist.Dialogue) error { return d.Answer(ok) })
}

// SubmitChecklistDetail attaches an observation and photo to the failed item.
func (s *Session) SubmitChecklistDetail(ctx context.Context, observation, photoRef string) error {
	return s.withDialogue(ctx, func(d *checklist.Dialogue) error { return d.SubmitDetail(observation, photoRef) })
}

// SkipChecklistDetail moves past the failed item without details.
func (s *Session) SkipChecklistDetail(ctx context.Context) error {
	return s.withDialogue(ctx, func(d *checklist.Dialogue) error { return d.SkipDetail() })
}

// ChecklistView returns the dialogue state. ok is false before the dialogue
// has been started for the current trip.
func (s *Session) ChecklistView() (view DialogueView, ok bool) {
	_ = s.do(context.Background(), func() {
		if s.dialogue == nil {
			return
		}
		ok = true
		view.View = s.dialogue.View()
		for _, a := range s.audio {
			if a.id == view.PromptID {
				view.HasAudio = true
			}
		}
	})
	return view, ok
}

// PromptAudio returns the synthesised audio of a recent prompt.
func (s *Session) PromptAudio(id uint64) ([]byte, bool) {
	var (
		audio []byte
		found bool
	)
	_ = s.do(context.Background(), func() {
		for _, a := range s.audio {
			if a.id == id {
				audio, found = a.audio, true
			}
		}
	})
	return audio, found
}
