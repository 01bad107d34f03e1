package checklist

import (
	"errors"
	"fmt"

	"github.com/pkordes/fleet-logbook/backend/internal/domain"
)

// ErrOutOfTurn is returned when an answer or detail arrives in a phase that
// does not accept it, including while a prompt is still being spoken.
var ErrOutOfTurn = errors.New("checklist: input not expected in current phase")

// Phase is the dialogue position.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseGreeting
	PhaseAsking
	PhaseAwaitingAnswer
	PhaseDetailCapture
	PhaseCompleted
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseGreeting:
		return "greeting"
	case PhaseAsking:
		return "asking"
	case PhaseAwaitingAnswer:
		return "awaiting_answer"
	case PhaseDetailCapture:
		return "detail_capture"
	case PhaseCompleted:
		return "completed"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Hooks are the side effects a Dialogue requests. Any of them may be nil.
//
// Speak asks for text to be voiced; the caller must report back with
// PromptDone(id) once playback finishes or fails.
type Hooks struct {
	Speak    func(id uint64, text string)
	Update   func(itemID string, patch domain.ChecklistItemPatch)
	Complete func()
}

// Dialogue walks a fixed item list one question at a time. It is not safe for
// concurrent use; the session drives it from its event loop.
type Dialogue struct {
	driver string
	class  domain.VehicleClass
	items  []domain.ChecklistItem
	hooks  Hooks

	phase     Phase
	cursor    int
	promptID  uint64
	inFlight  bool
	prompt    string
	completed bool
}

// NewDialogue creates a dialogue over items. Only ids and labels are read;
// answers flow out through hooks.Update.
func NewDialogue(driver string, class domain.VehicleClass, items []domain.ChecklistItem, hooks Hooks) *Dialogue {
	return &Dialogue{
		driver: driver,
		class:  class,
		items:  items,
		hooks:  hooks,
	}
}

// Start speaks the greeting. Calling it more than once is a no-op.
func (d *Dialogue) Start() {
	if d.phase != PhaseIdle {
		return
	}
	d.phase = PhaseGreeting
	d.speak(fmt.Sprintf("Hello %s! Let's get your %s ready for the trip. I'll walk you through the checklist.", d.driver, d.class))
}

// PromptDone marks prompt id as finished. Ids other than the current prompt
// are stale and ignored.
func (d *Dialogue) PromptDone(id uint64) {
	if !d.inFlight || id != d.promptID {
		return
	}
	d.inFlight = false

	switch d.phase {
	case PhaseGreeting:
		d.askOrComplete()
	case PhaseAsking:
		d.phase = PhaseAwaitingAnswer
	}
}

// Answer records whether the current item passed.
func (d *Dialogue) Answer(ok bool) error {
	if d.phase != PhaseAwaitingAnswer || d.inFlight {
		return ErrOutOfTurn
	}
	item := d.items[d.cursor]
	d.update(item.ID, domain.ChecklistItemPatch{Checked: &ok})
	if ok {
		d.advance()
		return nil
	}
	d.phase = PhaseDetailCapture
	return nil
}

// SubmitDetail attaches an observation and photo to the failed item and
// moves on.
func (d *Dialogue) SubmitDetail(observation, photoRef string) error {
	if d.phase != PhaseDetailCapture {
		return ErrOutOfTurn
	}
	d.update(d.items[d.cursor].ID, domain.ChecklistItemPatch{Observation: &observation, PhotoRef: &photoRef})
	d.advance()
	return nil
}

// SkipDetail clears the observation and photo of the failed item and moves on.
func (d *Dialogue) SkipDetail() error {
	return d.SubmitDetail("", "")
}

func (d *Dialogue) advance() {
	d.cursor++
	d.askOrComplete()
}

func (d *Dialogue) askOrComplete() {
	if d.cursor >= len(d.items) {
		d.complete()
		return
	}
	d.phase = PhaseAsking
	d.speak(Question(d.items[d.cursor].Label))
}

func (d *Dialogue) complete() {
	d.phase = PhaseCompleted
	d.speak("Excellent! Checklist complete. Have a great trip!")
	if d.completed {
		return
	}
	d.completed = true
	if d.hooks.Complete != nil {
		d.hooks.Complete()
	}
}

func (d *Dialogue) speak(text string) {
	d.promptID++
	d.inFlight = true
	d.prompt = text
	if d.hooks.Speak != nil {
		d.hooks.Speak(d.promptID, text)
	}
}

func (d *Dialogue) update(id string, p domain.ChecklistItemPatch) {
	if d.hooks.Update != nil {
		d.hooks.Update(id, p)
	}
}

// Question is the prompt spoken for an item.
func Question(label string) string {
	return fmt.Sprintf("Let's check: %s. Is everything OK?", label)
}

// View is a read-only picture of the dialogue.
type View struct {
	Phase    Phase   `json:"phase"`
	Index    int     `json:"index"`
	Total    int     `json:"total"`
	Progress float64 `json:"progress"`
	Prompt   string  `json:"prompt"`
	PromptID uint64  `json:"prompt_id"`
	Speaking bool    `json:"speaking"`
	ItemID   string  `json:"item_id,omitempty"`
	Label    string  `json:"label,omitempty"`
}

// View reports the current phase, cursor and progress. Progress is cursor/N,
// or 1 for an empty checklist.
func (d *Dialogue) View() View {
	v := View{
		Phase:    d.phase,
		Index:    d.cursor,
		Total:    len(d.items),
		Prompt:   d.prompt,
		PromptID: d.promptID,
		Speaking: d.inFlight,
		Progress: 1,
	}
	if v.Total > 0 {
		v.Progress = float64(d.cursor) / float64(v.Total)
	}
	if d.cursor < len(d.items) {
		v.ItemID = d.items[d.cursor].ID
		v.Label = d.items[d.cursor].Label
	}
	return v
}
