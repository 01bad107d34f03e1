// Package session owns the live trip on a driver's device: the
// Setup → Active → Ended state machine, route tracking, the conversational
// checklist and the hand-off of finished trips to the fleet archive.
//
// All state is owned by a single event-loop goroutine. Public methods enqueue
// a closure and wait for it; asynchronous work (geolocation, speech, AI calls,
// archive retries) runs on its own goroutines and posts results back as
// closures that first compare the generation they captured with the current
// one, dropping anything stale.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/pkordes/fleet-logbook/backend/internal/checklist"
	"github.com/pkordes/fleet-logbook/backend/internal/domain"
	"github.com/pkordes/fleet-logbook/backend/internal/tracker"
)

// State is the top-level trip state.
type State int

const (
	StateSetup State = iota
	StateActive
	StateEnded
)

func (s State) String() string {
	switch s {
	case StateSetup:
		return "setup"
	case StateActive:
		return "active"
	case StateEnded:
		return "ended"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

const (
	defaultAITimeout    = 20 * time.Second
	defaultFixTimeout   = 10 * time.Second
	defaultStoreTimeout = 3 * time.Second
	audioKeep           = 4
)

// Options wires a Session to its collaborators. Store, Archive and
// Geolocator are required; Advisor and Speaker may be nil, in which case
// fallbacks are used.
type Options struct {
	Store      Store
	Archive    Archive
	Geolocator tracker.Geolocator
	Advisor    Advisor
	Speaker    Speaker
	Templates  checklist.Templates
	Logger     *slog.Logger

	AITimeout  time.Duration
	FixTimeout time.Duration

	// HandoffBackoff builds the retry policy for a failed archive hand-off.
	HandoffBackoff func() retry.Backoff

	Now   func() time.Time
	NewID func() string
}

// StartInput is what the driver enters on the setup screen.
type StartInput struct {
	Driver          string
	Class           domain.VehicleClass
	InitialOdometer int
	Plate           string
}

func (in StartInput) validate() error {
	var problems []string
	if strings.TrimSpace(in.Driver) == "" {
		problems = append(problems, "driver is required")
	}
	if strings.TrimSpace(in.Plate) == "" {
		problems = append(problems, "plate is required")
	}
	if !in.Class.Valid() {
		problems = append(problems, "vehicle class is invalid")
	}
	if in.InitialOdometer < 0 {
		problems = append(problems, "initial odometer must not be negative")
	}
	if len(problems) > 0 {
		return domain.Invalidf("%s", strings.Join(problems, "; "))
	}
	return nil
}

type promptAudio struct {
	id    uint64
	audio []byte
}

// Session is the live-trip state machine.
type Session struct {
	store      Store
	archive    Archive
	geo        tracker.Geolocator
	advisor    Advisor
	speaker    Speaker
	templates  checklist.Templates
	tracker    *tracker.Tracker
	logger     *slog.Logger
	aiTimeout  time.Duration
	fixTimeout time.Duration
	backoff    func() retry.Backoff
	now        func() time.Time
	newID      func() string

	ops      chan func()
	quit     chan struct{}
	loopDone chan struct{}
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	closing  sync.Once

	// Owned by the event loop.
	state      State
	trip       domain.Trip
	tracking   bool
	tripGen    uint64
	trackGen   uint64
	dialogue   *checklist.Dialogue
	audio      []promptAudio
	notices    []Notice
	pending    *domain.Trip
	handingOff bool
}

// New creates a Session and rehydrates it from the store. A stored trip
// without EndedAt resumes as Active; one with EndedAt is retried against the
// archive in the background.
func New(ctx context.Context, opts Options) (*Session, error) {
	if opts.Store == nil || opts.Archive == nil || opts.Geolocator == nil {
		return nil, fmt.Errorf("session.New: store, archive and geolocator are required")
	}
	s := &Session{
		store:      opts.Store,
		archive:    opts.Archive,
		geo:        opts.Geolocator,
		advisor:    opts.Advisor,
		speaker:    opts.Speaker,
		templates:  opts.Templates,
		logger:     opts.Logger,
		aiTimeout:  opts.AITimeout,
		fixTimeout: opts.FixTimeout,
		backoff:    opts.HandoffBackoff,
		now:        opts.Now,
		newID:      opts.NewID,
		ops:        make(chan func()),
		quit:       make(chan struct{}),
		loopDone:   make(chan struct{}),
	}
	if s.templates == nil {
		s.templates = checklist.Default()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.aiTimeout <= 0 {
		s.aiTimeout = defaultAITimeout
	}
	if s.fixTimeout <= 0 {
		s.fixTimeout = defaultFixTimeout
	}
	if s.backoff == nil {
		s.backoff = func() retry.Backoff {
			return retry.WithCappedDuration(5*time.Minute, retry.NewExponential(2*time.Second))
		}
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = func() string { return uuid.NewString() }
	}
	s.tracker = tracker.New(s.geo, s.logger)
	s.ctx, s.cancel = context.WithCancel(context.Background())

	stored, ok, err := s.store.Load(ctx)
	if err != nil {
		s.cancel()
		return nil, fmt.Errorf("session.New: load stored trip: %w", err)
	}
	if ok {
		s.trip = stored
		s.tripGen = 1
		if stored.EndedAt == nil {
			s.state = StateActive
			s.logger.Info("resumed active trip", "trip_id", stored.ID, "driver", stored.DriverName)
		} else {
			s.state = StateEnded
			p := stored.Clone()
			s.pending = &p
			s.logger.Info("found ended trip awaiting hand-off", "trip_id", stored.ID)
		}
	}

	go s.run()
	if s.pending != nil {
		_ = s.do(ctx, func() { s.startHandoffRetry() })
	}
	return s, nil
}

func (s *Session) run() {
	defer close(s.loopDone)
	for {
		select {
		case fn := <-s.ops:
			fn()
		case <-s.quit:
			return
		}
	}
}

// do runs fn on the event loop and waits for it to finish.
func (s *Session) do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	wrapped := func() {
		defer close(done)
		fn()
	}
	select {
	case s.ops <- wrapped:
	case <-s.quit:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	<-done
	return nil
}

// post hands fn to the event loop without waiting. It gives up when the
// session closes.
func (s *Session) post(fn func()) {
	select {
	case s.ops <- fn:
	case <-s.quit:
	}
}

// goAsync runs fn on a tracked goroutine.
func (s *Session) goAsync(fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
}

// Close stops the event loop, the tracker and every background task.
func (s *Session) Close() {
	s.closing.Do(func() {
		close(s.quit)
		<-s.loopDone
		s.cancel()
		s.tracker.Stop()
		s.wg.Wait()
	})
}

// persist writes a clone of the current trip to the store. Called from the
// event loop after every committed mutation.
func (s *Session) persist() {
	ctx, cancel := context.WithTimeout(s.ctx, defaultStoreTimeout)
	defer cancel()
	if err := s.store.Persist(ctx, s.trip.Clone()); err != nil {
		s.logger.Warn("failed to persist trip", "trip_id", s.trip.ID, "error", err)
	}
}

func (s *Session) clearStore() {
	ctx, cancel := context.WithTimeout(s.ctx, defaultStoreTimeout)
	defer cancel()
	if err := s.store.Clear(ctx); err != nil {
		s.logger.Warn("failed to clear local store", "error", err)
	}
}

func (s *Session) notify(kind NoticeKind, msg string) {
	for _, n := range s.notices {
		if n.Kind == kind && n.Message == msg {
			return
		}
	}
	s.notices = append(s.notices, Notice{Kind: kind, Message: msg, At: s.now()})
}

// Start validates in and begins a fresh trip from the class template and the
// default oil-change alert.
func (s *Session) Start(ctx context.Context, in StartInput) (domain.Trip, error) {
	if err := in.validate(); err != nil {
		return domain.Trip{}, fmt.Errorf("session.Session.Start: %w", err)
	}

	var (
		out domain.Trip
		err error
	)
	if derr := s.do(ctx, func() {
		switch {
		case s.state == StateActive:
			err = ErrTripActive
			return
		case s.pending != nil:
			err = ErrHandoffPending
			return
		}

		s.tracker.Stop()
		s.tripGen++
		s.trackGen++
		s.tracking = false
		s.dialogue = nil
		s.audio = nil
		s.trip = domain.Trip{
			ID:                uuid.New(),
			DriverName:        strings.TrimSpace(in.Driver),
			Plate:             strings.ToUpper(strings.TrimSpace(in.Plate)),
			VehicleClass:      in.Class,
			StartedAt:         s.now(),
			InitialOdometer:   in.InitialOdometer,
			Checklist:         s.templates.Items(in.Class),
			MaintenanceAlerts: []domain.MaintenanceAlert{domain.DefaultOilChange(in.InitialOdometer)},
			Route:             []domain.LatLng{},
			Stops:             []domain.Stop{},
			Conditions:        []domain.Condition{},
			Expenses:          []domain.Expense{},
		}
		s.state = StateActive
		s.persist()
		out = s.trip.Clone()
		s.logger.Info("trip started", "trip_id", s.trip.ID, "driver", s.trip.DriverName, "class", s.trip.VehicleClass)
	}); derr != nil {
		return domain.Trip{}, fmt.Errorf("session.Session.Start: %w", derr)
	}
	if err != nil {
		return domain.Trip{}, fmt.Errorf("session.Session.Start: %w", err)
	}
	return out, nil
}

// EndTrip stops tracking, stamps EndedAt and hands a snapshot to the archive.
// On success the local store is cleared. If the archive fails the trip is
// still ended, the snapshot stays in the store, a background retry begins and
// ErrHandoffPending is returned.
func (s *Session) EndTrip(ctx context.Context) (uuid.UUID, error) {
	var (
		snapshot domain.Trip
		err      error
	)
	if derr := s.do(ctx, func() {
		if s.state != StateActive {
			err = ErrNoActiveTrip
			return
		}
		s.tracker.Stop()
		s.tracking = false
		s.trackGen++
		s.tripGen++

		ended := s.now()
		s.trip.EndedAt = &ended
		s.state = StateEnded
		s.dialogue = nil
		snapshot = s.trip.Clone()
		p := snapshot.Clone()
		s.pending = &p
		s.persist()
		s.logger.Info("trip ended", "trip_id", s.trip.ID)
	}); derr != nil {
		return uuid.Nil, fmt.Errorf("session.Session.EndTrip: %w", derr)
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("session.Session.EndTrip: %w", err)
	}

	id, aerr := s.archive.Save(ctx, snapshot)
	if aerr != nil {
		s.logger.Warn("archive hand-off failed, will retry", "trip_id", snapshot.ID, "error", aerr)
		_ = s.do(context.Background(), func() {
			s.notify(NoticeHandoff, "The trip could not be sent to the fleet office yet. It is saved on this device and will be retried.")
			s.startHandoffRetry()
		})
		return uuid.Nil, fmt.Errorf("session.Session.EndTrip: %w: %w", ErrHandoffPending, aerr)
	}

	_ = s.do(context.Background(), func() { s.handoffDone(snapshot.ID) })
	return id, nil
}

// handoffDone clears the pending snapshot once the archive has it.
func (s *Session) handoffDone(id uuid.UUID) {
	if s.pending == nil || s.pending.ID != id {
		return
	}
	s.pending = nil
	s.clearStore()
	s.logger.Info("trip handed off to archive", "trip_id", id)
}

// startHandoffRetry retries the pending snapshot in the background until it
// succeeds or the session closes. At most one retry runs at a time.
func (s *Session) startHandoffRetry() {
	if s.pending == nil || s.handingOff {
		return
	}
	s.handingOff = true
	snapshot := s.pending.Clone()

	s.goAsync(func() {
		err := retry.Do(s.ctx, s.backoff(), func(ctx context.Context) error {
			if _, err := s.archive.Save(ctx, snapshot); err != nil {
				s.logger.Warn("archive hand-off retry failed", "trip_id", snapshot.ID, "error", err)
				return retry.RetryableError(err)
			}
			return nil
		})
		s.post(func() {
			s.handingOff = false
			if err != nil {
				return
			}
			s.handoffDone(snapshot.ID)
		})
	})
}

// Snapshot returns a deep copy of the current trip and the state.
func (s *Session) Snapshot() (domain.Trip, State) {
	var (
		trip  domain.Trip
		state State
	)
	_ = s.do(context.Background(), func() {
		trip = s.trip.Clone()
		state = s.state
	})
	return trip, state
}

// HandoffPending reports whether an ended trip still awaits the archive.
func (s *Session) HandoffPending() bool {
	var pending bool
	_ = s.do(context.Background(), func() { pending = s.pending != nil })
	return pending
}

// TakeNotices returns and clears the queued notices.
func (s *Session) TakeNotices() []Notice {
	var out []Notice
	_ = s.do(context.Background(), func() {
		out = s.notices
		s.notices = nil
	})
	return out
}
