package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/fleet-logbook/backend/internal/domain"
	"github.com/pkordes/fleet-logbook/backend/internal/geo"
	"github.com/pkordes/fleet-logbook/backend/internal/session"
)

// fakeStore is an in-memory session.Store that records calls.
type fakeStore struct {
	mu       sync.Mutex
	trip     *domain.Trip
	persists int
	clears   int
}

var _ session.Store = (*fakeStore)(nil)

func (f *fakeStore) Load(context.Context) (domain.Trip, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.trip == nil {
		return domain.Trip{}, false, nil
	}
	return f.trip.Clone(), true, nil
}

func (f *fakeStore) Persist(_ context.Context, t domain.Trip) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trip = &t
	f.persists++
	return nil
}

func (f *fakeStore) Clear(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trip = nil
	f.clears++
	return nil
}

func (f *fakeStore) stored() (domain.Trip, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.trip == nil {
		return domain.Trip{}, false
	}
	return f.trip.Clone(), true
}

// fakeArchive fails the first failN calls, then succeeds.
type fakeArchive struct {
	mu    sync.Mutex
	failN int
	calls int
	saved map[uuid.UUID]domain.Trip
}

var _ session.Archive = (*fakeArchive)(nil)

func (f *fakeArchive) Save(_ context.Context, t domain.Trip) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failN {
		return uuid.Nil, errors.New("archive unreachable")
	}
	if f.saved == nil {
		f.saved = make(map[uuid.UUID]domain.Trip)
	}
	f.saved[t.ID] = t
	return t.ID, nil
}

func (f *fakeArchive) savedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saved)
}

// mockAdvisor is a hand-written mock; nil funcs return an error.
type mockAdvisor struct {
	ClassifyFn  func(ctx context.Context, image []byte, mime string) (domain.DamageAssessment, error)
	SummarizeFn func(ctx context.Context, items []domain.ChecklistItem) (string, error)
	TipFn       func(ctx context.Context, trip domain.Trip) (string, error)
	DiagnoseFn  func(ctx context.Context, description, vehicle string) (string, error)
}

var _ session.Advisor = (*mockAdvisor)(nil)

var errNotStubbed = errors.New("not stubbed")

func (m *mockAdvisor) ClassifyDamage(ctx context.Context, image []byte, mime string) (domain.DamageAssessment, error) {
	if m.ClassifyFn == nil {
		return domain.DamageAssessment{}, errNotStubbed
	}
	return m.ClassifyFn(ctx, image, mime)
}

func (m *mockAdvisor) SummarizeIssues(ctx context.Context, items []domain.ChecklistItem) (string, error) {
	if m.SummarizeFn == nil {
		return "", errNotStubbed
	}
	return m.SummarizeFn(ctx, items)
}

func (m *mockAdvisor) SuggestTip(ctx context.Context, trip domain.Trip) (string, error) {
	if m.TipFn == nil {
		return "", errNotStubbed
	}
	return m.TipFn(ctx, trip)
}

func (m *mockAdvisor) Diagnose(ctx context.Context, description, vehicle string) (string, error) {
	if m.DiagnoseFn == nil {
		return "", errNotStubbed
	}
	return m.DiagnoseFn(ctx, description, vehicle)
}

type harness struct {
	s       *session.Session
	store   *fakeStore
	archive *fakeArchive
	feed    *geo.Feed
	advisor *mockAdvisor
}

type harnessOpt func(*session.Options, *harness)

func withAdvisor(a *mockAdvisor) harnessOpt {
	return func(o *session.Options, h *harness) {
		o.Advisor = a
		h.advisor = a
	}
}

func withSpeaker(sp session.Speaker) harnessOpt {
	return func(o *session.Options, _ *harness) { o.Speaker = sp }
}

func withStored(t domain.Trip) harnessOpt {
	return func(_ *session.Options, h *harness) { h.store.trip = &t }
}

func withArchiveFailures(n int) harnessOpt {
	return func(_ *session.Options, h *harness) { h.archive.failN = n }
}

func newHarness(t *testing.T, opts ...harnessOpt) *harness {
	t.Helper()
	h := &harness{
		store:   &fakeStore{},
		archive: &fakeArchive{},
		feed:    geo.NewFeed(nil),
	}
	o := session.Options{
		Store:          h.store,
		Archive:        h.archive,
		Geolocator:     h.feed,
		FixTimeout:     50 * time.Millisecond,
		AITimeout:      time.Second,
		HandoffBackoff: func() retry.Backoff { return retry.NewConstant(5 * time.Millisecond) },
	}
	for _, opt := range opts {
		opt(&o, h)
	}
	s, err := session.New(context.Background(), o)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	h.s = s
	return h
}

func (h *harness) start(t *testing.T) domain.Trip {
	t.Helper()
	trip, err := h.s.Start(context.Background(), session.StartInput{
		Driver:          "Ana",
		Class:           domain.VehicleTruck,
		InitialOdometer: 100000,
		Plate:           "abc1d23",
	})
	require.NoError(t, err)
	return trip
}

const (
	waitFor = time.Second
	tick    = 5 * time.Millisecond
)
