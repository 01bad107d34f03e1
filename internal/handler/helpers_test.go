package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/fleet-logbook/backend/internal/domain"
	"github.com/pkordes/fleet-logbook/backend/internal/geo"
	"github.com/pkordes/fleet-logbook/backend/internal/handler"
	"github.com/pkordes/fleet-logbook/backend/internal/session"
	"github.com/pkordes/fleet-logbook/backend/internal/store"
)

// mockFleet is a test double for handler.FleetServicer.
// Set only the method fields your test needs.
type mockFleet struct {
	getByID   func(ctx context.Context, id uuid.UUID) (domain.ArchivedTrip, error)
	listPaged func(ctx context.Context, p domain.PaginationParams) ([]domain.ArchivedTrip, int64, error)
	totals    func(ctx context.Context) (domain.FleetTotals, error)
	listStops func(ctx context.Context, tripID uuid.UUID) ([]domain.ArchivedStop, error)
	export    func(ctx context.Context) ([]domain.ExportRow, error)
}

// compile-time check: mockFleet must satisfy handler.FleetServicer.
var _ handler.FleetServicer = (*mockFleet)(nil)

func (m *mockFleet) GetByID(ctx context.Context, id uuid.UUID) (domain.ArchivedTrip, error) {
	return m.getByID(ctx, id)
}
func (m *mockFleet) ListPaged(ctx context.Context, p domain.PaginationParams) ([]domain.ArchivedTrip, int64, error) {
	return m.listPaged(ctx, p)
}
func (m *mockFleet) Totals(ctx context.Context) (domain.FleetTotals, error) {
	return m.totals(ctx)
}
func (m *mockFleet) ListStops(ctx context.Context, tripID uuid.UUID) ([]domain.ArchivedStop, error) {
	return m.listStops(ctx, tripID)
}
func (m *mockFleet) Export(ctx context.Context) ([]domain.ExportRow, error) {
	return m.export(ctx)
}

// archiveStub is a session.Archive whose Save result is set per test.
type archiveStub struct {
	mu   sync.Mutex
	err  error
	trip domain.Trip
}

func (a *archiveStub) Save(_ context.Context, t domain.Trip) (uuid.UUID, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return uuid.Nil, a.err
	}
	a.trip = t
	return t.ID, nil
}

// speakerStub returns a fixed audio clip for every prompt.
type speakerStub struct{}

func (speakerStub) Synthesize(context.Context, string) ([]byte, error) {
	return []byte("pcm-audio"), nil
}

// env is a Server wired to a real session with in-memory collaborators.
type env struct {
	t       *testing.T
	handler http.Handler
	session *session.Session
	feed    *geo.Feed
	archive *archiveStub
	now     time.Time
}

type envOption func(*session.Options, *handler.Deps)

func withFleet(f handler.FleetServicer) envOption {
	return func(_ *session.Options, d *handler.Deps) { d.Fleet = f }
}

func withSpeaker() envOption {
	return func(o *session.Options, _ *handler.Deps) { o.Speaker = speakerStub{} }
}

func withArchiveError(err error) envOption {
	return func(o *session.Options, _ *handler.Deps) { o.Archive.(*archiveStub).err = err }
}

func withFeedHandler(h http.Handler) envOption {
	return func(_ *session.Options, d *handler.Deps) { d.Feed = h }
}

func withOpenAPI(doc []byte) envOption {
	return func(_ *session.Options, d *handler.Deps) { d.OpenAPI = doc }
}

func newEnv(t *testing.T, opts ...envOption) *env {
	t.Helper()
	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	feed := geo.NewFeed(nil)
	archive := &archiveStub{}
	so := session.Options{
		Store:      store.NewMemory(),
		Archive:    archive,
		Geolocator: feed,
		FixTimeout: 200 * time.Millisecond,
	}
	deps := handler.Deps{
		Fixes: feed,
		Now:   func() time.Time { return now },
	}
	for _, o := range opts {
		o(&so, &deps)
	}
	s, err := session.New(context.Background(), so)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	deps.Driver = s

	return &env{
		t:       t,
		handler: handler.NewServer(deps).Routes(),
		session: s,
		feed:    feed,
		archive: archive,
		now:     now,
	}
}

// do sends a request with an optional JSON body and returns the recorder.
func (e *env) do(method, path string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(e.t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

// start begins a truck trip and fails the test if that does not work.
func (e *env) start() domain.Trip {
	e.t.Helper()
	rec := e.do(http.MethodPost, "/session", map[string]any{
		"driver_name":      "Ana",
		"vehicle_class":    "truck",
		"initial_odometer": 100000,
		"plate":            "abc1d23",
	})
	require.Equal(e.t, http.StatusCreated, rec.Code, rec.Body.String())
	var trip domain.Trip
	require.NoError(e.t, json.Unmarshal(rec.Body.Bytes(), &trip))
	return trip
}

func decodeJSON[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decodeJSON[handler.ErrorResponse](t, rec).Error.Code
}

var errBoom = errors.New("boom")
