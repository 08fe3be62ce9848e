package dashboard

import (
	"context"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-agency-dashboard/components/dashboard/session"
	"github.com/goliatone/go-agency-dashboard/pkg/api"
)

// newMockAPI serves a seeded mock backend and returns a client for it.
func newMockAPI(t *testing.T) (*api.MockBackend, *api.Client) {
	t.Helper()
	accounts := api.DefaultDemoAccounts()
	backend := api.NewMockBackend(api.WithAccounts(accounts...))
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)
	client, err := api.NewClient(api.Config{BaseURL: srv.URL, Timeout: 2 * time.Second})
	require.NoError(t, err)
	require.NoError(t, SeedRecords(context.Background(), client, DemoSeed(accounts)))
	return backend, client
}

func newTestService(t *testing.T, opts Options) *Service {
	t.Helper()
	svc, err := NewService(opts)
	require.NoError(t, err)
	return svc
}

func demoIdentity(role string) session.Identity {
	for _, acc := range api.DefaultDemoAccounts() {
		if acc.Role == role {
			return session.Identity{
				SubjectID:   acc.SubjectID(),
				DisplayName: acc.Name,
				Role:        acc.Role,
				IsAdmin:     acc.IsAdmin,
			}
		}
	}
	return session.Identity{SubjectID: "anonymous", Role: role}
}

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

type telemetryEvent struct {
	name    string
	payload map[string]any
}

type recordingTelemetry struct {
	mu     sync.Mutex
	events []telemetryEvent
}

func (r *recordingTelemetry) Record(_ context.Context, event string, payload map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, telemetryEvent{name: event, payload: payload})
}

func (r *recordingTelemetry) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.name)
	}
	return out
}

// stubAPI is a RecordsAPI with overridable calls and call counters.
type stubAPI struct {
	mu       sync.Mutex
	listFn   func(ctx context.Context, resource string, q api.ListQuery) (api.ListResult, error)
	getFn    func(ctx context.Context, resource, id string) (api.Record, error)
	deleteFn func(ctx context.Context, resource, id string) error
	submitFn func(ctx context.Context, method, endpoint string, payload map[string]any) (map[string]any, error)

	lists    []api.ListQuery
	deletes  []string
	payloads []map[string]any
}

func (s *stubAPI) List(ctx context.Context, resource string, q api.ListQuery) (api.ListResult, error) {
	s.mu.Lock()
	s.lists = append(s.lists, q)
	fn := s.listFn
	s.mu.Unlock()
	if fn == nil {
		return api.ListResult{}, nil
	}
	return fn(ctx, resource, q)
}

func (s *stubAPI) Get(ctx context.Context, resource, id string) (api.Record, error) {
	if s.getFn == nil {
		return api.Record{}, nil
	}
	return s.getFn(ctx, resource, id)
}

func (s *stubAPI) Delete(ctx context.Context, resource, id string) error {
	s.mu.Lock()
	s.deletes = append(s.deletes, id)
	s.mu.Unlock()
	if s.deleteFn == nil {
		return nil
	}
	return s.deleteFn(ctx, resource, id)
}

func (s *stubAPI) Submit(ctx context.Context, method, endpoint string, payload map[string]any) (map[string]any, error) {
	s.mu.Lock()
	s.payloads = append(s.payloads, payload)
	s.mu.Unlock()
	if s.submitFn == nil {
		return map[string]any{"_id": "new-id"}, nil
	}
	return s.submitFn(ctx, method, endpoint, payload)
}

func (s *stubAPI) submitCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.payloads)
}

func (s *stubAPI) listCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lists)
}

// staticUnit renders fixed data and counts renders.
type staticUnit struct {
	mu      sync.Mutex
	data    UnitData
	err     error
	renders int
}

func (u *staticUnit) Render(context.Context, UnitContext) (UnitData, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.renders++
	return u.data, u.err
}

func stubKind(code string, unit Unit) UnitKind {
	return UnitKind{
		Code: code,
		Factory: func(UnitDefinition, UnitDeps) (Unit, error) {
			return unit, nil
		},
	}
}

type recordingRefreshHook struct {
	mu     sync.Mutex
	events []RecordEvent
	err    error
}

func (h *recordingRefreshHook) RecordChanged(_ context.Context, event RecordEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
	return h.err
}
