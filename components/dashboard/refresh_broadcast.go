package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/goliatone/go-agency-dashboard/components/dashboard/session"
)

const subscriberBuffer = 8

// BroadcastHook fans out record events to in-process subscribers so open
// dashboards can refetch. Slow subscribers miss events rather than block the
// sender.
type BroadcastHook struct {
	mu         sync.RWMutex
	subs       map[int]*subscriber
	next       int
	cookieName string
}

type subscriber struct {
	ch        chan RecordEvent
	resources []string
	// viewer is nil for in-process subscribers, which see every event.
	viewer *session.Identity
}

func (s *subscriber) wants(event RecordEvent) bool {
	if len(s.resources) > 0 && !slices.Contains(s.resources, event.Resource) {
		return false
	}
	return s.viewer == nil || EventVisibleTo(*s.viewer, event)
}

// EventVisibleTo reports whether viewer may observe event. Admins see every
// change; everyone else only sees changes they made themselves.
func EventVisibleTo(viewer session.Identity, event RecordEvent) bool {
	if viewer.Admin() {
		return true
	}
	return event.SubjectID != "" && event.SubjectID == viewer.SubjectID
}

// BroadcastOption customizes a BroadcastHook.
type BroadcastOption func(*BroadcastHook)

// WithBroadcastCookie sets the credential cookie read by the HTTP streams.
func WithBroadcastCookie(name string) BroadcastOption {
	return func(h *BroadcastHook) {
		if name != "" {
			h.cookieName = name
		}
	}
}

// NewBroadcastHook creates a broadcast hook.
func NewBroadcastHook(opts ...BroadcastOption) *BroadcastHook {
	h := &BroadcastHook{subs: make(map[int]*subscriber), cookieName: session.DefaultCookieName}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RecordChanged satisfies RefreshHook.
func (h *BroadcastHook) RecordChanged(_ context.Context, event RecordEvent) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subs {
		if !sub.wants(event) {
			continue
		}
		select {
		case sub.ch <- event:
		default:
		}
	}
	return nil
}

// Subscribe returns a channel of every record event and a cancel func. With
// resources set, only events for those resources are delivered.
func (h *BroadcastHook) Subscribe(resources ...string) (<-chan RecordEvent, func()) {
	return h.subscribe(nil, resources)
}

// SubscribeAs is Subscribe narrowed to the events viewer may observe.
func (h *BroadcastHook) SubscribeAs(viewer session.Identity, resources ...string) (<-chan RecordEvent, func()) {
	return h.subscribe(&viewer, resources)
}

func (h *BroadcastHook) subscribe(viewer *session.Identity, resources []string) (<-chan RecordEvent, func()) {
	sub := &subscriber{
		ch:        make(chan RecordEvent, subscriberBuffer),
		resources: slices.DeleteFunc(slices.Clone(resources), func(r string) bool { return r == "" }),
		viewer:    viewer,
	}
	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = sub
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(sub.ch)
		})
	}
	return sub.ch, cancel
}

// Subscribers returns the number of open subscriptions.
func (h *BroadcastHook) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWebSocket upgrades the request and streams record events as JSON.
// Repeated ?resource= parameters narrow the stream. Requests without a valid
// identity are rejected before the upgrade.
func (h *BroadcastHook) ServeWebSocket(w http.ResponseWriter, r *http.Request) {
	viewer, ok := h.authorize(w, r)
	if !ok {
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer conn.Close()
	h.stream(r, viewer, conn.WriteJSON)
}

// ServeSSE streams record events as Server-Sent Events.
func (h *BroadcastHook) ServeSSE(w http.ResponseWriter, r *http.Request) {
	viewer, ok := h.authorize(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher, _ := w.(http.Flusher)
	if flusher != nil {
		flusher.Flush()
	}
	h.stream(r, viewer, func(event any) error {
		payload, err := json.Marshal(event)
		if err != nil {
			return err
		}
		if _, err := w.Write(append(append([]byte("event: record\ndata: "), payload...), '\n', '\n')); err != nil {
			return err
		}
		if flusher != nil {
			flusher.Flush()
		}
		return nil
	})
}

// authorize resolves the viewer from the request context or the credential
// cookie and answers the failure when there is none.
func (h *BroadcastHook) authorize(w http.ResponseWriter, r *http.Request) (session.Identity, bool) {
	if viewer, ok := session.IdentityFrom(r.Context()); ok && viewer.SubjectID != "" {
		return viewer, true
	}
	store := session.NewCookieStore(h.cookieName, r.Header.Get("Cookie"), func(c *http.Cookie) {
		http.SetCookie(w, c)
	})
	viewer, err := session.NewReader(store).Identity(r.Context())
	if err != nil {
		status := StatusFor(err)
		http.Error(w, http.StatusText(status), status)
		return session.Identity{}, false
	}
	return viewer, true
}

func (h *BroadcastHook) stream(r *http.Request, viewer session.Identity, write func(any) error) {
	events, cancel := h.SubscribeAs(viewer, r.URL.Query()["resource"]...)
	defer cancel()
	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := write(event); err != nil {
				return
			}
		}
	}
}

// RefreshHooks fans one event out to several hooks and joins their errors.
type RefreshHooks []RefreshHook

func (hooks RefreshHooks) RecordChanged(ctx context.Context, event RecordEvent) error {
	var errs []error
	for _, hook := range hooks {
		if hook == nil {
			continue
		}
		if err := hook.RecordChanged(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
