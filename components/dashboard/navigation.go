package dashboard

import (
	"net/url"
	"sync"
)

// TabParam is the query parameter carrying the active menu entry.
const TabParam = "tab"

// History is the browser-history surface the navigator drives.
type History interface {
	Location() *url.URL
	Push(u *url.URL)
	Replace(u *url.URL)
}

// NavState is the navigator lifecycle state.
type NavState int

const (
	NavUninitialized NavState = iota
	NavResolved
)

func (s NavState) String() string {
	if s == NavResolved {
		return "resolved"
	}
	return "uninitialized"
}

// Navigator resolves the active menu entry from the tab parameter and keeps
// history in sync with selection changes. The rendered unit is always the
// one bound to the active key.
type Navigator struct {
	mu      sync.Mutex
	config  *DashboardConfiguration
	history History
	state   NavState
	active  string
}

// NewNavigator binds a configuration to a history.
func NewNavigator(config *DashboardConfiguration, history History) *Navigator {
	return &Navigator{config: config, history: history}
}

// Mount resolves the initial selection. A missing or unknown tab falls back
// to the first entry and the location is replaced, never pushed.
func (n *Navigator) Mount() ActiveSelection {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.state = NavResolved
	tab := tabFrom(n.history.Location())
	if entry, ok := n.config.Entry(tab); ok {
		n.active = entry.Key
		return ActiveSelection{Key: entry.Key, Entry: entry}
	}
	first, ok := n.config.First()
	if !ok {
		n.active = ""
		return ActiveSelection{}
	}
	n.active = first.Key
	n.history.Replace(withTab(n.history.Location(), first.Key))
	return ActiveSelection{Key: first.Key, Entry: first}
}

// Select activates key and pushes a history entry.
func (n *Navigator) Select(key string) (ActiveSelection, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	entry, ok := n.config.Entry(key)
	if !ok {
		return n.selection(), ErrUnknownEntry
	}
	n.state = NavResolved
	if n.active != key {
		n.history.Push(withTab(n.history.Location(), key))
	}
	n.active = key
	return ActiveSelection{Key: key, Entry: entry}, nil
}

// PopState re-reads the tab after back/forward navigation. It reports
// whether the selection changed.
func (n *Navigator) PopState() (ActiveSelection, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	tab := tabFrom(n.history.Location())
	entry, ok := n.config.Entry(tab)
	if !ok || tab == n.active {
		return n.selection(), false
	}
	n.state = NavResolved
	n.active = entry.Key
	return ActiveSelection{Key: entry.Key, Entry: entry}, true
}

// Active returns the current selection.
func (n *Navigator) Active() ActiveSelection {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.selection()
}

// State returns the lifecycle state.
func (n *Navigator) State() NavState {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

func (n *Navigator) selection() ActiveSelection {
	entry, ok := n.config.Entry(n.active)
	if !ok {
		return ActiveSelection{}
	}
	return ActiveSelection{Key: entry.Key, Entry: entry}
}

func tabFrom(u *url.URL) string {
	if u == nil {
		return ""
	}
	return u.Query().Get(TabParam)
}

// withTab copies u with tab set, keeping the other query parameters.
func withTab(u *url.URL, key string) *url.URL {
	next := &url.URL{}
	if u != nil {
		copied := *u
		next = &copied
	}
	query := next.Query()
	query.Set(TabParam, key)
	next.RawQuery = query.Encode()
	return next
}

// MemoryHistory is an in-process history stack with back/forward.
type MemoryHistory struct {
	mu      sync.Mutex
	entries []*url.URL
	index   int
}

// NewMemoryHistory starts a history at raw.
func NewMemoryHistory(raw string) (*MemoryHistory, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	return &MemoryHistory{entries: []*url.URL{u}}, nil
}

func (h *MemoryHistory) Location() *url.URL {
	h.mu.Lock()
	defer h.mu.Unlock()
	copied := *h.entries[h.index]
	return &copied
}

// Push drops forward entries and appends u.
func (h *MemoryHistory) Push(u *url.URL) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries[:h.index+1], u)
	h.index = len(h.entries) - 1
}

func (h *MemoryHistory) Replace(u *url.URL) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries[h.index] = u
}

// Back moves one entry back. It reports false at the start of history.
func (h *MemoryHistory) Back() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.index == 0 {
		return false
	}
	h.index--
	return true
}

// Forward moves one entry forward.
func (h *MemoryHistory) Forward() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.index >= len(h.entries)-1 {
		return false
	}
	h.index++
	return true
}

// Len returns the number of history entries.
func (h *MemoryHistory) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// RequestHistory adapts a single HTTP request. Push and Replace record the
// location the client should be redirected to.
type RequestHistory struct {
	current  *url.URL
	redirect *url.URL
}

// NewRequestHistory wraps the request URL.
func NewRequestHistory(u *url.URL) *RequestHistory {
	if u == nil {
		u = &url.URL{}
	}
	return &RequestHistory{current: u}
}

func (h *RequestHistory) Location() *url.URL {
	copied := *h.current
	return &copied
}

func (h *RequestHistory) Push(u *url.URL) { h.navigate(u) }

func (h *RequestHistory) Replace(u *url.URL) { h.navigate(u) }

func (h *RequestHistory) navigate(u *url.URL) {
	h.current = u
	h.redirect = u
}

// Redirect returns the location to redirect to, if navigation happened.
func (h *RequestHistory) Redirect() (string, bool) {
	if h.redirect == nil {
		return "", false
	}
	return h.redirect.RequestURI(), true
}
