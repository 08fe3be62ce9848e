package api

import (
	"context"
	"errors"
	"sync"
)

// ErrStaleResponse is returned for a response superseded by a newer request.
var ErrStaleResponse = errors.New("api: response superseded by a newer request")

// ListFunc fetches one page.
type ListFunc func(ctx context.Context, q ListQuery) (ListResult, error)

// ListLoader serializes overlapping list fetches so the last request wins.
// Every Load takes a monotonically increasing token and cancels the request
// it supersedes; a response whose token is no longer the latest is dropped.
type ListLoader struct {
	fetch ListFunc

	mu     sync.Mutex
	latest uint64
	cancel context.CancelFunc
}

// NewListLoader wraps fetch.
func NewListLoader(fetch ListFunc) *ListLoader {
	return &ListLoader{fetch: fetch}
}

// Load issues a new fetch and returns its token alongside the result.
func (l *ListLoader) Load(ctx context.Context, q ListQuery) (ListResult, uint64, error) {
	l.mu.Lock()
	if l.cancel != nil {
		l.cancel()
	}
	l.latest++
	token := l.latest
	reqCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.mu.Unlock()

	result, err := l.fetch(reqCtx, q)

	l.mu.Lock()
	stale := token != l.latest
	if !stale {
		l.cancel = nil
	}
	l.mu.Unlock()
	cancel()

	if stale {
		return ListResult{}, token, ErrStaleResponse
	}
	return result, token, err
}

// Cancel aborts the in-flight request, if any. Its response will be stale.
func (l *ListLoader) Cancel() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.latest++
}

// Latest returns the most recently issued token.
func (l *ListLoader) Latest() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.latest
}
