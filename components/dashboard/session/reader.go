package session

import (
	"context"
	"errors"
	"time"
)

// Reader turns the stored credential into an Identity.
type Reader struct {
	store CredentialStore
	now   func() time.Time
}

// ReaderOption customizes a Reader.
type ReaderOption func(*Reader)

// WithClock overrides the clock used for expiry checks.
func WithClock(now func() time.Time) ReaderOption {
	return func(r *Reader) {
		if now != nil {
			r.now = now
		}
	}
}

// NewReader builds a reader over store.
func NewReader(store CredentialStore, opts ...ReaderOption) *Reader {
	r := &Reader{store: store, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Identity reads and decodes the stored credential. Reading has no side
// effects except on an expired or unreadable credential, which is cleared.
func (r *Reader) Identity(ctx context.Context) (Identity, error) {
	if r == nil || r.store == nil {
		return Identity{}, ErrUnauthenticated
	}
	token, ok := r.store.Token(ctx)
	if !ok || token == "" {
		return Identity{}, ErrUnauthenticated
	}
	identity, err := Decode(token)
	if err != nil {
		if clearErr := r.store.Clear(ctx); clearErr != nil {
			return Identity{}, errors.Join(err, clearErr)
		}
		return Identity{}, err
	}
	if identity.Expired(r.now()) {
		if err := r.store.Clear(ctx); err != nil {
			return Identity{}, errors.Join(ErrExpired, err)
		}
		return Identity{}, ErrExpired
	}
	return identity, nil
}

// Logout clears the stored credential.
func (r *Reader) Logout(ctx context.Context) error {
	if r == nil || r.store == nil {
		return nil
	}
	return r.store.Clear(ctx)
}
