package session

import (
	"context"
	"net/http"
	"sync"
)

// DefaultCookieName is the cookie holding the stored credential.
const DefaultCookieName = "agency_token"

// CredentialStore holds the single stored credential string.
type CredentialStore interface {
	Token(ctx context.Context) (string, bool)
	Clear(ctx context.Context) error
}

// CredentialSaver is a store that can also persist a freshly issued
// credential, as a login does.
type CredentialSaver interface {
	CredentialStore
	Save(ctx context.Context, token string) error
}

// MemoryStore keeps the credential in memory. Useful for tests and CLIs.
type MemoryStore struct {
	mu    sync.RWMutex
	token string
}

// NewMemoryStore returns a store seeded with token (may be empty).
func NewMemoryStore(token string) *MemoryStore {
	return &MemoryStore{token: token}
}

// Set replaces the stored credential, as a login would.
func (s *MemoryStore) Set(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

// Save stores token.
func (s *MemoryStore) Save(_ context.Context, token string) error {
	s.Set(token)
	return nil
}

// Token returns the stored credential.
func (s *MemoryStore) Token(context.Context) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.token != ""
}

// Clear removes the stored credential.
func (s *MemoryStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	return nil
}

// CookieStore reads the credential from a raw Cookie header and clears it by
// emitting an expired Set-Cookie through the provided callback.
type CookieStore struct {
	name    string
	token   string
	cleared bool
	emit    func(*http.Cookie)
}

// NewCookieStore parses header and looks up the named cookie.
func NewCookieStore(name, header string, emit func(*http.Cookie)) *CookieStore {
	if name == "" {
		name = DefaultCookieName
	}
	store := &CookieStore{name: name, emit: emit}
	if header == "" {
		return store
	}
	req := &http.Request{Header: http.Header{"Cookie": []string{header}}}
	if cookie, err := req.Cookie(name); err == nil {
		store.token = cookie.Value
	}
	return store
}

// Token returns the cookie value, unless it was cleared.
func (s *CookieStore) Token(context.Context) (string, bool) {
	if s.cleared || s.token == "" {
		return "", false
	}
	return s.token, true
}

// Save emits the credential cookie. The cookie expires with the token when
// the token carries an expiry claim.
func (s *CookieStore) Save(_ context.Context, token string) error {
	if token == "" {
		return ErrUnauthenticated
	}
	s.token = token
	s.cleared = false
	if s.emit == nil {
		return nil
	}
	cookie := &http.Cookie{
		Name:     s.name,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if identity, err := Decode(token); err == nil && identity.HasExpiry() {
		cookie.Expires = identity.ExpiresAt
	}
	s.emit(cookie)
	return nil
}

// Clear expires the cookie on the client.
func (s *CookieStore) Clear(context.Context) error {
	s.cleared = true
	s.token = ""
	if s.emit != nil {
		s.emit(ExpiredCookie(s.name))
	}
	return nil
}

// ExpiredCookie returns a Set-Cookie value that deletes name.
func ExpiredCookie(name string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}
