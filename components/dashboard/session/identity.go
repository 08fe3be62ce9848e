package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
)

// Known role and user type values.
const (
	RoleAdmin    = "admin"
	RoleUser     = "user"
	RoleCustomer = "customer"
	RoleCoworker = "coworker"
)

var (
	// ErrUnauthenticated signals a missing or unreadable credential.
	ErrUnauthenticated = goerrors.New("session: no valid credential", goerrors.CategoryAuth).
				WithTextCode("UNAUTHENTICATED")
	// ErrExpired signals a credential whose expiry is in the past.
	ErrExpired = goerrors.New("session: credential expired", goerrors.CategoryAuth).
			WithTextCode("TOKEN_EXPIRED")
)

// Identity is the viewer decoded from the stored credential. It is advisory
// and only used to select a dashboard configuration.
type Identity struct {
	SubjectID   string    `json:"id"`
	DisplayName string    `json:"name"`
	Role        string    `json:"role"`
	UserType    string    `json:"user_type"`
	IsAdmin     bool      `json:"is_admin"`
	ExpiresAt   time.Time `json:"expires_at,omitzero"`
	Token       string    `json:"-"`
}

// HasExpiry reports whether the credential carried an expiry claim.
func (i Identity) HasExpiry() bool {
	return !i.ExpiresAt.IsZero()
}

// Expired reports whether the identity is past its expiry at now.
func (i Identity) Expired(now time.Time) bool {
	return i.HasExpiry() && !now.Before(i.ExpiresAt)
}

// Admin reports whether any admin indicator is present.
func (i Identity) Admin() bool {
	return i.IsAdmin || i.Role == RoleAdmin || i.UserType == RoleAdmin
}

var parser = jwt.NewParser()

// Decode reads the payload segment of a token without verifying its signature.
func Decode(token string) (Identity, error) {
	token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bearer "))
	if token == "" {
		return Identity{}, ErrUnauthenticated
	}
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	identity := Identity{
		SubjectID:   firstString(claims, "id", "_id", "userId", "sub"),
		DisplayName: firstString(claims, "name", "fullName", "username", "email"),
		Role:        normalizeRole(firstString(claims, "role")),
		UserType:    normalizeRole(firstString(claims, "userType", "type")),
		IsAdmin:     firstBool(claims, "isAdmin", "is_admin"),
		Token:       token,
	}
	if exp != nil {
		identity.ExpiresAt = exp.Time
	}
	return identity, nil
}

func firstString(claims jwt.MapClaims, keys ...string) string {
	for _, key := range keys {
		switch v := claims[key].(type) {
		case string:
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		case float64:
			return fmt.Sprintf("%.0f", v)
		}
	}
	return ""
}

func firstBool(claims jwt.MapClaims, keys ...string) bool {
	for _, key := range keys {
		switch v := claims[key].(type) {
		case bool:
			if v {
				return true
			}
		case string:
			if strings.EqualFold(strings.TrimSpace(v), "true") {
				return true
			}
		}
	}
	return false
}

func normalizeRole(role string) string {
	return strings.ToLower(strings.TrimSpace(role))
}

type identityContextKey struct{}

// ContextWithIdentity stores the identity on the context.
func ContextWithIdentity(ctx context.Context, identity Identity) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, identityContextKey{}, identity)
}

// IdentityFrom returns the identity stored on the context, if any.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	identity, ok := ctx.Value(identityContextKey{}).(Identity)
	return identity, ok
}
