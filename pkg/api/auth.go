package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Credentials are posted to the login endpoint.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// AuthResult is the outcome of login or signup.
type AuthResult struct {
	Token   string
	User    Record
	Message string
}

// Login exchanges credentials for a token.
func (c *Client) Login(ctx context.Context, creds Credentials) (AuthResult, error) {
	if err := ValidateStruct(creds); err != nil {
		return AuthResult{}, err
	}
	return c.auth(ctx, "/auth/login", creds)
}

// Signup registers an account.
func (c *Client) Signup(ctx context.Context, payload Record) (AuthResult, error) {
	return c.auth(ctx, "/auth/signup", payload)
}

// ForgotPassword requests a reset email and returns the server message.
func (c *Client) ForgotPassword(ctx context.Context, email string) (string, error) {
	if err := validate.Var(email, "required,email"); err != nil {
		return "", fieldError("email", "a valid email is required", email)
	}
	env, err := c.do(ctx, http.MethodPost, "/auth/forgot-password", map[string]string{"email": email})
	if err != nil {
		return "", err
	}
	return env.Message, nil
}

func (c *Client) auth(ctx context.Context, path string, payload any) (AuthResult, error) {
	env, err := c.do(ctx, http.MethodPost, path, payload)
	if err != nil {
		return AuthResult{}, err
	}
	var data struct {
		Token string `json:"token"`
		User  Record `json:"user"`
	}
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return AuthResult{}, fmt.Errorf("api: decode auth response: %w", err)
		}
	}
	return AuthResult{Token: data.Token, User: data.User, Message: env.Message}, nil
}
