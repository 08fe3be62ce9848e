package commands

import (
	"context"
	"errors"
	"strings"

	gocommand "github.com/goliatone/go-command"
	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-agency-dashboard/components/dashboard/session"
	"github.com/goliatone/go-agency-dashboard/pkg/api"
)

// ErrMissingToken is returned when the API accepted credentials but issued
// no token.
var ErrMissingToken = goerrors.New("auth response carried no token", goerrors.CategoryAuth).
	WithTextCode("MISSING_TOKEN")

// AuthOutcome reports who signed in and the server's message.
type AuthOutcome struct {
	Identity session.Identity
	Message  string
}

// LoginInput exchanges Email and Password for a credential saved in Store.
type LoginInput struct {
	Email    string
	Password string
	Store    session.CredentialSaver
	Outcome  *AuthOutcome
}

// SignupInput registers an account and signs it in.
type SignupInput struct {
	Name     string
	Email    string
	Password string
	Store    session.CredentialSaver
	Outcome  *AuthOutcome
}

// ForgotPasswordInput requests a reset email. Message receives the server's
// reply when set.
type ForgotPasswordInput struct {
	Email   string
	Message *string
}

type loginClient interface {
	Login(ctx context.Context, creds api.Credentials) (api.AuthResult, error)
}

type signupClient interface {
	Signup(ctx context.Context, payload api.Record) (api.AuthResult, error)
}

type passwordResetter interface {
	ForgotPassword(ctx context.Context, email string) (string, error)
}

type loginService interface {
	Login(ctx context.Context, identity session.Identity)
}

// LoginCommand signs a user in through the API.
type LoginCommand struct {
	client    loginClient
	service   loginService
	telemetry Telemetry
}

// NewLoginCommand creates the command. service may be nil.
func NewLoginCommand(client loginClient, service loginService, telemetry Telemetry) *LoginCommand {
	return &LoginCommand{client: client, service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[LoginInput] = (*LoginCommand)(nil)

// Execute validates the credentials with the API and saves the token.
func (c *LoginCommand) Execute(ctx context.Context, msg LoginInput) error {
	if c.client == nil {
		return errors.New("login command requires api client")
	}
	if msg.Store == nil {
		return errors.New("login command requires credential store")
	}
	result, err := c.client.Login(ctx, api.Credentials{
		Email:    strings.TrimSpace(msg.Email),
		Password: msg.Password,
	})
	if err != nil {
		c.telemetry.Record(ctx, "dashboard.command.login_failed", map[string]any{"email": msg.Email})
		return err
	}
	identity, err := signIn(ctx, msg.Store, result)
	if err != nil {
		return err
	}
	if c.service != nil {
		c.service.Login(ctx, identity)
	}
	if msg.Outcome != nil {
		*msg.Outcome = AuthOutcome{Identity: identity, Message: result.Message}
	}
	c.telemetry.Record(ctx, "dashboard.command.login", map[string]any{"subject": identity.SubjectID})
	return nil
}

// SignupCommand registers a user and signs them in.
type SignupCommand struct {
	client    signupClient
	service   loginService
	telemetry Telemetry
}

// NewSignupCommand creates the command. service may be nil.
func NewSignupCommand(client signupClient, service loginService, telemetry Telemetry) *SignupCommand {
	return &SignupCommand{client: client, service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[SignupInput] = (*SignupCommand)(nil)

func (c *SignupCommand) Execute(ctx context.Context, msg SignupInput) error {
	if c.client == nil {
		return errors.New("signup command requires api client")
	}
	if msg.Store == nil {
		return errors.New("signup command requires credential store")
	}
	result, err := c.client.Signup(ctx, api.Record{
		"name":     strings.TrimSpace(msg.Name),
		"email":    strings.TrimSpace(msg.Email),
		"password": msg.Password,
	})
	if err != nil {
		return err
	}
	identity, err := signIn(ctx, msg.Store, result)
	if err != nil {
		return err
	}
	if c.service != nil {
		c.service.Login(ctx, identity)
	}
	if msg.Outcome != nil {
		*msg.Outcome = AuthOutcome{Identity: identity, Message: result.Message}
	}
	c.telemetry.Record(ctx, "dashboard.command.signup", map[string]any{"subject": identity.SubjectID})
	return nil
}

// ForgotPasswordCommand asks the API to send a reset email.
type ForgotPasswordCommand struct {
	client    passwordResetter
	telemetry Telemetry
}

// NewForgotPasswordCommand creates the command.
func NewForgotPasswordCommand(client passwordResetter, telemetry Telemetry) *ForgotPasswordCommand {
	return &ForgotPasswordCommand{client: client, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[ForgotPasswordInput] = (*ForgotPasswordCommand)(nil)

func (c *ForgotPasswordCommand) Execute(ctx context.Context, msg ForgotPasswordInput) error {
	if c.client == nil {
		return errors.New("forgot password command requires api client")
	}
	message, err := c.client.ForgotPassword(ctx, strings.TrimSpace(msg.Email))
	if err != nil {
		return err
	}
	if msg.Message != nil {
		*msg.Message = message
	}
	c.telemetry.Record(ctx, "dashboard.command.forgot_password", nil)
	return nil
}

// signIn decodes the issued token and saves it. A token that does not decode
// is never stored.
func signIn(ctx context.Context, store session.CredentialSaver, result api.AuthResult) (session.Identity, error) {
	if result.Token == "" {
		return session.Identity{}, ErrMissingToken
	}
	identity, err := session.Decode(result.Token)
	if err != nil {
		return session.Identity{}, err
	}
	if err := store.Save(ctx, result.Token); err != nil {
		return session.Identity{}, err
	}
	return identity, nil
}
