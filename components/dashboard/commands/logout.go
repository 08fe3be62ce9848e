package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"

	"github.com/goliatone/go-agency-dashboard/components/dashboard/session"
)

// LogoutInput clears Store and records the sign out for Identity.
type LogoutInput struct {
	Identity session.Identity
	Store    session.CredentialStore
}

type logoutService interface {
	Logout(ctx context.Context, identity session.Identity)
}

// LogoutCommand clears the stored credential.
type LogoutCommand struct {
	service   logoutService
	telemetry Telemetry
}

// NewLogoutCommand creates the command. service may be nil.
func NewLogoutCommand(service logoutService, telemetry Telemetry) *LogoutCommand {
	return &LogoutCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[LogoutInput] = (*LogoutCommand)(nil)

// Execute clears the credential and records the event.
func (c *LogoutCommand) Execute(ctx context.Context, msg LogoutInput) error {
	if msg.Store == nil {
		return errors.New("logout command requires credential store")
	}
	if err := session.NewReader(msg.Store).Logout(ctx); err != nil {
		return err
	}
	if c.service != nil {
		c.service.Logout(ctx, msg.Identity)
	}
	c.telemetry.Record(ctx, "dashboard.command.logout", map[string]any{"subject": msg.Identity.SubjectID})
	return nil
}
