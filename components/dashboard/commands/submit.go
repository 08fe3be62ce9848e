package commands

import (
	"context"
	"errors"
	"net/url"

	gocommand "github.com/goliatone/go-command"

	dashboard "github.com/goliatone/go-agency-dashboard/components/dashboard"
	"github.com/goliatone/go-agency-dashboard/components/dashboard/session"
)

// SubmitUnitInput posts form values to a unit. Outcome, when set, receives the
// submission result, including field errors on a rejected submit.
type SubmitUnitInput struct {
	Identity  session.Identity
	UnitKey   string
	Values    url.Values
	Locale    string
	TenantID  string
	RequestID string
	Outcome   *dashboard.SubmitOutcome
}

type submitService interface {
	Submit(ctx context.Context, req dashboard.UnitRequest) (dashboard.SubmitOutcome, error)
}

// SubmitUnitCommand wraps Service.Submit so every transport shares the same
// activity context and telemetry.
type SubmitUnitCommand struct {
	service   submitService
	telemetry Telemetry
}

// NewSubmitUnitCommand creates the command.
func NewSubmitUnitCommand(service submitService, telemetry Telemetry) *SubmitUnitCommand {
	return &SubmitUnitCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[SubmitUnitInput] = (*SubmitUnitCommand)(nil)

// Execute submits the values.
func (c *SubmitUnitCommand) Execute(ctx context.Context, msg SubmitUnitInput) error {
	if c.service == nil {
		return errors.New("submit command requires service")
	}
	if msg.UnitKey == "" {
		return errors.New("submit command requires unit key")
	}
	ctx = dashboard.ContextWithActivity(ctx, dashboard.ActivityContext{
		TenantID:  msg.TenantID,
		RequestID: msg.RequestID,
	})
	outcome, err := c.service.Submit(ctx, dashboard.UnitRequest{
		Identity: msg.Identity,
		Key:      msg.UnitKey,
		Values:   msg.Values,
		Locale:   msg.Locale,
	})
	if msg.Outcome != nil {
		*msg.Outcome = outcome
	}
	if err != nil {
		return err
	}
	c.telemetry.Record(ctx, "dashboard.command.submit", map[string]any{
		"unit":      msg.UnitKey,
		"resource":  outcome.Event.Resource,
		"record_id": outcome.Event.RecordID,
	})
	return nil
}
