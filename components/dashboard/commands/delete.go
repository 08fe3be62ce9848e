package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"

	dashboard "github.com/goliatone/go-agency-dashboard/components/dashboard"
	"github.com/goliatone/go-agency-dashboard/components/dashboard/session"
)

// DeleteRecordInput identifies the record to delete through a table unit.
type DeleteRecordInput struct {
	Identity  session.Identity `json:"-"`
	UnitKey   string           `json:"unit_key"`
	RecordID  string           `json:"record_id"`
	TenantID  string           `json:"tenant_id,omitempty"`
	RequestID string           `json:"request_id,omitempty"`
}

type deleteService interface {
	Delete(ctx context.Context, req dashboard.UnitRequest) (dashboard.RecordEvent, error)
}

// DeleteRecordCommand wraps Service.Delete.
type DeleteRecordCommand struct {
	service   deleteService
	telemetry Telemetry
}

// NewDeleteRecordCommand creates the command.
func NewDeleteRecordCommand(service deleteService, telemetry Telemetry) *DeleteRecordCommand {
	return &DeleteRecordCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[DeleteRecordInput] = (*DeleteRecordCommand)(nil)

// Execute deletes the record.
func (c *DeleteRecordCommand) Execute(ctx context.Context, msg DeleteRecordInput) error {
	if c.service == nil {
		return errors.New("delete command requires service")
	}
	if msg.UnitKey == "" || msg.RecordID == "" {
		return errors.New("delete command requires unit key and record id")
	}
	ctx = dashboard.ContextWithActivity(ctx, dashboard.ActivityContext{
		TenantID:  msg.TenantID,
		RequestID: msg.RequestID,
	})
	event, err := c.service.Delete(ctx, dashboard.UnitRequest{
		Identity: msg.Identity,
		Key:      msg.UnitKey,
		RecordID: msg.RecordID,
	})
	if err != nil {
		return err
	}
	c.telemetry.Record(ctx, "dashboard.command.delete", map[string]any{
		"unit":      msg.UnitKey,
		"resource":  event.Resource,
		"record_id": event.RecordID,
	})
	return nil
}
