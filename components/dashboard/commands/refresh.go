package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"

	dashboard "github.com/goliatone/go-agency-dashboard/components/dashboard"
)

// NotifyRecordChangedInput reports a change made outside the dashboard.
type NotifyRecordChangedInput struct {
	Event dashboard.RecordEvent `json:"event"`
}

type refreshNotifier interface {
	NotifyRecordChanged(ctx context.Context, event dashboard.RecordEvent) error
}

// NotifyRecordChangedCommand triggers refresh hooks without forcing transports.
type NotifyRecordChangedCommand struct {
	service   refreshNotifier
	telemetry Telemetry
}

// NewNotifyRecordChangedCommand creates the command.
func NewNotifyRecordChangedCommand(service refreshNotifier, telemetry Telemetry) *NotifyRecordChangedCommand {
	return &NotifyRecordChangedCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[NotifyRecordChangedInput] = (*NotifyRecordChangedCommand)(nil)

// Execute notifies the dashboard service's refresh hooks.
func (c *NotifyRecordChangedCommand) Execute(ctx context.Context, msg NotifyRecordChangedInput) error {
	if c.service == nil {
		return errors.New("refresh command requires service")
	}
	if err := c.service.NotifyRecordChanged(ctx, msg.Event); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "dashboard.command.refresh", map[string]any{
		"resource":  msg.Event.Resource,
		"record_id": msg.Event.RecordID,
	})
	return nil
}
