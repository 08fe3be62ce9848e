package commands

import (
	"context"
	"errors"
	"io"
	"net/url"

	gocommand "github.com/goliatone/go-command"

	dashboard "github.com/goliatone/go-agency-dashboard/components/dashboard"
	"github.com/goliatone/go-agency-dashboard/components/dashboard/session"
)

// ExportTableInput renders the table page described by Query into Writer.
type ExportTableInput struct {
	Identity session.Identity
	UnitKey  string
	Query    url.Values
	Locale   string
	Writer   io.Writer
}

type exportService interface {
	Export(ctx context.Context, req dashboard.UnitRequest, w io.Writer) error
}

// ExportTableCommand wraps Service.Export.
type ExportTableCommand struct {
	service   exportService
	telemetry Telemetry
}

// NewExportTableCommand creates the command.
func NewExportTableCommand(service exportService, telemetry Telemetry) *ExportTableCommand {
	return &ExportTableCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[ExportTableInput] = (*ExportTableCommand)(nil)

// Execute writes the export.
func (c *ExportTableCommand) Execute(ctx context.Context, msg ExportTableInput) error {
	if c.service == nil {
		return errors.New("export command requires service")
	}
	if msg.Writer == nil {
		return errors.New("export command requires writer")
	}
	if err := c.service.Export(ctx, dashboard.UnitRequest{
		Identity: msg.Identity,
		Key:      msg.UnitKey,
		Query:    msg.Query,
		Locale:   msg.Locale,
	}, msg.Writer); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "dashboard.command.export", map[string]any{"unit": msg.UnitKey})
	return nil
}
