package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"

	dashboard "github.com/goliatone/go-agency-dashboard/components/dashboard"
	"github.com/goliatone/go-agency-dashboard/pkg/api"
)

// SeedRecordsInput controls which records are created. An empty Seed uses
// the demo data for Accounts.
type SeedRecordsInput struct {
	Accounts []api.DemoAccount
	Seed     []dashboard.SeedResource
}

// SeedRecordsCommand creates demo records against the REST API.
type SeedRecordsCommand struct {
	creator   dashboard.RecordCreator
	telemetry Telemetry
}

// NewSeedRecordsCommand wires dependencies.
func NewSeedRecordsCommand(creator dashboard.RecordCreator, telemetry Telemetry) *SeedRecordsCommand {
	return &SeedRecordsCommand{creator: creator, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[SeedRecordsInput] = (*SeedRecordsCommand)(nil)

// Execute runs the seed pipeline.
func (c *SeedRecordsCommand) Execute(ctx context.Context, msg SeedRecordsInput) error {
	if c.creator == nil {
		return errors.New("seed command requires record creator")
	}
	seed := msg.Seed
	if len(seed) == 0 {
		accounts := msg.Accounts
		if len(accounts) == 0 {
			accounts = api.DefaultDemoAccounts()
		}
		seed = dashboard.DemoSeed(accounts)
	}
	err := dashboard.SeedRecords(ctx, c.creator, seed)
	total := 0
	for _, batch := range seed {
		total += len(batch.Records)
	}
	c.telemetry.Record(ctx, "dashboard.seed", map[string]any{
		"resources": len(seed),
		"records":   total,
		"failed":    err != nil,
	})
	return err
}
