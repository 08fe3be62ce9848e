package queries

import (
	"context"

	gocommand "github.com/goliatone/go-command"

	dashboard "github.com/goliatone/go-agency-dashboard/components/dashboard"
	"github.com/goliatone/go-agency-dashboard/components/dashboard/session"
)

type configSource interface {
	Configurations() *dashboard.Configurations
}

// ConfigurationQuery selects the dashboard configuration for an identity
// without fetching any unit data.
type ConfigurationQuery struct {
	source configSource
}

// NewConfigurationQuery builds the query.
func NewConfigurationQuery(source configSource) *ConfigurationQuery {
	return &ConfigurationQuery{source: source}
}

var _ gocommand.Querier[session.Identity, *dashboard.DashboardConfiguration] = (*ConfigurationQuery)(nil)

// Query returns dashboard.ErrAccessDenied when no configuration matches.
func (q *ConfigurationQuery) Query(_ context.Context, identity session.Identity) (*dashboard.DashboardConfiguration, error) {
	cfg, ok := q.source.Configurations().ConfigFor(identity)
	if !ok {
		return nil, dashboard.ErrAccessDenied
	}
	return cfg, nil
}
