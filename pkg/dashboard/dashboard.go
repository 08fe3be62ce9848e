// Package dashboard re-exports the agency dashboard service for host apps.
package dashboard

import (
	core "github.com/goliatone/go-agency-dashboard/components/dashboard"
)

// Service exposes the underlying components/dashboard.Service type.
type Service = core.Service

// Options re-export for convenience.
type Options = core.Options

// Configuration is one role's ordered menu.
type Configuration = core.DashboardConfiguration

// NewService proxies to the internal constructor.
func NewService(opts Options) (*Service, error) {
	return core.NewService(opts)
}

// MustNewService panics when the role configurations do not build. It suits
// mains wiring only built-in roles.
func MustNewService(opts Options) *Service {
	svc, err := core.NewService(opts)
	if err != nil {
		panic(err)
	}
	return svc
}
