package queries

import (
	"context"

	gocommand "github.com/goliatone/go-command"

	dashboard "github.com/goliatone/go-agency-dashboard/components/dashboard"
)

type pageService interface {
	Resolve(ctx context.Context, req dashboard.ResolveRequest) (dashboard.Page, error)
}

// DashboardPageQuery executes read-only page resolution.
type DashboardPageQuery struct {
	service pageService
}

// NewDashboardPageQuery builds the query.
func NewDashboardPageQuery(service pageService) *DashboardPageQuery {
	return &DashboardPageQuery{service: service}
}

var _ gocommand.Querier[dashboard.ResolveRequest, dashboard.Page] = (*DashboardPageQuery)(nil)

// Query resolves the page for the request's identity and URL.
func (q *DashboardPageQuery) Query(ctx context.Context, req dashboard.ResolveRequest) (dashboard.Page, error) {
	return q.service.Resolve(ctx, req)
}
