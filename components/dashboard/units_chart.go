package dashboard

import (
	"context"
	"fmt"

	"github.com/goliatone/go-agency-dashboard/pkg/api"
)

const (
	defaultChartFetchLimit = 100
	defaultChartMaxRecords = 1000
)

type chartUnitConfig struct {
	DataType   string `json:"data_type,omitempty" yaml:"data_type,omitempty"`
	Kind       string `json:"kind,omitempty" yaml:"kind,omitempty"`
	Title      string `json:"title,omitempty" yaml:"title,omitempty"`
	Scope      string `json:"scope,omitempty" yaml:"scope,omitempty"`
	OwnerField string `json:"owner_field,omitempty" yaml:"owner_field,omitempty"`
	Limit      int    `json:"limit,omitempty" yaml:"limit,omitempty"`
	MaxRecords int    `json:"max_records,omitempty" yaml:"max_records,omitempty"`
}

// chartUnit aggregates one resource into a chart and summary.
type chartUnit struct {
	cfg    chartUnitConfig
	api    RecordsAPI
	charts *ChartRenderer
}

func newChartUnit(def UnitDefinition, deps UnitDeps) (Unit, error) {
	var cfg chartUnitConfig
	if err := decodeConfig(def.Config, &cfg); err != nil {
		return nil, fmt.Errorf("dashboard: decode chart config: %w", err)
	}
	return buildChartUnit(cfg, deps)
}

func buildChartUnit(cfg chartUnitConfig, deps UnitDeps) (*chartUnit, error) {
	if cfg.DataType == "" {
		return nil, fmt.Errorf("dashboard: chart unit needs a data_type")
	}
	if deps.API == nil {
		return nil, errMissingAPI
	}
	if cfg.Limit <= 0 {
		cfg.Limit = defaultChartFetchLimit
	}
	if cfg.MaxRecords <= 0 {
		cfg.MaxRecords = defaultChartMaxRecords
	}
	if cfg.Scope == ScopeOwn && cfg.OwnerField == "" {
		cfg.OwnerField = defaultOwnerField
	}
	charts := deps.Charts
	if charts == nil {
		charts = NewChartRenderer()
	}
	return &chartUnit{cfg: cfg, api: deps.API, charts: charts}, nil
}

func (u *chartUnit) chart(ctx context.Context, uc UnitContext) ChartView {
	preset := PresetFor(u.cfg.DataType)
	return u.charts.Render(ctx, ChartRequest{
		DataType: u.cfg.DataType,
		Kind:     ChartKind(u.cfg.Kind),
		Title:    u.cfg.Title,
		RetryURL: uc.URL(nil),
		Fetch: func(ctx context.Context) ([]api.Record, bool, error) {
			q := api.ListQuery{Page: 1, Limit: u.cfg.Limit}
			if u.cfg.Scope == ScopeOwn {
				q.Filters = map[string]string{u.cfg.OwnerField: uc.Identity.SubjectID}
			}
			return fetchAll(ctx, u.api, preset.Resource, q, u.cfg.MaxRecords)
		},
	})
}

// fetchAll follows pagination from q.Page until the server reports no next
// page. It stops at maxRecords and reports the result as partial when more
// pages remained.
func fetchAll(ctx context.Context, client RecordsAPI, resource string, q api.ListQuery, maxRecords int) ([]api.Record, bool, error) {
	if q.Page <= 0 {
		q.Page = 1
	}
	var records []api.Record
	for {
		result, err := client.List(ctx, resource, q)
		if err != nil {
			return nil, false, err
		}
		records = append(records, result.Records...)
		more := result.Pagination.HasNextPage && len(result.Records) > 0
		if maxRecords > 0 && len(records) >= maxRecords {
			partial := more || len(records) > maxRecords
			return records[:maxRecords], partial, nil
		}
		if !more {
			return records, false, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}
		next := q.Page + 1
		if current := result.Pagination.CurrentPage; current >= q.Page {
			next = current + 1
		}
		q.Page = next
	}
}

func (u *chartUnit) Render(ctx context.Context, uc UnitContext) (UnitData, error) {
	view := u.chart(ctx, uc)
	return UnitData{
		"title": view.Title,
		"chart": view,
	}, nil
}

type statConfig struct {
	Label    string            `json:"label,omitempty" yaml:"label,omitempty"`
	Resource string            `json:"resource,omitempty" yaml:"resource,omitempty"`
	Filters  map[string]string `json:"filters,omitempty" yaml:"filters,omitempty"`
	Icon     string            `json:"icon,omitempty" yaml:"icon,omitempty"`
}

type overviewUnitConfig struct {
	Title  string            `json:"title,omitempty" yaml:"title,omitempty"`
	Stats  []statConfig      `json:"stats,omitempty" yaml:"stats,omitempty"`
	Charts []chartUnitConfig `json:"charts,omitempty" yaml:"charts,omitempty"`
}

// StatView is one counter tile on the overview.
type StatView struct {
	Label string `json:"label"`
	Icon  string `json:"icon,omitempty"`
	Value int    `json:"value"`
	Error string `json:"error,omitempty"`
}

// overviewUnit shows record counters and a grid of charts.
type overviewUnit struct {
	cfg    overviewUnitConfig
	api    RecordsAPI
	charts []*chartUnit
}

func newOverviewUnit(def UnitDefinition, deps UnitDeps) (Unit, error) {
	var cfg overviewUnitConfig
	if err := decodeConfig(def.Config, &cfg); err != nil {
		return nil, fmt.Errorf("dashboard: decode overview config: %w", err)
	}
	if deps.API == nil {
		return nil, errMissingAPI
	}
	unit := &overviewUnit{cfg: cfg, api: deps.API}
	for _, chartCfg := range cfg.Charts {
		chart, err := buildChartUnit(chartCfg, deps)
		if err != nil {
			return nil, err
		}
		unit.charts = append(unit.charts, chart)
	}
	return unit, nil
}

// Render never fails as a whole: a failed counter or chart carries its own
// error state.
func (u *overviewUnit) Render(ctx context.Context, uc UnitContext) (UnitData, error) {
	stats := make([]StatView, 0, len(u.cfg.Stats))
	for _, stat := range u.cfg.Stats {
		view := StatView{Label: stat.Label, Icon: stat.Icon}
		result, err := u.api.List(ctx, stat.Resource, api.ListQuery{Page: 1, Limit: 1, Filters: stat.Filters})
		if err != nil {
			view.Error = api.MessageFrom(err, "Unavailable")
		} else {
			view.Value = result.Pagination.TotalItems
			if view.Value == 0 {
				view.Value = len(result.Records)
			}
		}
		stats = append(stats, view)
	}
	charts := make([]ChartView, 0, len(u.charts))
	for _, chart := range u.charts {
		charts = append(charts, chart.chart(ctx, uc))
	}
	return UnitData{
		"title":  u.cfg.Title,
		"stats":  stats,
		"charts": charts,
	}, nil
}
