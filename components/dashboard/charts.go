package dashboard

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"github.com/goliatone/go-agency-dashboard/pkg/api"
)

const defaultChartHeight = "360px"

// ChartState is the render outcome of a chart.
type ChartState string

const (
	ChartNoData ChartState = "no_data"
	ChartError  ChartState = "error"
	ChartReady  ChartState = "ready"
)

// ChartRequest describes one chart. Either Data or Fetch supplies records.
// Fetch reports partial when it stopped before the last page.
type ChartRequest struct {
	DataType string
	Kind     ChartKind
	Title    string
	Data     []api.Record
	Fetch    func(ctx context.Context) (records []api.Record, partial bool, err error)
	// RetryURL is offered on the error state for a manual retry.
	RetryURL string
}

// ChartView is the renderable chart model.
type ChartView struct {
	State    ChartState `json:"state"`
	DataType string     `json:"data_type"`
	Kind     ChartKind  `json:"kind"`
	Title    string     `json:"title"`
	HTML     string     `json:"html,omitempty"`
	Buckets  []Bucket   `json:"buckets,omitempty"`
	Summary  Summary    `json:"summary"`
	// Partial is set when the records were capped before the last page.
	Partial  bool   `json:"partial,omitempty"`
	Error    string `json:"error,omitempty"`
	RetryURL string `json:"retry_url,omitempty"`
}

// ChartRenderer aggregates records and renders go-echarts markup.
type ChartRenderer struct {
	cache      RenderCache
	theme      string
	assetsHost string
	height     string
}

// ChartRendererOption customizes the renderer.
type ChartRendererOption func(*ChartRenderer)

// WithChartCache injects a render cache.
func WithChartCache(cache RenderCache) ChartRendererOption {
	return func(r *ChartRenderer) {
		r.cache = cache
	}
}

// WithChartTheme sets the theme (defaults to Westeros).
func WithChartTheme(theme string) ChartRendererOption {
	return func(r *ChartRenderer) {
		if theme != "" {
			r.theme = theme
		}
	}
}

// WithChartAssetsHost rewrites the assets host so ECharts JS loads from a CDN.
func WithChartAssetsHost(host string) ChartRendererOption {
	return func(r *ChartRenderer) {
		r.assetsHost = host
	}
}

// NewChartRenderer builds a renderer without a cache unless one is given.
func NewChartRenderer(opts ...ChartRendererOption) *ChartRenderer {
	r := &ChartRenderer{
		theme:  types.ThemeWesteros,
		height: defaultChartHeight,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render returns the chart in one of three states. A failed fetch yields the
// error state with the retry URL; it is never retried automatically.
func (r *ChartRenderer) Render(ctx context.Context, req ChartRequest) ChartView {
	preset := PresetFor(req.DataType)
	view := ChartView{
		DataType: req.DataType,
		Kind:     preset.Kind,
		Title:    preset.Title,
	}
	if req.Kind != "" {
		view.Kind = req.Kind
	}
	if req.Title != "" {
		view.Title = req.Title
	}

	records := req.Data
	if records == nil && req.Fetch != nil {
		fetched, partial, err := req.Fetch(ctx)
		if err != nil {
			view.State = ChartError
			view.Error = api.MessageFrom(err, "Could not load chart data.")
			view.RetryURL = req.RetryURL
			return view
		}
		records = fetched
		view.Partial = partial
	}
	if len(records) == 0 {
		view.State = ChartNoData
		return view
	}

	view.Buckets = Aggregate(records, preset)
	view.Summary = Summarize(view.Buckets)

	render := func() (string, error) {
		return r.render(view.Kind, view.Title, preset, view.Buckets)
	}
	var (
		html string
		err  error
	)
	if r.cache != nil {
		key := fmt.Sprintf("%s:%s:%s:%s", req.DataType, view.Kind, r.theme, contentHash(view.Buckets))
		html, err = r.cache.GetOrRender(key, render)
	} else {
		html, err = render()
	}
	if err != nil {
		view.State = ChartError
		view.Error = err.Error()
		view.RetryURL = req.RetryURL
		return view
	}
	view.State = ChartReady
	view.HTML = html
	return view
}

func (r *ChartRenderer) render(kind ChartKind, title string, preset ChartPreset, buckets []Bucket) (string, error) {
	names := make([]string, len(buckets))
	for i, b := range buckets {
		names[i] = b.Name
	}
	series := seriesName(preset)
	switch kind {
	case ChartBar:
		bar := charts.NewBar()
		bar.SetGlobalOptions(r.globalChartOptions(title, preset)...)
		bar.SetXAxis(names)
		bar.AddSeries(series, toBarData(buckets))
		return renderChart(bar)
	case ChartLine, ChartArea:
		line := charts.NewLine()
		line.SetGlobalOptions(r.globalChartOptions(title, preset)...)
		line.SetXAxis(names)
		line.AddSeries(series, toLineData(buckets))
		line.SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))
		if kind == ChartArea {
			line.SetSeriesOptions(charts.WithAreaStyleOpts(opts.AreaStyle{Opacity: 0.3}))
		}
		return renderChart(line)
	case ChartPie:
		pie := charts.NewPie()
		pie.SetGlobalOptions(r.globalChartOptions(title, preset)...)
		pie.AddSeries(series, toPieData(buckets))
		return renderChart(pie)
	default:
		return "", fmt.Errorf("dashboard: unsupported chart kind: %s", kind)
	}
}

func renderChart(renderable interface{ Render(io.Writer) error }) (string, error) {
	var buf bytes.Buffer
	if err := renderable.Render(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (r *ChartRenderer) globalChartOptions(title string, preset ChartPreset) []charts.GlobalOpts {
	initOpts := opts.Initialization{
		Theme:  r.theme,
		Width:  "100%",
		Height: r.height,
	}
	if r.assetsHost != "" {
		initOpts.AssetsHost = r.assetsHost
	}
	global := []charts.GlobalOpts{
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithInitializationOpts(initOpts),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	}
	if len(preset.Palette) > 0 {
		global = append(global, charts.WithColorsOpts(opts.Colors(preset.Palette)))
	}
	return global
}

func seriesName(preset ChartPreset) string {
	if preset.ValueKey == "" || preset.ValueKey == CountKey {
		return "Count"
	}
	return titleize(preset.ValueKey)
}

func toBarData(buckets []Bucket) []opts.BarData {
	data := make([]opts.BarData, len(buckets))
	for i, b := range buckets {
		data[i] = opts.BarData{Name: b.Name, Value: b.Value.InexactFloat64()}
	}
	return data
}

func toLineData(buckets []Bucket) []opts.LineData {
	data := make([]opts.LineData, len(buckets))
	for i, b := range buckets {
		data[i] = opts.LineData{Name: b.Name, Value: b.Value.InexactFloat64()}
	}
	return data
}

func toPieData(buckets []Bucket) []opts.PieData {
	data := make([]opts.PieData, len(buckets))
	for i, b := range buckets {
		name := b.Name
		if strings.TrimSpace(name) == "" {
			name = fmt.Sprintf("Slice %d", i+1)
		}
		data[i] = opts.PieData{Name: name, Value: b.Value.InexactFloat64()}
	}
	return data
}
