package dashboard

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/goliatone/go-agency-dashboard/pkg/api"
)

// ChartKind selects the visualization.
type ChartKind string

const (
	ChartBar  ChartKind = "bar"
	ChartPie  ChartKind = "pie"
	ChartLine ChartKind = "line"
	ChartArea ChartKind = "area"
)

// CountKey as a ValueKey means the bucket value is the record count.
const CountKey = "count"

// UnknownLabel names the bucket for records without a grouping value.
const UnknownLabel = "Unknown"

// ChartPreset is the per data-type default for grouping and display.
type ChartPreset struct {
	DataType string
	Resource string
	Title    string
	GroupBy  string
	ValueKey string
	Kind     ChartKind
	Palette  []string
	// Labels translates known enumeration values to display labels.
	Labels map[string]string
}

// Bucket is one aggregated group.
type Bucket struct {
	Name  string          `json:"name"`
	Count int             `json:"count"`
	Value decimal.Decimal `json:"value"`
}

// Summary holds the statistics shown next to a chart.
type Summary struct {
	TotalRecords int             `json:"total_records"`
	TotalValue   decimal.Decimal `json:"total_value"`
	Groups       int             `json:"groups"`
	Top          string          `json:"top,omitempty"`
	Average      decimal.Decimal `json:"average"`
}

var statusLabels = map[string]string{
	"pending":     "Pending",
	"in_progress": "In Progress",
	"in-progress": "In Progress",
	"completed":   "Completed",
	"cancelled":   "Cancelled",
	"canceled":    "Cancelled",
	"todo":        "To Do",
	"done":        "Done",
	"active":      "Active",
	"inactive":    "Inactive",
	"new":         "New",
	"read":        "Read",
	"replied":     "Replied",
	"income":      "Income",
	"expense":     "Expense",
}

var (
	paletteWarm = []string{"#f97316", "#facc15", "#ef4444", "#a855f7", "#14b8a6"}
	paletteCool = []string{"#0ea5e9", "#6366f1", "#22c55e", "#64748b", "#ec4899"}
)

var chartPresets = map[string]ChartPreset{
	"service-requests": {
		Resource: api.ResourceServiceRequests, Title: "Service Requests by Status",
		GroupBy: "status", ValueKey: CountKey, Kind: ChartPie, Palette: paletteWarm, Labels: statusLabels,
	},
	"tasks": {
		Resource: api.ResourceTasks, Title: "Tasks by Status",
		GroupBy: "status", ValueKey: CountKey, Kind: ChartBar, Palette: paletteCool, Labels: statusLabels,
	},
	"transactions": {
		Resource: api.ResourceTransactions, Title: "Transactions by Type",
		GroupBy: "type", ValueKey: "amount", Kind: ChartBar, Palette: paletteCool, Labels: statusLabels,
	},
	"services": {
		Resource: api.ResourceServices, Title: "Services by Category",
		GroupBy: "category", ValueKey: CountKey, Kind: ChartPie, Palette: paletteCool,
	},
	"revenue": {
		Resource: api.ResourceTransactions, Title: "Revenue by Service",
		GroupBy: "service", ValueKey: "amount", Kind: ChartArea, Palette: paletteWarm,
	},
	"customers": {
		Resource: api.ResourceCustomers, Title: "Customers by Status",
		GroupBy: "status", ValueKey: CountKey, Kind: ChartPie, Palette: paletteCool, Labels: statusLabels,
	},
	"contact-requests": {
		Resource: api.ResourceContactRequests, Title: "Contact Requests",
		GroupBy: "status", ValueKey: CountKey, Kind: ChartLine, Palette: paletteWarm, Labels: statusLabels,
	},
}

// PresetFor returns the preset for dataType. Unknown types group by status
// and count.
func PresetFor(dataType string) ChartPreset {
	preset, ok := chartPresets[dataType]
	if !ok {
		preset = ChartPreset{
			Resource: dataType,
			Title:    titleize(dataType),
			GroupBy:  "status",
			ValueKey: CountKey,
			Kind:     ChartBar,
			Palette:  paletteCool,
			Labels:   statusLabels,
		}
	}
	preset.DataType = dataType
	return preset
}

// Aggregate groups records by the preset key in first-seen order. Each bucket
// counts its records; the value is the record count when the value key is
// "count" and the decimal sum of the value key otherwise.
func Aggregate(records []api.Record, preset ChartPreset) []Bucket {
	byCount := preset.ValueKey == "" || preset.ValueKey == CountKey
	index := map[string]int{}
	var buckets []Bucket
	for _, rec := range records {
		name := groupLabel(rec[preset.GroupBy], preset.Labels)
		idx, ok := index[name]
		if !ok {
			idx = len(buckets)
			index[name] = idx
			buckets = append(buckets, Bucket{Name: name, Value: decimal.Zero})
		}
		buckets[idx].Count++
		if byCount {
			buckets[idx].Value = decimal.NewFromInt(int64(buckets[idx].Count))
			continue
		}
		buckets[idx].Value = buckets[idx].Value.Add(decimalValue(rec[preset.ValueKey]))
	}
	return buckets
}

// Summarize computes totals across buckets.
func Summarize(buckets []Bucket) Summary {
	summary := Summary{TotalValue: decimal.Zero, Average: decimal.Zero, Groups: len(buckets)}
	var top Bucket
	for i, b := range buckets {
		summary.TotalRecords += b.Count
		summary.TotalValue = summary.TotalValue.Add(b.Value)
		if i == 0 || b.Value.GreaterThan(top.Value) {
			top = b
		}
	}
	summary.Top = top.Name
	if len(buckets) > 0 {
		summary.Average = summary.TotalValue.Div(decimal.NewFromInt(int64(len(buckets)))).Round(2)
	}
	return summary
}

func groupLabel(raw any, labels map[string]string) string {
	name := refName(raw)
	if name == "" {
		return UnknownLabel
	}
	if label, ok := labels[strings.ToLower(name)]; ok {
		return label
	}
	return name
}

// refName resolves one level of a populated reference to its name, title or
// id; scalars are returned as text.
func refName(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case map[string]any:
		for _, key := range []string{"name", "title", "_id", "id"} {
			if s := strings.TrimSpace(fmt.Sprint(v[key])); v[key] != nil && s != "" {
				return s
			}
		}
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

func decimalValue(raw any) decimal.Decimal {
	switch v := raw.(type) {
	case float64:
		return decimal.NewFromFloat(v)
	case int:
		return decimal.NewFromInt(int64(v))
	case int64:
		return decimal.NewFromInt(v)
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		if err == nil {
			return d
		}
	case decimal.Decimal:
		return v
	}
	return decimal.Zero
}
