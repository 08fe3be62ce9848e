package dashboard

import (
	"strings"
	"time"

	"github.com/ettle/strcase"
	"github.com/shopspring/decimal"

	"github.com/goliatone/go-agency-dashboard/components/dashboard/table"
)

// Column formats understood by resource table configurations.
const (
	FormatCurrency = "currency"
	FormatDate     = "date"
	FormatStatus   = "status"
	FormatRef      = "ref"
	FormatBool     = "bool"
)

func titleize(s string) string {
	return strcase.ToCase(s, strcase.TitleCase, ' ')
}

// formatRenderer returns the cell renderer for a named format, or nil for
// the raw text fallback.
func formatRenderer(format string) table.RenderFunc {
	switch format {
	case FormatCurrency:
		return func(value any, _ table.Row) string {
			if value == nil {
				return ""
			}
			return "$" + decimalValue(value).StringFixed(2)
		}
	case FormatDate:
		return func(value any, _ table.Row) string {
			raw, _ := value.(string)
			return formatDate(raw)
		}
	case FormatStatus:
		return func(value any, _ table.Row) string {
			return groupLabelOrEmpty(value)
		}
	case FormatRef:
		return func(value any, _ table.Row) string {
			return refName(value)
		}
	case FormatBool:
		return func(value any, _ table.Row) string {
			if b, ok := value.(bool); ok && b {
				return "Yes"
			}
			return "No"
		}
	}
	return nil
}

func formatDate(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("Jan 2, 2006")
		}
	}
	return raw
}

func groupLabelOrEmpty(value any) string {
	name := refName(value)
	if name == "" {
		return ""
	}
	if label, ok := statusLabels[strings.ToLower(name)]; ok {
		return label
	}
	return name
}

func formatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
