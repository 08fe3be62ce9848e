package dashboard

import (
	"context"
	"io"
	"net/url"
	"strings"

	"github.com/goliatone/go-agency-dashboard/components/dashboard/form"
	"github.com/goliatone/go-agency-dashboard/components/dashboard/session"
	"github.com/goliatone/go-agency-dashboard/pkg/api"
)

// RecordsAPI is the slice of the agency REST client used by units.
// *api.Client satisfies it.
type RecordsAPI interface {
	List(ctx context.Context, resource string, q api.ListQuery) (api.ListResult, error)
	Get(ctx context.Context, resource, id string) (api.Record, error)
	Delete(ctx context.Context, resource, id string) error
	Submit(ctx context.Context, method, endpoint string, payload map[string]any) (map[string]any, error)
}

// RefreshHook notifies transports (WebSocket/SSE) about record changes.
type RefreshHook interface {
	RecordChanged(ctx context.Context, event RecordEvent) error
}

// Unit is the renderable bound to a menu entry.
type Unit interface {
	Render(ctx context.Context, uc UnitContext) (UnitData, error)
}

// FormHandler is implemented by units that accept submissions.
type FormHandler interface {
	Submit(ctx context.Context, uc UnitContext, posted url.Values) (SubmitOutcome, error)
}

// SessionForgetter is implemented by units holding per-viewer state that
// must be dropped when the viewer logs out.
type SessionForgetter interface {
	Forget(subjectID string)
}

// RecordDeleter is implemented by units that can delete records.
type RecordDeleter interface {
	Delete(ctx context.Context, uc UnitContext, id string) (RecordEvent, error)
}

// TableExporter is implemented by units that export their current page.
type TableExporter interface {
	Export(ctx context.Context, uc UnitContext, w io.Writer) error
}

// UnitContext carries what a unit needs to render for one request.
type UnitContext struct {
	Identity session.Identity
	Entry    MenuEntry
	Query    url.Values
	Locale   string
	// BasePath is the mount point of the dashboard, used to build action URLs.
	BasePath string
	// Form carries a rejected submission back into the render.
	Form *FormState
}

// FormState is the posted values and errors of a failed submission.
type FormState struct {
	Values  form.Values
	Errors  form.Errors
	Message string
}

// URL builds a dashboard URL for this unit with query applied.
func (uc UnitContext) URL(query url.Values) string {
	q := url.Values{}
	for k, v := range query {
		q[k] = append([]string(nil), v...)
	}
	q.Set(TabParam, uc.Entry.Key)
	return basePath(uc.BasePath) + "?" + q.Encode()
}

// ActionURL builds the URL of a unit action such as submit or export.
func (uc UnitContext) ActionURL(parts ...string) string {
	path := strings.TrimRight(uc.BasePath, "/") + "/units/" + url.PathEscape(uc.Entry.Key)
	for _, part := range parts {
		path += "/" + url.PathEscape(part)
	}
	return path
}

func basePath(base string) string {
	base = strings.TrimRight(base, "/")
	if base == "" {
		return "/"
	}
	return base
}

// UnitData is an opaque payload passed to templates.
type UnitData map[string]any

// SubmitOutcome is the result of a form submission against a unit.
type SubmitOutcome struct {
	Result form.Result
	Event  RecordEvent
}

// UnitDefinition selects a unit kind and its configuration.
type UnitDefinition struct {
	Kind   string         `json:"kind" yaml:"kind"`
	Config map[string]any `json:"config,omitempty" yaml:"config,omitempty"`
}

// EntryDefinition is the declarative form of a menu entry.
type EntryDefinition struct {
	Key            string            `json:"key" yaml:"key"`
	Label          string            `json:"label" yaml:"label"`
	LabelLocalized map[string]string `json:"label_localized,omitempty" yaml:"label_localized,omitempty"`
	Icon           string            `json:"icon,omitempty" yaml:"icon,omitempty"`
	Unit           UnitDefinition    `json:"unit" yaml:"unit"`
}

// RoleDefinition lists the ordered menu entries of a role.
type RoleDefinition struct {
	Key     string            `json:"key" yaml:"key"`
	Entries []EntryDefinition `json:"entries" yaml:"entries"`
}

// MenuEntry is a bound menu item: its unit is resolved once at build time.
type MenuEntry struct {
	Key            string            `json:"key"`
	Label          string            `json:"label"`
	LabelLocalized map[string]string `json:"label_localized,omitempty"`
	Icon           string            `json:"icon,omitempty"`
	Kind           string            `json:"kind"`
	Unit           Unit              `json:"-"`
}

// DashboardConfiguration is the ordered menu of one role.
type DashboardConfiguration struct {
	RoleKey string      `json:"role"`
	Entries []MenuEntry `json:"entries"`
}

// Entry returns the entry named key.
func (c *DashboardConfiguration) Entry(key string) (MenuEntry, bool) {
	if c == nil || key == "" {
		return MenuEntry{}, false
	}
	for _, entry := range c.Entries {
		if entry.Key == key {
			return entry, true
		}
	}
	return MenuEntry{}, false
}

// First returns the first entry, if any.
func (c *DashboardConfiguration) First() (MenuEntry, bool) {
	if c == nil || len(c.Entries) == 0 {
		return MenuEntry{}, false
	}
	return c.Entries[0], true
}

// ActiveSelection is the resolved menu entry. Key is empty only when the
// configuration has no entries.
type ActiveSelection struct {
	Key   string    `json:"key"`
	Entry MenuEntry `json:"entry"`
}

// RecordEvent describes a change to an API record made through the dashboard.
type RecordEvent struct {
	Resource  string `json:"resource"`
	RecordID  string `json:"record_id,omitempty"`
	UnitKey   string `json:"unit_key,omitempty"`
	Reason    string `json:"reason"`
	SubjectID string `json:"subject_id,omitempty"`
}
