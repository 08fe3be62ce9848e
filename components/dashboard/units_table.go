package dashboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/goliatone/go-agency-dashboard/components/dashboard/form"
	"github.com/goliatone/go-agency-dashboard/components/dashboard/table"
	"github.com/goliatone/go-agency-dashboard/pkg/api"
)

// Record scopes for resource tables.
const (
	ScopeAll = "all"
	ScopeOwn = "own"
)

const defaultOwnerField = "customer"

// maxTableLoaders bounds the per-viewer loaders kept by one table unit.
const maxTableLoaders = 512

type columnConfig struct {
	Key      string `json:"key,omitempty" yaml:"key,omitempty"`
	Header   string `json:"header,omitempty" yaml:"header,omitempty"`
	Sortable bool   `json:"sortable,omitempty" yaml:"sortable,omitempty"`
	Format   string `json:"format,omitempty" yaml:"format,omitempty"`
}

type filterConfig struct {
	Key         string         `json:"key,omitempty" yaml:"key,omitempty"`
	Label       string         `json:"label,omitempty" yaml:"label,omitempty"`
	Kind        string         `json:"kind,omitempty" yaml:"kind,omitempty"`
	Options     []table.Option `json:"options,omitempty" yaml:"options,omitempty"`
	Placeholder string         `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
}

type createConfig struct {
	Title  string       `json:"title,omitempty" yaml:"title,omitempty"`
	Fields []form.Field `json:"fields,omitempty" yaml:"fields,omitempty"`
}

type resourceTableConfig struct {
	Resource   string         `json:"resource,omitempty" yaml:"resource,omitempty"`
	Title      string         `json:"title,omitempty" yaml:"title,omitempty"`
	Columns    []columnConfig `json:"columns,omitempty" yaml:"columns,omitempty"`
	Filters    []filterConfig `json:"filters,omitempty" yaml:"filters,omitempty"`
	PageSize   int            `json:"page_size,omitempty" yaml:"page_size,omitempty"`
	Scope      string         `json:"scope,omitempty" yaml:"scope,omitempty"`
	OwnerField string         `json:"owner_field,omitempty" yaml:"owner_field,omitempty"`
	EmptyText  string         `json:"empty_text,omitempty" yaml:"empty_text,omitempty"`
	Create     *createConfig  `json:"create,omitempty" yaml:"create,omitempty"`
	Deletable  bool           `json:"deletable,omitempty" yaml:"deletable,omitempty"`
	Exportable bool           `json:"exportable,omitempty" yaml:"exportable,omitempty"`
}

// resourceTableUnit lists one API resource with filters, sorting, paging,
// optional inline creation, deletion and PDF export.
type resourceTableUnit struct {
	cfg       resourceTableConfig
	api       RecordsAPI
	table     *table.Table
	telemetry Telemetry

	mu      sync.Mutex
	loaders *lru.Cache[string, *api.ListLoader]
}

func newResourceTableUnit(def UnitDefinition, deps UnitDeps) (Unit, error) {
	var cfg resourceTableConfig
	if err := decodeConfig(def.Config, &cfg); err != nil {
		return nil, fmt.Errorf("dashboard: decode resource_table config: %w", err)
	}
	if cfg.Resource == "" {
		return nil, errMissingResource
	}
	if deps.API == nil {
		return nil, errMissingAPI
	}
	if cfg.Scope == "" {
		cfg.Scope = ScopeAll
	}
	if cfg.Scope == ScopeOwn && cfg.OwnerField == "" {
		cfg.OwnerField = defaultOwnerField
	}
	if cfg.Title == "" {
		cfg.Title = titleize(cfg.Resource)
	}

	t := &table.Table{EmptyText: cfg.EmptyText}
	for _, col := range cfg.Columns {
		t.Columns = append(t.Columns, table.Column{
			Key:      col.Key,
			Header:   col.Header,
			Sortable: col.Sortable,
			Render:   formatRenderer(col.Format),
		})
	}
	for _, f := range cfg.Filters {
		t.Filters = append(t.Filters, table.Filter{
			Key:         f.Key,
			Label:       f.Label,
			Kind:        table.FilterKind(f.Kind),
			Options:     f.Options,
			Placeholder: f.Placeholder,
		})
	}
	loaders, err := lru.New[string, *api.ListLoader](maxTableLoaders)
	if err != nil {
		return nil, fmt.Errorf("dashboard: table loaders: %w", err)
	}

	return &resourceTableUnit{
		cfg:       cfg,
		api:       deps.API,
		table:     t,
		telemetry: normalizeTelemetry(deps.Telemetry),
		loaders:   loaders,
	}, nil
}

// loader returns the per-viewer loader so a newer page request supersedes
// an older one for the same viewer only. The least recently used viewers are
// evicted once maxTableLoaders is reached.
func (u *resourceTableUnit) loader(subject string) *api.ListLoader {
	u.mu.Lock()
	defer u.mu.Unlock()
	if l, ok := u.loaders.Get(subject); ok {
		return l
	}
	l := api.NewListLoader(func(ctx context.Context, q api.ListQuery) (api.ListResult, error) {
		return u.api.List(ctx, u.cfg.Resource, q)
	})
	u.loaders.Add(subject, l)
	return l
}

// Forget drops the loader of a viewer that logged out.
func (u *resourceTableUnit) Forget(subjectID string) {
	u.loaders.Remove(subjectID)
}

func (u *resourceTableUnit) listQuery(uc UnitContext, q table.Query) api.ListQuery {
	filters := make(map[string]string, len(q.Filters)+1)
	for k, v := range q.Filters {
		filters[k] = v
	}
	if u.cfg.Scope == ScopeOwn {
		filters[u.cfg.OwnerField] = uc.Identity.SubjectID
	}
	return api.ListQuery{
		Page:    q.Page,
		Limit:   q.Limit,
		Filters: filters,
		Sort:    q.Sort.Key,
		Order:   string(q.Sort.Direction),
	}
}

func (u *resourceTableUnit) Render(ctx context.Context, uc UnitContext) (UnitData, error) {
	q := u.table.ReadQuery(uc.Query, u.cfg.PageSize)
	data := UnitData{
		"title":    u.cfg.Title,
		"resource": u.cfg.Resource,
		"query":    q,
	}
	if create := u.createView(uc); create != nil {
		data["create"] = create
		data["create_title"] = u.createTitle()
		data["create_url"] = uc.ActionURL("submit")
	}
	if u.cfg.Exportable {
		data["export_url"] = uc.ActionURL("export.pdf") + "?" + q.Encode(nil).Encode()
	}

	result, _, err := u.loader(uc.Identity.SubjectID).Load(ctx, u.listQuery(uc, q))
	switch {
	case errors.Is(err, api.ErrStaleResponse):
		data["table"] = u.table.View(table.Input{Loading: true, Filters: q.Filters, Sort: q.Sort})
		return data, nil
	case err != nil:
		u.telemetry.Record(ctx, "dashboard.unit.load_failed", map[string]any{
			"unit":     uc.Entry.Key,
			"resource": u.cfg.Resource,
			"error":    err.Error(),
		})
		return nil, err
	}

	view := u.tableWithActions(uc).View(table.Input{
		Data:       result.Records,
		Pagination: table.Pagination(result.Pagination),
		Filters:    q.Filters,
		Sort:       q.Sort,
	})
	data["table"] = view
	data["headers"] = u.headerLinks(uc, q, view.Headers)
	data["page_urls"] = u.pageURLs(uc, q, view)
	data["filter_url"] = uc.URL(nil)
	return data, nil
}

// tableWithActions copies the table with row actions bound to this request.
func (u *resourceTableUnit) tableWithActions(uc UnitContext) *table.Table {
	t := *u.table
	if u.cfg.Deletable {
		t.CustomActions = func(row table.Row) []table.Action {
			id, ok := table.RowID(row)
			if !ok {
				return nil
			}
			return []table.Action{{
				Label:  "Delete",
				Href:   uc.ActionURL("records", id, "delete"),
				Method: "POST",
				Icon:   "trash",
			}}
		}
	}
	return &t
}

// HeaderLink is a table header with the URL that toggles its sort.
type HeaderLink struct {
	Key       string              `json:"key"`
	Label     string              `json:"label"`
	Sortable  bool                `json:"sortable"`
	Direction table.SortDirection `json:"direction,omitempty"`
	URL       string              `json:"url,omitempty"`
}

func (u *resourceTableUnit) headerLinks(uc UnitContext, q table.Query, headers []table.HeaderCell) []HeaderLink {
	links := make([]HeaderLink, 0, len(headers))
	for _, h := range headers {
		link := HeaderLink{Key: h.Key, Label: h.Label, Sortable: h.Sortable, Direction: h.Direction}
		if next, ok := u.table.ToggleSort(q.Sort, h.Key); ok {
			nq := q
			nq.Sort = next
			nq.Page = 1
			link.URL = uc.URL(nq.Encode(uc.Query))
		}
		links = append(links, link)
	}
	return links
}

func (u *resourceTableUnit) pageURLs(uc UnitContext, q table.Query, view table.View) map[string]string {
	urls := map[string]string{}
	if view.CanPrev {
		nq := q
		nq.Page = view.PrevPage
		urls["prev"] = uc.URL(nq.Encode(uc.Query))
	}
	if view.CanNext {
		nq := q
		nq.Page = view.NextPage
		urls["next"] = uc.URL(nq.Encode(uc.Query))
	}
	return urls
}

func (u *resourceTableUnit) createTitle() string {
	if u.cfg.Create != nil && u.cfg.Create.Title != "" {
		return u.cfg.Create.Title
	}
	return "New " + titleize(u.cfg.Resource)
}

func (u *resourceTableUnit) newForm(uc UnitContext) *form.Form {
	if u.cfg.Create == nil || len(u.cfg.Create.Fields) == 0 {
		return nil
	}
	fields := append([]form.Field(nil), u.cfg.Create.Fields...)
	f := &form.Form{
		Fields:    fields,
		Endpoint:  "/" + u.cfg.Resource,
		Method:    "POST",
		Submitter: u.api,
	}
	if u.cfg.Scope == ScopeOwn {
		f.Fields = append(f.Fields, form.Field{Name: u.cfg.OwnerField, Kind: form.KindHidden})
		f.Initial = form.Values{u.cfg.OwnerField: uc.Identity.SubjectID}
	}
	return f
}

func (u *resourceTableUnit) createView(uc UnitContext) *form.View {
	f := u.newForm(uc)
	if f == nil {
		return nil
	}
	var (
		values form.Values
		errs   form.Errors
	)
	if uc.Form != nil {
		values, errs = uc.Form.Values, uc.Form.Errors
	}
	view := f.View(f.Merge(values), errs)
	view.Endpoint = uc.ActionURL("submit")
	return &view
}

// Submit creates a record from the posted form.
func (u *resourceTableUnit) Submit(ctx context.Context, uc UnitContext, posted url.Values) (SubmitOutcome, error) {
	f := u.newForm(uc)
	if f == nil {
		return SubmitOutcome{}, ErrUnsupportedAction
	}
	values := f.ParseValues(posted)
	if u.cfg.Scope == ScopeOwn {
		// the owner always comes from the session, never the post body
		values[u.cfg.OwnerField] = uc.Identity.SubjectID
	}
	result, err := f.Submit(ctx, values)
	outcome := SubmitOutcome{Result: result}
	if err != nil {
		return outcome, err
	}
	id, _ := table.RowID(result.Response)
	outcome.Event = RecordEvent{
		Resource:  u.cfg.Resource,
		RecordID:  id,
		UnitKey:   uc.Entry.Key,
		Reason:    "create",
		SubjectID: uc.Identity.SubjectID,
	}
	return outcome, nil
}

// Delete removes one record. The table is not updated locally; callers
// refresh after the event fires.
func (u *resourceTableUnit) Delete(ctx context.Context, uc UnitContext, id string) (RecordEvent, error) {
	if !u.cfg.Deletable {
		return RecordEvent{}, ErrUnsupportedAction
	}
	if id == "" {
		return RecordEvent{}, errMissingRecordID
	}
	if err := u.api.Delete(ctx, u.cfg.Resource, id); err != nil {
		return RecordEvent{}, err
	}
	return RecordEvent{
		Resource:  u.cfg.Resource,
		RecordID:  id,
		UnitKey:   uc.Entry.Key,
		Reason:    "delete",
		SubjectID: uc.Identity.SubjectID,
	}, nil
}

// Export writes the page selected by the request query as a PDF.
func (u *resourceTableUnit) Export(ctx context.Context, uc UnitContext, w io.Writer) error {
	if !u.cfg.Exportable {
		return ErrUnsupportedAction
	}
	q := u.table.ReadQuery(uc.Query, u.cfg.PageSize)
	result, err := u.api.List(ctx, u.cfg.Resource, u.listQuery(uc, q))
	if err != nil {
		return err
	}
	view := u.table.View(table.Input{
		Data:       result.Records,
		Pagination: table.Pagination(result.Pagination),
		Filters:    q.Filters,
		Sort:       q.Sort,
	})
	title := u.cfg.Title
	if result.Pagination.TotalPages > 1 {
		title += " (page " + strconv.Itoa(result.Pagination.CurrentPage) + " of " + strconv.Itoa(result.Pagination.TotalPages) + ")"
	}
	return table.ExportPDF(w, title, view)
}
