package table

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/ettle/strcase"
)

// Row is an opaque record as returned by the API.
type Row = map[string]any

// State is the render state of a table view.
type State string

const (
	StateLoading State = "loading"
	StateEmpty   State = "empty"
	StateReady   State = "ready"
)

// SortDirection is the client-announced sort order.
type SortDirection string

const (
	SortNone SortDirection = ""
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// FilterKind selects the input rendered for a filter.
type FilterKind string

const (
	FilterText   FilterKind = "text"
	FilterSelect FilterKind = "select"
	FilterDate   FilterKind = "date"
)

const (
	defaultSkeletonRows = 5
	defaultEmptyText    = "No records found."
	defaultPageSize     = 10
)

var ErrMissingRowID = errors.New("table: row has no _id or id")

// RenderFunc turns a raw cell value into display text.
type RenderFunc func(value any, row Row) string

// Column describes one table column.
type Column struct {
	Key      string
	Header   string
	Sortable bool
	Render   RenderFunc
}

// Option is a select choice.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Filter describes one filter input.
type Filter struct {
	Key         string
	Label       string
	Kind        FilterKind
	Options     []Option
	Placeholder string
}

// Pagination mirrors the server's last pagination response.
type Pagination struct {
	CurrentPage  int  `json:"currentPage"`
	TotalPages   int  `json:"totalPages"`
	TotalItems   int  `json:"totalItems"`
	ItemsPerPage int  `json:"itemsPerPage"`
	HasNextPage  bool `json:"hasNextPage"`
	HasPrevPage  bool `json:"hasPrevPage"`
}

// Sort is the announced sort intent.
type Sort struct {
	Key       string        `json:"key,omitempty"`
	Direction SortDirection `json:"direction,omitempty"`
}

// Action is a per-row or table-level control.
type Action struct {
	Label  string `json:"label"`
	Href   string `json:"href"`
	Method string `json:"method,omitempty"`
	Icon   string `json:"icon,omitempty"`
}

// Events receives the intents raised by the table.
type Events interface {
	OnPageChange(page int)
	OnFilterChange(filters map[string]string)
	OnDelete(id string)
	OnRefresh()
	OnSortChange(sort Sort)
}

// EventFuncs adapts plain functions to Events. Nil funcs are ignored.
type EventFuncs struct {
	PageChange   func(page int)
	FilterChange func(filters map[string]string)
	Delete       func(id string)
	Refresh      func()
	SortChange   func(sort Sort)
}

func (e EventFuncs) OnPageChange(page int) {
	if e.PageChange != nil {
		e.PageChange(page)
	}
}

func (e EventFuncs) OnFilterChange(filters map[string]string) {
	if e.FilterChange != nil {
		e.FilterChange(filters)
	}
}

func (e EventFuncs) OnDelete(id string) {
	if e.Delete != nil {
		e.Delete(id)
	}
}

func (e EventFuncs) OnRefresh() {
	if e.Refresh != nil {
		e.Refresh()
	}
}

func (e EventFuncs) OnSortChange(sort Sort) {
	if e.SortChange != nil {
		e.SortChange(sort)
	}
}

// Table is a pure view over whatever page of data it is given.
type Table struct {
	Columns       []Column
	Filters       []Filter
	Events        Events
	CustomActions func(row Row) []Action
	SkeletonRows  int
	EmptyText     string
}

// Input is the data for one render.
type Input struct {
	Data       []Row
	Loading    bool
	Pagination Pagination
	Filters    map[string]string
	Sort       Sort
}

// View is the renderable table model.
type View struct {
	State      State        `json:"state"`
	Headers    []HeaderCell `json:"headers"`
	Rows       []RowView    `json:"rows,omitempty"`
	Skeleton   int          `json:"skeleton,omitempty"`
	EmptyText  string       `json:"empty_text,omitempty"`
	Filters    []FilterView `json:"filters,omitempty"`
	Pagination Pagination   `json:"pagination"`
	CanPrev    bool         `json:"can_prev"`
	CanNext    bool         `json:"can_next"`
	PrevPage   int          `json:"prev_page,omitempty"`
	NextPage   int          `json:"next_page,omitempty"`
	Sort       Sort         `json:"sort"`
}

// HeaderCell is a column header.
type HeaderCell struct {
	Key       string        `json:"key"`
	Label     string        `json:"label"`
	Sortable  bool          `json:"sortable"`
	Direction SortDirection `json:"direction,omitempty"`
}

// RowView is one rendered record.
type RowView struct {
	ID      string   `json:"id"`
	Cells   []Cell   `json:"cells"`
	Actions []Action `json:"actions,omitempty"`
}

// Cell is one rendered value.
type Cell struct {
	Key  string `json:"key"`
	Text string `json:"text"`
}

// FilterView is a filter input with its current value.
type FilterView struct {
	Key         string     `json:"key"`
	Label       string     `json:"label"`
	Kind        FilterKind `json:"kind"`
	Options     []Option   `json:"options,omitempty"`
	Placeholder string     `json:"placeholder,omitempty"`
	Value       string     `json:"value"`
}

// View renders in. Loading never shows stale rows and empty data renders an
// explicit empty state.
func (t *Table) View(in Input) View {
	view := View{
		Headers:    t.headers(in.Sort),
		Filters:    t.filterViews(in.Filters),
		Pagination: in.Pagination,
		CanPrev:    in.Pagination.HasPrevPage,
		CanNext:    in.Pagination.HasNextPage,
		Sort:       in.Sort,
	}
	if view.CanPrev {
		view.PrevPage = in.Pagination.CurrentPage - 1
	}
	if view.CanNext {
		view.NextPage = in.Pagination.CurrentPage + 1
	}
	switch {
	case in.Loading:
		view.State = StateLoading
		view.Skeleton = t.skeletonRows()
	case len(in.Data) == 0:
		view.State = StateEmpty
		view.EmptyText = t.emptyText()
	default:
		view.State = StateReady
		view.Rows = make([]RowView, 0, len(in.Data))
		for _, row := range in.Data {
			view.Rows = append(view.Rows, t.renderRow(row))
		}
	}
	return view
}

func (t *Table) renderRow(row Row) RowView {
	id, _ := RowID(row)
	out := RowView{ID: id, Cells: make([]Cell, 0, len(t.Columns))}
	for _, col := range t.Columns {
		out.Cells = append(out.Cells, Cell{Key: col.Key, Text: CellText(col, row)})
	}
	if t.CustomActions != nil {
		out.Actions = t.CustomActions(row)
	}
	return out
}

// CellText returns render(value,row) when a render func is set, else the raw
// value as text.
func CellText(col Column, row Row) string {
	value := row[col.Key]
	if col.Render != nil {
		return col.Render(value, row)
	}
	return Text(value)
}

// Text coerces a raw value to its textual form.
func Text(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func (t *Table) headers(sort Sort) []HeaderCell {
	headers := make([]HeaderCell, 0, len(t.Columns))
	for _, col := range t.Columns {
		cell := HeaderCell{Key: col.Key, Label: HeaderLabel(col), Sortable: col.Sortable}
		if col.Sortable && sort.Key == col.Key {
			cell.Direction = sort.Direction
		}
		headers = append(headers, cell)
	}
	return headers
}

// HeaderLabel returns the explicit header or a title-cased key.
func HeaderLabel(col Column) string {
	if col.Header != "" {
		return col.Header
	}
	return strcase.ToCase(strings.TrimPrefix(col.Key, "_"), strcase.TitleCase, ' ')
}

func (t *Table) filterViews(current map[string]string) []FilterView {
	if len(t.Filters) == 0 {
		return nil
	}
	views := make([]FilterView, 0, len(t.Filters))
	for _, f := range t.Filters {
		kind := f.Kind
		if kind == "" {
			kind = FilterText
		}
		label := f.Label
		if label == "" {
			label = strcase.ToCase(f.Key, strcase.TitleCase, ' ')
		}
		views = append(views, FilterView{
			Key:         f.Key,
			Label:       label,
			Kind:        kind,
			Options:     f.Options,
			Placeholder: f.Placeholder,
			Value:       current[f.Key],
		})
	}
	return views
}

// SetFilter returns a copy of current with key set, and announces the full
// map. Empty values remove the key.
func (t *Table) SetFilter(current map[string]string, key, value string) map[string]string {
	next := make(map[string]string, len(current)+1)
	for k, v := range current {
		next[k] = v
	}
	value = strings.TrimSpace(value)
	if value == "" {
		delete(next, key)
	} else {
		next[key] = value
	}
	t.events().OnFilterChange(next)
	return next
}

// ResetFilters clears every filter and announces the empty map.
func (t *Table) ResetFilters() map[string]string {
	next := map[string]string{}
	t.events().OnFilterChange(next)
	return next
}

// ToggleSort cycles key through asc and desc. Only the intent is announced;
// rows are never reordered here.
func (t *Table) ToggleSort(current Sort, key string) (Sort, bool) {
	col, ok := t.column(key)
	if !ok || !col.Sortable {
		return current, false
	}
	next := Sort{Key: key, Direction: SortAsc}
	if current.Key == key && current.Direction == SortAsc {
		next.Direction = SortDesc
	}
	t.events().OnSortChange(next)
	return next, true
}

// ChangePage forwards the requested page verbatim.
func (t *Table) ChangePage(page int) {
	t.events().OnPageChange(page)
}

// Delete announces the row id. The row stays until the caller refreshes.
func (t *Table) Delete(row Row) (string, error) {
	id, ok := RowID(row)
	if !ok {
		return "", ErrMissingRowID
	}
	t.events().OnDelete(id)
	return id, nil
}

// Refresh announces a refresh request.
func (t *Table) Refresh() {
	t.events().OnRefresh()
}

// RowID reads _id, falling back to id.
func RowID(row Row) (string, bool) {
	for _, key := range []string{"_id", "id"} {
		if v, ok := row[key]; ok && v != nil {
			if id := Text(v); id != "" {
				return id, true
			}
		}
	}
	return "", false
}

func (t *Table) column(key string) (Column, bool) {
	for _, col := range t.Columns {
		if col.Key == key {
			return col, true
		}
	}
	return Column{}, false
}

func (t *Table) events() Events {
	if t.Events == nil {
		return EventFuncs{}
	}
	return t.Events
}

func (t *Table) skeletonRows() int {
	if t.SkeletonRows > 0 {
		return t.SkeletonRows
	}
	return defaultSkeletonRows
}

func (t *Table) emptyText() string {
	if t.EmptyText != "" {
		return t.EmptyText
	}
	return defaultEmptyText
}

// Query is the table state carried in a request URL.
type Query struct {
	Page    int
	Limit   int
	Filters map[string]string
	Sort    Sort
}

// ReadQuery extracts page, sort and the declared filters from values.
func (t *Table) ReadQuery(values url.Values, pageSize int) Query {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	q := Query{Page: 1, Limit: pageSize, Filters: map[string]string{}}
	if page, err := strconv.Atoi(values.Get("page")); err == nil && page > 0 {
		q.Page = page
	}
	for _, f := range t.Filters {
		if v := strings.TrimSpace(values.Get(f.Key)); v != "" {
			q.Filters[f.Key] = v
		}
	}
	if key := values.Get("sort"); key != "" {
		if col, ok := t.column(key); ok && col.Sortable {
			q.Sort = Sort{Key: key, Direction: SortAsc}
			if SortDirection(values.Get("order")) == SortDesc {
				q.Sort.Direction = SortDesc
			}
		}
	}
	return q
}

// Encode writes q back into URL values on top of base.
func (q Query) Encode(base url.Values) url.Values {
	out := url.Values{}
	for k, v := range base {
		out[k] = append([]string(nil), v...)
	}
	for k, v := range q.Filters {
		out.Set(k, v)
	}
	if q.Page > 1 {
		out.Set("page", strconv.Itoa(q.Page))
	} else {
		out.Del("page")
	}
	if q.Sort.Key != "" {
		out.Set("sort", q.Sort.Key)
		out.Set("order", string(q.Sort.Direction))
	}
	return out
}
