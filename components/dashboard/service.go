package dashboard

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-agency-dashboard/components/dashboard/session"
	"github.com/goliatone/go-agency-dashboard/pkg/activity"
	"github.com/goliatone/go-agency-dashboard/pkg/api"
)

// DefaultBasePath is where transports mount the dashboard by default.
const DefaultBasePath = "/dashboard"

// Options configures the dashboard Service. Collaborators are interfaces so
// hosts can swap implementations.
type Options struct {
	Registry        *Registry
	API             RecordsAPI
	Charts          *ChartRenderer
	ConfigValidator ConfigValidator
	RefreshHook     RefreshHook
	Telemetry       Telemetry
	ActivityHooks   activity.Hooks
	ActivityConfig  activity.Config
	Translator      TranslationService
	BasePath        string
}

// Service resolves role configurations and dispatches unit actions.
type Service struct {
	opts     Options
	configs  *Configurations
	activity *activity.Emitter
}

// NewService validates every role configuration and binds units. It fails
// when a configuration references an unknown unit kind or invalid config.
func NewService(opts Options) (*Service, error) {
	if opts.Registry == nil {
		opts.Registry = NewRegistry()
	}
	if opts.RefreshHook == nil {
		opts.RefreshHook = noopRefreshHook{}
	}
	if opts.ConfigValidator == nil {
		opts.ConfigValidator = NewUnitConfigValidator()
	}
	if opts.Charts == nil {
		opts.Charts = NewChartRenderer()
	}
	if opts.BasePath == "" {
		opts.BasePath = DefaultBasePath
	}
	opts.Telemetry = normalizeTelemetry(opts.Telemetry)
	configs, err := opts.Registry.Build(UnitDeps{
		API:       opts.API,
		Charts:    opts.Charts,
		Telemetry: opts.Telemetry,
	}, opts.ConfigValidator)
	if err != nil {
		return nil, err
	}
	return &Service{
		opts:     opts,
		configs:  configs,
		activity: activity.NewEmitter(opts.ActivityHooks, opts.ActivityConfig),
	}, nil
}

// Configurations exposes the built role configurations.
func (s *Service) Configurations() *Configurations {
	return s.configs
}

// BasePath returns the dashboard mount point.
func (s *Service) BasePath() string {
	return s.opts.BasePath
}

// ResolveRequest is one dashboard page request.
type ResolveRequest struct {
	Identity session.Identity
	URL      *url.URL
	Locale   string
	// Form re-renders a rejected submission for the unit named FormKey.
	Form    *FormState
	FormKey string
	Flash   string
}

// MenuItem is a rendered menu link.
type MenuItem struct {
	Key    string `json:"key"`
	Label  string `json:"label"`
	Icon   string `json:"icon,omitempty"`
	Href   string `json:"href"`
	Active bool   `json:"active"`
}

// Page is the resolved dashboard for one request.
type Page struct {
	Identity  session.Identity        `json:"identity"`
	Config    *DashboardConfiguration `json:"config,omitempty"`
	Selection ActiveSelection         `json:"selection"`
	Menu      []MenuItem              `json:"menu"`
	Unit      UnitData                `json:"unit,omitempty"`
	UnitError string                  `json:"unit_error,omitempty"`
	Flash     string                  `json:"flash,omitempty"`
	// Redirect is set when the tab parameter had to be rewritten.
	Redirect string `json:"redirect,omitempty"`
}

// Resolve selects the configuration for the identity, resolves the active
// entry from the tab parameter and renders its unit. A missing or unknown
// tab produces a redirect instead of a render. Unit failures become page
// state; only access problems are returned as errors.
func (s *Service) Resolve(ctx context.Context, req ResolveRequest) (Page, error) {
	page := Page{Identity: req.Identity, Flash: req.Flash}
	cfg, ok := s.configs.ConfigFor(req.Identity)
	if !ok {
		s.opts.Telemetry.Record(ctx, "dashboard.access_denied", map[string]any{
			"subject":   req.Identity.SubjectID,
			"role":      req.Identity.Role,
			"user_type": req.Identity.UserType,
		})
		return page, ErrAccessDenied
	}
	page.Config = cfg

	history := NewRequestHistory(req.URL)
	nav := NewNavigator(cfg, history)
	page.Selection = nav.Mount()
	if redirect, ok := history.Redirect(); ok {
		page.Redirect = redirect
		return page, nil
	}
	page.Menu = s.menu(ctx, cfg, page.Selection.Key, req.Locale)
	s.opts.Telemetry.Record(ctx, "dashboard.resolve", map[string]any{
		"subject": req.Identity.SubjectID,
		"role":    cfg.RoleKey,
		"tab":     page.Selection.Key,
	})
	if page.Selection.Key == "" {
		return page, nil
	}

	uc := s.unitContext(req.Identity, page.Selection.Entry, req.URL, req.Locale)
	if req.Form != nil && req.FormKey == page.Selection.Key {
		uc.Form = req.Form
	}
	data, err := page.Selection.Entry.Unit.Render(s.unitCtx(ctx, req.Identity), uc)
	if err != nil {
		if goerrors.IsAuth(err) {
			return page, err
		}
		s.opts.Telemetry.Record(ctx, "dashboard.unit.render_error", map[string]any{
			"unit":  page.Selection.Key,
			"error": err.Error(),
		})
		page.UnitError = MessageFor(err)
		page.Unit = UnitData{"retry_url": uc.URL(uc.Query)}
		return page, nil
	}
	page.Unit = data
	return page, nil
}

func (s *Service) menu(ctx context.Context, cfg *DashboardConfiguration, active, locale string) []MenuItem {
	items := make([]MenuItem, 0, len(cfg.Entries))
	for _, entry := range cfg.Entries {
		items = append(items, MenuItem{
			Key:    entry.Key,
			Label:  menuLabel(ctx, s.opts.Translator, cfg.RoleKey, entry, locale),
			Icon:   entry.Icon,
			Href:   basePath(s.opts.BasePath) + "?" + url.Values{TabParam: []string{entry.Key}}.Encode(),
			Active: entry.Key == active,
		})
	}
	return items
}

// UnitRequest targets one unit action.
type UnitRequest struct {
	Identity session.Identity
	Key      string
	Values   url.Values
	RecordID string
	Query    url.Values
	Locale   string
}

// Submit posts values to the unit's form.
func (s *Service) Submit(ctx context.Context, req UnitRequest) (SubmitOutcome, error) {
	entry, err := s.entryFor(req.Identity, req.Key)
	if err != nil {
		return SubmitOutcome{}, err
	}
	handler, ok := entry.Unit.(FormHandler)
	if !ok {
		return SubmitOutcome{}, ErrUnsupportedAction
	}
	uc := s.unitContext(req.Identity, entry, nil, req.Locale)
	outcome, err := handler.Submit(s.unitCtx(ctx, req.Identity), uc, req.Values)
	s.opts.Telemetry.Record(ctx, "dashboard.form.submit", map[string]any{
		"unit":      entry.Key,
		"submitted": outcome.Result.Submitted,
		"errors":    len(outcome.Result.Errors),
		"failed":    err != nil,
	})
	if err != nil {
		return outcome, err
	}
	s.recordChanged(ctx, req.Identity, outcome.Event)
	return outcome, nil
}

// Delete removes a record through the unit.
func (s *Service) Delete(ctx context.Context, req UnitRequest) (RecordEvent, error) {
	entry, err := s.entryFor(req.Identity, req.Key)
	if err != nil {
		return RecordEvent{}, err
	}
	deleter, ok := entry.Unit.(RecordDeleter)
	if !ok {
		return RecordEvent{}, ErrUnsupportedAction
	}
	uc := s.unitContext(req.Identity, entry, nil, req.Locale)
	event, err := deleter.Delete(s.unitCtx(ctx, req.Identity), uc, req.RecordID)
	if err != nil {
		return RecordEvent{}, err
	}
	s.opts.Telemetry.Record(ctx, "dashboard.record.delete", map[string]any{
		"unit":      entry.Key,
		"resource":  event.Resource,
		"record_id": event.RecordID,
	})
	s.recordChanged(ctx, req.Identity, event)
	return event, nil
}

// Export writes the unit's current page to w.
func (s *Service) Export(ctx context.Context, req UnitRequest, w io.Writer) error {
	entry, err := s.entryFor(req.Identity, req.Key)
	if err != nil {
		return err
	}
	exporter, ok := entry.Unit.(TableExporter)
	if !ok {
		return ErrUnsupportedAction
	}
	uc := s.unitContext(req.Identity, entry, nil, req.Locale)
	uc.Query = req.Query
	return exporter.Export(s.unitCtx(ctx, req.Identity), uc, w)
}

// NotifyRecordChanged forwards an externally observed change to the refresh
// hook.
func (s *Service) NotifyRecordChanged(ctx context.Context, event RecordEvent) error {
	if event.Resource == "" {
		return errMissingResource
	}
	if err := s.opts.RefreshHook.RecordChanged(ctx, event); err != nil {
		return err
	}
	s.opts.Telemetry.Record(ctx, "dashboard.record.event", map[string]any{
		"resource":  event.Resource,
		"record_id": event.RecordID,
		"reason":    event.Reason,
	})
	return nil
}

// Login records a sign in.
func (s *Service) Login(ctx context.Context, identity session.Identity) {
	s.opts.Telemetry.Record(ctx, "dashboard.login", map[string]any{"subject": identity.SubjectID})
	s.emitActivity(ctx, identity, activity.Event{
		Verb:       "dashboard.session.login",
		ObjectType: "session",
		ObjectID:   identity.SubjectID,
	})
}

// Logout records the sign out. Clearing the credential is up to the caller's
// session store.
func (s *Service) Logout(ctx context.Context, identity session.Identity) {
	s.opts.Telemetry.Record(ctx, "dashboard.logout", map[string]any{"subject": identity.SubjectID})
	if cfg, ok := s.configs.ConfigFor(identity); ok && identity.SubjectID != "" {
		for _, entry := range cfg.Entries {
			if forgetter, ok := entry.Unit.(SessionForgetter); ok {
				forgetter.Forget(identity.SubjectID)
			}
		}
	}
	s.emitActivity(ctx, identity, activity.Event{
		Verb:       "dashboard.session.logout",
		ObjectType: "session",
		ObjectID:   identity.SubjectID,
	})
}

func (s *Service) recordChanged(ctx context.Context, identity session.Identity, event RecordEvent) {
	if event.Resource == "" {
		return
	}
	if err := s.opts.RefreshHook.RecordChanged(ctx, event); err != nil {
		s.opts.Telemetry.Record(ctx, "dashboard.refresh_error", map[string]any{
			"resource": event.Resource,
			"error":    err.Error(),
		})
	}
	objectID := event.RecordID
	if objectID == "" {
		objectID = event.Resource
	}
	s.emitActivity(ctx, identity, activity.Event{
		Verb:           "dashboard.record." + event.Reason,
		ObjectType:     event.Resource,
		ObjectID:       objectID,
		DefinitionCode: event.Resource + ":" + event.Reason,
		Metadata: map[string]any{
			"unit_key": event.UnitKey,
		},
	})
}

func (s *Service) emitActivity(ctx context.Context, identity session.Identity, event activity.Event) {
	if !s.activity.Enabled() {
		return
	}
	meta := activityContextFrom(ctx)
	event.ActorID = identity.SubjectID
	event.UserID = identity.SubjectID
	event.TenantID = meta.TenantID
	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}
	event.Metadata["role"] = identity.Role
	if meta.RequestID != "" {
		event.Metadata["request_id"] = meta.RequestID
	}
	if err := s.activity.Emit(ctx, event); err != nil {
		s.opts.Telemetry.Record(ctx, "dashboard.activity_error", map[string]any{
			"verb":  event.Verb,
			"error": err.Error(),
		})
	}
}

func (s *Service) entryFor(identity session.Identity, key string) (MenuEntry, error) {
	cfg, ok := s.configs.ConfigFor(identity)
	if !ok {
		return MenuEntry{}, ErrAccessDenied
	}
	entry, ok := cfg.Entry(key)
	if !ok {
		return MenuEntry{}, fmt.Errorf("%w: %s", ErrUnknownEntry, strings.TrimSpace(key))
	}
	return entry, nil
}

func (s *Service) unitContext(identity session.Identity, entry MenuEntry, u *url.URL, locale string) UnitContext {
	query := url.Values{}
	if u != nil {
		query = u.Query()
	}
	return UnitContext{
		Identity: identity,
		Entry:    entry,
		Query:    query,
		Locale:   locale,
		BasePath: s.opts.BasePath,
	}
}

// unitCtx carries the viewer's credential to the API client.
func (s *Service) unitCtx(ctx context.Context, identity session.Identity) context.Context {
	ctx = session.ContextWithIdentity(ctx, identity)
	if identity.Token != "" {
		ctx = api.ContextWithToken(ctx, identity.Token)
	}
	return ctx
}

type noopRefreshHook struct{}

func (noopRefreshHook) RecordChanged(context.Context, RecordEvent) error {
	return nil
}
