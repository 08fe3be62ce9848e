package goadmin

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	core "github.com/goliatone/go-agency-dashboard/components/dashboard"
	activitypkg "github.com/goliatone/go-agency-dashboard/pkg/activity"
	dashboardpkg "github.com/goliatone/go-agency-dashboard/pkg/dashboard"
)

// MenuBuilder ensures dashboard entries exist within the admin navigation.
type MenuBuilder interface {
	EnsureMenuItem(ctx context.Context, menuCode string, item MenuItem) error
}

// MenuItem captures dashboard link metadata.
type MenuItem struct {
	Code     string
	Label    string
	Route    string
	Icon     string
	Parent   string
	Position int
}

// Config wires the dashboard service and feature flags into an admin shell.
type Config struct {
	EnableDashboard bool
	MenuCode        string
	MenuBuilder     MenuBuilder
	Service         *dashboardpkg.Service
	// Role selects the configuration whose entries become child menu items.
	// Defaults to admin.
	Role            string
	Locale          string
	DefaultMenuItem MenuItem
	ActivityHooks   activitypkg.Hooks
	ActivityConfig  activitypkg.Config
}

// Admin exposes helpers for go-admin style applications.
type Admin struct {
	cfg      Config
	activity *activitypkg.Emitter
}

// New creates an Admin helper that can seed dashboard menus.
func New(cfg Config) (*Admin, error) {
	if cfg.EnableDashboard && cfg.Service == nil {
		return nil, errors.New("goadmin: dashboard service is required when enabled")
	}
	if cfg.MenuCode == "" {
		cfg.MenuCode = "admin.main"
	}
	if cfg.Role == "" {
		cfg.Role = "admin"
	}
	if cfg.DefaultMenuItem.Code == "" {
		cfg.DefaultMenuItem.Code = "dashboard"
	}
	if cfg.DefaultMenuItem.Label == "" {
		cfg.DefaultMenuItem.Label = "Dashboard"
	}
	if cfg.DefaultMenuItem.Route == "" && cfg.Service != nil {
		cfg.DefaultMenuItem.Route = cfg.Service.BasePath()
	}
	if cfg.DefaultMenuItem.Icon == "" {
		cfg.DefaultMenuItem.Icon = "home"
	}
	return &Admin{cfg: cfg, activity: activitypkg.NewEmitter(cfg.ActivityHooks, cfg.ActivityConfig)}, nil
}

// Dashboard exposes the configured dashboard service when enabled.
func (a *Admin) Dashboard() *dashboardpkg.Service {
	if !a.cfg.EnableDashboard {
		return nil
	}
	return a.cfg.Service
}

// MenuItems lists the dashboard root item followed by one child per entry of
// the configured role, in menu order.
func (a *Admin) MenuItems() ([]MenuItem, error) {
	if !a.cfg.EnableDashboard {
		return nil, nil
	}
	cfg, ok := a.cfg.Service.Configurations().Role(a.cfg.Role)
	if !ok {
		return nil, fmt.Errorf("goadmin: no dashboard configuration for role %s", a.cfg.Role)
	}
	root := a.cfg.DefaultMenuItem
	items := []MenuItem{root}
	base := strings.TrimRight(a.cfg.Service.BasePath(), "/")
	for idx, entry := range cfg.Entries {
		items = append(items, MenuItem{
			Code:     root.Code + "." + entry.Key,
			Label:    entry.LabelForLocale(a.cfg.Locale),
			Route:    base + "?" + url.Values{core.TabParam: {entry.Key}}.Encode(),
			Icon:     entry.Icon,
			Parent:   root.Code,
			Position: idx + 1,
		})
	}
	return items, nil
}

// Bootstrap seeds menu entries when dashboard support is enabled.
func (a *Admin) Bootstrap(ctx context.Context) error {
	if !a.cfg.EnableDashboard || a.cfg.MenuBuilder == nil {
		return nil
	}
	items, err := a.MenuItems()
	if err != nil {
		return err
	}
	for _, item := range items {
		if err := a.cfg.MenuBuilder.EnsureMenuItem(ctx, a.cfg.MenuCode, item); err != nil {
			return fmt.Errorf("goadmin: ensure menu item %s: %w", item.Code, err)
		}
	}
	if a.activity.Enabled() {
		return a.activity.Emit(ctx, activitypkg.Event{
			Verb:       "dashboard.menu.bootstrap",
			ObjectType: "menu",
			ObjectID:   a.cfg.MenuCode,
			Metadata:   map[string]any{"role": a.cfg.Role, "items": len(items)},
		})
	}
	return nil
}
