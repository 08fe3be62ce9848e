package dashboard

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/goliatone/go-agency-dashboard/components/dashboard/session"
)

// RoleHook lets packages register unit kinds and roles during init().
type RoleHook func(reg *Registry) error

var (
	globalHookMu sync.Mutex
	globalHooks  []RoleHook
)

// RegisterRoleHook registers a hook executed against new registries.
func RegisterRoleHook(h RoleHook) {
	globalHookMu.Lock()
	defer globalHookMu.Unlock()
	globalHooks = append(globalHooks, h)
}

// UnitFactory builds a unit from its configuration.
type UnitFactory func(def UnitDefinition, deps UnitDeps) (Unit, error)

// UnitKind is a tagged variant: the code selects the factory.
type UnitKind struct {
	Code        string
	Name        string
	Description string
	Schema      map[string]any
	Factory     UnitFactory
}

// UnitDeps are the collaborators handed to unit factories.
type UnitDeps struct {
	API       RecordsAPI
	Charts    *ChartRenderer
	Telemetry Telemetry
}

// Registry stores unit kinds and role definitions.
type Registry struct {
	mu    sync.RWMutex
	kinds map[string]UnitKind
	roles map[string]RoleDefinition
	order []string
}

// NewRegistry builds a registry with the built-in kinds and roles and applies
// global hooks.
func NewRegistry() *Registry {
	reg := NewEmptyRegistry()
	reg.registerDefaults()
	_ = reg.ApplyHooks()
	return reg
}

// NewEmptyRegistry builds a registry with the built-in unit kinds only.
func NewEmptyRegistry() *Registry {
	reg := &Registry{
		kinds: map[string]UnitKind{},
		roles: map[string]RoleDefinition{},
	}
	for _, kind := range DefaultUnitKinds() {
		_ = reg.RegisterKind(kind)
	}
	return reg
}

func (r *Registry) registerDefaults() {
	for _, role := range DefaultRoleDefinitions() {
		_ = r.RegisterRole(role)
	}
}

// ApplyHooks executes registered role hooks.
func (r *Registry) ApplyHooks() error {
	globalHookMu.Lock()
	defer globalHookMu.Unlock()
	for _, hook := range globalHooks {
		if err := hook(r); err != nil {
			return err
		}
	}
	return nil
}

// RegisterKind stores a unit kind.
func (r *Registry) RegisterKind(kind UnitKind) error {
	if kind.Code == "" {
		return fmt.Errorf("dashboard: unit kind code is required")
	}
	if kind.Factory == nil {
		return fmt.Errorf("dashboard: unit kind %s has no factory", kind.Code)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds[kind.Code] = kind
	return nil
}

// Kind fetches a unit kind by code.
func (r *Registry) Kind(code string) (UnitKind, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kind, ok := r.kinds[code]
	return kind, ok
}

// Kinds returns the registered kinds sorted by code.
func (r *Registry) Kinds() []UnitKind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]UnitKind, 0, len(r.kinds))
	for _, kind := range r.kinds {
		kinds = append(kinds, kind)
	}
	slices.SortFunc(kinds, func(a, b UnitKind) int { return strings.Compare(a.Code, b.Code) })
	return kinds
}

// RegisterRole stores or replaces a role definition. Entry keys must be
// unique within the role.
func (r *Registry) RegisterRole(def RoleDefinition) error {
	def.Key = normalizeRole(def.Key)
	if def.Key == "" {
		return fmt.Errorf("dashboard: role key is required")
	}
	seen := make(map[string]struct{}, len(def.Entries))
	for idx, entry := range def.Entries {
		if entry.Key == "" {
			return fmt.Errorf("dashboard: role %s entry at index %d is missing key", def.Key, idx)
		}
		if _, dup := seen[entry.Key]; dup {
			return fmt.Errorf("dashboard: role %s duplicates entry %s", def.Key, entry.Key)
		}
		seen[entry.Key] = struct{}{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.roles[def.Key]; !exists {
		r.order = append(r.order, def.Key)
	}
	r.roles[def.Key] = def
	return nil
}

// Role fetches a role definition.
func (r *Registry) Role(key string) (RoleDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.roles[normalizeRole(key)]
	return def, ok
}

// Roles returns role definitions in registration order.
func (r *Registry) Roles() []RoleDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	roles := make([]RoleDefinition, 0, len(r.order))
	for _, key := range r.order {
		roles = append(roles, r.roles[key])
	}
	return roles
}

// Build validates every entry's unit configuration and binds it to its unit.
// An unknown kind is a build error.
func (r *Registry) Build(deps UnitDeps, validator ConfigValidator) (*Configurations, error) {
	if validator == nil {
		validator = noopConfigValidator{}
	}
	built := &Configurations{byRole: map[string]*DashboardConfiguration{}}
	for _, role := range r.Roles() {
		cfg := &DashboardConfiguration{RoleKey: role.Key}
		for _, def := range role.Entries {
			kind, ok := r.Kind(def.Unit.Kind)
			if !ok {
				return nil, fmt.Errorf("dashboard: role %s entry %s: %w %q", role.Key, def.Key, ErrUnknownUnitKind, def.Unit.Kind)
			}
			if err := validator.Validate(kind, def.Unit.Config); err != nil {
				return nil, fmt.Errorf("dashboard: role %s entry %s: %w", role.Key, def.Key, err)
			}
			unit, err := kind.Factory(def.Unit, deps)
			if err != nil {
				return nil, fmt.Errorf("dashboard: role %s entry %s: %w", role.Key, def.Key, err)
			}
			cfg.Entries = append(cfg.Entries, MenuEntry{
				Key:            def.Key,
				Label:          def.Label,
				LabelLocalized: normalizeLocaleMap(def.LabelLocalized),
				Icon:           def.Icon,
				Kind:           kind.Code,
				Unit:           unit,
			})
		}
		built.byRole[role.Key] = cfg
	}
	return built, nil
}

// Configurations holds the built, immutable role configurations.
type Configurations struct {
	byRole map[string]*DashboardConfiguration
}

// ConfigFor selects the configuration for identity. Any admin indicator wins
// over the type and role fields; otherwise the user type is tried before the
// role.
func (c *Configurations) ConfigFor(identity session.Identity) (*DashboardConfiguration, bool) {
	if c == nil {
		return nil, false
	}
	if identity.Admin() {
		cfg, ok := c.byRole[session.RoleAdmin]
		return cfg, ok
	}
	for _, key := range []string{identity.UserType, identity.Role} {
		key = normalizeRole(key)
		if key == "" {
			continue
		}
		if cfg, ok := c.byRole[key]; ok {
			return cfg, true
		}
	}
	return nil, false
}

// Role returns the configuration built for key.
func (c *Configurations) Role(key string) (*DashboardConfiguration, bool) {
	if c == nil {
		return nil, false
	}
	cfg, ok := c.byRole[normalizeRole(key)]
	return cfg, ok
}

func normalizeRole(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
