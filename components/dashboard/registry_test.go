package dashboard

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-agency-dashboard/components/dashboard/session"
)

func TestConfigForAdminIndicatorWins(t *testing.T) {
	svc := newTestService(t, Options{API: &stubAPI{}})
	configs := svc.Configurations()

	cases := []struct {
		name     string
		identity session.Identity
		want     string
	}{
		{name: "is_admin flag", identity: session.Identity{Role: "customer", UserType: "customer", IsAdmin: true}, want: "admin"},
		{name: "admin role", identity: session.Identity{Role: "admin", UserType: "coworker"}, want: "admin"},
		{name: "admin user type", identity: session.Identity{Role: "user", UserType: "admin"}, want: "admin"},
		{name: "user type before role", identity: session.Identity{Role: "customer", UserType: "coworker"}, want: "coworker"},
		{name: "role fallback", identity: session.Identity{Role: "customer"}, want: "customer"},
		{name: "unknown type falls back to role", identity: session.Identity{Role: "user", UserType: "partner"}, want: "user"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, ok := configs.ConfigFor(tc.identity)
			require.True(t, ok)
			assert.Equal(t, tc.want, cfg.RoleKey)
		})
	}
}

func TestConfigForUnknownRole(t *testing.T) {
	svc := newTestService(t, Options{API: &stubAPI{}})
	if cfg, ok := svc.Configurations().ConfigFor(session.Identity{Role: "guest"}); ok {
		t.Fatalf("expected no configuration, got %s", cfg.RoleKey)
	}
	if _, ok := svc.Configurations().ConfigFor(session.Identity{}); ok {
		t.Fatalf("expected no configuration for empty identity")
	}
}

func TestDefaultRoleMenus(t *testing.T) {
	svc := newTestService(t, Options{API: &stubAPI{}})
	want := map[string][]string{
		"admin":    {"overview", "customers", "services", "service-requests", "tasks", "transactions", "coworkers", "contact-requests"},
		"customer": {"profile", "service-requests", "new-request", "transactions"},
		"coworker": {"profile", "tasks", "transactions"},
		"user":     {"profile", "services", "contact"},
	}
	for role, keys := range want {
		cfg, ok := svc.Configurations().Role(role)
		require.True(t, ok, role)
		got := make([]string, 0, len(cfg.Entries))
		for _, entry := range cfg.Entries {
			got = append(got, entry.Key)
			assert.NotNil(t, entry.Unit, "%s/%s has no unit", role, entry.Key)
		}
		assert.Equal(t, keys, got, role)
	}
}

func TestBuildFailsOnUnknownUnitKind(t *testing.T) {
	reg := NewEmptyRegistry()
	require.NoError(t, reg.RegisterRole(RoleDefinition{
		Key: "auditor",
		Entries: []EntryDefinition{
			{Key: "ledger", Label: "Ledger", Unit: UnitDefinition{Kind: "spreadsheet"}},
		},
	}))

	_, err := reg.Build(UnitDeps{API: &stubAPI{}}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownUnitKind))
	assert.Contains(t, err.Error(), "ledger")
}

func TestBuildValidatesUnitConfig(t *testing.T) {
	reg := NewEmptyRegistry()
	require.NoError(t, reg.RegisterRole(RoleDefinition{
		Key: "auditor",
		Entries: []EntryDefinition{
			{Key: "ledger", Unit: UnitDefinition{Kind: KindResourceTable, Config: map[string]any{"resource": "transactions"}}},
		},
	}))

	_, err := reg.Build(UnitDeps{API: &stubAPI{}}, NewUnitConfigValidator())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration is invalid")
}

func TestRegisterRoleRejectsDuplicateEntries(t *testing.T) {
	reg := NewEmptyRegistry()
	err := reg.RegisterRole(RoleDefinition{
		Key: "auditor",
		Entries: []EntryDefinition{
			{Key: "ledger", Unit: UnitDefinition{Kind: KindChart}},
			{Key: "ledger", Unit: UnitDefinition{Kind: KindChart}},
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicates entry ledger")
}

func TestRegisterRoleReplacesKeepingOrder(t *testing.T) {
	reg := NewEmptyRegistry()
	require.NoError(t, reg.RegisterKind(stubKind("static", &staticUnit{})))
	require.NoError(t, reg.RegisterRole(RoleDefinition{Key: "first", Entries: []EntryDefinition{{Key: "a", Unit: UnitDefinition{Kind: "static"}}}}))
	require.NoError(t, reg.RegisterRole(RoleDefinition{Key: "second"}))
	require.NoError(t, reg.RegisterRole(RoleDefinition{Key: " FIRST ", Entries: []EntryDefinition{{Key: "b", Unit: UnitDefinition{Kind: "static"}}}}))

	roles := reg.Roles()
	require.Len(t, roles, 2)
	assert.Equal(t, "first", roles[0].Key)
	assert.Equal(t, "b", roles[0].Entries[0].Key)
	assert.Equal(t, "second", roles[1].Key)
}

func TestRegisterKindRequiresFactory(t *testing.T) {
	reg := NewEmptyRegistry()
	if err := reg.RegisterKind(UnitKind{Code: "broken"}); err == nil {
		t.Fatalf("expected error for kind without factory")
	}
	if err := reg.RegisterKind(UnitKind{}); err == nil {
		t.Fatalf("expected error for kind without code")
	}
	kinds := reg.Kinds()
	codes := make([]string, 0, len(kinds))
	for _, kind := range kinds {
		codes = append(codes, kind.Code)
	}
	assert.Equal(t, []string{KindChart, KindForm, KindOverview, KindResourceTable}, codes)
}

func TestRoleHooksRunOnNewRegistry(t *testing.T) {
	unit := &staticUnit{data: UnitData{"hello": "world"}}
	RegisterRoleHook(func(reg *Registry) error {
		if err := reg.RegisterKind(stubKind("hook.static", unit)); err != nil {
			return err
		}
		return reg.RegisterRole(RoleDefinition{
			Key:     "hook-auditor",
			Entries: []EntryDefinition{{Key: "welcome", Unit: UnitDefinition{Kind: "hook.static"}}},
		})
	})

	reg := NewRegistry()
	_, ok := reg.Role("hook-auditor")
	require.True(t, ok)

	configs, err := reg.Build(UnitDeps{API: &stubAPI{}}, nil)
	require.NoError(t, err)
	cfg, ok := configs.ConfigFor(session.Identity{Role: "hook-auditor"})
	require.True(t, ok)
	assert.Equal(t, "welcome", cfg.Entries[0].Key)
}
