package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-agency-dashboard/components/dashboard"
)

func TestScaffoldEntryCreatesManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifests", "roles.yaml")
	var out bytes.Buffer
	cmd := &scaffoldEntryCmd{
		ManifestPath: path,
		Role:         "Partner",
		Key:          "service_requests",
		LabelLocale:  map[string]string{"es": "Solicitudes"},
		Kind:         dashboard.KindResourceTable,
		Column:       []string{"description", "status:status", "createdAt:date"},
		Scope:        dashboard.ScopeOwn,
		ConfigJSON:   `{"owner_field":"partner"}`,
		out:          &out,
	}
	require.NoError(t, cmd.Run(context.Background()))
	assert.Contains(t, out.String(), "service-requests")

	doc, err := dashboard.ReadManifest(path)
	require.NoError(t, err)
	role, ok := doc.Role("partner")
	require.True(t, ok)
	require.Len(t, role.Entries, 1)
	entry := role.Entries[0]
	assert.Equal(t, "service-requests", entry.Key)
	assert.Equal(t, "Service Requests", entry.Label)
	assert.Equal(t, "Solicitudes", entry.LabelLocalized["es"])
	assert.Equal(t, "service-requests", entry.Unit.Config["resource"])
	assert.Equal(t, "own", entry.Unit.Config["scope"])
	assert.Equal(t, "partner", entry.Unit.Config["owner_field"])
	columns := entry.Unit.Config["columns"].([]any)
	require.Len(t, columns, 3)
	assert.Equal(t, "status", columns[1].(map[string]any)["format"])
}

func TestScaffoldEntryRejectsDuplicatesAndInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roles.yaml")
	base := scaffoldEntryCmd{
		ManifestPath: path,
		Role:         "coworker",
		Key:          "earnings",
		Kind:         dashboard.KindChart,
		DataType:     "transactions",
		out:          &bytes.Buffer{},
	}
	first := base
	require.NoError(t, first.Run(context.Background()))

	dup := base
	err := dup.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--overwrite")

	invalid := base
	invalid.Key = "broken"
	invalid.ChartKind = "radar"
	require.Error(t, invalid.Run(context.Background()))

	table := base
	table.Key = "invoices"
	table.Kind = dashboard.KindResourceTable
	require.Error(t, table.Run(context.Background()), "tables need columns")

	overwrite := base
	overwrite.Overwrite = true
	overwrite.ChartKind = "line"
	require.NoError(t, overwrite.Run(context.Background()))
	doc, err := dashboard.ReadManifest(path)
	require.NoError(t, err)
	role, _ := doc.Role("coworker")
	require.Len(t, role.Entries, 1)
	assert.Equal(t, "line", role.Entries[0].Unit.Config["kind"])
}

func TestPlaceEntryPosition(t *testing.T) {
	doc := &dashboard.RoleManifestDocument{Version: dashboard.ManifestVersion}
	for _, key := range []string{"a", "b", "c"} {
		require.NoError(t, placeEntry(doc, "user", dashboard.EntryDefinition{Key: key}, 0, false))
	}
	require.NoError(t, placeEntry(doc, "user", dashboard.EntryDefinition{Key: "first"}, 1, false))
	require.NoError(t, placeEntry(doc, "user", dashboard.EntryDefinition{Key: "c", Label: "C"}, 2, true))

	var keys []string
	for _, e := range doc.Roles[0].Entries {
		keys = append(keys, e.Key)
	}
	assert.Equal(t, []string{"first", "c", "a", "b"}, keys)
	assert.Error(t, placeEntry(doc, " ", dashboard.EntryDefinition{Key: "x"}, 0, false))
}

func TestValidateCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roles.yaml")
	form := &scaffoldEntryCmd{
		ManifestPath: path,
		Role:         "user",
		Key:          "feedback",
		Kind:         dashboard.KindForm,
		Resource:     "contact-requests",
		Field:        []string{"name", "email:email", "message:textarea"},
		out:          &bytes.Buffer{},
	}
	require.NoError(t, form.Run(context.Background()))

	var out bytes.Buffer
	require.NoError(t, (&validateCmd{ManifestPath: path, out: &out}).Run(context.Background()))
	assert.Contains(t, out.String(), "user: 1 entries")

	require.NoError(t, os.WriteFile(path, []byte("version: 1\nroles:\n  - key: user\n    entries:\n      - key: x\n        unit: {kind: map}\n"), 0o600))
	assert.Error(t, (&validateCmd{ManifestPath: path, out: &out}).Run(context.Background()))
}
