package dashboard

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-agency-dashboard/components/dashboard/session"
)

const partnerManifest = `
version: 1
name: partner-pack
roles:
  - key: partner
    entries:
      - key: referrals
        label: Referrals
        label_localized:
          es: Referidos
        icon: share
        unit:
          kind: resource_table
          config:
            resource: service-requests
            scope: own
            owner_field: partner
            columns:
              - key: description
                header: Request
              - key: status
                format: status
      - key: earnings
        label: Earnings
        unit:
          kind: chart
          config:
            data_type: transactions
            kind: line
`

func TestDecodeManifest(t *testing.T) {
	doc, err := DecodeManifest(strings.NewReader(partnerManifest))
	require.NoError(t, err)
	assert.Equal(t, "1", doc.Version)
	assert.Equal(t, "partner-pack", doc.Name)
	require.Len(t, doc.Roles, 1)

	role, ok := doc.Role("PARTNER")
	require.True(t, ok)
	require.Len(t, role.Entries, 2)
	assert.Equal(t, "Referidos", role.Entries[0].LabelLocalized["es"])
	assert.Equal(t, KindResourceTable, role.Entries[0].Unit.Kind)
	assert.Equal(t, "own", role.Entries[0].Unit.Config["scope"])
	assert.Equal(t, KindChart, role.Entries[1].Unit.Kind)
}

func TestDecodeManifestRejects(t *testing.T) {
	cases := map[string]string{
		"empty":         "",
		"version":       "version: 2\nroles: []\n",
		"unknown field": "version: 1\nwidgets: []\n",
		"missing role":  "version: 1\nroles:\n  - entries: []\n",
		"missing kind":  "version: 1\nroles:\n  - key: a\n    entries:\n      - key: x\n        unit: {}\n",
		"dup entry":     "version: 1\nroles:\n  - key: a\n    entries:\n      - key: x\n        unit: {kind: chart}\n      - key: x\n        unit: {kind: chart}\n",
		"dup role":      "version: 1\nroles:\n  - key: a\n  - key: A\n",
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := DecodeManifest(strings.NewReader(payload)); err == nil {
				t.Fatalf("expected %s manifest to be rejected", name)
			}
		})
	}
}

func TestRegistryLoadManifestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roles.yaml")
	require.NoError(t, os.WriteFile(path, []byte(partnerManifest), 0o600))

	reg := NewRegistry()
	doc, err := reg.LoadManifestFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, doc.Source)

	configs, err := reg.Build(UnitDeps{API: &stubAPI{}}, NewUnitConfigValidator())
	require.NoError(t, err)
	cfg, ok := configs.ConfigFor(session.Identity{Role: "partner"})
	require.True(t, ok)
	assert.Equal(t, "referrals", cfg.Entries[0].Key)
	assert.Equal(t, "Referidos", cfg.Entries[0].LabelForLocale("es"))
}

func TestRegistryLoadManifestOverridesBuiltInRole(t *testing.T) {
	const override = `
version: 1
roles:
  - key: user
    entries:
      - key: services
        label: Catalog
        unit:
          kind: chart
          config:
            data_type: services
`
	reg := NewRegistry()
	doc, err := DecodeManifest(strings.NewReader(override))
	require.NoError(t, err)
	require.NoError(t, reg.LoadManifestDocument(doc))

	role, ok := reg.Role("user")
	require.True(t, ok)
	require.Len(t, role.Entries, 1)
	assert.Equal(t, "Catalog", role.Entries[0].Label)
}

func TestRegistryLoadManifestUnknownKind(t *testing.T) {
	doc := &RoleManifestDocument{
		Version: ManifestVersion,
		Roles: []RoleDefinition{{
			Key:     "partner",
			Entries: []EntryDefinition{{Key: "map", Unit: UnitDefinition{Kind: "map"}}},
		}},
	}
	err := NewEmptyRegistry().LoadManifestDocument(doc)
	require.ErrorIs(t, err, ErrUnknownUnitKind)
}

func TestReadManifestMissingFile(t *testing.T) {
	_, err := ReadManifest(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open manifest")
}

func TestWriteManifestRoundTrip(t *testing.T) {
	doc := &RoleManifestDocument{
		Name: "scaffolded",
		Roles: []RoleDefinition{{
			Key: "coworker",
			Entries: []EntryDefinition{{
				Key:   "invoices",
				Label: "Invoices",
				Unit:  UnitDefinition{Kind: KindResourceTable, Config: map[string]any{"resource": "invoices"}},
			}},
		}},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteManifest(&buf, doc))
	assert.Contains(t, buf.String(), "version: \"1\"")

	decoded, err := DecodeManifest(&buf)
	require.NoError(t, err)
	assert.Equal(t, "scaffolded", decoded.Name)
	assert.Equal(t, "invoices", decoded.Roles[0].Entries[0].Unit.Config["resource"])

	require.Error(t, WriteManifest(&buf, nil))
}
