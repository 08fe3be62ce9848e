package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/ettle/strcase"

	"github.com/goliatone/go-agency-dashboard/components/dashboard"
	"github.com/goliatone/go-agency-dashboard/pkg/api"
)

type cli struct {
	ScaffoldEntry scaffoldEntryCmd `cmd:"" name:"scaffold-entry" help:"Add or replace a menu entry in a role manifest."`
	Validate      validateCmd      `cmd:"" help:"Check that a role manifest builds against the registered unit kinds."`
}

type scaffoldEntryCmd struct {
	ManifestPath string            `name:"manifest" required:"" type:"path" help:"Role manifest YAML to update (created when missing)."`
	Role         string            `required:"" help:"Role key the entry belongs to (admin, customer, coworker, user, ...)."`
	Key          string            `required:"" help:"Entry key; also the tab query value."`
	Label        string            `help:"Menu label (defaults to the key in title case)."`
	LabelLocale  map[string]string `name:"label-locale" help:"Localized labels, e.g. --label-locale es=Clientes."`
	Icon         string            `help:"Menu icon name."`
	Kind         string            `default:"resource_table" enum:"resource_table,form,chart,overview" help:"Unit kind rendered by the entry."`
	Resource     string            `help:"API resource for resource_table and form units (defaults to the entry key)."`
	Column       []string          `help:"Table column as key or key:format (repeat the flag)."`
	Field        []string          `help:"Form field as name or name:kind (repeat the flag)."`
	DataType     string            `name:"data-type" help:"Chart data type (defaults to the resource)."`
	ChartKind    string            `name:"chart-kind" help:"Chart kind (bar, pie, line, area)."`
	Scope        string            `help:"Record scope for tables and charts (all or own)."`
	ConfigJSON   string            `name:"config-json" help:"Raw JSON object merged over the generated unit config."`
	Position     int               `help:"1-based menu position; 0 appends."`
	Overwrite    bool              `help:"Replace an existing entry with the same key."`

	out io.Writer
}

type validateCmd struct {
	ManifestPath string `name:"manifest" required:"" type:"path" help:"Role manifest YAML to check."`

	out io.Writer
}

func main() {
	ctx := kong.Parse(&cli{},
		kong.Name("agencyctl"),
		kong.Description("Role manifest tooling for the agency dashboard."),
		kong.UsageOnError(),
	)
	err := ctx.Run(context.Background())
	ctx.FatalIfErrorf(err)
}

func (cmd *scaffoldEntryCmd) Run(_ context.Context) error {
	key := strcase.ToKebab(strings.TrimSpace(cmd.Key))
	if key == "" {
		return errors.New("agencyctl: entry key is required")
	}
	manifestPath, err := filepath.Abs(cmd.ManifestPath)
	if err != nil {
		return fmt.Errorf("agencyctl: resolve manifest path: %w", err)
	}
	doc, err := loadOrInitManifest(manifestPath)
	if err != nil {
		return err
	}

	config, err := cmd.unitConfig(key)
	if err != nil {
		return err
	}
	registry := dashboard.NewRegistry()
	kind, ok := registry.Kind(cmd.Kind)
	if !ok {
		return fmt.Errorf("agencyctl: %w %q", dashboard.ErrUnknownUnitKind, cmd.Kind)
	}
	if err := dashboard.NewUnitConfigValidator().Validate(kind, config); err != nil {
		return fmt.Errorf("agencyctl: %w", err)
	}

	label := cmd.Label
	if label == "" {
		label = strcase.ToCase(key, strcase.TitleCase, ' ')
	}
	entry := dashboard.EntryDefinition{
		Key:            key,
		Label:          label,
		LabelLocalized: cmd.LabelLocale,
		Icon:           cmd.Icon,
		Unit:           dashboard.UnitDefinition{Kind: cmd.Kind, Config: config},
	}
	if err := placeEntry(doc, cmd.Role, entry, cmd.Position, cmd.Overwrite); err != nil {
		return err
	}
	if err := writeManifest(manifestPath, doc); err != nil {
		return err
	}
	fmt.Fprintf(writerOr(cmd.out), "✓ Added %s (%s) to role %s in %s\n", key, cmd.Kind, strings.ToLower(cmd.Role), manifestPath)
	return nil
}

func (cmd *scaffoldEntryCmd) unitConfig(key string) (map[string]any, error) {
	resource := cmd.Resource
	if resource == "" {
		resource = key
	}
	config := map[string]any{}
	switch cmd.Kind {
	case dashboard.KindResourceTable:
		if len(cmd.Column) == 0 {
			return nil, errors.New("agencyctl: resource_table entries need at least one --column")
		}
		columns := make([]any, 0, len(cmd.Column))
		for _, raw := range cmd.Column {
			name, format, _ := strings.Cut(raw, ":")
			column := map[string]any{"key": name, "header": strcase.ToCase(name, strcase.TitleCase, ' ')}
			if format != "" {
				column["format"] = format
			}
			columns = append(columns, column)
		}
		config["resource"] = resource
		config["columns"] = columns
		config["deletable"] = true
	case dashboard.KindForm:
		if len(cmd.Field) == 0 {
			return nil, errors.New("agencyctl: form entries need at least one --field")
		}
		fields := make([]any, 0, len(cmd.Field))
		for _, raw := range cmd.Field {
			name, kind, _ := strings.Cut(raw, ":")
			field := map[string]any{"name": name, "label": strcase.ToCase(name, strcase.TitleCase, ' ')}
			if kind != "" {
				field["kind"] = kind
			}
			fields = append(fields, field)
		}
		config["resource"] = resource
		config["endpoint"] = "/" + resource
		config["method"] = "POST"
		config["fields"] = fields
	case dashboard.KindChart:
		dataType := cmd.DataType
		if dataType == "" {
			dataType = resource
		}
		config["data_type"] = dataType
		if cmd.ChartKind != "" {
			config["kind"] = cmd.ChartKind
		}
	case dashboard.KindOverview:
		config["title"] = strcase.ToCase(key, strcase.TitleCase, ' ')
	}
	if cmd.Scope != "" && cmd.Kind != dashboard.KindForm {
		config["scope"] = cmd.Scope
	}
	if cmd.ConfigJSON != "" {
		var extra map[string]any
		if err := json.Unmarshal([]byte(cmd.ConfigJSON), &extra); err != nil {
			return nil, fmt.Errorf("agencyctl: parse --config-json: %w", err)
		}
		maps.Copy(config, extra)
	}
	return config, nil
}

// placeEntry inserts entry into role, creating the role when missing.
func placeEntry(doc *dashboard.RoleManifestDocument, roleKey string, entry dashboard.EntryDefinition, position int, overwrite bool) error {
	roleKey = strings.ToLower(strings.TrimSpace(roleKey))
	if roleKey == "" {
		return errors.New("agencyctl: role is required")
	}
	idx := slices.IndexFunc(doc.Roles, func(r dashboard.RoleDefinition) bool {
		return strings.EqualFold(r.Key, roleKey)
	})
	if idx < 0 {
		doc.Roles = append(doc.Roles, dashboard.RoleDefinition{Key: roleKey})
		idx = len(doc.Roles) - 1
	}
	role := &doc.Roles[idx]
	existing := slices.IndexFunc(role.Entries, func(e dashboard.EntryDefinition) bool { return e.Key == entry.Key })
	if existing >= 0 {
		if !overwrite {
			return fmt.Errorf("agencyctl: role %s already defines entry %s (use --overwrite to replace)", roleKey, entry.Key)
		}
		if position <= 0 {
			role.Entries[existing] = entry
			return nil
		}
		role.Entries = slices.Delete(role.Entries, existing, existing+1)
	}
	if position <= 0 || position > len(role.Entries) {
		role.Entries = append(role.Entries, entry)
		return nil
	}
	role.Entries = slices.Insert(role.Entries, position-1, entry)
	return nil
}

func (cmd *validateCmd) Run(_ context.Context) error {
	doc, err := dashboard.ReadManifest(cmd.ManifestPath)
	if err != nil {
		return err
	}
	registry := dashboard.NewRegistry()
	if err := registry.LoadManifestDocument(doc); err != nil {
		return err
	}
	client, err := api.NewClient(api.Config{BaseURL: "http://localhost"})
	if err != nil {
		return err
	}
	configs, err := registry.Build(dashboard.UnitDeps{API: client}, dashboard.NewUnitConfigValidator())
	if err != nil {
		return fmt.Errorf("agencyctl: %w", err)
	}
	out := writerOr(cmd.out)
	for _, role := range doc.Roles {
		cfg, _ := configs.Role(role.Key)
		entries := 0
		if cfg != nil {
			entries = len(cfg.Entries)
		}
		fmt.Fprintf(out, "✓ %s: %d entries\n", strings.ToLower(role.Key), entries)
	}
	return nil
}

func loadOrInitManifest(path string) (*dashboard.RoleManifestDocument, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &dashboard.RoleManifestDocument{
				Version: dashboard.ManifestVersion,
				Source:  path,
			}, nil
		}
		return nil, fmt.Errorf("agencyctl: stat manifest: %w", err)
	}
	return dashboard.ReadManifest(path)
}

func writeManifest(path string, doc *dashboard.RoleManifestDocument) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("agencyctl: mkdir %s: %w", filepath.Dir(path), err)
	}
	file, err := os.Create(path) //nolint:gosec
	if err != nil {
		return fmt.Errorf("agencyctl: create manifest %s: %w", path, err)
	}
	defer file.Close()
	if err := dashboard.WriteManifest(file, doc); err != nil {
		return fmt.Errorf("agencyctl: write manifest: %w", err)
	}
	return nil
}

func writerOr(w io.Writer) io.Writer {
	if w == nil {
		return os.Stdout
	}
	return w
}
