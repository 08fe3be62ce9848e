package dashboard

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	goerrors "github.com/goliatone/go-errors"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/goliatone/go-agency-dashboard/components/dashboard/form"
)

// ConfigValidator checks an entry's unit configuration before the registry
// binds it to a unit.
type ConfigValidator interface {
	Validate(kind UnitKind, config map[string]any) error
}

// UnitConfigValidator checks configuration against the unit kind's JSON schema
// and then against rules a schema cannot state, such as unique column keys.
// Each problem becomes a field error keyed by its config path, for example
// "columns.1.key".
type UnitConfigValidator struct {
	mu      sync.Mutex
	schemas map[string]kindSchema
}

// kindSchema remembers which schema document a compiled schema came from so a
// kind re-registered with a new schema is compiled again.
type kindSchema struct {
	source   string
	compiled *jsonschema.Schema
}

// NewUnitConfigValidator returns an empty validator. Schemas compile on first
// use.
func NewUnitConfigValidator() *UnitConfigValidator {
	return &UnitConfigValidator{schemas: map[string]kindSchema{}}
}

// Validate returns a go-errors validation error listing every problem found in
// config, or nil.
func (v *UnitConfigValidator) Validate(kind UnitKind, config map[string]any) error {
	payload, err := asDocument(config)
	if err != nil {
		return fmt.Errorf("dashboard: %s configuration is not a JSON document: %w", kind.Code, err)
	}

	var problems []goerrors.FieldError
	if len(kind.Schema) > 0 {
		schema, err := v.compile(kind)
		if err != nil {
			return err
		}
		problems = append(problems, schemaProblems(schema.Validate(payload))...)
	}
	if check, ok := unitChecks[kind.Code]; ok && len(problems) == 0 {
		problems = append(problems, check(config)...)
	}
	if len(problems) == 0 {
		return nil
	}
	return goerrors.NewValidation(fmt.Sprintf("dashboard: %s configuration is invalid", kind.Code), problems...).
		WithTextCode("INVALID_UNIT_CONFIG").
		WithMetadata(map[string]any{"unit_kind": kind.Code})
}

func (v *UnitConfigValidator) compile(kind UnitKind) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(kind.Schema)
	if err != nil {
		return nil, fmt.Errorf("dashboard: %s schema: %w", kind.Code, err)
	}
	source := string(raw)

	v.mu.Lock()
	defer v.mu.Unlock()
	if cached, ok := v.schemas[kind.Code]; ok && cached.source == source {
		return cached.compiled, nil
	}
	url := "mem://units/" + kind.Code + ".json"
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(url, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("dashboard: %s schema: %w", kind.Code, err)
	}
	compiled, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("dashboard: %s schema: %w", kind.Code, err)
	}
	v.schemas[kind.Code] = kindSchema{source: source, compiled: compiled}
	return compiled, nil
}

// schemaProblems flattens a jsonschema failure into its leaf causes.
func schemaProblems(err error) []goerrors.FieldError {
	if err == nil {
		return nil
	}
	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return []goerrors.FieldError{{Field: "config", Message: err.Error()}}
	}
	var out []goerrors.FieldError
	var walk func(*jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			out = append(out, goerrors.FieldError{Field: configPath(e.InstanceLocation), Message: e.Message})
			return
		}
		for _, cause := range e.Causes {
			walk(cause)
		}
	}
	walk(verr)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out
}

// configPath turns a JSON pointer such as "/columns/0/key" into "columns.0.key".
func configPath(pointer string) string {
	path := strings.Trim(pointer, "/")
	if path == "" {
		return "config"
	}
	path = strings.ReplaceAll(path, "~1", "/")
	path = strings.ReplaceAll(path, "~0", "~")
	return strings.ReplaceAll(path, "/", ".")
}

// asDocument gives typed Go values (ints, typed slices, structs) the shape the
// schema validator expects from decoded JSON.
func asDocument(config map[string]any) (map[string]any, error) {
	doc := map[string]any{}
	if config == nil {
		return doc, nil
	}
	if err := decodeConfig(config, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// decodeConfig maps a unit configuration onto a typed struct.
func decodeConfig(config map[string]any, target any) error {
	data, err := json.Marshal(config)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, target)
}

// unitChecks holds per kind rules that run once the schema passes.
var unitChecks = map[string]func(map[string]any) []goerrors.FieldError{
	KindResourceTable: checkResourceTable,
	KindForm:          checkForm,
	KindOverview:      checkOverview,
}

func checkResourceTable(config map[string]any) []goerrors.FieldError {
	var cfg resourceTableConfig
	if err := decodeConfig(config, &cfg); err != nil {
		return []goerrors.FieldError{{Field: "config", Message: err.Error()}}
	}
	keys := make([]string, len(cfg.Columns))
	for i, col := range cfg.Columns {
		keys[i] = col.Key
	}
	problems := duplicates("columns", "key", keys)

	filters := make([]string, len(cfg.Filters))
	for i, f := range cfg.Filters {
		filters[i] = f.Key
	}
	problems = append(problems, duplicates("filters", "key", filters)...)

	if cfg.Create != nil {
		problems = append(problems, duplicates("create.fields", "name", fieldNames(cfg.Create.Fields))...)
	}
	return problems
}

func checkForm(config map[string]any) []goerrors.FieldError {
	var cfg formUnitConfig
	if err := decodeConfig(config, &cfg); err != nil {
		return []goerrors.FieldError{{Field: "config", Message: err.Error()}}
	}
	problems := duplicates("fields", "name", fieldNames(cfg.Fields))
	if cfg.Resource == "" && cfg.Endpoint == "" {
		problems = append(problems, goerrors.FieldError{
			Field:   "resource",
			Message: "a form needs a resource or an endpoint to submit to",
		})
	}
	return problems
}

func checkOverview(config map[string]any) []goerrors.FieldError {
	var cfg overviewUnitConfig
	if err := decodeConfig(config, &cfg); err != nil {
		return []goerrors.FieldError{{Field: "config", Message: err.Error()}}
	}
	labels := make([]string, len(cfg.Stats))
	for i, stat := range cfg.Stats {
		labels[i] = stat.Label
	}
	return duplicates("stats", "label", labels)
}

// duplicates reports every repeat of a value after its first occurrence.
func duplicates(list, attr string, values []string) []goerrors.FieldError {
	seen := make(map[string]int, len(values))
	var out []goerrors.FieldError
	for i, value := range values {
		if value == "" {
			continue
		}
		if first, ok := seen[value]; ok {
			out = append(out, goerrors.FieldError{
				Field:   fmt.Sprintf("%s.%d.%s", list, i, attr),
				Message: fmt.Sprintf("duplicate %s %q, first used at %s.%d", attr, value, list, first),
				Value:   value,
			})
			continue
		}
		seen[value] = i
	}
	return out
}

func fieldNames(fields []form.Field) []string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}

type noopConfigValidator struct{}

func (noopConfigValidator) Validate(UnitKind, map[string]any) error { return nil }
