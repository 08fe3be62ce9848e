package dashboard

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	manifestVersionV1 = "1"
	// ManifestVersion exposes the current manifest format version for tooling.
	ManifestVersion = manifestVersionV1
)

// RoleManifestDocument models a YAML manifest of role menus.
type RoleManifestDocument struct {
	Version string           `json:"version" yaml:"version"`
	Name    string           `json:"name,omitempty" yaml:"name,omitempty"`
	Roles   []RoleDefinition `json:"roles" yaml:"roles"`
	Source  string           `json:"-" yaml:"-"`
}

// LoadManifestFile reads a manifest from disk and registers its roles,
// replacing any role with the same key.
func (r *Registry) LoadManifestFile(path string) (*RoleManifestDocument, error) {
	doc, err := ReadManifest(path)
	if err != nil {
		return nil, err
	}
	if err := r.LoadManifestDocument(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// LoadManifestDocument registers the roles of a decoded manifest.
func (r *Registry) LoadManifestDocument(doc *RoleManifestDocument) error {
	if doc == nil {
		return fmt.Errorf("dashboard: manifest document is nil")
	}
	for _, role := range doc.Roles {
		for _, entry := range role.Entries {
			if _, ok := r.Kind(entry.Unit.Kind); !ok {
				return fmt.Errorf("dashboard: role %s entry %s from %s: %w %q", role.Key, entry.Key, doc.Source, ErrUnknownUnitKind, entry.Unit.Kind)
			}
		}
		if err := r.RegisterRole(role); err != nil {
			return fmt.Errorf("dashboard: register role %s from %s: %w", role.Key, doc.Source, err)
		}
	}
	return nil
}

// ReadManifest loads a manifest file from disk without registering it.
func ReadManifest(path string) (*RoleManifestDocument, error) {
	f, err := os.Open(path) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("dashboard: open manifest %s: %w", path, err)
	}
	defer f.Close()
	doc, err := DecodeManifest(f)
	if err != nil {
		return nil, fmt.Errorf("dashboard: decode manifest %s: %w", path, err)
	}
	doc.Source = path
	return doc, nil
}

// DecodeManifest reads a manifest from any reader.
func DecodeManifest(r io.Reader) (*RoleManifestDocument, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	var doc RoleManifestDocument
	if err := decoder.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("dashboard: manifest is empty")
		}
		return nil, fmt.Errorf("dashboard: parse manifest: %w", err)
	}
	doc.applyDefaults()
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// WriteManifest encodes doc as YAML.
func WriteManifest(w io.Writer, doc *RoleManifestDocument) error {
	if doc == nil {
		return fmt.Errorf("dashboard: manifest document is nil")
	}
	doc.applyDefaults()
	if err := doc.Validate(); err != nil {
		return err
	}
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("dashboard: encode manifest: %w", err)
	}
	return encoder.Close()
}

// Validate ensures the manifest satisfies required fields.
func (doc *RoleManifestDocument) Validate() error {
	if doc.Version != manifestVersionV1 {
		return fmt.Errorf("dashboard: unsupported manifest version %q", doc.Version)
	}
	roles := make(map[string]struct{}, len(doc.Roles))
	for idx, role := range doc.Roles {
		key := normalizeRole(role.Key)
		if key == "" {
			return fmt.Errorf("dashboard: manifest role at index %d is missing key", idx)
		}
		if _, exists := roles[key]; exists {
			return fmt.Errorf("dashboard: manifest duplicates role %s", key)
		}
		roles[key] = struct{}{}
		entries := make(map[string]struct{}, len(role.Entries))
		for i, entry := range role.Entries {
			if entry.Key == "" {
				return fmt.Errorf("dashboard: role %s entry at index %d is missing key", key, i)
			}
			if entry.Unit.Kind == "" {
				return fmt.Errorf("dashboard: role %s entry %s is missing unit.kind", key, entry.Key)
			}
			if _, exists := entries[entry.Key]; exists {
				return fmt.Errorf("dashboard: role %s duplicates entry %s", key, entry.Key)
			}
			entries[entry.Key] = struct{}{}
		}
	}
	return nil
}

// Role returns the role named key.
func (doc *RoleManifestDocument) Role(key string) (*RoleDefinition, bool) {
	key = normalizeRole(key)
	for i := range doc.Roles {
		if normalizeRole(doc.Roles[i].Key) == key {
			return &doc.Roles[i], true
		}
	}
	return nil, false
}

func (doc *RoleManifestDocument) applyDefaults() {
	if doc.Version == "" {
		doc.Version = manifestVersionV1
	}
}
