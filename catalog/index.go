package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// ManifestVersion is the manifest format written by the code generator.
const ManifestVersion = 1

// Index enumerates the identifiers known to a loading context.
type Index interface {
	Identifiers(ctx context.Context) ([]string, error)
}

// Manifest is the on-disk index of component identifiers produced at build time.
type Manifest struct {
	Version    int             `yaml:"version"`
	Module     string          `yaml:"module,omitempty"`
	Components []ManifestEntry `yaml:"components"`
}

// ManifestEntry is one component listed in a manifest.
type ManifestEntry struct {
	Identifier string `yaml:"identifier"`
	Kind       string `yaml:"kind,omitempty"`
	Marker     Marker `yaml:",inline"`
}

// ReadManifest reads and validates a manifest file.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if m.Version != ManifestVersion {
		return nil, fmt.Errorf("unsupported manifest version %d", m.Version)
	}
	for i, entry := range m.Components {
		if err := ValidateIdentifier(entry.Identifier); err != nil {
			return nil, fmt.Errorf("manifest component %d: %w", i, err)
		}
	}
	return &m, nil
}

// WriteManifest writes a manifest file, creating parent directories.
func WriteManifest(path string, m *Manifest) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create manifest directory: %w", err)
	}

	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// ManifestIndex is an Index backed by a manifest file. The file is re-read
// on every call so a fresh scan always sees the current build output.
type ManifestIndex struct {
	Path string
}

// Identifiers returns the manifest's identifiers, de-duplicated and sorted.
func (m ManifestIndex) Identifiers(_ context.Context) ([]string, error) {
	manifest, err := ReadManifest(m.Path)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(manifest.Components))
	ids := make([]string, 0, len(manifest.Components))
	for _, entry := range manifest.Components {
		if _, dup := seen[entry.Identifier]; dup {
			continue
		}
		seen[entry.Identifier] = struct{}{}
		ids = append(ids, entry.Identifier)
	}
	sort.Strings(ids)
	return ids, nil
}
