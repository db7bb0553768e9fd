// Package manifest reads a package manifest (`nova.yaml`): the name,
// version, dependency list, optional feature flags, and build settings
// a program or library declares about itself. Elsewhere in this module
// only cmd/novac reads a loaded manifest, and only its name and
// version (for a log line); Dependencies, Features and Build are
// decoded and kept on the struct, but nothing else in this module
// acts on them.
//
// A plain yaml.v3-decoded struct, validated then defaulted, loaded
// either from a path or from raw bytes.
package manifest

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Manifest is the decoded form of nova.yaml.
type Manifest struct {
	Name         string       `yaml:"name"`
	Version      string       `yaml:"version"`
	Dependencies []Dependency `yaml:"dependencies"`
	Features     []string     `yaml:"features"`
	Build        Build        `yaml:"build"`
}

// Dependency names one required package, a version constraint, and
// where to find it — a registry name or a local/vendored path.
// internal/modgraph does not read it: imports resolve from the paths
// written in source alone.
type Dependency struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	Source  string `yaml:"source"`
}

// Build carries build-time settings, among them Entry (the program's
// entry file); nothing outside this package reads it.
type Build struct {
	Entry string `yaml:"entry"`
}

// Load reads and parses path into a Manifest.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: reading %s: %w", path, err)
	}
	return Parse(data, path)
}

// Parse decodes raw YAML bytes into a Manifest. path is used only to
// annotate error messages (e.g. when called on an in-memory buffer in
// a test).
func Parse(data []byte, path string) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("manifest: parsing %s: %w", path, err)
	}
	if err := m.validate(path); err != nil {
		return nil, err
	}
	m.setDefaults()
	return &m, nil
}

func (m *Manifest) validate(path string) error {
	if m.Name == "" {
		return fmt.Errorf("manifest: %s: missing required field %q", path, "name")
	}
	if m.Version == "" {
		return fmt.Errorf("manifest: %s: missing required field %q", path, "version")
	}
	for i, dep := range m.Dependencies {
		if dep.Name == "" {
			return fmt.Errorf("manifest: %s: dependency %d is missing a name", path, i)
		}
		if dep.Source == "" && dep.Version == "" {
			return fmt.Errorf("manifest: %s: dependency %q needs a version constraint or a source", path, dep.Name)
		}
	}
	return nil
}

// setDefaults fills in values a manifest is allowed to omit: an entry
// point defaults to main.nova, matching cmd/novac's own default when
// no manifest is present at all.
func (m *Manifest) setDefaults() {
	if m.Build.Entry == "" {
		m.Build.Entry = "main.nova"
	}
}

// IsLocal reports whether dep resolves to a filesystem path rather
// than a registry lookup.
func (dep *Dependency) IsLocal() bool {
	return dep.Source != "" && (dep.Source[0] == '.' || dep.Source[0] == '/')
}
