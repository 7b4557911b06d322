// Package project loads the sinter.json manifest that configures a
// build: the entry source file, output naming, emit options, and the
// toolchain version constraint.
package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Masterminds/semver/v3"
)

// ToolchainVersion is the version the compiler reports and validates
// manifest constraints against.
const ToolchainVersion = "0.4.0"

// ManifestName is the file the loader looks for in a project root.
const ManifestName = "sinter.json"

// Manifest is the parsed sinter.json.
type Manifest struct {
	Name     string `json:"name"`
	Entry    string `json:"entry"`
	Output   string `json:"output,omitempty"`
	EmitIR   bool   `json:"emit_ir,omitempty"`
	Compiler string `json:"compiler,omitempty"` // semver constraint, e.g. ">=0.3.0 <1.0.0"

	dir string
}

// Load reads a manifest file and validates it.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	m.dir = filepath.Dir(path)
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &m, nil
}

// Find walks up from dir looking for a sinter.json.
func Find(dir string) (*Manifest, error) {
	for {
		candidate := filepath.Join(dir, ManifestName)
		if _, err := os.Stat(candidate); err == nil {
			return Load(candidate)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, fmt.Errorf("no %s found from %s upward", ManifestName, dir)
		}
		dir = parent
	}
}

func (m *Manifest) validate() error {
	if m.Name == "" {
		return fmt.Errorf("manifest is missing 'name'")
	}
	if m.Entry == "" {
		return fmt.Errorf("manifest is missing 'entry'")
	}
	if m.Compiler != "" {
		if err := checkToolchain(m.Compiler, ToolchainVersion); err != nil {
			return err
		}
	}
	return nil
}

// EntryPath returns the entry source file relative to the manifest's
// directory.
func (m *Manifest) EntryPath() string {
	if filepath.IsAbs(m.Entry) || m.dir == "" {
		return m.Entry
	}
	return filepath.Join(m.dir, m.Entry)
}

// OutputPath returns the configured output file, defaulting to the
// project name with a .ir extension next to the manifest.
func (m *Manifest) OutputPath() string {
	out := m.Output
	if out == "" {
		out = m.Name + ".ir"
	}
	if filepath.IsAbs(out) || m.dir == "" {
		return out
	}
	return filepath.Join(m.dir, out)
}

// checkToolchain validates a manifest's compiler constraint against a
// toolchain version.
func checkToolchain(constraint, version string) error {
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return fmt.Errorf("bad 'compiler' constraint %q: %w", constraint, err)
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("bad toolchain version %q: %w", version, err)
	}
	if !c.Check(v) {
		return fmt.Errorf("toolchain %s does not satisfy 'compiler' constraint %q", version, constraint)
	}
	return nil
}
