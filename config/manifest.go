// ABOUTME: Optional sitekit.yaml manifest describing how a project's site is built.
// ABOUTME: Unset fields fall back to the conventional layout (navbar partial, dist output).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ManifestFile is the manifest's file name at the project root.
const ManifestFile = "sitekit.yaml"

// Conventional build layout used when no manifest overrides it.
const (
	DefaultPartial     = "assets/partials/navbar.html"
	DefaultPlaceholder = `<div id="site-navbar"></div>`
	DefaultOutput      = "dist"
)

// DefaultExclude lists directory names never traversed by the builder.
var DefaultExclude = []string{"dist", "tools", ".git"}

// Manifest is the parsed form of sitekit.yaml.
type Manifest struct {
	Partial     string   `yaml:"partial"`
	Placeholder string   `yaml:"placeholder"`
	Output      string   `yaml:"output"`
	Exclude     []string `yaml:"exclude"`
	Markdown    bool     `yaml:"markdown"`
}

// DefaultManifest returns the conventional layout.
func DefaultManifest() Manifest {
	return Manifest{
		Partial:     DefaultPartial,
		Placeholder: DefaultPlaceholder,
		Output:      DefaultOutput,
		Exclude:     append([]string(nil), DefaultExclude...),
	}
}

// LoadManifest reads sitekit.yaml from projectDir. A missing manifest yields
// DefaultManifest; fields left empty in the file keep their defaults.
func LoadManifest(projectDir string) (Manifest, error) {
	m := DefaultManifest()

	path := filepath.Join(projectDir, ManifestFile)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return m, nil
	}
	if err != nil {
		return m, fmt.Errorf("reading manifest: %w", err)
	}

	var parsed Manifest
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return m, fmt.Errorf("parsing %s: %w", path, err)
	}

	if parsed.Partial != "" {
		m.Partial = parsed.Partial
	}
	if parsed.Placeholder != "" {
		m.Placeholder = parsed.Placeholder
	}
	if parsed.Output != "" {
		m.Output = parsed.Output
	}
	if len(parsed.Exclude) > 0 {
		m.Exclude = parsed.Exclude
	}
	m.Markdown = parsed.Markdown

	return m, nil
}
