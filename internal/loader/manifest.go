package loader

import (
	"encoding/hex"
	"fmt"
	"io/fs"
	"sort"

	"gopkg.in/yaml.v3"
)

// ManifestFile is the bundle manifest's path at the bundle root.
const ManifestFile = "bundle.yaml"

// Manifest represents the bundle.yaml structure.
type Manifest struct {
	Name    string           `yaml:"name"`
	Version string           `yaml:"version"`
	Targets []ManifestTarget `yaml:"targets"`
}

// ManifestTarget is one packaged build with an optional hex BLAKE3-256 digest.
type ManifestTarget struct {
	Target `yaml:",inline"`
	Digest string `yaml:"digest"`
}

// ParseManifest reads and parses bundle.yaml from a bundle.
func ParseManifest(bundle fs.FS) (*Manifest, error) {
	data, err := fs.ReadFile(bundle, ManifestFile)
	if err != nil {
		return nil, &ManifestNotFoundError{
			Path: ManifestFile,
			Err:  err,
		}
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, &ManifestParseError{
			Path: ManifestFile,
			Err:  err,
		}
	}

	// Validate manifest
	if err := m.Validate(); err != nil {
		return nil, err
	}

	return &m, nil
}

// Validate checks manifest fields.
func (m *Manifest) Validate() error {
	// Check required fields
	if m.Name == "" {
		return &ManifestValidationError{
			Path:    ManifestFile,
			Field:   "name",
			Message: "name is required",
		}
	}

	if m.Version == "" {
		return &ManifestValidationError{
			Path:    ManifestFile,
			Field:   "version",
			Message: "version is required",
		}
	}

	if len(m.Targets) == 0 {
		return &ManifestValidationError{
			Path:    ManifestFile,
			Field:   "targets",
			Message: "at least one target is required",
		}
	}

	seen := make(map[string]bool, len(m.Targets))
	for i, t := range m.Targets {
		field := fmt.Sprintf("targets[%d]", i)
		if t.Directory == "" || t.Name == "" || t.Extension == "" {
			return &ManifestValidationError{
				Path:    ManifestFile,
				Field:   field,
				Message: "directory, name and extension are required",
			}
		}
		if seen[t.Path()] {
			return &ManifestValidationError{
				Path:    ManifestFile,
				Field:   field,
				Message: fmt.Sprintf("duplicate target: %s", t.Target),
			}
		}
		seen[t.Path()] = true

		if t.Digest != "" {
			raw, err := hex.DecodeString(t.Digest)
			if err != nil || len(raw) != 32 {
				return &ManifestValidationError{
					Path:    ManifestFile,
					Field:   field + ".digest",
					Message: "digest must be a hex-encoded BLAKE3-256 sum",
				}
			}
		}
	}

	return nil
}

// Candidates returns the manifest's targets with those built for platform
// first. Order is otherwise preserved.
func (m *Manifest) Candidates(platform string) []Target {
	targets := make([]Target, len(m.Targets))
	for i, t := range m.Targets {
		targets[i] = t.Target
	}
	sort.SliceStable(targets, func(i, j int) bool {
		return targets[i].Directory == platform && targets[j].Directory != platform
	})
	return targets
}

// Digests returns the recorded digest of every target that has one, keyed by
// bundle path.
func (m *Manifest) Digests() map[string]string {
	digests := make(map[string]string)
	for _, t := range m.Targets {
		if t.Digest != "" {
			digests[t.Path()] = t.Digest
		}
	}
	return digests
}
