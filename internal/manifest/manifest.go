package manifest

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

//go:embed manifest.yaml
var defaultManifestYAML []byte

const (
	OnFailureAbort    = "abort"
	OnFailureContinue = "continue"
)

type ArtifactEntry struct {
	Name   string `yaml:"name"`
	Key    string `yaml:"key"`
	Dest   string `yaml:"dest"`
	Verify string `yaml:"verify,omitempty"`

	// OnFailure decides whether an exhausted fetch stops the bootstrap
	// (abort, the default) or only degrades it (continue).
	OnFailure string `yaml:"on_failure,omitempty"`
}

// Manifest lists what the bootstrap installs: OS packages, the artifacts
// fetched from object storage and the pinned Python requirements.
type Manifest struct {
	Packages     []string        `yaml:"packages"`
	Artifacts    []ArtifactEntry `yaml:"artifacts"`
	Requirements []string        `yaml:"requirements"`
}

func Default() (*Manifest, error) {
	return Parse(defaultManifestYAML)
}

// Load reads a manifest from path, or returns the embedded one if path is empty.
func Load(path string) (*Manifest, error) {
	if path == "" {
		return Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading manifest %s: %w", path, err)
	}

	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("error loading manifest %s: %w", path, err)
	}
	return m, nil
}

func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.UnmarshalStrict(data, &m); err != nil {
		return nil, fmt.Errorf("error parsing manifest: %w", err)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}

	return &m, nil
}

func (m *Manifest) Validate() error {
	seen := make(map[string]bool)
	for i, a := range m.Artifacts {
		if a.Name == "" || a.Key == "" || a.Dest == "" {
			return fmt.Errorf("artifact %d must have name, key and dest", i)
		}
		if seen[a.Name] {
			return fmt.Errorf("duplicate artifact name '%s'", a.Name)
		}
		seen[a.Name] = true

		switch a.Verify {
		case "", "none", "nonempty", "csv":
		default:
			return fmt.Errorf("artifact '%s' has unknown verify mode '%s'", a.Name, a.Verify)
		}

		switch a.OnFailure {
		case "", OnFailureAbort, OnFailureContinue:
		default:
			return fmt.Errorf("artifact '%s' has unknown on_failure '%s', must be '%s' or '%s'", a.Name, a.OnFailure, OnFailureAbort, OnFailureContinue)
		}
	}
	return nil
}
