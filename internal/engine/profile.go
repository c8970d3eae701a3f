package engine

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Profile describes the interpreter used to run submitted scripts.
// The active profile is fixed at process start; it configures the
// deployment, it does not offer per-run language selection.
type Profile struct {
	Name           string   `yaml:"name"`
	Command        []string `yaml:"command"`         // interpreter argv; the script path is appended
	Suffix         string   `yaml:"suffix"`          // temp file suffix, e.g. ".py"
	TimeoutSeconds int      `yaml:"timeout_seconds"` // 0 = engine default
	MaxOutput      int      `yaml:"max_output"`      // characters, 0 = engine default
}

// DefaultProfile returns the built-in python3 interpreter profile.
func DefaultProfile() Profile {
	return Profile{
		Name:    "python",
		Command: []string{"python3"},
		Suffix:  ".py",
	}
}

// LoadProfile reads an interpreter profile from a YAML file.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading profile %s: %w", path, err)
	}

	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing profile %s: %w", path, err)
	}

	if len(p.Command) == 0 {
		return nil, fmt.Errorf("profile %s: command must not be empty", path)
	}

	return &p, nil
}
