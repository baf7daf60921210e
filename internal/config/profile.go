package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Profile tunes SAML detection beyond the built-in carrier parameters.
// Some IdP integrations tunnel payloads under vendor-specific names.
type Profile struct {
	// ExtraParams are additional query/form parameter names treated as
	// SAML carriers.
	ExtraParams []string `yaml:"extra_params"`

	// TabURLFilter overrides the env-configured tab URL filter when set.
	TabURLFilter string `yaml:"tab_url_filter"`
}

// LoadProfile reads and validates a YAML detection profile.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("detection profile: %w", err)
	}
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("detection profile: %w", err)
	}
	for i, name := range p.ExtraParams {
		if name == "" {
			return nil, fmt.Errorf("detection profile: extra_params[%d] is empty", i)
		}
	}
	return &p, nil
}
