package registry

import (
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"gopkg.in/yaml.v3"
)

// OverridesConfig is the on-disk format of the scenario overrides file:
//
//	scenarios:
//	  - name: announce-subscribe
//	    timeout: 10s
//	  - name: publish-namespace-done
//	    skip: "relay does not send PUBLISH_NAMESPACE_DONE"
type OverridesConfig struct {
	Scenarios []ScenarioOverride `yaml:"scenarios"`
}

// ScenarioOverride adjusts a registered scenario.
type ScenarioOverride struct {
	Name    string         `yaml:"name"`
	Timeout *time.Duration `yaml:"timeout,omitempty"`
	Skip    string         `yaml:"skip,omitempty"`
}

// LoadOverrides reads an overrides file.
func LoadOverrides(path string) (*OverridesConfig, error) {
	log.Debug("Reading scenario overrides file", "path", path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading overrides file: %w", err)
	}

	var cfg OverridesConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing overrides file: %w", err)
	}
	return &cfg, nil
}

// WithOverrides returns a new registry with the overrides applied. The
// receiver is left untouched. Overrides may only target registered scenarios.
func (r *Registry) WithOverrides(o *OverridesConfig) (*Registry, error) {
	if o == nil {
		return r, nil
	}

	scenarios := r.Scenarios()
	index := make(map[string]int, len(scenarios))
	for i, s := range scenarios {
		index[s.Name] = i
	}

	skips := make(map[string]string, r.skips.Len())
	for name, reason := range r.skips.reasons {
		skips[name] = reason
	}

	for _, ov := range o.Scenarios {
		i, ok := index[ov.Name]
		if !ok {
			return nil, fmt.Errorf("override for unregistered scenario %q", ov.Name)
		}
		if ov.Timeout != nil {
			scenarios[i].Timeout = *ov.Timeout
		}
		if ov.Skip != "" {
			skips[ov.Name] = ov.Skip
		}
	}

	// Keep skip entries in catalogue order.
	entries := make([]SkipEntry, 0, len(skips))
	for _, s := range scenarios {
		if reason, ok := skips[s.Name]; ok {
			entries = append(entries, SkipEntry{Name: s.Name, Reason: reason})
		}
	}
	return New(scenarios, entries)
}
