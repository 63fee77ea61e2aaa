package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SystemEntry is one line of the systems manifest. Built-in systems are
// named; Lua systems also carry a script path relative to the scripts dir.
type SystemEntry struct {
	Name    string `yaml:"name"`
	Script  string `yaml:"script"`
	Enabled *bool  `yaml:"enabled"`
	Note    string `yaml:"note"`
}

// IsEnabled treats a missing enabled key as true.
func (e SystemEntry) IsEnabled() bool {
	return e.Enabled == nil || *e.Enabled
}

// SystemList is the ordered systems manifest. Order is registration order,
// which is also run order.
type SystemList struct {
	Systems []SystemEntry `yaml:"systems"`
}

// LoadSystemList loads systems.yaml.
func LoadSystemList(path string) (*SystemList, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read systems manifest: %w", err)
	}
	return ParseSystemList(raw)
}

func ParseSystemList(raw []byte) (*SystemList, error) {
	var l SystemList
	if err := yaml.Unmarshal(raw, &l); err != nil {
		return nil, fmt.Errorf("parse systems manifest: %w", err)
	}
	seen := make(map[string]bool, len(l.Systems))
	for i, e := range l.Systems {
		if e.Name == "" {
			return nil, fmt.Errorf("systems manifest: entry %d has no name", i)
		}
		if seen[e.Name] {
			return nil, fmt.Errorf("systems manifest: duplicate system %q", e.Name)
		}
		seen[e.Name] = true
	}
	return &l, nil
}

// Enabled returns the enabled entries in manifest order.
func (l *SystemList) Enabled() []SystemEntry {
	out := make([]SystemEntry, 0, len(l.Systems))
	for _, e := range l.Systems {
		if e.IsEnabled() {
			out = append(out, e)
		}
	}
	return out
}

// Count returns the total number of entries loaded.
func (l *SystemList) Count() int {
	return len(l.Systems)
}
