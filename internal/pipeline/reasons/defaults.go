package reasons

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// DefaultReason is one entry of the default reason set.
type DefaultReason struct {
	Key   string `yaml:"key"`
	Label string `yaml:"label"`
}

// Defaults is the default reason set per outcome.
type Defaults struct {
	Won  []DefaultReason `yaml:"won"`
	Lost []DefaultReason `yaml:"lost"`
}

// LoadDefaults parses the embedded default reason set.
func LoadDefaults() (Defaults, error) {
	return ParseDefaults(defaultsYAML)
}

// ParseDefaults parses a default reason set. Every entry needs a label and
// labels must be unique per outcome.
func ParseDefaults(data []byte) (Defaults, error) {
	var d Defaults
	if err := yaml.Unmarshal(data, &d); err != nil {
		return Defaults{}, fmt.Errorf("parse default reasons: %w", err)
	}
	for outcome, list := range map[string][]DefaultReason{"won": d.Won, "lost": d.Lost} {
		seen := make(map[string]struct{}, len(list))
		for i, r := range list {
			label := strings.ToLower(strings.TrimSpace(r.Label))
			if label == "" {
				return Defaults{}, fmt.Errorf("default %s reason %d has no label", outcome, i)
			}
			if _, dup := seen[label]; dup {
				return Defaults{}, fmt.Errorf("default %s reason %q is listed twice", outcome, r.Label)
			}
			seen[label] = struct{}{}
		}
	}
	return d, nil
}

func labels(list []DefaultReason) []string {
	out := make([]string, 0, len(list))
	for _, r := range list {
		out = append(out, strings.TrimSpace(r.Label))
	}
	return out
}
