// Package keyset loads the YAML key-list files that drive every batch
// command. A key names one reconstructed scene and doubles as its directory
// name in every pipeline stage.
package keyset

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"sceneflow/internal/services"
)

// Set is a parsed key-list configuration file.
type Set struct {
	// Keys lists every scene key the batch operates on.
	Keys []string `yaml:"keys"`
	// Local optionally narrows intake to a subset of keys. Values are
	// free-form and ignored; only the key names matter.
	Local map[string]any `yaml:"local"`
}

// Load reads and parses a key-list file. A missing or empty file is a
// configuration error: the batch has nothing to act on and must stop.
func Load(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, services.Wrap(services.ErrConfiguration, "keyset", "load",
				fmt.Sprintf("config file not found: %s", path), nil)
		}
		return nil, services.Wrap(services.ErrConfiguration, "keyset", "load", "read config file", err)
	}

	var set Set
	if err := yaml.Unmarshal(data, &set); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "keyset", "parse", "invalid YAML", err)
	}
	if len(set.Keys) == 0 && len(set.Local) == 0 {
		return nil, services.Wrap(services.ErrConfiguration, "keyset", "parse",
			fmt.Sprintf("config file is empty: %s", path), nil)
	}
	return &set, nil
}

// AuthorKeys returns the keys intake should move: the local subset when one
// is present, otherwise the full key list.
func (s *Set) AuthorKeys() []string {
	if len(s.Local) == 0 {
		return append([]string(nil), s.Keys...)
	}
	keys := make([]string, 0, len(s.Local))
	for k := range s.Local {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Contains reports whether key is part of the configured key list.
func (s *Set) Contains(key string) bool {
	for _, k := range s.Keys {
		if k == key {
			return true
		}
	}
	return false
}

// Subset filters requested down to keys present in the configured list and
// returns the requested-but-unknown names separately.
func (s *Set) Subset(requested []string) (known, unknown []string) {
	for _, key := range requested {
		if s.Contains(key) {
			known = append(known, key)
		} else {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)
	return known, unknown
}
