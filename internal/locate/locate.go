// Package locate resolves a scene key to its directory under a two-level
// week/author grouping root. Every caller consumes the same three-way
// outcome: not present, exactly one directory, or an ambiguous set of
// matches that must never be auto-selected.
package locate

import (
	"os"
	"path/filepath"
)

// Kind classifies a lookup result.
type Kind int

const (
	NotFound Kind = iota
	Found
	Ambiguous
)

// Match is the outcome of resolving one key under a grouping root.
type Match struct {
	Kind  Kind
	Paths []string
}

// Path returns the single resolved directory. Only valid when Kind is Found.
func (m Match) Path() string {
	if m.Kind != Found || len(m.Paths) == 0 {
		return ""
	}
	return m.Paths[0]
}

// Week returns the first-level group name of the resolved directory.
func (m Match) Week() string {
	return m.component(2)
}

// Author returns the second-level group name of the resolved directory.
func (m Match) Author() string {
	return m.component(1)
}

func (m Match) component(up int) string {
	if m.Kind != Found || len(m.Paths) == 0 {
		return ""
	}
	p := m.Paths[0]
	for i := 0; i < up; i++ {
		p = filepath.Dir(p)
	}
	return filepath.Base(p)
}

// Find scans exactly two directory levels under root for directories named
// key and returns every match. A missing root is NotFound, not an error:
// the caller treats the key as absent and skips it.
func Find(root, key string) (Match, error) {
	weeks, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return Match{Kind: NotFound}, nil
		}
		return Match{}, err
	}

	var paths []string
	for _, week := range weeks {
		if !week.IsDir() {
			continue
		}
		authors, err := os.ReadDir(filepath.Join(root, week.Name()))
		if err != nil {
			return Match{}, err
		}
		for _, author := range authors {
			if !author.IsDir() {
				continue
			}
			candidate := filepath.Join(root, week.Name(), author.Name(), key)
			if info, err := os.Stat(candidate); err == nil && info.IsDir() {
				paths = append(paths, candidate)
			}
		}
	}

	switch len(paths) {
	case 0:
		return Match{Kind: NotFound}, nil
	case 1:
		return Match{Kind: Found, Paths: paths}, nil
	default:
		return Match{Kind: Ambiguous, Paths: paths}, nil
	}
}
