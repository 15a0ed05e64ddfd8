// Package testsupport provides shared fixtures for package tests.
package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"sceneflow/internal/config"
)

// NewConfig returns a validated configuration rooted in a temporary
// directory. The privilege helper is disabled so ownership changes run with
// the test process's own rights.
func NewConfig(t *testing.T) *config.Config {
	t.Helper()

	root := t.TempDir()
	path := filepath.Join(root, "sceneflow.toml")
	content := fmt.Sprintf("[paths]\nroot = %q\n\n[ownership]\nhelper = \"\"\nstaging_uid = %d\nstaging_gid = %d\nhandoff_uid = %d\nhandoff_gid = %d\n",
		root, os.Getuid(), os.Getgid(), os.Getuid(), os.Getgid())
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config fixture: %v", err)
	}

	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("load config fixture: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return cfg
}

// WriteFile creates path with content, making parent directories as needed.
func WriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
