package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"sceneflow/internal/config"
)

// writeTestConfig creates a config file rooted in a temp dir with the
// privilege helper disabled so moves run with the test's own rights.
func writeTestConfig(t *testing.T) (string, *config.Config) {
	t.Helper()

	root := t.TempDir()
	cfgPath := filepath.Join(root, "sceneflow.toml")
	content := fmt.Sprintf("[paths]\nroot = %q\n\n[ownership]\nhelper = \"\"\nstaging_uid = %d\nstaging_gid = %d\nhandoff_uid = %d\nhandoff_gid = %d\n",
		root, os.Getuid(), os.Getgid(), os.Getuid(), os.Getgid())
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, _, err := config.Load(cfgPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	return cfgPath, cfg
}

func writeKeysFile(t *testing.T, keys ...string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "keys.yaml")
	var buf bytes.Buffer
	buf.WriteString("keys:\n")
	for _, key := range keys {
		fmt.Fprintf(&buf, "  - %s\n", key)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write keys file: %v", err)
	}
	return path
}

func writeFixture(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}
