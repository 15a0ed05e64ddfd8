package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, path, exists, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if exists {
		t.Fatal("file should not exist")
	}
	if path == "" {
		t.Fatal("resolved path should not be empty")
	}
	if cfg.Archive.DefaultBackend != "hunyuan" {
		t.Fatalf("unexpected default backend %q", cfg.Archive.DefaultBackend)
	}
	if !strings.HasSuffix(cfg.Paths.StagingDir, filepath.Join("esteban", "outputs")) {
		t.Fatalf("staging dir not derived from root: %q", cfg.Paths.StagingDir)
	}
}

func TestLoadOverridesAndDerivedPaths(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "sceneflow.toml")
	content := `
[paths]
root = "` + dir + `"

[archive]
default_backend = "sam"
backends = ["sam"]
`
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !exists {
		t.Fatal("config file should exist")
	}
	if cfg.Paths.Root != dir {
		t.Fatalf("root = %q, want %q", cfg.Paths.Root, dir)
	}
	if cfg.Paths.ArchiveDir != filepath.Join(dir, "reconstructions") {
		t.Fatalf("archive dir not derived: %q", cfg.Paths.ArchiveDir)
	}
	if cfg.Paths.RegistryPath != filepath.Join(dir, "registry", "metadata.db") {
		t.Fatalf("registry path not derived: %q", cfg.Paths.RegistryPath)
	}
	if got := cfg.BackendRoot(""); got != filepath.Join(dir, "reconstructions", "sam") {
		t.Fatalf("BackendRoot default = %q", got)
	}
}

func TestValidateRejectsUnknownDefaultBackend(t *testing.T) {
	cfg := Default()
	cfg.Archive.DefaultBackend = "nonexistent"
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for unknown default backend")
	}
}

func TestValidateRejectsNegativeOwnership(t *testing.T) {
	cfg := Default()
	cfg.Ownership.StagingUID = -1
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for negative uid")
	}
}

func TestKnownBackend(t *testing.T) {
	cfg := Default()
	if !cfg.KnownBackend("") {
		t.Fatal("empty backend selects the default and is always known")
	}
	if !cfg.KnownBackend("sam") {
		t.Fatal("sam is configured")
	}
	if cfg.KnownBackend("other") {
		t.Fatal("other is not configured")
	}
}

func TestAuthorOutputsDir(t *testing.T) {
	cfg := Default()
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	got := cfg.AuthorOutputsDir("jun1")
	want := filepath.Join(cfg.Paths.Root, "jun1", "outputs")
	if got != want {
		t.Fatalf("AuthorOutputsDir = %q, want %q", got, want)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := CreateSample(path); err != nil {
		t.Fatalf("create sample: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[archive]") {
		t.Fatal("sample config missing archive section")
	}
	// The sample must parse and validate as-is.
	if _, _, _, err := Load(path); err != nil {
		t.Fatalf("sample config should load cleanly: %v", err)
	}
}
