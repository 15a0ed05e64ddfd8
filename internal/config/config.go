package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the storage roots the pipeline stages agree on.
type Paths struct {
	// Root is the shared data root containing per-author output trees.
	Root string `toml:"root"`
	// StagingDir is where keys live between intake and archival.
	// Defaults to <root>/esteban/outputs.
	StagingDir string `toml:"staging_dir"`
	// ArchiveDir holds the per-backend week/author archive trees.
	// Defaults to <root>/reconstructions.
	ArchiveDir string `toml:"archive_dir"`
	// LogDir receives run logs and the batch lock file.
	LogDir string `toml:"log_dir"`
	// RegistryPath is the shared metadata registry database file.
	// Defaults to <root>/registry/metadata.db.
	RegistryPath string `toml:"registry_path"`
}

// Archive selects between the parallel archive backend trees.
type Archive struct {
	DefaultBackend string   `toml:"default_backend"`
	Backends       []string `toml:"backends"`
	// RequireSuccess gates archival on reconstruction_status by default.
	RequireSuccess bool `toml:"require_success"`
}

// Ownership holds the identity pairs applied to moved directories and the
// privilege helper used when the process itself lacks chown rights.
type Ownership struct {
	StagingUID int `toml:"staging_uid"`
	StagingGID int `toml:"staging_gid"`
	HandoffUID int `toml:"handoff_uid"`
	HandoffGID int `toml:"handoff_gid"`
	// Helper is the command prefix that grants elevated rights, e.g. "sudo".
	// Empty disables helper escalation.
	Helper string `toml:"helper"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for sceneflow.
type Config struct {
	Paths     Paths     `toml:"paths"`
	Archive   Archive   `toml:"archive"`
	Ownership Ownership `toml:"ownership"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path of the default config location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/sceneflow/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The second return is
// the resolved path, the third reports whether the file existed.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("sceneflow.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the directories every run depends on. ArchiveDir
// is created best-effort so commands still work when archive storage is
// temporarily offline.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StagingDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.ArchiveDir) != "" {
		_ = os.MkdirAll(c.Paths.ArchiveDir, 0o755)
	}
	if dir := filepath.Dir(c.Paths.RegistryPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create registry directory %q: %w", dir, err)
		}
	}
	return nil
}

// AuthorOutputsDir returns the per-author outputs root under the data root.
func (c *Config) AuthorOutputsDir(author string) string {
	return filepath.Join(c.Paths.Root, author, "outputs")
}

// BackendRoot returns the archive tree root for the given backend. An empty
// backend selects the configured default.
func (c *Config) BackendRoot(backend string) string {
	backend = strings.TrimSpace(backend)
	if backend == "" {
		backend = c.Archive.DefaultBackend
	}
	return filepath.Join(c.Paths.ArchiveDir, backend)
}

// KnownBackend reports whether the backend name is one of the configured
// archive trees. Empty means "use the default" and is always known.
func (c *Config) KnownBackend(backend string) bool {
	backend = strings.TrimSpace(backend)
	if backend == "" {
		return true
	}
	for _, b := range c.Archive.Backends {
		if b == backend {
			return true
		}
	}
	return false
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}
