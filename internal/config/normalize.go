package config

import (
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeArchive()
	c.normalizeOwnership()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.Root, err = expandPath(strings.TrimSpace(c.Paths.Root)); err != nil {
		return err
	}

	if strings.TrimSpace(c.Paths.StagingDir) == "" {
		c.Paths.StagingDir = filepath.Join(c.Paths.Root, defaultStagingAuthor, "outputs")
	}
	if strings.TrimSpace(c.Paths.ArchiveDir) == "" {
		c.Paths.ArchiveDir = filepath.Join(c.Paths.Root, "reconstructions")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.Root, "logs")
	}
	if strings.TrimSpace(c.Paths.RegistryPath) == "" {
		c.Paths.RegistryPath = filepath.Join(c.Paths.Root, "registry", defaultRegistryDBName)
	}

	for _, field := range []*string{
		&c.Paths.StagingDir,
		&c.Paths.ArchiveDir,
		&c.Paths.LogDir,
		&c.Paths.RegistryPath,
	} {
		expanded, err := expandPath(strings.TrimSpace(*field))
		if err != nil {
			return err
		}
		*field = expanded
	}
	return nil
}

func (c *Config) normalizeArchive() {
	c.Archive.DefaultBackend = strings.TrimSpace(c.Archive.DefaultBackend)
	backends := make([]string, 0, len(c.Archive.Backends))
	for _, b := range c.Archive.Backends {
		if b = strings.TrimSpace(b); b != "" {
			backends = append(backends, b)
		}
	}
	c.Archive.Backends = backends
	if c.Archive.DefaultBackend == "" && len(c.Archive.Backends) > 0 {
		c.Archive.DefaultBackend = c.Archive.Backends[0]
	}
}

func (c *Config) normalizeOwnership() {
	c.Ownership.Helper = strings.TrimSpace(c.Ownership.Helper)
}

func (c *Config) normalizeLogging() {
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
}
