package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks the configuration for values the pipeline cannot run with.
func (c *Config) Validate() error {
	var problems []error
	if err := c.validatePaths(); err != nil {
		problems = append(problems, err)
	}
	if err := c.validateArchive(); err != nil {
		problems = append(problems, err)
	}
	if err := c.validateOwnership(); err != nil {
		problems = append(problems, err)
	}
	if err := c.validateLogging(); err != nil {
		problems = append(problems, err)
	}
	return errors.Join(problems...)
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.Root) == "" {
		return errors.New("paths: root must be set")
	}
	return nil
}

func (c *Config) validateArchive() error {
	if len(c.Archive.Backends) == 0 {
		return errors.New("archive: at least one backend must be configured")
	}
	seen := map[string]struct{}{}
	for _, b := range c.Archive.Backends {
		if _, dup := seen[b]; dup {
			return fmt.Errorf("archive: duplicate backend %q", b)
		}
		seen[b] = struct{}{}
	}
	if _, ok := seen[c.Archive.DefaultBackend]; !ok {
		return fmt.Errorf("archive: default_backend %q is not in backends", c.Archive.DefaultBackend)
	}
	return nil
}

func (c *Config) validateOwnership() error {
	for name, id := range map[string]int{
		"staging_uid": c.Ownership.StagingUID,
		"staging_gid": c.Ownership.StagingGID,
		"handoff_uid": c.Ownership.HandoffUID,
		"handoff_gid": c.Ownership.HandoffGID,
	} {
		if id < 0 {
			return fmt.Errorf("ownership: %s must not be negative", name)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging: unsupported level %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging: unsupported format %q", c.Logging.Format)
	}
	return nil
}
