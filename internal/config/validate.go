package config

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
)

// ErrNoTypes reports a configuration without any [[types]] entries.
var ErrNoTypes = errors.New("at least one [[types]] entry is required")

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateTypes(); err != nil {
		return err
	}
	if err := c.validateArchive(); err != nil {
		return err
	}
	if err := ensurePositiveMap(map[string]int{
		"mover.max_attempts":          c.Mover.MaxAttempts,
		"mover.retry_delay_seconds":   c.Mover.RetryDelaySeconds,
		"dispatch.workers_per_cpu":    c.Dispatch.WorkersPerCPU,
		"watch.poll_interval_seconds": c.Watch.PollIntervalSeconds,
	}); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.SourceDir) == "" {
		return errors.New("paths.source_dir must be set")
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		return errors.New("paths.state_dir must be set")
	}
	return nil
}

func (c *Config) validateTypes() error {
	if len(c.Types) == 0 {
		return ErrNoTypes
	}
	fold := cases.Fold()
	seen := make(map[string]int, len(c.Types))
	for i, t := range c.Types {
		if t.Name == "" {
			return fmt.Errorf("types[%d].name must be set", i)
		}
		key := fold.String(t.Name)
		if prev, dup := seen[key]; dup {
			return fmt.Errorf("types[%d].name %q duplicates types[%d].name %q", i, t.Name, prev, c.Types[prev].Name)
		}
		seen[key] = i
		if len(t.Extensions) == 0 {
			return fmt.Errorf("types[%d] (%s): at least one extension is required", i, t.Name)
		}
		for _, ext := range t.Extensions {
			if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
				return fmt.Errorf("types[%d] (%s): extension %q must start with '.'", i, t.Name, ext)
			}
		}
		if t.Destination == "" {
			return fmt.Errorf("types[%d] (%s): destination must be set", i, t.Name)
		}
	}
	return nil
}

func (c *Config) validateArchive() error {
	if c.ArchiveType() != nil {
		return nil
	}
	for i, t := range c.Types {
		for _, ext := range t.Extensions {
			if isArchiveExtension(ext) {
				return fmt.Errorf("archive.type_name %q matches no configured type, but types[%d] (%s) registers archive extension %q", c.Archive.TypeName, i, t.Name, ext)
			}
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	if _, ok := levelRank[c.Logging.Level]; !ok {
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
	return nil
}

// ArchiveType returns the configured type holding archives, matched under
// Unicode case folding, or nil when none is configured.
func (c *Config) ArchiveType() *FileType {
	fold := cases.Fold()
	want := fold.String(c.Archive.TypeName)
	for i := range c.Types {
		if fold.String(c.Types[i].Name) == want {
			return &c.Types[i]
		}
	}
	return nil
}

func isArchiveExtension(ext string) bool {
	switch ext {
	case ".zip", ".7z", ".tar", ".gz", ".tgz", ".bz2", ".tbz2":
		return true
	}
	return false
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
