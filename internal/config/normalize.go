package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeTypes(); err != nil {
		return err
	}
	c.normalizeArchive()
	if err := c.normalizeJournal(); err != nil {
		return err
	}
	if err := c.normalizeMetrics(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if value, ok := os.LookupEnv("ARCHIVER_SOURCE_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.SourceDir = strings.TrimSpace(value)
	}
	var err error
	if c.Paths.SourceDir, err = expandPath(c.Paths.SourceDir); err != nil {
		return fmt.Errorf("paths.source_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeTypes() error {
	for i := range c.Types {
		t := &c.Types[i]
		t.Name = strings.TrimSpace(t.Name)
		exts := make([]string, 0, len(t.Extensions))
		seen := make(map[string]struct{}, len(t.Extensions))
		for _, ext := range t.Extensions {
			// Extensions stay case-sensitive; only surrounding space is dropped.
			ext = strings.TrimSpace(ext)
			if ext == "" {
				continue
			}
			if _, dup := seen[ext]; dup {
				continue
			}
			seen[ext] = struct{}{}
			exts = append(exts, ext)
		}
		t.Extensions = exts
		if strings.TrimSpace(t.Destination) == "" {
			t.Destination = ""
			continue
		}
		dest, err := expandPath(strings.TrimSpace(t.Destination))
		if err != nil {
			return fmt.Errorf("types[%d].destination: %w", i, err)
		}
		t.Destination = dest
	}
	return nil
}

func (c *Config) normalizeArchive() {
	c.Archive.TypeName = strings.TrimSpace(c.Archive.TypeName)
	if c.Archive.TypeName == "" {
		c.Archive.TypeName = defaultArchiveTypeName
	}
	if value, ok := os.LookupEnv("ARCHIVER_ARCHIVE_PASSWORD"); ok && value != "" {
		c.Archive.Password = value
	}
}

func (c *Config) normalizeJournal() error {
	if strings.TrimSpace(c.Journal.Path) == "" {
		c.Journal.Path = filepath.Join(c.Paths.StateDir, journalFileName)
	}
	var err error
	if c.Journal.Path, err = expandPath(c.Journal.Path); err != nil {
		return fmt.Errorf("journal.path: %w", err)
	}
	if c.Journal.RetentionDays < 0 {
		c.Journal.RetentionDays = 0
	}
	return nil
}

func (c *Config) normalizeMetrics() error {
	c.Metrics.TextfilePath = strings.TrimSpace(c.Metrics.TextfilePath)
	if c.Metrics.TextfilePath == "" {
		if !c.Metrics.Enabled {
			return nil
		}
		c.Metrics.TextfilePath = filepath.Join(c.Paths.StateDir, metricsFileName)
	}
	var err error
	if c.Metrics.TextfilePath, err = expandPath(c.Metrics.TextfilePath); err != nil {
		return fmt.Errorf("metrics.textfile_path: %w", err)
	}
	return nil
}

// levelRank orders the accepted level names from most to least verbose.
var levelRank = map[string]int{
	"debug":    0,
	"info":     1,
	"warn":     2,
	"warning":  2,
	"error":    3,
	"critical": 3,
}

func canonicalLevel(name string) string {
	switch name {
	case "warning":
		return "warn"
	case "critical":
		return "error"
	}
	return name
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}

	lowest := ""
	for _, raw := range c.Logging.Levels {
		name := strings.ToLower(strings.TrimSpace(raw))
		rank, ok := levelRank[name]
		if !ok {
			continue
		}
		if lowest == "" || rank < levelRank[lowest] {
			lowest = name
		}
	}
	if lowest != "" {
		c.Logging.Level = lowest
	}
	c.Logging.Level = canonicalLevel(strings.ToLower(strings.TrimSpace(c.Logging.Level)))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
