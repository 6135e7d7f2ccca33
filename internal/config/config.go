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

// Paths contains directory configuration.
type Paths struct {
	SourceDir string `toml:"source_dir"`
	LogDir    string `toml:"log_dir"`
	StateDir  string `toml:"state_dir"`
}

// FileType maps a semantic type to the extensions it recognizes and the
// destination root its files are sent to. The order of [[types]] tables in
// the config file is the registry order used for first-match classification.
type FileType struct {
	Name        string   `toml:"name"`
	Extensions  []string `toml:"extensions"`
	Destination string   `toml:"destination"`
}

// Archive contains configuration for archive handling.
type Archive struct {
	// TypeName identifies which [[types]] entry holds archives. Matching is
	// case-insensitive.
	TypeName           string `toml:"type_name"`
	DeleteAfterExtract bool   `toml:"delete_after_extract"`
	// Password is the only password tried on encrypted 7z archives. Archives
	// encrypted with anything else are reported as password-protected.
	Password string `toml:"password"`
}

// Mover contains configuration for lock-aware relocation.
type Mover struct {
	MaxAttempts       int `toml:"max_attempts"`
	RetryDelaySeconds int `toml:"retry_delay_seconds"`
}

// Dispatch contains configuration for the per-cycle worker pool.
type Dispatch struct {
	WorkersPerCPU int `toml:"workers_per_cpu"`
}

// Watch contains configuration for the source directory poll loop.
type Watch struct {
	PollIntervalSeconds int `toml:"poll_interval_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	// Levels mirrors the legacy list form; the lowest listed level wins.
	Levels []string `toml:"levels"`
}

// Journal contains configuration for the outcome journal.
type Journal struct {
	Enabled       bool   `toml:"enabled"`
	Path          string `toml:"path"`
	RetentionDays int    `toml:"retention_days"`
}

// Metrics contains configuration for the Prometheus textfile export.
type Metrics struct {
	Enabled      bool   `toml:"enabled"`
	TextfilePath string `toml:"textfile_path"`
}

// Config encapsulates all configuration values for the archiver.
//
// Configuration sections by subsystem:
//   - Paths: source (drop) directory, log and state directories
//   - Types: ordered type registry with per-type destination roots
//   - Archive: archive type name, extraction password, delete flag
//   - Mover: lock retry budget and delay
//   - Dispatch: worker pool sizing
//   - Watch: poll interval for the daemon
//   - Logging: log format and levels
//   - Journal: sqlite outcome history
//   - Metrics: Prometheus textfile export
type Config struct {
	Paths    Paths      `toml:"paths"`
	Types    []FileType `toml:"types"`
	Archive  Archive    `toml:"archive"`
	Mover    Mover      `toml:"mover"`
	Dispatch Dispatch   `toml:"dispatch"`
	Watch    Watch      `toml:"watch"`
	Logging  Logging    `toml:"logging"`
	Journal  Journal    `toml:"journal"`
	Metrics  Metrics    `toml:"metrics"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
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

		// A file that declares its own [[types]] replaces the default registry
		// instead of appending to it.
		cfg.Types = nil
		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
		if len(cfg.Types) == 0 {
			cfg.Types = defaultTypes()
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
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("archiver.toml")
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

// EnsureDirectories creates the directories the archiver writes to. Type
// destinations are created lazily by the mover and extractor.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.LogDir, c.Paths.StateDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LogFilePath returns the append-only log file inside the log directory.
func (c *Config) LogFilePath() string {
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return ""
	}
	return filepath.Join(c.Paths.LogDir, "archiver.log")
}

// LockPath returns the daemon single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "archiver.lock")
}

// Destinations returns the type name to destination root mapping.
func (c *Config) Destinations() map[string]string {
	out := make(map[string]string, len(c.Types))
	for _, t := range c.Types {
		out[t.Name] = t.Destination
	}
	return out
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
