package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"archiver/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test:
// a source directory, log and state directories, and one destination root per
// type under <base>/dest. Directories are created.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.SourceDir = filepath.Join(base, "source")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Journal.Path = filepath.Join(base, "state", "journal.db")
	cfgVal.Types = []config.FileType{
		{Name: "Image", Extensions: []string{".jpg", ".png"}, Destination: filepath.Join(base, "dest", "images")},
		{Name: "Document", Extensions: []string{".txt", ".docx"}, Destination: filepath.Join(base, "dest", "docs")},
		{Name: "PDF", Extensions: []string{".pdf"}, Destination: filepath.Join(base, "dest", "pdfs")},
		{Name: "Archive", Extensions: []string{".zip", ".7z", ".tar", ".gz", ".bz2"}, Destination: filepath.Join(base, "dest", "extracted")},
	}
	cfgVal.Mover.RetryDelaySeconds = 1
	cfgVal.Logging.Level = "debug"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	for _, dir := range []string{cfgVal.Paths.SourceDir, cfgVal.Paths.LogDir, cfgVal.Paths.StateDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}
	if err := cfgVal.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return builder.cfg
}

// WithDeleteAfterExtract enables removal of archives after extraction.
func WithDeleteAfterExtract() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Archive.DeleteAfterExtract = true
	}
}

// WithArchivePassword overrides the extraction password.
func WithArchivePassword(password string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Archive.Password = password
	}
}

// WithMetrics enables the textfile exporter under the state directory.
func WithMetrics() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Metrics.Enabled = true
		b.cfg.Metrics.TextfilePath = filepath.Join(b.baseDir, "state", "archiver.prom")
	}
}

// WithTypes replaces the type registry.
func WithTypes(types ...config.FileType) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Types = types
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.SourceDir)
}

// Destination returns the destination root of the named type.
func Destination(t testing.TB, cfg *config.Config, typeName string) string {
	t.Helper()
	for _, typ := range cfg.Types {
		if typ.Name == typeName {
			return typ.Destination
		}
	}
	t.Fatalf("type %q not configured", typeName)
	return ""
}
