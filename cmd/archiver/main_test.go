package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"archiver/internal/config"
	"archiver/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("ARCHIVER_SOURCE_DIR", "")
	t.Setenv("ARCHIVER_ARCHIVE_PASSWORD", "")

	cfg := testsupport.NewConfig(t, opts...)
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return &cliTestEnv{cfg: cfg, configPath: configPath}
}

func (e *cliTestEnv) run(t *testing.T, args ...string) string {
	t.Helper()
	cmd := newRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--config", e.configPath}, args...))
	if err := cmd.Execute(); err != nil {
		t.Fatalf("archiver %s: %v\nstderr:\n%s", strings.Join(args, " "), err, errOut.String())
	}
	return out.String()
}

func TestRunCommandTriagesSourceDirectory(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithDeleteAfterExtract())
	src := env.cfg.Paths.SourceDir
	testsupport.WriteFile(t, filepath.Join(src, "photo.jpg"), 256)
	testsupport.WriteZip(t, filepath.Join(src, "valid.zip"), testsupport.Member{Name: "inside.txt", Body: "hello"})
	testsupport.WriteFile(t, filepath.Join(src, "~$lock.docx"), 162)

	out := env.run(t, "run")
	for _, want := range []string{"photo.jpg", "valid.zip", "extracted", "temporary"} {
		if !strings.Contains(out, want) {
			t.Fatalf("run output missing %q:\n%s", want, out)
		}
	}
	testsupport.AssertExists(t, filepath.Join(testsupport.Destination(t, env.cfg, "Archive"), "valid", "inside.txt"))
	testsupport.AssertMissing(t, filepath.Join(src, "photo.jpg"))

	history := env.run(t, "history", "--limit", "10")
	if !strings.Contains(history, "photo.jpg") || !strings.Contains(history, "skipped") {
		t.Fatalf("history output:\n%s", history)
	}
}

func TestRunCommandExplicitFiles(t *testing.T) {
	env := setupCLITestEnv(t)
	outside := filepath.Join(t.TempDir(), "report.pdf")
	testsupport.WriteFile(t, outside, 64)

	out := env.run(t, "run", outside)
	if !strings.Contains(out, "report.pdf") {
		t.Fatalf("run output:\n%s", out)
	}
	testsupport.AssertMissing(t, outside)
}

func TestStatusCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	out := env.run(t, "status")
	for _, want := range []string{"Watcher:", "not running", "== Routing ==", "(extract", "Source directory:", "Archive destination:", "no history yet"} {
		if !strings.Contains(out, want) {
			t.Fatalf("status output missing %q:\n%s", want, out)
		}
	}
}

func TestHistoryWithoutJournal(t *testing.T) {
	env := setupCLITestEnv(t)
	if out := env.run(t, "history"); !strings.Contains(out, "No history recorded yet") {
		t.Fatalf("history output:\n%s", out)
	}
}

func TestConfigValidateCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	out := env.run(t, "config", "validate")
	if !strings.Contains(out, "Configuration valid") || !strings.Contains(out, "extract") {
		t.Fatalf("validate output:\n%s", out)
	}
}

func TestConfigInitCommand(t *testing.T) {
	target := filepath.Join(t.TempDir(), "nested", "config.toml")

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"config", "init", "--path", target})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("config init: %v", err)
	}
	testsupport.AssertExists(t, target)

	cmd = newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"config", "init", "--path", target})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected init to refuse overwriting without --overwrite")
	}

	cmd = newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"config", "init", "--path", target, "--overwrite"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestLogsCommandFiltersByCycle(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteFile(t, filepath.Join(env.cfg.Paths.SourceDir, "scan.png"), 32)
	env.run(t, "run")

	all := env.run(t, "logs", "--lines", "200")
	if !strings.Contains(all, `"cycle_id"`) {
		t.Fatalf("expected JSON records with cycle ids:\n%s", all)
	}
	if out := env.run(t, "logs", "--cycle", "no-such-cycle"); strings.TrimSpace(out) != "" {
		t.Fatalf("expected no records for unknown cycle, got:\n%s", out)
	}
}
