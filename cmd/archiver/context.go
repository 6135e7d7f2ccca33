package main

import (
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"archiver/internal/config"
	"archiver/internal/journal"
	"archiver/internal/logging"
	"archiver/internal/metrics"
	"archiver/internal/triage"
)

type commandContext struct {
	configFlag *string
	levelFlag  *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error
}

func newCommandContext(configFlag, levelFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		levelFlag:  levelFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, path, _, err := config.Load(c.configFlagValue())
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = path
	})
	return c.config, c.configErr
}

func (c *commandContext) configFlagValue() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) levelOverride() string {
	if c.levelFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.levelFlag)
}

// logger writes human-facing records to w and everything to the log file.
func (c *commandContext) logger(cfg *config.Config, w io.Writer) (*slog.Logger, error) {
	level := cfg.Logging.Level
	if override := c.levelOverride(); override != "" {
		level = override
	}
	return logging.New(logging.Options{
		Level:    level,
		Format:   cfg.Logging.Format,
		Output:   w,
		FilePath: cfg.LogFilePath(),
	})
}

// pipeline wires a triage cycle with the journal and metrics the config
// enables. The returned closer releases the journal.
func (c *commandContext) pipeline(cfg *config.Config, logger *slog.Logger) (*triage.Cycle, *journal.Journal, func(), error) {
	opts := triage.Options{Logger: logger}
	var j *journal.Journal
	if cfg.Journal.Enabled {
		opened, err := journal.Open(cfg)
		if err != nil {
			return nil, nil, nil, err
		}
		j = opened
		opts.Journal = j
	}
	if cfg.Metrics.Enabled {
		opts.Recorder = metrics.NewPrometheus()
		opts.TextfilePath = cfg.Metrics.TextfilePath
	}
	cycle, err := triage.New(cfg, opts)
	if err != nil {
		if j != nil {
			_ = j.Close()
		}
		return nil, nil, nil, err
	}
	closer := func() {
		if j != nil {
			_ = j.Close()
		}
	}
	return cycle, j, closer, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
