package config

const (
	defaultConfigPath          = "~/.config/archiver/config.toml"
	defaultSourceDir           = "~/Downloads"
	defaultLogDir              = "~/.local/share/archiver/logs"
	defaultStateDir            = "~/.local/share/archiver"
	defaultArchiveTypeName     = "Archive"
	defaultArchivePassword     = "123"
	defaultMoverMaxAttempts    = 5
	defaultMoverRetryDelay     = 2
	defaultWorkersPerCPU       = 2
	defaultPollIntervalSeconds = 5
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultJournalRetention    = 90
	journalFileName            = "journal.db"
	metricsFileName            = "archiver.prom"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			SourceDir: defaultSourceDir,
			LogDir:    defaultLogDir,
			StateDir:  defaultStateDir,
		},
		Types: defaultTypes(),
		Archive: Archive{
			TypeName: defaultArchiveTypeName,
			Password: defaultArchivePassword,
		},
		Mover: Mover{
			MaxAttempts:       defaultMoverMaxAttempts,
			RetryDelaySeconds: defaultMoverRetryDelay,
		},
		Dispatch: Dispatch{
			WorkersPerCPU: defaultWorkersPerCPU,
		},
		Watch: Watch{
			PollIntervalSeconds: defaultPollIntervalSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Journal: Journal{
			Enabled:       true,
			RetentionDays: defaultJournalRetention,
		},
	}
}

func defaultTypes() []FileType {
	return []FileType{
		{Name: "Image", Extensions: []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}, Destination: "~/Pictures"},
		{Name: "Document", Extensions: []string{".docx", ".doc", ".txt", ".odt"}, Destination: "~/Documents/Docs"},
		{Name: "PDF", Extensions: []string{".pdf"}, Destination: "~/Documents/PDFs"},
		{Name: "Presentation", Extensions: []string{".pptx", ".ppt"}, Destination: "~/Documents/Presentations"},
		{Name: "Archive", Extensions: []string{".zip", ".7z", ".tar", ".gz", ".bz2"}, Destination: "~/Downloads/Extracted"},
	}
}
