package config

const (
	defaultDataDir              = "~/.local/share/adpn"
	defaultStashDir             = "~/.local/share/adpn/stash"
	defaultPropsFile            = "~/.local/share/adpn/adpnet.json"
	defaultTrackerTimeout       = 30
	defaultSecretsPromptTimeout = 60
	defaultTitlesDBPath         = "~/.local/share/adpn/titlesdb.sqlite"
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:   defaultDataDir,
			StashDir:  defaultStashDir,
			PropsFile: defaultPropsFile,
		},
		Tracker: Tracker{
			TimeoutSeconds: defaultTrackerTimeout,
		},
		Secrets: Secrets{
			PromptTimeoutSeconds: defaultSecretsPromptTimeout,
		},
		Ingest: Ingest{
			TitlesDBPath: defaultTitlesDBPath,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
