package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTracker()
	c.normalizeSecrets()
	if err := c.normalizeIngest(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StashDir) == "" {
		c.Paths.StashDir = defaultStashDir
	}
	if c.Paths.StashDir, err = expandPath(c.Paths.StashDir); err != nil {
		return fmt.Errorf("paths.stash_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.PropsFile) == "" {
		c.Paths.PropsFile = defaultPropsFile
	}
	if c.Paths.PropsFile, err = expandPath(c.Paths.PropsFile); err != nil {
		return fmt.Errorf("paths.props_file: %w", err)
	}
	return nil
}

func (c *Config) normalizeTracker() {
	c.Tracker.BaseURL = strings.TrimRight(strings.TrimSpace(c.Tracker.BaseURL), "/")
	c.Tracker.Project = strings.TrimSpace(c.Tracker.Project)
	c.Tracker.Token = strings.TrimSpace(c.Tracker.Token)
	if c.Tracker.Token == "" {
		if value, ok := os.LookupEnv("ADPN_TRACKER_TOKEN"); ok {
			c.Tracker.Token = strings.TrimSpace(value)
		}
	}
	if c.Tracker.TimeoutSeconds <= 0 {
		c.Tracker.TimeoutSeconds = defaultTrackerTimeout
	}
}

func (c *Config) normalizeSecrets() {
	trimmed := make([]string, 0, len(c.Secrets.Command))
	for _, word := range c.Secrets.Command {
		if word = strings.TrimSpace(word); word != "" {
			trimmed = append(trimmed, word)
		}
	}
	c.Secrets.Command = trimmed
	if c.Secrets.PromptTimeoutSeconds <= 0 {
		c.Secrets.PromptTimeoutSeconds = defaultSecretsPromptTimeout
	}
}

func (c *Config) normalizeIngest() error {
	var err error
	if strings.TrimSpace(c.Ingest.TitlesDBPath) == "" {
		c.Ingest.TitlesDBPath = defaultTitlesDBPath
	}
	if c.Ingest.TitlesDBPath, err = expandPath(c.Ingest.TitlesDBPath); err != nil {
		return fmt.Errorf("ingest.titlesdb_path: %w", err)
	}
	c.Ingest.DefaultPeer = strings.TrimSpace(c.Ingest.DefaultPeer)
	return nil
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
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
