package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTracker(); err != nil {
		return err
	}
	if err := c.validateSecrets(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateTracker() error {
	if c.Tracker.BaseURL == "" {
		// Tracker access is optional; stdin pipelines need no tracker.
		return nil
	}
	parsed, err := url.Parse(c.Tracker.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("tracker.base_url %q is not an absolute URL", c.Tracker.BaseURL)
	}
	if c.Tracker.Project == "" {
		return errors.New("tracker.project must be set when tracker.base_url is set")
	}
	if c.Tracker.TimeoutSeconds <= 0 {
		return errors.New("tracker.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateSecrets() error {
	if c.Secrets.PromptTimeoutSeconds <= 0 {
		return errors.New("secrets.prompt_timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
}
