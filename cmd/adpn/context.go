package main

import (
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/CJohnsonADAH/adpn-cli/internal/config"
	"github.com/CJohnsonADAH/adpn-cli/internal/logging"
	"github.com/CJohnsonADAH/adpn-cli/internal/props"
	"github.com/CJohnsonADAH/adpn-cli/internal/resolve"
	"github.com/CJohnsonADAH/adpn-cli/internal/secrets"
	"github.com/CJohnsonADAH/adpn-cli/internal/stash"
	"github.com/CJohnsonADAH/adpn-cli/internal/tracker"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() *slog.Logger {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil || cfg == nil {
			c.logger = logging.NewNop()
			return
		}
		logger, err := logging.New(logging.Options{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
		})
		if err != nil {
			c.logger = logging.NewNop()
			return
		}
		c.logger = logger
	})
	return c.logger
}

func (c *commandContext) propsStore() (*props.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return props.NewStore(cfg.Paths.PropsFile, c.ensureLogger()), nil
}

func (c *commandContext) secretsManager() (*secrets.Manager, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return &secrets.Manager{
		Command: cfg.Secrets.Command,
		Timeout: time.Duration(cfg.Secrets.PromptTimeoutSeconds) * time.Second,
		Logger:  c.ensureLogger(),
	}, nil
}

func (c *commandContext) trackerClient() (*tracker.HTTPClient, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Tracker.BaseURL == "" {
		return nil, nil
	}
	return tracker.NewHTTPClient(tracker.Config{
		BaseURL: cfg.Tracker.BaseURL,
		Project: cfg.Tracker.Project,
		Token:   cfg.Tracker.Token,
		Timeout: time.Duration(cfg.Tracker.TimeoutSeconds) * time.Second,
	}, c.ensureLogger()), nil
}

// sessionFromEnv reopens the stash session handed down by a parent process,
// or nil when none is exported.
func (c *commandContext) sessionFromEnv() (*stash.Session, error) {
	file := os.Getenv(stash.EnvFile)
	key := os.Getenv(stash.EnvKey)
	if file == "" || key == "" {
		return nil, nil
	}
	return stash.Resume(file, key, c.ensureLogger())
}

func (c *commandContext) resolveEnv() (*resolve.Env, error) {
	store, err := c.propsStore()
	if err != nil {
		return nil, err
	}
	manager, err := c.secretsManager()
	if err != nil {
		return nil, err
	}
	session, err := c.sessionFromEnv()
	if err != nil {
		return nil, err
	}
	return &resolve.Env{
		Props:   store,
		Stash:   session,
		Secrets: manager,
		Logger:  c.ensureLogger(),
	}, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
