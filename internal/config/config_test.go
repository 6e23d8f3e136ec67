package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, path, exists, err := Load(filepath.Join(t.TempDir(), "adpn.toml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if exists {
		t.Fatalf("config %q should not exist", path)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "console" {
		t.Fatalf("logging defaults = %+v", cfg.Logging)
	}
	if cfg.Tracker.TimeoutSeconds != defaultTrackerTimeout {
		t.Fatalf("tracker timeout = %d", cfg.Tracker.TimeoutSeconds)
	}
	if !filepath.IsAbs(cfg.Paths.PropsFile) {
		t.Fatalf("props file not expanded: %q", cfg.Paths.PropsFile)
	}
}

func TestLoadParsesAndNormalizes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "adpn.toml")
	content := `
[paths]
props_file = "~/adpnet.json"

[tracker]
base_url = "https://gitlab.example.edu/"
project = "adpn/ingest"
token = "  sesame  "

[logging]
level = "DEBUG"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, _, exists, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !exists {
		t.Fatal("config file should exist")
	}
	if cfg.Tracker.BaseURL != "https://gitlab.example.edu" {
		t.Fatalf("base url = %q, want trailing slash trimmed", cfg.Tracker.BaseURL)
	}
	if cfg.Tracker.Token != "sesame" {
		t.Fatalf("token = %q", cfg.Tracker.Token)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("level = %q", cfg.Logging.Level)
	}
	if strings.HasPrefix(cfg.Paths.PropsFile, "~") {
		t.Fatalf("props file not expanded: %q", cfg.Paths.PropsFile)
	}
}

func TestLoadRejectsTrackerWithoutProject(t *testing.T) {
	path := filepath.Join(t.TempDir(), "adpn.toml")
	content := `
[tracker]
base_url = "https://gitlab.example.edu"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, _, _, err := Load(path); err == nil {
		t.Fatal("expected validation error for tracker without project")
	}
}

func TestLoadRejectsBadLogLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "adpn.toml")
	if err := os.WriteFile(path, []byte("[logging]\nlevel = \"loud\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, _, _, err := Load(path); err == nil {
		t.Fatal("expected validation error for unknown log level")
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "adpn.toml")
	if err := CreateSample(path); err != nil {
		t.Fatalf("create sample: %v", err)
	}

	cfg, _, exists, err := Load(path)
	if err != nil {
		t.Fatalf("load sample: %v", err)
	}
	if !exists {
		t.Fatal("sample config should exist")
	}
	if cfg.Secrets.PromptTimeoutSeconds != defaultSecretsPromptTimeout {
		t.Fatalf("prompt timeout = %d", cfg.Secrets.PromptTimeoutSeconds)
	}
}

func TestTrackerTokenFromEnvironment(t *testing.T) {
	t.Setenv("ADPN_TRACKER_TOKEN", "from-env")

	path := filepath.Join(t.TempDir(), "adpn.toml")
	content := `
[tracker]
base_url = "https://gitlab.example.edu"
project = "adpn"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, _, _, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Tracker.Token != "from-env" {
		t.Fatalf("token = %q, want env fallback", cfg.Tracker.Token)
	}
}
