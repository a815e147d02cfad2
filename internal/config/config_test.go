package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg != Default() {
		t.Errorf("Expected defaults, got %+v", cfg)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "db: /tmp/other.db\nhistory-limit: 100\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DBPath != "/tmp/other.db" {
		t.Errorf("Expected the file to set the db path, got %q", cfg.DBPath)
	}
	if cfg.HistoryLimit != 100 {
		t.Errorf("Expected history limit 100, got %d", cfg.HistoryLimit)
	}
	// Unset keys keep their defaults.
	if cfg.Listen != Default().Listen {
		t.Errorf("Expected the default listen address, got %q", cfg.Listen)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("listen: 127.0.0.1:1111\n"), 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	t.Setenv("NOTEDECK_LISTEN", "127.0.0.1:2222")
	t.Setenv("NOTEDECK_REPOS_DIR", "/tmp/repos")

	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Listen != "127.0.0.1:2222" {
		t.Errorf("Expected the environment to win over the file, got %q", cfg.Listen)
	}
	if cfg.ReposDir != "/tmp/repos" {
		t.Errorf("Expected NOTEDECK_REPOS_DIR to map to repos-dir, got %q", cfg.ReposDir)
	}
}

func TestLoadFlagsOverrideEnv(t *testing.T) {
	t.Setenv("NOTEDECK_DB", "/tmp/env.db")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("db", "notedeck.db", "")
	if err := flags.Parse([]string{"--db", "/tmp/flag.db"}); err != nil {
		t.Fatalf("parsing flags: %v", err)
	}

	cfg, err := Load("", flags)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DBPath != "/tmp/flag.db" {
		t.Errorf("Expected the flag to win, got %q", cfg.DBPath)
	}
}

func TestLoadUnchangedFlagKeepsEnv(t *testing.T) {
	t.Setenv("NOTEDECK_DB", "/tmp/env.db")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("db", "notedeck.db", "")
	if err := flags.Parse(nil); err != nil {
		t.Fatalf("parsing flags: %v", err)
	}

	cfg, err := Load("", flags)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DBPath != "/tmp/env.db" {
		t.Errorf("Expected the environment value to survive an unchanged flag, got %q", cfg.DBPath)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	t.Setenv("NOTEDECK_LISTEN", "not-an-address")
	if _, err := Load("", nil); err == nil {
		t.Error("Expected a validation error for a bad listen address")
	}
}

func TestLoadRejectsExcessiveHistoryLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("history-limit: 5000\n"), 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	if _, err := Load(path, nil); err == nil {
		t.Error("Expected a validation error for a history limit over the retained bound")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml", nil); err == nil {
		t.Error("Expected an error for a missing config file")
	}
}
