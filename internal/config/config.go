// Package config loads the application configuration: defaults, then an
// optional YAML file, then NOTEDECK_* environment variables, then
// command-line flags, each layer overriding the previous one.
package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

const envPrefix = "NOTEDECK_"

// Config is the full application configuration.
type Config struct {
	DBPath       string `koanf:"db" validate:"required"`
	Listen       string `koanf:"listen" validate:"required,hostname_port"`
	ReposDir     string `koanf:"repos-dir" validate:"required"`
	HistoryLimit int    `koanf:"history-limit" validate:"gte=0,lte=1000"`
}

// Default returns the configuration used when nothing else is specified.
func Default() Config {
	return Config{
		DBPath:       "notedeck.db",
		Listen:       "127.0.0.1:8484",
		ReposDir:     "repos",
		HistoryLimit: 50,
	}
}

// Load builds the configuration from the file at path (skipped when path is
// empty), the environment, and the given flag set, then validates it.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	// NOTEDECK_REPOS_DIR -> repos-dir, etc.
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "_", "-")
	}), nil); err != nil {
		return Config{}, fmt.Errorf("loading environment: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return Config{}, fmt.Errorf("loading flags: %w", err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
