// Package config loads judge configuration from an optional YAML file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"lojudge/pkg/utils/logger"
)

const (
	DefaultCompilerPath = "g++"
	DefaultStd          = "c++17"
	DefaultSourceName   = "main.cpp"
	DefaultTimeBinary   = "/usr/bin/time"
	DefaultBaseDir      = "problem"
	DefaultMetadataPath = "luogu_problems.json"

	defaultMaxCaptureBytes int64 = 64 * 1024
)

// Config holds judge settings. Flags override these; these override the
// built-in defaults.
type Config struct {
	CompilerPath    string        `yaml:"compilerPath"`
	Std             string        `yaml:"std"`
	SourceName      string        `yaml:"sourceName"`
	TimeBinary      string        `yaml:"timeBinary"`
	BaseDir         string        `yaml:"baseDir"`
	MetadataPath    string        `yaml:"metadataPath"`
	TimeoutSeconds  float64       `yaml:"timeoutSeconds"`
	MaxCaptureBytes int64         `yaml:"maxCaptureBytes"`
	HistoryFile     string        `yaml:"historyFile"`
	Logger          logger.Config `yaml:"logger"`
}

// Default returns the built-in configuration.
func Default() Config {
	cfg := Config{}
	applyDefaults(&cfg)
	return cfg
}

// Load reads a YAML config file and merges defaults.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config file failed: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config file failed: %w", err)
	}
	applyDefaults(&cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.CompilerPath == "" {
		cfg.CompilerPath = DefaultCompilerPath
	}
	if cfg.Std == "" {
		cfg.Std = DefaultStd
	}
	if cfg.SourceName == "" {
		cfg.SourceName = DefaultSourceName
	}
	if cfg.TimeBinary == "" {
		cfg.TimeBinary = DefaultTimeBinary
	}
	if cfg.BaseDir == "" {
		cfg.BaseDir = DefaultBaseDir
	}
	if cfg.MetadataPath == "" {
		cfg.MetadataPath = DefaultMetadataPath
	}
	if cfg.MaxCaptureBytes <= 0 {
		cfg.MaxCaptureBytes = defaultMaxCaptureBytes
	}
	if cfg.Logger.Level == "" {
		cfg.Logger.Level = "info"
	}
	if cfg.Logger.Format == "" {
		cfg.Logger.Format = "console"
	}
}
