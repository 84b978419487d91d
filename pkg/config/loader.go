package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Initialize loads, merges, and validates configuration from configDir's
// civicsync.yaml (if present — an entirely absent file is not an error,
// defaults apply), then checks for LLM_API_KEY in the environment.
//
// Steps: 1) read file (if present) 2) expand env vars 3) parse YAML
// 4) merge onto built-in defaults 5) validate 6) return ready-to-use Config.
func Initialize(_ context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("Initializing configuration")

	yamlCfg, err := loadYAML(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	queue, err := mergeQueue(DefaultQueueConfig(), yamlCfg.Queue)
	if err != nil {
		return nil, fmt.Errorf("failed to merge queue config: %w", err)
	}
	fetcher, err := mergeFetcher(DefaultFetcherConfig(), yamlCfg.Fetcher)
	if err != nil {
		return nil, fmt.Errorf("failed to merge fetcher config: %w", err)
	}
	filters, err := mergeFilters(DefaultFilterConfig(), yamlCfg.Filters)
	if err != nil {
		return nil, fmt.Errorf("failed to merge filter config: %w", err)
	}

	cfg := &Config{
		Queue:             queue,
		Fetcher:           fetcher,
		Filters:           filters,
		LLM:               yamlCfg.LLM,
		HasLLMCredentials: os.Getenv("LLM_API_KEY") != "",
	}
	if cfg.LLM == nil {
		cfg.LLM = &LLMConfig{}
	}
	if cfg.LLM.RequestTimeout <= 0 {
		cfg.LLM.RequestTimeout = 2 * time.Minute
	}

	if err := NewValidator(cfg).ValidateAll(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	stats := cfg.Stats()
	log.Info("Configuration initialized successfully",
		"meeting_skip_patterns", stats.MeetingSkipPatterns,
		"item_skip_patterns", stats.ItemSkipPatterns,
		"skip_matter_types", stats.SkipMatterTypes,
		"vendor_overrides", stats.VendorOverrides,
		"llm_credentials_present", cfg.HasLLMCredentials)

	return cfg, nil
}

func loadYAML(configDir string) (*YAMLConfig, error) {
	path := filepath.Join(configDir, "civicsync.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &YAMLConfig{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	expanded := ExpandEnv(data)

	var cfg YAMLConfig
	if err := yaml.Unmarshal(expanded, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &cfg, nil
}
