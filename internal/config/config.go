// Package config loads the engine's configuration from a YAML file with
// environment variable overrides and defaults.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// FeedConfig describes one static price feed: a raw fixed-point price and
// its decimal scale.
type FeedConfig struct {
	Price    string `yaml:"price"`
	Decimals int32  `yaml:"decimals"`
}

// Config holds all application configuration.
type Config struct {
	Port        string `yaml:"port"`
	DatabaseURL string `yaml:"database_url"`
	RedisURL    string `yaml:"redis_url"`
	OperatorKey string `yaml:"operator_key"`
	BatchCron   string `yaml:"batch_cron"` // empty disables the cron trigger

	Assets struct {
		Base        string `yaml:"base"`
		WrappedBase string `yaml:"wrapped_base"`
		Target      string `yaml:"target"`
	} `yaml:"assets"`

	Oracle struct {
		MaxAgeSeconds int        `yaml:"max_age_seconds"` // 0 disables staleness checks
		BaseFeed      FeedConfig `yaml:"base_feed"`
		TargetFeed    FeedConfig `yaml:"target_feed"`
	} `yaml:"oracle"`

	AMM struct {
		// Rate is the dev router's target-per-base settlement rate.
		Rate string `yaml:"rate"`
	} `yaml:"amm"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.RedisURL = v
	}
	if v := os.Getenv("OPERATOR_KEY"); v != "" {
		cfg.OperatorKey = v
	}
	if v := os.Getenv("BATCH_CRON"); v != "" {
		cfg.BatchCron = v
	}
	if v := os.Getenv("ORACLE_MAX_AGE_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Oracle.MaxAgeSeconds = n
		}
	}

	// Defaults
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.Assets.Base == "" {
		cfg.Assets.Base = "ETH"
	}
	if cfg.Assets.WrappedBase == "" {
		cfg.Assets.WrappedBase = "WETH"
	}
	if cfg.Assets.Target == "" {
		cfg.Assets.Target = "WBTC"
	}
	if cfg.Oracle.BaseFeed.Price == "" {
		cfg.Oracle.BaseFeed = FeedConfig{Price: "209405906218", Decimals: 8}
	}
	if cfg.Oracle.TargetFeed.Price == "" {
		cfg.Oracle.TargetFeed = FeedConfig{Price: "10096894592", Decimals: 8}
	}
	if cfg.AMM.Rate == "" {
		cfg.AMM.Rate = "20.74"
	}

	return cfg, nil
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if c.OperatorKey == "" {
		return fmt.Errorf("operator_key is required")
	}
	if c.Assets.Target == "" || c.Assets.WrappedBase == "" {
		return fmt.Errorf("assets.target and assets.wrapped_base are required")
	}
	return nil
}
