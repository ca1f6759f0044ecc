// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package domain

// Config represents the application configuration loaded from config.toml
// and overridden by ANIMEFUN__-prefixed environment variables.
type Config struct {
	Version string

	Host    string `toml:"host" mapstructure:"host"`
	BaseURL string `toml:"baseUrl" mapstructure:"baseUrl"`
	DataDir string `toml:"dataDir" mapstructure:"dataDir"`

	LogLevel      string `toml:"logLevel" mapstructure:"logLevel"`
	LogPath       string `toml:"logPath" mapstructure:"logPath"`
	LogMaxSize    int    `toml:"logMaxSize" mapstructure:"logMaxSize"`
	LogMaxBackups int    `toml:"logMaxBackups" mapstructure:"logMaxBackups"`

	BangumiHost string `toml:"bangumiHost" mapstructure:"bangumiHost"`
	MikanHost   string `toml:"mikanHost" mapstructure:"mikanHost"`

	RefreshIntervalSecs int `toml:"refreshIntervalSecs" mapstructure:"refreshIntervalSecs"`
	PreheatIntervalSecs int `toml:"preheatIntervalSecs" mapstructure:"preheatIntervalSecs"`

	MetricsEnabled bool   `toml:"metricsEnabled" mapstructure:"metricsEnabled"`
	MetricsHost    string `toml:"metricsHost" mapstructure:"metricsHost"`
	MetricsPort    int    `toml:"metricsPort" mapstructure:"metricsPort"`

	Port int `toml:"port" mapstructure:"port"`
}

// SetDefaults fills zero-valued fields with the application defaults. Called
// after TOML/env decoding so an empty config.toml still produces a usable
// Config.
func (c *Config) SetDefaults() {
	if c.Host == "" {
		c.Host = "127.0.0.1"
	}
	if c.Port == 0 {
		c.Port = 7475
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogMaxSize == 0 {
		c.LogMaxSize = 50
	}
	if c.LogMaxBackups == 0 {
		c.LogMaxBackups = 3
	}
	if c.BangumiHost == "" {
		c.BangumiHost = "https://api.bgm.tv"
	}
	if c.MikanHost == "" {
		c.MikanHost = "https://mikanani.me"
	}
	if c.RefreshIntervalSecs == 0 {
		c.RefreshIntervalSecs = 600
	}
	if c.PreheatIntervalSecs == 0 {
		c.PreheatIntervalSecs = 900
	}
	if c.MetricsHost == "" {
		c.MetricsHost = "127.0.0.1"
	}
	if c.MetricsPort == 0 {
		c.MetricsPort = 7476
	}
}
