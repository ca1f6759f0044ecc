// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package config loads config.toml into a domain.Config, layering
// ANIMEFUN__-prefixed environment variables on top and generating a
// commented default file on first run (§2A).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/autobrr/animefun/internal/domain"
)

const envPrefix = "ANIMEFUN_"

// AppConfig wraps the decoded domain.Config with the viper instance that
// produced it, so mutable fields (log level, refresh/preheat intervals) can be
// hot-reloaded without tearing down and reopening the stores.
type AppConfig struct {
	mu     sync.RWMutex
	config *domain.Config
	v      *viper.Viper
	path   string
}

// New loads configPath, creating it with commented defaults if it doesn't
// exist, and returns a ready AppConfig with fsnotify-backed live reload
// already running.
func New(configPath string) (*AppConfig, error) {
	if err := ensureConfigFile(configPath); err != nil {
		return nil, fmt.Errorf("ensure config file: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("toml")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}

	ac := &AppConfig{config: cfg, v: v, path: configPath}

	v.OnConfigChange(func(e fsnotify.Event) {
		ac.reload()
	})
	v.WatchConfig()

	return ac, nil
}

func decode(v *viper.Viper) (*domain.Config, error) {
	cfg := &domain.Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.SetDefaults()
	return cfg, nil
}

// reload re-decodes the mutable fields (log level, refresh/preheat
// intervals) on a config file change. Connection-shaped fields (host, port,
// data dir) are intentionally left alone: changing those requires a
// restart, not a hot swap.
func (ac *AppConfig) reload() {
	fresh, err := decode(ac.v)
	if err != nil {
		log.Warn().Err(err).Msg("config: reload failed, keeping previous values")
		return
	}

	ac.mu.Lock()
	defer ac.mu.Unlock()

	if fresh.LogLevel != ac.config.LogLevel {
		log.Info().Str("from", ac.config.LogLevel).Str("to", fresh.LogLevel).Msg("config: log level changed")
	}
	ac.config.LogLevel = fresh.LogLevel
	ac.config.RefreshIntervalSecs = fresh.RefreshIntervalSecs
	ac.config.PreheatIntervalSecs = fresh.PreheatIntervalSecs
}

// Config returns a snapshot of the current configuration.
func (ac *AppConfig) Config() domain.Config {
	ac.mu.RLock()
	defer ac.mu.RUnlock()
	return *ac.config
}

// GetDataDir resolves the data directory: the config value if set,
// otherwise the directory containing the config file.
func (ac *AppConfig) GetDataDir() string {
	ac.mu.RLock()
	defer ac.mu.RUnlock()
	if ac.config.DataDir != "" {
		return ac.config.DataDir
	}
	return filepath.Dir(ac.path)
}

func ensureConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	return os.WriteFile(path, []byte(defaultConfigTOML), 0o644)
}

const defaultConfigTOML = `# animefun configuration
# Every key below may also be set via an ANIMEFUN__-prefixed environment
# variable, e.g. ANIMEFUN__PORT=8080. Env vars always win over this file.

host = "127.0.0.1"
port = 7475

# baseUrl = ""
# dataDir = ""

logLevel = "info"
# logPath = ""
logMaxSize = 50
logMaxBackups = 3

bangumiHost = "https://api.bgm.tv"
mikanHost = "https://mikanani.me"

refreshIntervalSecs = 600
preheatIntervalSecs = 900

metricsEnabled = false
metricsHost = "127.0.0.1"
metricsPort = 7476
`
