// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package downloader persists the single qBittorrent download-client
// configuration (downloader.json) and manages the live Client built from it
// (§6). The password is stored AES-GCM-encrypted at rest, adapting the
// teacher's internal/crypto helper, and is always redacted on read-back.
package downloader

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/autobrr/animefun/internal/crypto"
	"github.com/autobrr/animefun/internal/domain"
	"github.com/autobrr/animefun/internal/qbittorrent"
)

const (
	configFileName = "downloader.json"
	keyFileName    = ".downloader.key"
)

// Config is the persisted shape of downloader.json. Password holds the
// AES-GCM ciphertext on disk; it is decrypted only inside Set and Connect to
// build the live client, and callers never see it in cleartext.
type Config struct {
	APIURL   string `json:"api_url"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
}

// Redacted returns a copy with Password masked, safe to echo back to the UI.
func (c Config) Redacted() Config {
	c.Password = domain.RedactString(c.Password)
	return c
}

// Store loads and saves Config to downloader.json and owns the live
// qbittorrent.Client built from it.
type Store struct {
	dataDir   string
	encryptor *crypto.AESEncryptor

	mu     sync.RWMutex
	config *Config
	client *qbittorrent.Client
}

// Open loads an existing downloader.json (if any) and the encryption key
// material under dataDir, generating the key on first run.
func Open(dataDir string) (*Store, error) {
	key, err := loadOrCreateKey(dataDir)
	if err != nil {
		return nil, err
	}
	enc, err := crypto.NewAESEncryptor(key)
	if err != nil {
		return nil, err
	}

	s := &Store{dataDir: dataDir, encryptor: enc}

	cfg, err := s.readFile()
	if err != nil {
		return nil, err
	}
	s.config = cfg

	return s, nil
}

// Get returns the current configuration with its password redacted.
func (s *Store) Get() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.config == nil {
		return Config{}
	}
	return s.config.Redacted()
}

// Set encrypts and persists a new configuration, then reconnects the live
// client against it. Passing an empty Password when one is already
// configured keeps the stored password, re-encrypted (so updating api_url
// alone doesn't require re-entering the password).
func (s *Store) Set(ctx context.Context, cfg Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	plaintext := cfg.Password
	if plaintext == "" && s.config != nil {
		decrypted, err := s.encryptor.Decrypt(s.config.Password)
		if err == nil {
			plaintext = decrypted
		}
	}

	ciphertext := ""
	if plaintext != "" {
		enc, err := s.encryptor.Encrypt(plaintext)
		if err != nil {
			return err
		}
		ciphertext = enc
	}

	toPersist := Config{APIURL: cfg.APIURL, Username: cfg.Username, Password: ciphertext}
	if err := s.writeFile(toPersist); err != nil {
		return err
	}
	s.config = &toPersist

	client, err := qbittorrent.NewClient(ctx, cfg.APIURL, cfg.Username, plaintext)
	if err != nil {
		s.client = nil
		return err
	}
	s.client = client
	return nil
}

// Client returns the live qbittorrent.Client, or nil if the downloader
// hasn't been configured (or the last connect attempt failed).
func (s *Store) Client() *qbittorrent.Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.client
}

// Connect builds the live client from the persisted configuration. Called
// once at startup after Open; Set reconnects on its own.
func (s *Store) Connect(ctx context.Context) error {
	s.mu.Lock()
	cfg := s.config
	s.mu.Unlock()
	if cfg == nil || cfg.APIURL == "" {
		return nil
	}

	password, err := s.encryptor.Decrypt(cfg.Password)
	if err != nil && cfg.Password != "" {
		return err
	}

	client, err := qbittorrent.NewClient(ctx, cfg.APIURL, cfg.Username, password)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.client = client
	s.mu.Unlock()
	return nil
}

func (s *Store) configPath() string {
	return filepath.Join(s.dataDir, configFileName)
}

func (s *Store) readFile() (*Config, error) {
	data, err := os.ReadFile(s.configPath())
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (s *Store) writeFile(cfg Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.configPath(), data, 0o600)
}

func loadOrCreateKey(dataDir string) ([]byte, error) {
	path := filepath.Join(dataDir, keyFileName)

	if data, err := os.ReadFile(path); err == nil {
		return decodeHexKey(string(data))
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	token, err := crypto.GenerateSecureToken(32)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, []byte(token), 0o600); err != nil {
		return nil, err
	}
	return decodeHexKey(token)
}

func decodeHexKey(hexKey string) ([]byte, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, err
	}
	if len(key) != 32 {
		return nil, crypto.ErrInvalidKeySize
	}
	return key, nil
}
