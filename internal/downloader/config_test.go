// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package downloader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autobrr/animefun/internal/domain"
)

func TestStore_OpenWithNoExistingConfig(t *testing.T) {
	dataDir := t.TempDir()

	s, err := Open(dataDir)
	require.NoError(t, err)

	cfg := s.Get()
	assert.Equal(t, Config{}, cfg)
	assert.Nil(t, s.Client())
}

func TestStore_KeyFilePersistsAcrossReopens(t *testing.T) {
	dataDir := t.TempDir()

	s1, err := Open(dataDir)
	require.NoError(t, err)
	ciphertext, err := s1.encryptor.Encrypt("hunter2")
	require.NoError(t, err)

	s2, err := Open(dataDir)
	require.NoError(t, err)
	plaintext, err := s2.encryptor.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", plaintext)
}

func TestConfig_RedactedMasksPassword(t *testing.T) {
	cfg := Config{APIURL: "http://localhost:8080", Username: "admin", Password: "ciphertext-blob"}
	redacted := cfg.Redacted()

	assert.Equal(t, "http://localhost:8080", redacted.APIURL)
	assert.Equal(t, domain.RedactedStr, redacted.Password)
}

func TestConfig_RedactedLeavesEmptyPasswordEmpty(t *testing.T) {
	cfg := Config{APIURL: "http://localhost:8080"}
	assert.Equal(t, "", cfg.Redacted().Password)
}
