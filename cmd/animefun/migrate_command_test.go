// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMigrateCommandAppliesMigrations(t *testing.T) {
	dataDir := t.TempDir()

	output := mustRunCommand(t, RunMigrateCommand(), "--data-dir", dataDir)

	assert.Contains(t, output, "Migrations applied")
	assert.Contains(t, output, dataDir)
}
