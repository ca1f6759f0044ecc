// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package roundrobin_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/autobrr/animefun/internal/roundrobin"
)

func TestTake_WrapsAround(t *testing.T) {
	rows := []int{1, 2, 3, 4, 5}
	got, n := roundrobin.Take(rows, 3, 4)
	assert.Equal(t, 4, n)
	assert.Equal(t, []int{4, 5, 1, 2}, got)
}

func TestTake_NoWrapNeeded(t *testing.T) {
	rows := []int{1, 2, 3, 4, 5}
	got, n := roundrobin.Take(rows, 0, 3)
	assert.Equal(t, 3, n)
	assert.Equal(t, []int{1, 2, 3}, got)
}

func TestTake_EmptyRows(t *testing.T) {
	got, n := roundrobin.Take([]int{}, 0, 5)
	assert.Equal(t, 0, n)
	assert.Nil(t, got)
}

func TestTake_NeverDuplicatesWithinLimit(t *testing.T) {
	rows := []int{1, 2, 3, 4, 5}
	for start := 0; start < 5; start++ {
		got, _ := roundrobin.Take(rows, start, 5)
		seen := map[int]bool{}
		for _, v := range got {
			assert.False(t, seen[v], "duplicate element %d at start=%d", v, start)
			seen[v] = true
		}
	}
}

func TestNextOffset_WrapsModuloTotal(t *testing.T) {
	assert.Equal(t, 2, roundrobin.NextOffset(5, 3, 4))
	assert.Equal(t, 0, roundrobin.NextOffset(0, 3, 4))
	assert.Equal(t, 3, roundrobin.NextOffset(5, 0, 3))
}
