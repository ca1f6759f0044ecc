// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package metrics

import (
	"runtime"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsManager(t *testing.T) {
	manager := NewMetricsManager(nil, zerolog.Nop())

	assert.NotNil(t, manager)
	assert.NotNil(t, manager.registry)
	assert.NotNil(t, manager.downloaderCollector)
	assert.NotNil(t, manager.Cache)
	assert.NotNil(t, manager.Worker)
	assert.NotNil(t, manager.Resolver)
}

func TestManager_GetRegistry(t *testing.T) {
	manager := NewMetricsManager(nil, zerolog.Nop())

	registry := manager.GetRegistry()

	assert.NotNil(t, registry)
	assert.IsType(t, &prometheus.Registry{}, registry)

	metricFamilies, err := registry.Gather()
	require.NoError(t, err)

	foundGoMetrics := false
	foundProcessMetrics := false

	for _, mf := range metricFamilies {
		name := mf.GetName()
		if strings.HasPrefix(name, "go_") {
			foundGoMetrics = true
		}
		if strings.HasPrefix(name, "process_") {
			foundProcessMetrics = true
		}
	}

	assert.True(t, foundGoMetrics, "Go runtime metrics should be registered (go_* metrics)")
	if runtime.GOOS == "darwin" {
		assert.False(t, foundProcessMetrics, "Process metrics should NOT be available on macOS")
	} else {
		assert.True(t, foundProcessMetrics, "Process metrics should be registered on Linux/Windows")
	}
}

func TestManager_RegistryIsolation(t *testing.T) {
	manager1 := NewMetricsManager(nil, zerolog.Nop())
	manager2 := NewMetricsManager(nil, zerolog.Nop())

	assert.NotSame(t, manager1.registry, manager2.registry, "each manager should have its own registry")
	assert.NotSame(t, manager1.downloaderCollector, manager2.downloaderCollector, "each manager should have its own collector")
}

func TestManager_CacheCountersIncrementIndependently(t *testing.T) {
	manager := NewMetricsManager(nil, zerolog.Nop())

	manager.Cache.Hits.WithLabelValues("subject").Inc()
	manager.Cache.Hits.WithLabelValues("subject").Inc()
	manager.Cache.Misses.WithLabelValues("subject").Inc()

	assert.Equal(t, float64(2), testutil.ToFloat64(manager.Cache.Hits.WithLabelValues("subject")))
	assert.Equal(t, float64(1), testutil.ToFloat64(manager.Cache.Misses.WithLabelValues("subject")))
}

func TestManager_MetricsCanBeScraped(t *testing.T) {
	manager := NewMetricsManager(nil, zerolog.Nop())

	metricCount := testutil.CollectAndCount(manager.GetRegistry())

	assert.Greater(t, metricCount, 0, "should be able to collect metrics")
}
