// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/autobrr/animefun/internal/downloader"
	"github.com/autobrr/animefun/internal/metrics/collector"
)

// Manager owns the process-wide metrics registry: the standard Go/process
// collectors, the single-instance downloader collector, and the push-based
// counter groups incremented by the cache, worker, and resolver packages.
type Manager struct {
	registry            *prometheus.Registry
	downloaderCollector *collector.DownloaderCollector

	Cache    *collector.CacheMetrics
	Worker   *collector.WorkerMetrics
	Resolver *collector.ResolverMetrics
}

type downloaderStoreAdapter struct{ store *downloader.Store }

func (a downloaderStoreAdapter) Client() collector.Client {
	if a.store == nil {
		return nil
	}
	client := a.store.Client()
	if client == nil {
		return nil
	}
	return client
}

// NewMetricsManager builds a fresh registry and registers every collector on
// it. dl may be nil (no downloader collector activity, just an always-zero
// connected gauge); logger is currently unused by the registration path but
// kept for parity with the rest of the codebase's constructor shape.
func NewMetricsManager(dl *downloader.Store, logger zerolog.Logger) *Manager {
	registry := prometheus.NewRegistry()

	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	downloaderCollector := collector.NewDownloaderCollector(downloaderStoreAdapter{store: dl})
	registry.MustRegister(downloaderCollector)

	return &Manager{
		registry:            registry,
		downloaderCollector: downloaderCollector,
		Cache:               collector.NewCacheMetrics(registry),
		Worker:              collector.NewWorkerMetrics(registry),
		Resolver:            collector.NewResolverMetrics(registry),
	}
}

func (m *Manager) GetRegistry() *prometheus.Registry {
	return m.registry
}
