// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package collector holds the individual prometheus.Collector groups
// registered on the metrics manager's registry: one CounterVec struct per
// concern, constructed and registered together (§2B).
package collector

import (
	"github.com/prometheus/client_golang/prometheus"
)

// CacheMetrics counts cache store outcomes by operation kind.
type CacheMetrics struct {
	Hits   *prometheus.CounterVec
	Misses *prometheus.CounterVec
}

var cacheLabels = []string{"kind"}

// NewCacheMetrics builds and registers the cache hit/miss counters on r.
func NewCacheMetrics(r *prometheus.Registry) *CacheMetrics {
	m := &CacheMetrics{
		Hits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "animefun_cache_hits_total",
			Help: "Number of cache lookups served from a fresh or revalidated entry",
		}, cacheLabels),
		Misses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "animefun_cache_misses_total",
			Help: "Number of cache lookups that required an upstream fetch",
		}, cacheLabels),
	}

	r.MustRegister(m.Hits)
	r.MustRegister(m.Misses)
	return m
}

// WorkerMetrics counts background worker sweep activity by worker name.
type WorkerMetrics struct {
	SweepsTotal         *prometheus.CounterVec
	ItemsProcessedTotal *prometheus.CounterVec
	ItemsChangedTotal   *prometheus.CounterVec
	SweepErrorsTotal    *prometheus.CounterVec
}

var workerLabels = []string{"worker"}

// NewWorkerMetrics builds and registers the worker sweep counters on r.
func NewWorkerMetrics(r *prometheus.Registry) *WorkerMetrics {
	m := &WorkerMetrics{
		SweepsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "animefun_worker_sweeps_total",
			Help: "Number of round-robin sweeps completed by a background worker",
		}, workerLabels),
		ItemsProcessedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "animefun_worker_items_processed_total",
			Help: "Number of subscriptions processed across all sweeps by a background worker",
		}, workerLabels),
		ItemsChangedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "animefun_worker_items_changed_total",
			Help: "Number of subscriptions whose index row or episode cursor actually changed",
		}, workerLabels),
		SweepErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "animefun_worker_sweep_errors_total",
			Help: "Number of per-subject errors encountered during a sweep",
		}, workerLabels),
	}

	r.MustRegister(m.SweepsTotal)
	r.MustRegister(m.ItemsProcessedTotal)
	r.MustRegister(m.ItemsChangedTotal)
	r.MustRegister(m.SweepErrorsTotal)
	return m
}

// ResolverMetrics counts Mikan mapping resolution outcomes.
type ResolverMetrics struct {
	Outcomes *prometheus.CounterVec
}

var resolverLabels = []string{"outcome"}

// NewResolverMetrics builds and registers the resolver outcome counter on r.
// outcome is one of "hit_table", "hit_negative_cache", "resolved", "no_match".
func NewResolverMetrics(r *prometheus.Registry) *ResolverMetrics {
	m := &ResolverMetrics{
		Outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "animefun_resolver_outcomes_total",
			Help: "Number of Bangumi-to-Mikan mapping resolutions by outcome",
		}, resolverLabels),
	}

	r.MustRegister(m.Outcomes)
	return m
}
