// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package preheatworker periodically polls each subscription's mapped Mikan
// feed and advances last_seen_ep, optionally firing a desktop notification
// (§4.12).
package preheatworker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/autobrr/animefun/internal/metrics/collector"
	"github.com/autobrr/animefun/internal/mikan"
	"github.com/autobrr/animefun/internal/roundrobin"
	"github.com/autobrr/animefun/internal/store"
)

const (
	sweepInterval  = 900 * time.Second
	batchSize      = 30
	maxConcurrency = 4
)

// Notifier delivers the "new episode" desktop notification. Implemented by
// the process-wide notification sink (§4.13).
type Notifier interface {
	NotifyNewEpisode(nameCN string, episode int) error
}

// Worker sweeps subscriptions round-robin, checking each mapped Mikan feed
// for new episodes and advancing last_seen_ep.
type Worker struct {
	mikan    *mikan.Facade
	mapping  *store.MappingStore
	subs     *store.SubscriptionStore
	notifier Notifier
	logger   zerolog.Logger
	metrics  *collector.WorkerMetrics

	cursor    atomic.Int64
	startOnce sync.Once
}

// SetMetrics attaches the worker counters this sweep reports against (§2B).
// Safe to call once before Start; nil disables recording.
func (w *Worker) SetMetrics(m *collector.WorkerMetrics) {
	w.metrics = m
}

// New builds a Worker over already-constructed facades and stores.
func New(mik *mikan.Facade, mappingStore *store.MappingStore, subs *store.SubscriptionStore, notifier Notifier, logger zerolog.Logger) *Worker {
	return &Worker{
		mikan:    mik,
		mapping:  mappingStore,
		subs:     subs,
		notifier: notifier,
		logger:   logger.With().Str("worker", "preheat").Logger(),
	}
}

// Start spawns the sweep loop, once per process.
func (w *Worker) Start(ctx context.Context) {
	w.startOnce.Do(func() {
		go w.run(ctx)
	})
}

func (w *Worker) run(ctx context.Context) {
	timer := time.NewTimer(sweepInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			w.Sweep(ctx)
			timer.Reset(sweepInterval)
		}
	}
}

// Sweep runs one round-robin batch over all subscriptions.
func (w *Worker) Sweep(ctx context.Context) {
	all, err := w.subs.List(ctx)
	if err != nil {
		w.logger.Error().Err(err).Msg("list subscriptions")
		return
	}
	if len(all) == 0 {
		return
	}

	batch, processed := roundrobin.Take(all, int(w.cursor.Load()), batchSize)

	sem := semaphore.NewWeighted(maxConcurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex
	noMap, notified, advanced, errCount := 0, 0, 0, 0

	for _, sub := range batch {
		if ctx.Err() != nil {
			break
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(sub store.SubscriptionWithName) {
			defer wg.Done()
			defer sem.Release(1)

			didNotify, hadMap, didAdvance, err := w.checkOne(ctx, sub)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errCount++
				w.logger.Warn().Err(err).Int("subject_id", sub.SubjectID).Msg("check subscription")
			}
			if !hadMap {
				noMap++
			}
			if didNotify {
				notified++
			}
			if didAdvance {
				advanced++
			}
		}(sub)
	}
	wg.Wait()

	w.cursor.Store(int64(roundrobin.NextOffset(len(all), int(w.cursor.Load()), processed)))

	if w.metrics != nil {
		w.metrics.SweepsTotal.WithLabelValues("preheat").Inc()
		w.metrics.ItemsProcessedTotal.WithLabelValues("preheat").Add(float64(len(batch)))
		w.metrics.ItemsChangedTotal.WithLabelValues("preheat").Add(float64(advanced))
		w.metrics.SweepErrorsTotal.WithLabelValues("preheat").Add(float64(errCount))
	}

	w.logger.Info().
		Int("total", len(all)).
		Int("processed", len(batch)).
		Int("no_map", noMap).
		Int("notified", notified).
		Msg("preheat sweep complete")
}

// checkOne fetches the mapped feed (if any) for sub and, on a new episode,
// notifies (best-effort) then always advances last_seen_ep (§4.12: at-least-
// once notification semantics).
func (w *Worker) checkOne(ctx context.Context, sub store.SubscriptionWithName) (didNotify, hadMap, didAdvance bool, err error) {
	m, err := w.mapping.Get(ctx, sub.SubjectID)
	if errors.Is(err, store.ErrNotFound) {
		return false, false, false, nil
	}
	if err != nil {
		return false, true, false, err
	}

	items, err := w.mikan.FetchRSS(ctx, m.MikanBangumiID)
	if err != nil {
		return false, true, false, err
	}

	newMax := 0
	for _, item := range items {
		if item.Episode > newMax {
			newMax = item.Episode
		}
	}
	if newMax <= sub.LastSeenEp {
		return false, true, false, nil
	}

	if sub.Notify && sub.NameCN != "" {
		if err := w.notifier.NotifyNewEpisode(sub.NameCN, newMax); err != nil {
			w.logger.Warn().Err(err).Int("subject_id", sub.SubjectID).Msg("notify new episode")
		} else {
			didNotify = true
		}
	}

	if err := w.subs.AdvanceLastSeenEp(ctx, sub.SubjectID, newMax); err != nil {
		w.logger.Warn().Err(err).Int("subject_id", sub.SubjectID).Msg("advance last_seen_ep")
	}

	return didNotify, true, true, nil
}
