// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package refreshworker periodically re-derives the subject index from the
// catalog and status facades for every subscription (§4.11).
package refreshworker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/autobrr/animefun/internal/catalog"
	"github.com/autobrr/animefun/internal/metrics/collector"
	"github.com/autobrr/animefun/internal/roundrobin"
	"github.com/autobrr/animefun/internal/status"
	"github.com/autobrr/animefun/internal/store"
	"github.com/autobrr/animefun/pkg/stringutils"
)

const (
	sweepInterval  = 600 * time.Second
	batchSize      = 25
	maxConcurrency = 4
)

// Worker sweeps subscriptions round-robin, refreshing their index rows.
type Worker struct {
	catalog *catalog.Facade
	status  *status.Classifier
	subs    *store.SubscriptionStore
	index   *store.SubjectIndexStore
	logger  zerolog.Logger
	metrics *collector.WorkerMetrics

	cursor    atomic.Int64
	startOnce sync.Once
}

// SetMetrics attaches the worker counters this sweep reports against (§2B).
// Safe to call once before Start; nil disables recording.
func (w *Worker) SetMetrics(m *collector.WorkerMetrics) {
	w.metrics = m
}

// New builds a Worker over already-constructed facades and stores.
func New(cat *catalog.Facade, cls *status.Classifier, subs *store.SubscriptionStore, idx *store.SubjectIndexStore, logger zerolog.Logger) *Worker {
	return &Worker{
		catalog: cat,
		status:  cls,
		subs:    subs,
		index:   idx,
		logger:  logger.With().Str("worker", "refresh").Logger(),
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

// Sweep runs one round-robin batch over all subscriptions. Exported so
// callers (and tests) can trigger a sweep without waiting out the cadence.
func (w *Worker) Sweep(ctx context.Context) {
	all, err := w.subs.ListAll(ctx)
	if err != nil {
		w.logger.Error().Err(err).Msg("list subscriptions")
		return
	}
	if len(all) == 0 {
		return
	}

	batch, processed := roundrobin.Take(all, int(w.cursor.Load()), batchSize)

	sem := semaphore.NewWeighted(maxConcurrency)
	var mu sync.Mutex
	var wg sync.WaitGroup
	changedCount := 0
	errCount := 0

	for _, sub := range batch {
		if ctx.Err() != nil {
			break
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(sub store.Subscription) {
			defer wg.Done()
			defer sem.Release(1)

			changed, err := w.refreshOne(ctx, sub.SubjectID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errCount++
				w.logger.Warn().Err(err).Int("subject_id", sub.SubjectID).Msg("refresh subject")
				return
			}
			if changed {
				changedCount++
			}
		}(sub)
	}
	wg.Wait()

	w.cursor.Store(int64(roundrobin.NextOffset(len(all), int(w.cursor.Load()), processed)))

	if w.metrics != nil {
		w.metrics.SweepsTotal.WithLabelValues("refresh").Inc()
		w.metrics.ItemsProcessedTotal.WithLabelValues("refresh").Add(float64(len(batch)))
		w.metrics.ItemsChangedTotal.WithLabelValues("refresh").Add(float64(changedCount))
		w.metrics.SweepErrorsTotal.WithLabelValues("refresh").Add(float64(errCount))
	}

	w.logger.Info().
		Int("total", len(all)).
		Int("processed", len(batch)).
		Int("changed", changedCount).
		Int("errors", errCount).
		Msg("refresh sweep complete")
}

func (w *Worker) refreshOne(ctx context.Context, subjectID int) (bool, error) {
	return RefreshOne(ctx, w.catalog, w.status, w.index, subjectID)
}

// RefreshOne fetches a subject's catalog entry and status, then upserts its
// index row. Exported so callers outside the sweep loop (the toggle-on API
// path, §4.10) can enforce the same "index row exists iff subscription
// exists" invariant without waiting for the next sweep.
func RefreshOne(ctx context.Context, cat *catalog.Facade, cls *status.Classifier, idx *store.SubjectIndexStore, subjectID int) (bool, error) {
	st, err := cls.Calculate(ctx, subjectID)
	if err != nil {
		return false, err
	}
	subject, err := cat.FetchSubject(ctx, subjectID)
	if err != nil {
		return false, err
	}

	row := store.SubjectIndexRow{
		SubjectID:  subjectID,
		Name:       subject.Name,
		NameCN:     subject.NameCN,
		Tags:       tagNames(subject.Tags),
		StatusCode: int(st.Code),
		StatusOrd:  statusOrd(st.Code),
	}
	if subject.Rating != nil {
		score := subject.Rating.Score
		row.RatingScore = &score
		total := subject.Rating.Total
		row.RatingTotal = &total
		if subject.Rating.Rank > 0 {
			rank := subject.Rating.Rank
			row.RatingRank = &rank
		}
	}
	if subject.Images.Large != "" {
		row.CoverURL = subject.Images.Large
	}

	return idx.UpsertIfChanged(ctx, row)
}

// tagNames extracts and interns tag names: the same handful of genre tags
// (fantasy, isekai, ...) recurs across thousands of index rows, so Go's
// unique-string interning collapses them to shared backing memory.
func tagNames(tags []catalog.SubjectTag) []string {
	if len(tags) == 0 {
		return nil
	}
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = t.Name
	}
	return stringutils.InternAllNormalized(out)
}

// statusOrd ranks Airing subjects first, then PreAir, then the rest, for the
// "status" sort (§4.9).
func statusOrd(code status.Code) int {
	switch code {
	case status.Airing:
		return 0
	case status.PreAir:
		return 1
	case status.Finished:
		return 2
	case status.OnHiatus:
		return 3
	default:
		return 4
	}
}
