// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package mapping resolves a Bangumi subject id to its Mikan bangumi id
// (§4.7), verifying candidates concurrently and respecting locked mappings.
package mapping

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/autobrr/animefun/internal/cache"
	"github.com/autobrr/animefun/internal/catalog"
	"github.com/autobrr/animefun/internal/metrics/collector"
	"github.com/autobrr/animefun/internal/mikan"
	"github.com/autobrr/animefun/internal/store"
)

const (
	maxConcurrency = 5
	negativeMapTTL = time.Hour
)

// Resolver implements the mapping resolution algorithm.
type Resolver struct {
	catalog *catalog.Facade
	mikan   *mikan.Facade
	cache   *cache.Store
	store   *store.MappingStore
	sem     *semaphore.Weighted
	metrics *collector.ResolverMetrics
}

// New builds a Resolver over already-constructed facades and stores.
func New(cat *catalog.Facade, mik *mikan.Facade, cch *cache.Store, mappingStore *store.MappingStore) *Resolver {
	return &Resolver{
		catalog: cat,
		mikan:   mik,
		cache:   cch,
		store:   mappingStore,
		sem:     semaphore.NewWeighted(maxConcurrency),
	}
}

// SetMetrics attaches the resolver-outcome counter (§2B). Safe to call once
// after New; nil disables recording.
func (r *Resolver) SetMetrics(m *collector.ResolverMetrics) {
	r.metrics = m
}

func (r *Resolver) recordOutcome(outcome string) {
	if r.metrics != nil {
		r.metrics.Outcomes.WithLabelValues(outcome).Inc()
	}
}

func negativeMapKey(bgmSubjectID int) string {
	return fmt.Sprintf("mikan:no-map:%d", bgmSubjectID)
}

// Resolve returns the Mikan bangumi id mapped to bgmSubjectID, if any. It
// consults the persistent mapping table and the negative-result cache
// before ever hitting the network.
func (r *Resolver) Resolve(ctx context.Context, bgmSubjectID int) (mikanID int, ok bool, err error) {
	if m, err := r.store.Get(ctx, bgmSubjectID); err == nil {
		r.recordOutcome("hit_table")
		return m.MikanBangumiID, true, nil
	} else if err != store.ErrNotFound {
		return 0, false, err
	}

	if _, found, err := r.cache.GetEntry(ctx, negativeMapKey(bgmSubjectID)); err != nil {
		return 0, false, err
	} else if found {
		r.recordOutcome("hit_negative_cache")
		return 0, false, nil
	}

	subject, err := r.catalog.FetchSubject(ctx, bgmSubjectID)
	if err != nil {
		return 0, false, fmt.Errorf("fetch subject %d: %w", bgmSubjectID, err)
	}

	candidates, err := r.mikan.SearchCandidates(ctx, subject.Name, subject.NameCN)
	if err != nil {
		return 0, false, fmt.Errorf("search candidates for %d: %w", bgmSubjectID, err)
	}
	if len(candidates) == 0 {
		r.recordOutcome("no_match")
		return 0, false, r.setNegativeMarker(ctx, bgmSubjectID)
	}

	verifyCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		mikanID int
		match   bool
	}
	results := make(chan result, len(candidates))

	for _, candidateID := range candidates {
		if err := r.sem.Acquire(verifyCtx, 1); err != nil {
			break
		}
		go func(candidateID int) {
			defer r.sem.Release(1)
			resolved, found, verr := r.mikan.ResolveSubject(verifyCtx, candidateID)
			if verr != nil || !found {
				results <- result{}
				return
			}
			results <- result{mikanID: candidateID, match: resolved == bgmSubjectID}
		}(candidateID)
	}

	var matched int
	found := false
	for i := 0; i < len(candidates); i++ {
		select {
		case res := <-results:
			if res.match {
				matched = res.mikanID
				found = true
				cancel() // drop outstanding verifications; no partial mapping is written for them
			}
		case <-ctx.Done():
			return 0, false, ctx.Err()
		}
		if found {
			break
		}
	}

	if !found {
		r.recordOutcome("no_match")
		return 0, false, r.setNegativeMarker(ctx, bgmSubjectID)
	}

	if err := r.store.Upsert(ctx, store.Mapping{
		BgmSubjectID:   bgmSubjectID,
		MikanBangumiID: matched,
		Confidence:     1.0,
		Source:         "explicit",
	}); err != nil {
		return 0, false, fmt.Errorf("upsert mapping %d->%d: %w", bgmSubjectID, matched, err)
	}

	r.recordOutcome("resolved")
	return matched, true, nil
}

func (r *Resolver) setNegativeMarker(ctx context.Context, bgmSubjectID int) error {
	return r.cache.SetEntry(ctx, negativeMapKey(bgmSubjectID), []byte("1"), "", "", negativeMapTTL)
}
