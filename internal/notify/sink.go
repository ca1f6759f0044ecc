// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package notify is the process-wide desktop notification sink (§4.13): a
// write-once singleton delivering "new episode" alerts via beeep, the same
// discipline the rest of the backend uses for its other process-wide
// collaborators (HTTP client, rate limiter, DB pools).
package notify

import (
	"fmt"
	"sync"

	"github.com/gen2brain/beeep"
	"github.com/rs/zerolog"

	"github.com/autobrr/animefun/internal/buildinfo"
)

const defaultQueueSize = 50

// Sink delivers desktop notifications from a single background worker so Notify
// never blocks its caller on the OS notification call.
type Sink struct {
	logger zerolog.Logger
	queue  chan episodeEvent
}

type episodeEvent struct {
	nameCN  string
	episode int
}

var (
	instance *Sink
	initMu   sync.Mutex
)

// Init registers the process-wide sink and starts its worker. Must be
// called once at startup. A second call panics in debug builds (a fatal
// bug caught early) or is logged and ignored in release builds, preferring
// the first registration.
func Init(logger zerolog.Logger) *Sink {
	initMu.Lock()
	defer initMu.Unlock()

	if instance != nil {
		if buildinfo.Debug {
			panic("notify: Init called more than once")
		}
		logger.Warn().Msg("notify: Init already called, ignoring")
		return instance
	}

	instance = &Sink{
		logger: logger.With().Str("component", "notify").Logger(),
		queue:  make(chan episodeEvent, defaultQueueSize),
	}
	go instance.worker()
	return instance
}

// Get returns the process-wide sink, or nil if Init hasn't run yet.
func Get() *Sink {
	return instance
}

func (s *Sink) worker() {
	for event := range s.queue {
		s.deliver(event)
	}
}

// NotifyNewEpisode implements preheatworker.Notifier: it enqueues delivery
// and returns immediately, never blocking the sweep on the OS call.
func (s *Sink) NotifyNewEpisode(nameCN string, episode int) error {
	if s == nil {
		return nil
	}
	select {
	case s.queue <- episodeEvent{nameCN: nameCN, episode: episode}:
		return nil
	default:
		s.logger.Warn().Str("name_cn", nameCN).Int("episode", episode).Msg("notify: queue full, dropping notification")
		return nil
	}
}

func (s *Sink) deliver(event episodeEvent) {
	title := fmt.Sprintf("%s 更新提醒", event.nameCN)
	body := fmt.Sprintf("第 %d 话资源已发布", event.episode)
	if err := beeep.Notify(title, body, ""); err != nil {
		s.logger.Error().Err(err).Str("name_cn", event.nameCN).Int("episode", event.episode).Msg("notify: delivery failed")
	}
}
