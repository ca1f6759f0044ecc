// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package collector

import (
	"context"
	"time"

	qbt "github.com/autobrr/go-qbittorrent"
	"github.com/prometheus/client_golang/prometheus"
)

// Client is the subset of the qBittorrent client the downloader collector
// needs at scrape time. Satisfied by *qbittorrent.Client.
type Client interface {
	GetTorrentsCtx(ctx context.Context, opts qbt.TorrentFilterOptions) ([]qbt.Torrent, error)
	IsHealthy() bool
}

// DownloaderStore is the subset of *downloader.Store the collector needs.
// Declared locally to avoid an import cycle between internal/downloader and
// internal/metrics.
type DownloaderStore interface {
	Client() Client
}

// DownloaderCollector reports the live state of the single configured
// qBittorrent instance: connection health and torrent counts by state. One
// instance only, so unlike a per-instance-pool collector it carries no
// instance_id/instance_name labels.
type DownloaderCollector struct {
	store DownloaderStore

	connectedDesc   *prometheus.Desc
	torrentsByState *prometheus.Desc
}

func NewDownloaderCollector(store DownloaderStore) *DownloaderCollector {
	return &DownloaderCollector{
		store: store,
		connectedDesc: prometheus.NewDesc(
			"animefun_downloader_connected",
			"Whether the configured qBittorrent instance is reachable (1=connected, 0=disconnected)",
			nil, nil,
		),
		torrentsByState: prometheus.NewDesc(
			"animefun_downloader_torrents",
			"Number of torrents tracked by the configured qBittorrent instance, by state",
			[]string{"state"},
			nil,
		),
	}
}

func (c *DownloaderCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.connectedDesc
	ch <- c.torrentsByState
}

func (c *DownloaderCollector) Collect(ch chan<- prometheus.Metric) {
	client := c.store.Client()
	if client == nil {
		ch <- prometheus.MustNewConstMetric(c.connectedDesc, prometheus.GaugeValue, 0)
		return
	}

	connected := 0.0
	if client.IsHealthy() {
		connected = 1.0
	}
	ch <- prometheus.MustNewConstMetric(c.connectedDesc, prometheus.GaugeValue, connected)
	if connected == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	torrents, err := client.GetTorrentsCtx(ctx, qbt.TorrentFilterOptions{})
	if err != nil {
		return
	}

	counts := make(map[string]int)
	for _, t := range torrents {
		counts[string(t.State)]++
	}
	for state, n := range counts {
		ch <- prometheus.MustNewConstMetric(c.torrentsByState, prometheus.GaugeValue, float64(n), state)
	}
}
