// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/autobrr/animefun/internal/api"
	"github.com/autobrr/animefun/internal/cache"
	"github.com/autobrr/animefun/internal/cachedapi"
	"github.com/autobrr/animefun/internal/catalog"
	"github.com/autobrr/animefun/internal/config"
	"github.com/autobrr/animefun/internal/downloader"
	"github.com/autobrr/animefun/internal/httpgateway"
	"github.com/autobrr/animefun/internal/imagecache"
	"github.com/autobrr/animefun/internal/mapping"
	"github.com/autobrr/animefun/internal/metrics"
	"github.com/autobrr/animefun/internal/mikan"
	"github.com/autobrr/animefun/internal/notify"
	"github.com/autobrr/animefun/internal/preheatworker"
	"github.com/autobrr/animefun/internal/refreshworker"
	"github.com/autobrr/animefun/internal/status"
	"github.com/autobrr/animefun/internal/store"
)

func RunServeCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the animefun backend: HTTP command surface, background sweeps, and metrics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), configPath)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "config.toml", "Path to config.toml")
	return cmd
}

func serve(ctx context.Context, configPath string) error {
	appConfig, err := config.New(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg := appConfig.Config()
	dataDir := appConfig.GetDataDir()

	logger := newLogger(cfg)
	logger.Info().Str("dataDir", dataDir).Msg("starting animefun")

	stores, err := store.Open(dataDir)
	if err != nil {
		return fmt.Errorf("open data store: %w", err)
	}
	defer stores.Close()

	downloaderStore, err := downloader.Open(dataDir)
	if err != nil {
		return fmt.Errorf("open downloader store: %w", err)
	}
	if err := downloaderStore.Connect(ctx); err != nil {
		logger.Warn().Err(err).Msg("connect to configured downloader")
	}

	// Built unconditionally so every counter has somewhere to go even when
	// the scrape endpoint itself is disabled; only the HTTP server below is
	// gated on cfg.MetricsEnabled.
	metricsManager := metrics.NewMetricsManager(downloaderStore, logger)

	cacheStore, cacheDB, err := cache.Open(dataDir, cache.WithMetrics(metricsManager.Cache))
	if err != nil {
		return fmt.Errorf("open cache store: %w", err)
	}
	defer cacheDB.Close()
	defer cacheStore.Stop()

	gateway := httpgateway.New()
	adapter := cachedapi.New(gateway, cacheStore)

	catalogFacade := catalog.New(adapter, cfg.BangumiHost)
	mikanFacade := mikan.New(adapter, gateway, cfg.MikanHost)
	classifier := status.New(catalogFacade)
	resolver := mapping.New(catalogFacade, mikanFacade, cacheStore, stores.Mapping)
	resolver.SetMetrics(metricsManager.Resolver)

	images, err := imagecache.Open(filepath.Join(dataDir, "images"), gateway)
	if err != nil {
		return fmt.Errorf("open image cache: %w", err)
	}
	defer images.Stop()

	sink := notify.Init(logger)

	refresher := refreshworker.New(catalogFacade, classifier, stores.Subscriptions, stores.Index, logger)
	refresher.SetMetrics(metricsManager.Worker)
	preheater := preheatworker.New(mikanFacade, stores.Mapping, stores.Subscriptions, sink, logger)
	preheater.SetMetrics(metricsManager.Worker)
	refresher.Start(ctx)
	preheater.Start(ctx)

	router := api.NewRouter(&api.Dependencies{
		Catalog:    catalogFacade,
		Status:     classifier,
		Mikan:      mikanFacade,
		Mapping:    resolver,
		Stores:     stores,
		Downloader: downloaderStore,
		Images:     images,
		Logger:     logger,
	})

	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler: router,
	}

	var metricsServer *metrics.Server
	if cfg.MetricsEnabled {
		metricsServer = metrics.NewMetricsServer(metricsManager, cfg.MetricsHost, cfg.MetricsPort, "")
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil {
				logger.Error().Err(err).Msg("metrics server stopped")
			}
		}()
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", httpServer.Addr).Msg("serving")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return err
	case <-stop:
		logger.Info().Msg("shutting down")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("http server shutdown")
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("metrics server shutdown")
		}
	}

	return nil
}
