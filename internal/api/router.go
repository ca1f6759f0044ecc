// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package api is the thin command surface presented to the UI (§6): a
// minimal chi router dispatching JSON DTOs onto the catalog/mikan/status
// facades, the subscription/index/mapping stores, and the downloader.
package api

import (
	"net/http"
	"time"

	"github.com/CAFxX/httpcompression"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/autobrr/animefun/internal/catalog"
	"github.com/autobrr/animefun/internal/downloader"
	"github.com/autobrr/animefun/internal/imagecache"
	"github.com/autobrr/animefun/internal/mapping"
	"github.com/autobrr/animefun/internal/mikan"
	"github.com/autobrr/animefun/internal/status"
	"github.com/autobrr/animefun/internal/store"
)

// Dependencies bundles every collaborator a handler needs.
type Dependencies struct {
	Catalog    *catalog.Facade
	Status     *status.Classifier
	Mikan      *mikan.Facade
	Mapping    *mapping.Resolver
	Stores     *store.Stores
	Downloader *downloader.Store
	Images     *imagecache.Store
	Logger     zerolog.Logger
}

// NewRouter builds the full route tree over deps.
func NewRouter(deps *Dependencies) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(httpLogger(deps.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	if compress, err := httpcompression.DefaultAdapter(); err == nil {
		r.Use(compress)
	} else {
		deps.Logger.Warn().Err(err).Msg("api: compression middleware unavailable")
	}

	r.Use(cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: false,
	}).Handler)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	h := &handlers{deps: deps}

	r.Route("/api", func(r chi.Router) {
		r.Get("/calendar", h.getCalendar)

		r.Route("/subjects/{id}", func(r chi.Router) {
			r.Get("/", h.getSubject)
			r.Get("/status", h.getSubjectStatus)
			r.Get("/episodes", h.getEpisodes)
			r.Get("/mikan-resources", h.getMikanResources)
		})
		r.Post("/search", h.searchSubjects)
		r.Get("/images", h.getImage)

		r.Route("/subscriptions", func(r chi.Router) {
			r.Get("/", h.listSubscriptions)
			r.Post("/toggle", h.toggleSubscription)
			r.Post("/clear", h.clearSubscriptions)
			r.Get("/query", h.querySubscriptions)
		})

		r.Route("/downloader", func(r chi.Router) {
			r.Get("/config", h.getDownloaderConfig)
			r.Put("/config", h.setDownloaderConfig)
		})

		r.Route("/torrents", func(r chi.Router) {
			r.Get("/", h.listTorrents)
			r.Post("/", h.addTorrent)
			r.Post("/pause", h.pauseTorrents)
			r.Post("/resume", h.resumeTorrents)
			r.Delete("/{id}", h.deleteTorrent)
		})
	})

	return r
}

// httpLogger emits one summary line per request, mirroring the teacher's
// access-log middleware shape.
func httpLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Msg("request")
		})
	}
}
