// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package metrics

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server exposes a manager's registry on /metrics, optionally gated behind
// HTTP basic auth.
type Server struct {
	server         *http.Server
	manager        *Manager
	basicAuthUsers map[string]string
}

// NewMetricsServer builds a /metrics server bound to host:port. basicAuthUsers
// is a comma-separated "user:pass" list; a malformed entry is skipped rather
// than rejecting the whole string. Empty disables auth.
func NewMetricsServer(manager *Manager, host string, port int, basicAuthUsers string) *Server {
	users := parseBasicAuthUsers(basicAuthUsers)

	mux := http.NewServeMux()
	handler := promhttp.HandlerFor(manager.GetRegistry(), promhttp.HandlerOpts{})
	if len(users) > 0 {
		handler = BasicAuth("metrics", users)(handler)
	}
	mux.Handle("/metrics", handler)

	return &Server{
		server: &http.Server{
			Addr:    fmt.Sprintf("%s:%d", host, port),
			Handler: mux,
		},
		manager:        manager,
		basicAuthUsers: users,
	}
}

func parseBasicAuthUsers(raw string) map[string]string {
	users := make(map[string]string)
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		user, pass, ok := strings.Cut(entry, ":")
		if !ok {
			continue
		}
		users[strings.TrimSpace(user)] = strings.TrimSpace(pass)
	}
	return users
}

// BasicAuth gates a handler behind HTTP basic auth against a fixed user map.
func BasicAuth(realm string, users map[string]string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			username, password, ok := r.BasicAuth()
			if ok {
				want, exists := users[username]
				if exists && subtle.ConstantTimeCompare([]byte(password), []byte(want)) == 1 {
					next.ServeHTTP(w, r)
					return
				}
			}
			w.Header().Set("WWW-Authenticate", fmt.Sprintf(`Basic realm=%q`, realm))
			http.Error(w, "unauthorized", http.StatusUnauthorized)
		})
	}
}

// ListenAndServe blocks serving /metrics until Stop or Shutdown is called.
func (s *Server) ListenAndServe() error {
	err := s.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop closes the listener immediately, dropping in-flight requests.
func (s *Server) Stop() error {
	return s.server.Close()
}

// Shutdown drains in-flight requests before closing the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
