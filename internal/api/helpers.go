// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// ErrorResponse is the JSON body returned on every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// RespondJSON writes data as a JSON response with the given status code.
func RespondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(data)
}

// RespondError writes an ErrorResponse with the given status code.
func RespondError(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, ErrorResponse{Error: message})
}

// DecodeJSON decodes r's body into dest, responding with 400 and returning
// false on failure.
func DecodeJSON[T any](w http.ResponseWriter, r *http.Request, dest *T) bool {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		RespondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// ParseIntParam parses the named chi URL parameter as an int, responding
// with 400 and returning ok=false on failure.
func ParseIntParam(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	v, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil {
		RespondError(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return v, true
}

// queryInt returns the int value of query parameter name, or def if absent
// or unparsable.
func queryInt(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func queryFloatPtr(r *http.Request, name string) *float64 {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil
	}
	return &f
}
