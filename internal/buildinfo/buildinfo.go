// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package buildinfo holds version metadata injected at link time via
// -ldflags, and the derived HTTP User-Agent every outbound client uses.
package buildinfo

import (
	"encoding/json"
	"fmt"
	"runtime"
)

var (
	Version = "dev"
	Commit  = ""
	Date    = ""
)

// Debug is true for unreleased builds (Version left at its "dev" default).
var Debug = Version == "dev"

// UserAgent is sent on every outbound request to Bangumi, Mikan, and the
// qBittorrent WebUI.
var UserAgent string

func init() {
	UserAgent = fmt.Sprintf("animefun/%s (%s; %s)", Version, runtime.GOOS, runtime.GOARCH)
}

// String renders a three-line human-readable summary for the CLI's
// "version" command.
func String() string {
	return fmt.Sprintf("Version: %s\nCommit: %s\nBuild date: %s\n", Version, Commit, Date)
}

// JSON renders the same fields for the version command's --json flag.
func JSON() ([]byte, error) {
	return json.Marshal(struct {
		Version string `json:"version"`
		Commit  string `json:"commit"`
		Date    string `json:"date"`
	}{Version, Commit, Date})
}
