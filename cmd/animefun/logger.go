// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/autobrr/animefun/internal/domain"
)

// newLogger builds the process-wide logger per cfg: a human-readable
// console writer in development (empty LogPath), a lumberjack-rotated file
// writer in production, always structured JSON underneath.
func newLogger(cfg domain.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var w io.Writer = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}
	if cfg.LogPath != "" {
		w = &lumberjack.Logger{
			Filename:   cfg.LogPath,
			MaxSize:    cfg.LogMaxSize,
			MaxBackups: cfg.LogMaxBackups,
			Compress:   true,
		}
	}

	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}
