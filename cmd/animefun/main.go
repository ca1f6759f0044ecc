// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/autobrr/animefun/internal/buildinfo"
)

func main() {
	root := &cobra.Command{
		Use:   "animefun",
		Short: "animefun backend: Bangumi/Mikan tracking and qBittorrent control",
		Long: fmt.Sprintf(
			"animefun backend %s\n\nServes the HTTP command surface a desktop webview drives, and runs the\nbackground refresh/preheat sweeps that keep subscriptions and downloads\nin sync.",
			buildinfo.Version,
		),
	}

	root.AddCommand(
		RunServeCommand(),
		RunMigrateCommand(),
		RunDownloaderCommand(),
		RunVersionCommand(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
