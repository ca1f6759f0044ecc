// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"github.com/spf13/cobra"

	"github.com/autobrr/animefun/internal/cache"
	"github.com/autobrr/animefun/internal/store"
)

// RunMigrateCommand applies pending cache.sqlite/data.sqlite migrations
// without starting the server. Each store already migrates on Open, so
// this is an explicit, serve-independent way to run that step (e.g. ahead
// of a version upgrade, or in an init container).
func RunMigrateCommand() *cobra.Command {
	var dataDir string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			stores, err := store.Open(dataDir)
			if err != nil {
				return err
			}
			if err := stores.Close(); err != nil {
				return err
			}

			_, cacheDB, err := cache.Open(dataDir)
			if err != nil {
				return err
			}
			if err := cacheDB.Close(); err != nil {
				return err
			}

			cmd.Printf("Migrations applied under %s\n", dataDir)
			return nil
		},
	}

	cmd.Flags().StringVar(&dataDir, "data-dir", ".", "Application data directory")
	return cmd
}
