// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/autobrr/animefun/internal/downloader"
)

func RunDownloaderCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "downloader",
		Short: "qBittorrent download-client configuration",
	}

	cmd.AddCommand(runDownloaderSetCommand())
	return cmd
}

func runDownloaderSetCommand() *cobra.Command {
	var (
		dataDir  string
		apiURL   string
		username string
		password string
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set the qBittorrent WebUI connection and verify it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if apiURL == "" {
				return errors.New("--api-url is required")
			}

			if password == "" {
				prompted, err := promptPassword(cmd)
				if err != nil {
					return fmt.Errorf("read password: %w", err)
				}
				password = prompted
			}

			store, err := downloader.Open(dataDir)
			if err != nil {
				return fmt.Errorf("open downloader store: %w", err)
			}

			if err := store.Set(context.Background(), downloader.Config{
				APIURL:   apiURL,
				Username: username,
				Password: password,
			}); err != nil {
				return fmt.Errorf("connect: %w", err)
			}

			cmd.Printf("Downloader configured: %s\n", apiURL)
			return nil
		},
	}

	cmd.Flags().StringVar(&dataDir, "data-dir", ".", "Application data directory")
	cmd.Flags().StringVar(&apiURL, "api-url", "", "qBittorrent WebUI base URL, e.g. http://localhost:8080")
	cmd.Flags().StringVar(&username, "username", "", "qBittorrent WebUI username")
	cmd.Flags().StringVar(&password, "password", "", "qBittorrent WebUI password (prompted if omitted)")

	return cmd
}

// promptPassword reads a password from the controlling terminal without
// echoing it.
func promptPassword(cmd *cobra.Command) (string, error) {
	cmd.Print("Password: ")
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	cmd.Println()
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
