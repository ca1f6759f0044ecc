// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"github.com/spf13/cobra"

	"github.com/autobrr/animefun/internal/buildinfo"
)

func RunVersionCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if asJSON {
				data, err := buildinfo.JSON()
				if err != nil {
					return err
				}
				cmd.Println(string(data))
				return nil
			}
			cmd.Print(buildinfo.String())
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print version information as JSON")
	return cmd
}
