// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stockroom Contributors

package main

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for the stockroom CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stockroom",
		Short: "Stockroom - an ownership-scoped items API",
		Long: `Stockroom is an HTTP API backend with password-based authentication,
bearer tokens, and ownership-scoped CRUD over items.`,
	}

	// Global flag for config file path
	cmd.PersistentFlags().String("config", "", "config file path")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())

	return cmd
}
