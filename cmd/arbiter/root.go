// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arbiter Contributors

package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root arbiter command with all subcommands registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "arbiter",
		Short:         "Arbiter — query routing and document retrieval",
		Long:          "Arbiter routes user queries to database, document retrieval, or conversational handlers and serves them over HTTP.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringP("config", "c", "", "path to config file")
	root.PersistentFlags().BoolP("verbose", "v", false, "enable verbose output")

	root.AddCommand(
		newServeCmd(),
		newAskCmd(),
		newIngestCmd(),
		newImportCmd(),
		newVersionCmd(),
	)

	return root
}

func newLogger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelInfo
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func configPath(cmd *cobra.Command) string {
	path, _ := cmd.Flags().GetString("config")
	if path != "" {
		return path
	}
	// Auto-discover arbiter.yaml in the working directory.
	if _, err := os.Stat("arbiter.yaml"); err == nil {
		return "arbiter.yaml"
	}
	return ""
}
