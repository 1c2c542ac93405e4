// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arbiter Contributors

package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arbiter-ai/arbiter/internal/config"
)

func newAskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <query>",
		Short: "Route and answer a single query",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runAsk,
	}

	cmd.Flags().Bool("json", false, "print the full result as JSON")

	return cmd
}

func runAsk(cmd *cobra.Command, args []string) error {
	logger := newLogger(cmd)

	cfg, err := config.Load(configPath(cmd))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	sys, err := buildSystem(cfg, logger)
	if err != nil {
		return err
	}
	defer sys.Close()

	result := sys.workflow.Process(cmd.Context(), strings.Join(args, " "))

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\n\n[%s via %s, confidence %.2f]\n",
		result.Response, result.Agent, result.RoutedTo, result.Confidence)
	return err
}
