// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arbiter Contributors

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/arbiter-ai/arbiter/internal/config"
	"github.com/arbiter-ai/arbiter/internal/vector"
)

func newIngestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <file>...",
		Short: "Ingest text documents into the vector store",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runIngest,
	}
}

func runIngest(cmd *cobra.Command, args []string) error {
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

	for _, path := range args {
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}

		meta := vector.Metadata{
			"document_id": uuid.NewString(),
			"filename":    filepath.Base(path),
		}
		if err := sys.engine.Ingest(cmd.Context(), string(raw), meta); err != nil {
			return fmt.Errorf("ingesting %s: %w", path, err)
		}

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "ingested %s (%d chunks total)\n",
			path, sys.engine.Status().Documents); err != nil {
			return err
		}
	}
	return nil
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>...",
		Short: "Import CSV files as database tables",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runImport,
	}
}

func runImport(cmd *cobra.Command, args []string) error {
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

	if sys.store == nil {
		return fmt.Errorf("database is unavailable")
	}

	for _, path := range args {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("opening %s: %w", path, err)
		}

		table, rows, err := sys.store.ImportCSV(cmd.Context(), f, filepath.Base(path))
		_ = f.Close()
		if err != nil {
			return fmt.Errorf("importing %s: %w", path, err)
		}

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "imported %s into table %s (%d rows)\n",
			path, table, rows); err != nil {
			return err
		}
	}
	return nil
}
