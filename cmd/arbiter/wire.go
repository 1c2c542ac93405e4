// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arbiter Contributors

package main

import (
	"log/slog"

	"github.com/arbiter-ai/arbiter/internal/agent"
	"github.com/arbiter-ai/arbiter/internal/chunk"
	"github.com/arbiter-ai/arbiter/internal/config"
	"github.com/arbiter-ai/arbiter/internal/database"
	"github.com/arbiter-ai/arbiter/internal/provider"
	"github.com/arbiter-ai/arbiter/internal/provider/anthropic"
	"github.com/arbiter-ai/arbiter/internal/provider/openai"
	"github.com/arbiter-ai/arbiter/internal/retrieval"
	"github.com/arbiter-ai/arbiter/internal/vector"
	"github.com/arbiter-ai/arbiter/internal/vector/sqlitevec"
	arberr "github.com/arbiter-ai/arbiter/pkg/errors"
)

// system holds the wired subsystems behind the CLI and the HTTP gateway.
// Provider construction failures leave the corresponding field nil; every
// downstream component handles that by degrading instead of crashing.
type system struct {
	workflow *agent.Workflow
	engine   *retrieval.Engine
	store    *database.Store
	index    vector.Index
}

func (s *system) Close() {
	if s.store != nil {
		_ = s.store.Close()
	}
	if s.index != nil {
		_ = s.index.Close()
	}
}

// buildSystem constructs every subsystem from configuration. Only the
// vector index and retrieval engine are hard requirements; the database,
// completer, and embedder degrade to nil with a logged warning.
func buildSystem(cfg *config.Config, logger *slog.Logger) (*system, error) {
	completer := buildCompleter(cfg, logger)
	embedder := buildEmbedder(cfg, logger)

	index, err := buildIndex(cfg)
	if err != nil {
		return nil, err
	}

	engine, err := retrieval.NewEngine(chunk.NewSplitter(cfg.Retrieval.ChunkSize), embedder, index, logger)
	if err != nil {
		_ = index.Close()
		return nil, err
	}

	store, err := database.Open(cfg.Database.Path, logger)
	if err != nil {
		logger.Warn("database unavailable, data queries disabled", "error", err)
		store = nil
	}

	workflow := agent.NewWorkflow(
		agent.NewSupervisor(completer, logger),
		[]agent.Handler{
			agent.NewDatabaseHandler(store, completer, logger),
			agent.NewRetrievalHandler(engine, completer, logger),
			agent.NewGeneralHandler(completer, logger),
		},
		store, engine, logger)

	return &system{
		workflow: workflow,
		engine:   engine,
		store:    store,
		index:    index,
	}, nil
}

func buildCompleter(cfg *config.Config, logger *slog.Logger) provider.Completer {
	switch cfg.Providers.Completion {
	case "anthropic":
		client, err := anthropic.New(anthropic.Config{
			APIKey: cfg.Providers.Anthropic.APIKey,
			Model:  cfg.Providers.Anthropic.Model,
		})
		if err != nil {
			logger.Warn("anthropic provider unavailable, running degraded", "error", err)
			return nil
		}
		return client
	default:
		client, err := openai.New(openai.Config{
			APIKey:  cfg.Providers.OpenAI.APIKey,
			BaseURL: cfg.Providers.OpenAI.BaseURL,
			Model:   cfg.Providers.OpenAI.Model,
		})
		if err != nil {
			logger.Warn("openai provider unavailable, running degraded", "error", err)
			return nil
		}
		return client
	}
}

func buildEmbedder(cfg *config.Config, logger *slog.Logger) provider.Embedder {
	client, err := openai.New(openai.Config{
		APIKey:             cfg.Providers.OpenAI.APIKey,
		BaseURL:            cfg.Providers.OpenAI.BaseURL,
		EmbeddingModel:     cfg.Providers.OpenAI.EmbeddingModel,
		EmbeddingDimension: cfg.Retrieval.Dimension,
	})
	if err != nil {
		logger.Warn("embedding provider unavailable, document search disabled", "error", err)
		return nil
	}
	return client
}

func buildIndex(cfg *config.Config) (vector.Index, error) {
	switch cfg.Retrieval.IndexBackend {
	case "sqlite-vec":
		return sqlitevec.Open(cfg.Retrieval.IndexPath, cfg.Retrieval.Dimension)
	case "flat":
		return vector.OpenFlat(cfg.Retrieval.IndexPath, cfg.Retrieval.Dimension)
	default:
		return nil, arberr.Errorf(arberr.CodeConfigValidateInvalidValue,
			"unknown index backend %q", cfg.Retrieval.IndexBackend)
	}
}
