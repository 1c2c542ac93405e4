// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arbiter Contributors

// Package retrieval composes the chunker, the embedding provider, and the
// vector index into document ingestion and semantic search.
package retrieval

import (
	"context"
	"log/slog"

	"github.com/arbiter-ai/arbiter/internal/chunk"
	"github.com/arbiter-ai/arbiter/internal/provider"
	"github.com/arbiter-ai/arbiter/internal/vector"
	arberr "github.com/arbiter-ai/arbiter/pkg/errors"
)

// DefaultTopK is the result count used when a caller passes k <= 0.
const DefaultTopK = 5

// ScoredChunk is one retrieval hit.
type ScoredChunk struct {
	Text     string
	Score    float64
	Metadata vector.Metadata
}

// Status reports whether the engine can serve searches and how much it
// holds. Callers use it to tell "no results" apart from "degraded".
type Status struct {
	Available bool
	Documents int
	Dimension int
}

// Engine ingests documents and answers top-k similarity searches. The
// embedder may be nil (construction failed at startup); every operation
// then reports unavailability instead of crashing.
type Engine struct {
	splitter *chunk.Splitter
	embedder provider.Embedder
	index    vector.Index
	logger   *slog.Logger
}

// NewEngine wires the engine. It fails if the embedder and index disagree
// on dimension, which would otherwise surface as per-add errors later.
func NewEngine(splitter *chunk.Splitter, embedder provider.Embedder, index vector.Index, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if embedder != nil && embedder.Dimension() != index.Dimension() {
		return nil, arberr.New(arberr.CodeIndexDimensionMismatch, "retrieval: embedder and index dimensions differ",
			arberr.Field("embedder", embedder.Dimension()), arberr.Field("index", index.Dimension()))
	}
	return &Engine{splitter: splitter, embedder: embedder, index: index, logger: logger}, nil
}

// Status reports engine availability and index size.
func (e *Engine) Status() Status {
	return Status{
		Available: e.embedder != nil,
		Documents: e.index.Size(),
		Dimension: e.index.Dimension(),
	}
}

// Ingest chunks the text, embeds every chunk, and appends all of them to
// the index. Embedding is staged first: the index is not touched until
// every chunk embedded successfully, so an embedding outage cannot leave
// a document half-searchable.
func (e *Engine) Ingest(ctx context.Context, text string, meta vector.Metadata) error {
	if e.embedder == nil {
		return arberr.New(arberr.CodeRetrievalUnavailable, "retrieval: embedding provider unavailable")
	}

	chunks := e.splitter.Split(text, docID(meta))
	if len(chunks) == 0 {
		return arberr.New(arberr.CodeRetrievalIngestFailure, "retrieval: document contains no chunkable text")
	}

	staged := make([][]float32, len(chunks))
	for i, c := range chunks {
		vec, err := e.embedder.Embed(ctx, c.Text)
		if err != nil {
			return arberr.Wrap(err, arberr.CodeRetrievalIngestFailure, "retrieval: embedding chunk",
				arberr.Field("chunk_index", c.SequenceIndex))
		}
		staged[i] = vector.Normalize(vec)
	}

	for i, c := range chunks {
		m := make(vector.Metadata, len(meta)+2)
		for k, v := range meta {
			m[k] = v
		}
		m["text"] = c.Text
		m["chunk_index"] = c.SequenceIndex

		if err := e.index.Add(staged[i], m); err != nil {
			return arberr.Wrap(err, arberr.CodeRetrievalIngestFailure, "retrieval: adding chunk to index",
				arberr.Field("chunk_index", c.SequenceIndex))
		}
	}

	e.logger.Info("document ingested", "chunks", len(chunks), "index_size", e.index.Size())
	return nil
}

// Search embeds the query and returns up to k scored chunks. When the
// engine is degraded (no embedder, embedding failure) it returns an empty
// result rather than an error; use Status to detect degradation.
func (e *Engine) Search(ctx context.Context, query string, k int) ([]ScoredChunk, error) {
	if k <= 0 {
		k = DefaultTopK
	}
	if e.embedder == nil {
		e.logger.Warn("search skipped: embedding provider unavailable")
		return []ScoredChunk{}, nil
	}

	vec, err := e.embedder.Embed(ctx, query)
	if err != nil {
		e.logger.Warn("search degraded: query embedding failed", "error", err)
		return []ScoredChunk{}, nil
	}

	results, err := e.index.Search(vector.Normalize(vec), k)
	if err != nil {
		return nil, err
	}

	scored := make([]ScoredChunk, 0, len(results))
	for _, r := range results {
		text, _ := r.Metadata["text"].(string)
		scored = append(scored, ScoredChunk{Text: text, Score: r.Score, Metadata: r.Metadata})
	}
	return scored, nil
}

func docID(meta vector.Metadata) string {
	if meta == nil {
		return ""
	}
	if id, ok := meta["document_id"].(string); ok {
		return id
	}
	if name, ok := meta["filename"].(string); ok {
		return name
	}
	return ""
}
