// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arbiter Contributors

package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/arbiter-ai/arbiter/internal/provider"
	"github.com/arbiter-ai/arbiter/internal/retrieval"
	arberr "github.com/arbiter-ai/arbiter/pkg/errors"
)

const retrievalAgentName = "RetrievalAgent"

// retrievalTopK is how many grounding chunks the handler retrieves.
const retrievalTopK = 5

// maxRetrievalConfidence caps the confidence derived from similarity
// scores; retrieval never claims more certainty than that.
const maxRetrievalConfidence = 0.9

// RetrievalHandler answers questions about ingested documents: it checks
// engine availability, optionally reformulates the query for recall,
// searches the index, and summarizes the grounding chunks with source
// attribution.
type RetrievalHandler struct {
	engine    *retrieval.Engine
	completer provider.Completer // optional
	logger    *slog.Logger
}

var _ Handler = (*RetrievalHandler)(nil)

func NewRetrievalHandler(engine *retrieval.Engine, completer provider.Completer, logger *slog.Logger) *RetrievalHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RetrievalHandler{engine: engine, completer: completer, logger: logger}
}

func (h *RetrievalHandler) Kind() Kind { return KindRetrieval }

func (h *RetrievalHandler) Handle(ctx context.Context, query string, rctx RoutingContext) Response {
	st := h.engine.Status()
	if !st.Available {
		return errorResponse(retrievalAgentName,
			"The document search model is not available, so I cannot search your documents.",
			arberr.New(arberr.CodeRetrievalUnavailable, "embedding provider unavailable"))
	}
	if st.Documents == 0 {
		return errorResponse(retrievalAgentName,
			"No documents have been uploaded yet. Please ingest some documents first.",
			arberr.New(arberr.CodeRetrievalUnavailable, "document store is empty"))
	}

	searchQuery := h.reformulate(ctx, query)

	results, err := h.engine.Search(ctx, searchQuery, retrievalTopK)
	if err != nil {
		return errorResponse(retrievalAgentName, "Document search failed.", err)
	}
	if len(results) == 0 {
		resp := errorResponse(retrievalAgentName,
			"I could not find any relevant content in the uploaded documents for that question.", nil)
		resp.Metadata["reformulated_query"] = searchQuery
		return resp
	}

	content := h.summarize(ctx, query, results)

	confidence := results[0].Score
	if confidence > maxRetrievalConfidence {
		confidence = maxRetrievalConfidence
	}
	if confidence < 0 {
		confidence = 0
	}

	return Response{
		Agent:   retrievalAgentName,
		Content: content,
		Metadata: map[string]any{
			"reformulated_query": searchQuery,
			"sources":            sourceNames(results),
			"result_count":       len(results),
		},
		Confidence: confidence,
	}
}

// reformulate asks the model for a search-friendlier phrasing. Any
// failure falls back to the original query.
func (h *RetrievalHandler) reformulate(ctx context.Context, query string) string {
	if h.completer == nil {
		return query
	}

	prompt := fmt.Sprintf(`Reformulate this query for semantic search over a document database. Extract the key concepts, keep it concise, reply with only the reformulated query.

Original query: %q`, query)

	answer, err := h.completer.Complete(ctx, provider.CompletionRequest{
		Prompt:      prompt,
		Temperature: 0.2,
		MaxTokens:   128,
	})
	if err != nil || strings.TrimSpace(answer) == "" {
		return query
	}
	return strings.TrimSpace(answer)
}

func (h *RetrievalHandler) summarize(ctx context.Context, query string, results []retrieval.ScoredChunk) string {
	var sb strings.Builder
	for i, r := range results {
		fmt.Fprintf(&sb, "[%d] (source: %s, score: %.2f)\n%s\n\n", i+1, sourceOf(r), r.Score, r.Text)
	}
	grounding := sb.String()

	if h.completer == nil {
		// Degraded path: hand back the best snippets with attribution.
		return "The language model is unavailable; here are the most relevant passages found:\n\n" + grounding
	}

	prompt := fmt.Sprintf(`The user asked: %q

Relevant document chunks:
%s

Answer the question using only these chunks. Cite the source of each fact. If the chunks do not contain enough information, say so clearly.`,
		query, grounding)

	answer, err := h.completer.Complete(ctx, provider.CompletionRequest{
		Prompt:      prompt,
		Temperature: 0.3,
		MaxTokens:   1024,
	})
	if err != nil {
		h.logger.Warn("grounded summarization failed, returning snippets", "error", err)
		return "The language model is unavailable; here are the most relevant passages found:\n\n" + grounding
	}
	return answer
}

func sourceOf(r retrieval.ScoredChunk) string {
	if name, ok := r.Metadata["filename"].(string); ok && name != "" {
		return name
	}
	if id, ok := r.Metadata["document_id"].(string); ok && id != "" {
		return id
	}
	return "unknown"
}

func sourceNames(results []retrieval.ScoredChunk) []string {
	seen := map[string]bool{}
	var names []string
	for _, r := range results {
		name := sourceOf(r)
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}
