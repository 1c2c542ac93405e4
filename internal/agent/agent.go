// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arbiter Contributors

// Package agent contains the query-routing core: capability classifiers,
// the supervisor that picks a handler, the three specialized handlers,
// and the workflow state machine that sequences them.
package agent

import (
	"context"

	"github.com/arbiter-ai/arbiter/internal/retrieval"
)

// Kind identifies a specialized handler. The set is closed; routing is a
// switch over these values and anything else resolves to KindGeneral.
type Kind string

const (
	KindDatabase  Kind = "database"
	KindRetrieval Kind = "vector_db"
	KindGeneral   Kind = "general"
)

// KnownKind reports whether s names one of the three handlers.
func KnownKind(s string) (Kind, bool) {
	switch Kind(s) {
	case KindDatabase, KindRetrieval, KindGeneral:
		return Kind(s), true
	}
	return "", false
}

// Response is the structured result every handler produces exactly once
// per invocation. Handlers never return errors: internal failures become
// a Response with Confidence 0 and Metadata["error"] set.
type Response struct {
	Agent            string
	Content          string
	Metadata         map[string]any
	Confidence       float64
	RequiresFollowup bool
}

func errorResponse(agent, content string, err error) Response {
	meta := map[string]any{}
	if err != nil {
		meta["error"] = err.Error()
	}
	return Response{Agent: agent, Content: content, Metadata: meta, Confidence: 0.0}
}

// RoutingContext is the per-query snapshot of system status handed to the
// supervisor and handlers. Built fresh for every query, never persisted.
type RoutingContext struct {
	// Tables is the schema summary, or an error string if inspection failed.
	Tables string

	// VectorStoreStatus is a short human-readable store summary, used only
	// in model prompts.
	VectorStoreStatus string

	// DocumentCount is the number of chunks in the vector store. Routing
	// decisions key off this, never off the status string.
	DocumentCount int

	// Preview holds up to two retrieval hits for the query, used by the
	// supervisor's retrieval bias. Empty when the store is empty or down.
	Preview []retrieval.ScoredChunk
}

// Handler is a specialized query answerer.
type Handler interface {
	Kind() Kind
	Handle(ctx context.Context, query string, rctx RoutingContext) Response
}
