// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arbiter Contributors

package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/arbiter-ai/arbiter/internal/database"
	"github.com/arbiter-ai/arbiter/internal/retrieval"
)

// WorkflowState tracks a query's progress through the pipeline.
type WorkflowState string

const (
	StateStart       WorkflowState = "start"
	StateSupervising WorkflowState = "supervising"
	StateDispatched  WorkflowState = "dispatched"
	StateFinalized   WorkflowState = "finalized"
)

// previewK is how many retrieval hits feed the supervisor's bias check.
const previewK = 2

// TranscriptEntry records one state transition for introspection.
type TranscriptEntry struct {
	State  WorkflowState `json:"state"`
	Detail string        `json:"detail,omitempty"`
}

// Result is the finalized outcome of one query.
type Result struct {
	QueryID    string            `json:"query_id"`
	Success    bool              `json:"success"`
	Response   string            `json:"response"`
	Agent      string            `json:"agent"`
	Confidence float64           `json:"confidence"`
	Metadata   map[string]any    `json:"metadata,omitempty"`
	RoutedTo   Kind              `json:"routed_to"`
	Transcript []TranscriptEntry `json:"transcript,omitempty"`
	Elapsed    time.Duration     `json:"-"`
}

// Workflow sequences a query through start, supervision, dispatch, and
// finalization. It owns the per-query routing context snapshot and
// guarantees exactly one finalized Result per call, whatever fails along
// the way.
type Workflow struct {
	supervisor *Supervisor
	handlers   map[Kind]Handler
	store      *database.Store   // optional
	engine     *retrieval.Engine // optional
	logger     *slog.Logger
}

func NewWorkflow(supervisor *Supervisor, handlers []Handler, store *database.Store, engine *retrieval.Engine, logger *slog.Logger) *Workflow {
	if logger == nil {
		logger = slog.Default()
	}
	byKind := make(map[Kind]Handler, len(handlers))
	for _, h := range handlers {
		byKind[h.Kind()] = h
	}
	return &Workflow{
		supervisor: supervisor,
		handlers:   byKind,
		store:      store,
		engine:     engine,
		logger:     logger,
	}
}

// Process runs one query end to end. It never returns an error: failures
// along the way degrade to a zero-confidence Result.
func (w *Workflow) Process(ctx context.Context, query string) Result {
	start := time.Now()
	queryID := uuid.NewString()

	transcript := []TranscriptEntry{{State: StateStart, Detail: queryID}}

	rctx := w.buildRoutingContext(ctx, query)

	transcript = append(transcript, TranscriptEntry{State: StateSupervising})
	decision := w.supervisor.Route(ctx, query, rctx)

	handler, ok := w.handlers[decision.Target]
	if !ok {
		// Closed routing set: anything unmapped lands on general.
		handler = w.handlers[KindGeneral]
	}

	var resp Response
	if handler != nil {
		transcript = append(transcript, TranscriptEntry{
			State:  StateDispatched,
			Detail: string(handler.Kind()),
		})
		resp = handler.Handle(ctx, query, rctx)
	} else {
		resp = errorResponse("Workflow",
			"No handler is available to answer this query.", nil)
	}

	transcript = append(transcript, TranscriptEntry{State: StateFinalized})

	meta := resp.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	meta["routing_source"] = decision.Source
	if decision.Err != "" {
		meta["routing_error"] = decision.Err
	}

	result := Result{
		QueryID:    queryID,
		Success:    resp.Confidence > 0,
		Response:   resp.Content,
		Agent:      resp.Agent,
		Confidence: resp.Confidence,
		Metadata:   meta,
		RoutedTo:   decision.Target,
		Transcript: transcript,
		Elapsed:    time.Since(start),
	}

	w.logger.Info("query processed",
		"query_id", queryID,
		"routed_to", result.RoutedTo,
		"agent", result.Agent,
		"confidence", result.Confidence,
		"elapsed", result.Elapsed)
	return result
}

// buildRoutingContext snapshots store and index status for one query.
// Failures become descriptive strings: routing must proceed on whatever
// information is reachable.
func (w *Workflow) buildRoutingContext(ctx context.Context, query string) RoutingContext {
	rctx := RoutingContext{
		Tables:            "Database not available",
		VectorStoreStatus: "Vector store not available",
	}

	if w.store != nil && w.store.Connected() {
		schema, err := w.store.Describe(ctx)
		if err != nil {
			rctx.Tables = fmt.Sprintf("Schema inspection failed: %v", err)
		} else {
			rctx.Tables = schema
		}
	}

	if w.engine != nil {
		st := w.engine.Status()
		switch {
		case !st.Available:
			rctx.VectorStoreStatus = "Vector store not available"
		case st.Documents == 0:
			rctx.VectorStoreStatus = "0 documents available"
		default:
			rctx.DocumentCount = st.Documents
			rctx.VectorStoreStatus = fmt.Sprintf("%d documents available", st.Documents)

			preview, err := w.engine.Search(ctx, query, previewK)
			if err != nil {
				w.logger.Warn("routing preview search failed", "error", err)
			} else {
				rctx.Preview = preview
			}
		}
	}

	return rctx
}
