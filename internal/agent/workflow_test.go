// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arbiter Contributors

package agent_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbiter-ai/arbiter/internal/agent"
	"github.com/arbiter-ai/arbiter/internal/vector"
)

func allStates(transcript []agent.TranscriptEntry) []agent.WorkflowState {
	states := make([]agent.WorkflowState, len(transcript))
	for i, e := range transcript {
		states[i] = e.State
	}
	return states
}

func TestWorkflowGreeting(t *testing.T) {
	w := agent.NewWorkflow(
		agent.NewSupervisor(nil, nil),
		[]agent.Handler{agent.NewGeneralHandler(nil, nil)},
		nil, nil, nil)

	result := w.Process(context.Background(), "Hello")

	assert.True(t, result.Success)
	assert.Equal(t, agent.KindGeneral, result.RoutedTo)
	assert.Equal(t, "GeneralAgent", result.Agent)
	assert.InDelta(t, 0.95, result.Confidence, 1e-9)
	assert.NotEmpty(t, result.QueryID)
	assert.Equal(t, []agent.WorkflowState{
		agent.StateStart, agent.StateSupervising, agent.StateDispatched, agent.StateFinalized,
	}, allStates(result.Transcript))
}

func TestWorkflowDatabaseQuestion(t *testing.T) {
	store := openSeededStore(t)
	completer := &fakeCompleter{replies: []string{
		"SELECT COUNT(*) AS n FROM users",
		"There are 3 users in the system.",
	}}

	w := agent.NewWorkflow(
		agent.NewSupervisor(nil, nil),
		[]agent.Handler{
			agent.NewDatabaseHandler(store, completer, nil),
			agent.NewGeneralHandler(nil, nil),
		},
		store, nil, nil)

	result := w.Process(context.Background(), "How many users are in the system?")

	assert.True(t, result.Success)
	assert.Equal(t, agent.KindDatabase, result.RoutedTo)
	assert.Equal(t, "There are 3 users in the system.", result.Response)
	assert.InDelta(t, 0.8, result.Confidence, 1e-9)
	assert.Equal(t, "SELECT COUNT(*) AS n FROM users", result.Metadata["sql_query"])
	assert.Equal(t, "heuristic", result.Metadata["routing_source"])
}

func TestWorkflowDocumentQuestion(t *testing.T) {
	engine := newTestEngine(t, &stubEmbedder{dim: 8})
	require.NoError(t, engine.Ingest(context.Background(),
		"The refund window is thirty days from purchase.",
		vector.Metadata{"filename": "policy.txt"}))

	w := agent.NewWorkflow(
		agent.NewSupervisor(nil, nil),
		[]agent.Handler{
			agent.NewRetrievalHandler(engine, nil, nil),
			agent.NewGeneralHandler(nil, nil),
		},
		nil, engine, nil)

	result := w.Process(context.Background(), "What does the document say about refunds?")

	assert.True(t, result.Success)
	assert.Equal(t, agent.KindRetrieval, result.RoutedTo)
	assert.Contains(t, result.Response, "refund window")
	assert.Positive(t, result.Confidence)
	assert.LessOrEqual(t, result.Confidence, 0.9)
}

func TestWorkflowDocumentQuestionEmptyStore(t *testing.T) {
	engine := newTestEngine(t, &stubEmbedder{dim: 8})

	w := agent.NewWorkflow(
		agent.NewSupervisor(nil, nil),
		[]agent.Handler{
			agent.NewRetrievalHandler(engine, nil, nil),
			agent.NewGeneralHandler(nil, nil),
		},
		nil, engine, nil)

	result := w.Process(context.Background(), "What does the document say about pricing?")

	assert.False(t, result.Success)
	assert.Equal(t, agent.KindRetrieval, result.RoutedTo)
	assert.Equal(t, "RetrievalAgent", result.Agent)
	assert.Zero(t, result.Confidence)
	assert.Contains(t, result.Response, "No documents have been uploaded")

	// Exactly one dispatch: the handler runs once and is not retried.
	dispatched := 0
	for _, e := range result.Transcript {
		if e.State == agent.StateDispatched {
			dispatched++
		}
	}
	assert.Equal(t, 1, dispatched)
}

func TestWorkflowFallsBackToGeneralHandler(t *testing.T) {
	// Only the general handler is registered; a database-flavored query
	// still gets an answer.
	w := agent.NewWorkflow(
		agent.NewSupervisor(nil, nil),
		[]agent.Handler{agent.NewGeneralHandler(nil, nil)},
		nil, nil, nil)

	result := w.Process(context.Background(), "How many users are in the system?")

	assert.Equal(t, agent.KindDatabase, result.RoutedTo)
	assert.Equal(t, "GeneralAgent", result.Agent)
	assert.NotEmpty(t, result.Response)
}

func TestWorkflowDegradedEverything(t *testing.T) {
	w := agent.NewWorkflow(
		agent.NewSupervisor(nil, nil),
		[]agent.Handler{
			agent.NewDatabaseHandler(nil, nil, nil),
			agent.NewGeneralHandler(nil, nil),
		},
		nil, nil, nil)

	result := w.Process(context.Background(), "How many users are in the system?")

	assert.False(t, result.Success)
	assert.Equal(t, agent.KindDatabase, result.RoutedTo)
	assert.Zero(t, result.Confidence)
	assert.NotEmpty(t, result.Response)
}

func TestWorkflowNoHandlers(t *testing.T) {
	w := agent.NewWorkflow(agent.NewSupervisor(nil, nil), nil, nil, nil, nil)

	result := w.Process(context.Background(), "Hello")

	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Response)
	assert.Equal(t, agent.StateFinalized, result.Transcript[len(result.Transcript)-1].State)
}
