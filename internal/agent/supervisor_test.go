// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arbiter Contributors

package agent_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbiter-ai/arbiter/internal/agent"
	"github.com/arbiter-ai/arbiter/internal/retrieval"
)

func TestSupervisorHeuristicRouting(t *testing.T) {
	sup := agent.NewSupervisor(nil, nil)

	d := sup.Route(context.Background(), "How many users are in the system?", agent.RoutingContext{})

	assert.Equal(t, agent.KindDatabase, d.Target)
	assert.Equal(t, "heuristic", d.Source)
	assert.InDelta(t, 0.9, d.Scores[agent.KindDatabase], 1e-9)
	assert.Equal(t, []agent.SupervisorState{
		agent.StateIdle, agent.StateScoring, agent.StateAwaitingDecision, agent.StateDecided,
	}, d.States)
}

func TestSupervisorModelOverride(t *testing.T) {
	completer := &fakeCompleter{replies: []string{"vector_db"}}
	sup := agent.NewSupervisor(completer, nil)

	rctx := agent.RoutingContext{VectorStoreStatus: "3 documents available", DocumentCount: 3}
	d := sup.Route(context.Background(), "what is our refund policy", rctx)

	assert.Equal(t, agent.KindRetrieval, d.Target)
	assert.Equal(t, "model", d.Source)
	assert.Equal(t, 1, completer.callCount())
}

func TestSupervisorUnknownModelAnswerKeepsHeuristic(t *testing.T) {
	completer := &fakeCompleter{replies: []string{"weather_agent"}}
	sup := agent.NewSupervisor(completer, nil)

	d := sup.Route(context.Background(), "How many users are in the system?", agent.RoutingContext{})

	assert.Equal(t, agent.KindDatabase, d.Target)
	assert.Equal(t, "heuristic", d.Source)
	assert.Empty(t, d.Err)
}

func TestSupervisorModelFailureKeepsHeuristic(t *testing.T) {
	completer := &fakeCompleter{err: errors.New("upstream timeout")}
	sup := agent.NewSupervisor(completer, nil)

	d := sup.Route(context.Background(), "How many users are in the system?", agent.RoutingContext{})

	assert.Equal(t, agent.KindDatabase, d.Target)
	assert.Equal(t, "heuristic", d.Source)
	assert.Contains(t, d.Err, "upstream timeout")
}

func TestSupervisorRetrievalBias(t *testing.T) {
	sup := agent.NewSupervisor(nil, nil)

	// Ambiguous scores all within the margin; a strong preview hit tips
	// the decision toward retrieval.
	rctx := agent.RoutingContext{
		VectorStoreStatus: "2 documents available",
		DocumentCount:     2,
		Preview: []retrieval.ScoredChunk{
			{Text: "refund policy details", Score: 0.92},
		},
	}
	d := sup.Route(context.Background(), "tell me more", rctx)

	require.GreaterOrEqual(t, rctx.Preview[0].Score, agent.RetrievalBiasThreshold)
	assert.Equal(t, agent.KindRetrieval, d.Target)
	assert.Equal(t, "bias", d.Source)
}

func TestSupervisorTieBreakPrefersDatabase(t *testing.T) {
	sup := agent.NewSupervisor(nil, nil)

	// "information on" scores retrieval 0.9; "data" plus "records" scores
	// database 0.9. No preview hits, so the bias cannot apply.
	rctx := agent.RoutingContext{VectorStoreStatus: "3 documents available", DocumentCount: 3}
	d := sup.Route(context.Background(), "information on the data records", rctx)

	assert.InDelta(t, d.Scores[agent.KindDatabase], d.Scores[agent.KindRetrieval], 1e-9)
	assert.Equal(t, agent.KindDatabase, d.Target)
}

func TestSupervisorEmptyStoreScoresRetrievalLow(t *testing.T) {
	sup := agent.NewSupervisor(nil, nil)

	// The status string describes an empty store; only DocumentCount
	// feeds the classifier, so retrieval still scores 0.2.
	rctx := agent.RoutingContext{VectorStoreStatus: "0 documents available"}
	d := sup.Route(context.Background(), "What does the document say about pricing?", rctx)

	assert.InDelta(t, 0.2, d.Scores[agent.KindRetrieval], 1e-9)
	// Explicit document intent still lands on the retrieval handler,
	// which explains that nothing has been uploaded.
	assert.Equal(t, agent.KindRetrieval, d.Target)
	assert.Equal(t, "intent", d.Source)
}

func TestSupervisorEmptyStoreWithoutDocumentIntent(t *testing.T) {
	sup := agent.NewSupervisor(nil, nil)

	d := sup.Route(context.Background(), "why did the project fail", agent.RoutingContext{})

	assert.InDelta(t, 0.2, d.Scores[agent.KindRetrieval], 1e-9)
	assert.Equal(t, agent.KindGeneral, d.Target)
	assert.Equal(t, "heuristic", d.Source)
}

func TestSupervisorDeterministic(t *testing.T) {
	sup := agent.NewSupervisor(nil, nil)
	rctx := agent.RoutingContext{VectorStoreStatus: "1 documents available", DocumentCount: 1}

	first := sup.Route(context.Background(), "show me the latest report", rctx)
	for i := 0; i < 5; i++ {
		again := sup.Route(context.Background(), "show me the latest report", rctx)
		assert.Equal(t, first.Target, again.Target)
		assert.Equal(t, first.Scores, again.Scores)
	}
}
