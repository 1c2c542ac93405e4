// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arbiter Contributors

package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/arbiter-ai/arbiter/internal/provider"
	arberr "github.com/arbiter-ai/arbiter/pkg/errors"
)

// SupervisorState tracks the router's progress through a single decision.
type SupervisorState string

const (
	StateIdle             SupervisorState = "idle"
	StateScoring          SupervisorState = "scoring"
	StateAwaitingDecision SupervisorState = "awaiting_decision"
	StateDecided          SupervisorState = "decided"
)

const (
	// RetrievalBiasThreshold is the preview similarity above which an
	// ambiguous decision is biased toward the retrieval handler.
	RetrievalBiasThreshold = 0.7

	// ambiguityMargin is the score gap under which the heuristic winner
	// is considered ambiguous.
	ambiguityMargin = 0.15
)

// priority orders the handlers for deterministic tie-breaking.
var priority = []Kind{KindDatabase, KindRetrieval, KindGeneral}

// Decision is the supervisor's routing verdict.
type Decision struct {
	Target Kind
	Scores map[Kind]float64
	// Source records how the target was chosen: "heuristic", "model",
	// "bias", or "intent".
	Source string
	// States lists the supervisor states visited, in order.
	States []SupervisorState
	// Err carries a non-fatal decision error, recorded for the transcript.
	Err string
}

// Supervisor aggregates the classifier scores, an optional language-model
// opinion, and the retrieval preview into a single routing decision. The
// heuristic rule is the primary, deterministic decider; the model opinion
// refines it only when it names a known handler. Routing never fails: any
// error degrades to KindGeneral.
type Supervisor struct {
	completer provider.Completer // optional
	logger    *slog.Logger
}

// NewSupervisor creates a Supervisor. completer may be nil, in which case
// decisions are fully deterministic.
func NewSupervisor(completer provider.Completer, logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Supervisor{completer: completer, logger: logger}
}

// Route walks the decision states: score every handler, consult the model
// if one is configured, apply the retrieval bias, and settle on a target.
func (s *Supervisor) Route(ctx context.Context, query string, rctx RoutingContext) Decision {
	states := []SupervisorState{StateIdle, StateScoring}

	hasDocs := rctx.DocumentCount > 0
	scores := map[Kind]float64{
		KindDatabase:  ScoreDatabase(query),
		KindRetrieval: ScoreRetrieval(query, hasDocs),
		KindGeneral:   ScoreGeneral(query),
	}

	winner, margin := pickByScore(scores)
	decision := Decision{Target: winner, Scores: scores, Source: "heuristic"}

	states = append(states, StateAwaitingDecision)
	if s.completer != nil {
		target, err := s.askModel(ctx, query, rctx, scores)
		switch {
		case err != nil:
			decision.Err = err.Error()
			s.logger.Warn("model routing failed, keeping heuristic decision", "error", err)
		case target != "":
			decision.Target = target
			decision.Source = "model"
		default:
			// Unknown handler name: keep the heuristic winner.
			s.logger.Warn("model named unknown handler, keeping heuristic decision")
		}
	}

	// Documented override, not a silent tie-break: a strong retrieval
	// preview resolves an ambiguous decision toward retrieval.
	if decision.Target != KindRetrieval && margin < ambiguityMargin &&
		len(rctx.Preview) > 0 && rctx.Preview[0].Score >= RetrievalBiasThreshold {
		decision.Target = KindRetrieval
		decision.Source = "bias"
	}

	// An empty store scores retrieval 0.2, which would drift explicit
	// document questions to the general handler. Send them to the
	// retrieval handler instead; it answers with the no-documents
	// explanation rather than a generic reply.
	if decision.Target != KindRetrieval && rctx.DocumentCount == 0 && DocumentIntent(query) {
		decision.Target = KindRetrieval
		decision.Source = "intent"
	}

	decision.States = append(states, StateDecided)

	s.logger.Info("query routed", "target", decision.Target, "source", decision.Source,
		"db", scores[KindDatabase], "retrieval", scores[KindRetrieval], "general", scores[KindGeneral])
	return decision
}

// pickByScore returns the highest-scoring handler (ties resolve in
// priority order: database, retrieval, general) and the margin between
// the top two scores.
func pickByScore(scores map[Kind]float64) (Kind, float64) {
	best := priority[0]
	for _, k := range priority[1:] {
		if scores[k] > scores[best] {
			best = k
		}
	}
	margin := 1.0
	for _, k := range priority {
		if k == best {
			continue
		}
		if d := scores[best] - scores[k]; d < margin {
			margin = d
		}
	}
	return best, margin
}

const routingPromptTemplate = `You are the routing supervisor for a query-answering system.

Available handlers:
1. database - structured-data questions (counts, statistics, reports, anything answerable with SQL over the tables below)
2. vector_db - questions about the content of uploaded documents
3. general - greetings, small talk, capability questions, anything else

Database tables:
%s

Document store: %s

Heuristic scores: database=%.2f vector_db=%.2f general=%.2f

User query: %q

Respond with ONLY the handler name: database, vector_db, or general`

// askModel asks the completer for a routing opinion. It returns "" when
// the model's answer is not a known handler name.
func (s *Supervisor) askModel(ctx context.Context, query string, rctx RoutingContext, scores map[Kind]float64) (Kind, error) {
	prompt := fmt.Sprintf(routingPromptTemplate,
		rctx.Tables, rctx.VectorStoreStatus,
		scores[KindDatabase], scores[KindRetrieval], scores[KindGeneral], query)

	answer, err := s.completer.Complete(ctx, provider.CompletionRequest{
		Prompt:      prompt,
		Temperature: 0.1,
		MaxTokens:   16,
	})
	if err != nil {
		return "", arberr.Wrap(err, arberr.CodeAgentRoutingFailure, "agent: asking model for routing opinion")
	}

	name := strings.ToLower(strings.TrimSpace(answer))
	if kind, ok := KnownKind(name); ok {
		return kind, nil
	}
	return "", nil
}
