// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arbiter Contributors

package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/arbiter-ai/arbiter/internal/provider"
)

const generalAgentName = "GeneralAgent"

// cannedResponses answers the most common greetings and capability
// questions without a model round-trip.
var cannedResponses = map[string]string{
	"hi":    "Hello! I can help you with data queries, document searches, and general questions. What would you like to know?",
	"hello": "Hi there! I can search your data, look through uploaded documents, or just chat. How can I help?",
	"hey":   "Hey! I can help with database questions, document searches, and general assistance. What can I do for you?",
	"help": "I can assist you with:\n" +
		"- Database queries and data analysis\n" +
		"- Searching through uploaded documents\n" +
		"- General questions and conversation\n\n" +
		"What would you like to explore?",
	"what can you do": "I have three capabilities:\n" +
		"- Data analysis: I answer questions over the structured tables you have loaded\n" +
		"- Document search: I find and summarize information from uploaded files\n" +
		"- General help: I answer questions and have conversations\n\n" +
		"What do you need?",
	"capabilities": "My main capabilities are data analysis over your tables, semantic search over uploaded documents, and general conversation. How can I help?",
}

// GeneralHandler covers greetings, small talk, and everything no other
// handler claims. It is the universal routing fallback and must always
// produce a usable response, model or no model.
type GeneralHandler struct {
	completer provider.Completer // optional
	logger    *slog.Logger
}

var _ Handler = (*GeneralHandler)(nil)

func NewGeneralHandler(completer provider.Completer, logger *slog.Logger) *GeneralHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &GeneralHandler{completer: completer, logger: logger}
}

func (h *GeneralHandler) Kind() Kind { return KindGeneral }

func (h *GeneralHandler) Handle(ctx context.Context, query string, rctx RoutingContext) Response {
	normalized := strings.ToLower(strings.TrimSpace(query))

	if canned, ok := cannedResponses[normalized]; ok {
		return Response{
			Agent:      generalAgentName,
			Content:    canned,
			Metadata:   map[string]any{"canned": true},
			Confidence: 0.95,
		}
	}

	if h.completer != nil {
		content, err := h.complete(ctx, query, rctx)
		if err == nil {
			return Response{
				Agent:      generalAgentName,
				Content:    content,
				Metadata:   map[string]any{},
				Confidence: 0.8,
			}
		}
		h.logger.Warn("free-form generation failed, using templated reply", "error", err)
	}

	// Degraded path: a templated reply that still acknowledges the query.
	return Response{
		Agent: generalAgentName,
		Content: fmt.Sprintf("Thanks for your message: %q. The AI service is currently limited, "+
			"but I can still help with data queries and document searches once it recovers.", query),
		Metadata:   map[string]any{"degraded": true},
		Confidence: 0.5,
	}
}

const generalSystemPrompt = `You are the conversational side of a query-answering assistant.
Be friendly, concise, and helpful. When relevant, mention that the system can also
answer questions over structured data tables and search uploaded documents.
Do not invent specific data or document contents.`

func (h *GeneralHandler) complete(ctx context.Context, query string, rctx RoutingContext) (string, error) {
	prompt := query
	if rctx.Tables != "" || rctx.VectorStoreStatus != "" {
		prompt = fmt.Sprintf("System status: tables: %s; document store: %s\n\nUser: %s",
			rctx.Tables, rctx.VectorStoreStatus, query)
	}

	return h.completer.Complete(ctx, provider.CompletionRequest{
		SystemPrompt: generalSystemPrompt,
		Prompt:       prompt,
		Temperature:  0.7,
		MaxTokens:    1024,
	})
}
