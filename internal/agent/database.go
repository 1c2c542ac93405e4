// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arbiter Contributors

package agent

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/arbiter-ai/arbiter/internal/database"
	"github.com/arbiter-ai/arbiter/internal/provider"
	arberr "github.com/arbiter-ai/arbiter/pkg/errors"
)

const databaseAgentName = "DatabaseAgent"

// denied matches mutation and DDL verbs on word boundaries, case-insensitive.
var denied = regexp.MustCompile(`(?i)\b(DROP|DELETE|INSERT|UPDATE|ALTER|CREATE|TRUNCATE)\b`)

// ValidateSQL is the hard gate in front of execution: the statement must
// be syntactically a retrieval statement (SELECT or WITH) and must not
// contain any denylisted keyword. It returns a CodeAgentValidationRejected
// error otherwise.
func ValidateSQL(stmt string) error {
	upper := strings.ToUpper(strings.TrimSpace(stmt))
	if !strings.HasPrefix(upper, "SELECT") && !strings.HasPrefix(upper, "WITH") {
		return arberr.New(arberr.CodeAgentValidationRejected, "only SELECT statements are allowed",
			arberr.Field("statement", stmt))
	}
	if m := denied.FindString(stmt); m != "" {
		return arberr.Errorf(arberr.CodeAgentValidationRejected, "%s operations are not allowed", strings.ToUpper(m))
	}
	return nil
}

// DatabaseHandler answers structured-data questions: it grounds a SQL
// generation step in the live schema, validates the statement, executes
// it read-only, and summarizes the rows.
type DatabaseHandler struct {
	store     *database.Store
	completer provider.Completer // optional
	logger    *slog.Logger
}

var _ Handler = (*DatabaseHandler)(nil)

func NewDatabaseHandler(store *database.Store, completer provider.Completer, logger *slog.Logger) *DatabaseHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DatabaseHandler{store: store, completer: completer, logger: logger}
}

func (h *DatabaseHandler) Kind() Kind { return KindDatabase }

func (h *DatabaseHandler) Handle(ctx context.Context, query string, rctx RoutingContext) Response {
	if h.store == nil || !h.store.Connected() {
		return errorResponse(databaseAgentName,
			"The structured data store is not reachable right now, so I cannot answer data questions.",
			arberr.New(arberr.CodeStoreUnavailable, "database not connected"))
	}
	if h.completer == nil {
		return errorResponse(databaseAgentName,
			"The language model is unavailable, so I cannot generate a query for your question.",
			arberr.New(arberr.CodeProviderUnavailable, "no completer configured"))
	}

	schema := rctx.Tables
	if schema == "" {
		described, err := h.store.Describe(ctx)
		if err != nil {
			return errorResponse(databaseAgentName, "I could not inspect the database schema.", err)
		}
		schema = described
	}

	stmt, err := h.generateSQL(ctx, query, schema)
	if err != nil {
		return errorResponse(databaseAgentName, "I could not generate a query for your question.", err)
	}

	if err := ValidateSQL(stmt); err != nil {
		h.logger.Warn("generated statement rejected", "statement", stmt, "error", err)
		resp := errorResponse(databaseAgentName,
			"The generated query was rejected because it is not a read-only retrieval statement.", err)
		resp.Metadata["sql_query"] = stmt
		return resp
	}

	rows, err := h.store.Query(ctx, stmt)
	if err != nil {
		resp := errorResponse(databaseAgentName, "The query failed to execute against the database.", err)
		resp.Metadata["sql_query"] = stmt
		return resp
	}

	content := h.summarize(ctx, query, stmt, rows)

	return Response{
		Agent:   databaseAgentName,
		Content: content,
		Metadata: map[string]any{
			"sql_query": stmt,
			"row_count": len(rows),
		},
		Confidence: 0.8,
	}
}

const sqlGenerationTemplate = `Based on the database schema below, generate a SQL query that answers the user's question.

Database schema:
%s

User question: %s

Rules:
- Generate only SELECT statements
- Use table and column names exactly as they appear in the schema
- Add WHERE, GROUP BY, ORDER BY, and LIMIT clauses as needed

Reply with only the SQL statement, no explanation:`

func (h *DatabaseHandler) generateSQL(ctx context.Context, query, schema string) (string, error) {
	answer, err := h.completer.Complete(ctx, provider.CompletionRequest{
		Prompt:      fmt.Sprintf(sqlGenerationTemplate, schema, query),
		Temperature: 0.1,
		MaxTokens:   512,
	})
	if err != nil {
		return "", err
	}
	return stripCodeFence(answer), nil
}

func (h *DatabaseHandler) summarize(ctx context.Context, query, stmt string, rows []map[string]any) string {
	table := database.FormatRows(rows)

	prompt := fmt.Sprintf(`The user asked: %q

The SQL query %q returned these rows:
%s

Answer the user's question in natural language based on these results. If no rows were returned, say that no matching data was found.`,
		query, stmt, table)

	answer, err := h.completer.Complete(ctx, provider.CompletionRequest{
		Prompt:      prompt,
		Temperature: 0.3,
		MaxTokens:   1024,
	})
	if err != nil {
		h.logger.Warn("summarization failed, returning raw results", "error", err)
		return fmt.Sprintf("The query returned %d rows:\n%s", len(rows), table)
	}
	return answer
}

// stripCodeFence removes a surrounding markdown fence from a generated
// statement, which models frequently add despite instructions.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```sql")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
