// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arbiter Contributors

// Package database provides the structured-data side of Arbiter: schema
// inspection for routing context, read-only query execution for the
// database handler, and CSV import into new tables.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	arberr "github.com/arbiter-ai/arbiter/pkg/errors"
)

// maxRows caps the rows returned from a single query, matching the
// reference behavior of truncating large result sets.
const maxRows = 100

// Store wraps a SQLite database with a reconnect-once retry policy for
// transient failures.
type Store struct {
	mu     sync.Mutex
	dsn    string
	db     *sql.DB
	logger *slog.Logger
}

// Open connects to the SQLite database at dsn.
func Open(dsn string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := connect(dsn)
	if err != nil {
		return nil, err
	}
	return &Store{dsn: dsn, db: db, logger: logger}, nil
}

func connect(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, arberr.Wrap(err, arberr.CodeStoreUnavailable, "database: opening")
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, arberr.Wrap(err, arberr.CodeStoreUnavailable, "database: pinging")
	}
	return db, nil
}

// Connected reports whether the store can reach the database.
func (s *Store) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db != nil && s.db.Ping() == nil
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Describe returns a human-readable schema summary: every user table with
// its columns, types, and row count. The summary feeds the routing context
// and grounds SQL generation.
func (s *Store) Describe(ctx context.Context) (string, error) {
	rows, err := s.queryWithRetry(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return "", err
	}

	var tables []string
	for _, r := range rows {
		if name, ok := r["name"].(string); ok {
			tables = append(tables, name)
		}
	}
	if len(tables) == 0 {
		return "No tables found", nil
	}

	var sb strings.Builder
	for _, table := range tables {
		cols, err := s.queryWithRetry(ctx, fmt.Sprintf(`PRAGMA table_info(%q)`, table))
		if err != nil {
			return "", err
		}

		var colDescs []string
		for _, c := range cols {
			name, _ := c["name"].(string)
			typ, _ := c["type"].(string)
			colDescs = append(colDescs, name+" "+strings.ToUpper(typ))
		}

		count := 0
		if cr, err := s.queryWithRetry(ctx, fmt.Sprintf(`SELECT COUNT(*) AS n FROM %q`, table)); err == nil && len(cr) == 1 {
			if n, ok := cr[0]["n"].(int64); ok {
				count = int(n)
			}
		}

		fmt.Fprintf(&sb, "table %s (%s) -- %d rows\n", table, strings.Join(colDescs, ", "), count)
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

// Query executes a read-only statement and returns up to maxRows rows as
// column-name keyed maps. Statements that are not retrieval statements are
// rejected here as well as at the handler's validation gate.
func (s *Store) Query(ctx context.Context, stmt string) ([]map[string]any, error) {
	upper := strings.ToUpper(strings.TrimSpace(stmt))
	if !strings.HasPrefix(upper, "SELECT") && !strings.HasPrefix(upper, "WITH") && !strings.HasPrefix(upper, "PRAGMA") {
		return nil, arberr.New(arberr.CodeAgentValidationRejected, "database: only read-only statements may run",
			arberr.Field("statement", stmt))
	}
	return s.queryWithRetry(ctx, stmt)
}

// queryWithRetry runs the statement; on a transient failure it reconnects
// once and retries once, then surfaces the failure. Retries are bounded by
// design: a broken database must fail fast, not loop.
func (s *Store) queryWithRetry(ctx context.Context, stmt string, args ...any) ([]map[string]any, error) {
	rows, err := s.runQuery(ctx, stmt, args...)
	if err == nil {
		return rows, nil
	}

	s.logger.Warn("query failed, reconnecting once", "error", err)
	if rerr := s.reconnect(); rerr != nil {
		return nil, arberr.Wrap(err, arberr.CodeStoreTransient, "database: query failed and reconnect failed")
	}

	rows, err = s.runQuery(ctx, stmt, args...)
	if err != nil {
		return nil, arberr.Wrap(err, arberr.CodeStoreTransient, "database: query failed after reconnect")
	}
	return rows, nil
}

func (s *Store) reconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		_ = s.db.Close()
		s.db = nil
	}
	db, err := connect(s.dsn)
	if err != nil {
		return err
	}
	s.db = db
	return nil
}

func (s *Store) handle() (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, arberr.New(arberr.CodeStoreUnavailable, "database: store is closed")
	}
	return s.db, nil
}

func (s *Store) runQuery(ctx context.Context, stmt string, args ...any) ([]map[string]any, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, arberr.Wrap(err, arberr.CodeStoreQueryFailure, "database: executing query")
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, arberr.Wrap(err, arberr.CodeStoreQueryFailure, "database: reading columns")
	}

	var out []map[string]any
	for rows.Next() && len(out) < maxRows {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, arberr.Wrap(err, arberr.CodeStoreQueryFailure, "database: scanning row")
		}

		record := make(map[string]any, len(cols))
		for i, col := range cols {
			v := values[i]
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			record[col] = v
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, arberr.Wrap(err, arberr.CodeStoreQueryFailure, "database: iterating rows")
	}
	return out, nil
}

// FormatRows renders query results as an aligned plain-text table for the
// degraded (no-LLM) summarization path.
func FormatRows(rows []map[string]any) string {
	if len(rows) == 0 {
		return "(no rows)"
	}

	cols := make([]string, 0, len(rows[0]))
	for c := range rows[0] {
		cols = append(cols, c)
	}
	sort.Strings(cols)

	var sb strings.Builder
	sb.WriteString(strings.Join(cols, " | "))
	sb.WriteString("\n")
	for _, row := range rows {
		vals := make([]string, len(cols))
		for i, c := range cols {
			vals[i] = fmt.Sprintf("%v", row[c])
		}
		sb.WriteString(strings.Join(vals, " | "))
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}
