// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arbiter Contributors

package database

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	arberr "github.com/arbiter-ai/arbiter/pkg/errors"
)

// ImportCSV reads a CSV stream, infers a column type per header from the
// observed values, creates a table named after the file, and inserts every
// row. It returns the sanitized table name and the row count.
func (s *Store) ImportCSV(ctx context.Context, r io.Reader, filename string) (string, int, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return "", 0, arberr.Wrap(err, arberr.CodeStoreImportFailure, "database: parsing csv")
	}
	if len(records) == 0 {
		return "", 0, arberr.New(arberr.CodeStoreImportFailure, "database: csv file is empty")
	}
	if len(records) == 1 {
		return "", 0, arberr.New(arberr.CodeStoreImportFailure, "database: csv file contains no data rows")
	}

	header := records[0]
	dataRows := records[1:]
	table := TableName(filename)

	cols := make([]string, len(header))
	for i, h := range header {
		name := sanitizeIdent(h)
		if name == "" {
			name = fmt.Sprintf("col_%d", i)
		}
		cols[i] = name
	}

	types := inferColumnTypes(header, dataRows)

	colDefs := make([]string, len(cols))
	for i := range cols {
		colDefs[i] = fmt.Sprintf("%q %s", cols[i], types[i])
	}
	createStmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %q (%s)`, table, strings.Join(colDefs, ", "))

	db, err := s.handle()
	if err != nil {
		return "", 0, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return "", 0, arberr.Wrap(err, arberr.CodeStoreImportFailure, "database: beginning import transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, createStmt); err != nil {
		return "", 0, arberr.Wrap(err, arberr.CodeStoreImportFailure, "database: creating table",
			arberr.Field("table", table))
	}

	placeholders := "(" + strings.TrimRight(strings.Repeat("?,", len(cols)), ",") + ")"
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = fmt.Sprintf("%q", c)
	}
	insertStmt := fmt.Sprintf(`INSERT INTO %q (%s) VALUES %s`, table, strings.Join(quoted, ", "), placeholders)

	stmt, err := tx.PrepareContext(ctx, insertStmt)
	if err != nil {
		return "", 0, arberr.Wrap(err, arberr.CodeStoreImportFailure, "database: preparing insert")
	}
	defer func() { _ = stmt.Close() }()

	for n, row := range dataRows {
		args := make([]any, len(cols))
		for i := range cols {
			if i < len(row) {
				args[i] = convertValue(row[i], types[i])
			}
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return "", 0, arberr.Wrap(err, arberr.CodeStoreImportFailure, "database: inserting row",
				arberr.Field("row", n+1))
		}
	}

	if err := tx.Commit(); err != nil {
		return "", 0, arberr.Wrap(err, arberr.CodeStoreImportFailure, "database: committing import")
	}

	s.logger.Info("csv imported", "table", table, "rows", len(dataRows))
	return table, len(dataRows), nil
}

// TableName derives a safe table name from a filename: lowercase, spaces
// and hyphens become underscores, everything else non-alphanumeric is
// stripped, and a leading non-letter gets a "table_" prefix.
func TableName(filename string) string {
	name := strings.ToLower(filename)
	name = strings.TrimSuffix(name, ".csv")
	name = strings.ReplaceAll(name, " ", "_")
	name = strings.ReplaceAll(name, "-", "_")
	name = sanitizeIdent(name)

	if name == "" || !unicode.IsLetter(rune(name[0])) {
		name = "table_" + name
	}
	return name
}

func sanitizeIdent(s string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// inferColumnTypes picks INTEGER, REAL, or TEXT per column. A column is
// only numeric if every non-empty value parses as that type.
func inferColumnTypes(header []string, rows [][]string) []string {
	types := make([]string, len(header))
	for col := range header {
		allInt, allReal, seen := true, true, false
		for _, row := range rows {
			if col >= len(row) || strings.TrimSpace(row[col]) == "" {
				continue
			}
			seen = true
			v := strings.TrimSpace(row[col])
			if _, err := strconv.ParseInt(v, 10, 64); err != nil {
				allInt = false
			}
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				allReal = false
			}
		}
		switch {
		case seen && allInt:
			types[col] = "INTEGER"
		case seen && allReal:
			types[col] = "REAL"
		default:
			types[col] = "TEXT"
		}
	}
	return types
}

func convertValue(raw, sqlType string) any {
	v := strings.TrimSpace(raw)
	if v == "" {
		return nil
	}
	switch sqlType {
	case "INTEGER":
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	case "REAL":
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return v
}
