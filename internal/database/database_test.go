// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arbiter Contributors

package database_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/arbiter-ai/arbiter/internal/database"
	arberr "github.com/arbiter-ai/arbiter/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *database.Store {
	t.Helper()
	s, err := database.Open(filepath.Join(t.TempDir(), "arbiter.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedUsers(t *testing.T, s *database.Store) {
	t.Helper()
	ctx := context.Background()
	csvData := "name,age\nalice,34\nbob,28\ncarol,45\n"
	table, rows, err := s.ImportCSV(ctx, strings.NewReader(csvData), "users.csv")
	require.NoError(t, err)
	require.Equal(t, "users", table)
	require.Equal(t, 3, rows)
}

func TestStore_QueryReadOnly(t *testing.T) {
	s := openStore(t)
	seedUsers(t, s)
	ctx := context.Background()

	rows, err := s.Query(ctx, "SELECT COUNT(*) AS n FROM users")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(3), rows[0]["n"])
}

func TestStore_QueryRejectsMutations(t *testing.T) {
	s := openStore(t)
	seedUsers(t, s)
	ctx := context.Background()

	for _, stmt := range []string{
		"DROP TABLE users",
		"DELETE FROM users",
		"INSERT INTO users (name, age) VALUES ('mallory', 1)",
		"UPDATE users SET age = 0",
	} {
		_, err := s.Query(ctx, stmt)
		require.Error(t, err, stmt)
		assert.True(t, arberr.HasCode(err, arberr.CodeAgentValidationRejected), stmt)
	}

	// The table is untouched.
	rows, err := s.Query(ctx, "SELECT COUNT(*) AS n FROM users")
	require.NoError(t, err)
	assert.Equal(t, int64(3), rows[0]["n"])
}

func TestStore_Describe(t *testing.T) {
	s := openStore(t)
	seedUsers(t, s)

	summary, err := s.Describe(context.Background())
	require.NoError(t, err)
	assert.Contains(t, summary, "table users")
	assert.Contains(t, summary, "name TEXT")
	assert.Contains(t, summary, "age INTEGER")
	assert.Contains(t, summary, "3 rows")
}

func TestStore_DescribeEmpty(t *testing.T) {
	s := openStore(t)

	summary, err := s.Describe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "No tables found", summary)
}

func TestImportCSV_TypeInference(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	csvData := "label,price,qty\nwidget,9.99,4\ngadget,12.50,7\n"
	table, rows, err := s.ImportCSV(ctx, strings.NewReader(csvData), "Q3 Sales-Report.csv")
	require.NoError(t, err)
	assert.Equal(t, "q3_sales_report", table)
	assert.Equal(t, 2, rows)

	got, err := s.Query(ctx, "SELECT label, price, qty FROM q3_sales_report ORDER BY qty")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "widget", got[0]["label"])
	assert.Equal(t, 9.99, got[0]["price"])
	assert.Equal(t, int64(4), got[0]["qty"])
}

func TestImportCSV_Empty(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	_, _, err := s.ImportCSV(ctx, strings.NewReader(""), "empty.csv")
	require.Error(t, err)
	assert.True(t, arberr.HasCode(err, arberr.CodeStoreImportFailure))

	_, _, err = s.ImportCSV(ctx, strings.NewReader("only,header\n"), "header.csv")
	require.Error(t, err)
	assert.True(t, arberr.HasCode(err, arberr.CodeStoreImportFailure))
}

func TestTableName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"users.csv", "users"},
		{"Q3 Sales-Report.csv", "q3_sales_report"},
		{"2024data.csv", "table_2024data"},
		{"***.csv", "table_"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, database.TableName(tt.in), tt.in)
	}
}

func TestFormatRows(t *testing.T) {
	out := database.FormatRows([]map[string]any{
		{"name": "alice", "age": int64(34)},
		{"name": "bob", "age": int64(28)},
	})
	assert.Contains(t, out, "age | name")
	assert.Contains(t, out, "34 | alice")

	assert.Equal(t, "(no rows)", database.FormatRows(nil))
}
