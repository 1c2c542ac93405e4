// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arbiter Contributors

// Package sqlitevec implements vector.Index on SQLite with the sqlite-vec
// extension. Each record occupies one row in a vec0 virtual table plus one
// row in a companion metadata table, written in a single transaction so
// the two can never diverge.
package sqlitevec

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/arbiter-ai/arbiter/internal/vector"
	arberr "github.com/arbiter-ai/arbiter/pkg/errors"
)

func init() {
	sqlite_vec.Auto()
}

// Compile-time interface check.
var _ vector.Index = (*Index)(nil)

// Index is an append-only sqlite-vec backed vector index. Row position
// (the pos column) is the record's identity and insertion order. Writes
// are serialized by a mutex; the next position is derived from the row
// count inside the write transaction.
type Index struct {
	mu        sync.Mutex
	db        *sql.DB
	dimension int
}

// Open opens (or creates) the index database at dbPath with the given
// fixed dimension.
func Open(dbPath string, dimension int) (*Index, error) {
	if dimension <= 0 {
		return nil, arberr.Errorf(arberr.CodeConfigValidateInvalidValue, "sqlitevec: invalid dimension %d", dimension)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, arberr.Wrap(err, arberr.CodeIndexLoadFailure, "sqlitevec: opening database")
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, arberr.Wrap(err, arberr.CodeIndexLoadFailure, "sqlitevec: pinging database")
	}

	if err := migrate(db, dimension); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Index{db: db, dimension: dimension}, nil
}

func migrate(db *sql.DB, dimension int) error {
	vecDDL := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS embeddings USING vec0(pos INTEGER PRIMARY KEY, embedding float[%d] distance_metric=cosine)`,
		dimension,
	)
	if _, err := db.Exec(vecDDL); err != nil {
		return arberr.Wrap(err, arberr.CodeIndexLoadFailure, "sqlitevec: creating embeddings table")
	}

	const metaDDL = `
CREATE TABLE IF NOT EXISTS embedding_metadata (
	pos      INTEGER PRIMARY KEY,
	metadata TEXT NOT NULL DEFAULT '{}'
)`
	if _, err := db.Exec(metaDDL); err != nil {
		return arberr.Wrap(err, arberr.CodeIndexLoadFailure, "sqlitevec: creating metadata table")
	}
	return nil
}

func (x *Index) Dimension() int { return x.dimension }

func (x *Index) Size() int {
	var n int
	if err := x.db.QueryRow(`SELECT COUNT(*) FROM embedding_metadata`).Scan(&n); err != nil {
		return 0
	}
	return n
}

// Add appends the record at the next position. Vector and metadata rows
// commit together; a crash leaves either both or neither.
func (x *Index) Add(vec []float32, meta vector.Metadata) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if len(vec) != x.dimension {
		return arberr.New(arberr.CodeIndexDimensionMismatch, "sqlitevec: wrong vector length",
			arberr.Field("expected", x.dimension), arberr.Field("got", len(vec)))
	}

	blob, err := sqlite_vec.SerializeFloat32(vec)
	if err != nil {
		return arberr.Wrap(err, arberr.CodeIndexPersistFailure, "sqlitevec: serializing embedding")
	}

	metaJSON := []byte("{}")
	if len(meta) > 0 {
		metaJSON, err = json.Marshal(meta)
		if err != nil {
			return arberr.Wrap(err, arberr.CodeIndexPersistFailure, "sqlitevec: marshalling metadata")
		}
	}

	tx, err := x.db.Begin()
	if err != nil {
		return arberr.Wrap(err, arberr.CodeIndexPersistFailure, "sqlitevec: beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	var next int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM embedding_metadata`).Scan(&next); err != nil {
		return arberr.Wrap(err, arberr.CodeIndexPersistFailure, "sqlitevec: counting records")
	}

	if _, err := tx.Exec(`INSERT INTO embeddings(pos, embedding) VALUES (?, ?)`, next, blob); err != nil {
		return arberr.Wrap(err, arberr.CodeIndexPersistFailure, "sqlitevec: inserting embedding")
	}
	if _, err := tx.Exec(`INSERT INTO embedding_metadata(pos, metadata) VALUES (?, ?)`, next, string(metaJSON)); err != nil {
		return arberr.Wrap(err, arberr.CodeIndexPersistFailure, "sqlitevec: inserting metadata")
	}

	if err := tx.Commit(); err != nil {
		return arberr.Wrap(err, arberr.CodeIndexPersistFailure, "sqlitevec: committing add")
	}
	return nil
}

// Search runs a KNN query. vec0 reports cosine distance, converted here to
// similarity (1 - distance) so scores match the flat index. Equal scores
// resolve to the lower position, i.e. the earlier insertion.
func (x *Index) Search(query []float32, k int) ([]vector.Result, error) {
	if len(query) != x.dimension {
		return nil, arberr.New(arberr.CodeIndexDimensionMismatch, "sqlitevec: wrong query length",
			arberr.Field("expected", x.dimension), arberr.Field("got", len(query)))
	}
	if k <= 0 || x.Size() == 0 {
		return []vector.Result{}, nil
	}

	blob, err := sqlite_vec.SerializeFloat32(query)
	if err != nil {
		return nil, arberr.Wrap(err, arberr.CodeIndexPersistFailure, "sqlitevec: serializing query vector")
	}

	const q = `SELECT e.pos, e.distance, COALESCE(m.metadata, '{}')
FROM embeddings e
LEFT JOIN embedding_metadata m ON m.pos = e.pos
WHERE e.embedding MATCH ? AND k = ?
ORDER BY e.distance, e.pos`

	rows, err := x.db.Query(q, blob, k)
	if err != nil {
		return nil, arberr.Wrap(err, arberr.CodeStoreQueryFailure, "sqlitevec: searching embeddings")
	}
	defer func() { _ = rows.Close() }()

	var results []vector.Result
	for rows.Next() {
		var pos int
		var distance float64
		var metaStr string
		if err := rows.Scan(&pos, &distance, &metaStr); err != nil {
			return nil, arberr.Wrap(err, arberr.CodeStoreQueryFailure, "sqlitevec: scanning result")
		}

		var meta vector.Metadata
		if metaStr != "" && metaStr != "{}" {
			if err := json.Unmarshal([]byte(metaStr), &meta); err != nil {
				return nil, arberr.Wrap(err, arberr.CodeIndexCorrupt, "sqlitevec: decoding metadata",
					arberr.Field("pos", pos))
			}
		}

		results = append(results, vector.Result{Score: 1 - distance, Metadata: meta})
	}
	if err := rows.Err(); err != nil {
		return nil, arberr.Wrap(err, arberr.CodeStoreQueryFailure, "sqlitevec: iterating results")
	}

	if results == nil {
		results = []vector.Result{}
	}
	return results, nil
}

func (x *Index) Close() error {
	return x.db.Close()
}
