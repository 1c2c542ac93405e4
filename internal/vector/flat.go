// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arbiter Contributors

package vector

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"

	arberr "github.com/arbiter-ai/arbiter/pkg/errors"
)

// Flat is an exact inner-product index over parallel vector and metadata
// slices, persisted write-through to a single snapshot file. Reads may run
// concurrently; writes are serialized and the snapshot is replaced
// atomically (write to temp file, rename), so a crash loses at most the
// in-flight Add.
type Flat struct {
	mu        sync.RWMutex
	dimension int
	path      string // empty means in-memory only
	vectors   [][]float32
	meta      []Metadata
}

var _ Index = (*Flat)(nil)

// snapshot is the on-disk form. Metadata is stored as JSON blobs so the
// gob stream never carries interface-typed values.
type snapshot struct {
	Dimension int
	Vectors   [][]float32
	Meta      [][]byte
}

// NewFlat creates an in-memory flat index of the given dimension.
func NewFlat(dimension int) (*Flat, error) {
	if dimension <= 0 {
		return nil, arberr.Errorf(arberr.CodeConfigValidateInvalidValue, "vector: invalid dimension %d", dimension)
	}
	return &Flat{dimension: dimension}, nil
}

// OpenFlat creates a flat index persisted at path, loading any existing
// snapshot. The snapshot's dimension must match; changing D requires a
// full rebuild.
func OpenFlat(path string, dimension int) (*Flat, error) {
	idx, err := NewFlat(dimension)
	if err != nil {
		return nil, err
	}
	idx.path = path

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return idx, nil
	}
	if err != nil {
		return nil, arberr.Wrap(err, arberr.CodeIndexLoadFailure, "vector: reading snapshot", arberr.Field("path", path))
	}

	var snap snapshot
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&snap); err != nil {
		return nil, arberr.Wrap(err, arberr.CodeIndexLoadFailure, "vector: decoding snapshot", arberr.Field("path", path))
	}
	if snap.Dimension != dimension {
		return nil, arberr.New(arberr.CodeIndexDimensionMismatch, "vector: snapshot dimension differs from configured dimension",
			arberr.Field("snapshot", snap.Dimension), arberr.Field("configured", dimension))
	}
	if len(snap.Vectors) != len(snap.Meta) {
		return nil, arberr.New(arberr.CodeIndexCorrupt, "vector: snapshot vectors and metadata out of lockstep",
			arberr.Field("vectors", len(snap.Vectors)), arberr.Field("metadata", len(snap.Meta)))
	}

	idx.vectors = snap.Vectors
	idx.meta = make([]Metadata, len(snap.Meta))
	for i, blob := range snap.Meta {
		var m Metadata
		if err := json.Unmarshal(blob, &m); err != nil {
			return nil, arberr.Wrap(err, arberr.CodeIndexCorrupt, "vector: decoding record metadata", arberr.Field("record", i))
		}
		idx.meta[i] = m
	}

	return idx, nil
}

func (f *Flat) Dimension() int { return f.dimension }

func (f *Flat) Size() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.vectors)
}

// Add appends the record and persists the index before returning, so an
// acknowledged Add survives a restart.
func (f *Flat) Add(vec []float32, meta Metadata) error {
	if len(vec) != f.dimension {
		return arberr.New(arberr.CodeIndexDimensionMismatch, "vector: wrong vector length",
			arberr.Field("expected", f.dimension), arberr.Field("got", len(vec)))
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	owned := make([]float32, len(vec))
	copy(owned, vec)
	f.vectors = append(f.vectors, owned)
	f.meta = append(f.meta, meta)

	if err := f.persistLocked(); err != nil {
		// Roll back so memory and disk stay consistent.
		f.vectors = f.vectors[:len(f.vectors)-1]
		f.meta = f.meta[:len(f.meta)-1]
		return err
	}
	return nil
}

// Search scans every stored vector. Results are ordered by descending
// inner product; equal scores resolve to the earlier-inserted record.
func (f *Flat) Search(query []float32, k int) ([]Result, error) {
	if len(query) != f.dimension {
		return nil, arberr.New(arberr.CodeIndexDimensionMismatch, "vector: wrong query length",
			arberr.Field("expected", f.dimension), arberr.Field("got", len(query)))
	}
	if k <= 0 {
		return []Result{}, nil
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if len(f.vectors) == 0 {
		return []Result{}, nil
	}

	type scored struct {
		pos   int
		score float64
	}
	all := make([]scored, len(f.vectors))
	for i, v := range f.vectors {
		all[i] = scored{pos: i, score: Dot(query, v)}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].score != all[j].score {
			return all[i].score > all[j].score
		}
		return all[i].pos < all[j].pos
	})

	if k > len(all) {
		k = len(all)
	}
	results := make([]Result, k)
	for i := 0; i < k; i++ {
		// Results own their metadata; callers mutating a Result cannot
		// touch the stored record.
		src := f.meta[all[i].pos]
		meta := make(Metadata, len(src))
		for key, v := range src {
			meta[key] = v
		}
		results[i] = Result{Score: all[i].score, Metadata: meta}
	}
	return results, nil
}

func (f *Flat) Close() error { return nil }

func (f *Flat) persistLocked() error {
	if f.path == "" {
		return nil
	}

	snap := snapshot{
		Dimension: f.dimension,
		Vectors:   f.vectors,
		Meta:      make([][]byte, len(f.meta)),
	}
	for i, m := range f.meta {
		blob, err := json.Marshal(m)
		if err != nil {
			return arberr.Wrap(err, arberr.CodeIndexPersistFailure, "vector: encoding record metadata", arberr.Field("record", i))
		}
		snap.Meta[i] = blob
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(snap); err != nil {
		return arberr.Wrap(err, arberr.CodeIndexPersistFailure, "vector: encoding snapshot")
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".flat-*")
	if err != nil {
		return arberr.Wrap(err, arberr.CodeIndexPersistFailure, "vector: creating temp snapshot")
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return arberr.Wrap(err, arberr.CodeIndexPersistFailure, "vector: writing snapshot")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return arberr.Wrap(err, arberr.CodeIndexPersistFailure, "vector: closing snapshot")
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		_ = os.Remove(tmpName)
		return arberr.Wrap(err, arberr.CodeIndexPersistFailure, "vector: replacing snapshot")
	}
	return nil
}
