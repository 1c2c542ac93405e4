// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arbiter Contributors

package vector_test

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/arbiter-ai/arbiter/internal/vector"
	arberr "github.com/arbiter-ai/arbiter/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlat_AddAndSearch(t *testing.T) {
	idx, err := vector.NewFlat(3)
	require.NoError(t, err)

	require.NoError(t, idx.Add([]float32{1, 0, 0}, vector.Metadata{"text": "alpha"}))
	require.NoError(t, idx.Add([]float32{0, 1, 0}, vector.Metadata{"text": "beta"}))
	require.NoError(t, idx.Add([]float32{0, 0, 1}, vector.Metadata{"text": "gamma"}))

	results, err := idx.Search([]float32{0, 1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "beta", results[0].Metadata["text"])
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestFlat_SearchResultsDoNotAliasStoredMetadata(t *testing.T) {
	idx, err := vector.NewFlat(2)
	require.NoError(t, err)
	require.NoError(t, idx.Add([]float32{1, 0}, vector.Metadata{"text": "original"}))

	results, err := idx.Search([]float32{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)

	results[0].Metadata["text"] = "mutated"

	again, err := idx.Search([]float32{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.Equal(t, "original", again[0].Metadata["text"])
}

func TestFlat_EmptyIndexSearch(t *testing.T) {
	idx, err := vector.NewFlat(4)
	require.NoError(t, err)

	results, err := idx.Search([]float32{1, 0, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestFlat_DimensionMismatch(t *testing.T) {
	idx, err := vector.NewFlat(4)
	require.NoError(t, err)

	err = idx.Add([]float32{1, 0}, nil)
	require.Error(t, err)
	assert.True(t, arberr.HasCode(err, arberr.CodeIndexDimensionMismatch))
	assert.Equal(t, 0, idx.Size())

	_, err = idx.Search([]float32{1, 0}, 3)
	require.Error(t, err)
	assert.True(t, arberr.HasCode(err, arberr.CodeIndexDimensionMismatch))
}

func TestFlat_TieBreakByInsertionOrder(t *testing.T) {
	idx, err := vector.NewFlat(2)
	require.NoError(t, err)

	// Two identical vectors: the earlier-added record must win the tie.
	require.NoError(t, idx.Add([]float32{1, 0}, vector.Metadata{"pos": "first"}))
	require.NoError(t, idx.Add([]float32{1, 0}, vector.Metadata{"pos": "second"}))

	results, err := idx.Search([]float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "first", results[0].Metadata["pos"])
	assert.Equal(t, "second", results[1].Metadata["pos"])
}

func TestFlat_KLargerThanSize(t *testing.T) {
	idx, err := vector.NewFlat(2)
	require.NoError(t, err)
	require.NoError(t, idx.Add([]float32{1, 0}, nil))

	results, err := idx.Search([]float32{1, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestOpenFlat_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.flat")

	idx, err := vector.OpenFlat(path, 3)
	require.NoError(t, err)
	require.NoError(t, idx.Add([]float32{1, 0, 0}, vector.Metadata{"text": "persisted", "seq": float64(0)}))
	require.NoError(t, idx.Add([]float32{0, 1, 0}, vector.Metadata{"text": "also persisted", "seq": float64(1)}))
	require.NoError(t, idx.Close())

	reopened, err := vector.OpenFlat(path, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, reopened.Size())

	results, err := reopened.Search([]float32{1, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "persisted", results[0].Metadata["text"])
	assert.Equal(t, float64(0), results[0].Metadata["seq"])
}

func TestOpenFlat_DimensionChangeRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.flat")

	idx, err := vector.OpenFlat(path, 3)
	require.NoError(t, err)
	require.NoError(t, idx.Add([]float32{1, 0, 0}, nil))

	_, err = vector.OpenFlat(path, 8)
	require.Error(t, err)
	assert.True(t, arberr.HasCode(err, arberr.CodeIndexDimensionMismatch))
}

func TestNormalize(t *testing.T) {
	v := vector.Normalize([]float32{3, 4})
	assert.InDelta(t, 0.6, float64(v[0]), 1e-6)
	assert.InDelta(t, 0.8, float64(v[1]), 1e-6)

	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-5)

	zero := vector.Normalize([]float32{0, 0})
	assert.Equal(t, []float32{0, 0}, zero)
}
