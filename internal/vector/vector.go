// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arbiter Contributors

// Package vector provides the persistent similarity index backing the
// retrieval engine. Vectors are unit-normalized at ingestion time, so
// inner product equals cosine similarity.
package vector

import "math"

// Metadata is the free-form record attached to each stored vector.
type Metadata map[string]any

// Result is a single nearest-neighbor match.
type Result struct {
	Score    float64
	Metadata Metadata
}

// Index is a persistent, append-only store of unit vectors plus metadata.
// Implementations must keep vectors and metadata in lockstep: position in
// the sequence is the record's identity.
type Index interface {
	// Add appends a vector and its metadata. It fails with a
	// CodeIndexDimensionMismatch error if len(vec) != Dimension().
	// On success the record is durable: a restart must not lose it.
	Add(vec []float32, meta Metadata) error

	// Search returns up to k highest-inner-product matches, best first.
	// Ties are broken by insertion order (earlier record wins). An empty
	// index yields an empty result and no error.
	Search(query []float32, k int) ([]Result, error)

	Size() int
	Dimension() int
	Close() error
}

// Normalize scales v to unit L2 norm in place and returns it. A zero
// vector is returned unchanged.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	inv := 1 / math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) * inv)
	}
	return v
}

// Dot returns the inner product of two equal-length vectors.
func Dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
