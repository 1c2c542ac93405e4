// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arbiter Contributors

package chunk_test

import (
	"strings"
	"testing"

	"github.com/arbiter-ai/arbiter/internal/chunk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit_Empty(t *testing.T) {
	s := chunk.NewSplitter(500)

	assert.Nil(t, s.Split("", "doc"))
	assert.Nil(t, s.Split("   \n\t ", "doc"))
}

func TestSplit_SingleShortSentence(t *testing.T) {
	s := chunk.NewSplitter(500)

	chunks := s.Split("The quick brown fox jumps over the lazy dog.", "doc")
	require.Len(t, chunks, 1)
	assert.Equal(t, "The quick brown fox jumps over the lazy dog.", chunks[0].Text)
	assert.Equal(t, "doc", chunks[0].SourceDocID)
	assert.Equal(t, 0, chunks[0].SequenceIndex)
	assert.Equal(t, len(chunks[0].Text), chunks[0].SizeBytes)
}

func TestSplit_OversizedSentenceKeptWhole(t *testing.T) {
	s := chunk.NewSplitter(50)

	long := strings.Repeat("word ", 30) + "end."
	chunks := s.Split(long, "doc")
	require.Len(t, chunks, 1)
	assert.Equal(t, strings.TrimSpace(long), chunks[0].Text)
	assert.Greater(t, chunks[0].SizeBytes, 50)
}

func TestSplit_LongParagraphProducesMultipleBoundedChunks(t *testing.T) {
	// ~1200 characters of short sentences, targetSize 500 (scenario from
	// the original vector service).
	var sb strings.Builder
	for sb.Len() < 1200 {
		sb.WriteString("This sentence talks about pricing tiers and renewal terms. ")
	}
	text := strings.TrimSpace(sb.String())

	s := chunk.NewSplitter(500)
	chunks := s.Split(text, "doc")

	require.GreaterOrEqual(t, len(chunks), 2)
	for _, c := range chunks {
		assert.LessOrEqual(t, c.SizeBytes, 550, "chunk %d exceeds soft bound", c.SequenceIndex)
	}

	// Sequence indexes are dense and ordered.
	for i, c := range chunks {
		assert.Equal(t, i, c.SequenceIndex)
	}

	// Concatenation reconstructs the original content in order.
	var parts []string
	for _, c := range chunks {
		parts = append(parts, c.Text)
	}
	assert.Equal(t, text, strings.Join(parts, " "))
}

func TestSplit_Deterministic(t *testing.T) {
	s := chunk.NewSplitter(100)
	text := "One sentence here. Another follows it. A third closes the set."

	a := s.Split(text, "doc")
	b := s.Split(text, "doc")
	assert.Equal(t, a, b)
}

func TestNewSplitter_DefaultsTargetSize(t *testing.T) {
	assert.Equal(t, chunk.DefaultTargetSize, chunk.NewSplitter(0).TargetSize)
	assert.Equal(t, chunk.DefaultTargetSize, chunk.NewSplitter(-5).TargetSize)
	assert.Equal(t, 200, chunk.NewSplitter(200).TargetSize)
}
