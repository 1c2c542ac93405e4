// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arbiter Contributors

// Package chunk splits raw document text into bounded-size retrievable
// units. Splitting is a pure function of its input: same text, same chunks.
package chunk

import "strings"

// DefaultTargetSize is the soft upper bound, in bytes, for a chunk.
const DefaultTargetSize = 500

// Chunk is a bounded-size slice of a document used as the unit of retrieval.
type Chunk struct {
	Text          string
	SourceDocID   string
	SequenceIndex int
	SizeBytes     int
}

// Splitter accumulates sentences into chunks of roughly TargetSize bytes.
type Splitter struct {
	TargetSize int
}

// NewSplitter returns a Splitter with the given target size; values <= 0
// fall back to DefaultTargetSize.
func NewSplitter(targetSize int) *Splitter {
	if targetSize <= 0 {
		targetSize = DefaultTargetSize
	}
	return &Splitter{TargetSize: targetSize}
}

// Split breaks text into chunks on ". " sentence boundaries, greedily
// filling each chunk up to TargetSize. A single sentence longer than
// TargetSize is kept whole rather than truncated, so chunks may exceed
// the target by one sentence. Empty or whitespace-only input yields nil.
func (s *Splitter) Split(text, sourceDocID string) []Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	sentences := strings.Split(text, ". ")

	var chunks []Chunk
	var buf strings.Builder

	flush := func() {
		t := strings.TrimSpace(buf.String())
		if t == "" {
			return
		}
		chunks = append(chunks, Chunk{
			Text:          t,
			SourceDocID:   sourceDocID,
			SequenceIndex: len(chunks),
			SizeBytes:     len(t),
		})
		buf.Reset()
	}

	for i, sentence := range sentences {
		if sentence == "" {
			continue
		}
		// Restore the delimiter consumed by the split. The final
		// sentence keeps whatever terminator it already had.
		if i < len(sentences)-1 {
			sentence += ". "
		}
		if buf.Len() > 0 && buf.Len()+len(sentence) >= s.TargetSize {
			flush()
		}
		buf.WriteString(sentence)
	}
	flush()

	return chunks
}
