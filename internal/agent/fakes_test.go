// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arbiter Contributors

package agent_test

import (
	"context"
	"errors"
	"sync"

	"github.com/arbiter-ai/arbiter/internal/provider"
)

// fakeCompleter returns scripted replies in order and errors once they
// run out.
type fakeCompleter struct {
	mu      sync.Mutex
	replies []string
	err     error
	calls   []provider.CompletionRequest
}

func (f *fakeCompleter) Name() string { return "fake" }

func (f *fakeCompleter) Complete(_ context.Context, req provider.CompletionRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	if f.err != nil {
		return "", f.err
	}
	if len(f.replies) == 0 {
		return "", errors.New("no scripted reply")
	}
	reply := f.replies[0]
	f.replies = f.replies[1:]
	return reply, nil
}

func (f *fakeCompleter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// stubEmbedder hashes characters into buckets so identical text embeds
// identically and unrelated text lands elsewhere.
type stubEmbedder struct {
	dim int
	err error
}

func (s *stubEmbedder) Name() string   { return "stub" }
func (s *stubEmbedder) Dimension() int { return s.dim }

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	v := make([]float32, s.dim)
	for _, r := range text {
		v[int(r)%s.dim]++
	}
	return v, nil
}
