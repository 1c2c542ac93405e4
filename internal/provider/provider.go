// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arbiter Contributors

// Package provider defines the interfaces Arbiter uses to talk to
// language-model and embedding backends. Implementations live in
// subpackages and are constructed once at process startup; callers
// receive them by injection and must treat every call as fallible.
package provider

import "context"

// CompletionRequest is a single-shot text completion request.
type CompletionRequest struct {
	SystemPrompt string
	Prompt       string
	Temperature  float64
	MaxTokens    int
}

// Completer produces a free-form text completion for a prompt.
type Completer interface {
	Name() string
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Embedder converts text into a fixed-dimension vector. Vectors returned
// by Embed are not normalized; normalization is the retrieval engine's job.
type Embedder interface {
	Name() string
	Dimension() int
	Embed(ctx context.Context, text string) ([]float32, error)
}
