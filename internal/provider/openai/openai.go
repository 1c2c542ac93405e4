// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arbiter Contributors

// Package openai implements provider.Completer and provider.Embedder on
// the OpenAI API. A configurable base URL makes it work against any
// OpenAI-compatible endpoint (Groq, Azure, local gateways).
package openai

import (
	"context"
	"strings"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/arbiter-ai/arbiter/internal/provider"
	arberr "github.com/arbiter-ai/arbiter/pkg/errors"
)

const (
	// DefaultModel is used when the config does not name a chat model.
	DefaultModel = "gpt-4.1-mini"

	// DefaultEmbeddingModel supports requesting reduced dimensions,
	// which keeps the index at D=384 like the reference deployment.
	DefaultEmbeddingModel = "text-embedding-3-small"

	// DefaultEmbeddingDimension matches the index dimension the rest of
	// the system is built around.
	DefaultEmbeddingDimension = 384
)

// Config holds OpenAI client configuration.
type Config struct {
	APIKey             string
	BaseURL            string // optional, any OpenAI-compatible endpoint
	Model              string
	EmbeddingModel     string
	EmbeddingDimension int
}

// Client implements provider.Completer and provider.Embedder.
type Client struct {
	client openaisdk.Client
	cfg    Config
}

var (
	_ provider.Completer = (*Client)(nil)
	_ provider.Embedder  = (*Client)(nil)
)

// New creates an OpenAI client. The API key is required.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, arberr.New(arberr.CodeConfigMissingCredential, "openai: missing api key")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = DefaultEmbeddingModel
	}
	if cfg.EmbeddingDimension <= 0 {
		cfg.EmbeddingDimension = DefaultEmbeddingDimension
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Client{client: openaisdk.NewClient(opts...), cfg: cfg}, nil
}

func (c *Client) Name() string { return "openai" }

func (c *Client) Dimension() int { return c.cfg.EmbeddingDimension }

// Complete performs a non-streaming chat completion and returns the text
// of the first choice.
func (c *Client) Complete(ctx context.Context, req provider.CompletionRequest) (string, error) {
	var msgs []openaisdk.ChatCompletionMessageParamUnion
	if req.SystemPrompt != "" {
		msgs = append(msgs, openaisdk.SystemMessage(req.SystemPrompt))
	}
	msgs = append(msgs, openaisdk.UserMessage(req.Prompt))

	params := openaisdk.ChatCompletionNewParams{
		Model:    shared.ChatModel(c.cfg.Model),
		Messages: msgs,
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = param.NewOpt(int64(req.MaxTokens))
	}
	if req.Temperature > 0 {
		params.Temperature = param.NewOpt(req.Temperature)
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", arberr.Wrap(err, arberr.CodeProviderUpstreamFailure, "openai: chat completion",
			arberr.Field("model", c.cfg.Model))
	}
	if len(resp.Choices) == 0 {
		return "", arberr.New(arberr.CodeProviderUpstreamFailure, "openai: empty completion response")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Embed returns the embedding vector for a single text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, arberr.New(arberr.CodeProviderRequestInvalid, "openai: cannot embed empty text")
	}

	params := openaisdk.EmbeddingNewParams{
		Model: openaisdk.EmbeddingModel(c.cfg.EmbeddingModel),
		Input: openaisdk.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: []string{text},
		},
		Dimensions: param.NewOpt(int64(c.cfg.EmbeddingDimension)),
	}

	resp, err := c.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, arberr.Wrap(err, arberr.CodeProviderUpstreamFailure, "openai: embedding",
			arberr.Field("model", c.cfg.EmbeddingModel))
	}
	if len(resp.Data) == 0 {
		return nil, arberr.New(arberr.CodeProviderUpstreamFailure, "openai: empty embedding response")
	}

	raw := resp.Data[0].Embedding
	vec := make([]float32, len(raw))
	for i, v := range raw {
		vec[i] = float32(v)
	}
	return vec, nil
}
