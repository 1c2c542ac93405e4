// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arbiter Contributors

// Package anthropic implements provider.Completer on the Anthropic
// Messages API. Anthropic has no embeddings endpoint, so deployments
// using this completer pair it with the openai embedder.
package anthropic

import (
	"context"
	"strings"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/arbiter-ai/arbiter/internal/provider"
	arberr "github.com/arbiter-ai/arbiter/pkg/errors"
)

// DefaultModel is used when the config does not name a model.
const DefaultModel = "claude-haiku-4-5"

const defaultMaxTokens = 2048

// Config holds Anthropic client configuration.
type Config struct {
	APIKey  string
	BaseURL string // optional, useful for testing against a mock server
	Model   string
}

// Client implements provider.Completer.
type Client struct {
	client anthropicsdk.Client
	cfg    Config
}

var _ provider.Completer = (*Client)(nil)

// New creates an Anthropic client. The API key is required.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, arberr.New(arberr.CodeConfigMissingCredential, "anthropic: missing api key")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Client{client: anthropicsdk.NewClient(opts...), cfg: cfg}, nil
}

func (c *Client) Name() string { return "anthropic" }

// Complete performs a non-streaming message request and concatenates the
// text blocks of the response.
func (c *Client) Complete(ctx context.Context, req provider.CompletionRequest) (string, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	params := anthropicsdk.MessageNewParams{
		Model:     anthropicsdk.Model(c.cfg.Model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropicsdk.MessageParam{
			anthropicsdk.NewUserMessage(anthropicsdk.NewTextBlock(req.Prompt)),
		},
	}
	if req.SystemPrompt != "" {
		params.System = []anthropicsdk.TextBlockParam{{Text: req.SystemPrompt}}
	}
	if req.Temperature > 0 {
		params.Temperature = anthropicsdk.Float(req.Temperature)
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", arberr.Wrap(err, arberr.CodeProviderUpstreamFailure, "anthropic: message request",
			arberr.Field("model", c.cfg.Model))
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", arberr.New(arberr.CodeProviderUpstreamFailure, "anthropic: response contained no text blocks")
	}

	return strings.TrimSpace(sb.String()), nil
}
