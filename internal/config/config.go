// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arbiter Contributors

// Package config loads and validates the Arbiter configuration from a
// YAML file with environment variable overrides.
package config

import (
	"errors"
	"net"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	arberr "github.com/arbiter-ai/arbiter/pkg/errors"
)

// Config is the top-level Arbiter configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Retrieval RetrievalConfig `mapstructure:"retrieval"`
	Database  DatabaseConfig  `mapstructure:"database"`
}

// ServerConfig controls how the HTTP gateway listens.
type ServerConfig struct {
	Listen      string   `mapstructure:"listen"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// ProvidersConfig selects and configures the model backends. Completion
// names which backend answers completion requests; embeddings always come
// from the OpenAI-compatible backend.
type ProvidersConfig struct {
	Completion string          `mapstructure:"completion"`
	OpenAI     OpenAIConfig    `mapstructure:"openai"`
	Anthropic  AnthropicConfig `mapstructure:"anthropic"`
}

// OpenAIConfig holds credentials and endpoint for an OpenAI-compatible
// provider. BaseURL may point at any compatible gateway.
type OpenAIConfig struct {
	APIKey         string `mapstructure:"api_key"`
	BaseURL        string `mapstructure:"base_url"`
	Model          string `mapstructure:"model"`
	EmbeddingModel string `mapstructure:"embedding_model"`
}

// AnthropicConfig holds credentials for the Anthropic provider.
type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// RetrievalConfig controls chunking, embedding dimension, and the vector
// index backend.
type RetrievalConfig struct {
	Dimension    int    `mapstructure:"dimension"`
	ChunkSize    int    `mapstructure:"chunk_size"`
	TopK         int    `mapstructure:"top_k"`
	IndexBackend string `mapstructure:"index_backend"`
	IndexPath    string `mapstructure:"index_path"`
}

// DatabaseConfig locates the structured data store.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// Load reads configuration from the given path (or defaults) with
// environment variable overrides (prefix ARBITER_).
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.listen", "127.0.0.1:8080")
	v.SetDefault("providers.completion", "openai")
	v.SetDefault("providers.openai.model", "gpt-4.1-mini")
	v.SetDefault("providers.openai.embedding_model", "text-embedding-3-small")
	v.SetDefault("providers.anthropic.model", "claude-haiku-4-5")
	v.SetDefault("retrieval.dimension", 384)
	v.SetDefault("retrieval.chunk_size", 500)
	v.SetDefault("retrieval.top_k", 5)
	v.SetDefault("retrieval.index_backend", "flat")
	v.SetDefault("retrieval.index_path", "arbiter.index")
	v.SetDefault("database.path", "arbiter.db")

	// Environment
	v.SetEnvPrefix("ARBITER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// File
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, arberr.Errorf(arberr.CodeConfigLoadReadFailure, "reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, arberr.Errorf(arberr.CodeConfigValidateInvalidValue, "unmarshalling config: %w", err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, arberr.Errorf(arberr.CodeConfigValidateInvalidValue, "validating config: %w", errors.Join(errs...))
	}

	return &cfg, nil
}

// Validate checks the configuration for logical errors. It collects all
// issues rather than stopping at the first one.
func (c *Config) Validate() []error {
	var errs []error

	errs = append(errs, c.validateServer()...)
	errs = append(errs, c.validateProviders()...)
	errs = append(errs, c.validateRetrieval()...)

	return errs
}

func (c *Config) validateServer() []error {
	var errs []error

	if c.Server.Listen == "" {
		errs = append(errs, arberr.Errorf(arberr.CodeConfigValidateInvalidValue, "config: server.listen must not be empty"))
		return errs
	}

	_, portStr, err := net.SplitHostPort(c.Server.Listen)
	if err != nil {
		errs = append(errs, arberr.Errorf(arberr.CodeConfigValidateInvalidValue,
			"config: server.listen must be a valid host:port address, got %q: %w", c.Server.Listen, err))
		return errs
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		errs = append(errs, arberr.Errorf(arberr.CodeConfigValidateInvalidValue,
			"config: server.listen port must be a number, got %q", portStr))
	} else if port < 1 || port > 65535 {
		errs = append(errs, arberr.Errorf(arberr.CodeConfigValidateInvalidValue,
			"config: server.listen port must be between 1 and 65535, got %d", port))
	}

	return errs
}

func (c *Config) validateProviders() []error {
	var errs []error

	validCompletion := map[string]bool{"openai": true, "anthropic": true}
	if !validCompletion[c.Providers.Completion] {
		errs = append(errs, arberr.Errorf(arberr.CodeConfigValidateInvalidValue,
			"config: providers.completion must be one of [openai, anthropic], got %q", c.Providers.Completion))
	}

	return errs
}

func (c *Config) validateRetrieval() []error {
	var errs []error

	if c.Retrieval.Dimension <= 0 {
		errs = append(errs, arberr.Errorf(arberr.CodeConfigValidateInvalidValue,
			"config: retrieval.dimension must be positive, got %d", c.Retrieval.Dimension))
	}
	if c.Retrieval.ChunkSize <= 0 {
		errs = append(errs, arberr.Errorf(arberr.CodeConfigValidateInvalidValue,
			"config: retrieval.chunk_size must be positive, got %d", c.Retrieval.ChunkSize))
	}
	if c.Retrieval.TopK <= 0 {
		errs = append(errs, arberr.Errorf(arberr.CodeConfigValidateInvalidValue,
			"config: retrieval.top_k must be positive, got %d", c.Retrieval.TopK))
	}

	validBackends := map[string]bool{"flat": true, "sqlite-vec": true}
	if !validBackends[c.Retrieval.IndexBackend] {
		errs = append(errs, arberr.Errorf(arberr.CodeConfigValidateInvalidValue,
			"config: retrieval.index_backend must be one of [flat, sqlite-vec], got %q", c.Retrieval.IndexBackend))
	}

	return errs
}
