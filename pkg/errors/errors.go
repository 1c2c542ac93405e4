// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arbiter Contributors

// Package errors defines the machine-readable error codes used across
// Arbiter and thin helpers over samber/oops for attaching them.
package errors

import (
	"fmt"

	"github.com/samber/oops"
)

// Code is the machine-readable identifier for an error.
type Code string

const (
	CodeConfigLoadReadFailure      Code = "config.load.read.failure"
	CodeConfigValidateInvalidValue Code = "config.validate.invalid_value"
	CodeConfigMissingCredential    Code = "config.credential.missing"

	CodeProviderUnavailable     Code = "provider.unavailable"
	CodeProviderRequestInvalid  Code = "provider.request.invalid"
	CodeProviderUpstreamFailure Code = "provider.upstream.failure"

	CodeIndexDimensionMismatch Code = "index.dimension_mismatch"
	CodeIndexPersistFailure    Code = "index.persist.failure"
	CodeIndexLoadFailure       Code = "index.load.failure"
	CodeIndexCorrupt           Code = "index.corrupt"

	CodeRetrievalUnavailable    Code = "retrieval.unavailable"
	CodeRetrievalIngestFailure  Code = "retrieval.ingest.failure"

	CodeStoreUnavailable    Code = "store.unavailable"
	CodeStoreTransient      Code = "store.transient"
	CodeStoreQueryFailure   Code = "store.query.failure"
	CodeStoreImportFailure  Code = "store.import.failure"

	CodeAgentValidationRejected Code = "agent.database.validate.rejected"
	CodeAgentRoutingFailure     Code = "agent.routing.failure"

	CodeServerRequestInvalid  Code = "server.request.invalid"
	CodeServerStartFailure    Code = "server.start.failure"
	CodeServerInternalFailure Code = "server.internal.failure"
)

// Attr is a structured key/value context attached to an error.
type Attr struct {
	Key   string
	Value any
}

// Field creates a structured error field.
func Field(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

func New(code Code, msg string, fields ...Attr) error {
	return oops.Code(code).With(flatten(fields)...).New(msg)
}

func Errorf(code Code, format string, args ...any) error {
	return oops.Code(code).Errorf(format, args...)
}

func Wrap(err error, code Code, msg string, fields ...Attr) error {
	if err == nil {
		return nil
	}
	return oops.Code(code).With(flatten(fields)...).Wrapf(err, "%s", msg)
}

func Wrapf(err error, code Code, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return oops.Code(code).Wrapf(err, format, args...)
}

// CodeOf extracts the Code from an error chain, or "" if none is attached.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}

	switch c := oopsErr.Code().(type) {
	case Code:
		return c
	case string:
		return Code(c)
	default:
		return Code(fmt.Sprintf("%v", c))
	}
}

func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

// FieldsOf returns the structured context attached to an error, or nil.
func FieldsOf(err error) map[string]any {
	if err == nil {
		return nil
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil
	}
	return oopsErr.Context()
}

func flatten(fields []Attr) []any {
	out := make([]any, 0, len(fields)*2)
	for _, f := range fields {
		out = append(out, f.Key, f.Value)
	}
	return out
}
