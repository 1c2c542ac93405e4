// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arbiter Contributors

package agent

import (
	"strings"
	"unicode"
)

// Capability classifiers. Each is a pure function from query (and store
// state) to a confidence in [0,1], used as routing signal only.

var databaseKeywords = []string{
	"how many", "count", "total", "sum", "average", "mean",
	"show", "list", "find", "get", "retrieve",
	"data", "records", "table", "database", "report",
	"statistics", "stats", "analysis", "breakdown",
	"users", "rows", "recent", "latest",
}

// ScoreDatabase counts matches against the structured-data vocabulary:
// two or more matches score 0.9, exactly one 0.6, none 0.2.
func ScoreDatabase(query string) float64 {
	q := strings.ToLower(query)
	matches := 0
	for _, kw := range databaseKeywords {
		if strings.Contains(q, kw) {
			matches++
		}
	}
	switch {
	case matches >= 2:
		return 0.9
	case matches == 1:
		return 0.6
	default:
		return 0.2
	}
}

var retrievalKeywords = []string{
	"document", "file", "uploaded", "content", "text",
	"what does", "according to", "in the document",
	"find information", "tell me about", "explain",
	"describe", "details about", "information on",
}

var questionWords = []string{"what", "how", "why", "when", "where"}

// DocumentIntent reports whether the query explicitly asks about document
// content, independent of store state.
func DocumentIntent(query string) bool {
	q := strings.ToLower(query)
	for _, kw := range retrievalKeywords {
		if strings.Contains(q, kw) {
			return true
		}
	}
	return false
}

// ScoreRetrieval scores document-lookup intent. An empty store always
// scores 0.2: there is nothing to retrieve, whatever the wording. The
// supervisor separately routes explicit document questions to the
// retrieval handler so the user hears why nothing can be found.
func ScoreRetrieval(query string, storeHasDocuments bool) float64 {
	if !storeHasDocuments {
		return 0.2
	}

	if DocumentIntent(query) {
		return 0.9
	}

	q := strings.ToLower(query)
	for _, w := range questionWords {
		if strings.Contains(q, w) {
			return 0.7
		}
	}
	return 0.2
}

var greetings = map[string]bool{
	"hi": true, "hello": true, "hey": true, "help": true, "start": true,
}

// Bare "hi" and "hey" are deliberately absent here: as substrings they
// would match inside words like "this". The exact-match map covers them.
var casualPatterns = []string{
	"hello", "good morning", "good afternoon", "good evening",
	"how are you", "what's up", "greetings",
	"thank you", "thanks", "goodbye", "bye", "see you",
	"who are you", "what are you", "tell me about yourself",
	"joke", "story", "weather",
}

var capabilityPatterns = []string{"what can", "how to", "help with", "capabilities"}

// ScoreGeneral scores conversational intent: exact greetings 0.95, casual
// patterns 0.8, capability questions 0.7, very short digit-free queries
// 0.6, everything else 0.3.
func ScoreGeneral(query string) float64 {
	q := strings.ToLower(strings.TrimSpace(query))

	if greetings[q] {
		return 0.95
	}
	for _, p := range casualPatterns {
		if strings.Contains(q, p) {
			return 0.8
		}
	}
	for _, p := range capabilityPatterns {
		if strings.Contains(q, p) {
			return 0.7
		}
	}
	if len(strings.Fields(q)) <= 2 && !containsDigit(q) {
		return 0.6
	}
	return 0.3
}

func containsDigit(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
