// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package llm

import (
	"strings"

	"github.com/tomtom215/curatus/internal/recerr"
)

// ExtractJSON recovers the first JSON object or array from a model
// reply. Models wrap payloads in markdown fences or prose despite
// instructions, so parsing is lenient: fences are stripped, then the
// outermost {...} or [...] span is taken.
func ExtractJSON(reply string) (string, error) {
	const op = "llm.ExtractJSON"

	s := stripFences(reply)

	objStart := strings.Index(s, "{")
	arrStart := strings.Index(s, "[")

	start, closing := objStart, "}"
	if objStart == -1 || (arrStart != -1 && arrStart < objStart) {
		start, closing = arrStart, "]"
	}
	if start == -1 {
		return "", recerr.E(recerr.KindInternal, op, "reply contains no JSON payload")
	}

	end := strings.LastIndex(s, closing)
	if end <= start {
		return "", recerr.E(recerr.KindInternal, op, "reply contains unterminated JSON payload")
	}
	return s[start : end+1], nil
}

// stripFences removes markdown code fences, with or without a language
// tag, leaving the enclosed text.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.Index(s, "\n"); nl != -1 {
		// Drop a language tag like "json" on the fence line.
		first := strings.TrimSpace(s[:nl])
		if len(first) <= 10 && !strings.ContainsAny(first, "{}[]") {
			s = s[nl+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
