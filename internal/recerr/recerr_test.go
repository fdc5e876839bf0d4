// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package recerr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindHTTPStatus(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindInput, http.StatusBadRequest},
		{KindNotFound, http.StatusNotFound},
		{KindAuth, http.StatusUnauthorized},
		{KindTransientExternal, http.StatusBadGateway},
		{KindDataIntegrity, http.StatusConflict},
		{KindInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			if got := tt.kind.HTTPStatus(); got != tt.want {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestKindRetryable(t *testing.T) {
	retryable := map[Kind]bool{
		KindInput:             false,
		KindNotFound:          false,
		KindAuth:              false,
		KindTransientExternal: true,
		KindDataIntegrity:     false,
		KindInternal:          true,
	}

	for kind, want := range retryable {
		if got := kind.Retryable(); got != want {
			t.Errorf("Kind(%s).Retryable() = %v, want %v", kind, got, want)
		}
	}
}

func TestKindOf(t *testing.T) {
	cause := errors.New("connection reset")

	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "classified", err: Transient("lexical.Search", cause), want: KindTransientExternal},
		{name: "wrapped classified", err: fmt.Errorf("search: %w", NotFound("core.GetProfile", "profile")), want: KindNotFound},
		{name: "plain error", err: cause, want: KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := Internal("scoring.Score", cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
	if !IsKind(err, KindInternal) {
		t.Error("IsKind should match the assigned kind")
	}
	if IsKind(err, KindInput) {
		t.Error("IsKind should not match a different kind")
	}
}

func TestErrorString(t *testing.T) {
	err := E(KindInput, "intent.Extract", "prompt is empty")
	want := "intent.Extract: input: prompt is empty"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
