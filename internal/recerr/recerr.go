// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

// Package recerr classifies pipeline errors into the kinds the service
// reacts to: user input problems, missing entities, provider auth
// failures, transient upstream trouble, data integrity conflicts and
// internal faults.
//
// Every top-level entry point wraps failures in an *Error so the API
// layer can map them to status codes and background workers can decide
// whether to retry. Partial results are preferred over total failure:
// callers that can degrade (scoring without embeddings, retrieval
// without the lexical back-end) absorb the error and continue.
package recerr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for propagation and retry decisions.
type Kind int

const (
	// KindInternal is an unexpected fault. Logged with stack context;
	// background jobs retry up to three times.
	KindInternal Kind = iota
	// KindInput is malformed user input. Never retried.
	KindInput
	// KindNotFound is a missing list, session, phase or candidate.
	KindNotFound
	// KindAuth is a watch-provider authentication failure. The affected
	// feature degrades; no retry.
	KindAuth
	// KindTransientExternal is a timeout, 5xx or connection reset from
	// an external dependency. Eligible for a single retry with jittered
	// backoff where the caller allows it.
	KindTransientExternal
	// KindDataIntegrity is a uniqueness violation absorbed by
	// insert-ignore fallbacks.
	KindDataIntegrity
)

// String returns the kind name used in logs and API error payloads.
func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindNotFound:
		return "not_found"
	case KindAuth:
		return "auth"
	case KindTransientExternal:
		return "transient_external"
	case KindDataIntegrity:
		return "data_integrity"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// HTTPStatus maps the kind to its HTTP status semantic.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindInput:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindAuth:
		return http.StatusUnauthorized
	case KindTransientExternal:
		return http.StatusBadGateway
	case KindDataIntegrity:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether a failure of this kind may be retried by
// background jobs.
func (k Kind) Retryable() bool {
	return k == KindTransientExternal || k == KindInternal
}

// Error is a classified pipeline error.
type Error struct {
	// Kind is the classification.
	Kind Kind

	// Op names the failing operation ("retrieval.Retrieve").
	Op string

	// Msg is an optional human-readable message for the caller.
	Msg string

	// Err is the wrapped cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Op != "":
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Msg)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
}

// Unwrap exposes the cause for errors.Is / errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// E builds a classified error. Args may be a cause error, a message
// string, or both; later values of the same type win.
func E(kind Kind, op string, args ...interface{}) *Error {
	e := &Error{Kind: kind, Op: op}
	for _, a := range args {
		switch v := a.(type) {
		case error:
			e.Err = v
		case string:
			e.Msg = v
		}
	}
	return e
}

// Input builds an input error with a caller-facing message.
func Input(op, msg string) *Error {
	return E(KindInput, op, msg)
}

// NotFound builds a not-found error for the named entity.
func NotFound(op, entity string) *Error {
	return E(KindNotFound, op, entity+" not found")
}

// Transient wraps an upstream failure as transient.
func Transient(op string, err error) *Error {
	return E(KindTransientExternal, op, err)
}

// Internal wraps an unexpected fault.
func Internal(op string, err error) *Error {
	return E(KindInternal, op, err)
}

// KindOf extracts the kind from any error. Unclassified errors are
// internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether the error (or any error it wraps) carries the
// given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// Retryable reports whether the error may be retried by background jobs.
func Retryable(err error) bool {
	return KindOf(err).Retryable()
}
