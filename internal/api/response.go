// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package api

import (
	"net/http"
	"time"

	json "github.com/goccy/go-json"

	"github.com/tomtom215/curatus/internal/logging"
	"github.com/tomtom215/curatus/internal/middleware"
	"github.com/tomtom215/curatus/internal/recerr"
)

// Response is the envelope every endpoint returns.
type Response struct {
	// Success reports whether the request succeeded.
	Success bool `json:"success"`

	// Data is the payload, absent on error.
	Data interface{} `json:"data,omitempty"`

	// Error holds failure details, absent on success.
	Error *ErrorBody `json:"error,omitempty"`

	// Meta carries tracing metadata.
	Meta *Meta `json:"meta,omitempty"`
}

// ErrorBody is the error half of the envelope.
type ErrorBody struct {
	// Code is the machine-readable error kind.
	Code string `json:"code"`

	// Message is a human-readable description.
	Message string `json:"message"`

	// RequestID ties the error to a traced request.
	RequestID string `json:"request_id,omitempty"`
}

// Meta is response metadata.
type Meta struct {
	RequestID string    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// respond writes a success envelope.
func respond(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	writeJSON(w, r, status, Response{
		Success: true,
		Data:    data,
		Meta: &Meta{
			RequestID: middleware.GetRequestID(r.Context()),
			Timestamp: time.Now().UTC(),
		},
	})
}

// respondError maps the error kind to a status and writes the error
// envelope. Internal errors hide the cause from the client.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	kind := recerr.KindOf(err)
	status := kind.HTTPStatus()

	message := err.Error()
	if kind == recerr.KindInternal {
		message = "internal error"
		logging.Ctx(r.Context()).Error().Err(err).
			Str("path", r.URL.Path).
			Msg("request failed")
	} else {
		logging.Ctx(r.Context()).Debug().Err(err).
			Str("path", r.URL.Path).
			Int("status", status).
			Msg("request rejected")
	}

	writeJSON(w, r, status, Response{
		Success: false,
		Error: &ErrorBody{
			Code:      kind.String(),
			Message:   message,
			RequestID: middleware.GetRequestID(r.Context()),
		},
	})
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, body Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("encoding response failed")
	}
}
