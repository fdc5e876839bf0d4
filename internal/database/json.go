// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package database

import (
	"database/sql"
	"fmt"

	json "github.com/goccy/go-json"

	"github.com/tomtom215/curatus/internal/recerr"
)

// rowScanner abstracts *sql.Row and *sql.Rows for shared scan helpers.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// marshalList encodes a slice for a JSON column. Nil slices are stored
// as empty arrays so reads never see NULL for rows we wrote.
func marshalList(v interface{}) (string, error) {
	if v == nil {
		return "[]", nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal json column: %w", err)
	}
	if string(data) == "null" {
		return "[]", nil
	}
	return string(data), nil
}

// unmarshalStrings decodes a JSON string-array column. NULL and empty
// arrays come back as nil.
func unmarshalStrings(op string, ns sql.NullString) ([]string, error) {
	if !ns.Valid || ns.String == "" || ns.String == "[]" {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(ns.String), &out); err != nil {
		return nil, recerr.E(recerr.KindDataIntegrity, op, fmt.Errorf("decode json column: %w", err))
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

// unmarshalInts decodes a JSON int-array column.
func unmarshalInts(op string, ns sql.NullString) ([]int, error) {
	if !ns.Valid || ns.String == "" || ns.String == "[]" {
		return nil, nil
	}
	var out []int
	if err := json.Unmarshal([]byte(ns.String), &out); err != nil {
		return nil, recerr.E(recerr.KindDataIntegrity, op, fmt.Errorf("decode json column: %w", err))
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

// unmarshalInt64s decodes a JSON int64-array column (session pools,
// phase members).
func unmarshalInt64s(op string, ns sql.NullString) ([]int64, error) {
	if !ns.Valid || ns.String == "" || ns.String == "[]" {
		return nil, nil
	}
	var out []int64
	if err := json.Unmarshal([]byte(ns.String), &out); err != nil {
		return nil, recerr.E(recerr.KindDataIntegrity, op, fmt.Errorf("decode json column: %w", err))
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}
