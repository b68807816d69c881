// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package storage holds the errors shared by the MCP server storage backends.
package storage

import (
	"errors"
	"net/http"

	"github.com/stacklok/toolhive-core/httperr"
)

var (
	// ErrNotFound is returned when a requested MCP server does not exist.
	ErrNotFound = httperr.WithCode(
		errors.New("mcp server not found"),
		http.StatusNotFound,
	)

	// ErrAlreadyExists is returned when an MCP server with the same name
	// already exists in the namespace.
	ErrAlreadyExists = httperr.WithCode(
		errors.New("mcp server already exists"),
		http.StatusConflict,
	)
)

// IsNotFound reports whether err is or wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists reports whether err is or wraps ErrAlreadyExists.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}
