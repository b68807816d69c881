// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package errors provides HTTP error handling utilities for the API.
package errors

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/stacklok/toolhive-core/httperr"

	"github.com/stacklok/mcpserver-api/pkg/logger"
	"github.com/stacklok/mcpserver-api/pkg/mcpservers/types"
)

// HandlerWithError is an HTTP handler that can return an error.
type HandlerWithError func(http.ResponseWriter, *http.Request) error

// validationErrorBody is the JSON body written for a *types.ValidationError.
type validationErrorBody struct {
	Error  string             `json:"error"`
	Fields []types.FieldError `json:"fields"`
}

// ErrorHandler wraps a HandlerWithError and converts returned errors
// into HTTP responses.
//
//   - *types.ValidationError: 422 with a JSON list of the offending fields
//   - 5xx: the error is logged and a generic message is returned
//   - 4xx: the error message is returned to the client
//
// Usage:
//
//	r.Get("/{name}", apierrors.ErrorHandler(routes.getMCPServer))
func ErrorHandler(fn HandlerWithError) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := fn(w, r)
		if err == nil {
			return
		}

		var verr *types.ValidationError
		if errors.As(err, &verr) {
			writeValidationError(w, verr)
			return
		}

		code := httperr.Code(err)

		if code >= http.StatusInternalServerError {
			logger.Errorw("Internal server error",
				"method", r.Method,
				"path", r.URL.Path,
				"error", err,
			)
			http.Error(w, http.StatusText(code), code)
			return
		}

		http.Error(w, err.Error(), code)
	}
}

func writeValidationError(w http.ResponseWriter, verr *types.ValidationError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnprocessableEntity)
	if err := json.NewEncoder(w).Encode(validationErrorBody{
		Error:  "validation failed",
		Fields: verr.Fields,
	}); err != nil {
		logger.Errorf("Failed to encode validation error: %v", err)
	}
}
