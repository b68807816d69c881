// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/toolhive-core/httperr"

	"github.com/stacklok/mcpserver-api/pkg/mcpservers/types"
	"github.com/stacklok/mcpserver-api/pkg/storage"
)

func TestErrorHandler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		handlerErr   error
		expectedCode int
		expectedBody string
	}{
		{
			name:         "no error",
			expectedCode: http.StatusOK,
			expectedBody: "ok",
		},
		{
			name:         "not found",
			handlerErr:   fmt.Errorf("mcp server default/github: %w", storage.ErrNotFound),
			expectedCode: http.StatusNotFound,
			expectedBody: "mcp server default/github: mcp server not found\n",
		},
		{
			name:         "conflict",
			handlerErr:   storage.ErrAlreadyExists,
			expectedCode: http.StatusConflict,
			expectedBody: storage.ErrAlreadyExists.Error() + "\n",
		},
		{
			name:         "bad request",
			handlerErr:   httperr.WithCode(errors.New("bad input"), http.StatusBadRequest),
			expectedCode: http.StatusBadRequest,
			expectedBody: "bad input\n",
		},
		{
			name:         "internal error hides details",
			handlerErr:   errors.New("database password is hunter2"),
			expectedCode: http.StatusInternalServerError,
			expectedBody: "Internal Server Error\n",
		},
		{
			name:         "service unavailable",
			handlerErr:   httperr.WithCode(errors.New("cluster down"), http.StatusServiceUnavailable),
			expectedCode: http.StatusServiceUnavailable,
			expectedBody: "Service Unavailable\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			handler := ErrorHandler(func(w http.ResponseWriter, _ *http.Request) error {
				if tt.handlerErr != nil {
					return tt.handlerErr
				}
				_, _ = w.Write([]byte("ok"))
				return nil
			})

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

			assert.Equal(t, tt.expectedCode, rec.Code)
			assert.Equal(t, tt.expectedBody, rec.Body.String())
		})
	}
}

func TestErrorHandler_ValidationError(t *testing.T) {
	t.Parallel()

	verr := &types.ValidationError{Fields: []types.FieldError{
		{Field: "name", Message: "name is required"},
		{Field: "spec.transport", Message: `transport must be "http" or "sse"`},
	}}

	handler := ErrorHandler(func(http.ResponseWriter, *http.Request) error {
		return fmt.Errorf("creating server: %w", verr)
	})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body struct {
		Error  string             `json:"error"`
		Fields []types.FieldError `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "validation failed", body.Error)
	assert.Equal(t, verr.Fields, body.Fields)
}
