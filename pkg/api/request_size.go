// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"net/http"
)

// DefaultMaxRequestBodySize bounds request bodies.
const DefaultMaxRequestBodySize = 1 << 20

// requestBodySizeLimitMiddleware rejects bodies larger than maxSize with 413.
// Bodies that declare a larger Content-Length are refused up front. Other
// bodies are cut off at maxSize while being read, and the handler reports the
// resulting *http.MaxBytesError.
func requestBodySizeLimitMiddleware(maxSize int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxSize {
				http.Error(w, http.StatusText(http.StatusRequestEntityTooLarge), http.StatusRequestEntityTooLarge)
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, maxSize)
			next.ServeHTTP(w, r)
		})
	}
}
