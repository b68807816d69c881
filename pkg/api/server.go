// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package api assembles the HTTP API of mcpserver-api.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	v1 "github.com/stacklok/mcpserver-api/pkg/api/v1"
	"github.com/stacklok/mcpserver-api/pkg/logger"
	"github.com/stacklok/mcpserver-api/pkg/mcpservers"
)

// ServerOption configures the API server.
type ServerOption func(*serverConfig)

type serverConfig struct {
	middlewares    []func(http.Handler) http.Handler
	metrics        *Metrics
	gatherer       prometheus.Gatherer
	maxRequestSize int64
}

// WithMiddlewares adds middleware to the server.
func WithMiddlewares(mw ...func(http.Handler) http.Handler) ServerOption {
	return func(cfg *serverConfig) {
		cfg.middlewares = append(cfg.middlewares, mw...)
	}
}

// WithMetrics records request metrics and serves gatherer on /metrics.
func WithMetrics(metrics *Metrics, gatherer prometheus.Gatherer) ServerOption {
	return func(cfg *serverConfig) {
		cfg.metrics = metrics
		cfg.gatherer = gatherer
	}
}

// WithMaxRequestSize overrides DefaultMaxRequestBodySize.
func WithMaxRequestSize(size int64) ServerOption {
	return func(cfg *serverConfig) {
		cfg.maxRequestSize = size
	}
}

// NewServer creates the HTTP router. Requests that do not name a namespace
// operate on defaultNamespace. exporter may be nil.
func NewServer(
	manager mcpservers.Manager,
	exporter mcpservers.Exporter,
	defaultNamespace string,
	opts ...ServerOption,
) *chi.Mux {
	cfg := &serverConfig{maxRequestSize: DefaultMaxRequestBodySize}
	for _, opt := range opts {
		opt(cfg)
	}

	r := chi.NewRouter()

	if cfg.metrics != nil {
		r.Use(cfg.metrics.Middleware)
	}
	for _, mw := range cfg.middlewares {
		r.Use(mw)
	}
	r.Use(requestBodySizeLimitMiddleware(cfg.maxRequestSize))

	r.Mount("/health", v1.HealthcheckRouter(manager))
	if cfg.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.gatherer, promhttp.HandlerOpts{}))
	}
	r.Mount("/api/v1/version", v1.VersionRouter())
	r.Mount(v1.MCPServersPath, v1.MCPServerRouter(manager, exporter, defaultNamespace))

	return r
}

// LoggingMiddleware logs HTTP requests.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		logger.Debugw("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
