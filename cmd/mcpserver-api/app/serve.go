// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
	ctrllog "sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/stacklok/toolhive-core/env"

	"github.com/stacklok/mcpserver-api/pkg/api"
	"github.com/stacklok/mcpserver-api/pkg/config"
	"github.com/stacklok/mcpserver-api/pkg/logger"
	"github.com/stacklok/mcpserver-api/pkg/mcpservers/factory"
)

const (
	defaultGracefulTimeout = 30 * time.Second // Kubernetes-friendly shutdown time
	serverReadTimeout      = 10 * time.Second // Enough for headers and small requests
	serverIdleTimeout      = 60 * time.Second // Keep connections alive for reuse
	// writeTimeoutMargin keeps the write timeout above the request timeout so
	// the timeout middleware answers first.
	writeTimeoutMargin = 5 * time.Second
)

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server API",
		Long: `Start the REST API that manages MCP servers.
The store is selected with --store: "kubernetes" keeps MCPServer custom resources,
"sqlite" keeps a local database and "auto" picks kubernetes inside a cluster.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadServeConfig(cmd, v)
			if err != nil {
				return err
			}

			logger.InitializeWithEnv(&env.OSReader{}, cfg.Debug)
			ctrllog.SetLogger(logger.NewLogr())

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return runServe(ctx, cfg)
		},
	}

	flags := cmd.Flags()
	flags.String(config.KeyAddress, config.DefaultAddress, "Address to listen on")
	flags.String(config.KeyStore, config.StoreAuto, "Store backend: auto, kubernetes or sqlite")
	flags.String(config.KeyNamespace, "", "Default namespace, detected when empty")
	flags.String(config.KeyDatabasePath, config.DefaultDatabasePath, "SQLite database file used by the sqlite store")
	flags.String(config.KeyKubeconfig, "", "Path to a kubeconfig file, in-cluster config or default rules when empty")
	flags.Duration(config.KeyRequestTimeout, config.DefaultRequestTimeout, "Maximum time to handle a request")

	if err := bindFlags(v, flags,
		config.KeyAddress,
		config.KeyStore,
		config.KeyNamespace,
		config.KeyDatabasePath,
		config.KeyKubeconfig,
		config.KeyRequestTimeout,
	); err != nil {
		logger.Fatalf("%v", err)
	}

	return cmd
}

// bindFlags binds each named flag to the viper key of the same name.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet, keys ...string) error {
	for _, key := range keys {
		flag := flags.Lookup(key)
		if flag == nil {
			return fmt.Errorf("flag %s is not defined", key)
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("failed to bind %s flag: %w", key, err)
		}
	}
	return nil
}

// loadServeConfig merges flags, environment and the optional config file.
func loadServeConfig(cmd *cobra.Command, v *viper.Viper) (*config.ServerConfig, error) {
	configFile, err := cmd.Flags().GetString(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s flag: %w", flagConfig, err)
	}
	return config.Load(v, configFile)
}

// runServe serves the API until ctx is cancelled.
func runServe(ctx context.Context, cfg *config.ServerConfig) error {
	listener, err := net.Listen("tcp", cfg.Address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.Address, err)
	}
	return serve(ctx, cfg, listener)
}

func serve(ctx context.Context, cfg *config.ServerConfig, listener net.Listener) error {
	backend, err := factory.New(ctx, cfg)
	if err != nil {
		_ = listener.Close()
		return fmt.Errorf("failed to create store: %w", err)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			logger.Errorf("Failed to close store: %v", err)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := api.NewMetrics(reg)
	if err != nil {
		_ = listener.Close()
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	router := api.NewServer(backend.Manager, backend.Exporter, backend.Namespace,
		api.WithMetrics(metrics, reg),
		api.WithMiddlewares(
			middleware.RequestID,
			middleware.RealIP,
			middleware.Recoverer,
			middleware.Timeout(cfg.RequestTimeout),
			api.LoggingMiddleware,
		),
	)

	server := &http.Server{
		Handler:      router,
		ReadTimeout:  serverReadTimeout,
		WriteTimeout: cfg.RequestTimeout + writeTimeoutMargin,
		IdleTimeout:  serverIdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infow("Server listening",
			"address", listener.Addr().String(),
			"store", backend.Store,
			"namespace", backend.Namespace,
		)
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		// Done when ctx is cancelled or Serve failed.
		<-gctx.Done()

		logger.Infof("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultGracefulTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		logger.Infof("Server shutdown complete")
		return nil
	})

	return g.Wait()
}
