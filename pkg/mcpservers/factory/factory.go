// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package factory builds the MCP server backend selected by configuration.
package factory

import (
	"context"
	"fmt"

	"github.com/stacklok/toolhive-core/env"

	"github.com/stacklok/mcpserver-api/pkg/config"
	"github.com/stacklok/mcpserver-api/pkg/k8s"
	"github.com/stacklok/mcpserver-api/pkg/logger"
	"github.com/stacklok/mcpserver-api/pkg/mcpservers"
	"github.com/stacklok/mcpserver-api/pkg/mcpservers/kubernetes"
	"github.com/stacklok/mcpserver-api/pkg/storage/sqlite"
)

// Backend is a ready to use MCP server backend.
type Backend struct {
	// Store is the resolved store, never config.StoreAuto.
	Store string
	// Namespace is used when a request does not name one.
	Namespace string
	Manager   mcpservers.Manager
	Exporter  mcpservers.Exporter

	close func() error
}

// Close releases the resources held by the backend.
func (b *Backend) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

// New creates the backend described by cfg.
func New(ctx context.Context, cfg *config.ServerConfig) (*Backend, error) {
	return newWithEnv(ctx, cfg, &env.OSReader{})
}

func newWithEnv(ctx context.Context, cfg *config.ServerConfig, envReader env.Reader) (*Backend, error) {
	store := ResolveStore(cfg.Store, envReader)

	var (
		backend *Backend
		err     error
	)
	switch store {
	case config.StoreKubernetes:
		backend, err = newKubernetesBackend(cfg, envReader)
	case config.StoreSQLite:
		backend, err = newSQLiteBackend(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported store %q", cfg.Store)
	}
	if err != nil {
		return nil, err
	}

	logger.Infof("Using %s store, default namespace '%s'", backend.Store, backend.Namespace)
	return backend, nil
}

// ResolveStore maps config.StoreAuto onto a concrete store.
func ResolveStore(store string, envReader env.Reader) string {
	if store != config.StoreAuto {
		return store
	}
	if k8s.IsKubernetesRuntimeWithEnv(envReader) {
		return config.StoreKubernetes
	}
	return config.StoreSQLite
}

func newKubernetesBackend(cfg *config.ServerConfig, envReader env.Reader) (*Backend, error) {
	k8sClient, err := k8s.NewControllerRuntimeClient(k8s.NewScheme(), cfg.Kubeconfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes client: %w", err)
	}

	namespace := cfg.Namespace
	if namespace == "" {
		namespace = k8s.NewNamespaceResolver(envReader, cfg.Kubeconfig).Resolve()
	}

	manager := kubernetes.NewManager(k8sClient, namespace)
	return &Backend{
		Store:     config.StoreKubernetes,
		Namespace: namespace,
		Manager:   manager,
		Exporter:  manager,
	}, nil
}

func newSQLiteBackend(ctx context.Context, cfg *config.ServerConfig) (*Backend, error) {
	db, err := sqlite.Open(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	namespace := cfg.Namespace
	if namespace == "" {
		namespace = k8s.DefaultNamespace
	}

	store := sqlite.NewMCPServerStore(db)
	return &Backend{
		Store:     config.StoreSQLite,
		Namespace: namespace,
		Manager:   store,
		Exporter:  kubernetes.NewManifestExporter(store),
		close:     store.Close,
	}, nil
}
