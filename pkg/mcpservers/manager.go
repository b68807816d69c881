// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package mcpservers contains the domain logic for managing MCP server
// definitions independently of where they are stored.
package mcpservers

import (
	"context"

	"github.com/stacklok/mcpserver-api/pkg/mcpservers/types"
)

// Manager stores and retrieves MCP server definitions.
//
//go:generate mockgen -destination=mocks/mock_manager.go -package=mocks -source=manager.go Manager
type Manager interface {
	// List returns all MCP servers in the namespace, sorted by name.
	List(ctx context.Context, namespace string) ([]*Server, error)
	// Get returns the named MCP server.
	Get(ctx context.Context, namespace, name string) (*Server, error)
	// Create stores a new MCP server. It fails if the name is already taken.
	Create(ctx context.Context, req *types.MCPServerCreateRequest) (*Server, error)
	// Update applies a partial update to the named MCP server. Nil fields of
	// req are left untouched.
	Update(ctx context.Context, namespace, name string, req *types.MCPServerUpdateRequest) (*Server, error)
	// Delete removes the named MCP server.
	Delete(ctx context.Context, namespace, name string) error
	// Ping checks that the backing store is reachable.
	Ping(ctx context.Context) error
}

// Exporter renders the stored form of an MCP server as a manifest.
// Backends that have no manifest representation do not implement it.
type Exporter interface {
	Export(ctx context.Context, namespace, name string) ([]byte, error)
}
