// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package kubernetes stores MCP servers as MCPServer custom resources.
package kubernetes

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"strings"

	"k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	k8stypes "k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/util/retry"
	"sigs.k8s.io/controller-runtime/pkg/client"

	arkv1alpha1 "github.com/stacklok/mcpserver-api/pkg/k8s/api/v1alpha1"
	"github.com/stacklok/mcpserver-api/pkg/logger"
	"github.com/stacklok/mcpserver-api/pkg/mcpservers"
	"github.com/stacklok/mcpserver-api/pkg/mcpservers/types"
	"github.com/stacklok/mcpserver-api/pkg/storage"
)

// Manager implements mcpservers.Manager using MCPServer custom resources.
type Manager struct {
	k8sClient client.Client
	// namespace is probed by Ping.
	namespace string
}

var (
	_ mcpservers.Manager  = (*Manager)(nil)
	_ mcpservers.Exporter = (*Manager)(nil)
)

// NewManager creates a new CRD-backed MCP server manager.
func NewManager(k8sClient client.Client, namespace string) *Manager {
	return &Manager{
		k8sClient: k8sClient,
		namespace: namespace,
	}
}

// List returns all MCP servers in the namespace, sorted by name.
func (m *Manager) List(ctx context.Context, namespace string) ([]*mcpservers.Server, error) {
	list := &arkv1alpha1.MCPServerList{}
	if err := m.k8sClient.List(ctx, list, client.InNamespace(namespace)); err != nil {
		return nil, fmt.Errorf("failed to list MCPServers: %w", err)
	}

	servers := make([]*mcpservers.Server, 0, len(list.Items))
	for i := range list.Items {
		servers = append(servers, toServer(&list.Items[i]))
	}

	sort.Slice(servers, func(i, j int) bool {
		return strings.Compare(servers[i].Name, servers[j].Name) < 0
	})

	return servers, nil
}

// Get returns the named MCP server.
func (m *Manager) Get(ctx context.Context, namespace, name string) (*mcpservers.Server, error) {
	obj, err := m.get(ctx, namespace, name)
	if err != nil {
		return nil, err
	}
	return toServer(obj), nil
}

func (m *Manager) get(ctx context.Context, namespace, name string) (*arkv1alpha1.MCPServer, error) {
	obj := &arkv1alpha1.MCPServer{}
	err := m.k8sClient.Get(ctx, k8stypes.NamespacedName{Name: name, Namespace: namespace}, obj)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, fmt.Errorf("MCPServer '%s' in namespace '%s': %w", name, namespace, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get MCPServer: %w", err)
	}
	return obj, nil
}

// Create creates a new MCPServer resource.
func (m *Manager) Create(ctx context.Context, req *types.MCPServerCreateRequest) (*mcpservers.Server, error) {
	spec, err := toCRDSpec(req.Spec)
	if err != nil {
		return nil, err
	}

	obj := &arkv1alpha1.MCPServer{
		ObjectMeta: metav1.ObjectMeta{
			Name:        req.Name,
			Namespace:   req.Namespace,
			Labels:      maps.Clone(req.Labels),
			Annotations: maps.Clone(req.Annotations),
		},
		Spec: spec,
	}

	if err := m.k8sClient.Create(ctx, obj); err != nil {
		if errors.IsAlreadyExists(err) {
			return nil, fmt.Errorf("MCPServer '%s' in namespace '%s': %w", req.Name, req.Namespace, storage.ErrAlreadyExists)
		}
		return nil, fmt.Errorf("failed to create MCPServer: %w", err)
	}

	logger.Infof("Created MCPServer '%s' in namespace '%s'", req.Name, req.Namespace)
	return toServer(obj), nil
}

// Update applies a partial update to the named MCPServer, retrying when the
// resource changed underneath.
func (m *Manager) Update(
	ctx context.Context, namespace, name string, req *types.MCPServerUpdateRequest,
) (*mcpservers.Server, error) {
	var spec *arkv1alpha1.MCPServerSpec
	if req.Spec != nil {
		converted, err := toCRDSpec(*req.Spec)
		if err != nil {
			return nil, err
		}
		spec = &converted
	}

	var updated *arkv1alpha1.MCPServer
	err := retry.RetryOnConflict(retry.DefaultRetry, func() error {
		obj, err := m.get(ctx, namespace, name)
		if err != nil {
			return err
		}

		if req.Labels != nil {
			obj.Labels = maps.Clone(req.Labels)
		}
		if req.Annotations != nil {
			obj.Annotations = maps.Clone(req.Annotations)
		}
		if spec != nil {
			obj.Spec = *spec.DeepCopy()
		}

		if err := m.k8sClient.Update(ctx, obj); err != nil {
			return err
		}
		updated = obj
		return nil
	})
	if err != nil {
		if errors.IsConflict(err) {
			return nil, fmt.Errorf("failed to update MCPServer after retries: %w", err)
		}
		if storage.IsNotFound(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update MCPServer: %w", err)
	}

	logger.Infof("Updated MCPServer '%s' in namespace '%s'", name, namespace)
	return toServer(updated), nil
}

// Delete removes the named MCPServer.
func (m *Manager) Delete(ctx context.Context, namespace, name string) error {
	obj := &arkv1alpha1.MCPServer{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: namespace,
		},
	}

	if err := m.k8sClient.Delete(ctx, obj); err != nil {
		if errors.IsNotFound(err) {
			return fmt.Errorf("MCPServer '%s' in namespace '%s': %w", name, namespace, storage.ErrNotFound)
		}
		return fmt.Errorf("failed to delete MCPServer: %w", err)
	}

	logger.Infof("Deleted MCPServer '%s' from namespace '%s'", name, namespace)
	return nil
}

// Ping checks that MCPServer resources can be listed.
func (m *Manager) Ping(ctx context.Context) error {
	list := &arkv1alpha1.MCPServerList{}
	if err := m.k8sClient.List(ctx, list, client.InNamespace(m.namespace), client.Limit(1)); err != nil {
		return fmt.Errorf("failed to reach the Kubernetes API: %w", err)
	}
	return nil
}
