// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package kubernetes

import (
	"context"
	"fmt"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/yaml"

	arkv1alpha1 "github.com/stacklok/mcpserver-api/pkg/k8s/api/v1alpha1"
	"github.com/stacklok/mcpserver-api/pkg/mcpservers"
)

// Export renders the named MCPServer as a YAML manifest that can be applied
// to another cluster. Server-populated metadata and status are left out.
func (m *Manager) Export(ctx context.Context, namespace, name string) ([]byte, error) {
	obj, err := m.get(ctx, namespace, name)
	if err != nil {
		return nil, err
	}

	data, err := yaml.Marshal(manifestFor(obj))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal MCPServer manifest: %w", err)
	}
	return data, nil
}

// manifest is an MCPServer without its status.
type manifest struct {
	metav1.TypeMeta `json:",inline"`
	Metadata        metav1.ObjectMeta         `json:"metadata"`
	Spec            arkv1alpha1.MCPServerSpec `json:"spec"`
}

func manifestFor(obj *arkv1alpha1.MCPServer) manifest {
	return manifest{
		TypeMeta: metav1.TypeMeta{
			APIVersion: arkv1alpha1.GroupVersion.String(),
			Kind:       "MCPServer",
		},
		Metadata: metav1.ObjectMeta{
			Name:        obj.Name,
			Namespace:   obj.Namespace,
			Labels:      obj.Labels,
			Annotations: obj.Annotations,
		},
		Spec: obj.Spec,
	}
}

// ManifestExporter renders servers held by any mcpservers.Manager as
// MCPServer manifests, so that locally stored servers can be moved into a
// cluster.
type ManifestExporter struct {
	manager mcpservers.Manager
}

var _ mcpservers.Exporter = (*ManifestExporter)(nil)

// NewManifestExporter creates an exporter reading servers from manager.
func NewManifestExporter(manager mcpservers.Manager) *ManifestExporter {
	return &ManifestExporter{manager: manager}
}

// Export renders the named server as a YAML manifest.
func (e *ManifestExporter) Export(ctx context.Context, namespace, name string) ([]byte, error) {
	srv, err := e.manager.Get(ctx, namespace, name)
	if err != nil {
		return nil, err
	}
	return RenderManifest(srv)
}

// RenderManifest converts a server into an MCPServer manifest.
func RenderManifest(srv *mcpservers.Server) ([]byte, error) {
	spec, err := toCRDSpec(srv.Spec)
	if err != nil {
		return nil, err
	}

	data, err := yaml.Marshal(manifestFor(&arkv1alpha1.MCPServer{
		ObjectMeta: metav1.ObjectMeta{
			Name:        srv.Name,
			Namespace:   srv.Namespace,
			Labels:      srv.Labels,
			Annotations: srv.Annotations,
		},
		Spec: spec,
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal MCPServer manifest: %w", err)
	}
	return data, nil
}
