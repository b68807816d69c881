// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package factory

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	envmocks "github.com/stacklok/toolhive-core/env/mocks"

	"github.com/stacklok/mcpserver-api/pkg/config"
	"github.com/stacklok/mcpserver-api/pkg/k8s"
	"github.com/stacklok/mcpserver-api/pkg/mcpservers/kubernetes"
	"github.com/stacklok/mcpserver-api/pkg/mcpservers/types"
	"github.com/stacklok/mcpserver-api/pkg/storage/sqlite"
)

func mockEnv(t *testing.T, vars map[string]string) *envmocks.MockReader {
	t.Helper()
	ctrl := gomock.NewController(t)
	reader := envmocks.NewMockReader(ctrl)
	reader.EXPECT().Getenv(gomock.Any()).DoAndReturn(func(key string) string {
		return vars[key]
	}).AnyTimes()
	return reader
}

func TestResolveStore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		store    string
		env      map[string]string
		expected string
	}{
		{name: "explicit sqlite", store: config.StoreSQLite, env: map[string]string{"KUBERNETES_SERVICE_HOST": "10.0.0.1"}, expected: config.StoreSQLite},
		{name: "explicit kubernetes", store: config.StoreKubernetes, expected: config.StoreKubernetes},
		{name: "auto in cluster", store: config.StoreAuto, env: map[string]string{"KUBERNETES_SERVICE_HOST": "10.0.0.1"}, expected: config.StoreKubernetes},
		{name: "auto forced", store: config.StoreAuto, env: map[string]string{k8s.RuntimeEnv: "kubernetes"}, expected: config.StoreKubernetes},
		{name: "auto locally", store: config.StoreAuto, expected: config.StoreSQLite},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, ResolveStore(tt.store, mockEnv(t, tt.env)))
		})
	}
}

func TestNew_SQLite(t *testing.T) {
	t.Parallel()

	cfg := &config.ServerConfig{
		Store:        config.StoreAuto,
		DatabasePath: filepath.Join(t.TempDir(), "mcpservers.db"),
	}

	backend, err := newWithEnv(t.Context(), cfg, mockEnv(t, nil))
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })

	assert.Equal(t, config.StoreSQLite, backend.Store)
	assert.Equal(t, k8s.DefaultNamespace, backend.Namespace)
	assert.IsType(t, &sqlite.MCPServerStore{}, backend.Manager)
	assert.IsType(t, &kubernetes.ManifestExporter{}, backend.Exporter)

	_, err = backend.Manager.Create(t.Context(), &types.MCPServerCreateRequest{
		Name:      "github",
		Namespace: backend.Namespace,
		Spec: types.MCPServerSpec{
			Transport: "http",
			Address:   types.AddressModel{Value: "http://github:8080/mcp"},
		},
	})
	require.NoError(t, err)

	manifest, err := backend.Exporter.Export(t.Context(), backend.Namespace, "github")
	require.NoError(t, err)
	assert.Contains(t, string(manifest), "kind: MCPServer")
}

func TestNew_Kubernetes(t *testing.T) {
	t.Parallel()

	kubeconfig := filepath.Join(t.TempDir(), "config")
	require.NoError(t, os.WriteFile(kubeconfig, []byte(`apiVersion: v1
kind: Config
current-context: test
clusters:
- cluster:
    server: https://localhost:6443
  name: test
contexts:
- context:
    cluster: test
    user: test
  name: test
users:
- name: test
  user:
    token: fake-token
`), 0600))

	cfg := &config.ServerConfig{
		Store:          config.StoreKubernetes,
		Namespace:      "tools",
		Kubeconfig:     kubeconfig,
		RequestTimeout: time.Second,
	}

	backend, err := newWithEnv(t.Context(), cfg, mockEnv(t, nil))
	require.NoError(t, err)

	assert.Equal(t, config.StoreKubernetes, backend.Store)
	assert.Equal(t, "tools", backend.Namespace)
	assert.IsType(t, &kubernetes.Manager{}, backend.Manager)
	assert.Same(t, backend.Manager, backend.Exporter)
	assert.NoError(t, backend.Close())
}

func TestNew_Errors(t *testing.T) {
	t.Parallel()

	_, err := newWithEnv(t.Context(), &config.ServerConfig{Store: "etcd"}, mockEnv(t, nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unsupported store "etcd"`)

	_, err = newWithEnv(t.Context(), &config.ServerConfig{
		Store:      config.StoreKubernetes,
		Kubeconfig: filepath.Join(t.TempDir(), "missing"),
	}, mockEnv(t, nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create kubernetes client")
}
