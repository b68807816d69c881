// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package kubernetes

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime/schema"
	k8stypes "k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"
	"sigs.k8s.io/controller-runtime/pkg/client/interceptor"

	"github.com/stacklok/toolhive-core/httperr"

	"github.com/stacklok/mcpserver-api/pkg/k8s"
	arkv1alpha1 "github.com/stacklok/mcpserver-api/pkg/k8s/api/v1alpha1"
	"github.com/stacklok/mcpserver-api/pkg/logger"
	"github.com/stacklok/mcpserver-api/pkg/mcpservers/types"
	"github.com/stacklok/mcpserver-api/pkg/storage"
)

func init() {
	logger.Initialize()
}

// createTestManager creates a manager backed by a fake client seeded with objs.
func createTestManager(objs ...client.Object) (*Manager, client.Client) {
	fakeClient := fake.NewClientBuilder().WithScheme(k8s.NewScheme()).WithObjects(objs...).Build()
	return NewManager(fakeClient, "default"), fakeClient
}

func reconciledMCPServer(name string) *arkv1alpha1.MCPServer {
	tools := 4
	return &arkv1alpha1.MCPServer{
		ObjectMeta: metav1.ObjectMeta{
			Name:        name,
			Namespace:   "default",
			Labels:      map[string]string{"team": "platform"},
			Annotations: map[string]string{"owner": "alice"},
		},
		Spec: arkv1alpha1.MCPServerSpec{
			Address: arkv1alpha1.ValueSource{ValueFrom: &arkv1alpha1.ValueFromSource{
				ServiceRef: &arkv1alpha1.ServiceReference{Name: name, Port: "http", Path: "/mcp"},
			}},
			Transport:   "http",
			Description: "served by " + name,
			Headers: []arkv1alpha1.Header{{
				Name: "Authorization",
				Value: arkv1alpha1.ValueSource{ValueFrom: &arkv1alpha1.ValueFromSource{
					SecretKeyRef: &corev1.SecretKeySelector{
						LocalObjectReference: corev1.LocalObjectReference{Name: "gh"},
						Key:                  "token",
					},
				}},
			}},
		},
		Status: arkv1alpha1.MCPServerStatus{
			ResolvedAddress: "http://" + name + ".default.svc.cluster.local:8080/mcp",
			ToolCount:       &tools,
			Conditions: []metav1.Condition{{
				Type:               arkv1alpha1.ConditionTypeAvailable,
				Status:             metav1.ConditionTrue,
				Reason:             "Probed",
				Message:            "server is reachable",
				LastTransitionTime: metav1.Now(),
			}},
		},
	}
}

func createRequest(name string) *types.MCPServerCreateRequest {
	return &types.MCPServerCreateRequest{
		Name:      name,
		Namespace: "default",
		Labels:    map[string]string{"team": "platform"},
		Spec: types.MCPServerSpec{
			Transport: "http",
			Address:   types.AddressModel{Value: "http://" + name + ":8080/mcp"},
			Headers: []types.Header{
				{Name: "Authorization", Value: types.SecretKeyRef("gh", "token")},
				{Name: "X-Org", Value: types.LiteralValue("stacklok")},
			},
		},
	}
}

func TestManager_Create(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		req         *types.MCPServerCreateRequest
		setupObjs   []client.Object
		expectError error
		validation  bool
	}{
		{
			name: "successful creation",
			req:  createRequest("github"),
		},
		{
			name:        "already exists",
			req:         createRequest("github"),
			setupObjs:   []client.Object{reconciledMCPServer("github")},
			expectError: storage.ErrAlreadyExists,
		},
		{
			name: "unsupported reference kind",
			req: func() *types.MCPServerCreateRequest {
				req := createRequest("github")
				req.Spec.Headers[0].Value = types.ReferenceValue(types.ValueReference{
					"vaultRef": {"path": "secret/gh"},
				})
				return req
			}(),
			validation: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			manager, fakeClient := createTestManager(tt.setupObjs...)

			srv, err := manager.Create(t.Context(), tt.req)
			switch {
			case tt.expectError != nil:
				require.ErrorIs(t, err, tt.expectError)
				assert.Equal(t, http.StatusConflict, httperr.Code(err))
				return
			case tt.validation:
				require.True(t, types.IsValidationError(err), "expected validation error, got %v", err)
				return
			}
			require.NoError(t, err)

			// Nothing has reconciled the new resource yet.
			assert.Equal(t, "github", srv.Name)
			assert.Nil(t, srv.Status.Available)
			assert.Nil(t, srv.Status.ResolvedAddress)
			assert.Nil(t, srv.Status.ToolCount)

			obj := &arkv1alpha1.MCPServer{}
			require.NoError(t, fakeClient.Get(t.Context(), k8stypes.NamespacedName{Name: "github", Namespace: "default"}, obj))
			assert.Equal(t, "http://github:8080/mcp", obj.Spec.Address.Value)
			assert.Equal(t, map[string]string{"team": "platform"}, obj.Labels)
			require.Len(t, obj.Spec.Headers, 2)
			require.NotNil(t, obj.Spec.Headers[0].Value.ValueFrom)
			require.NotNil(t, obj.Spec.Headers[0].Value.ValueFrom.SecretKeyRef)
			assert.Equal(t, "gh", obj.Spec.Headers[0].Value.ValueFrom.SecretKeyRef.Name)
			assert.Equal(t, "token", obj.Spec.Headers[0].Value.ValueFrom.SecretKeyRef.Key)
			assert.Equal(t, "stacklok", obj.Spec.Headers[1].Value.Value)
		})
	}
}

func TestManager_Get(t *testing.T) {
	t.Parallel()
	manager, _ := createTestManager(reconciledMCPServer("github"))

	srv, err := manager.Get(t.Context(), "default", "github")
	require.NoError(t, err)

	assert.Equal(t, "served by github", srv.Spec.Description)
	assert.Empty(t, srv.Spec.Address.Value, "referenced address has no literal form")
	require.NotNil(t, srv.Status.ResolvedAddress)
	assert.Equal(t, "http://github.default.svc.cluster.local:8080/mcp", *srv.Status.ResolvedAddress)
	require.NotNil(t, srv.Status.Available)
	assert.Equal(t, types.AvailabilityTrue, *srv.Status.Available)
	require.NotNil(t, srv.Status.Message)
	assert.Equal(t, "server is reachable", *srv.Status.Message)
	require.NotNil(t, srv.Status.ToolCount)
	assert.Equal(t, 4, *srv.Status.ToolCount)
	require.Len(t, srv.Spec.Headers, 1)
	assert.True(t, srv.Spec.Headers[0].Value.Equal(types.SecretKeyRef("gh", "token")))

	_, err = manager.Get(t.Context(), "default", "missing")
	require.ErrorIs(t, err, storage.ErrNotFound)
	assert.Equal(t, http.StatusNotFound, httperr.Code(err))
}

func TestManager_List(t *testing.T) {
	t.Parallel()

	other := reconciledMCPServer("beta")
	other.Namespace = "other"
	manager, _ := createTestManager(
		reconciledMCPServer("zeta"),
		reconciledMCPServer("alpha"),
		other,
	)

	servers, err := manager.List(t.Context(), "default")
	require.NoError(t, err)
	require.Len(t, servers, 2)
	assert.Equal(t, "alpha", servers[0].Name)
	assert.Equal(t, "zeta", servers[1].Name)

	servers, err = manager.List(t.Context(), "empty")
	require.NoError(t, err)
	assert.Empty(t, servers)
}

func TestManager_Update(t *testing.T) {
	t.Parallel()

	t.Run("partial update keeps untouched fields", func(t *testing.T) {
		t.Parallel()
		manager, _ := createTestManager(reconciledMCPServer("github"))

		srv, err := manager.Update(t.Context(), "default", "github", &types.MCPServerUpdateRequest{
			Annotations: map[string]string{"owner": "bob"},
		})
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"owner": "bob"}, srv.Annotations)
		assert.Equal(t, map[string]string{"team": "platform"}, srv.Labels)
		assert.Equal(t, "served by github", srv.Spec.Description)
		require.NotNil(t, srv.Status.Available)
	})

	t.Run("spec replaced", func(t *testing.T) {
		t.Parallel()
		manager, fakeClient := createTestManager(reconciledMCPServer("github"))

		_, err := manager.Update(t.Context(), "default", "github", &types.MCPServerUpdateRequest{
			Spec: &types.MCPServerSpec{
				Transport: "sse",
				Address:   types.AddressModel{Value: "http://github:9000/sse"},
				Headers: []types.Header{
					{Name: "X-Env", Value: types.ConfigMapKeyRef("settings", "env")},
				},
			},
		})
		require.NoError(t, err)

		obj := &arkv1alpha1.MCPServer{}
		require.NoError(t, fakeClient.Get(t.Context(), k8stypes.NamespacedName{Name: "github", Namespace: "default"}, obj))
		assert.Equal(t, "sse", obj.Spec.Transport)
		assert.Nil(t, obj.Spec.Address.ValueFrom)
		assert.Equal(t, "http://github:9000/sse", obj.Spec.Address.Value)
		require.Len(t, obj.Spec.Headers, 1)
		assert.Equal(t, "settings", obj.Spec.Headers[0].Value.ValueFrom.ConfigMapKeyRef.Name)
	})

	t.Run("not found", func(t *testing.T) {
		t.Parallel()
		manager, _ := createTestManager()

		_, err := manager.Update(t.Context(), "default", "missing", &types.MCPServerUpdateRequest{})
		require.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("invalid reference is rejected before the API call", func(t *testing.T) {
		t.Parallel()
		manager, _ := createTestManager(reconciledMCPServer("github"))

		_, err := manager.Update(t.Context(), "default", "github", &types.MCPServerUpdateRequest{
			Spec: &types.MCPServerSpec{
				Transport: "http",
				Address:   types.AddressModel{Value: "http://github"},
				Headers: []types.Header{
					{Name: "X", Value: types.ReferenceValue(types.ValueReference{types.RefKindSecretKey: {"name": "gh"}})},
				},
			},
		})
		var verr *types.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, "spec.headers.0.value.valueFrom.secretKeyRef.key", verr.Fields[0].Field)
	})

	t.Run("retries on conflict", func(t *testing.T) {
		t.Parallel()

		var updates atomic.Int32
		fakeClient := fake.NewClientBuilder().
			WithScheme(k8s.NewScheme()).
			WithObjects(reconciledMCPServer("github")).
			WithInterceptorFuncs(interceptor.Funcs{
				Update: func(ctx context.Context, c client.WithWatch, obj client.Object, opts ...client.UpdateOption) error {
					if updates.Add(1) == 1 {
						return apierrors.NewConflict(
							schema.GroupResource{Group: arkv1alpha1.GroupVersion.Group, Resource: "mcpservers"},
							obj.GetName(), errors.New("object was modified"))
					}
					return c.Update(ctx, obj, opts...)
				},
			}).
			Build()
		manager := NewManager(fakeClient, "default")

		srv, err := manager.Update(t.Context(), "default", "github", &types.MCPServerUpdateRequest{
			Labels: map[string]string{"team": "search"},
		})
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"team": "search"}, srv.Labels)
		assert.Equal(t, int32(2), updates.Load())
	})
}

func TestManager_Delete(t *testing.T) {
	t.Parallel()
	manager, fakeClient := createTestManager(reconciledMCPServer("github"))

	require.NoError(t, manager.Delete(t.Context(), "default", "github"))

	obj := &arkv1alpha1.MCPServer{}
	err := fakeClient.Get(t.Context(), k8stypes.NamespacedName{Name: "github", Namespace: "default"}, obj)
	assert.True(t, apierrors.IsNotFound(err))

	err = manager.Delete(t.Context(), "default", "github")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestManager_Ping(t *testing.T) {
	t.Parallel()

	manager, _ := createTestManager()
	require.NoError(t, manager.Ping(t.Context()))

	failing := fake.NewClientBuilder().
		WithScheme(k8s.NewScheme()).
		WithInterceptorFuncs(interceptor.Funcs{
			List: func(context.Context, client.WithWatch, client.ObjectList, ...client.ListOption) error {
				return errors.New("connection refused")
			},
		}).
		Build()
	err := NewManager(failing, "default").Ping(t.Context())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}
