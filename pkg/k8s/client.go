// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package k8s provides the Kubernetes client plumbing used by the cluster
// backend of the MCP server API.
package k8s

import (
	"fmt"

	"k8s.io/apimachinery/pkg/runtime"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/rest"
	"sigs.k8s.io/controller-runtime/pkg/client"

	arkv1alpha1 "github.com/stacklok/mcpserver-api/pkg/k8s/api/v1alpha1"
)

// NewScheme returns a scheme with the built-in types and the MCPServer CRD
// registered.
func NewScheme() *runtime.Scheme {
	scheme := runtime.NewScheme()
	utilruntime.Must(clientgoscheme.AddToScheme(scheme))
	utilruntime.Must(arkv1alpha1.AddToScheme(scheme))
	return scheme
}

// NewControllerRuntimeClient creates a new controller-runtime client with a custom scheme.
// The scheme should have all required types registered before calling this function.
//
// Example:
//
//	k8sClient, err := k8s.NewControllerRuntimeClient(k8s.NewScheme(), "")
func NewControllerRuntimeClient(scheme *runtime.Scheme, kubeconfigPath string) (client.Client, error) {
	config, err := GetConfig(kubeconfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get kubernetes config: %w", err)
	}

	return newControllerRuntimeClientWithConfig(config, scheme)
}

// newControllerRuntimeClientWithConfig is the internal implementation for creating a controller-runtime client
func newControllerRuntimeClientWithConfig(config *rest.Config, scheme *runtime.Scheme) (client.Client, error) {
	if config == nil {
		return nil, fmt.Errorf("failed to create controller-runtime client: config cannot be nil")
	}
	if scheme == nil {
		return nil, fmt.Errorf("failed to create controller-runtime client: scheme cannot be nil")
	}

	k8sClient, err := client.New(config, client.Options{Scheme: scheme})
	if err != nil {
		return nil, fmt.Errorf("failed to create controller-runtime client: %w", err)
	}

	return k8sClient, nil
}
