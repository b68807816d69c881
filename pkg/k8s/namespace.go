// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package k8s

import (
	"fmt"
	"os"
	"strings"

	"k8s.io/client-go/tools/clientcmd"

	"github.com/stacklok/toolhive-core/env"
)

const (
	// DefaultNamespace is used when no other namespace can be determined.
	DefaultNamespace = "default"
	// serviceAccountNamespacePath is where the kubelet mounts the pod's namespace.
	serviceAccountNamespacePath = "/var/run/secrets/kubernetes.io/serviceaccount/namespace"
	// podNamespaceEnv is set through the downward API in the deployment manifest.
	podNamespaceEnv = "POD_NAMESPACE"
)

// NamespaceResolver determines the namespace the API operates in by default.
type NamespaceResolver struct {
	env                env.Reader
	serviceAccountPath string
	kubeconfigPath     string
}

// NewNamespaceResolver returns a resolver reading the environment through
// envReader. kubeconfigPath may be empty to use the default loading rules.
func NewNamespaceResolver(envReader env.Reader, kubeconfigPath string) *NamespaceResolver {
	return &NamespaceResolver{
		env:                envReader,
		serviceAccountPath: serviceAccountNamespacePath,
		kubeconfigPath:     kubeconfigPath,
	}
}

// Resolve returns the current namespace. It checks, in order, the service
// account namespace file, POD_NAMESPACE and the current kubeconfig context,
// and falls back to "default".
func (r *NamespaceResolver) Resolve() string {
	if ns, err := getNamespaceFromServiceAccountPath(r.serviceAccountPath); err == nil {
		return ns
	}

	if ns, err := validateNamespaceValue(r.env.Getenv(podNamespaceEnv), podNamespaceEnv); err == nil {
		return ns
	}

	if ns, err := extractNamespaceFromKubeconfig(loadKubeconfigRaw(r.kubeconfigPath)); err == nil {
		return ns
	}

	return DefaultNamespace
}

// getNamespaceFromServiceAccountPath reads the namespace from a service account namespace file
func getNamespaceFromServiceAccountPath(path string) (string, error) {
	//nolint:gosec // G304: path is configurable for tests
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read namespace file: %w", err)
	}
	return parseNamespaceFromFile(data)
}

// parseNamespaceFromFile trims trailing newlines from the namespace file contents.
func parseNamespaceFromFile(data []byte) (string, error) {
	ns := strings.TrimRight(string(data), "\n\r")
	if ns == "" {
		return "", fmt.Errorf("namespace file is empty")
	}
	return ns, nil
}

// validateNamespaceValue validates a namespace value read from an environment variable
func validateNamespaceValue(ns, source string) (string, error) {
	if ns == "" {
		return "", fmt.Errorf("%s environment variable not set", source)
	}
	return ns, nil
}

// loadKubeconfigRaw loads the kubeconfig without resolving credentials
func loadKubeconfigRaw(kubeconfigPath string) clientcmd.ClientConfig {
	loadingRules := clientcmd.NewDefaultClientConfigLoadingRules()
	if kubeconfigPath != "" {
		loadingRules.ExplicitPath = kubeconfigPath
	}
	return clientcmd.NewNonInteractiveDeferredLoadingClientConfig(loadingRules, &clientcmd.ConfigOverrides{})
}

// extractNamespaceFromKubeconfig returns the namespace of the current context
func extractNamespaceFromKubeconfig(kubeConfig clientcmd.ClientConfig) (string, error) {
	rawConfig, err := kubeConfig.RawConfig()
	if err != nil {
		return "", fmt.Errorf("failed to load kubeconfig: %w", err)
	}

	currentContext := rawConfig.CurrentContext
	if currentContext == "" {
		return "", fmt.Errorf("no current context set in kubeconfig")
	}

	contextConfig, exists := rawConfig.Contexts[currentContext]
	if !exists {
		return "", fmt.Errorf("current context %q not found in kubeconfig", currentContext)
	}

	ns := strings.TrimSpace(contextConfig.Namespace)
	if ns == "" {
		return "", fmt.Errorf("no namespace set in current context %q", currentContext)
	}

	return ns, nil
}
