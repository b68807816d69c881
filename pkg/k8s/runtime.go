// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package k8s

import (
	"github.com/stacklok/toolhive-core/env"
)

const (
	// RuntimeEnv forces the runtime detection when set to "kubernetes".
	RuntimeEnv = "MCPSERVER_API_RUNTIME"
	// serviceHostEnv is injected by the kubelet into every pod.
	serviceHostEnv = "KUBERNETES_SERVICE_HOST"
)

// IsKubernetesRuntime reports whether the process runs inside a cluster.
func IsKubernetesRuntime() bool {
	return IsKubernetesRuntimeWithEnv(&env.OSReader{})
}

// IsKubernetesRuntimeWithEnv is IsKubernetesRuntime with an injectable
// environment.
func IsKubernetesRuntimeWithEnv(envReader env.Reader) bool {
	if envReader.Getenv(RuntimeEnv) == "kubernetes" {
		return true
	}
	return envReader.Getenv(serviceHostEnv) != ""
}
