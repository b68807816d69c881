// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package k8s

import (
	"errors"
	"fmt"

	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// configLoader loads a REST config from the two places a client can find one.
type configLoader interface {
	inCluster() (*rest.Config, error)
	fromRules(kubeconfigPath string) (*rest.Config, error)
}

type defaultConfigLoader struct{}

func (defaultConfigLoader) inCluster() (*rest.Config, error) {
	return rest.InClusterConfig()
}

func (defaultConfigLoader) fromRules(kubeconfigPath string) (*rest.Config, error) {
	loadingRules := clientcmd.NewDefaultClientConfigLoadingRules()
	if kubeconfigPath != "" {
		loadingRules.ExplicitPath = kubeconfigPath
	}
	return clientcmd.NewNonInteractiveDeferredLoadingClientConfig(
		loadingRules, &clientcmd.ConfigOverrides{},
	).ClientConfig()
}

// GetConfig returns the REST config for talking to the cluster. An explicit
// kubeconfig path wins; otherwise the in-cluster config is tried first and
// the default kubeconfig loading rules second.
func GetConfig(kubeconfigPath string) (*rest.Config, error) {
	return getConfigWithLoader(defaultConfigLoader{}, kubeconfigPath)
}

func getConfigWithLoader(loader configLoader, kubeconfigPath string) (*rest.Config, error) {
	if kubeconfigPath != "" {
		config, err := loader.fromRules(kubeconfigPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load kubeconfig %s: %w", kubeconfigPath, err)
		}
		return config, nil
	}

	config, inClusterErr := loader.inCluster()
	if inClusterErr == nil {
		return config, nil
	}

	config, rulesErr := loader.fromRules("")
	if rulesErr != nil {
		return nil, fmt.Errorf("failed to load kubernetes config: %w", errors.Join(inClusterErr, rulesErr))
	}
	return config, nil
}
