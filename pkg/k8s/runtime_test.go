// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package k8s

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	envmocks "github.com/stacklok/toolhive-core/env/mocks"
)

func TestIsKubernetesRuntimeWithEnv(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		runtime     string
		serviceHost string
		expected    bool
	}{
		{name: "forced", runtime: "kubernetes", expected: true},
		{name: "in cluster", serviceHost: "10.96.0.1", expected: true},
		{name: "other runtime value", runtime: "docker", expected: false},
		{name: "local", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctrl := gomock.NewController(t)

			mockEnv := envmocks.NewMockReader(ctrl)
			mockEnv.EXPECT().Getenv(RuntimeEnv).Return(tt.runtime).AnyTimes()
			mockEnv.EXPECT().Getenv(serviceHostEnv).Return(tt.serviceHost).AnyTimes()

			assert.Equal(t, tt.expected, IsKubernetesRuntimeWithEnv(mockEnv))
		})
	}
}
