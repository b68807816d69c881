// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/mcpserver-api/pkg/config"
	"github.com/stacklok/mcpserver-api/pkg/versions"
)

func findCommand(t *testing.T, root *cobra.Command, name string) *cobra.Command {
	t.Helper()
	cmd, _, err := root.Find([]string{name})
	require.NoError(t, err)
	require.Equal(t, name, cmd.Name())
	return cmd
}

func TestVersionCmd(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		args   []string
		verify func(t *testing.T, out []byte)
	}{
		{
			name: "text",
			args: []string{"version"},
			verify: func(t *testing.T, out []byte) {
				t.Helper()
				assert.Contains(t, string(out), "mcpserver-api build-")
				assert.Contains(t, string(out), "Go version:")
			},
		},
		{
			name: "json",
			args: []string{"version", "--json"},
			verify: func(t *testing.T, out []byte) {
				t.Helper()
				var info versions.VersionInfo
				require.NoError(t, json.Unmarshal(out, &info))
				assert.Equal(t, versions.GetVersionInfo(), info)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			root := NewRootCmd()
			var out bytes.Buffer
			root.SetOut(&out)
			root.SetArgs(tt.args)

			require.NoError(t, root.Execute())
			tt.verify(t, out.Bytes())
		})
	}
}

func TestLoadServeConfig(t *testing.T) {
	t.Parallel()

	configFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("namespace: from-file\nrequest-timeout: 20s\n"), 0600))

	tests := []struct {
		name      string
		args      []string
		expected  *config.ServerConfig
		expectErr string
	}{
		{
			name: "defaults",
			expected: &config.ServerConfig{
				Address:        config.DefaultAddress,
				Store:          config.StoreAuto,
				DatabasePath:   config.DefaultDatabasePath,
				RequestTimeout: config.DefaultRequestTimeout,
			},
		},
		{
			name: "flags",
			args: []string{
				"--address", "127.0.0.1:9000",
				"--store", "sqlite",
				"--namespace", "tools",
				"--database-path", "/data/mcp.db",
				"--request-timeout", "3s",
				"--debug",
			},
			expected: &config.ServerConfig{
				Address:        "127.0.0.1:9000",
				Store:          config.StoreSQLite,
				Namespace:      "tools",
				DatabasePath:   "/data/mcp.db",
				RequestTimeout: 3 * time.Second,
				Debug:          true,
			},
		},
		{
			name: "config file below flags",
			args: []string{"--config", configFile, "--namespace", "from-flag"},
			expected: &config.ServerConfig{
				Address:        config.DefaultAddress,
				Store:          config.StoreAuto,
				Namespace:      "from-flag",
				DatabasePath:   config.DefaultDatabasePath,
				RequestTimeout: 20 * time.Second,
			},
		},
		{
			name:      "invalid store",
			args:      []string{"--store", "etcd"},
			expectErr: "unknown store",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			v := viper.New()
			root := NewRootCmd()
			// Rebuild serve against a viper we control.
			serveCmd := newServeCmd(v)
			root.AddCommand(serveCmd)
			require.NoError(t, v.BindPFlag(config.KeyDebug, root.PersistentFlags().Lookup(config.KeyDebug)))
			require.NoError(t, serveCmd.ParseFlags(tt.args))

			cfg, err := loadServeConfig(serveCmd, v)
			if tt.expectErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, cfg)
		})
	}
}

func TestRootCmd_HasSubcommands(t *testing.T) {
	t.Parallel()
	root := NewRootCmd()

	findCommand(t, root, "serve")
	findCommand(t, root, "version")
}

func TestBindFlags(t *testing.T) {
	t.Parallel()

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String(config.KeyAddress, config.DefaultAddress, "")
	require.NoError(t, flags.Parse([]string{"--address", ":9999"}))

	v := viper.New()
	require.NoError(t, bindFlags(v, flags, config.KeyAddress))
	assert.Equal(t, ":9999", v.GetString(config.KeyAddress))

	err := bindFlags(v, flags, "missing")
	assert.ErrorContains(t, err, "flag missing is not defined")
}

func TestServe_SQLite(t *testing.T) {
	t.Parallel()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	cfg := &config.ServerConfig{
		Address:        listener.Addr().String(),
		Store:          config.StoreSQLite,
		DatabasePath:   filepath.Join(t.TempDir(), "mcpservers.db"),
		RequestTimeout: 5 * time.Second,
	}

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, cfg, listener) }()

	base := "http://" + listener.Addr().String()
	require.Eventually(t, func() bool {
		req, reqErr := http.NewRequestWithContext(t.Context(), http.MethodGet, base+"/health", nil)
		if reqErr != nil {
			return false
		}
		resp, doErr := http.DefaultClient.Do(req)
		if doErr != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusNoContent
	}, 5*time.Second, 50*time.Millisecond)

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, base+"/api/v1/mcp-servers", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Content-Type"))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}
