// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package config loads the server configuration from flags, environment
// variables and an optional YAML file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store backends.
const (
	// StoreAuto selects kubernetes when running in a cluster and sqlite otherwise.
	StoreAuto = "auto"
	// StoreKubernetes keeps MCP servers as MCPServer custom resources.
	StoreKubernetes = "kubernetes"
	// StoreSQLite keeps MCP servers in a local SQLite database.
	StoreSQLite = "sqlite"
)

// Configuration keys. Flags are bound to the same names.
const (
	KeyAddress        = "address"
	KeyStore          = "store"
	KeyNamespace      = "namespace"
	KeyDatabasePath   = "database-path"
	KeyKubeconfig     = "kubeconfig"
	KeyRequestTimeout = "request-timeout"
	KeyDebug          = "debug"
)

// EnvPrefix is prepended to every environment variable, e.g.
// MCPSERVER_API_DATABASE_PATH.
const EnvPrefix = "MCPSERVER_API"

// Defaults.
const (
	DefaultAddress        = ":8080"
	DefaultDatabasePath   = "mcpservers.db"
	DefaultRequestTimeout = 10 * time.Second
)

// ServerConfig is the configuration of the API server.
type ServerConfig struct {
	// Address to listen on.
	Address string `mapstructure:"address"`
	// Store selects the backend: auto, kubernetes or sqlite.
	Store string `mapstructure:"store"`
	// Namespace used when a request does not name one. Empty means detect.
	Namespace string `mapstructure:"namespace"`
	// DatabasePath is the SQLite file used by the sqlite store.
	DatabasePath string `mapstructure:"database-path"`
	// Kubeconfig overrides the kubeconfig used by the kubernetes store.
	Kubeconfig string `mapstructure:"kubeconfig"`
	// RequestTimeout bounds the handling of a single request.
	RequestTimeout time.Duration `mapstructure:"request-timeout"`
	// Debug enables debug logging.
	Debug bool `mapstructure:"debug"`
}

// SetDefaults registers the default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyAddress, DefaultAddress)
	v.SetDefault(KeyStore, StoreAuto)
	v.SetDefault(KeyNamespace, "")
	v.SetDefault(KeyDatabasePath, DefaultDatabasePath)
	v.SetDefault(KeyKubeconfig, "")
	v.SetDefault(KeyRequestTimeout, DefaultRequestTimeout)
	v.SetDefault(KeyDebug, false)
}

// BindEnv makes every key readable from its MCPSERVER_API_ variable.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
}

// Load reads the configuration from v. When configFile is set it is merged
// in first; flags and environment variables still take precedence.
func Load(v *viper.Viper, configFile string) (*ServerConfig, error) {
	SetDefaults(v)
	BindEnv(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	cfg := &ServerConfig{
		Address:        v.GetString(KeyAddress),
		Store:          strings.ToLower(strings.TrimSpace(v.GetString(KeyStore))),
		Namespace:      v.GetString(KeyNamespace),
		DatabasePath:   v.GetString(KeyDatabasePath),
		Kubeconfig:     v.GetString(KeyKubeconfig),
		RequestTimeout: v.GetDuration(KeyRequestTimeout),
		Debug:          v.GetBool(KeyDebug),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
