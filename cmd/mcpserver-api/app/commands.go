// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package app provides the command-line interface of mcpserver-api.
package app

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stacklok/mcpserver-api/pkg/config"
	"github.com/stacklok/mcpserver-api/pkg/logger"
)

const flagConfig = "config"

// NewRootCmd creates the root command. Each call uses its own viper
// instance so that commands can be built repeatedly in tests.
func NewRootCmd() *cobra.Command {
	v := viper.New()

	rootCmd := &cobra.Command{
		Use:               "mcpserver-api",
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		Short:             "REST API for managing MCP server resources",
		Long: `mcpserver-api serves a REST API to create, inspect, update and delete MCP servers.
Servers are stored as MCPServer custom resources when running in Kubernetes,
or in a local SQLite database otherwise.`,
		Run: func(cmd *cobra.Command, _ []string) {
			if err := cmd.Help(); err != nil {
				logger.Errorf("Error displaying help: %v", err)
			}
		},
	}

	rootCmd.PersistentFlags().Bool(config.KeyDebug, false, "Enable debug logging")
	rootCmd.PersistentFlags().String(flagConfig, "", "Path to a YAML configuration file")
	if err := bindFlags(v, rootCmd.PersistentFlags(), config.KeyDebug); err != nil {
		logger.Fatalf("%v", err)
	}

	rootCmd.AddCommand(newServeCmd(v))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}
