// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package main is the entry point for the MCP server API.
package main

import (
	"os"

	"github.com/stacklok/mcpserver-api/cmd/mcpserver-api/app"
	"github.com/stacklok/mcpserver-api/pkg/logger"
)

func main() {
	logger.Initialize()

	if err := app.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
