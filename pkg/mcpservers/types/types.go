// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package types contains the request and response shapes exchanged by the
// MCP server API, together with the validation applied to incoming bodies.
package types

// AvailabilityStatus mirrors the status of the Available condition reported
// for an MCP server.
type AvailabilityStatus string

const (
	// AvailabilityTrue indicates the server answered its last probe.
	AvailabilityTrue AvailabilityStatus = "True"
	// AvailabilityFalse indicates the server could not be reached.
	AvailabilityFalse AvailabilityStatus = "False"
	// AvailabilityUnknown indicates availability has not been determined yet.
	AvailabilityUnknown AvailabilityStatus = "Unknown"
)

// Header is an HTTP header sent to an MCP server.
//
//	@Description	Header sent to the MCP server, by value or by reference
type Header struct {
	// Header name
	Name string `json:"name" yaml:"name"`
	// Header value
	Value ValueSource `json:"value" yaml:"value"`
}

// MCPServerResponse is the list view of an MCP server. Fields other than name
// and namespace stay null until the server has been reconciled.
//
//	@Description	MCP server summary
type MCPServerResponse struct {
	Name          string              `json:"name"`
	Namespace     string              `json:"namespace"`
	Address       *string             `json:"address"`
	Annotations   map[string]string   `json:"annotations"`
	Transport     *string             `json:"transport"`
	Available     *AvailabilityStatus `json:"available"`
	StatusMessage *string             `json:"status_message"`
	ToolCount     *int                `json:"tool_count"`
}

// MCPServerListResponse wraps a list of MCP servers.
//
//	@Description	List of MCP servers
type MCPServerListResponse struct {
	Items []MCPServerResponse `json:"items"`
	Total int                 `json:"total"`
}

// MCPServerDetailResponse is the full view of an MCP server.
//
//	@Description	MCP server details
type MCPServerDetailResponse struct {
	Name        string              `json:"name"`
	Namespace   string              `json:"namespace"`
	Description *string             `json:"description"`
	Labels      map[string]string   `json:"labels"`
	Annotations map[string]string   `json:"annotations"`
	Available   *AvailabilityStatus `json:"available"`
	Address     *string             `json:"address"`
	Transport   *string             `json:"transport"`
	Headers     []Header            `json:"headers"`
	ToolCount   *int                `json:"tool_count"`
}

// MCPTransport describes how to run an MCP server process.
//
//	@Description	Container launch settings for an MCP server
type MCPTransport struct {
	// Transport kind
	Type string `json:"type" yaml:"type"`
	// Container image
	Image string `json:"image" yaml:"image"`
	// Environment variables for the container
	Env map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
	// Arguments passed to the command
	Args []string `json:"args,omitempty" yaml:"args,omitempty"`
	// Command overriding the image entrypoint
	Command []string `json:"command,omitempty" yaml:"command,omitempty"`
}

// AddressModel holds the address of an MCP server.
type AddressModel struct {
	Value string `json:"value" yaml:"value"`
}

// MCPServerSpec is the desired state of an MCP server.
//
//	@Description	Desired state of an MCP server
type MCPServerSpec struct {
	// Transport used to reach the server (http or sse)
	Transport string `json:"transport" yaml:"transport"`
	// Human readable description
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	// Tools to expose; all tools when empty
	Tools []string `json:"tools,omitempty" yaml:"tools,omitempty"`
	// Address of the server
	Address AddressModel `json:"address" yaml:"address"`
	// Headers sent with every request
	Headers []Header `json:"headers,omitempty" yaml:"headers,omitempty"`
}

// MCPServerCreateRequest is the body of a create call.
//
//	@Description	Request to create an MCP server
type MCPServerCreateRequest struct {
	Name        string            `json:"name" yaml:"name"`
	Namespace   string            `json:"namespace" yaml:"namespace"`
	Labels      map[string]string `json:"labels,omitempty" yaml:"labels,omitempty"`
	Annotations map[string]string `json:"annotations,omitempty" yaml:"annotations,omitempty"`
	Spec        MCPServerSpec     `json:"spec" yaml:"spec"`
}

// MCPServerUpdateRequest is the body of an update call. Nil fields are left
// unchanged; an empty body is a no-op.
//
//	@Description	Request to update an MCP server
type MCPServerUpdateRequest struct {
	Labels      map[string]string `json:"labels,omitempty" yaml:"labels,omitempty"`
	Annotations map[string]string `json:"annotations,omitempty" yaml:"annotations,omitempty"`
	Spec        *MCPServerSpec    `json:"spec,omitempty" yaml:"spec,omitempty"`
}
