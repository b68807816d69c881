// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package mcpservers

import (
	"maps"
	"slices"
	"time"

	"github.com/stacklok/mcpserver-api/pkg/mcpservers/types"
)

// Status is the observed state of an MCP server. It is written by whatever
// reconciles the server; every field stays nil until then.
type Status struct {
	Available       *types.AvailabilityStatus
	Message         *string
	ResolvedAddress *string
	ToolCount       *int
}

// Server is a stored MCP server definition.
type Server struct {
	// ID is the store-assigned identifier.
	ID          string
	Name        string
	Namespace   string
	Labels      map[string]string
	Annotations map[string]string
	Spec        types.MCPServerSpec
	Status      Status
	CreatedAt   time.Time
}

// ToResponse projects the server onto its list view.
func (s *Server) ToResponse() types.MCPServerResponse {
	return types.MCPServerResponse{
		Name:          s.Name,
		Namespace:     s.Namespace,
		Address:       s.Status.ResolvedAddress,
		Annotations:   maps.Clone(s.Annotations),
		Transport:     nonEmpty(s.Spec.Transport),
		Available:     s.Status.Available,
		StatusMessage: s.Status.Message,
		ToolCount:     s.Status.ToolCount,
	}
}

// ToDetailResponse projects the server onto its detail view.
func (s *Server) ToDetailResponse() types.MCPServerDetailResponse {
	return types.MCPServerDetailResponse{
		Name:        s.Name,
		Namespace:   s.Namespace,
		Description: nonEmpty(s.Spec.Description),
		Labels:      maps.Clone(s.Labels),
		Annotations: maps.Clone(s.Annotations),
		Available:   s.Status.Available,
		Address:     s.Status.ResolvedAddress,
		Transport:   nonEmpty(s.Spec.Transport),
		Headers:     slices.Clone(s.Spec.Headers),
		ToolCount:   s.Status.ToolCount,
	}
}

// ToListResponse wraps servers in a list response.
func ToListResponse(servers []*Server) types.MCPServerListResponse {
	items := make([]types.MCPServerResponse, 0, len(servers))
	for _, s := range servers {
		items = append(items, s.ToResponse())
	}
	return types.MCPServerListResponse{Items: items, Total: len(items)}
}

// ApplyUpdate replaces the fields of s that are set in req.
func (s *Server) ApplyUpdate(req *types.MCPServerUpdateRequest) {
	if req == nil {
		return
	}
	if req.Labels != nil {
		s.Labels = maps.Clone(req.Labels)
	}
	if req.Annotations != nil {
		s.Annotations = maps.Clone(req.Annotations)
	}
	if req.Spec != nil {
		s.Spec = *req.Spec
	}
}

func nonEmpty(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
