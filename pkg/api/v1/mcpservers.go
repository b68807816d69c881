// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package v1 contains the routes of version 1 of the MCP server API.
package v1

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/stacklok/toolhive-core/httperr"

	apierrors "github.com/stacklok/mcpserver-api/pkg/api/errors"
	"github.com/stacklok/mcpserver-api/pkg/logger"
	"github.com/stacklok/mcpserver-api/pkg/mcpservers"
	"github.com/stacklok/mcpserver-api/pkg/mcpservers/types"
	"github.com/stacklok/mcpserver-api/pkg/validation"
)

// MCPServersPath is where MCPServerRouter is mounted.
const MCPServersPath = "/api/v1/mcp-servers"

// ErrExportUnsupported is returned when the backend cannot render manifests.
var ErrExportUnsupported = httperr.WithCode(
	errors.New("export is not supported by this store"),
	http.StatusNotImplemented,
)

// MCPServerRoutes defines the routes for MCP server management.
type MCPServerRoutes struct {
	manager          mcpservers.Manager
	exporter         mcpservers.Exporter
	defaultNamespace string
}

// MCPServerRouter creates the router for MCP server management. exporter
// may be nil, in which case export answers 501.
func MCPServerRouter(
	manager mcpservers.Manager,
	exporter mcpservers.Exporter,
	defaultNamespace string,
) http.Handler {
	routes := &MCPServerRoutes{
		manager:          manager,
		exporter:         exporter,
		defaultNamespace: defaultNamespace,
	}

	r := chi.NewRouter()
	r.Get("/", apierrors.ErrorHandler(routes.listMCPServers))
	r.Post("/", apierrors.ErrorHandler(routes.createMCPServer))
	r.Get("/{name}", apierrors.ErrorHandler(routes.getMCPServer))
	r.Put("/{name}", apierrors.ErrorHandler(routes.updateMCPServer))
	r.Delete("/{name}", apierrors.ErrorHandler(routes.deleteMCPServer))
	r.Get("/{name}/export", apierrors.ErrorHandler(routes.exportMCPServer))
	return r
}

// listMCPServers
//
//	@Summary		List MCP servers
//	@Description	List the MCP servers of a namespace
//	@Tags			mcp-servers
//	@Produce		json
//	@Param			namespace	query		string	false	"Namespace, defaults to the configured one"
//	@Success		200			{object}	types.MCPServerListResponse
//	@Failure		400			{string}	string	"Bad Request"
//	@Router			/api/v1/mcp-servers [get]
func (s *MCPServerRoutes) listMCPServers(w http.ResponseWriter, r *http.Request) error {
	namespace, err := s.namespace(r)
	if err != nil {
		return err
	}

	servers, err := s.manager.List(r.Context(), namespace)
	if err != nil {
		return fmt.Errorf("failed to list MCP servers: %w", err)
	}

	writeJSON(w, http.StatusOK, mcpservers.ToListResponse(servers))
	return nil
}

// createMCPServer
//
//	@Summary		Create an MCP server
//	@Description	The body may be sent as JSON or as YAML with Content-Type application/yaml
//	@Tags			mcp-servers
//	@Accept			json,application/yaml
//	@Produce		json
//	@Param			request	body		types.MCPServerCreateRequest	true	"Create request"
//	@Success		201		{object}	types.MCPServerDetailResponse
//	@Failure		400		{string}	string	"Bad Request"
//	@Failure		409		{string}	string	"Conflict"
//	@Failure		422		{object}	types.ValidationError
//	@Router			/api/v1/mcp-servers [post]
func (s *MCPServerRoutes) createMCPServer(w http.ResponseWriter, r *http.Request) error {
	body, err := readBody(r)
	if err != nil {
		return err
	}

	decodeCreate := types.DecodeCreateRequest
	if isYAML(r) {
		decodeCreate = types.DecodeCreateRequestYAML
	}
	req, err := decodeCreate(body)
	if err != nil {
		return err
	}
	if err := mcpservers.ValidateCreateRequest(req); err != nil {
		return err
	}

	srv, err := s.manager.Create(r.Context(), req)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}
	logger.Infof("Created MCP server '%s' in namespace '%s'", srv.Name, srv.Namespace)

	w.Header().Set("Location", serverLocation(srv.Namespace, srv.Name))
	writeJSON(w, http.StatusCreated, srv.ToDetailResponse())
	return nil
}

// getMCPServer
//
//	@Summary		Get an MCP server
//	@Tags			mcp-servers
//	@Produce		json
//	@Param			name		path		string	true	"Server name"
//	@Param			namespace	query		string	false	"Namespace, defaults to the configured one"
//	@Success		200			{object}	types.MCPServerDetailResponse
//	@Failure		404			{string}	string	"Not Found"
//	@Router			/api/v1/mcp-servers/{name} [get]
func (s *MCPServerRoutes) getMCPServer(w http.ResponseWriter, r *http.Request) error {
	namespace, name, err := s.target(r)
	if err != nil {
		return err
	}

	srv, err := s.manager.Get(r.Context(), namespace, name)
	if err != nil {
		return fmt.Errorf("failed to get MCP server: %w", err)
	}

	writeJSON(w, http.StatusOK, srv.ToDetailResponse())
	return nil
}

// updateMCPServer
//
//	@Summary		Update an MCP server
//	@Description	Replace the labels, annotations or spec of an MCP server. Omitted fields are kept.
//	@Description	The body may be sent as JSON or as YAML with Content-Type application/yaml.
//	@Tags			mcp-servers
//	@Accept			json,application/yaml
//	@Produce		json
//	@Param			name		path		string							true	"Server name"
//	@Param			namespace	query		string							false	"Namespace, defaults to the configured one"
//	@Param			request		body		types.MCPServerUpdateRequest	true	"Update request"
//	@Success		200			{object}	types.MCPServerDetailResponse
//	@Failure		404			{string}	string	"Not Found"
//	@Failure		422			{object}	types.ValidationError
//	@Router			/api/v1/mcp-servers/{name} [put]
func (s *MCPServerRoutes) updateMCPServer(w http.ResponseWriter, r *http.Request) error {
	namespace, name, err := s.target(r)
	if err != nil {
		return err
	}

	body, err := readBody(r)
	if err != nil {
		return err
	}

	decodeUpdate := types.DecodeUpdateRequest
	if isYAML(r) {
		decodeUpdate = types.DecodeUpdateRequestYAML
	}
	req, err := decodeUpdate(body)
	if err != nil {
		return err
	}
	if err := mcpservers.ValidateUpdateRequest(req); err != nil {
		return err
	}

	srv, err := s.manager.Update(r.Context(), namespace, name, req)
	if err != nil {
		return fmt.Errorf("failed to update MCP server: %w", err)
	}
	logger.Infof("Updated MCP server '%s' in namespace '%s'", name, namespace)

	writeJSON(w, http.StatusOK, srv.ToDetailResponse())
	return nil
}

// deleteMCPServer
//
//	@Summary		Delete an MCP server
//	@Tags			mcp-servers
//	@Param			name		path		string	true	"Server name"
//	@Param			namespace	query		string	false	"Namespace, defaults to the configured one"
//	@Success		204			{string}	string	"No Content"
//	@Failure		404			{string}	string	"Not Found"
//	@Router			/api/v1/mcp-servers/{name} [delete]
func (s *MCPServerRoutes) deleteMCPServer(w http.ResponseWriter, r *http.Request) error {
	namespace, name, err := s.target(r)
	if err != nil {
		return err
	}

	if err := s.manager.Delete(r.Context(), namespace, name); err != nil {
		return fmt.Errorf("failed to delete MCP server: %w", err)
	}
	logger.Infof("Deleted MCP server '%s' from namespace '%s'", name, namespace)

	w.WriteHeader(http.StatusNoContent)
	return nil
}

// exportMCPServer
//
//	@Summary		Export an MCP server
//	@Description	Render an MCP server as an MCPServer manifest
//	@Tags			mcp-servers
//	@Produce		application/yaml
//	@Param			name		path		string	true	"Server name"
//	@Param			namespace	query		string	false	"Namespace, defaults to the configured one"
//	@Success		200			{string}	string	"MCPServer manifest"
//	@Failure		404			{string}	string	"Not Found"
//	@Router			/api/v1/mcp-servers/{name}/export [get]
func (s *MCPServerRoutes) exportMCPServer(w http.ResponseWriter, r *http.Request) error {
	if s.exporter == nil {
		return ErrExportUnsupported
	}

	namespace, name, err := s.target(r)
	if err != nil {
		return err
	}

	manifest, err := s.exporter.Export(r.Context(), namespace, name)
	if err != nil {
		return fmt.Errorf("failed to export MCP server: %w", err)
	}

	w.Header().Set("Content-Type", "application/yaml")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.yaml"`, name))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(manifest); err != nil {
		logger.Errorf("Failed to write manifest: %v", err)
	}
	return nil
}

// namespace returns the namespace query parameter or the default one.
func (s *MCPServerRoutes) namespace(r *http.Request) (string, error) {
	namespace := r.URL.Query().Get("namespace")
	if namespace == "" {
		return s.defaultNamespace, nil
	}
	if err := validation.ValidateNamespace(namespace); err != nil {
		return "", fmt.Errorf("%w: %s", mcpservers.ErrInvalidName, err.Error())
	}
	return namespace, nil
}

// target returns the namespace and name addressed by a request.
func (s *MCPServerRoutes) target(r *http.Request) (string, string, error) {
	namespace, err := s.namespace(r)
	if err != nil {
		return "", "", err
	}
	name := chi.URLParam(r, "name")
	if err := mcpservers.ValidateName(namespace, name); err != nil {
		return "", "", err
	}
	return namespace, name, nil
}

func serverLocation(namespace, name string) string {
	return MCPServersPath + "/" + url.PathEscape(name) + "?" + url.Values{"namespace": {namespace}}.Encode()
}

// readBody reads the request body. An oversized body is reported as 413.
func readBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, httperr.WithCode(
				fmt.Errorf("request body exceeds %d bytes", maxErr.Limit),
				http.StatusRequestEntityTooLarge,
			)
		}
		return nil, httperr.WithCode(fmt.Errorf("failed to read request body: %w", err), http.StatusBadRequest)
	}
	return body, nil
}

// isYAML reports whether the request body is declared as YAML. Anything else,
// including a missing Content-Type, is treated as JSON.
func isYAML(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return false
	}
	switch mediaType {
	case "application/yaml", "application/x-yaml", "text/yaml":
		return true
	default:
		return false
	}
}
