// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package mcpservers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/stacklok/toolhive-core/httperr"

	"github.com/stacklok/mcpserver-api/pkg/labels"
	"github.com/stacklok/mcpserver-api/pkg/mcpservers/types"
	"github.com/stacklok/mcpserver-api/pkg/validation"
)

// Transports accepted for an MCP server.
const (
	TransportHTTP = "http"
	TransportSSE  = "sse"
)

// ErrInvalidName is returned when a name or namespace taken from a request
// path or query is not a valid Kubernetes object name.
var ErrInvalidName = httperr.WithCode(
	errors.New("invalid name"),
	http.StatusBadRequest,
)

// ValidateName checks a name and namespace that identify an existing server.
func ValidateName(namespace, name string) error {
	if err := validation.ValidateServerName(name); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidName, err.Error())
	}
	if err := validation.ValidateNamespace(namespace); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidName, err.Error())
	}
	return nil
}

// ValidateCreateRequest checks the semantic rules of a create request that
// the body schema cannot express. It returns nil or a *types.ValidationError.
func ValidateCreateRequest(req *types.MCPServerCreateRequest) error {
	var fields []types.FieldError
	if err := validation.ValidateServerName(req.Name); err != nil {
		fields = append(fields, types.FieldError{Field: "name", Message: err.Error()})
	}
	if err := validation.ValidateNamespace(req.Namespace); err != nil {
		fields = append(fields, types.FieldError{Field: "namespace", Message: err.Error()})
	}
	fields = append(fields, validateMetadata(req.Labels, req.Annotations)...)
	fields = append(fields, validateSpec("spec", &req.Spec)...)
	if len(fields) > 0 {
		return &types.ValidationError{Fields: fields}
	}
	return nil
}

// ValidateUpdateRequest checks the semantic rules of an update request.
func ValidateUpdateRequest(req *types.MCPServerUpdateRequest) error {
	fields := validateMetadata(req.Labels, req.Annotations)
	if req.Spec != nil {
		fields = append(fields, validateSpec("spec", req.Spec)...)
	}
	if len(fields) > 0 {
		return &types.ValidationError{Fields: fields}
	}
	return nil
}

func validateMetadata(lbls, annotations map[string]string) []types.FieldError {
	var fields []types.FieldError
	for _, p := range labels.ValidateLabels(lbls) {
		fields = append(fields, types.FieldError{Field: "labels." + p.Key, Message: p.Message})
	}
	for _, p := range labels.ValidateAnnotations(annotations) {
		field := "annotations"
		if p.Key != "" {
			field += "." + p.Key
		}
		fields = append(fields, types.FieldError{Field: field, Message: p.Message})
	}
	return fields
}

func validateSpec(prefix string, spec *types.MCPServerSpec) []types.FieldError {
	var fields []types.FieldError
	if spec.Transport != TransportHTTP && spec.Transport != TransportSSE {
		fields = append(fields, types.FieldError{
			Field:   prefix + ".transport",
			Message: fmt.Sprintf("transport must be %q or %q", TransportHTTP, TransportSSE),
		})
	}
	if err := validation.ValidateServerAddress(spec.Address.Value); err != nil {
		fields = append(fields, types.FieldError{Field: prefix + ".address.value", Message: err.Error()})
	}
	for i, h := range spec.Headers {
		path := fmt.Sprintf("%s.headers.%d", prefix, i)
		if err := validation.ValidateHTTPHeaderName(h.Name); err != nil {
			fields = append(fields, types.FieldError{Field: path + ".name", Message: err.Error()})
		}
		if v, ok := h.Value.Literal(); ok {
			if err := validation.ValidateHTTPHeaderValue(v); err != nil {
				fields = append(fields, types.FieldError{Field: path + ".value.value", Message: err.Error()})
			}
		}
	}
	return fields
}
