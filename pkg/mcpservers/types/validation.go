// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/stacklok/toolhive-core/httperr"
)

//go:embed schemas/mcpserver.json
var schemaFS embed.FS

const rootField = "(root)"

// Schema definitions that can be used as a validation root.
const (
	schemaCreateRequest = "createRequest"
	schemaUpdateRequest = "updateRequest"
	schemaTransport     = "transport"
	schemaHeader        = "header"
)

// ErrMalformedBody is returned when a request body is not valid JSON.
var ErrMalformedBody = httperr.WithCode(
	errors.New("request body is not valid JSON"),
	http.StatusBadRequest,
)

// ErrMalformedYAMLBody is returned when a request body is not a YAML document
// that maps onto JSON.
var ErrMalformedYAMLBody = httperr.WithCode(
	errors.New("request body is not valid YAML"),
	http.StatusBadRequest,
)

// FieldError describes one offending field of a request body.
type FieldError struct {
	// Field is the dotted path of the field, e.g. "spec.address.value".
	Field string `json:"field"`
	// Message describes what is wrong with the field.
	Message string `json:"message"`
}

// ValidationError is returned when a body does not match its schema.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

// Error implements error.
func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// NewValidationError returns a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

// IsValidationError reports whether err carries a ValidationError.
func IsValidationError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}

var (
	schemasOnce sync.Once
	schemas     map[string]*gojsonschema.Schema
	schemasErr  error
)

// loadSchemas compiles one schema per validation root. Each root carries the
// full set of definitions so that references resolve locally.
func loadSchemas() (map[string]*gojsonschema.Schema, error) {
	schemasOnce.Do(func() {
		raw, err := schemaFS.ReadFile("schemas/mcpserver.json")
		if err != nil {
			schemasErr = fmt.Errorf("failed to read schema: %w", err)
			return
		}
		var doc struct {
			Schema      string                    `json:"$schema"`
			Definitions map[string]map[string]any `json:"definitions"`
		}
		if err := json.Unmarshal(raw, &doc); err != nil {
			schemasErr = fmt.Errorf("failed to parse schema: %w", err)
			return
		}

		definitions := make(map[string]any, len(doc.Definitions))
		for name, def := range doc.Definitions {
			definitions[name] = def
		}

		compiled := make(map[string]*gojsonschema.Schema)
		for _, root := range []string{schemaCreateRequest, schemaUpdateRequest, schemaTransport, schemaHeader} {
			def, ok := doc.Definitions[root]
			if !ok {
				schemasErr = fmt.Errorf("schema definition %q not found", root)
				return
			}
			rootSchema := maps.Clone(def)
			rootSchema["$schema"] = doc.Schema
			rootSchema["definitions"] = definitions

			s, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(rootSchema))
			if err != nil {
				schemasErr = fmt.Errorf("failed to compile schema %q: %w", root, err)
				return
			}
			compiled[root] = s
		}
		schemas = compiled
	})
	return schemas, schemasErr
}

// validate checks data against the named schema.
func validate(root string, data []byte) error {
	if !json.Valid(data) {
		return ErrMalformedBody
	}

	compiled, err := loadSchemas()
	if err != nil {
		return err
	}

	result, err := compiled[root].Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("failed to validate request body: %w", err)
	}
	if result.Valid() {
		return nil
	}
	return toValidationError(result.Errors())
}

// toValidationError flattens schema errors into field errors. Composite
// errors (anyOf and friends) are dropped when more specific ones exist.
func toValidationError(resultErrors []gojsonschema.ResultError) *ValidationError {
	var fields, composite []FieldError
	for _, re := range resultErrors {
		fe := FieldError{Field: fieldPath(re), Message: re.Description()}
		switch re.Type() {
		case "number_any_of", "number_one_of", "number_all_of":
			composite = append(composite, fe)
		default:
			fields = append(fields, fe)
		}
	}
	if len(fields) == 0 {
		fields = composite
	}
	return &ValidationError{Fields: fields}
}

// fieldPath returns the path of the offending field. For missing and unknown
// properties gojsonschema reports the parent, so the property name is appended.
func fieldPath(re gojsonschema.ResultError) string {
	field := re.Field()
	if re.Type() != "required" && re.Type() != "additional_property_not_allowed" {
		return field
	}
	prop, _ := re.Details()["property"].(string)
	if prop == "" {
		return field
	}
	if field == rootField || field == "" {
		return prop
	}
	return field + "." + prop
}

// decode validates data against root and unmarshals it into a new T.
func decode[T any](root string, data []byte) (*T, error) {
	if err := validate(root, data); err != nil {
		return nil, err
	}
	out := new(T)
	if err := json.Unmarshal(data, out); err != nil {
		return nil, httperr.WithCode(fmt.Errorf("failed to decode request body: %w", err), http.StatusBadRequest)
	}
	return out, nil
}

// yamlToJSON converts a YAML document to JSON so that it can be checked
// against the same schemas as JSON bodies.
func yamlToJSON(data []byte) ([]byte, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedYAMLBody, err)
	}
	// Mappings with non-string keys decode to map[any]any, which JSON rejects.
	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedYAMLBody, err)
	}
	return out, nil
}

// decodeYAML validates the JSON form of a YAML body against root and then
// decodes the YAML document itself into a new T.
func decodeYAML[T any](root string, data []byte) (*T, error) {
	converted, err := yamlToJSON(data)
	if err != nil {
		return nil, err
	}
	if err := validate(root, converted); err != nil {
		return nil, err
	}
	out := new(T)
	if err := yaml.Unmarshal(data, out); err != nil {
		return nil, httperr.WithCode(fmt.Errorf("failed to decode request body: %w", err), http.StatusBadRequest)
	}
	return out, nil
}

// DecodeCreateRequest validates and decodes a create request body.
func DecodeCreateRequest(data []byte) (*MCPServerCreateRequest, error) {
	return decode[MCPServerCreateRequest](schemaCreateRequest, data)
}

// DecodeCreateRequestYAML validates and decodes a create request sent as YAML.
func DecodeCreateRequestYAML(data []byte) (*MCPServerCreateRequest, error) {
	return decodeYAML[MCPServerCreateRequest](schemaCreateRequest, data)
}

// DecodeUpdateRequest validates and decodes an update request body.
func DecodeUpdateRequest(data []byte) (*MCPServerUpdateRequest, error) {
	return decode[MCPServerUpdateRequest](schemaUpdateRequest, data)
}

// DecodeUpdateRequestYAML validates and decodes an update request sent as YAML.
func DecodeUpdateRequestYAML(data []byte) (*MCPServerUpdateRequest, error) {
	return decodeYAML[MCPServerUpdateRequest](schemaUpdateRequest, data)
}

// DecodeTransport validates and decodes an MCPTransport document.
func DecodeTransport(data []byte) (*MCPTransport, error) {
	return decode[MCPTransport](schemaTransport, data)
}

// DecodeHeader validates and decodes a single Header document.
func DecodeHeader(data []byte) (*Header, error) {
	return decode[Header](schemaHeader, data)
}
