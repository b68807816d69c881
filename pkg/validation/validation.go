// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package validation provides functions for validating input data.
package validation

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/http/httpguts"
	k8svalidation "k8s.io/apimachinery/pkg/util/validation"
)

// ValidateServerName validates that an MCP server name is a valid RFC 1123
// subdomain, so that it can be used as a Kubernetes object name.
func ValidateServerName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if errs := k8svalidation.IsDNS1123Subdomain(name); len(errs) > 0 {
		return fmt.Errorf("invalid name %q: %s", name, strings.Join(errs, "; "))
	}
	return nil
}

// ValidateNamespace validates that a namespace is a valid RFC 1123 label.
func ValidateNamespace(namespace string) error {
	if namespace == "" {
		return fmt.Errorf("namespace cannot be empty")
	}
	if errs := k8svalidation.IsDNS1123Label(namespace); len(errs) > 0 {
		return fmt.Errorf("invalid namespace %q: %s", namespace, strings.Join(errs, "; "))
	}
	return nil
}

// ValidateHTTPHeaderName validates that a string is a valid HTTP header name per RFC 7230.
// It checks for CRLF injection, control characters, and ensures RFC token compliance.
func ValidateHTTPHeaderName(name string) error {
	if name == "" {
		return fmt.Errorf("header name cannot be empty")
	}

	if len(name) > 256 {
		return fmt.Errorf("header name exceeds maximum length of 256 bytes")
	}

	if !httpguts.ValidHeaderFieldName(name) {
		return fmt.Errorf("invalid HTTP header name: contains invalid characters")
	}

	return nil
}

// ValidateHTTPHeaderValue validates that a string is a valid HTTP header value per RFC 7230.
// An empty value is allowed.
func ValidateHTTPHeaderValue(value string) error {
	if len(value) > 8192 {
		return fmt.Errorf("header value exceeds maximum length of 8192 bytes")
	}

	if !httpguts.ValidHeaderFieldValue(value) {
		return fmt.Errorf("invalid HTTP header value: contains control characters")
	}

	return nil
}

// ValidateServerAddress validates the literal address of an MCP server.
//
// A valid address:
// - uses the http or https scheme
// - includes a host
// - has no fragment
func ValidateServerAddress(address string) error {
	if address == "" {
		return fmt.Errorf("address cannot be empty")
	}

	parsed, err := url.Parse(address)
	if err != nil {
		return fmt.Errorf("invalid address: %w", err)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("address must use the http or https scheme: %s", address)
	}

	if parsed.Host == "" {
		return fmt.Errorf("address must include a host: %s", address)
	}

	if parsed.Fragment != "" {
		return fmt.Errorf("address must not contain fragments (#): %s", address)
	}

	return nil
}
