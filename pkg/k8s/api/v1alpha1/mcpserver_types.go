// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package v1alpha1

import (
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// ValueSource holds either a literal value or a reference to one.
type ValueSource struct {
	// Value is a literal value
	// +optional
	Value string `json:"value,omitempty"`

	// ValueFrom references the source of the value
	// +optional
	ValueFrom *ValueFromSource `json:"valueFrom,omitempty"`
}

// ValueFromSource selects the source of a value. Exactly one field is set.
type ValueFromSource struct {
	// SecretKeyRef selects a key of a Secret in the MCPServer's namespace
	// +optional
	SecretKeyRef *corev1.SecretKeySelector `json:"secretKeyRef,omitempty"`

	// ConfigMapKeyRef selects a key of a ConfigMap in the MCPServer's namespace
	// +optional
	ConfigMapKeyRef *corev1.ConfigMapKeySelector `json:"configMapKeyRef,omitempty"`

	// ServiceRef resolves to the URL of a Service
	// +optional
	ServiceRef *ServiceReference `json:"serviceRef,omitempty"`
}

// ServiceReference points at a Service port.
type ServiceReference struct {
	// Name of the Service
	// +kubebuilder:validation:Required
	// +kubebuilder:validation:MinLength=1
	Name string `json:"name"`

	// Namespace of the Service, defaults to the MCPServer's namespace
	// +optional
	Namespace string `json:"namespace,omitempty"`

	// Port name or number, defaults to the first port of the Service
	// +optional
	Port string `json:"port,omitempty"`

	// Path appended to the Service URL
	// +optional
	Path string `json:"path,omitempty"`
}

// Header is an HTTP header sent to the MCP server.
type Header struct {
	// Name of the header
	// +kubebuilder:validation:Required
	// +kubebuilder:validation:MinLength=1
	Name string `json:"name"`

	// Value of the header
	// +kubebuilder:validation:Required
	Value ValueSource `json:"value"`
}

// MCPServerSpec defines the desired state of MCPServer
type MCPServerSpec struct {
	// Address of the MCP server
	// +kubebuilder:validation:Required
	Address ValueSource `json:"address"`

	// Transport used to talk to the server
	// +kubebuilder:validation:Enum=http;sse
	// +kubebuilder:default=http
	Transport string `json:"transport"`

	// Description provides human-readable context
	// +optional
	Description string `json:"description,omitempty"`

	// Tools restricts the exposed tools; all tools when empty
	// +optional
	Tools []string `json:"tools,omitempty"`

	// Headers are sent with every request to the server
	// +optional
	Headers []Header `json:"headers,omitempty"`
}

// MCPServerStatus defines the observed state of MCPServer
type MCPServerStatus struct {
	// ResolvedAddress is the address after references have been resolved
	// +optional
	ResolvedAddress string `json:"resolvedAddress,omitempty"`

	// ToolCount is the number of tools discovered on the server
	// +optional
	ToolCount *int `json:"toolCount,omitempty"`

	// Message provides additional information about the current state
	// +optional
	Message string `json:"message,omitempty"`

	// Conditions represent the latest available observations of the MCPServer's state
	// +optional
	Conditions []metav1.Condition `json:"conditions,omitempty"`
}

// Condition types for MCPServer
const (
	// ConditionTypeAvailable reports whether the server answered its last probe.
	ConditionTypeAvailable = "Available"
)

//+kubebuilder:object:root=true
//+kubebuilder:subresource:status
//+kubebuilder:resource:shortName=mcps
//+kubebuilder:printcolumn:name="Available",type="string",JSONPath=".status.conditions[?(@.type=='Available')].status"
//+kubebuilder:printcolumn:name="Address",type="string",JSONPath=".status.resolvedAddress"
//+kubebuilder:printcolumn:name="Tools",type="integer",JSONPath=".status.toolCount"
//+kubebuilder:printcolumn:name="Age",type="date",JSONPath=".metadata.creationTimestamp"

// MCPServer is the Schema for the mcpservers API
type MCPServer struct {
	metav1.TypeMeta   `json:",inline"` // nolint:revive
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   MCPServerSpec   `json:"spec,omitempty"`
	Status MCPServerStatus `json:"status,omitempty"`
}

// AvailableCondition returns the Available condition, or nil when the
// server has not been probed yet.
func (m *MCPServer) AvailableCondition() *metav1.Condition {
	return meta.FindStatusCondition(m.Status.Conditions, ConditionTypeAvailable)
}

//+kubebuilder:object:root=true

// MCPServerList contains a list of MCPServer
type MCPServerList struct {
	metav1.TypeMeta `json:",inline"` // nolint:revive
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []MCPServer `json:"items"`
}

func init() {
	SchemeBuilder.Register(&MCPServer{}, &MCPServerList{})
}
