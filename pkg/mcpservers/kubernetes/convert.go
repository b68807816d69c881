// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package kubernetes

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/utils/ptr"

	arkv1alpha1 "github.com/stacklok/mcpserver-api/pkg/k8s/api/v1alpha1"
	"github.com/stacklok/mcpserver-api/pkg/mcpservers"
	"github.com/stacklok/mcpserver-api/pkg/mcpservers/types"
)

// Parameters accepted by each reference kind.
const (
	paramName      = "name"
	paramKey       = "key"
	paramOptional  = "optional"
	paramNamespace = "namespace"
	paramPort      = "port"
	paramPath      = "path"
)

var allowedParams = map[string][]string{
	types.RefKindSecretKey:    {paramName, paramKey, paramOptional},
	types.RefKindConfigMapKey: {paramName, paramKey, paramOptional},
	types.RefKindService:      {paramName, paramNamespace, paramPort, paramPath},
}

// toCRDValueSource converts an API value source into its typed CRD form.
// field is the path reported in validation errors.
func toCRDValueSource(field string, vs types.ValueSource) (arkv1alpha1.ValueSource, []types.FieldError) {
	if !vs.IsReference() {
		v, _ := vs.Literal()
		return arkv1alpha1.ValueSource{Value: v}, nil
	}

	ref := vs.Reference()
	field += ".valueFrom"
	if len(ref) != 1 {
		return arkv1alpha1.ValueSource{}, []types.FieldError{{
			Field:   field,
			Message: fmt.Sprintf("exactly one reference kind must be set, got %d", len(ref)),
		}}
	}

	var kind string
	for k := range ref {
		kind = k
	}
	params := ref[kind]
	kindField := field + "." + kind

	allowed, ok := allowedParams[kind]
	if !ok {
		supported := slices.Sorted(maps.Keys(allowedParams))
		return arkv1alpha1.ValueSource{}, []types.FieldError{{
			Field:   kindField,
			Message: fmt.Sprintf("unsupported reference kind %q, expected one of %s", kind, strings.Join(supported, ", ")),
		}}
	}

	var errs []types.FieldError
	for _, p := range slices.Sorted(maps.Keys(params)) {
		if !slices.Contains(allowed, p) {
			errs = append(errs, types.FieldError{
				Field:   kindField + "." + p,
				Message: fmt.Sprintf("unsupported parameter for %s", kind),
			})
		}
	}
	if params[paramName] == "" {
		errs = append(errs, types.FieldError{Field: kindField + "." + paramName, Message: "name is required"})
	}

	from := &arkv1alpha1.ValueFromSource{}
	switch kind {
	case types.RefKindSecretKey, types.RefKindConfigMapKey:
		if params[paramKey] == "" {
			errs = append(errs, types.FieldError{Field: kindField + "." + paramKey, Message: "key is required"})
		}
		var optional *bool
		if raw, set := params[paramOptional]; set {
			b, err := strconv.ParseBool(raw)
			if err != nil {
				errs = append(errs, types.FieldError{
					Field:   kindField + "." + paramOptional,
					Message: fmt.Sprintf("optional must be a boolean, got %q", raw),
				})
			}
			optional = &b
		}
		localRef := corev1.LocalObjectReference{Name: params[paramName]}
		if kind == types.RefKindSecretKey {
			from.SecretKeyRef = &corev1.SecretKeySelector{
				LocalObjectReference: localRef, Key: params[paramKey], Optional: optional,
			}
		} else {
			from.ConfigMapKeyRef = &corev1.ConfigMapKeySelector{
				LocalObjectReference: localRef, Key: params[paramKey], Optional: optional,
			}
		}
	case types.RefKindService:
		from.ServiceRef = &arkv1alpha1.ServiceReference{
			Name:      params[paramName],
			Namespace: params[paramNamespace],
			Port:      params[paramPort],
			Path:      params[paramPath],
		}
	}

	if len(errs) > 0 {
		return arkv1alpha1.ValueSource{}, errs
	}
	return arkv1alpha1.ValueSource{ValueFrom: from}, nil
}

// fromCRDValueSource converts a typed CRD value source into the API form.
func fromCRDValueSource(vs arkv1alpha1.ValueSource) types.ValueSource {
	if vs.ValueFrom == nil {
		return types.LiteralValue(vs.Value)
	}

	ref := types.ValueReference{}
	if s := vs.ValueFrom.SecretKeyRef; s != nil {
		ref[types.RefKindSecretKey] = keySelectorParams(s.Name, s.Key, s.Optional)
	}
	if c := vs.ValueFrom.ConfigMapKeyRef; c != nil {
		ref[types.RefKindConfigMapKey] = keySelectorParams(c.Name, c.Key, c.Optional)
	}
	if svc := vs.ValueFrom.ServiceRef; svc != nil {
		params := map[string]string{paramName: svc.Name}
		setIfNotEmpty(params, paramNamespace, svc.Namespace)
		setIfNotEmpty(params, paramPort, svc.Port)
		setIfNotEmpty(params, paramPath, svc.Path)
		ref[types.RefKindService] = params
	}
	if len(ref) == 0 {
		return types.LiteralValue(vs.Value)
	}
	return types.ReferenceValue(ref)
}

func keySelectorParams(name, key string, optional *bool) map[string]string {
	params := map[string]string{paramName: name, paramKey: key}
	if optional != nil {
		params[paramOptional] = strconv.FormatBool(*optional)
	}
	return params
}

func setIfNotEmpty(m map[string]string, key, value string) {
	if value != "" {
		m[key] = value
	}
}

// toCRDSpec converts an API spec into the CRD spec. It returns a
// *types.ValidationError when a reference cannot be represented.
func toCRDSpec(spec types.MCPServerSpec) (arkv1alpha1.MCPServerSpec, error) {
	out := arkv1alpha1.MCPServerSpec{
		Address:     arkv1alpha1.ValueSource{Value: spec.Address.Value},
		Transport:   spec.Transport,
		Description: spec.Description,
		Tools:       slices.Clone(spec.Tools),
	}

	var errs []types.FieldError
	for i, h := range spec.Headers {
		value, fieldErrs := toCRDValueSource(fmt.Sprintf("spec.headers.%d.value", i), h.Value)
		errs = append(errs, fieldErrs...)
		out.Headers = append(out.Headers, arkv1alpha1.Header{Name: h.Name, Value: value})
	}
	if len(errs) > 0 {
		return arkv1alpha1.MCPServerSpec{}, &types.ValidationError{Fields: errs}
	}
	return out, nil
}

// fromCRDSpec converts a CRD spec into the API spec. A referenced address
// has no API representation and is reported through the resolved address
// only.
func fromCRDSpec(spec arkv1alpha1.MCPServerSpec) types.MCPServerSpec {
	out := types.MCPServerSpec{
		Transport:   spec.Transport,
		Description: spec.Description,
		Tools:       slices.Clone(spec.Tools),
	}
	if spec.Address.ValueFrom == nil {
		out.Address.Value = spec.Address.Value
	}
	for _, h := range spec.Headers {
		out.Headers = append(out.Headers, types.Header{Name: h.Name, Value: fromCRDValueSource(h.Value)})
	}
	return out
}

// toServer converts an MCPServer resource into the domain record.
func toServer(obj *arkv1alpha1.MCPServer) *mcpservers.Server {
	srv := &mcpservers.Server{
		ID:          string(obj.UID),
		Name:        obj.Name,
		Namespace:   obj.Namespace,
		Labels:      maps.Clone(obj.Labels),
		Annotations: maps.Clone(obj.Annotations),
		Spec:        fromCRDSpec(obj.Spec),
		CreatedAt:   obj.CreationTimestamp.Time,
	}

	if obj.Status.ResolvedAddress != "" {
		srv.Status.ResolvedAddress = ptr.To(obj.Status.ResolvedAddress)
	}
	if obj.Status.ToolCount != nil {
		srv.Status.ToolCount = ptr.To(*obj.Status.ToolCount)
	}

	message := obj.Status.Message
	if cond := obj.AvailableCondition(); cond != nil {
		srv.Status.Available = ptr.To(availabilityFromCondition(cond.Status))
		if message == "" {
			message = cond.Message
		}
	}
	if message != "" {
		srv.Status.Message = ptr.To(message)
	}

	return srv
}

func availabilityFromCondition(status metav1.ConditionStatus) types.AvailabilityStatus {
	switch status {
	case metav1.ConditionTrue:
		return types.AvailabilityTrue
	case metav1.ConditionFalse:
		return types.AvailabilityFalse
	default:
		return types.AvailabilityUnknown
	}
}
