// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"encoding/json"
	"fmt"
	"maps"

	"gopkg.in/yaml.v3"
)

// Reference kinds understood by the cluster backend.
const (
	// RefKindSecretKey selects a key of a Secret in the server's namespace.
	RefKindSecretKey = "secretKeyRef"
	// RefKindConfigMapKey selects a key of a ConfigMap in the server's namespace.
	RefKindConfigMapKey = "configMapKeyRef"
	// RefKindService resolves to the URL of a Service.
	RefKindService = "serviceRef"
)

// ValueReference points at a value held somewhere else. The outer key is the
// reference kind (for example "secretKeyRef") and the inner map carries the
// parameters of that kind (for example name and key).
type ValueReference map[string]map[string]string

// ValueSource is a configuration value that is either a literal string or a
// reference to another source. It has exactly two cases:
//
//   - Literal: an optional string, see [LiteralValue]. The zero ValueSource is
//     the null literal.
//   - Reference: a non-empty [ValueReference], see [ReferenceValue].
//
// On the wire a literal is {"value": ...} and a reference is {"valueFrom": ...}.
// The two keys are never emitted together.
type ValueSource struct {
	literal   *string
	reference ValueReference
}

// LiteralValue returns a ValueSource holding v directly.
func LiteralValue(v string) ValueSource {
	return ValueSource{literal: &v}
}

// ReferenceValue returns a ValueSource that refers to ref. An empty ref yields
// the null literal.
func ReferenceValue(ref ValueReference) ValueSource {
	if len(ref) == 0 {
		return ValueSource{}
	}
	return ValueSource{reference: ref}
}

// SecretKeyRef returns a reference to key in the Secret called name.
func SecretKeyRef(name, key string) ValueSource {
	return ReferenceValue(ValueReference{
		RefKindSecretKey: {"name": name, "key": key},
	})
}

// ConfigMapKeyRef returns a reference to key in the ConfigMap called name.
func ConfigMapKeyRef(name, key string) ValueSource {
	return ReferenceValue(ValueReference{
		RefKindConfigMapKey: {"name": name, "key": key},
	})
}

// IsReference reports whether v is the reference case.
func (v ValueSource) IsReference() bool {
	return len(v.reference) > 0
}

// Literal returns the literal value. ok is false for references and for the
// null literal.
func (v ValueSource) Literal() (value string, ok bool) {
	if v.IsReference() || v.literal == nil {
		return "", false
	}
	return *v.literal, true
}

// Reference returns a copy of the reference, or nil for literals.
func (v ValueSource) Reference() ValueReference {
	if !v.IsReference() {
		return nil
	}
	out := make(ValueReference, len(v.reference))
	for kind, params := range v.reference {
		out[kind] = maps.Clone(params)
	}
	return out
}

// Equal reports whether v and other hold the same case and contents.
func (v ValueSource) Equal(other ValueSource) bool {
	if v.IsReference() != other.IsReference() {
		return false
	}
	if v.IsReference() {
		if len(v.reference) != len(other.reference) {
			return false
		}
		for kind, params := range v.reference {
			otherParams, ok := other.reference[kind]
			if !ok || !maps.Equal(params, otherParams) {
				return false
			}
		}
		return true
	}
	if v.literal == nil || other.literal == nil {
		return v.literal == other.literal
	}
	return *v.literal == *other.literal
}

// Input keys of a ValueSource. value_from is the legacy snake_case spelling
// of valueFrom.
const (
	keyValue           = "value"
	keyValueFrom       = "valueFrom"
	keyLegacyValueFrom = "value_from"
)

// wireValueSource is the accepted input shape.
type wireValueSource struct {
	Value           *string        `yaml:"value"`
	ValueFrom       ValueReference `yaml:"valueFrom"`
	LegacyValueFrom ValueReference `yaml:"value_from"`
}

func (w wireValueSource) toValueSource() ValueSource {
	ref := w.ValueFrom
	if len(ref) == 0 {
		ref = w.LegacyValueFrom
	}
	if len(ref) > 0 {
		// A reference wins over a literal sent alongside it.
		return ValueSource{reference: ref}
	}
	return ValueSource{literal: w.Value}
}

// wireForm returns the single-key map v serializes to.
func (v ValueSource) wireForm() map[string]any {
	if v.IsReference() {
		return map[string]any{keyValueFrom: v.reference}
	}
	return map[string]any{keyValue: v.literal}
}

// MarshalJSON implements json.Marshaler.
func (v ValueSource) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.wireForm())
}

// UnmarshalJSON implements json.Unmarshaler. Keys are matched exactly, so
// "VALUE" or "valuefrom" are ignored rather than folded onto the real keys.
func (v *ValueSource) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	var w wireValueSource
	for key, dst := range map[string]any{
		keyValue:           &w.Value,
		keyValueFrom:       &w.ValueFrom,
		keyLegacyValueFrom: &w.LegacyValueFrom,
	} {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, dst); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	*v = w.toValueSource()
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (v ValueSource) MarshalYAML() (interface{}, error) {
	return v.wireForm(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (v *ValueSource) UnmarshalYAML(node *yaml.Node) error {
	var w wireValueSource
	if err := node.Decode(&w); err != nil {
		return err
	}
	*v = w.toValueSource()
	return nil
}
