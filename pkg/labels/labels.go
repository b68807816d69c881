// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package labels validates the labels and annotations attached to MCP
// servers, following the Kubernetes object metadata rules.
package labels

import (
	"fmt"
	"slices"
	"strings"

	k8svalidation "k8s.io/apimachinery/pkg/util/validation"
)

// MaxAnnotationsSize is the limit on the summed size of annotation keys and values.
const MaxAnnotationsSize = 256 * 1024

// Problem is one invalid label or annotation. Key is empty for problems
// that concern the map as a whole.
type Problem struct {
	Key     string
	Message string
}

// ValidateLabels checks label keys and values. Problems are sorted by key.
func ValidateLabels(labels map[string]string) []Problem {
	var problems []Problem
	for _, key := range sortedKeys(labels) {
		if errs := k8svalidation.IsQualifiedName(key); len(errs) > 0 {
			problems = append(problems, Problem{Key: key, Message: describe("invalid label key", key, errs)})
		}
		if errs := k8svalidation.IsValidLabelValue(labels[key]); len(errs) > 0 {
			problems = append(problems, Problem{Key: key, Message: describe("invalid label value", labels[key], errs)})
		}
	}
	return problems
}

// ValidateAnnotations checks annotation keys and the total annotation size.
func ValidateAnnotations(annotations map[string]string) []Problem {
	var problems []Problem
	var size int
	for _, key := range sortedKeys(annotations) {
		if errs := k8svalidation.IsQualifiedName(strings.ToLower(key)); len(errs) > 0 {
			problems = append(problems, Problem{Key: key, Message: describe("invalid annotation key", key, errs)})
		}
		size += len(key) + len(annotations[key])
	}
	if size > MaxAnnotationsSize {
		problems = append(problems, Problem{
			Message: fmt.Sprintf("annotations are %d bytes, must be at most %d", size, MaxAnnotationsSize),
		})
	}
	return problems
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func describe(prefix, subject string, errs []string) string {
	return fmt.Sprintf("%s %q: %s", prefix, subject, strings.Join(errs, "; "))
}
