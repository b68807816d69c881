// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"

	"github.com/stacklok/mcpserver-api/pkg/validation"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Validate checks the configuration for values the server cannot start with.
func (c *ServerConfig) Validate() error {
	var errs []error

	if c.Address == "" {
		errs = append(errs, fmt.Errorf("%s must not be empty", KeyAddress))
	}

	switch c.Store {
	case StoreAuto, StoreKubernetes:
	case StoreSQLite:
		if c.DatabasePath == "" {
			errs = append(errs, fmt.Errorf("%s is required for the %s store", KeyDatabasePath, StoreSQLite))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown %s %q, expected one of %s, %s, %s",
			KeyStore, c.Store, StoreAuto, StoreKubernetes, StoreSQLite))
	}

	if c.Namespace != "" {
		if err := validation.ValidateNamespace(c.Namespace); err != nil {
			errs = append(errs, err)
		}
	}

	if c.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %s", KeyRequestTimeout, c.RequestTimeout))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}
