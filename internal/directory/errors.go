// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package directory

import (
	"github.com/samber/oops"
)

// Error codes for directory operations.
const (
	CodeDuplicateEntity = "DUPLICATE_ENTITY"
	CodeNotFound        = "NOT_FOUND"
	CodeInvalidID       = "INVALID_ID"
	CodeStoreFailed     = "STORE_FAILED"
	CodeConfigInvalid   = "CONFIG_INVALID"
)

// ErrDuplicateEntity creates an error for an entity that already exists.
func ErrDuplicateEntity(entity string, id ID) error {
	return oops.Code(CodeDuplicateEntity).
		With("entity", entity).
		With("id", uint64(id)).
		Errorf("%s %d already exists", entity, id)
}

// ErrNotFound creates an error for a missing entity.
func ErrNotFound(entity string, id ID) error {
	return oops.Code(CodeNotFound).
		With("entity", entity).
		With("id", uint64(id)).
		Errorf("%s %d not found", entity, id)
}

// ErrInvalidID creates an error for a zero id.
func ErrInvalidID(entity string) error {
	return oops.Code(CodeInvalidID).
		With("entity", entity).
		Errorf("a valid %s id is required", entity)
}
