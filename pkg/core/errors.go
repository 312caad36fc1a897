package core

import (
	"errors"
	"fmt"
	"strings"
)

// ConfigurationError reports a broken field or action declaration: a cyclic
// or missing dependency, a replacement registered on an unknown field.
// It is raised while building the registry and is fatal at startup.
type ConfigurationError struct {
	Collection string
	Field      string
	Reason     string
	Cause      error
}

func (e *ConfigurationError) Error() string {
	target := e.Collection
	if e.Field != "" {
		target += "." + e.Field
	}
	msg := fmt.Sprintf("configuration error on %s: %s", target, e.Reason)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error { return e.Cause }

// UnsupportedOperatorError is returned when a filter uses an operator that a
// computed field has no replacement for.
type UnsupportedOperatorError struct {
	Collection string
	Field      string
	Operator   Operator
}

func (e *UnsupportedOperatorError) Error() string {
	return fmt.Sprintf("operator %s is not supported on computed field %s.%s", e.Operator, e.Collection, e.Field)
}

// UnsortableFieldError is returned when sorting on a computed field without a sort replacement.
type UnsortableFieldError struct {
	Collection string
	Field      string
}

func (e *UnsortableFieldError) Error() string {
	return fmt.Sprintf("computed field %s.%s is not sortable", e.Collection, e.Field)
}

// InvalidWriteValueError is returned when a written value cannot be split
// into physical fields, or the field cannot be written at all.
type InvalidWriteValueError struct {
	Collection string
	Field      string
	Value      any
	Reason     string
}

func (e *InvalidWriteValueError) Error() string {
	return fmt.Sprintf("invalid value %v for %s.%s: %s", e.Value, e.Collection, e.Field, e.Reason)
}

// WriteConflictError is returned when two entries of one write payload
// assign different values to the same physical field.
type WriteConflictError struct {
	Collection string
	Field      string
	Sources    []string
}

func (e *WriteConflictError) Error() string {
	return fmt.Sprintf("conflicting writes to %s.%s from %s", e.Collection, e.Field, strings.Join(e.Sources, ", "))
}

// UnknownCollectionError is returned when a request targets a collection that does not exist.
type UnknownCollectionError struct {
	Name      string
	Available []string
}

func (e *UnknownCollectionError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("unknown collection %q", e.Name)
	}
	return fmt.Sprintf("unknown collection %q\nAvailable collections: %v", e.Name, e.Available)
}

// UnknownFieldError is returned when a request references a field that does not exist.
type UnknownFieldError struct {
	Collection string
	Field      string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("unknown field %q on collection %s", e.Field, e.Collection)
}

// StorageError wraps a failure of the storage collaborator. The cause is passed through unchanged.
type StorageError struct {
	Collection string
	Op         string
	Cause      error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s on %s failed: %v", e.Op, e.Collection, e.Cause)
}

func (e *StorageError) Unwrap() error { return e.Cause }

// NewStorageError wraps err unless it is nil or already a StorageError.
func NewStorageError(collection, op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Collection: collection, Op: op, Cause: err}
}

// IsRequestError reports whether err rejects a single request because of its
// content, as opposed to a configuration or storage failure.
func IsRequestError(err error) bool {
	var (
		unsupported *UnsupportedOperatorError
		unsortable  *UnsortableFieldError
		invalid     *InvalidWriteValueError
		conflict    *WriteConflictError
		field       *UnknownFieldError
	)
	return errors.As(err, &unsupported) ||
		errors.As(err, &unsortable) ||
		errors.As(err, &invalid) ||
		errors.As(err, &conflict) ||
		errors.As(err, &field)
}
