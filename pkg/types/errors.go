package types

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Store operation errors. Call sites wrap these with a message that names the
// offending entity type, field or value; callers test with errors.Is.
var (
	ErrSchema         = errors.New("schema error")
	ErrEntityNotFound = errors.New("entity not found")
	ErrRequiredField  = errors.New("required field error")
	ErrInvalidValue   = errors.New("invalid value")
	ErrFilterSpec     = errors.New("invalid filter spec")
	ErrUniqueness     = errors.New("uniqueness error")
	ErrLinkType       = errors.New("invalid link type")
	ErrUpdateMode     = errors.New("invalid multi entity update mode")
	ErrStorage        = errors.New("storage error")
)

// FieldListError reports a constraint violated by a set of fields on one
// entity type: missing or cleared required fields, or an identifier
// collision. Fields is sorted.
type FieldListError struct {
	Kind       error
	EntityType string
	Fields     []string
	Message    string
}

// NewRequiredFieldsError reports required fields absent from a create call.
func NewRequiredFieldsError(entityType string, fields []string) *FieldListError {
	return newFieldListError(ErrRequiredField, entityType, fields,
		"Must set required fields for '%s' entity: %s")
}

// NewClearedRequiredFieldsError reports required fields cleared by an update call.
func NewClearedRequiredFieldsError(entityType string, fields []string) *FieldListError {
	return newFieldListError(ErrRequiredField, entityType, fields,
		"Cannot unset required fields for '%s' entity: %s")
}

// NewUniquenessError reports an identifier collision among active records.
func NewUniquenessError(entityType string, fields []string) *FieldListError {
	return newFieldListError(ErrUniqueness, entityType, fields,
		"Entity '%s' must be unique by fields: %s")
}

func newFieldListError(kind error, entityType string, fields []string, format string) *FieldListError {
	sorted := append([]string(nil), fields...)
	sort.Strings(sorted)
	return &FieldListError{
		Kind:       kind,
		EntityType: entityType,
		Fields:     sorted,
		Message:    fmt.Sprintf(format, entityType, strings.Join(sorted, ", ")),
	}
}

func (e *FieldListError) Error() string { return e.Message }

func (e *FieldListError) Unwrap() error { return e.Kind }

// LinkNotFoundError reports link targets that do not exist as active records.
type LinkNotFoundError struct {
	LinkType string
	Field    string
	IDs      []int
}

func (e *LinkNotFoundError) Error() string {
	ids := make([]string, len(e.IDs))
	for i, id := range e.IDs {
		ids[i] = strconv.Itoa(id)
	}
	return fmt.Sprintf("Could not find '%s' entities for field '%s' with ids: %s",
		e.LinkType, e.Field, strings.Join(ids, ", "))
}

func (e *LinkNotFoundError) Unwrap() error { return ErrEntityNotFound }
