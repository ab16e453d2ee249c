package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotFound is returned when an operation references a missing id.
	ErrNotFound = errors.New("technology not found")

	// ErrInvalidValue is returned for unrecognized enum values.
	ErrInvalidValue = errors.New("invalid value")

	// ErrInvalidFormat is returned for malformed import payloads.
	ErrInvalidFormat = errors.New("invalid import format")

	// ErrPersistence is returned when the durable slot could not be written.
	// The in-memory state still reflects the mutation.
	ErrPersistence = errors.New("persistence failed")
)

// Violations maps a field name to a human-readable reason.
// An empty map means the draft is acceptable.
type Violations map[string]string

// Fields returns the violated field names in sorted order.
func (v Violations) Fields() []string {
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// ValidationError rejects a draft before any mutation happens.
type ValidationError struct {
	Violations Violations
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, f := range e.Violations.Fields() {
		parts = append(parts, fmt.Sprintf("%s: %s", f, e.Violations[f]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// IsValidationError reports whether err (or any error in its chain) is a
// ValidationError, returning it when found.
func IsValidationError(err error) (*ValidationError, bool) {
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return vErr, true
	}
	return nil, false
}
