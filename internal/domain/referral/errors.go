package referral

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotFound is returned for an unknown referral id or number.
	ErrNotFound = errors.New("referral not found")
	// ErrPatientNotFound is returned when a submission references a
	// patient that does not exist in the registry.
	ErrPatientNotFound = errors.New("patient not found")
	// ErrLocationDataIncomplete is returned when a patient record has no
	// barangay linkage, so no local destination can be resolved.
	ErrLocationDataIncomplete = errors.New("patient location data incomplete")
	// ErrForbidden is returned when the actor's role is not on the
	// allow-list for the attempted operation.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidTransition is returned for a lifecycle move the state
	// machine does not permit.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrAlreadyInState marks a benign repeat of a transition the
	// referral has already undergone. No state changed.
	ErrAlreadyInState = errors.New("referral already in requested state")
	// ErrMissingCityOffice signals broken directory configuration: the
	// main city health office row is absent. Operators must be alerted.
	ErrMissingCityOffice = errors.New("no main city health office configured")
)

// ValidationError carries every field-level problem found in a
// submission, keyed by field name. All violations are collected so a
// caller can surface them at once.
type ValidationError struct {
	Fields map[string][]string `json:"fields"`
}

func NewValidationError() *ValidationError {
	return &ValidationError{Fields: map[string][]string{}}
}

// Add records a violation against a field.
func (e *ValidationError) Add(field, msg string) {
	e.Fields[field] = append(e.Fields[field], msg)
}

// Empty reports whether no violations were recorded.
func (e *ValidationError) Empty() bool { return len(e.Fields) == 0 }

func (e *ValidationError) Error() string {
	if e.Empty() {
		return "validation failed"
	}
	fields := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	var b strings.Builder
	b.WriteString("validation failed: ")
	for i, f := range fields {
		if i > 0 {
			b.WriteString("; ")
		}
		fmt.Fprintf(&b, "%s: %s", f, strings.Join(e.Fields[f], ", "))
	}
	return b.String()
}
