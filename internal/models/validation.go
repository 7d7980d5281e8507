package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrValidation matches any ValidationErrors via errors.Is.
var ErrValidation = errors.New("validation failed")

// FieldError is one failed check. Field uses the wire names (agentId,
// location.lat) so messages line up with the JSON a client sent.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e FieldError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e FieldError) Unwrap() error { return e.Cause }

// ValidationErrors accumulates every failed check of one record or request
// so callers can report them together.
type ValidationErrors struct {
	Errors []FieldError `json:"errors"`
}

// Add records err under field. A nested ValidationErrors is flattened, its
// fields prefixed with field and a dot.
func (v *ValidationErrors) Add(field string, err error) {
	if err == nil {
		return
	}
	var nested *ValidationErrors
	if !errors.As(err, &nested) {
		v.Errors = append(v.Errors, FieldError{Field: field, Message: err.Error(), Cause: err})
		return
	}
	for _, fe := range nested.Errors {
		if field != "" {
			fe.Field = strings.TrimSuffix(field+"."+fe.Field, ".")
		}
		v.Errors = append(v.Errors, fe)
	}
}

// AddMessage records a failure that has no sentinel error.
func (v *ValidationErrors) AddMessage(field, message string) {
	if message != "" {
		v.Errors = append(v.Errors, FieldError{Field: field, Message: message})
	}
}

// Require records err under field when value is blank.
func (v *ValidationErrors) Require(field, value string, err error) {
	if strings.TrimSpace(value) == "" {
		v.Add(field, err)
	}
}

// Range records a failure when value lies outside [lo, hi].
func (v *ValidationErrors) Range(field string, value, lo, hi float64) {
	if value < lo || value > hi {
		v.AddMessage(field, fmt.Sprintf("must be between %g and %g, got %g", lo, hi, value))
	}
}

// Fields lists the failed field names in the order they were recorded.
func (v *ValidationErrors) Fields() []string {
	if v == nil {
		return nil
	}
	fields := make([]string, len(v.Errors))
	for i, fe := range v.Errors {
		fields[i] = fe.Field
	}
	return fields
}

// Err returns v, or nil when every check passed.
func (v *ValidationErrors) Err() error {
	if v == nil || len(v.Errors) == 0 {
		return nil
	}
	return v
}

func (v *ValidationErrors) Error() string {
	if v == nil || len(v.Errors) == 0 {
		return ErrValidation.Error()
	}
	msgs := make([]string, len(v.Errors))
	for i, fe := range v.Errors {
		msgs[i] = fe.Error()
	}
	return strings.Join(msgs, "; ")
}

// Is matches ErrValidation. Causes are reached through Unwrap.
func (v *ValidationErrors) Is(target error) bool {
	return v != nil && target == ErrValidation
}

func (v *ValidationErrors) Unwrap() []error {
	if v == nil {
		return nil
	}
	errs := make([]error, len(v.Errors))
	for i, fe := range v.Errors {
		errs[i] = fe
	}
	return errs
}
