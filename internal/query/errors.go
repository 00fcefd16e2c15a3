package query

import (
	"errors"
	"fmt"
)

// Configuration errors. A ViewState that references any of these is a
// programming mistake and is rejected by [Compile] before any record is read.
var (
	ErrUnknownField    = errors.New("unknown field")
	ErrUnknownOperator = errors.New("unknown operator")
	ErrInvalidOperand  = errors.New("invalid operand")
	ErrInvalidSort     = errors.New("invalid sort")
	ErrInvalidSyntax   = errors.New("invalid syntax")
)

// Paging errors.
var (
	ErrInvalidPage       = errors.New("limit/offset must be non-negative")
	ErrOffsetOutOfBounds = errors.New("offset out of bounds")
)

// ErrMalformedRecord marks records skipped by [Plan.Apply] because they carry no ID.
var ErrMalformedRecord = errors.New("malformed record: missing id")

// FieldError reports which field of which schema a configuration error refers to.
//
// Use errors.Is with the sentinel errors above to classify it.
type FieldError struct {
	Schema string
	Field  string
	Err    error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s.%s: %v", e.Schema, e.Field, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

func fieldErr(schema, field string, err error) error {
	return &FieldError{Schema: schema, Field: field, Err: err}
}
