package exam

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType categorizes failures in the exam pipeline
type ErrorType int

const (
	ErrorTypeUnknown ErrorType = iota
	ErrorTypeMissingInput
	ErrorTypeMalformedLayout
	ErrorTypeExtractionEmpty
	ErrorTypeValidationFailed
	ErrorTypeSchemaViolation
	ErrorTypeRoundtripMismatch
	ErrorTypeConversionFailed
)

// String returns a string representation of the ErrorType
func (et ErrorType) String() string {
	switch et {
	case ErrorTypeMissingInput:
		return "MISSING_INPUT"
	case ErrorTypeMalformedLayout:
		return "MALFORMED_LAYOUT"
	case ErrorTypeExtractionEmpty:
		return "EXTRACTION_EMPTY"
	case ErrorTypeValidationFailed:
		return "VALIDATION_FAILED"
	case ErrorTypeSchemaViolation:
		return "SCHEMA_VIOLATION"
	case ErrorTypeRoundtripMismatch:
		return "ROUNDTRIP_MISMATCH"
	case ErrorTypeConversionFailed:
		return "CONVERSION_FAILED"
	default:
		return "UNKNOWN"
	}
}

// Error is a typed pipeline error with the context needed to report it.
type Error struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	Context string    `json:"context,omitempty"`
	FileSet string    `json:"file_set,omitempty"`
	Page    int       `json:"page,omitempty"`
	IDs     []string  `json:"ids,omitempty"`
	Err     error     `json:"-"`
}

// Sentinels for errors.Is comparisons by type.
var (
	ErrMissingInput      = &Error{Type: ErrorTypeMissingInput}
	ErrMalformedLayout   = &Error{Type: ErrorTypeMalformedLayout}
	ErrExtractionEmpty   = &Error{Type: ErrorTypeExtractionEmpty}
	ErrValidationFailed  = &Error{Type: ErrorTypeValidationFailed}
	ErrSchemaViolation   = &Error{Type: ErrorTypeSchemaViolation}
	ErrRoundtripMismatch = &Error{Type: ErrorTypeRoundtripMismatch}
	ErrConversionFailed  = &Error{Type: ErrorTypeConversionFailed}
)

// NewError creates an error of the given type.
func NewError(t ErrorType, format string, args ...interface{}) *Error {
	return &Error{Type: t, Message: fmt.Sprintf(format, args...)}
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(e.Type.String())
	b.WriteString("]")
	if e.FileSet != "" {
		b.WriteString(" ")
		b.WriteString(e.FileSet)
		b.WriteString(":")
	}
	if e.Message != "" {
		b.WriteString(" ")
		b.WriteString(e.Message)
	}
	if e.Page > 0 {
		fmt.Fprintf(&b, " (page %d)", e.Page)
	}
	if len(e.IDs) > 0 {
		fmt.Fprintf(&b, " [ids: %s]", strings.Join(e.IDs, ", "))
	}
	if e.Context != "" {
		b.WriteString(": ")
		b.WriteString(e.Context)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same type, so the sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Type == e.Type
}

// WithFileSet returns a copy tagged with the FileSet name.
func (e *Error) WithFileSet(name string) *Error {
	c := *e
	c.FileSet = name
	return &c
}

// WithContext returns a copy carrying additional context.
func (e *Error) WithContext(context string) *Error {
	c := *e
	c.Context = context
	return &c
}

// WithIDs returns a copy listing the question ids involved.
func (e *Error) WithIDs(ids []string) *Error {
	c := *e
	c.IDs = ids
	return &c
}

// Wrap returns a copy wrapping err as the cause.
func (e *Error) Wrap(err error) *Error {
	c := *e
	c.Err = err
	return &c
}

// TypeOf returns the ErrorType carried by err, or ErrorTypeUnknown.
func TypeOf(err error) ErrorType {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}
