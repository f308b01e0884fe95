// Package errors defines the structured error taxonomy used across
// sitecast: not-found, validation, render, generation, persistence and
// internal errors, each carrying a code, optional cause and context map.
// HTTP handlers map errors to status codes with HTTPStatus.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind categorizes an error for handling and HTTP mapping.
type Kind string

const (
	KindNotFound    Kind = "not_found"
	KindValidation  Kind = "validation"
	KindRender      Kind = "render"
	KindGeneration  Kind = "generation"
	KindPersistence Kind = "persistence"
	KindConfig      Kind = "config"
	KindInternal    Kind = "internal"
)

// Error is a structured error with kind, code and context.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface.
func (e *Error) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}
	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")
	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}
	return result
}

// Unwrap returns the underlying cause error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches on kind and, when set on the target, code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	if t.Code != "" && t.Code != e.Code {
		return false
	}
	return e.Kind == t.Kind
}

// WithContext attaches a key/value pair to the error's context map.
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithCause attaches an underlying cause.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// NotFound creates a not-found error.
func NotFound(code, message string) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: message}
}

// Validation creates a validation error. Validation errors are always
// raised before any persistence or filesystem side effect.
func Validation(code, message string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: message}
}

// Generation creates a site generation error.
func Generation(code, message string) *Error {
	return &Error{Kind: KindGeneration, Code: code, Message: message}
}

// Persistence creates a store-layer error.
func Persistence(code, message string) *Error {
	return &Error{Kind: KindPersistence, Code: code, Message: message}
}

// Internal creates an internal error.
func Internal(code, message string) *Error {
	return &Error{Kind: KindInternal, Code: code, Message: message}
}

// Config creates a configuration error.
func Config(code, message string) *Error {
	return &Error{Kind: KindConfig, Code: code, Message: message}
}

// Well-known errors used as errors.Is targets.
var (
	ErrProjectNotFound  = NotFound("project_not_found", "project not found")
	ErrTemplateNotFound = NotFound("template_not_found", "template not found")
	ErrDuplicateProject = Validation("duplicate_project", "project id already exists")
	ErrReservedName     = Validation("reserved_name", "project id collides with a generated asset name")
)

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// HTTPStatus maps an error to the status code the API surfaces.
func HTTPStatus(err error) int {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Anomaly records a detected-but-non-fatal mismatch between expected
// content and template structure. Anomalies are reported, never returned
// as errors; generation proceeds.
type Anomaly struct {
	Key     string
	Message string
}

func (a Anomaly) String() string {
	return fmt.Sprintf("%s: %s", a.Key, a.Message)
}
