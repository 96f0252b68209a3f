package domain

import (
	"errors"
	"fmt"
)

// Sentinels matched by the typed errors below via errors.Is.
var (
	ErrSchemaUnavailable = errors.New("schema unavailable")
	ErrOperationNotFound = errors.New("operation not found")
	ErrTransport         = errors.New("transport error")
	ErrUnexpectedContent = errors.New("unexpected content")
	ErrEnvelopeParse     = errors.New("envelope parse error")
	ErrFieldMissing      = errors.New("field missing")
	ErrFieldTypeMismatch = errors.New("field type mismatch")
	ErrInvalidInput      = errors.New("invalid input")
)

// SchemaUnavailableError is returned when the API document cannot be
// fetched or parsed, or declares no routes.
type SchemaUnavailableError struct {
	URL     string
	Reason  string
	Snippet string // first bytes of the body, if any
	Err     error
}

func (e *SchemaUnavailableError) Error() string {
	msg := fmt.Sprintf("api document %s unavailable: %s", e.URL, e.Reason)
	if e.Snippet != "" {
		msg += fmt.Sprintf(" (body starts with %q)", e.Snippet)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SchemaUnavailableError) Unwrap() error        { return e.Err }
func (e *SchemaUnavailableError) Is(target error) bool { return target == ErrSchemaUnavailable }

// OperationNotFoundError is returned when no declared route satisfies the
// predicate of a logical operation key.
type OperationNotFoundError struct {
	Key         string
	DocumentURL string
}

func (e *OperationNotFoundError) Error() string {
	return fmt.Sprintf("no route for operation %q in api document %s", e.Key, e.DocumentURL)
}

func (e *OperationNotFoundError) Is(target error) bool { return target == ErrOperationNotFound }

// TransportError wraps a network-level failure on a resolved call.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("request to %s failed: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error        { return e.Err }
func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// UnexpectedContentError is returned when a response is an error page or a
// non-2xx status instead of the expected payload.
type UnexpectedContentError struct {
	URL        string
	StatusCode int
	Prefix     string // sniffed body prefix
	Reason     string
}

func (e *UnexpectedContentError) Error() string {
	return fmt.Sprintf("unexpected content from %s (status %d, %s): %q", e.URL, e.StatusCode, e.Reason, e.Prefix)
}

func (e *UnexpectedContentError) Is(target error) bool { return target == ErrUnexpectedContent }

// EnvelopeParseError describes a JSON body that matched none of the known
// envelope shapes. Callers degrade it to an empty result.
type EnvelopeParseError struct {
	Reason string
	Err    error
}

func (e *EnvelopeParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unrecognized envelope: %s: %v", e.Reason, e.Err)
	}
	return "unrecognized envelope: " + e.Reason
}

func (e *EnvelopeParseError) Unwrap() error        { return e.Err }
func (e *EnvelopeParseError) Is(target error) bool { return target == ErrEnvelopeParse }

// FieldErrorKind distinguishes missing fields from fields of the wrong type.
type FieldErrorKind int

const (
	FieldMissing FieldErrorKind = iota
	FieldTypeMismatch
)

// FieldError is returned by the typed Row accessors.
type FieldError struct {
	Field string
	Kind  FieldErrorKind
	Want  string
	Got   string
}

func (e *FieldError) Error() string {
	if e.Kind == FieldMissing {
		return fmt.Sprintf("field %q missing", e.Field)
	}
	return fmt.Sprintf("field %q is %s, want %s", e.Field, e.Got, e.Want)
}

func (e *FieldError) Is(target error) bool {
	switch e.Kind {
	case FieldMissing:
		return target == ErrFieldMissing
	case FieldTypeMismatch:
		return target == ErrFieldTypeMismatch
	}
	return false
}

// InvalidInputError is returned when caller-supplied filters are malformed.
type InvalidInputError struct {
	Field string
	Err   error
}

func (e *InvalidInputError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid input: %v", e.Err)
	}
	return fmt.Sprintf("invalid input %s: %v", e.Field, e.Err)
}

func (e *InvalidInputError) Unwrap() error        { return e.Err }
func (e *InvalidInputError) Is(target error) bool { return target == ErrInvalidInput }
