package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Exit codes for legacy-relay
const (
	ExitSuccess       = 0
	ExitGeneralError  = 1
	ExitConfigError   = 2
	ExitInvalidInput  = 3
	ExitUpstreamError = 4
)

// MissingFieldsMessage is the fixed message returned when a forward request
// lacks one of the reserved fields.
const MissingFieldsMessage = "Missing required fields: username, apiaccesskey, action"

// Kind classifies a RelayError.
type Kind string

const (
	KindGeneral       Kind = "general"
	KindMissingField  Kind = "missing_field"
	KindInvalidBody   Kind = "invalid_body"
	KindRelayFailure  Kind = "relay_failure"
	KindDecodeFailure Kind = "decode_failure"
	KindConfig        Kind = "config"
)

// RelayError is the base error type for legacy-relay
type RelayError struct {
	Kind    Kind
	Code    int
	Status  int
	Message string
	Cause   error
}

// Error returns the message, followed by the cause when both are set. A
// RelayError without a message reports its cause verbatim.
func (e *RelayError) Error() string {
	switch {
	case e.Message == "" && e.Cause != nil:
		return e.Cause.Error()
	case e.Cause != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *RelayError) Unwrap() error {
	return e.Cause
}

// ExitCode returns the exit code for this error
func (e *RelayError) ExitCode() int {
	return e.Code
}

// HTTPStatus returns the status code a handler replies with for this error.
func (e *RelayError) HTTPStatus() int {
	if e.Status == 0 {
		return http.StatusInternalServerError
	}
	return e.Status
}

// New creates a new RelayError
func New(kind Kind, code, status int, message string) *RelayError {
	return &RelayError{
		Kind:    kind,
		Code:    code,
		Status:  status,
		Message: message,
	}
}

// Wrap wraps an existing error with a RelayError
func Wrap(kind Kind, code, status int, message string, cause error) *RelayError {
	return &RelayError{
		Kind:    kind,
		Code:    code,
		Status:  status,
		Message: message,
		Cause:   cause,
	}
}

// MissingField returns the error for a forward request without username,
// apiaccesskey or action.
func MissingField() *RelayError {
	return New(KindMissingField, ExitInvalidInput, http.StatusBadRequest, MissingFieldsMessage)
}

// InvalidBody returns an error for an inbound body that cannot be decoded
func InvalidBody(message string, cause error) *RelayError {
	return Wrap(KindInvalidBody, ExitInvalidInput, http.StatusBadRequest, message, cause)
}

// BodyTooLarge returns an error for an inbound body over the size limit
func BodyTooLarge(limit int64) *RelayError {
	return New(KindInvalidBody, ExitInvalidInput, http.StatusRequestEntityTooLarge,
		fmt.Sprintf("request entity too large (limit %d bytes)", limit))
}

// RelayFailure wraps any failure while building, sending or parsing the
// upstream call. The caller sees the cause's message unchanged.
func RelayFailure(cause error) *RelayError {
	return Wrap(KindRelayFailure, ExitUpstreamError, http.StatusInternalServerError, "", cause)
}

// DecodeFailure wraps a base64 decode failure on the debug path
func DecodeFailure(cause error) *RelayError {
	return Wrap(KindDecodeFailure, ExitInvalidInput, http.StatusOK, "decode error", cause)
}

// ConfigError returns an error for configuration issues
func ConfigError(message string, cause error) *RelayError {
	return Wrap(KindConfig, ExitConfigError, http.StatusInternalServerError, message, cause)
}

// GetExitCode extracts the exit code from an error
func GetExitCode(err error) int {
	var relayErr *RelayError
	if errors.As(err, &relayErr) {
		return relayErr.ExitCode()
	}
	return ExitGeneralError
}

// HTTPStatus extracts the HTTP status from an error chain. Untyped errors
// map to 500.
func HTTPStatus(err error) int {
	var relayErr *RelayError
	if errors.As(err, &relayErr) {
		return relayErr.HTTPStatus()
	}
	return http.StatusInternalServerError
}

// IsKind reports whether err carries a RelayError of the given kind
func IsKind(err error, kind Kind) bool {
	var relayErr *RelayError
	return errors.As(err, &relayErr) && relayErr.Kind == kind
}

// Is checks if an error is of a specific type
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target any) bool {
	return errors.As(err, target)
}
