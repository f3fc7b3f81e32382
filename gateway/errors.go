package gateway

import "net/http"

// ErrorType mirrors the error.type field of JSON error payloads.
type ErrorType string

const (
	InvalidRequest     ErrorType = "invalid_request"     // Missing or malformed field.
	ProcessingError    ErrorType = "processing_error"    // Upstream provider or network failure.
	ServiceUnavailable ErrorType = "service_unavailable" // Upstream provider temporarily disabled.
)

// ErrorCode is a machine-readable identifier for the specific failure.
type ErrorCode string

const (
	InvalidValidationURL ErrorCode = "invalid_validation_url" // Validation URL is not an allowed Apple host.
	MissingCertificate   ErrorCode = "missing_certificate"    // Merchant identity certificate could not be loaded.
	UpstreamFailure      ErrorCode = "upstream_failure"       // Provider returned an error or could not be reached.
	CircuitOpen          ErrorCode = "circuit_open"           // Provider calls are short-circuited.
)

// Error represents a structured JSON error payload.
type Error struct {
	Type    ErrorType `json:"type"`
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Param   *string   `json:"param,omitempty"`

	status int
}

// Error makes *Error satisfy the stdlib error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// StatusCode returns the HTTP status the error is written with.
func (e *Error) StatusCode() int {
	if e == nil || e.status == 0 {
		return http.StatusInternalServerError
	}
	return e.status
}

type errorOption func(*Error)

// WithOffendingParam sets the JSON path for the field that triggered the error.
func WithOffendingParam(jsonPath string) errorOption {
	return func(er *Error) {
		er.Param = &jsonPath
	}
}

// WithStatusCode overrides the HTTP status code returned to the client.
func WithStatusCode(status int) errorOption {
	return func(er *Error) {
		er.status = status
	}
}

// NewInvalidRequestError builds a Bad Request error payload.
func NewInvalidRequestError(message string, opts ...errorOption) *Error {
	return newError(InvalidRequest, ErrorCode(InvalidRequest), message, append([]errorOption{WithStatusCode(http.StatusBadRequest)}, opts...)...)
}

// NewProcessingError builds a Bad Gateway error payload for upstream failures.
func NewProcessingError(message string, opts ...errorOption) *Error {
	return newError(ProcessingError, UpstreamFailure, message, append([]errorOption{WithStatusCode(http.StatusBadGateway)}, opts...)...)
}

// NewServiceUnavailableError builds a Service Unavailable error payload.
func NewServiceUnavailableError(message string, opts ...errorOption) *Error {
	return newError(ServiceUnavailable, CircuitOpen, message, append([]errorOption{WithStatusCode(http.StatusServiceUnavailable)}, opts...)...)
}

// NewHTTPError allows callers to control the status code explicitly.
func NewHTTPError(status int, typ ErrorType, code ErrorCode, message string, opts ...errorOption) *Error {
	return newError(typ, code, message, append(opts, WithStatusCode(status))...)
}

func newError(typ ErrorType, code ErrorCode, message string, opts ...errorOption) *Error {
	errPayload := &Error{
		Type:    typ,
		Code:    code,
		Message: message,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(errPayload)
	}
	return errPayload
}
