package becomap

import (
	stderrors "errors"
	"net/http"
)

// Code is a machine-readable bridge error code.
type Code string

const (
	// Initialization failures
	CodeInitFailed          Code = "INIT_FAILED"
	CodeInitTimeout         Code = "INIT_TIMEOUT"
	CodeSiteDataUnavailable Code = "SITE_DATA_UNAVAILABLE"
	CodeInvalidOptions      Code = "INVALID_OPTIONS"

	// Validation failures, detected before anything crosses the wire
	CodeMissingParameter Code = "MISSING_PARAMETER"
	CodeInvalidParameter Code = "INVALID_PARAMETER"
	CodeOutOfRange       Code = "OUT_OF_RANGE"
	CodeQueryTooLong     Code = "QUERY_TOO_LONG"
	CodeTooManyWaypoints Code = "TOO_MANY_WAYPOINTS"

	// Network failures
	CodeNetworkTimeout Code = "NETWORK_TIMEOUT"
	CodeUnauthorized   Code = "UNAUTHORIZED"

	// Bridge channel failures
	CodeChannelUnavailable Code = "CHANNEL_UNAVAILABLE"
	CodeSendFailed         Code = "SEND_FAILED"
	CodeQueueOverflow      Code = "QUEUE_OVERFLOW"
	CodePayloadTooLarge    Code = "PAYLOAD_TOO_LARGE"

	// Routing failures
	CodeRouteNotFound    Code = "ROUTE_NOT_FOUND"
	CodeInvalidWaypoint  Code = "INVALID_WAYPOINT"
	CodeRouteDataCorrupt Code = "ROUTE_DATA_CORRUPT"
	CodeRouteInProgress  Code = "ROUTE_IN_PROGRESS"

	// Lifecycle state failures
	CodeStateNotReady      Code = "STATE_NOT_READY"
	CodeStateDestroyed     Code = "STATE_DESTROYED"
	CodeAlreadyInitialized Code = "ALREADY_INITIALIZED"
	CodeInvalidTransition  Code = "INVALID_TRANSITION"

	// Catch-all
	CodeNotFound        Code = "NOT_FOUND"
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeInternal        Code = "INTERNAL"
)

// HTTPStatus maps a code to the status the engine REST surface answers
// with. The bridge itself never uses HTTP statuses.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeMissingParameter, CodeInvalidParameter, CodeOutOfRange,
		CodeQueryTooLong, CodeTooManyWaypoints, CodeInvalidOptions,
		CodeInvalidWaypoint, CodeInvalidArgument:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeNotFound, CodeRouteNotFound:
		return http.StatusNotFound
	case CodeRouteInProgress:
		return http.StatusConflict
	case CodeNetworkTimeout, CodeInitTimeout:
		return http.StatusGatewayTimeout
	case CodeSiteDataUnavailable, CodeChannelUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Error is the bridge error type with structured metadata.
type Error struct {
	Code     Code
	Message  string
	Metadata map[string]string
	Cause    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WithMetadata attaches context pairs and returns the error.
func (e *Error) WithMetadata(metadata map[string]string) *Error {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string, len(metadata))
	}
	for k, v := range metadata {
		e.Metadata[k] = v
	}
	return e
}

// New creates a bridge error with a code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates a bridge error that wraps an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// CodeOf extracts the bridge code from any error in the chain.
// Unclassified errors report CodeInternal; nil reports "".
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// IsCode reports whether any error in the chain carries the given code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// WireError is the error body carried inside error event payloads.
type WireError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// ErrorEvent is the payload of onError and the operation-specific error
// events. Operation names the call that failed, when known.
type ErrorEvent struct {
	Operation string    `json:"operation,omitempty"`
	Err       WireError `json:"error"`
}

// ToWire converts a bridge error for transmission.
func (e *Error) ToWire() WireError {
	return WireError{
		Code:    string(e.Code),
		Message: e.Message,
		Details: e.Metadata,
	}
}

// FromWire rebuilds a bridge error from a received error body.
func FromWire(w WireError) *Error {
	code := Code(w.Code)
	if code == "" {
		code = CodeInternal
	}
	return &Error{Code: code, Message: w.Message, Metadata: w.Details}
}
