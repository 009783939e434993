// Package errors provides unified error handling with structured error codes.
// Codes map onto gRPC status codes for the recognizer transport and onto HTTP
// status codes for the control API.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Code classifies an error.
type Code int

const (
	Unknown Code = iota
	Internal
	InvalidArgument
	NotFound
	Unavailable
	Timeout
	Cancelled
	PermissionDenied
	UnsupportedMediaType

	// Monitoring preconditions
	InvalidTarget
	NotMonitoring

	// Action blocked
	TargetNotFocused
	NoDetection
	NotStable
	Cooldown
	Busy

	// Transient frame errors
	CaptureFailed
	RecognizeFailed

	ConfigInvalid
)

var codeNames = map[Code]string{
	Unknown:              "UNKNOWN",
	Internal:             "INTERNAL",
	InvalidArgument:      "INVALID_ARGUMENT",
	NotFound:             "NOT_FOUND",
	Unavailable:          "UNAVAILABLE",
	Timeout:              "TIMEOUT",
	Cancelled:            "CANCELLED",
	PermissionDenied:     "PERMISSION_DENIED",
	UnsupportedMediaType: "UNSUPPORTED_MEDIA_TYPE",
	InvalidTarget:        "INVALID_TARGET",
	NotMonitoring:        "NOT_MONITORING",
	TargetNotFocused:     "TARGET_NOT_FOCUSED",
	NoDetection:          "NO_DETECTION",
	NotStable:            "NOT_STABLE",
	Cooldown:             "COOLDOWN",
	Busy:                 "BUSY",
	CaptureFailed:        "CAPTURE_FAILED",
	RecognizeFailed:      "RECOGNIZE_FAILED",
	ConfigInvalid:        "CONFIG_INVALID",
}

func (c Code) String() string {
	if s, ok := codeNames[c]; ok {
		return s
	}
	return fmt.Sprintf("CODE(%d)", int(c))
}

// grpcCodeMap maps error codes to gRPC status codes.
var grpcCodeMap = map[Code]codes.Code{
	Unknown:              codes.Unknown,
	Internal:             codes.Internal,
	InvalidArgument:      codes.InvalidArgument,
	NotFound:             codes.NotFound,
	Unavailable:          codes.Unavailable,
	Timeout:              codes.DeadlineExceeded,
	Cancelled:            codes.Canceled,
	PermissionDenied:     codes.PermissionDenied,
	UnsupportedMediaType: codes.InvalidArgument,
	InvalidTarget:        codes.FailedPrecondition,
	NotMonitoring:        codes.FailedPrecondition,
	TargetNotFocused:     codes.FailedPrecondition,
	NoDetection:          codes.NotFound,
	NotStable:            codes.FailedPrecondition,
	Cooldown:             codes.ResourceExhausted,
	Busy:                 codes.Aborted,
	CaptureFailed:        codes.Internal,
	RecognizeFailed:      codes.Internal,
	ConfigInvalid:        codes.InvalidArgument,
}

// httpCodeMap maps error codes to HTTP status codes for the control API.
var httpCodeMap = map[Code]int{
	InvalidArgument:      http.StatusBadRequest,
	ConfigInvalid:        http.StatusBadRequest,
	NotFound:             http.StatusNotFound,
	NoDetection:          http.StatusNotFound,
	InvalidTarget:        http.StatusPreconditionFailed,
	NotMonitoring:        http.StatusPreconditionFailed,
	TargetNotFocused:     http.StatusConflict,
	NotStable:            http.StatusConflict,
	Busy:                 http.StatusConflict,
	Cooldown:             http.StatusTooManyRequests,
	Unavailable:          http.StatusServiceUnavailable,
	Timeout:              http.StatusGatewayTimeout,
	PermissionDenied:     http.StatusForbidden,
	UnsupportedMediaType: http.StatusUnsupportedMediaType,
}

// AppError is the base error type with structured error code and metadata.
type AppError struct {
	Code     Code
	Message  string
	Metadata map[string]string
	Cause    error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	s := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if len(e.Metadata) > 0 {
		s += fmt.Sprintf(" %v", e.Metadata)
	}
	if e.Cause != nil {
		s += fmt.Sprintf(" caused by: %v", e.Cause)
	}
	return s
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *AppError) Unwrap() error { return e.Cause }

// GRPCCode returns the corresponding gRPC status code.
func (e *AppError) GRPCCode() codes.Code {
	if c, ok := grpcCodeMap[e.Code]; ok {
		return c
	}
	return codes.Unknown
}

// GRPCStatus lets status.FromError recognise AppError directly.
func (e *AppError) GRPCStatus() *status.Status {
	return status.New(e.GRPCCode(), e.Error())
}

// HTTPStatus returns the status code used by the control API.
func (e *AppError) HTTPStatus() int {
	if c, ok := httpCodeMap[e.Code]; ok {
		return c
	}
	return http.StatusInternalServerError
}

// New creates a new AppError with the given code and message.
func New(code Code, msg string) *AppError {
	return &AppError{Code: code, Message: msg}
}

// Newf creates a new AppError with formatted message.
func Newf(code Code, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error with an AppError.
func Wrap(err error, code Code, msg string) *AppError {
	return &AppError{Code: code, Message: msg, Cause: err}
}

// Wrapf wraps an existing error with formatted message.
func Wrapf(err error, code Code, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...), Cause: err}
}

// WithMetadata adds metadata to an AppError.
func (e *AppError) WithMetadata(key, value string) *AppError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}

// FromGRPCError converts a gRPC error into an AppError (best effort).
func FromGRPCError(err error) *AppError {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return &AppError{Code: Unknown, Message: err.Error(), Cause: err}
	}
	return &AppError{Code: grpcToCode(st.Code()), Message: st.Message(), Cause: err}
}

func grpcToCode(c codes.Code) Code {
	switch c {
	case codes.InvalidArgument:
		return InvalidArgument
	case codes.NotFound:
		return NotFound
	case codes.Unavailable:
		return Unavailable
	case codes.DeadlineExceeded:
		return Timeout
	case codes.Canceled:
		return Cancelled
	case codes.PermissionDenied:
		return PermissionDenied
	case codes.Internal:
		return Internal
	case codes.ResourceExhausted:
		return Unavailable
	default:
		return Unknown
	}
}

// CodeOf returns the code of the first AppError in err's chain, or Unknown.
func CodeOf(err error) Code {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return Unknown
}

// IsCode checks if an error chain carries a specific error code.
func IsCode(err error, code Code) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr) && appErr.Code == code
}

// IsRetryable returns true if the error is potentially retryable.
func IsRetryable(err error) bool {
	switch CodeOf(err) {
	case Unavailable, Timeout:
		return true
	default:
		return false
	}
}

// IsActionBlocked reports whether err is an operator action refused by a precondition.
func IsActionBlocked(err error) bool {
	switch CodeOf(err) {
	case NotMonitoring, TargetNotFocused, NoDetection, NotStable, Cooldown, Busy:
		return true
	default:
		return false
	}
}

// HTTPStatus returns the HTTP status for err (500 for foreign errors).
func HTTPStatus(err error) int {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.HTTPStatus()
	}
	return http.StatusInternalServerError
}

// MessageOf returns the message of the first AppError in err's chain, or
// err.Error() for foreign errors.
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
