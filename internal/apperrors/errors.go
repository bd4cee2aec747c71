// Package apperrors defines the error taxonomy surfaced to BigFin callers.
package apperrors

import (
	"errors"
	"fmt"
)

// Code is a machine-readable error category. Every error the core returns
// across a public boundary carries exactly one Code.
type Code string

const (
	CodeUnauthorized      Code = "UNAUTHORIZED"
	CodeForbidden         Code = "FORBIDDEN"
	CodeStepUpRequired    Code = "STEP_UP_REQUIRED"
	CodeInvalidRequest    Code = "INVALID_REQUEST"
	CodeInvalidParameter  Code = "INVALID_PARAMETER"
	CodeTermsOutOfPolicy  Code = "TERMS_OUT_OF_POLICY"
	CodeInvalidState      Code = "INVALID_STATE"
	CodeAlreadyExists     Code = "ALREADY_EXISTS"
	CodeNotFound          Code = "NOT_FOUND"
	CodeInsufficientFunds Code = "INSUFFICIENT_FUNDS"
	CodeInstrumentInvalid Code = "INSTRUMENT_INVALID"
	CodePaymentFailed     Code = "PAYMENT_FAILED"
	CodePaymentReturned   Code = "PAYMENT_RETURNED"
	CodeLimitExceeded     Code = "LIMIT_EXCEEDED"
	CodeRateLimited       Code = "RATE_LIMITED"
	CodeInternalError     Code = "INTERNAL_ERROR"
	CodeServiceUnavailable Code = "SERVICE_UNAVAILABLE"
	CodeProviderError     Code = "PROVIDER_ERROR"
)

// AppError is the concrete error type returned across every core boundary.
type AppError struct {
	Code    Code
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

// New builds an AppError without a wrapped cause.
func New(code Code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap builds an AppError carrying an underlying cause.
func Wrap(code Code, message string, cause error) *AppError {
	return &AppError{Code: code, Message: message, Err: cause}
}

// CodeOf extracts the Code from err, or CodeInternalError if err is not an
// *AppError.
func CodeOf(err error) Code {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeInternalError
}

// Is reports whether err is an *AppError carrying the given code.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}

func NotFound(message string) *AppError          { return New(CodeNotFound, message) }
func AlreadyExists(message string) *AppError     { return New(CodeAlreadyExists, message) }
func InvalidRequest(message string) *AppError    { return New(CodeInvalidRequest, message) }
func InvalidParameter(message string) *AppError  { return New(CodeInvalidParameter, message) }
func InvalidState(message string) *AppError      { return New(CodeInvalidState, message) }
func Internal(message string, cause error) *AppError {
	return Wrap(CodeInternalError, message, cause)
}
func ProviderError(message string) *AppError { return New(CodeProviderError, message) }

// ErrNotFound is a sentinel matched by repositories via errors.Is before
// they wrap the condition into a typed *AppError for callers.
var ErrNotFound = errors.New("resource not found")
