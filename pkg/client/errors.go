package client

import (
	"errors"
	"fmt"
	"strings"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrValidation matches any *APIError whose class is ErrorClassValidation.
	ErrValidation = errors.New("validation failed")
)

// Marketo envelope error codes with transport meaning.
const (
	CodeRateLimitExceeded   = "606"
	CodeDailyQuotaReached   = "607"
	CodeConcurrentLimit     = "615"
	CodeRequestTimedOut     = "604"
	CodeTemporarilyDisabled = "608"
	CodeTransientFailure    = "713"
)

// APIError represents a Marketo error with transport context.
type APIError struct {
	StatusCode int
	ErrorClass ErrorClass
	Code       string
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "marketo %s error", e.ErrorClass)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	if e.Code != "" {
		fmt.Fprintf(&b, " [code %s]", e.Code)
	}
	fmt.Fprintf(&b, ": %s", e.Message)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// Is reports validation errors as ErrValidation.
func (e *APIError) Is(target error) bool {
	return target == ErrValidation && e.ErrorClass == ErrorClassValidation
}

// ErrorCode returns the Marketo error code carried by err, if any.
func ErrorCode(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return ""
}

// classifyCode maps a Marketo envelope error code to an error class.
func classifyCode(code string) ErrorClass {
	switch code {
	case CodeRateLimitExceeded, CodeConcurrentLimit:
		return ErrorClassRateLimit
	case CodeRequestTimedOut, CodeTemporarilyDisabled, CodeTransientFailure:
		return ErrorClassServer
	case CodeDailyQuotaReached:
		// retrying cannot succeed before the quota window resets
		return ErrorClassClient
	default:
		return ErrorClassValidation
	}
}

// envelopeError converts a success:false envelope into an *APIError.
func envelopeError(resp *Response) *APIError {
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		ErrorClass: ErrorClassValidation,
		Message:    "request rejected",
	}
	if len(resp.Errors) > 0 {
		first := resp.Errors[0]
		apiErr.Code = first.Code
		apiErr.Message = first.Message
		apiErr.ErrorClass = classifyCode(first.Code)
	}
	return apiErr
}

// shouldRetry determines if an error should be retried based on its classification.
func shouldRetry(errorClass ErrorClass) bool {
	switch errorClass {
	case ErrorClassServer, ErrorClassRateLimit, ErrorClassNetwork:
		return true
	default:
		// 4xx and validation errors fail the same way on every attempt
		return false
	}
}
