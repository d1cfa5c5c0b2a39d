package client

import (
	"errors"
	"testing"
)

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		name       string
		errorClass ErrorClass
		expected   bool
	}{
		{name: "client error should not retry", errorClass: ErrorClassClient, expected: false},
		{name: "validation error should not retry", errorClass: ErrorClassValidation, expected: false},
		{name: "server error should retry", errorClass: ErrorClassServer, expected: true},
		{name: "rate limit should retry", errorClass: ErrorClassRateLimit, expected: true},
		{name: "network error should retry", errorClass: ErrorClassNetwork, expected: true},
		{name: "empty error class should not retry", errorClass: "", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := shouldRetry(tt.errorClass); result != tt.expected {
				t.Errorf("shouldRetry(%q) = %v, want %v", tt.errorClass, result, tt.expected)
			}
		})
	}
}

func TestClassifyCode(t *testing.T) {
	tests := []struct {
		code     string
		expected ErrorClass
	}{
		{code: "606", expected: ErrorClassRateLimit},
		{code: "615", expected: ErrorClassRateLimit},
		{code: "604", expected: ErrorClassServer},
		{code: "608", expected: ErrorClassServer},
		{code: "713", expected: ErrorClassServer},
		{code: "607", expected: ErrorClassClient},
		{code: "1003", expected: ErrorClassValidation},
		{code: "610", expected: ErrorClassValidation},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if got := classifyCode(tt.code); got != tt.expected {
				t.Errorf("classifyCode(%q) = %q, want %q", tt.code, got, tt.expected)
			}
		})
	}
}

func TestAPIError_Error(t *testing.T) {
	tests := []struct {
		name     string
		apiError *APIError
		expected string
	}{
		{
			name: "error with wrapped error",
			apiError: &APIError{
				StatusCode: 500,
				ErrorClass: ErrorClassServer,
				Message:    "internal server error",
				Err:        errors.New("connection reset"),
			},
			expected: "marketo server error (status 500): internal server error: connection reset",
		},
		{
			name: "envelope error with code",
			apiError: &APIError{
				StatusCode: 200,
				ErrorClass: ErrorClassValidation,
				Code:       "1003",
				Message:    "Invalid data",
			},
			expected: "marketo validation error (status 200) [code 1003]: Invalid data",
		},
		{
			name: "network error without status",
			apiError: &APIError{
				ErrorClass: ErrorClassNetwork,
				Message:    "request failed",
			},
			expected: "marketo network error: request failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := tt.apiError.Error(); result != tt.expected {
				t.Errorf("Error() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestAPIError_Is(t *testing.T) {
	validation := &APIError{ErrorClass: ErrorClassValidation, Code: "1003"}
	server := &APIError{ErrorClass: ErrorClassServer}

	if !errors.Is(validation, ErrValidation) {
		t.Error("validation error should match ErrValidation")
	}
	if errors.Is(server, ErrValidation) {
		t.Error("server error should not match ErrValidation")
	}
}

func TestAPIError_Unwrap(t *testing.T) {
	wrappedErr := errors.New("wrapped error")
	apiError := &APIError{ErrorClass: ErrorClassNetwork, Err: wrappedErr}

	if apiError.Unwrap() != wrappedErr {
		t.Errorf("Unwrap() = %v, want %v", apiError.Unwrap(), wrappedErr)
	}
	if !errors.Is(apiError, wrappedErr) {
		t.Error("errors.Is should work with wrapped error")
	}
}

func TestEnvelopeError(t *testing.T) {
	resp := &Response{
		StatusCode: 200,
		Errors:     []APIErrorDetail{{Code: "615", Message: "Concurrent access limit reached"}},
	}

	apiErr := envelopeError(resp)
	if apiErr.ErrorClass != ErrorClassRateLimit {
		t.Errorf("ErrorClass = %q, want rate_limit", apiErr.ErrorClass)
	}
	if apiErr.Code != "615" {
		t.Errorf("Code = %q, want 615", apiErr.Code)
	}

	empty := envelopeError(&Response{})
	if empty.ErrorClass != ErrorClassValidation {
		t.Errorf("ErrorClass = %q, want validation for an envelope without errors", empty.ErrorClass)
	}
}
