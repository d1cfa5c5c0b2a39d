// Package testutil provides a mock Marketo REST server for tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"time"
)

// RestPrefix is the path prefix of the REST API under the instance URL.
const RestPrefix = "/rest"

// MockResponse defines the behavior for a mock Marketo endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// RecordedRequest is one request received by the mock.
type RecordedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

// MockMarketo is a configurable mock Marketo REST server. Handlers are
// registered by API path without the /rest prefix.
type MockMarketo struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)
	requests []RecordedRequest
}

// NewMockMarketo creates a new mock Marketo server.
func NewMockMarketo() *MockMarketo {
	mock := &MockMarketo{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, RestPrefix)
		body, _ := io.ReadAll(r.Body)

		mock.mu.Lock()
		mock.requests = append(mock.requests, RecordedRequest{
			Method: r.Method,
			Path:   path,
			Query:  r.URL.Query(),
			Header: r.Header.Clone(),
			Body:   body,
		})
		handler, exists := mock.handlers[path]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}

		// Default handler
		writeJSON(w, http.StatusOK, Envelope(nil))
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockMarketo) URL() string {
	return m.server.URL
}

// BaseURL returns the REST base URL to configure clients with.
func (m *MockMarketo) BaseURL() string {
	return m.server.URL + RestPrefix
}

// Close shuts down the mock server.
func (m *MockMarketo) Close() {
	m.server.Close()
}

// Reset clears the recorded requests.
func (m *MockMarketo) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockMarketo) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a fixed response for a path.
func (m *MockMarketo) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		if resp.StatusCode == 0 {
			resp.StatusCode = http.StatusOK
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetResult answers path with a successful envelope carrying result.
func (m *MockMarketo) SetResult(path string, result any) {
	m.SetResponse(path, NewSuccessResponse(result))
}

// SetSequence answers successive requests to path with resps in order,
// repeating the last one.
func (m *MockMarketo) SetSequence(path string, resps ...MockResponse) {
	var mu sync.Mutex
	n := 0
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		resp := resps[min(n, len(resps)-1)]
		n++
		mu.Unlock()

		w.WriteHeader(resp.StatusCode)
		w.Write([]byte(resp.Body))
	})
}

// Requests returns the recorded requests to path, or all requests when path
// is empty.
func (m *MockMarketo) Requests(path string) []RecordedRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []RecordedRequest
	for _, r := range m.requests {
		if path == "" || r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockMarketo) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.requests)
}

// Envelope renders a successful Marketo envelope carrying result.
func Envelope(result any) string {
	env := map[string]any{
		"requestId": "e42b#14272d07d78",
		"success":   true,
	}
	if result != nil {
		env["result"] = result
	}
	return mustJSON(env)
}

// PagedEnvelope renders a successful token-paged envelope.
func PagedEnvelope(result any, nextPageToken string, moreResult bool) string {
	env := map[string]any{
		"requestId":     "e42b#14272d07d78",
		"success":       true,
		"result":        result,
		"nextPageToken": nextPageToken,
		"moreResult":    moreResult,
	}
	return mustJSON(env)
}

// ErrorEnvelope renders a success:false envelope with one error.
func ErrorEnvelope(code, message string) string {
	return mustJSON(map[string]any{
		"requestId": "e42b#14272d07d78",
		"success":   false,
		"errors":    []map[string]string{{"code": code, "message": message}},
	})
}

// NewSuccessResponse creates a 200 response with a successful envelope.
func NewSuccessResponse(result any) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       Envelope(result),
		Headers:    map[string]string{"Content-Type": "application/json;charset=UTF-8"},
	}
}

// NewPagedResponse creates a 200 response for one page of a token-paged read.
func NewPagedResponse(result any, nextPageToken string, moreResult bool) MockResponse {
	return MockResponse{StatusCode: http.StatusOK, Body: PagedEnvelope(result, nextPageToken, moreResult)}
}

// NewErrorResponse creates a 200 response rejecting the request with code.
// Marketo reports API errors in the envelope, not the HTTP status.
func NewErrorResponse(code, message string) MockResponse {
	return MockResponse{StatusCode: http.StatusOK, Body: ErrorEnvelope(code, message)}
}

// NewRateLimitResponse creates a 606 rate limit rejection.
func NewRateLimitResponse() MockResponse {
	return NewErrorResponse("606", "Max rate limit '100' exceeded with in '20' secs")
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal server error"}`,
	}
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json;charset=UTF-8")
	w.WriteHeader(status)
	w.Write([]byte(body))
}

func mustJSON(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("testutil: marshal envelope: %v", err))
	}
	return string(raw)
}
