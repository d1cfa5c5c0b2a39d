package marketo

import (
	"context"
	"encoding/json"
	"net/url"
	"sync"
	"time"

	"github.com/Sternrassler/marketo-client/pkg/client"
)

// call is one request seen by fakeTransport.
type call struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
	At     time.Time
}

// fakeTransport records calls and answers them with handler.
type fakeTransport struct {
	mu      sync.Mutex
	calls   []call
	handler func(c call) (*client.Response, error)
}

func newFakeTransport(handler func(c call) (*client.Response, error)) *fakeTransport {
	return &fakeTransport{handler: handler}
}

func (f *fakeTransport) do(method, path string, query url.Values, body any) (*client.Response, error) {
	c := call{Method: method, Path: path, Query: query, Body: body, At: time.Now()}
	f.mu.Lock()
	f.calls = append(f.calls, c)
	f.mu.Unlock()
	return f.handler(c)
}

func (f *fakeTransport) Get(_ context.Context, path string, query url.Values) (*client.Response, error) {
	return f.do("GET", path, query, nil)
}

func (f *fakeTransport) Post(_ context.Context, path string, query url.Values) (*client.Response, error) {
	return f.do("POST", path, query, nil)
}

func (f *fakeTransport) PostJSON(_ context.Context, path string, body any, query url.Values) (*client.Response, error) {
	return f.do("POST", path, query, body)
}

func (f *fakeTransport) Delete(_ context.Context, path string, query url.Values) (*client.Response, error) {
	return f.do("DELETE", path, query, nil)
}

// Calls returns the recorded calls.
func (f *fakeTransport) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

// CallsTo returns the recorded calls for path.
func (f *fakeTransport) CallsTo(path string) []call {
	var out []call
	for _, c := range f.Calls() {
		if c.Path == path {
			out = append(out, c)
		}
	}
	return out
}

// ok builds a successful envelope carrying result.
func ok(result any) *client.Response {
	raw, err := json.Marshal(result)
	if err != nil {
		panic(err)
	}
	return &client.Response{RequestID: "req#1", Success: true, Result: raw, StatusCode: 200}
}

// paged builds a successful envelope for a token-paged read.
func paged(result any, next string, more bool) *client.Response {
	resp := ok(result)
	resp.NextPageToken = next
	resp.MoreResult = more
	return resp
}

// bodyJSON re-encodes a request body for assertions against JSON text.
func bodyJSON(body any) string {
	raw, err := json.Marshal(body)
	if err != nil {
		panic(err)
	}
	return string(raw)
}
