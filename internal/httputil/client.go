// Package httputil carries the HTTP plumbing shared by the monitor's API
// handlers and client: a transport abstraction with a scriptable test
// double, and JSON response helpers.
package httputil

import (
	"bytes"
	"io"
	"net/http"
	"sync"
)

// HTTPClient is the transport surface the monitor client needs. Production
// code uses StandardClient; tests script a MockHTTPClient.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
	Get(url string) (*http.Response, error)
}

// StandardClient adapts *http.Client to HTTPClient. Do and Get come from
// the embedded client.
type StandardClient struct {
	*http.Client
}

// NewStandardClient wraps c, falling back to http.DefaultClient when nil.
func NewStandardClient(c *http.Client) *StandardClient {
	if c == nil {
		c = http.DefaultClient
	}
	return &StandardClient{Client: c}
}

// canned is one scripted reply: either a response or a transport error.
type canned struct {
	status int
	body   string
	err    error
}

// MockHTTPClient records every request and replays a queue of canned
// replies in order. An exhausted queue answers 200 with an empty body, so
// tests only script the exchanges they assert on.
type MockHTTPClient struct {
	mu       sync.Mutex
	requests []*http.Request
	queue    []canned
	next     int
}

// NewMockHTTPClient returns an empty mock.
func NewMockHTTPClient() *MockHTTPClient { return &MockHTTPClient{} }

// AddResponse queues a reply with the given status and body. It returns the
// mock so setups chain.
func (m *MockHTTPClient) AddResponse(status int, body string) *MockHTTPClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, canned{status: status, body: body})
	return m
}

// AddErrorResponse queues a transport-level failure.
func (m *MockHTTPClient) AddErrorResponse(err error) *MockHTTPClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, canned{err: err})
	return m
}

// Do records req and pops the next canned reply.
func (m *MockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)

	if m.next >= len(m.queue) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(bytes.NewReader(nil)),
			Header:     make(http.Header),
			Request:    req,
		}, nil
	}

	c := m.queue[m.next]
	m.next++
	if c.err != nil {
		return nil, c.err
	}
	return &http.Response{
		StatusCode: c.status,
		Body:       io.NopCloser(bytes.NewBufferString(c.body)),
		Header:     make(http.Header),
		Request:    req,
	}, nil
}

// Get issues a GET through Do.
func (m *MockHTTPClient) Get(url string) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return m.Do(req)
}

// GetRequest returns the nth recorded request, nil when out of range.
func (m *MockHTTPClient) GetRequest(n int) *http.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n < 0 || n >= len(m.requests) {
		return nil
	}
	return m.requests[n]
}

// RequestCount returns how many requests the mock has seen.
func (m *MockHTTPClient) RequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}
