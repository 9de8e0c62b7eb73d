// Package testserver provides an expectation-driven fake of the pipelined
// submission endpoint for client tests: expected requests are queued in
// order, each with a canned response, and anything out of order or left
// over fails the test.
package testserver

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

type expectation struct {
	method       string
	url          string
	responseCode int
	responseBody string
}

// TestServer wraps httptest.Server with an ordered expectation queue.
// Parallel requests are not supported; the pipeline client issues one
// submission at a time.
type TestServer struct {
	t   *testing.T
	s   *httptest.Server
	URL string

	mu    sync.Mutex
	queue []expectation
}

// NewTestServer starts a fake server bound to t.
func NewTestServer(t *testing.T) *TestServer {
	ts := &TestServer{t: t}
	ts.s = httptest.NewServer(http.HandlerFunc(ts.serve))
	ts.URL = ts.s.URL
	return ts
}

// ExpectAndRespond queues the next expected request (matched on method and
// URL) together with the response it should receive.
func (ts *TestServer) ExpectAndRespond(method, url string, responseCode int, responseBody string) *TestServer {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.queue = append(ts.queue, expectation{
		method:       method,
		url:          url,
		responseCode: responseCode,
		responseBody: responseBody,
	})
	return ts
}

func (ts *TestServer) serve(w http.ResponseWriter, r *http.Request) {
	ts.mu.Lock()
	var next *expectation
	if len(ts.queue) > 0 {
		next = &ts.queue[0]
		ts.queue = ts.queue[1:]
	}
	ts.mu.Unlock()

	if next == nil {
		w.WriteHeader(http.StatusExpectationFailed)
		ts.t.Errorf("Unexpected request %s %s", r.Method, r.URL)
		return
	}

	if next.method != r.Method || next.url != r.URL.String() {
		w.WriteHeader(http.StatusExpectationFailed)
		ts.t.Errorf("Expected request: %s %s\nGot request: %s %s", next.method, next.url, r.Method, r.URL)
		return
	}

	w.WriteHeader(next.responseCode)
	w.Write([]byte(next.responseBody))
}

// CloseAndAssertExpectations shuts the server down; any expectation never
// consumed flags a test error.
func (ts *TestServer) CloseAndAssertExpectations() {
	ts.mu.Lock()
	if len(ts.queue) > 0 {
		ts.t.Errorf("Some expected requests were never called, next one being %s %s",
			ts.queue[0].method, ts.queue[0].url)
	}
	ts.mu.Unlock()
	ts.s.Close()
}
