// Package testutil provides test utilities for relay tests
package testutil

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// UpstreamRequest is one request received by a fake upstream.
type UpstreamRequest struct {
	Method      string
	ContentType string
	Body        string
}

// Upstream is a fake legacy API. It records every request and answers each
// with the configured status and body.
type Upstream struct {
	Server *httptest.Server

	mu       sync.Mutex
	requests []UpstreamRequest
	status   int
	body     string
}

// NewUpstream starts a TLS fake upstream replying with status and body. It
// is closed when the test ends.
func NewUpstream(t *testing.T, status int, body string) *Upstream {
	t.Helper()

	u := &Upstream{status: status, body: body}
	u.Server = httptest.NewTLSServer(http.HandlerFunc(u.serve))
	t.Cleanup(u.Server.Close)
	return u
}

func (u *Upstream) serve(w http.ResponseWriter, r *http.Request) {
	data, _ := io.ReadAll(r.Body)

	u.mu.Lock()
	u.requests = append(u.requests, UpstreamRequest{
		Method:      r.Method,
		ContentType: r.Header.Get("Content-Type"),
		Body:        string(data),
	})
	status, body := u.status, u.body
	u.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	io.WriteString(w, body)
}

// URL returns the upstream's base URL.
func (u *Upstream) URL() string {
	return u.Server.URL
}

// Transport returns a transport that trusts the upstream's certificate.
func (u *Upstream) Transport() http.RoundTripper {
	return u.Server.Client().Transport
}

// Requests returns the requests received so far.
func (u *Upstream) Requests() []UpstreamRequest {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]UpstreamRequest(nil), u.requests...)
}
