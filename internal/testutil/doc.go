// Package testutil provides test fixtures and a fake upstream.
//
// # Fixtures
//
// Request bodies and a config file are embedded using go:embed:
//
//	fixtures/forward_request.json
//	fixtures/missing_fields_request.json
//	fixtures/debug_request.json
//	fixtures/relay.toml
//
// Load one as bytes, or copy it to a temp file for code that takes a path:
//
//	body := testutil.MustFixture(t, testutil.ForwardRequest)
//	path := testutil.WriteFixture(t, testutil.RelayConfig)
//
// # Fake Upstream
//
// NewUpstream starts a TLS server that records each request:
//
//	up := testutil.NewUpstream(t, http.StatusOK, `{"ok":true}`)
//	rl, _ := relay.New(&relay.Config{UpstreamURL: up.URL(), Transport: up.Transport()})
//	...
//	reqs := up.Requests()
package testutil
