// Package health describes the relay's health endpoint and probes it.
//
// A running relay answers GET / with:
//
//	{"status":"ok","message":"<service-name> Running"}
//
// The server side builds this with ForService. The status command uses
// Probe to query a relay over HTTP:
//
//	result, err := health.Probe(ctx, nil, "http://localhost:3000")
//	// result.Report.Healthy(), result.Latency
package health
