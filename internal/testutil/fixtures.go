package testutil

import (
	"embed"
	"os"
	"path/filepath"
	"testing"
)

//go:embed fixtures/*
var fixturesFS embed.FS

// Fixture names.
const (
	ForwardRequest       = "forward_request.json"
	MissingFieldsRequest = "missing_fields_request.json"
	DebugRequest         = "debug_request.json"
	RelayConfig          = "relay.toml"
)

// ForwardRequestBody is the upstream body the relay builds from ForwardRequest.
const ForwardRequestBody = "username=demo-user&apiaccesskey=demo-key&action=getBalance&currency=IQD&note=monthly+report"

// DebugRequestXML is the decoded "parameters" field of DebugRequest.
const DebugRequestXML = `<report id="7"/>`

// LoadFixture loads a fixture file by name.
func LoadFixture(name string) ([]byte, error) {
	return fixturesFS.ReadFile("fixtures/" + name)
}

// MustFixture loads a fixture or fails the test.
func MustFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := LoadFixture(name)
	if err != nil {
		t.Fatalf("Failed to load fixture %s: %v", name, err)
	}
	return data
}

// WriteFixture copies a fixture into a temporary directory and returns its
// path.
func WriteFixture(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, MustFixture(t, name), 0644); err != nil {
		t.Fatalf("Failed to write fixture %s: %v", name, err)
	}
	return path
}
