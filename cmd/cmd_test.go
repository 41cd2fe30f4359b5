package cmd

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/firefly-engineering/legacy-relay/internal/audit"
	"github.com/firefly-engineering/legacy-relay/internal/errors"
	"github.com/firefly-engineering/legacy-relay/internal/relay"
	"github.com/firefly-engineering/legacy-relay/internal/testutil"
)

// resetFlags restores every flag to its default so values and Changed state
// from one test do not leak into the next.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func executeCommand(args ...string) (string, string, error) {
	return executeCommandWithInput(nil, args...)
}

func executeCommandWithInput(stdin io.Reader, args ...string) (string, string, error) {
	resetFlags(rootCmd)

	cmd := rootCmd
	cmd.SetArgs(args)
	cmd.SetIn(stdin)

	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)

	err := cmd.Execute()

	// Reset args for next test
	cmd.SetArgs(nil)
	cmd.SetIn(nil)
	cmd.SetOut(nil)
	cmd.SetErr(nil)

	return stdout.String(), stderr.String(), err
}

// isolateEnv blanks the variables config.Load reads.
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{"PORT", "RELAY_PORT", "RELAY_CONFIG", "RELAY_UPSTREAM_URL", "RELAY_AUDIT_DIR"} {
		t.Setenv(name, "")
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

func TestRootCommand_Help(t *testing.T) {
	stdout, _, err := executeCommand("--help")
	if err != nil {
		t.Fatalf("Help command failed: %v", err)
	}

	if !strings.Contains(stdout, "legacy-relay") {
		t.Error("Help output should contain 'legacy-relay'")
	}
	for _, name := range []string{"serve", "inspect", "status", "audit-log"} {
		if !strings.Contains(stdout, name) {
			t.Errorf("Help output should list %q", name)
		}
	}
}

func TestServeCommand_Help(t *testing.T) {
	stdout, _, err := executeCommand("serve", "--help")
	if err != nil {
		t.Fatalf("Help command failed: %v", err)
	}

	for _, flag := range []string{"--port", "--upstream", "--debug-endpoint", "--cors", "--audit-dir", "--shutdown-timeout"} {
		if !strings.Contains(stdout, flag) {
			t.Errorf("Serve help should mention %s", flag)
		}
	}
}

func TestServeCommand_InvalidConfig(t *testing.T) {
	isolateEnv(t)

	_, _, err := executeCommand("serve", "--upstream", "ftp://example.com/")
	if err == nil {
		t.Fatal("expected error for ftp upstream")
	}
	if errors.GetExitCode(err) != errors.ExitConfigError {
		t.Errorf("exit code = %d, want %d", errors.GetExitCode(err), errors.ExitConfigError)
	}
}

func TestInspectCommand_File(t *testing.T) {
	isolateEnv(t)

	stdout, _, err := executeCommand("inspect", testutil.WriteFixture(t, testutil.ForwardRequest))
	if err != nil {
		t.Fatalf("inspect failed: %v", err)
	}

	var record relay.DebugRecord
	if err := json.Unmarshal([]byte(stdout), &record); err != nil {
		t.Fatalf("output is not a debug record: %v\n%s", err, stdout)
	}
	if record.URLEncodedBody != testutil.ForwardRequestBody {
		t.Errorf("url_encoded_body = %q, want %q", record.URLEncodedBody, testutil.ForwardRequestBody)
	}
	if record.DecodedParametersXML != nil {
		t.Errorf("decoded_parameters_xml = %q, want null", *record.DecodedParametersXML)
	}
}

func TestInspectCommand_DecodesParameters(t *testing.T) {
	isolateEnv(t)

	stdout, _, err := executeCommand("inspect", testutil.WriteFixture(t, testutil.DebugRequest))
	if err != nil {
		t.Fatalf("inspect failed: %v", err)
	}
	if !strings.Contains(stdout, `"decoded_parameters_xml": "<report id=\"7\"/>"`) {
		t.Errorf("unexpected output:\n%s", stdout)
	}
}

func TestInspectCommand_Stdin(t *testing.T) {
	isolateEnv(t)

	stdout, _, err := executeCommandWithInput(strings.NewReader("action=list&page=2"),
		"inspect", "--content-type", "application/x-www-form-urlencoded")
	if err != nil {
		t.Fatalf("inspect failed: %v", err)
	}

	if !strings.Contains(stdout, `"url_encoded_body": "username=&apiaccesskey=&action=list&page=2"`) {
		t.Errorf("unexpected output:\n%s", stdout)
	}
}

func TestInspectCommand_Curl(t *testing.T) {
	isolateEnv(t)
	path := writeFile(t, "body.json", `{"username":"u","apiaccesskey":"k","action":"a"}`)

	stdout, _, err := executeCommand("inspect", path, "--curl", "--upstream", "https://legacy.example.com/api/")
	if err != nil {
		t.Fatalf("inspect --curl failed: %v", err)
	}

	if !strings.HasPrefix(stdout, "curl -sS -X POST") {
		t.Errorf("expected a curl command, got %q", stdout)
	}
	for _, want := range []string{"action=a", "application/x-www-form-urlencoded", "https://legacy.example.com/api/"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("curl command should contain %q: %s", want, stdout)
		}
	}
}

func TestInspectCommand_InvalidJSON(t *testing.T) {
	isolateEnv(t)
	path := writeFile(t, "body.json", `{"username":`)

	_, _, err := executeCommand("inspect", path)
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
	if errors.GetExitCode(err) != errors.ExitInvalidInput {
		t.Errorf("exit code = %d, want %d", errors.GetExitCode(err), errors.ExitInvalidInput)
	}
}

func TestAuditLogCommand(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()

	al, err := audit.Open(filepath.Join(dir, audit.DefaultFileName))
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range []audit.Event{
		{Type: audit.EventForward, Action: "balance", StatusCode: 200, ParamKeys: []string{"x"}, Duration: time.Millisecond},
		{Type: audit.EventReject, StatusCode: 400, Error: "Missing required fields: username, apiaccesskey, action"},
		{Type: audit.EventForward, Action: "report", StatusCode: 200},
	} {
		if err := al.Log(e); err != nil {
			t.Fatal(err)
		}
	}
	if err := al.Close(); err != nil {
		t.Fatal(err)
	}

	stdout, _, err := executeCommand("audit-log", "--audit-dir", dir)
	if err != nil {
		t.Fatalf("audit-log failed: %v", err)
	}
	if lines := strings.Count(stdout, "\n"); lines != 3 {
		t.Errorf("expected 3 lines, got %d:\n%s", lines, stdout)
	}
	if !strings.Contains(stdout, "params=x") || !strings.Contains(stdout, "Missing required fields") {
		t.Errorf("unexpected output:\n%s", stdout)
	}

	stdout, _, err = executeCommand("audit-log", "--audit-dir", dir, "--action", "balance", "--json")
	if err != nil {
		t.Fatalf("audit-log --json failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 event, got %d:\n%s", len(lines), stdout)
	}
	var e audit.Event
	if err := json.Unmarshal([]byte(lines[0]), &e); err != nil {
		t.Fatalf("invalid JSON line: %v", err)
	}
	if e.Action != "balance" {
		t.Errorf("Action = %q, want balance", e.Action)
	}
}

func TestAuditLogCommand_NotConfigured(t *testing.T) {
	isolateEnv(t)

	_, _, err := executeCommand("audit-log")
	if err == nil {
		t.Fatal("expected error without an audit directory")
	}
	if errors.GetExitCode(err) != errors.ExitConfigError {
		t.Errorf("exit code = %d, want %d", errors.GetExitCode(err), errors.ExitConfigError)
	}
}

func TestStatusCommand(t *testing.T) {
	isolateEnv(t)

	rl, err := relay.New(&relay.Config{UpstreamURL: "https://legacy.example.com/api/"})
	if err != nil {
		t.Fatal(err)
	}
	server := httptest.NewServer(rl)
	defer server.Close()

	stdout, _, err := executeCommand("status", "--url", server.URL)
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if !strings.Contains(stdout, "Message: Iraq-Server Proxy Running") {
		t.Errorf("unexpected output:\n%s", stdout)
	}
}

func TestStatusCommand_Unreachable(t *testing.T) {
	isolateEnv(t)

	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	if _, _, err := executeCommand("status", "--url", url); err == nil {
		t.Fatal("expected error for unreachable relay")
	}
}

func TestCommandArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"serve takes no args", []string{"serve", "extra"}},
		{"status takes no args", []string{"status", "extra"}},
		{"inspect takes one file", []string{"inspect", "a.json", "b.json"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := executeCommand(tt.args...); err == nil {
				t.Errorf("expected error for %v", tt.args)
			}
		})
	}
}
