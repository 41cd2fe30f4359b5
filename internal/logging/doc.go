// Package logging provides logging utilities for legacy-relay.
//
// This package provides two categories of output:
//   - Debug logging: Structured logs for debugging (via slog)
//   - User output: Formatted messages for end users
//
// # Debug Logging
//
// Debug logs are written using slog and controlled by verbosity settings:
//
//	logging.Debug("forwarding request", "action", action, "request_id", id)
//	logging.Warn("upstream returned error status", "status", resp.StatusCode)
//
// Setup also installs the logger as the slog default. Values of attributes
// named in SensitiveKeys (apiaccesskey among them) are replaced with
// Redacted by every handler.
//
// # User Output
//
// User-facing messages are formatted with status indicators:
//
//	logging.UserInfo("Starting relay on %s", addr)
//	logging.UserSuccess("%s is healthy", url)
//	logging.UserWarning("Debug endpoint is enabled")
//	logging.UserError("Health check failed: %v", err)
//
// Output destinations:
//   - UserInfo, UserSuccess: stdout
//   - UserWarning, UserError: stderr
//
// # Status Indicators
//
// User functions prepend status indicators, colored with lipgloss when
// the destination is a terminal:
//   - ℹ (info)
//   - ✓ (success)
//   - ⚠ (warning)
//   - ✗ (error)
package logging
