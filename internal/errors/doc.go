// Package errors provides typed errors for legacy-relay.
//
// # Error Types
//
// RelayError carries everything needed to report a failure either as an
// HTTP reply or as a process exit code:
//
//	type RelayError struct {
//	    Kind    Kind   // missing_field, invalid_body, relay_failure, ...
//	    Code    int    // Exit code
//	    Status  int    // HTTP status
//	    Message string // User-facing message
//	    Cause   error  // Wrapped error
//	}
//
// A RelayError with no Message reports its Cause verbatim. RelayFailure uses
// this so the caller sees the upstream or network error text unchanged.
//
// # Exit Codes
//
//	ExitSuccess       = 0  // Success
//	ExitGeneralError  = 1  // General/unknown errors
//	ExitConfigError   = 2  // Configuration error
//	ExitInvalidInput  = 3  // Request body could not be used
//	ExitUpstreamError = 4  // Upstream call failed
//
// # Error Constructors
//
//	errors.MissingField()
//	errors.InvalidBody("invalid JSON body", err)
//	errors.RelayFailure(err)
//	errors.ConfigError("invalid port", err)
//
// # Extracting Codes
//
//	http.StatusText(errors.HTTPStatus(err))
//	os.Exit(errors.GetExitCode(err))
package errors
