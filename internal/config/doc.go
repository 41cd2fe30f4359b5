// Package config resolves the relay configuration.
//
// # Sources
//
// Settings are layered, lowest precedence first:
//
//  1. Built-in defaults (port 3000, the legacy upstream URL, debug endpoint on)
//  2. A TOML file given by --config or $RELAY_CONFIG
//  3. Environment variables: PORT (or RELAY_PORT), RELAY_SERVICE_NAME,
//     RELAY_UPSTREAM_URL, RELAY_DEBUG_ENDPOINT, RELAY_CORS, RELAY_IPV4_FIRST,
//     RELAY_MAX_BODY_BYTES, RELAY_AUDIT_DIR
//  4. Flags registered with RegisterFlags that were set on the command line
//
// # File Format
//
//	port = 3000
//	service_name = "Iraq-Server Proxy"
//	upstream_url = "https://iraqserver.legacy-api.io/api/"
//	debug_endpoint = true
//	cors = true
//	ipv4_first = true
//	max_body_bytes = 102400
//	audit_dir = "/var/log/legacy-relay"
//
// Unknown keys are rejected so typos surface at startup.
//
// # Validation
//
// Load validates the result: the port must be in range, the upstream URL
// must be absolute http(s), and the body limit must be positive. All
// failures are errors.ConfigError values.
package config
