// Package relay provides the HTTP relay in front of the legacy
// form-urlencoded API.
//
// Clients post JSON (or form) bodies; the relay checks the three credential
// fields, reshapes the body into application/x-www-form-urlencoded and makes
// exactly one POST to the upstream. The upstream's JSON reply is returned
// to the client unchanged.
//
// # Routes
//
//	GET  /            health: {"status":"ok","message":"<name> Running"}
//	POST /api/proxy   forward to the upstream
//	POST /api/debug   echo what would be forwarded (optional)
//
// Unknown routes reply 404 with the same {"error": "..."} envelope used by
// every failure.
//
// # Configuration
//
//	cfg := &relay.Config{
//	    ListenAddr:    ":3000",
//	    ServiceName:   "Iraq-Server Proxy",
//	    UpstreamURL:   "https://iraqserver.legacy-api.io/api/",
//	    DebugEndpoint: true,
//	    CORS:          true,
//	    IPv4First:     true,
//	    AuditLogPath:  "/var/log/legacy-relay/relay.events.jsonl",
//	}
//
// # Running the Relay
//
//	srv, err := relay.NewServer(cfg)
//	if err != nil {
//	    return err
//	}
//	go srv.Start()
//	...
//	srv.Shutdown(ctx)
//
// # Forward Body
//
// The outbound body always starts with username, apiaccesskey and action,
// in that order, followed by the remaining fields in the order the client
// sent them. The upstream call carries the inbound request's context and
// is never retried.
package relay
