package relay

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/rs/cors"

	"github.com/firefly-engineering/legacy-relay/internal/audit"
	"github.com/firefly-engineering/legacy-relay/internal/config"
	"github.com/firefly-engineering/legacy-relay/internal/errors"
	"github.com/firefly-engineering/legacy-relay/internal/form"
	"github.com/firefly-engineering/legacy-relay/internal/health"
)

// Route paths
const (
	PathHealth = "/"
	PathProxy  = "/api/proxy"
	PathDebug  = "/api/debug"
)

// Config holds relay configuration
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":3000")
	ListenAddr string

	// ServiceName is reported by the health endpoint as "<name> Running"
	ServiceName string

	// UpstreamURL is the legacy API every forward request is posted to
	UpstreamURL string

	// DebugEndpoint mounts POST /api/debug
	DebugEndpoint bool

	// CORS allows cross-origin requests on every route
	CORS bool

	// IPv4First makes the default transport dial IPv4 addresses first
	IPv4First bool

	// MaxBodyBytes limits inbound bodies (0 = config.DefaultMaxBodyBytes)
	MaxBodyBytes int64

	// AuditLogPath is the path to write audit events (empty = no audit trail)
	AuditLogPath string

	// Logger for relay operations
	Logger *slog.Logger

	// Upstream replaces the HTTP upstream built from UpstreamURL.
	Upstream Upstream

	// Transport is an optional HTTP transport for the default upstream.
	// Used in tests to supply a TLS-aware transport for test servers.
	Transport http.RoundTripper
}

// FromConfig builds a relay Config from the resolved process configuration.
func FromConfig(cfg *config.Config, logger *slog.Logger) *Config {
	return &Config{
		ListenAddr:    cfg.ListenAddr(),
		ServiceName:   cfg.ServiceName,
		UpstreamURL:   cfg.UpstreamURL,
		DebugEndpoint: cfg.DebugEndpoint,
		CORS:          cfg.CORS,
		IPv4First:     cfg.IPv4First,
		MaxBodyBytes:  cfg.MaxBodyBytes,
		AuditLogPath:  cfg.AuditLogPath(),
		Logger:        logger,
	}
}

// Relay is the relay's http.Handler
type Relay struct {
	config   *Config
	upstream Upstream
	handler  http.Handler
	auditLog *audit.Logger
}

// routeFunc produces either a payload for a 200 reply or an error that
// handle converts into an error envelope.
type routeFunc func(w http.ResponseWriter, r *http.Request) (any, error)

type errorEnvelope struct {
	Error string `json:"error"`
}

// New creates a new relay instance
func New(cfg *Config) (*Relay, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = config.DefaultServiceName
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = config.DefaultMaxBodyBytes
	}

	rl := &Relay{config: cfg, upstream: cfg.Upstream}

	if rl.upstream == nil {
		if cfg.UpstreamURL == "" {
			return nil, errors.ConfigError("upstream URL is required", nil)
		}
		rl.upstream = NewHTTPUpstream(cfg.UpstreamURL, cfg.Transport, cfg.IPv4First)
	}

	if cfg.AuditLogPath != "" {
		al, err := audit.Open(cfg.AuditLogPath)
		if err != nil {
			return nil, errors.ConfigError("failed to create audit logger", err)
		}
		rl.auditLog = al
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", rl.handle(rl.health))
	mux.HandleFunc("POST "+PathProxy, rl.handle(rl.forward))
	if cfg.DebugEndpoint {
		mux.HandleFunc("POST "+PathDebug, rl.handle(rl.debug))
	}
	mux.HandleFunc("/", rl.handle(notFound))

	var h http.Handler = mux
	if cfg.CORS {
		h = cors.AllowAll().Handler(h)
	}
	rl.handler = rl.withRequestContext(recoverPanics(h))

	return rl, nil
}

// ServeHTTP implements http.Handler
func (rl *Relay) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rl.handler.ServeHTTP(w, r)
}

// Close releases the audit log, if any
func (rl *Relay) Close() error {
	if rl.auditLog != nil {
		return rl.auditLog.Close()
	}
	return nil
}

func (rl *Relay) handle(fn routeFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, err := fn(w, r)
		if err != nil {
			writeJSON(w, errors.HTTPStatus(err), errorEnvelope{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, payload)
	}
}

func (rl *Relay) health(w http.ResponseWriter, r *http.Request) (any, error) {
	return health.ForService(rl.config.ServiceName), nil
}

func notFound(w http.ResponseWriter, r *http.Request) (any, error) {
	return nil, errors.New(errors.KindGeneral, errors.ExitGeneralError, http.StatusNotFound,
		fmt.Sprintf("Cannot %s %s", r.Method, r.URL.Path))
}

// forward validates the reserved fields, posts the reshaped body upstream
// and returns the upstream JSON unchanged.
func (rl *Relay) forward(w http.ResponseWriter, r *http.Request) (any, error) {
	start := time.Now()
	logger := requestLogger(r.Context())
	event := audit.Event{
		Type:       audit.EventForward,
		RequestID:  requestID(r.Context()),
		RemoteAddr: r.RemoteAddr,
	}
	defer func() {
		event.Duration = time.Since(start)
		rl.record(logger, event)
	}()

	params, err := rl.readParams(w, r)
	if err != nil {
		event.Type, event.StatusCode, event.Error = audit.EventReject, errors.HTTPStatus(err), err.Error()
		return nil, err
	}

	reserved, rest := params.Partition(form.ReservedFields...)
	event.ParamKeys = rest.Keys()
	event.Action = reserved[form.FieldAction].Value

	for _, key := range form.ReservedFields {
		if f, ok := reserved[key]; !ok || f.Empty() {
			err := errors.MissingField()
			event.Type, event.StatusCode, event.Error = audit.EventReject, err.HTTPStatus(), err.Error()
			logger.Debug("rejected request", "missing", key)
			return nil, err
		}
	}

	body := form.Outbound(reserved, rest).Encode()
	event.BodyLength = len(body)
	logger.Info("forwarding request",
		"action", event.Action,
		"params", strings.Join(event.ParamKeys, ","),
		"body_length", len(body))

	resp, err := rl.upstream.Post(r.Context(), body)
	if err != nil {
		if !errors.IsKind(err, errors.KindRelayFailure) {
			err = errors.RelayFailure(err)
		}
		event.Type, event.StatusCode, event.Error = audit.EventFailure, errors.HTTPStatus(err), err.Error()
		logger.Error("relay error", "action", event.Action, "error", err)
		return nil, err
	}

	if resp.StatusCode >= http.StatusBadRequest {
		logger.Warn("upstream returned error status, relaying body",
			"action", event.Action,
			"status", resp.StatusCode)
	}
	event.StatusCode = http.StatusOK
	return resp.Body, nil
}

// debug echoes what forward would send, without contacting the upstream.
func (rl *Relay) debug(w http.ResponseWriter, r *http.Request) (any, error) {
	start := time.Now()
	logger := requestLogger(r.Context())

	data, err := rl.readBody(w, r)
	if err != nil {
		return nil, err
	}

	record, err := Inspect(r.Header.Get("Content-Type"), data)
	if err != nil {
		return nil, err
	}
	rl.record(logger, audit.Event{
		Type:       audit.EventDebug,
		RequestID:  requestID(r.Context()),
		ParamKeys:  record.ParamKeys,
		BodyLength: record.URLEncodedLength,
		StatusCode: http.StatusOK,
		Duration:   time.Since(start),
		RemoteAddr: r.RemoteAddr,
	})
	return record, nil
}

// readBody reads the inbound body within the size limit.
func (rl *Relay) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, rl.config.MaxBodyBytes))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, errors.BodyTooLarge(maxErr.Limit)
		}
		return nil, errors.InvalidBody("failed to read request body", err)
	}
	return data, nil
}

func (rl *Relay) readParams(w http.ResponseWriter, r *http.Request) (*form.Params, error) {
	data, err := rl.readBody(w, r)
	if err != nil {
		return nil, err
	}
	return decodeParams(r.Header.Get("Content-Type"), data)
}

func decodeParams(contentType string, data []byte) (*form.Params, error) {
	params, err := form.Decode(contentType, data)
	if err != nil {
		return nil, errors.InvalidBody("", err)
	}
	return params, nil
}

func (rl *Relay) record(logger *slog.Logger, event audit.Event) {
	if rl.auditLog == nil {
		return
	}
	if err := rl.auditLog.Log(event); err != nil {
		logger.Warn("audit log write failed", "error", err)
	}
}

// writeJSON writes payload with the given status. Raw JSON is written as
// is; HTML characters are not escaped so echoed XML stays readable.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	var data []byte
	switch p := payload.(type) {
	case json.RawMessage:
		data = p
	default:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(payload); err != nil {
			status = http.StatusInternalServerError
			buf.Reset()
			fallback, _ := json.Marshal(errorEnvelope{Error: err.Error()})
			buf.Write(fallback)
		}
		data = bytes.TrimRight(buf.Bytes(), "\n")
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}
