package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/firefly-engineering/legacy-relay/internal/audit"
	"github.com/firefly-engineering/legacy-relay/internal/errors"
)

const (
	DefaultPort         = 3000
	DefaultServiceName  = "Iraq-Server Proxy"
	DefaultUpstreamURL  = "https://iraqserver.legacy-api.io/api/"
	DefaultMaxBodyBytes = 100 * 1024 // express.json() default limit
	EnvPrefix           = "RELAY"
)

// Setting keys. Each maps to a TOML key, an environment variable
// (RELAY_<KEY>, plus PORT for the port) and a command-line flag.
const (
	KeyPort          = "port"
	KeyServiceName   = "service_name"
	KeyUpstreamURL   = "upstream_url"
	KeyDebugEndpoint = "debug_endpoint"
	KeyCORS          = "cors"
	KeyIPv4First     = "ipv4_first"
	KeyMaxBodyBytes  = "max_body_bytes"
	KeyAuditDir      = "audit_dir"
	KeyConfig        = "config"
)

// flagNames maps setting keys to the flags registered by RegisterFlags.
var flagNames = map[string]string{
	KeyPort:          "port",
	KeyServiceName:   "name",
	KeyUpstreamURL:   "upstream",
	KeyDebugEndpoint: "debug-endpoint",
	KeyCORS:          "cors",
	KeyIPv4First:     "ipv4-first",
	KeyMaxBodyBytes:  "max-body-bytes",
	KeyAuditDir:      "audit-dir",
}

// Config is the relay configuration, resolved once at startup.
type Config struct {
	Port          int    `toml:"port"`
	ServiceName   string `toml:"service_name"`
	UpstreamURL   string `toml:"upstream_url"`
	DebugEndpoint bool   `toml:"debug_endpoint"`
	CORS          bool   `toml:"cors"`
	IPv4First     bool   `toml:"ipv4_first"`
	MaxBodyBytes  int64  `toml:"max_body_bytes"`
	AuditDir      string `toml:"audit_dir"` // empty disables the audit trail
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		Port:          DefaultPort,
		ServiceName:   DefaultServiceName,
		UpstreamURL:   DefaultUpstreamURL,
		DebugEndpoint: true,
		CORS:          true,
		IPv4First:     true,
		MaxBodyBytes:  DefaultMaxBodyBytes,
	}
}

// RegisterFlags adds the named settings to fs, or every setting when no
// keys are given. Defaults shown in help text are the built-in ones; unset
// flags never override file or env values.
func RegisterFlags(fs *pflag.FlagSet, keys ...string) {
	want := func(key string) bool {
		return len(keys) == 0 || slices.Contains(keys, key)
	}

	d := Default()
	if want(KeyPort) {
		fs.Int(flagNames[KeyPort], d.Port, "Port to listen on (env PORT)")
	}
	if want(KeyServiceName) {
		fs.String(flagNames[KeyServiceName], d.ServiceName, "Service name reported by the health endpoint")
	}
	if want(KeyUpstreamURL) {
		fs.String(flagNames[KeyUpstreamURL], d.UpstreamURL, "Upstream API URL")
	}
	if want(KeyDebugEndpoint) {
		fs.Bool(flagNames[KeyDebugEndpoint], d.DebugEndpoint, "Serve POST /api/debug")
	}
	if want(KeyCORS) {
		fs.Bool(flagNames[KeyCORS], d.CORS, "Allow cross-origin requests")
	}
	if want(KeyIPv4First) {
		fs.Bool(flagNames[KeyIPv4First], d.IPv4First, "Prefer IPv4 addresses when dialing the upstream")
	}
	if want(KeyMaxBodyBytes) {
		fs.Int64(flagNames[KeyMaxBodyBytes], d.MaxBodyBytes, "Maximum inbound body size in bytes")
	}
	if want(KeyAuditDir) {
		fs.String(flagNames[KeyAuditDir], d.AuditDir, "Directory for the audit trail (empty disables it)")
	}
}

// Load resolves the configuration. Precedence, lowest first: built-in
// defaults, the TOML file at path (or $RELAY_CONFIG), environment variables,
// then flags in fs that were set explicitly. fs may be nil.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	if err := v.BindEnv(KeyPort, "RELAY_PORT", "PORT"); err != nil {
		return nil, errors.ConfigError("failed to bind PORT", err)
	}

	if path == "" {
		path = v.GetString(KeyConfig)
	}
	if path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if fs != nil {
		for key, name := range flagNames {
			if flag := fs.Lookup(name); flag != nil {
				if err := v.BindPFlag(key, flag); err != nil {
					return nil, errors.ConfigError(fmt.Sprintf("failed to bind flag --%s", name), err)
				}
			}
		}
	}

	if err := applyOverrides(v, cfg); err != nil {
		return nil, err
	}

	if cfg.AuditDir != "" {
		abs, err := filepath.Abs(cfg.AuditDir)
		if err != nil {
			return nil, errors.ConfigError("invalid audit_dir", err)
		}
		cfg.AuditDir = abs
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFile decodes a TOML file over cfg. Keys the file sets replace the
// current values; unknown keys are rejected.
func loadFile(path string, cfg *Config) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return errors.ConfigError(fmt.Sprintf("failed to read config file %s", path), err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return errors.ConfigError(fmt.Sprintf("unknown keys in config file %s: %s", path, strings.Join(keys, ", ")), nil)
	}
	return nil
}

func applyOverrides(v *viper.Viper, cfg *Config) error {
	var err error
	setInt := func(key string, dst *int) {
		if err != nil || !v.IsSet(key) {
			return
		}
		n, perr := strconv.Atoi(strings.TrimSpace(v.GetString(key)))
		if perr != nil {
			err = errors.ConfigError(fmt.Sprintf("invalid %s", key), perr)
			return
		}
		*dst = n
	}
	setInt64 := func(key string, dst *int64) {
		if err != nil || !v.IsSet(key) {
			return
		}
		n, perr := strconv.ParseInt(strings.TrimSpace(v.GetString(key)), 10, 64)
		if perr != nil {
			err = errors.ConfigError(fmt.Sprintf("invalid %s", key), perr)
			return
		}
		*dst = n
	}
	setBool := func(key string, dst *bool) {
		if err != nil || !v.IsSet(key) {
			return
		}
		b, perr := strconv.ParseBool(strings.TrimSpace(v.GetString(key)))
		if perr != nil {
			err = errors.ConfigError(fmt.Sprintf("invalid %s", key), perr)
			return
		}
		*dst = b
	}
	setString := func(key string, dst *string) {
		if err != nil || !v.IsSet(key) {
			return
		}
		*dst = v.GetString(key)
	}

	setInt(KeyPort, &cfg.Port)
	setString(KeyServiceName, &cfg.ServiceName)
	setString(KeyUpstreamURL, &cfg.UpstreamURL)
	setBool(KeyDebugEndpoint, &cfg.DebugEndpoint)
	setBool(KeyCORS, &cfg.CORS)
	setBool(KeyIPv4First, &cfg.IPv4First)
	setInt64(KeyMaxBodyBytes, &cfg.MaxBodyBytes)
	setString(KeyAuditDir, &cfg.AuditDir)
	return err
}

// Validate checks that the Config is usable.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return errors.ConfigError(fmt.Sprintf("port must be between 1 and 65535 (got %d)", c.Port), nil)
	}
	if strings.TrimSpace(c.ServiceName) == "" {
		return errors.ConfigError("service_name is required", nil)
	}
	if c.MaxBodyBytes <= 0 {
		return errors.ConfigError(fmt.Sprintf("max_body_bytes must be positive (got %d)", c.MaxBodyBytes), nil)
	}

	u, err := url.Parse(c.UpstreamURL)
	if err != nil {
		return errors.ConfigError("invalid upstream_url", err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return errors.ConfigError(fmt.Sprintf("upstream_url must use http or https (got %q)", u.Scheme), nil)
	}
	if u.Host == "" {
		return errors.ConfigError("upstream_url must include a host", nil)
	}
	return nil
}

// ListenAddr returns the address the relay binds to.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// AuditLogPath returns the active audit file, or "" when auditing is off.
func (c *Config) AuditLogPath() string {
	if c.AuditDir == "" {
		return ""
	}
	return filepath.Join(c.AuditDir, audit.DefaultFileName)
}

// ResolveAuditFile resolves name (for example a rotated "relay.events.jsonl.1")
// inside the audit directory. Names that would escape it are clamped to it.
func (c *Config) ResolveAuditFile(name string) (string, error) {
	if c.AuditDir == "" {
		return "", errors.ConfigError("audit_dir is not configured", nil)
	}
	if name == "" {
		name = audit.DefaultFileName
	}
	path, err := securejoin.SecureJoin(c.AuditDir, name)
	if err != nil {
		return "", errors.ConfigError(fmt.Sprintf("invalid audit file %q", name), err)
	}
	return path, nil
}
