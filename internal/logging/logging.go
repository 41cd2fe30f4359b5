package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Redacted replaces the value of any attribute named in SensitiveKeys.
const Redacted = "[redacted]"

// SensitiveKeys are attribute keys whose values never reach the log output,
// whatever handler is in use.
var SensitiveKeys = []string{"apiaccesskey", "password", "authorization"}

var (
	// Logger is the relay's structured logger. Setup replaces it and makes
	// it the slog default.
	Logger *slog.Logger

	// Verbose is set when debug logging is on
	Verbose bool
)

func init() {
	Logger = newLogger(os.Stderr, slog.LevelInfo, false)
}

// Setup configures the logger. verbose lowers the level to debug, jsonOutput
// switches to one JSON object per line. A nil w logs to stderr.
func Setup(verbose bool, jsonOutput bool, w io.Writer) {
	Verbose = verbose

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	if w == nil {
		w = os.Stderr
	}

	Logger = newLogger(w, level, jsonOutput)
	slog.SetDefault(Logger)
}

func newLogger(w io.Writer, level slog.Level, jsonOutput bool) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: redact,
	}
	if jsonOutput {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// redact masks sensitive attributes, including ones nested in groups.
func redact(groups []string, a slog.Attr) slog.Attr {
	for _, k := range SensitiveKeys {
		if strings.EqualFold(a.Key, k) {
			return slog.String(a.Key, Redacted)
		}
	}
	return a
}

// Debug logs at debug level
func Debug(msg string, args ...any) {
	Logger.Debug(msg, args...)
}

// Info logs at info level
func Info(msg string, args ...any) {
	Logger.Info(msg, args...)
}

// Warn logs at warn level
func Warn(msg string, args ...any) {
	Logger.Warn(msg, args...)
}

// Error logs at error level
func Error(msg string, args ...any) {
	Logger.Error(msg, args...)
}

// With returns a logger with additional attributes
func With(args ...any) *slog.Logger {
	return Logger.With(args...)
}
