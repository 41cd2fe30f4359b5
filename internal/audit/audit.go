// Package audit records relay activity as JSON Lines with size-based rotation.
// Entries carry request metadata only; credentials and bodies are never written.
package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EventType classifies a relay event.
type EventType string

const (
	EventForward EventType = "forward"
	EventReject  EventType = "reject"
	EventFailure EventType = "failure"
	EventDebug   EventType = "debug"
)

// DefaultFileName is the name of the active audit file inside the audit directory.
const DefaultFileName = "relay.events.jsonl"

const (
	defaultMaxSize = 50 * 1024 * 1024 // 50 MiB
	keepFiles      = 3                // keep current + 3 rotated files

	// MaxLineSize bounds one event line when reading. It must exceed the
	// largest inbound body, since param_keys can grow with it.
	MaxLineSize = 4 * 1024 * 1024
)

// Event represents a single audit log entry.
type Event struct {
	Timestamp  time.Time     `json:"timestamp"`
	Type       EventType     `json:"type"`
	RequestID  string        `json:"request_id,omitempty"`
	Action     string        `json:"action,omitempty"`
	ParamKeys  []string      `json:"param_keys,omitempty"`
	BodyLength int           `json:"body_length"`
	StatusCode int           `json:"status_code"`
	Duration   time.Duration `json:"duration_ns"`
	RemoteAddr string        `json:"remote_addr,omitempty"`
	Error      string        `json:"error,omitempty"`
}

// Logger appends events to a file, rotating it once it grows past MaxSize.
// It is safe for concurrent use.
type Logger struct {
	path    string
	maxSize int64
	file    *os.File
	size    int64
	mu      sync.Mutex
}

// Open opens (or creates) the audit file at path.
func Open(path string) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create audit log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}

	var size int64
	if info, err := f.Stat(); err == nil {
		size = info.Size()
	}

	return &Logger{
		path:    path,
		maxSize: defaultMaxSize,
		file:    f,
		size:    size,
	}, nil
}

// SetMaxSize changes the rotation threshold. Zero disables rotation.
func (l *Logger) SetMaxSize(n int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.maxSize = n
}

// Path returns the active audit file.
func (l *Logger) Path() string {
	return l.path
}

// Log appends an event.
func (l *Logger) Log(event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	data = append(data, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	n, err := l.file.Write(data)
	l.size += int64(n)
	if err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}

	if l.maxSize > 0 && l.size >= l.maxSize {
		if err := l.rotate(); err != nil {
			return fmt.Errorf("failed to rotate audit log: %w", err)
		}
	}
	return nil
}

// rotate shifts path.2 -> path.3, path.1 -> path.2, path -> path.1 and
// reopens path. Must be called with mu held.
func (l *Logger) rotate() error {
	if err := l.file.Close(); err != nil {
		return err
	}

	for i := keepFiles; i > 0; i-- {
		dst := fmt.Sprintf("%s.%d", l.path, i)
		src := l.path
		if i > 1 {
			src = fmt.Sprintf("%s.%d", l.path, i-1)
		}
		if err := os.Rename(src, dst); err != nil && !os.IsNotExist(err) {
			return err
		}
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	l.file = f
	l.size = 0
	return nil
}

// Close closes the underlying file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

// ReadEvents reads all events from an audit file in the order they were
// written. A missing file yields no events.
func ReadEvents(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxLineSize)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var event Event
		if err := json.Unmarshal(line, &event); err != nil {
			continue // Skip malformed lines
		}
		events = append(events, event)
	}

	if err := scanner.Err(); err != nil {
		return events, fmt.Errorf("error reading audit log: %w", err)
	}

	return events, nil
}

// Filter returns the events whose action matches. An empty action matches
// everything.
func Filter(events []Event, action string) []Event {
	if action == "" {
		return events
	}
	var out []Event
	for _, e := range events {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}
