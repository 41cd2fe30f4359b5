package audit

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func openTestLogger(t *testing.T) *Logger {
	t.Helper()
	logger, err := Open(filepath.Join(t.TempDir(), "audit", DefaultFileName))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { logger.Close() })
	return logger
}

func TestLogger_LogAndRead(t *testing.T) {
	logger := openTestLogger(t)

	now := time.Now().Truncate(time.Millisecond)
	events := []Event{
		{Timestamp: now, Type: EventForward, Action: "login", ParamKeys: []string{"foo"}, BodyLength: 45, StatusCode: 200},
		{Timestamp: now.Add(time.Second), Type: EventReject, StatusCode: 400, Error: "Missing required fields: username, apiaccesskey, action"},
		{Timestamp: now.Add(2 * time.Second), Type: EventFailure, Action: "balance", StatusCode: 500, Error: "connection refused"},
	}

	for _, e := range events {
		if err := logger.Log(e); err != nil {
			t.Fatalf("Log failed: %v", err)
		}
	}

	result, err := ReadEvents(logger.Path())
	if err != nil {
		t.Fatalf("ReadEvents failed: %v", err)
	}

	if len(result) != len(events) {
		t.Fatalf("got %d events, want %d", len(result), len(events))
	}

	for i, e := range result {
		if e.Type != events[i].Type {
			t.Errorf("event %d: type = %q, want %q", i, e.Type, events[i].Type)
		}
		if e.Action != events[i].Action {
			t.Errorf("event %d: action = %q, want %q", i, e.Action, events[i].Action)
		}
		if e.StatusCode != events[i].StatusCode {
			t.Errorf("event %d: status = %d, want %d", i, e.StatusCode, events[i].StatusCode)
		}
		if e.Error != events[i].Error {
			t.Errorf("event %d: error = %q, want %q", i, e.Error, events[i].Error)
		}
	}
}

func TestLogger_TimestampDefaulted(t *testing.T) {
	logger := openTestLogger(t)

	if err := logger.Log(Event{Type: EventDebug}); err != nil {
		t.Fatalf("Log failed: %v", err)
	}

	events, err := ReadEvents(logger.Path())
	if err != nil {
		t.Fatalf("ReadEvents failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if events[0].Timestamp.IsZero() {
		t.Error("timestamp should be set automatically")
	}
}

func TestReadEvents_Missing(t *testing.T) {
	events, err := ReadEvents(filepath.Join(t.TempDir(), "nope.jsonl"))
	if err != nil {
		t.Fatalf("ReadEvents failed: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("got %d events, want 0", len(events))
	}
}

func TestReadEvents_SkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	content := strings.Join([]string{
		`{"type":"forward","action":"login","status_code":200}`,
		`not json`,
		``,
		`{"type":"reject","status_code":400}`,
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	events, err := ReadEvents(path)
	if err != nil {
		t.Fatalf("ReadEvents failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
}

func TestReadEvents_LongLine(t *testing.T) {
	logger := openTestLogger(t)

	keys := make([]string, 20000)
	for i := range keys {
		keys[i] = fmt.Sprintf("param_%05d", i)
	}
	if err := logger.Log(Event{Type: EventForward, Action: "bulk", ParamKeys: keys}); err != nil {
		t.Fatalf("Log failed: %v", err)
	}
	if err := logger.Log(Event{Type: EventForward, Action: "after"}); err != nil {
		t.Fatalf("Log failed: %v", err)
	}

	info, err := os.Stat(logger.Path())
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() <= 100*1024 {
		t.Fatalf("audit file is %d bytes, want a line longer than 100 KiB", info.Size())
	}

	got, err := ReadEvents(logger.Path())
	if err != nil {
		t.Fatalf("ReadEvents failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	if len(got[0].ParamKeys) != len(keys) {
		t.Errorf("ParamKeys has %d entries, want %d", len(got[0].ParamKeys), len(keys))
	}
	if got[1].Action != "after" {
		t.Errorf("second event Action = %q, want after", got[1].Action)
	}
}

func TestLogger_Rotation(t *testing.T) {
	logger := openTestLogger(t)
	logger.SetMaxSize(1)

	for i := 0; i < 5; i++ {
		if err := logger.Log(Event{Type: EventForward, Action: "a"}); err != nil {
			t.Fatalf("Log %d failed: %v", i, err)
		}
	}

	for i := 1; i <= keepFiles; i++ {
		rotated := logger.Path() + "." + string(rune('0'+i))
		if _, err := os.Stat(rotated); err != nil {
			t.Errorf("expected rotated file %s: %v", rotated, err)
		}
	}
	if _, err := os.Stat(logger.Path() + ".4"); !os.IsNotExist(err) {
		t.Errorf("expected at most %d rotated files", keepFiles)
	}

	// Every write rotated, so the active file is empty
	events, err := ReadEvents(logger.Path())
	if err != nil {
		t.Fatalf("ReadEvents failed: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("got %d events in active file, want 0", len(events))
	}
}

func TestLogger_ConcurrentWrites(t *testing.T) {
	logger := openTestLogger(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = logger.Log(Event{Type: EventForward, Action: "concurrent"})
		}()
	}
	wg.Wait()

	events, err := ReadEvents(logger.Path())
	if err != nil {
		t.Fatalf("ReadEvents failed: %v", err)
	}
	if len(events) != 20 {
		t.Errorf("got %d events, want 20", len(events))
	}
}

func TestFilter(t *testing.T) {
	events := []Event{
		{Type: EventForward, Action: "login"},
		{Type: EventForward, Action: "balance"},
		{Type: EventFailure, Action: "login"},
	}

	if got := Filter(events, ""); len(got) != 3 {
		t.Errorf("Filter(\"\") = %d events, want 3", len(got))
	}
	if got := Filter(events, "login"); len(got) != 2 {
		t.Errorf("Filter(login) = %d events, want 2", len(got))
	}
	if got := Filter(events, "missing"); len(got) != 0 {
		t.Errorf("Filter(missing) = %d events, want 0", len(got))
	}
}
