package wayland

import (
	"log/slog"
	"strings"
	"sync"
	"testing"
)

func TestLogger_Interface(t *testing.T) {
	// Verify that *slog.Logger implements our Logger interface
	var _ Logger = slog.Default()
}

func TestDefaultLogger(t *testing.T) {
	logger := defaultLogger()

	if logger == nil {
		t.Fatal("defaultLogger returned nil")
	}

	// Verify it's the slog default
	if logger != slog.Default() {
		t.Error("defaultLogger did not return slog.Default()")
	}
}

// mockLogger records every entry. Connections log from several goroutines.
type mockLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

type logEntry struct {
	level string
	msg   string
	args  []any
}

func (l *mockLogger) log(level, msg string, args []any) {
	l.mu.Lock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg, args: args})
	l.mu.Unlock()
}

func (l *mockLogger) Debug(msg string, args ...any) { l.log("debug", msg, args) }

func (l *mockLogger) Info(msg string, args ...any) { l.log("info", msg, args) }

func (l *mockLogger) Warn(msg string, args ...any) { l.log("warn", msg, args) }

func (l *mockLogger) Error(msg string, args ...any) { l.log("error", msg, args) }

// find returns the messages at level containing substr.
func (l *mockLogger) find(level, substr string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for _, e := range l.entries {
		if e.level == level && strings.Contains(e.msg, substr) {
			out = append(out, e.msg)
		}
	}
	return out
}

func TestLogger_CustomImplementation(t *testing.T) {
	logger := &mockLogger{}
	var _ Logger = logger

	logger.Debug("test debug", "key1", "value1")
	logger.Info("test info", "key2", "value2")
	logger.Warn("test warn", "key3", "value3")
	logger.Error("test error", "key4", "value4")

	for _, level := range []string{"debug", "info", "warn", "error"} {
		if got := logger.find(level, "test "+level); len(got) != 1 {
			t.Errorf("%s: got %d entries, want 1", level, len(got))
		}
	}
}

func TestTrace(t *testing.T) {
	logger := &mockLogger{}
	_, client := newTestPair(t, nil, LoggerOption(logger), DebugOption(true))

	if err := client.Roundtrip(); err != nil {
		t.Fatalf("Roundtrip: %v", err)
	}

	if got := logger.find("debug", " -> wl_display@1.sync(new id "); len(got) != 1 {
		t.Errorf("sent sync traced %d times: %v", len(got), logger.find("debug", "->"))
	}
	if got := logger.find("debug", "<-  wl_callback@"); len(got) != 1 {
		t.Errorf("callback done traced %d times: %v", len(got), logger.find("debug", "<-"))
	}
}

func TestTraceDisabled(t *testing.T) {
	logger := &mockLogger{}
	_, client := newTestPair(t, nil, LoggerOption(logger))

	if err := client.Roundtrip(); err != nil {
		t.Fatalf("Roundtrip: %v", err)
	}
	if got := logger.find("debug", "->"); len(got) != 0 {
		t.Errorf("tracing is off but got %v", got)
	}
}
