package logging

import (
	"log/slog"
	"testing"
)

func resetLogging() {
	mutex.Lock()
	moduleLoggers = make(map[string]*slog.Logger)
	moduleLevelVars = make(map[string]*slog.LevelVar)
	isInitialized = false
	logHistory = nil
	mutex.Unlock()
}

func TestModuleLevelOverride(t *testing.T) {
	resetLogging()
	Initialize(Config{
		Level:  "info",
		Format: "text",
		Modules: map[string]string{
			"hal":  "debug",
			"v4l2": "warn",
		},
	})

	tests := []struct {
		module    string
		wantDebug bool
		wantInfo  bool
	}{
		{"hal", true, true},
		{"v4l2", false, false},
		{"other", false, true},
	}

	for _, tt := range tests {
		logger := GetLogger(tt.module)
		if got := logger.Enabled(nil, slog.LevelDebug); got != tt.wantDebug {
			t.Errorf("module %s debug enabled = %v, want %v", tt.module, got, tt.wantDebug)
		}
		if got := logger.Enabled(nil, slog.LevelInfo); got != tt.wantInfo {
			t.Errorf("module %s info enabled = %v, want %v", tt.module, got, tt.wantInfo)
		}
		if !logger.Enabled(nil, slog.LevelError) {
			t.Errorf("module %s error logging should always be enabled", tt.module)
		}
	}
}

func TestGetLoggerBeforeInitialize(t *testing.T) {
	resetLogging()

	logger := GetLogger("early")
	if logger == nil {
		t.Fatal("GetLogger() before Initialize = nil")
	}
	if logger.Enabled(nil, slog.LevelDebug) {
		t.Error("pre-initialize logger should default to info level")
	}
}

func TestSetModuleLevel(t *testing.T) {
	resetLogging()
	Initialize(Config{Level: "info", Format: "text"})

	logger := GetLogger("hal")
	if logger.Enabled(nil, slog.LevelDebug) {
		t.Fatal("hal should start at info level")
	}
	if !SetModuleLevel("hal", "debug") {
		t.Fatal("SetModuleLevel() = false, want true")
	}
	if !logger.Enabled(nil, slog.LevelDebug) {
		t.Error("hal should log debug after SetModuleLevel")
	}
	if SetModuleLevel("hal", "nonsense") {
		t.Error("SetModuleLevel with bad level = true, want false")
	}
	if SetModuleLevel("unknown", "debug") {
		t.Error("SetModuleLevel for unknown module = true, want false")
	}
}

func TestHistoryCapturesEntries(t *testing.T) {
	resetLogging()
	Initialize(Config{Level: "info", Format: "text"})

	GetLogger("hal").Info("camera opened", "camera", 0)

	history := GetHistory()
	if history == nil {
		t.Fatal("GetHistory() = nil after Initialize")
	}
	entries := history.Snapshot()
	if len(entries) == 0 {
		t.Fatal("history is empty after logging")
	}
	last := entries[len(entries)-1]
	if last.Module != "hal" {
		t.Errorf("entry module = %q, want %q", last.Module, "hal")
	}
	if last.Message != "camera opened" {
		t.Errorf("entry message = %q, want %q", last.Message, "camera opened")
	}
}

func TestHistoryWindow(t *testing.T) {
	history := NewHistory(3)
	for i := 0; i < 5; i++ {
		history.Append(LogEntry{Message: string(rune('a' + i))})
	}

	if history.Len() != 3 {
		t.Fatalf("Len() = %d, want capacity 3", history.Len())
	}
	snapshot := history.Snapshot()
	want := []string{"c", "d", "e"}
	for i, entry := range snapshot {
		if entry.Message != want[i] {
			t.Errorf("snapshot[%d] = %q, want %q", i, entry.Message, want[i])
		}
	}

	tail := history.Tail(2)
	if len(tail) != 2 || tail[0].Message != "d" || tail[1].Message != "e" {
		t.Errorf("Tail(2) = %v, want the two newest entries", tail)
	}
	if got := history.Tail(10); len(got) != 3 {
		t.Errorf("Tail(10) returned %d entries, want all 3 held", len(got))
	}
}
