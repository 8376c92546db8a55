package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

// newRunTee wires loggers like a diagnostic daemon run: the run output at
// info plus the JSON debug file, both stamped with the run ID.
func newRunTee(t *testing.T) (*slog.Logger, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var console, runFile bytes.Buffer
	consoleHandler, err := NewHandler(&console, "console", "info")
	if err != nil {
		t.Fatalf("console handler: %v", err)
	}
	fileHandler, err := NewHandler(&runFile, "json", "debug")
	if err != nil {
		t.Fatalf("json handler: %v", err)
	}
	logger := WithRunID(TeeLogger(slog.New(consoleHandler), fileHandler), "run-1")
	return logger, &console, &runFile
}

func decodeRunLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var records []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var record map[string]any
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			t.Fatalf("decode %q: %v", line, err)
		}
		records = append(records, record)
	}
	return records
}

func TestRunTeeSendsDebugOnlyToDiagnosticFile(t *testing.T) {
	logger, console, runFile := newRunTee(t)
	itemLogger := logger.With(Int64(FieldItemID, 42), String(FieldComponent, "processor"))

	itemLogger.Debug("llm response received", String(FieldEventType, "llm_response"))
	itemLogger.Info("item completed", String(FieldEventType, "item_completed"))

	if strings.Contains(console.String(), "llm response received") {
		t.Fatalf("debug line leaked to console: %q", console.String())
	}
	if !strings.Contains(console.String(), "item completed") {
		t.Fatalf("expected info line on console, got %q", console.String())
	}

	records := decodeRunLines(t, runFile)
	if len(records) != 2 {
		t.Fatalf("expected 2 run file records, got %d: %s", len(records), runFile.String())
	}
	wantEvents := []string{"llm_response", "item_completed"}
	for i, record := range records {
		if record[FieldRunID] != "run-1" {
			t.Fatalf("record %d run_id = %v", i, record[FieldRunID])
		}
		if record[FieldItemID] != float64(42) || record[FieldComponent] != "processor" {
			t.Fatalf("record %d missing item fields: %v", i, record)
		}
		if record[FieldEventType] != wantEvents[i] {
			t.Fatalf("record %d event_type = %v, want %s", i, record[FieldEventType], wantEvents[i])
		}
	}
}

func TestRunTeeQuietViewKeepsRunFileSilentBelowWarn(t *testing.T) {
	logger, console, runFile := newRunTee(t)
	quiet := WithLevelOverride(logger, slog.LevelWarn)

	quiet.Info("queue item claimed", Int64(FieldItemID, 3))
	WarnWithContext(quiet, "notification failed", "notification_failed", Int64(FieldItemID, 3))

	if strings.Contains(console.String(), "claimed") || strings.Contains(runFile.String(), "claimed") {
		t.Fatalf("info should be filtered from both outputs: console=%q file=%q", console.String(), runFile.String())
	}
	records := decodeRunLines(t, runFile)
	if len(records) != 1 {
		t.Fatalf("expected one warning in run file, got %s", runFile.String())
	}
	warn := records[0]
	if warn["level"] != "warn" || warn[FieldEventType] != "notification_failed" || warn[FieldRunID] != "run-1" {
		t.Fatalf("unexpected warning record %v", warn)
	}
	if warn[FieldErrorHint] == nil || warn[FieldImpact] == nil {
		t.Fatalf("warning must carry hint and impact: %v", warn)
	}
	if !strings.Contains(console.String(), "notification failed") {
		t.Fatalf("expected warning on console, got %q", console.String())
	}
}

func TestRunTeeGroupsReachEveryOutput(t *testing.T) {
	var a, b bytes.Buffer
	h := newFanoutHandler(slog.NewJSONHandler(&a, nil), slog.NewJSONHandler(&b, nil))
	slog.New(h.WithGroup("job")).Info("queued", Int64(FieldPostID, 7))

	for name, buf := range map[string]*bytes.Buffer{"first": &a, "second": &b} {
		if !strings.Contains(buf.String(), `"job":{"post_id":7}`) {
			t.Fatalf("%s output missing grouped post_id: %s", name, buf.String())
		}
	}
}

func TestNewFanoutHandlerCollapses(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, nil)

	if _, ok := newFanoutHandler(nil, nil).(NoopHandler); !ok {
		t.Fatal("expected NoopHandler when every handler is nil")
	}
	if got := newFanoutHandler(nil, inner, nil); got != inner {
		t.Fatal("expected the single non-nil handler back unwrapped")
	}
	if got := TeeLogger(nil, inner).Handler(); got != inner {
		t.Fatal("TeeLogger with one output should not wrap it")
	}
}

func TestTeeLoggerWithoutConsole(t *testing.T) {
	var runFile bytes.Buffer
	fileHandler, err := NewHandler(&runFile, "json", "info")
	if err != nil {
		t.Fatalf("json handler: %v", err)
	}
	TeeLogger(nil, fileHandler).Info("daemon started", String(FieldEventType, "daemon_started"))

	records := decodeRunLines(t, &runFile)
	if len(records) != 1 || records[0][FieldEventType] != "daemon_started" {
		t.Fatalf("unexpected run file %s", runFile.String())
	}
}
