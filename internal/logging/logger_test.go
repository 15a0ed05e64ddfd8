package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestConsoleHandlerPrefixesComponent(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, levelVar))

	NewComponentLogger(logger, "mover").Info("moved staging directory", String(FieldKey, "scene_a"))

	line := buf.String()
	if !strings.Contains(line, "INFO mover: moved staging directory") {
		t.Fatalf("unexpected console line: %q", line)
	}
	if !strings.Contains(line, "key=scene_a") {
		t.Fatalf("expected key attribute in %q", line)
	}
	if strings.Contains(line, "component=") {
		t.Fatalf("component should be a prefix, not an attribute: %q", line)
	}
}

func TestConsoleHandlerQuotesValues(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, levelVar))

	logger.Info("skip", String("reason", "already exists"))

	if !strings.Contains(buf.String(), `reason="already exists"`) {
		t.Fatalf("expected quoted value in %q", buf.String())
	}
}

func TestConsoleHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelWarn)
	logger := slog.New(newConsoleHandler(&buf, levelVar))

	logger.Info("ignored")
	logger.Warn("kept")

	if strings.Contains(buf.String(), "ignored") {
		t.Fatalf("info record should be filtered: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "kept") {
		t.Fatalf("warn record missing: %q", buf.String())
	}
}

func TestNewWriterLoggerUsesCallerWriter(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWriterLogger(&buf, Options{Level: "debug"})
	if err != nil {
		t.Fatalf("new writer logger: %v", err)
	}

	logger.Debug("stage log line", String(FieldStage, "intake"))

	if !strings.Contains(buf.String(), "stage log line") {
		t.Fatalf("record missing from writer: %q", buf.String())
	}
	if _, err := NewWriterLogger(&buf, Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewNopDiscards(t *testing.T) {
	logger := NewNop()
	logger.Error("nothing happens", Error(nil))
}
