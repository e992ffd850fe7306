package logger

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/oggyb/coffee-chat/internal/config"
)

// capture points the global logger at a buffer for the duration of f.
func capture(t *testing.T, c config.LogConfig, f func()) string {
	t.Helper()

	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(os.Stdout) })

	InitFromConfig(&config.Config{Log: c})
	f()

	return buf.String()
}

func TestLogger_TextFormat(t *testing.T) {
	out := capture(t, config.LogConfig{Level: "debug", Format: "text", Component: "test"}, func() {
		Info("hello coffee", "key", "value")
	})

	if !strings.Contains(out, "hello coffee") {
		t.Errorf("expected message, got: %s", out)
	}
	if !strings.Contains(out, "component=test") {
		t.Errorf("expected component field, got: %s", out)
	}
	if !strings.Contains(out, "key=value") {
		t.Errorf("expected structured field, got: %s", out)
	}
}

func TestLogger_JSONFormat(t *testing.T) {
	out := capture(t, config.LogConfig{Level: "info", Format: "json", Component: "json_test"}, func() {
		Info("json log", "foo", "bar")
	})

	if !strings.Contains(out, `"msg":"json log"`) {
		t.Errorf("expected JSON message, got: %s", out)
	}
	if !strings.Contains(out, `"component":"json_test"`) {
		t.Errorf("expected component in JSON, got: %s", out)
	}
	if !strings.Contains(out, `"foo":"bar"`) {
		t.Errorf("expected structured field in JSON, got: %s", out)
	}
}

func TestLogger_LevelFilter(t *testing.T) {
	out := capture(t, config.LogConfig{Level: "error", Format: "text"}, func() {
		Info("should not appear")
		Error("should appear")
	})

	if strings.Contains(out, "should not appear") {
		t.Errorf("info log should not appear, got: %s", out)
	}
	if !strings.Contains(out, "should appear") {
		t.Errorf("error log should appear, got: %s", out)
	}
}

func TestLogger_WarnPassesInfoThreshold(t *testing.T) {
	out := capture(t, config.LogConfig{Level: "warning", Format: "text"}, func() {
		Debug("debug hidden")
		Warn("env missing")
	})

	if strings.Contains(out, "debug hidden") {
		t.Errorf("debug log should not appear, got: %s", out)
	}
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, "env missing") {
		t.Errorf("expected warn line, got: %s", out)
	}
}

func TestLogger_WithAddsFields(t *testing.T) {
	out := capture(t, config.LogConfig{Level: "debug", Format: "text"}, func() {
		With("req_id", "123").Info("processing request")
	})

	if !strings.Contains(out, "req_id=123") {
		t.Errorf("expected req_id field, got: %s", out)
	}
}

func TestLogger_ForRunTagsRunID(t *testing.T) {
	var id string
	out := capture(t, config.LogConfig{Level: "info", Format: "text"}, func() {
		var log = L()
		log, id = ForRun(log, "weekly")
		log.Info("pairing started")
	})

	if id == "" {
		t.Fatal("expected a run id")
	}
	if !strings.Contains(out, "run_id="+id) {
		t.Errorf("expected run_id field, got: %s", out)
	}
	if !strings.Contains(out, "run_kind=weekly") {
		t.Errorf("expected run_kind field, got: %s", out)
	}
}
