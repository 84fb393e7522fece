package logger_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	pcontext "github.com/poltergeist/callcenter/pkg/context"
	"github.com/poltergeist/callcenter/pkg/logger"
)

func TestCreateLogger(t *testing.T) {
	log := logger.CreateLogger("", "info")
	if log == nil {
		t.Fatal("expected logger to be created")
	}
}

func TestCreateLoggerWithOutput_WritesLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "callcenter.log")
	var buf bytes.Buffer

	log := logger.CreateLoggerWithOutput(path, "info", &buf)
	log.Info("agent online")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), "agent online") {
		t.Error("expected message in log file")
	}
	if !strings.Contains(buf.String(), "agent online") {
		t.Error("expected message in output")
	}
}

func TestLogger_WithComponent(t *testing.T) {
	var buf bytes.Buffer
	log := logger.CreateLoggerWithOutput("", "info", &buf)

	agentLog := log.WithComponent("agent-2")
	agentLog.Info("handling call")

	if !strings.Contains(buf.String(), "[agent-2] handling call") {
		t.Errorf("expected component prefix in output, got %q", buf.String())
	}
}

func TestLogger_Success(t *testing.T) {
	var buf bytes.Buffer
	log := logger.CreateLoggerWithOutput("", "info", &buf)

	log.Success("state saved")

	if !strings.Contains(buf.String(), "state saved") {
		t.Error("expected success message in log output")
	}
}

func TestLogger_FieldsAreSorted(t *testing.T) {
	var buf bytes.Buffer
	log := logger.CreateLoggerWithOutput("", "info", &buf)

	log.Info("call queued",
		logger.WithField("priority", "VIP"),
		logger.WithField("call_id", 42),
	)

	if !strings.Contains(buf.String(), "{call_id=42, priority=VIP}") {
		t.Errorf("expected sorted fields, got %q", buf.String())
	}
}

func TestLogger_ErrorLevel(t *testing.T) {
	var buf bytes.Buffer
	log := logger.CreateLoggerWithOutput("", "error", &buf)

	log.Debug("should not appear")
	log.Info("should not appear")
	log.Warn("should not appear")
	log.Error("should appear")

	output := buf.String()
	if strings.Contains(output, "should not appear") {
		t.Error("lower level logs should not appear with error level")
	}
	if !strings.Contains(output, "should appear") {
		t.Error("error level log should appear")
	}
}

func TestLogger_InvalidLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := logger.CreateLoggerWithOutput("", "chatty", &buf)

	log.Debug("hidden")
	log.Info("shown")

	if strings.Contains(buf.String(), "hidden") {
		t.Error("debug should be filtered at default info level")
	}
	if !strings.Contains(buf.String(), "shown") {
		t.Error("info should be logged at default level")
	}
}

func TestWithContext_AddsTracingFields(t *testing.T) {
	var buf bytes.Buffer
	base := logger.CreateLoggerWithOutput("", "info", &buf)

	ctx := pcontext.WithSessionID(context.Background(), "ses_test")
	ctx = pcontext.WithOperation(ctx, "save")

	logger.WithContext(ctx, base).WithComponent("ledger").Info("saved")

	output := buf.String()
	for _, want := range []string{"[ledger]", "session_id=ses_test", "operation=save"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output %q", want, output)
		}
	}
}

func TestNewNopLogger(t *testing.T) {
	log := logger.NewNopLogger()
	log.Error("discarded")
	log.WithComponent("x").Warn("discarded")
}

func TestConsoleLogger(t *testing.T) {
	var buf bytes.Buffer
	console := logger.NewConsoleLogger(&buf)

	console.Info("menu ready")
	console.Success("call added")

	output := buf.String()
	if !strings.Contains(output, "menu ready") || !strings.Contains(output, "call added") {
		t.Errorf("unexpected console output %q", output)
	}
}

func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	log := logger.CreateLoggerWithOutput("", "info", &buf)
	agent := log.WithComponent("agent-1")

	agent.Debug("before")
	if !logger.SetLevel(log, "debug") {
		t.Fatal("expected level change to be applied")
	}
	agent.Debug("after")

	output := buf.String()
	if strings.Contains(output, "before") {
		t.Error("debug entry logged before level change")
	}
	if !strings.Contains(output, "after") {
		t.Error("derived logger should follow the new level")
	}
}
