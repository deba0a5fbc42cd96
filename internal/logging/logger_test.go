package logging_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"coinenrich/internal/config"
	"coinenrich/internal/logging"
	"coinenrich/internal/services"
)

func readLog(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	return string(content)
}

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Logging.Format = "json"

	logger, err := logging.NewFromConfig(&cfg, false)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("hello", logging.String("collection", "coins"))

	content := readLog(t, filepath.Join(cfg.Paths.LogDir, "coinenrich.log"))
	if !strings.Contains(content, `"collection":"coins"`) {
		t.Fatalf("expected collection attribute in log, got %q", content)
	}
}

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-info.log")

	logger, err := logging.New(logging.Options{
		Format:           "console",
		Level:            "info",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("message without caller")

	content := readLog(t, logPath)
	if strings.Contains(content, ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", content)
	}
	if !strings.Contains(content, "INFO") || !strings.Contains(content, "message without caller") {
		t.Fatalf("unexpected console output %q", content)
	}
}

func TestConsoleLoggerRendersComponentAndDocument(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}, ErrorOutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := services.WithDocumentID(context.Background(), "coin-7")
	logger = logging.WithContext(ctx, logging.NewComponentLogger(logger, "enrichment"))
	logger.Info("numista match accepted", logging.Args(logging.DecisionAttrs("numista_match", "accepted", "score above floor")...)...)

	content := readLog(t, logPath)
	for _, fragment := range []string{"[enrichment]", "doc coin-7", "decision=numista_match", "result=accepted", `reason="score above floor"`} {
		if !strings.Contains(content, fragment) {
			t.Fatalf("expected %q in console output %q", fragment, content)
		}
	}
}

func TestJSONLoggerUsesShortKeys(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "debug", OutputPaths: []string{logPath}, ErrorOutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("details", logging.Int("score", 62))

	line := strings.TrimSpace(readLog(t, logPath))
	var payload map[string]any
	if err := json.Unmarshal([]byte(line), &payload); err != nil {
		t.Fatalf("decode json log line %q: %v", line, err)
	}
	for _, key := range []string{"ts", "level", "msg", "source"} {
		if _, ok := payload[key]; !ok {
			t.Fatalf("expected key %q in %v", key, payload)
		}
	}
	if payload["level"] != "debug" {
		t.Fatalf("expected lowercase level, got %v", payload["level"])
	}
}

func TestAutoFormatFallsBackToJSONForFiles(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "auto.log")
	logger, err := logging.New(logging.Options{Format: "auto", OutputPaths: []string{logPath}, ErrorOutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("auto")
	if content := readLog(t, logPath); !strings.HasPrefix(strings.TrimSpace(content), "{") {
		t.Fatalf("expected json output for non-terminal sink, got %q", content)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "warn.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}, ErrorOutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WarnWithContext(logger, "search ambiguous", "numista_search_ambiguous")

	content := readLog(t, logPath)
	for _, key := range []string{logging.FieldEventType, logging.FieldErrorHint, logging.FieldImpact} {
		if !strings.Contains(content, `"`+key+`"`) {
			t.Fatalf("expected %s in %q", key, content)
		}
	}
}

func TestEveryOutputReceivesTheRecord(t *testing.T) {
	dir := t.TempDir()
	first, second := filepath.Join(dir, "a.log"), filepath.Join(dir, "b.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{first, second}, ErrorOutputPaths: []string{second}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.NewComponentLogger(logger, "numista").Warn("throttled", logging.Int("attempt", 2))

	for _, path := range []string{first, second} {
		content := readLog(t, path)
		if strings.Count(content, "throttled") != 1 {
			t.Fatalf("expected exactly one record in %s, got %q", filepath.Base(path), content)
		}
		if !strings.Contains(content, "WARN  [numista]") || strings.Contains(content, "\x1b[") {
			t.Fatalf("expected plain console line in %s, got %q", filepath.Base(path), content)
		}
	}
}
