package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
)

func TestNewJSONLogsScenarioContext(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Format: FormatJSON, Output: &buf})

	ctx := NewContext(context.Background(), logger)
	ctx = WithScenario(ctx, "bau")
	ctx = WithTrial(ctx, 3)
	FromContext(ctx).Info("year complete")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected valid JSON line, got error: %v (line: %s)", err, buf.String())
	}
	if entry["scenario"] != "bau" {
		t.Fatalf("expected scenario=bau, got %v", entry["scenario"])
	}
	if entry["trial"] != float64(3) {
		t.Fatalf("expected trial=3, got %v", entry["trial"])
	}
}

func TestScenarioFromContextEmptyByDefault(t *testing.T) {
	if got := ScenarioFromContext(context.Background()); got != "" {
		t.Fatalf("expected empty scenario, got %q", got)
	}
}
