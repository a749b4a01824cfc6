package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
)

func newBufferLogger(buf *bytes.Buffer) *Logger {
	return New(&Config{Level: "debug", Format: "json", ServiceName: "veris-test", Output: buf})
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	return line
}

func TestContextFieldsPropagate(t *testing.T) {
	var buf bytes.Buffer
	ctx := newBufferLogger(&buf).WithContext(context.Background())
	ctx = SetSubmissionID(ctx, "sub-1")
	ctx = SetStage(ctx, "verifying")

	CtxInfo(ctx, "hello %s", "world")

	line := decodeLine(t, &buf)
	if line["message"] != "hello world" {
		t.Fatalf("message = %v", line["message"])
	}
	if line[FieldSubmissionID] != "sub-1" || line[FieldStage] != "verifying" {
		t.Fatalf("missing context fields: %v", line)
	}
	if line[FieldService] != "veris-test" {
		t.Fatalf("service = %v", line[FieldService])
	}
	if got := GetSubmissionID(ctx); got != "sub-1" {
		t.Fatalf("GetSubmissionID = %q", got)
	}
}

func TestEntryMetricFields(t *testing.T) {
	var buf bytes.Buffer
	ctx := newBufferLogger(&buf).WithContext(context.Background())

	With(Fields{FieldAttempt: 2}).WithCount(5).WithStatus("ok").Warn(ctx, "done")

	line := decodeLine(t, &buf)
	if line[FieldCount] != float64(5) || line[FieldAttempt] != float64(2) || line[FieldStatus] != "ok" {
		t.Fatalf("unexpected fields: %v", line)
	}
	if line["level"] != "warning" {
		t.Fatalf("level = %v", line["level"])
	}
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	if FromContext(context.Background()) != GetDefault() {
		t.Fatal("expected default logger for bare context")
	}
	//nolint:staticcheck
	if FromContext(nil) != GetDefault() {
		t.Fatal("expected default logger for nil context")
	}
}

func TestParseLevelFallsBackToInfo(t *testing.T) {
	if got := parseLevel("loud"); got.String() != "info" {
		t.Fatalf("parseLevel = %v", got)
	}
}
