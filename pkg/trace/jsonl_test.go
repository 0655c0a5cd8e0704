package trace

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestJSONLSinkWritesOneLinePerEvent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trace.jsonl")

	sink, err := NewJSONLSink(path)
	if err != nil {
		t.Fatalf("NewJSONLSink error: %v", err)
	}

	events := []Event{
		{Type: EventStepStart, RunID: "run-1", StepID: "s1", Timestamp: 1, Data: map[string]interface{}{"goal": "log in"}},
		{Type: EventStepEnd, RunID: "run-1", StepID: "s1", Timestamp: 2, Data: map[string]interface{}{"failed": false}},
	}
	for _, e := range events {
		if err := sink.Emit(e); err != nil {
			t.Fatalf("Emit error: %v", err)
		}
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening trace file: %v", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	for i, line := range lines {
		var decoded map[string]interface{}
		if err := json.Unmarshal([]byte(line), &decoded); err != nil {
			t.Errorf("line %d is not valid JSON: %v", i, err)
		}
	}
}

func TestJSONLSinkAppendsAcrossOpens(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trace.jsonl")

	sink1, err := NewJSONLSink(path)
	if err != nil {
		t.Fatalf("first open error: %v", err)
	}
	sink1.Emit(Event{Type: EventStepStart, RunID: "r", Timestamp: 1})
	sink1.Close()

	sink2, err := NewJSONLSink(path)
	if err != nil {
		t.Fatalf("second open error: %v", err)
	}
	sink2.Emit(Event{Type: EventStepEnd, RunID: "r", Timestamp: 2})
	sink2.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading trace file: %v", err)
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	count := 0
	for scanner.Scan() {
		if scanner.Text() != "" {
			count++
		}
	}
	if count != 2 {
		t.Errorf("expected 2 lines across two sink opens, got %d", count)
	}
}
