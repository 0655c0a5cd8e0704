package trace

import (
	"encoding/json"
	"testing"
)

func TestEventMarshalJSONFlattensData(t *testing.T) {
	e := Event{
		Type:      EventVerification,
		RunID:     "run-1",
		StepID:    "step-1",
		Timestamp: 1234,
		Data:      map[string]interface{}{"label": "cart-updated", "passed": true},
	}

	data, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}

	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}

	if out["type"] != string(EventVerification) {
		t.Errorf("type = %v, want %v", out["type"], EventVerification)
	}
	if out["run_id"] != "run-1" {
		t.Errorf("run_id = %v, want run-1", out["run_id"])
	}
	if out["step_id"] != "step-1" {
		t.Errorf("step_id = %v, want step-1", out["step_id"])
	}
	if out["label"] != "cart-updated" {
		t.Errorf("label = %v, want cart-updated (flattened from Data)", out["label"])
	}
	if out["passed"] != true {
		t.Errorf("passed = %v, want true", out["passed"])
	}
	if _, hasDataKey := out["data"]; hasDataKey {
		t.Error("expected Data to be flattened, not nested under a 'data' key")
	}
}

func TestEventMarshalJSONOmitsEmptyStepID(t *testing.T) {
	e := Event{Type: EventStepStart, RunID: "run-1", Timestamp: 1}
	data, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}
	var out map[string]interface{}
	json.Unmarshal(data, &out)
	if _, ok := out["step_id"]; ok {
		t.Error("expected step_id to be omitted when StepID is empty")
	}
}

func TestNoopSinkNeverFails(t *testing.T) {
	var s NoopSink
	if err := s.Emit(Event{Type: EventSnapshot}); err != nil {
		t.Errorf("NoopSink.Emit returned error: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("NoopSink.Close returned error: %v", err)
	}
}
