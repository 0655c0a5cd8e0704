package agent

import (
	"strings"
	"testing"

	"github.com/webverify/agentrt/pkg/snapshot"
)

func sampleSnapshot() *snapshot.Snapshot {
	return &snapshot.Snapshot{
		Status: snapshot.StatusSuccess,
		URL:    "https://example.com/checkout",
		Elements: []snapshot.Element{
			{ID: 1, Role: "button", Text: "Place order", Importance: 90, BBox: snapshot.BBox{X: 10, Y: 10, Width: 80, Height: 30}},
			{ID: 2, Role: "textbox", Text: "Promo code", Importance: 40, BBox: snapshot.BBox{X: 10, Y: 60, Width: 80, Height: 20}},
		},
	}
}

func TestDefaultPromptBuilderIncludesTaskAndActionGrammar(t *testing.T) {
	builder := DefaultPromptBuilder(snapshot.DefaultSelectorConfig())
	system, user := builder("complete checkout", "click place order", "", sampleSnapshot(), "")

	if !strings.Contains(system, "CLICK(<id>)") {
		t.Error("expected the system prompt to document the CLICK grammar")
	}
	if !strings.Contains(system, "FINISH()") {
		t.Error("expected the system prompt to document the FINISH grammar")
	}
	if !strings.Contains(user, "complete checkout") {
		t.Error("expected the user prompt to include the task goal")
	}
	if !strings.Contains(user, "click place order") {
		t.Error("expected the user prompt to include the step goal")
	}
	if !strings.Contains(user, "https://example.com/checkout") {
		t.Error("expected the user prompt to include the snapshot URL")
	}
	if !strings.Contains(user, "Place order") {
		t.Error("expected the user prompt to include a compact element line for the snapshot")
	}
}

func TestDefaultPromptBuilderOmitsOptionalSectionsWhenEmpty(t *testing.T) {
	builder := DefaultPromptBuilder(snapshot.DefaultSelectorConfig())
	_, user := builder("task", "", "", nil, "")

	if strings.Contains(user, "Current step goal:") {
		t.Error("expected no step-goal line when stepGoal is empty")
	}
	if strings.Contains(user, "History:") {
		t.Error("expected no history line when historySummary is empty")
	}
	if strings.Contains(user, "Context:") {
		t.Error("expected no context line when domContext is empty")
	}
	if strings.Contains(user, "URL:") {
		t.Error("expected no URL line when no snapshot is supplied")
	}
}

func TestDefaultPromptBuilderIncludesHistoryAndContextWhenProvided(t *testing.T) {
	builder := DefaultPromptBuilder(snapshot.DefaultSelectorConfig())
	_, user := builder("task", "step", "inside an iframe", nil, "clicked login once already")

	if !strings.Contains(user, "History: clicked login once already") {
		t.Error("expected the history summary to be included verbatim")
	}
	if !strings.Contains(user, "Context: inside an iframe") {
		t.Error("expected the dom context to be included verbatim")
	}
}
