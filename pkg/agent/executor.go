package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/webverify/agentrt/pkg/runtime"
	"github.com/webverify/agentrt/pkg/snapshot"
)

// Executor is the external LLM port the step loop drives for text-based
// actions. It knows nothing about the browser or the snapshot format
// beyond the prompts it is handed — prompt construction is the step
// loop's job via a PromptBuilder.
type Executor interface {
	NextAction(ctx context.Context, systemPrompt, userPrompt string) (raw string, usage runtime.TokenUsage, err error)
}

// VisionExecutor is the fallback port used when a step's required
// verifications keep failing and the step loop has vision fallback
// enabled. It receives a base64 PNG screenshot alongside the prompts and
// is expected to answer with a CLICK_XY/CLICK_RECT action.
type VisionExecutor interface {
	NextVisionAction(ctx context.Context, systemPrompt, userPrompt, screenshotPNGBase64 string) (raw string, usage runtime.TokenUsage, err error)
}

// PromptBuilder constructs the (systemPrompt, userPrompt) pair sent to the
// executor for one step. domContext and historySummary are free-form
// caller-supplied context; either may be empty.
type PromptBuilder func(taskGoal, stepGoal, domContext string, snap *snapshot.Snapshot, historySummary string) (systemPrompt, userPrompt string)

// DefaultPromptBuilder enumerates the compact element lines for snap and
// asks the executor for exactly one action from the grammar.
func DefaultPromptBuilder(cfg snapshot.SelectorConfig) PromptBuilder {
	return func(taskGoal, stepGoal, domContext string, snap *snapshot.Snapshot, historySummary string) (string, string) {
		system := strings.Join([]string{
			"You control a web browser one action at a time.",
			"Respond with exactly one action and nothing else:",
			`  CLICK(<id>)`,
			`  TYPE(<id>,"<text>")`,
			`  PRESS("<key>")`,
			`  FINISH()`,
			"Element ids refer only to the current snapshot; they are not stable across snapshots.",
		}, "\n")

		var b strings.Builder
		fmt.Fprintf(&b, "Task: %s\n", taskGoal)
		if stepGoal != "" {
			fmt.Fprintf(&b, "Current step goal: %s\n", stepGoal)
		}
		if historySummary != "" {
			fmt.Fprintf(&b, "History: %s\n", historySummary)
		}
		if domContext != "" {
			fmt.Fprintf(&b, "Context: %s\n", domContext)
		}
		if snap != nil {
			fmt.Fprintf(&b, "URL: %s\n", snap.URL)
			b.WriteString("Elements (id|role|text|importance|is_primary|docYq|ord|DG|href):\n")
			for _, line := range snapshot.CompactLines(snap, cfg) {
				b.WriteString(line)
				b.WriteString("\n")
			}
		}
		b.WriteString("Next action:")

		return system, b.String()
	}
}
