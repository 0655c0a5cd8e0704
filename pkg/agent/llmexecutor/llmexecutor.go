// Package llmexecutor adapts an llm.Provider into the agent package's
// Executor port: one (systemPrompt, userPrompt) pair in, one raw action
// string and a token usage record out. It carries no action-grammar or
// snapshot knowledge — that belongs to pkg/agent's step loop.
package llmexecutor

import (
	"context"
	"strings"

	"github.com/webverify/agentrt/pkg/llm"
	"github.com/webverify/agentrt/pkg/runtime"
	"github.com/webverify/agentrt/pkg/tokencount"
	"github.com/webverify/agentrt/pkg/types"
)

// Executor wraps an llm.Provider as a pkg/agent.Executor.
type Executor struct {
	provider llm.Provider
	counter  *tokencount.Counter
}

// New creates an Executor over provider.
func New(provider llm.Provider) *Executor {
	return &Executor{provider: provider, counter: tokencount.New()}
}

// NextAction sends the prompts as a (system, user) message pair and
// returns the assistant's raw content as the candidate action string.
func (e *Executor) NextAction(ctx context.Context, systemPrompt, userPrompt string) (string, runtime.TokenUsage, error) {
	messages := []*types.Message{
		types.NewSystemMessage(systemPrompt),
		types.NewUserMessage(userPrompt),
	}

	msg, err := e.provider.Complete(ctx, messages)
	if err != nil {
		return "", runtime.TokenUsage{}, err
	}

	usage := runtime.TokenUsage{ModelName: e.provider.GetModel()}
	if u := e.provider.LastUsage(); u != nil {
		usage.PromptTokens = u.PromptTokens
		usage.CompletionTokens = u.CompletionTokens
		usage.TotalTokens = u.TotalTokens
	} else {
		// The provider didn't report usage; estimate the prompt side
		// ourselves rather than leave the accounting hook at zero.
		usage.PromptTokens = e.counter.CountMessages(messages)
	}

	return strings.TrimSpace(msg.Content), usage, nil
}

// VisionExecutor wraps an llm.Provider as a pkg/agent.VisionExecutor,
// inlining the screenshot as a data-URL reference in the user prompt.
// Providers that need a dedicated multimodal content block should
// implement pkg/agent.VisionExecutor directly instead of using this
// adapter, which only targets text-only completion APIs.
type VisionExecutor struct {
	provider llm.Provider
	counter  *tokencount.Counter
}

// NewVision creates a VisionExecutor over provider.
func NewVision(provider llm.Provider) *VisionExecutor {
	return &VisionExecutor{provider: provider, counter: tokencount.New()}
}

// NextVisionAction appends the screenshot reference to userPrompt and
// delegates to the same Complete call Executor uses.
func (e *VisionExecutor) NextVisionAction(ctx context.Context, systemPrompt, userPrompt, screenshotPNGBase64 string) (string, runtime.TokenUsage, error) {
	prompt := userPrompt + "\nScreenshot (base64 PNG, viewport-only): " + screenshotPNGBase64

	messages := []*types.Message{
		types.NewSystemMessage(systemPrompt),
		types.NewUserMessage(prompt),
	}

	msg, err := e.provider.Complete(ctx, messages)
	if err != nil {
		return "", runtime.TokenUsage{}, err
	}

	usage := runtime.TokenUsage{ModelName: e.provider.GetModel()}
	if u := e.provider.LastUsage(); u != nil {
		usage.PromptTokens = u.PromptTokens
		usage.CompletionTokens = u.CompletionTokens
		usage.TotalTokens = u.TotalTokens
	} else {
		usage.PromptTokens = e.counter.CountMessages(messages)
	}

	return strings.TrimSpace(msg.Content), usage, nil
}
