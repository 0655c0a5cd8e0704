// Package openai provides an OpenAI-compatible LLM provider implementation.
//
// Example usage:
//
//	package main
//
//	import (
//	    "context"
//	    "fmt"
//	    "os"
//
//	    "github.com/webverify/agentrt/pkg/llm/openai"
//	    "github.com/webverify/agentrt/pkg/types"
//	)
//
//	func main() {
//	    provider, err := openai.NewProvider(
//	        os.Getenv("OPENAI_API_KEY"),
//	        openai.WithModel("gpt-4o"),
//	    )
//	    if err != nil {
//	        panic(err)
//	    }
//
//	    msg, err := provider.Complete(context.Background(), []*types.Message{
//	        types.NewUserMessage("Hello!"),
//	    })
//	    if err != nil {
//	        panic(err)
//	    }
//	    fmt.Println(msg.Content)
//	}
package openai

import (
	"context"
	"fmt"
	"os"
	"sync"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/ssestream"

	"github.com/webverify/agentrt/pkg/llm"
	"github.com/webverify/agentrt/pkg/types"
)

const (
	// DefaultBaseURL is the default OpenAI API base URL.
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultModel is used when no model is specified.
	DefaultModel = "gpt-4o"
)

// Provider implements llm.Provider against the OpenAI chat completions API
// using the official openai-go SDK client.
type Provider struct {
	client  openaisdk.Client
	apiKey  string
	baseURL string
	model   string

	mu         sync.Mutex
	modelInfo  *types.ModelInfo
	lastUsage  *types.Usage
}

// ProviderOption configures a Provider.
type ProviderOption func(*Provider)

// WithModel sets the model to use for completions.
func WithModel(model string) ProviderOption {
	return func(p *Provider) { p.model = model }
}

// WithBaseURL sets a custom base URL for OpenAI-compatible APIs (Azure
// OpenAI, local model servers, etc).
func WithBaseURL(baseURL string) ProviderOption {
	return func(p *Provider) { p.baseURL = baseURL }
}

// NewProvider creates a new OpenAI provider with the given API key.
//
// If apiKey is empty, it falls back to the OPENAI_API_KEY environment
// variable. If no base URL is set via WithBaseURL, OPENAI_BASE_URL is
// checked next, defaulting to DefaultBaseURL.
func NewProvider(apiKey string, opts ...ProviderOption) (*Provider, error) {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("openai: API key is required (provide via parameter or OPENAI_API_KEY environment variable)")
	}

	p := &Provider{
		model:   DefaultModel,
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.baseURL == DefaultBaseURL {
		if envBaseURL := os.Getenv("OPENAI_BASE_URL"); envBaseURL != "" {
			p.baseURL = envBaseURL
		}
	}

	clientOpts := []option.RequestOption{
		option.WithAPIKey(p.apiKey),
	}
	if p.baseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(p.baseURL))
	}
	p.client = openaisdk.NewClient(clientOpts...)

	p.modelInfo = &types.ModelInfo{
		Provider:          "openai",
		Name:              p.model,
		MaxTokens:         8192,
		SupportsStreaming: true,
		Metadata:          map[string]interface{}{},
	}
	if p.baseURL != DefaultBaseURL {
		p.modelInfo.Metadata["base_url"] = p.baseURL
	}

	return p, nil
}

// CloneWithModel returns a shallow copy of p configured to use the given
// model. The clone shares the same SDK client (connection pool), API key,
// and base URL as the original. It implements llm.ModelCloner.
func (p *Provider) CloneWithModel(model string) llm.Provider {
	clone := *p
	clone.model = model
	mi := *p.modelInfo
	mi.Name = model
	clone.modelInfo = &mi
	clone.lastUsage = nil
	return &clone
}

// StreamCompletion sends messages to the OpenAI API and streams back
// response chunks over the returned channel. The channel is closed when
// streaming completes or an error occurs.
func (p *Provider) StreamCompletion(ctx context.Context, messages []*types.Message) (<-chan *llm.StreamChunk, error) {
	params := openaisdk.ChatCompletionNewParams{
		Model:    p.model,
		Messages: convertToOpenAIMessages(messages),
	}

	stream := p.client.Chat.Completions.NewStreaming(ctx, params)

	chunks := make(chan *llm.StreamChunk, 10)
	go p.pumpStream(ctx, stream, chunks)
	return chunks, nil
}

// pumpStream drains the SDK's server-sent-event stream into StreamChunks.
func (p *Provider) pumpStream(ctx context.Context, stream *ssestream.Stream[openaisdk.ChatCompletionChunk], chunks chan<- *llm.StreamChunk) {
	defer close(chunks)

	var acc openaisdk.ChatCompletionAccumulator
	firstChunk := true

	for stream.Next() {
		chunk := stream.Current()
		acc.AddChunk(chunk)

		if len(chunk.Choices) == 0 {
			continue
		}
		choice := chunk.Choices[0]

		sc := &llm.StreamChunk{}
		if firstChunk && choice.Delta.Role != "" {
			sc.Role = choice.Delta.Role
			firstChunk = false
		}
		if choice.Delta.Content != "" {
			sc.Content = choice.Delta.Content
		}
		if choice.FinishReason != "" {
			sc.Finished = true
		}

		if sc.Content == "" && sc.Role == "" && !sc.Finished {
			continue
		}
		if !p.send(ctx, sc, chunks) {
			return
		}
	}

	if err := stream.Err(); err != nil {
		chunks <- &llm.StreamChunk{Error: fmt.Errorf("openai: stream error: %w", err)}
		return
	}

	usage := &types.Usage{
		PromptTokens:     int(acc.Usage.PromptTokens),
		CompletionTokens: int(acc.Usage.CompletionTokens),
		TotalTokens:      int(acc.Usage.TotalTokens),
	}
	p.mu.Lock()
	p.lastUsage = usage
	p.mu.Unlock()

	chunks <- &llm.StreamChunk{Finished: true, Usage: usage}
}

// send delivers a chunk, honoring context cancellation.
func (p *Provider) send(ctx context.Context, chunk *llm.StreamChunk, chunks chan<- *llm.StreamChunk) bool {
	select {
	case chunks <- chunk:
		return true
	case <-ctx.Done():
		chunks <- &llm.StreamChunk{Error: ctx.Err()}
		return false
	}
}

// Complete sends messages to the OpenAI API and returns the full response,
// accumulating the streamed chunks.
func (p *Provider) Complete(ctx context.Context, messages []*types.Message) (*types.Message, error) {
	stream, err := p.StreamCompletion(ctx, messages)
	if err != nil {
		return nil, err
	}

	var content, role string
	for chunk := range stream {
		if chunk.IsError() {
			return nil, chunk.Error
		}
		if chunk.Role != "" {
			role = chunk.Role
		}
		content += chunk.Content
	}

	if role == "" {
		role = string(types.RoleAssistant)
	}

	return &types.Message{Role: types.MessageRole(role), Content: content}, nil
}

// LastUsage returns token usage from the most recent Complete/StreamCompletion
// call, or nil if none has completed yet.
func (p *Provider) LastUsage() *types.Usage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastUsage
}

// GetModelInfo returns information about the OpenAI model being used.
func (p *Provider) GetModelInfo() *types.ModelInfo {
	return p.modelInfo
}

// GetModel returns the model name being used.
func (p *Provider) GetModel() string {
	return p.model
}

// GetBaseURL returns the base URL being used.
func (p *Provider) GetBaseURL() string {
	return p.baseURL
}

// GetAPIKey returns the API key being used.
func (p *Provider) GetAPIKey() string {
	return p.apiKey
}

// convertToOpenAIMessages converts our Message format into the SDK's
// ChatCompletionMessageParamUnion values.
func convertToOpenAIMessages(messages []*types.Message) []openaisdk.ChatCompletionMessageParamUnion {
	out := make([]openaisdk.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case types.RoleSystem:
			out = append(out, openaisdk.SystemMessage(msg.Content))
		case types.RoleAssistant:
			out = append(out, openaisdk.AssistantMessage(msg.Content))
		default:
			out = append(out, openaisdk.UserMessage(msg.Content))
		}
	}
	return out
}
