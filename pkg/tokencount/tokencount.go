// Package tokencount estimates prompt token counts for the token-usage
// accounting hook when a provider's own usage reporting is unavailable —
// it is a fallback, never the primary source: an llm.Provider's reported
// Usage always wins when present.
package tokencount

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/webverify/agentrt/pkg/types"
)

// Counter estimates token counts against a fixed encoding.
type Counter struct {
	mu       sync.Mutex
	encoding string
	enc      *tiktoken.Tiktoken
	encErr   error
}

// New creates a Counter using the cl100k_base encoding, the one shared by
// GPT-4/GPT-3.5-turbo-class models. Encoding is resolved lazily on first
// use so constructing a Counter never fails.
func New() *Counter {
	return &Counter{encoding: "cl100k_base"}
}

func (c *Counter) encoder() (*tiktoken.Tiktoken, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.enc == nil && c.encErr == nil {
		c.enc, c.encErr = tiktoken.GetEncoding(c.encoding)
	}
	return c.enc, c.encErr
}

// Count returns the estimated token count for text, falling back to a
// character-count heuristic (len(text)/4, rounded up) if the tiktoken
// encoding tables failed to load.
func (c *Counter) Count(text string) int {
	enc, err := c.encoder()
	if err != nil {
		return estimate(text)
	}
	return len(enc.Encode(text, nil, nil))
}

// CountMessages estimates the total prompt token count for a sequence of
// messages, including OpenAI's documented per-message role/structure
// overhead (~4 tokens per message, plus 2 for the overall wrapper).
func (c *Counter) CountMessages(messages []*types.Message) int {
	enc, err := c.encoder()
	if err != nil {
		total := 2
		for _, m := range messages {
			total += 4
			total += estimate(string(m.Role)) + estimate(m.Content)
		}
		return total
	}

	total := 2
	for _, m := range messages {
		total += 4
		total += len(enc.Encode(string(m.Role), nil, nil))
		total += len(enc.Encode(m.Content, nil, nil))
	}
	return total
}

func estimate(text string) int {
	if len(text) == 0 {
		return 0
	}
	return (len(text) + 3) / 4
}
