package llm

import "github.com/webverify/agentrt/pkg/types"

// StreamChunk is one unit of a streamed completion. The first chunk
// typically carries Role, subsequent chunks carry Content deltas, and the
// final chunk has Finished=true with Usage populated when the provider
// reports it. A chunk with Error set terminates the stream.
type StreamChunk struct {
	Role     string
	Content  string
	Finished bool
	Usage    *types.Usage
	Error    error
}

// IsError reports whether this chunk represents a stream-time error.
func (c *StreamChunk) IsError() bool {
	return c != nil && c.Error != nil
}
