package llm

import (
	"errors"
	"testing"
)

func TestStreamChunkIsError(t *testing.T) {
	if (&StreamChunk{}).IsError() {
		t.Error("a chunk with no Error should not report IsError")
	}
	if !(&StreamChunk{Error: errors.New("boom")}).IsError() {
		t.Error("a chunk with Error set should report IsError")
	}
}

func TestNilStreamChunkIsError(t *testing.T) {
	var c *StreamChunk
	if c.IsError() {
		t.Error("a nil *StreamChunk should not report IsError")
	}
}
