package trace

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// JSONLSink writes newline-delimited JSON with a flush after every event,
// so a crashed run still produces a replayable transcript up to the last
// successfully written line.
type JSONLSink struct {
	mu   sync.Mutex
	file *os.File
}

// NewJSONLSink opens (or creates) path in append mode.
func NewJSONLSink(path string) (*JSONLSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("trace: opening jsonl sink: %w", err)
	}
	return &JSONLSink{file: f}, nil
}

func (s *JSONLSink) Emit(e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("trace: marshaling event: %w", err)
	}
	data = append(data, '\n')

	if _, err := s.file.Write(data); err != nil {
		return fmt.Errorf("trace: writing event: %w", err)
	}
	return s.file.Sync()
}

func (s *JSONLSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}
