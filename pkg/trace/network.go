package trace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// NetworkSink POSTs each event as a JSON body to a configured endpoint.
// It never drops an event: Emit blocks on the HTTP round trip and returns
// its error to the caller rather than discarding the event, leaving
// retry/backpressure policy to whatever wraps the runtime.
type NetworkSink struct {
	endpoint string
	client   *http.Client
	headers  map[string]string

	mu sync.Mutex
}

// NewNetworkSink creates a sink that POSTs to endpoint with the given
// request timeout.
func NewNetworkSink(endpoint string, timeout time.Duration, headers map[string]string) *NetworkSink {
	return &NetworkSink{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		headers:  headers,
	}
}

func (s *NetworkSink) Emit(e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("trace: marshaling event for upload: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.client.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("trace: building upload request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("trace: uploading event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("trace: upload rejected with status %d", resp.StatusCode)
	}
	return nil
}

func (s *NetworkSink) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
