package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/webverify/agentrt/pkg/backend"
	"github.com/webverify/agentrt/pkg/logging"
)

// BridgeFunctionName is the global the extension is expected to install on
// window once it has finished injecting. The extension itself is an
// external collaborator; this package only depends on the name of the
// function it exposes and the shape of the object it returns.
const BridgeFunctionName = "__agentrtSnapshot"

const (
	defaultPollInterval = 100 * time.Millisecond
	defaultReadyTimeout  = 5 * time.Second
)

// Service acquires semantic snapshots from the browser extension bridge
// through a Backend. It holds no snapshot state itself — that is the
// Cache's job — and performs no retries beyond the extension-ready poll.
type Service struct {
	backend backend.Backend
	logger  *logging.Logger

	readyTimeout time.Duration
	pollInterval time.Duration
}

// New creates a snapshot acquisition service over the given backend.
func New(be backend.Backend, logger *logging.Logger) *Service {
	return &Service{
		backend:      be,
		logger:       logger,
		readyTimeout: defaultReadyTimeout,
		pollInterval: defaultPollInterval,
	}
}

// SetReadyTimeout overrides the default 5s extension-ready poll budget.
func (s *Service) SetReadyTimeout(d time.Duration) { s.readyTimeout = d }

// Acquire waits for the extension bridge, invokes it with opts, and
// returns the resulting Snapshot. It never reads or writes a cache — see
// Cache for the staleness-aware wrapper agent runtimes should use.
func (s *Service) Acquire(ctx context.Context, opts Options) (*Snapshot, error) {
	if err := s.waitForBridge(ctx); err != nil {
		return nil, err
	}

	payload, err := encodeOptions(opts)
	if err != nil {
		return nil, fmt.Errorf("snapshot: encoding options: %w", err)
	}

	expr := fmt.Sprintf("%s(%s)", BridgeFunctionName, payload)
	raw, err := s.backend.Eval(ctx, expr)
	if err != nil {
		url, _ := s.backend.GetURL(ctx)
		return nil, &SnapshotError{URL: url, Err: err}
	}
	if raw == nil {
		url, _ := s.backend.GetURL(ctx)
		return nil, &SnapshotError{URL: url}
	}

	snap, err := decodeSnapshot(raw)
	if err != nil {
		url, _ := s.backend.GetURL(ctx)
		return nil, &SnapshotError{URL: url, Err: err}
	}

	if s.logger != nil {
		s.logger.Debugf("snapshot acquired: url=%s elements=%d", snap.URL, len(snap.Elements))
	}

	return snap, nil
}

// waitForBridge polls every 100ms for up to readyTimeout for the extension
// to have injected BridgeFunctionName. On expiry it raises
// ExtensionNotLoadedError carrying probe diagnostics.
func (s *Service) waitForBridge(ctx context.Context) error {
	deadline := time.Now().Add(s.readyTimeout)
	probeExpr := fmt.Sprintf(`(() => {
		const fn = window[%q];
		return {
			defined: typeof fn === "function",
			snapshot_available: typeof fn === "function",
			url: window.location.href,
			extension_id: (window.__agentrtExtensionId || ""),
		};
	})()`, BridgeFunctionName)

	for {
		raw, err := s.backend.Eval(ctx, probeExpr)
		if err == nil {
			if probe := decodeProbe(raw); probe.Defined {
				return nil
			}
		}

		if time.Now().After(deadline) {
			raw, _ := s.backend.Eval(ctx, probeExpr)
			return &ExtensionNotLoadedError{Diagnostics: decodeProbe(raw)}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.pollInterval):
		}
	}
}

func decodeProbe(raw any) Probe {
	m, ok := raw.(map[string]interface{})
	if !ok {
		return Probe{}
	}
	defined, _ := m["defined"].(bool)
	available, _ := m["snapshot_available"].(bool)
	url, _ := m["url"].(string)
	extID, _ := m["extension_id"].(string)
	return Probe{Defined: defined, SnapshotAvailable: available, URL: url, ExtensionID: extID}
}

func encodeOptions(opts Options) (string, error) {
	if opts.Limit == 0 {
		opts.Limit = DefaultLimit
	}
	obj := map[string]interface{}{"limit": opts.Limit}
	if opts.Filter != nil {
		f := map[string]interface{}{}
		if opts.Filter.Clickable != nil {
			f["clickable"] = *opts.Filter.Clickable
		}
		if opts.Filter.Visible != nil {
			f["visible"] = *opts.Filter.Visible
		}
		if opts.Filter.InViewport != nil {
			f["inViewport"] = *opts.Filter.InViewport
		}
		obj["filter"] = f
	}
	if opts.Screenshot != nil {
		obj["screenshot"] = map[string]interface{}{
			"format":  opts.Screenshot.Format,
			"quality": opts.Screenshot.Quality,
		}
	}
	if opts.ShowOverlay {
		obj["showOverlay"] = true
	}
	if opts.ShowGrid {
		obj["showGrid"] = true
		obj["gridId"] = opts.GridID
	}
	data, err := json.Marshal(obj)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// decodeSnapshot converts the extension's raw JSON-round-tripped result
// into a Snapshot. It round-trips through encoding/json rather than hand
// type-asserting field by field because the element schema is wide and the
// extension's wire shape already matches Go's json tags one-for-one.
func decodeSnapshot(raw any) (*Snapshot, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("re-marshaling extension result: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshaling snapshot: %w", err)
	}
	if snap.Status == "" {
		snap.Status = StatusSuccess
	}
	return &snap, nil
}
