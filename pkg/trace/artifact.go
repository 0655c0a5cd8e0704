package trace

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/webverify/agentrt/pkg/snapshot"
)

// FailureArtifact is the deterministic record a required assertion's
// final failure produces: the last snapshot, the diagnostic bag, and the
// accumulated verifications for the step. Verifications is left generic
// (rather than typed to runtime.VerificationResult) so this package does
// not need to import the runtime package that is the bundler's only
// caller.
type FailureArtifact struct {
	RunID               string
	StepID              string
	Snapshot            *snapshot.Snapshot
	Diagnostics         map[string]interface{}
	Verifications       interface{}
	ScreenshotPNGBase64 string
}

// ArtifactBundler writes FailureArtifacts to a directory as
// `<run>-<step>-failure.json`, with a sibling `.png` when a screenshot was
// captured. It is a trace sink add-on, not a new subsystem: the runtime
// calls Write and emits an error event carrying the returned path, the
// same way every other event reaches the sink.
type ArtifactBundler struct {
	dir string
}

// NewArtifactBundler creates a bundler writing under dir.
func NewArtifactBundler(dir string) *ArtifactBundler {
	return &ArtifactBundler{dir: dir}
}

// Write persists a to disk and returns the JSON artifact's path.
func (b *ArtifactBundler) Write(a FailureArtifact) (string, error) {
	if err := os.MkdirAll(b.dir, 0755); err != nil {
		return "", fmt.Errorf("trace: creating artifact dir: %w", err)
	}

	base := fmt.Sprintf("%s-%s-failure", a.RunID, a.StepID)
	jsonPath := filepath.Join(b.dir, base+".json")

	payload := map[string]interface{}{
		"run_id":        a.RunID,
		"step_id":       a.StepID,
		"snapshot":      a.Snapshot,
		"diagnostics":   a.Diagnostics,
		"verifications": a.Verifications,
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("trace: marshaling failure artifact: %w", err)
	}
	if err := os.WriteFile(jsonPath, data, 0644); err != nil {
		return "", fmt.Errorf("trace: writing failure artifact: %w", err)
	}

	if a.ScreenshotPNGBase64 != "" {
		if raw, err := base64.StdEncoding.DecodeString(a.ScreenshotPNGBase64); err == nil {
			pngPath := filepath.Join(b.dir, base+".png")
			_ = os.WriteFile(pngPath, raw, 0644) // best-effort: the JSON artifact is the record of truth
		}
	}

	return jsonPath, nil
}
