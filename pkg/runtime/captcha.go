package runtime

import (
	"context"
	"time"

	"github.com/webverify/agentrt/pkg/snapshot"
)

// CaptchaPolicy selects how the runtime reacts to detected interactive
// captcha evidence.
type CaptchaPolicy string

const (
	// CaptchaPolicyAbort fails the step immediately with CaptchaAbort.
	CaptchaPolicyAbort CaptchaPolicy = "abort"
	// CaptchaPolicyCallback invokes a user-supplied handler and polls for
	// the challenge to clear.
	CaptchaPolicyCallback CaptchaPolicy = "callback"
)

// CaptchaHandler is invoked under the callback policy. It should block
// until the challenge is resolved (e.g. by a human solving it out of
// band) or return an error. The SDK ships no solvers; this is
// interface-only, matching the spec's policy contract.
type CaptchaHandler func(ctx context.Context, diag *snapshot.CaptchaDiagnostics) error

// CaptchaOptions configures captcha gating.
type CaptchaOptions struct {
	Policy        CaptchaPolicy
	MinConfidence float64
	Handler       CaptchaHandler
	PollMs        int
	TimeoutMs     int
}

const (
	defaultCaptchaPollMs    = 1000
	defaultCaptchaTimeoutMs = 120_000
)

// shouldGate reports whether diag carries interactive evidence (text,
// selector or URL hits) at or above minConfidence. Passive evidence — only
// iframe_src_hits populated — never gates progress regardless of
// confidence.
func shouldGate(diag *snapshot.CaptchaDiagnostics, minConfidence float64) bool {
	if diag == nil || !diag.Detected {
		return false
	}
	if diag.IsPassiveOnly() {
		return false
	}
	return diag.Confidence >= minConfidence
}

// gateCaptcha inspects the diagnostics on snap and, if interactive
// evidence is present, applies the configured policy. It returns the
// snapshot to proceed with (possibly refreshed after a clear) and an
// error when the step must fail.
func (r *Runtime) gateCaptcha(ctx context.Context, snap *snapshot.Snapshot) (*snapshot.Snapshot, error) {
	var diag *snapshot.CaptchaDiagnostics
	if snap != nil && snap.Diagnostics != nil {
		diag = snap.Diagnostics.Captcha
	}
	if !shouldGate(diag, r.captchaOpts.MinConfidence) {
		return snap, nil
	}

	r.recordCaptchaVerification(diag, false, "interactive captcha evidence detected")

	switch r.captchaOpts.Policy {
	case CaptchaPolicyCallback:
		cleared, err := r.waitForCaptchaClear(ctx, snap, diag)
		if err == nil {
			r.recordCaptchaVerification(nil, true, "captcha cleared")
		}
		return cleared, err
	case CaptchaPolicyAbort, "":
		return snap, &CaptchaAbort{Diagnostics: *diag}
	default:
		return snap, &CaptchaAbort{Diagnostics: *diag}
	}
}

func (r *Runtime) recordCaptchaVerification(diag *snapshot.CaptchaDiagnostics, passed bool, reason string) {
	if r.currentStep == nil {
		return
	}
	details := map[string]interface{}{}
	if diag != nil {
		details["confidence"] = diag.Confidence
		details["evidence"] = diag.Evidence
	}
	r.currentStep.recordVerification(VerificationResult{
		Label:    "captcha",
		Required: true,
		Passed:   passed,
		Reason:   reason,
		Details:  details,
		Attempts: 1,
		Kind:     KindCaptcha,
	})
	r.emitVerificationEvent(r.currentStep.Verifications[len(r.currentStep.Verifications)-1])
}

// waitForCaptchaClear invokes the configured handler in the background
// while polling fresh snapshots at PollMs, racing both against TimeoutMs.
// This is a direct structural adaptation of the teacher's tool-approval
// pending-request/response-channel pattern: a background goroutine
// produces a result on a buffered channel, and the waiter selects over
// that channel, a poll ticker, and context cancellation.
func (r *Runtime) waitForCaptchaClear(ctx context.Context, snap *snapshot.Snapshot, diag *snapshot.CaptchaDiagnostics) (*snapshot.Snapshot, error) {
	if r.captchaOpts.Handler == nil {
		return snap, &CaptchaAbort{Diagnostics: *diag}
	}

	pollMs := r.captchaOpts.PollMs
	if pollMs <= 0 {
		pollMs = defaultCaptchaPollMs
	}
	timeoutMs := r.captchaOpts.TimeoutMs
	if timeoutMs <= 0 {
		timeoutMs = defaultCaptchaTimeoutMs
	}

	handlerDone := make(chan error, 1)
	go func() {
		handlerDone <- r.captchaOpts.Handler(ctx, diag)
	}()

	deadline := time.Now().Add(time.Duration(timeoutMs) * time.Millisecond)
	ticker := time.NewTicker(time.Duration(pollMs) * time.Millisecond)
	defer ticker.Stop()

	current := snap
	for {
		select {
		case err := <-handlerDone:
			if err != nil {
				return current, err
			}
			if fresh, ferr := r.refreshSnapshot(ctx); ferr == nil {
				current = fresh
			}
			return current, nil

		case <-ticker.C:
			if fresh, err := r.refreshSnapshot(ctx); err == nil {
				current = fresh
				var freshDiag *snapshot.CaptchaDiagnostics
				if current.Diagnostics != nil {
					freshDiag = current.Diagnostics.Captcha
				}
				if !shouldGate(freshDiag, r.captchaOpts.MinConfidence) {
					return current, nil
				}
			}
			if time.Now().After(deadline) {
				return current, &CaptchaTimeout{TimeoutMs: timeoutMs}
			}

		case <-ctx.Done():
			return current, wrapCancelled(ctx.Err())
		}
	}
}
