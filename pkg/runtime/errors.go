package runtime

import (
	"context"
	"errors"
	"fmt"

	"github.com/webverify/agentrt/pkg/snapshot"
)

// CaptchaAbort is returned when the abort policy is in effect and
// interactive captcha evidence was detected above the configured
// confidence threshold.
type CaptchaAbort struct {
	Diagnostics snapshot.CaptchaDiagnostics
}

func (e *CaptchaAbort) Error() string {
	return fmt.Sprintf("captcha detected (confidence=%.2f), aborting per policy", e.Diagnostics.Confidence)
}
func (e *CaptchaAbort) Name() string { return "CaptchaAbort" }

// CaptchaTimeout is returned when the callback policy's handler and poll
// loop never observed the captcha clear within the configured timeout.
type CaptchaTimeout struct {
	TimeoutMs int
}

func (e *CaptchaTimeout) Error() string {
	return fmt.Sprintf("captcha wait timed out after %dms", e.TimeoutMs)
}
func (e *CaptchaTimeout) Name() string { return "CaptchaTimeout" }

// UnsupportedCapability is returned when a caller requests behavior the
// current backend driver cannot perform.
type UnsupportedCapability struct {
	Capability string
}

func (e *UnsupportedCapability) Error() string {
	return fmt.Sprintf("unsupported capability: %s", e.Capability)
}
func (e *UnsupportedCapability) Name() string { return "UnsupportedCapability" }

// PermissionDenied is returned when an action is refused by policy rather
// than by the browser itself.
type PermissionDenied struct {
	Reason string
}

func (e *PermissionDenied) Error() string   { return fmt.Sprintf("permission denied: %s", e.Reason) }
func (e *PermissionDenied) Name() string    { return "PermissionDenied" }

// Cancelled wraps a context cancellation as it propagates out of a
// long-running loop. Partial traces remain flushed by the caller.
type Cancelled struct {
	Err error
}

func (e *Cancelled) Error() string { return fmt.Sprintf("cancelled: %v", e.Err) }
func (e *Cancelled) Unwrap() error { return e.Err }
func (e *Cancelled) Name() string  { return "Cancelled" }

// wrapCancelled surfaces a context cancellation or deadline expiry as
// *Cancelled at a long-running-loop boundary (captcha wait, eventually,
// scroll poll, extension-ready wait) rather than letting the bare
// context error leak out under a name callers can't match on.
func wrapCancelled(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &Cancelled{Err: err}
	}
	return err
}

// ProgrammerError marks a synchronous misuse of the runtime API — it is
// never recorded as a verification, only returned/raised directly.
type ProgrammerError struct {
	Reason string
}

func (e *ProgrammerError) Error() string { return fmt.Sprintf("programmer error: %s", e.Reason) }
func (e *ProgrammerError) Name() string  { return "ProgrammerError" }
