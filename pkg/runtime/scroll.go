package runtime

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/webverify/agentrt/pkg/backend"
	"github.com/webverify/agentrt/pkg/snapshot"
	"github.com/webverify/agentrt/pkg/verify"
)

const (
	defaultScrollPollMs    = 100
	defaultScrollTimeoutMs = 5000
)

// ScrollOptions configures ScrollBy's completion criteria.
type ScrollOptions struct {
	// Verify, when set, is evaluated against a fresh snapshot after the
	// scroll settles and combined with the scroll distance check: the one
	// recorded verification passes only when the page moved by MinDeltaPx
	// and the predicate passed.
	Verify     verify.Predicate
	MinDeltaPx float64
	TimeoutMs  int
	PollMs     int
	// JSFallback issues window.scrollBy via Eval when the wheel event
	// alone did not move the page by MinDeltaPx — some sites swallow
	// synthetic wheel events on their own scroll containers.
	JSFallback bool
	Label      string
	Required   bool
}

// ScrollBy dispatches a wheel event for deltaY, waits for the viewport's
// scrollY to move by at least MinDeltaPx, optionally falls back to a JS
// scrollBy, and optionally verifies a predicate against the post-scroll
// snapshot. It returns whether the page actually moved by MinDeltaPx —
// a false return with opts.Verify set still records the verification
// outcome, it just reports scroll movement independently of it.
func (r *Runtime) ScrollBy(ctx context.Context, deltaY float64, opts ScrollOptions) (bool, error) {
	pollMs := opts.PollMs
	if pollMs <= 0 {
		pollMs = defaultScrollPollMs
	}
	timeoutMs := opts.TimeoutMs
	if timeoutMs <= 0 {
		timeoutMs = defaultScrollTimeoutMs
	}
	minDelta := opts.MinDeltaPx
	if minDelta <= 0 {
		minDelta = 1
	}

	before, err := r.be.RefreshPageInfo(ctx)
	if err != nil {
		return false, err
	}

	if err := r.be.Wheel(ctx, deltaY, nil, nil); err != nil {
		return false, err
	}

	moved, after, err := r.pollForScroll(ctx, before.ScrollY, minDelta, pollMs, timeoutMs)
	if err != nil {
		return moved, err
	}

	if !moved && opts.JSFallback {
		if _, evalErr := r.be.Eval(ctx, fmt.Sprintf("window.scrollBy(0, %f)", deltaY)); evalErr == nil {
			moved, after, err = r.pollForScroll(ctx, before.ScrollY, minDelta, pollMs, timeoutMs)
			if err != nil {
				return moved, err
			}
		}
	}

	label := opts.Label
	if label == "" {
		label = "scroll"
	}

	if opts.Verify != nil {
		snap, err := r.Snapshot(ctx, snapshot.Options{}, true)
		if err != nil {
			return moved, err
		}
		outcome := opts.Verify(r.buildAssertContext(snap))
		if !moved {
			outcome = verify.AssertOutcome{
				Passed:  false,
				Reason:  fmt.Sprintf("page did not scroll by %.0fpx (predicate: %s)", minDelta, outcome.Reason),
				Details: outcome.Details,
			}
		}
		r.recordVerification(label, opts.Required, outcome, 1, KindScroll)
	} else {
		reason := fmt.Sprintf("scrolled from y=%d to y=%d (requested delta=%.0f, observed=%.0f)", before.ScrollY, after.ScrollY, deltaY, float64(after.ScrollY-before.ScrollY))
		outcome := verify.AssertOutcome{Passed: moved, Reason: reason}
		r.recordVerification(label, opts.Required, outcome, 1, KindScroll)
	}

	return moved, nil
}

func (r *Runtime) pollForScroll(ctx context.Context, startY int, minDelta float64, pollMs, timeoutMs int) (bool, backend.ViewportInfo, error) {
	deadline := time.Now().Add(time.Duration(timeoutMs) * time.Millisecond)
	var last backend.ViewportInfo
	for {
		info, err := r.be.RefreshPageInfo(ctx)
		if err == nil {
			last = info
			if math.Abs(float64(info.ScrollY-startY)) >= minDelta {
				return true, last, nil
			}
		}
		if time.Now().After(deadline) {
			return false, last, nil
		}
		select {
		case <-ctx.Done():
			return false, last, wrapCancelled(ctx.Err())
		case <-time.After(time.Duration(pollMs) * time.Millisecond):
		}
	}
}
