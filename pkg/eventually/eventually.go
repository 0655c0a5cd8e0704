// Package eventually implements the retry-with-refresh evaluator: given a
// Predicate and a callback that can produce a fresh AssertContext, it
// re-evaluates the predicate against successively fresher snapshots until
// it passes or the timeout/retry budget is exhausted.
package eventually

import (
	"context"
	"fmt"
	"time"

	"github.com/webverify/agentrt/pkg/verify"
)

// ApplyOn controls when adaptive limit growth takes effect.
type ApplyOn string

const (
	// OnlyOnFail grows the requested limit only after a failing attempt;
	// the first attempt evaluates the caller's initial context as-is.
	OnlyOnFail ApplyOn = "only_on_fail"
	// All front-loads growth: even the first attempt is preceded by a
	// refresh at the policy's StartLimit instead of trusting the
	// caller's initial capture, then grows on every failure as usual.
	All ApplyOn = "all"
)

// GrowthPolicy adapts the snapshot element limit across retries so
// virtualized/long pages get a bigger capture once the smaller one has
// failed to reveal the target, without unconditionally requesting the
// maximum limit (and burning prompt tokens) on every attempt.
type GrowthPolicy struct {
	StartLimit int
	Step       int
	MaxLimit   int
	ApplyOn    ApplyOn
}

// nextLimit returns the limit to request on the next refresh, given the
// limit used on the attempt that just failed.
func (g *GrowthPolicy) nextLimit(current int) int {
	next := current + g.Step
	if g.MaxLimit > 0 && next > g.MaxLimit {
		next = g.MaxLimit
	}
	return next
}

// Config tunes a single eventually run.
type Config struct {
	TimeoutMs  int
	PollMs     int
	MaxRetries int // 0 means unbounded (timeout is the only cap)
	Growth     *GrowthPolicy
}

// RefreshFunc produces a fresh AssertContext, requesting that the
// underlying snapshot be captured with at least `limit` elements when the
// snapshot service respects limits (limit is 0 when no GrowthPolicy is set).
type RefreshFunc func(ctx context.Context, limit int) (verify.AssertContext, error)

// Result is an AssertOutcome annotated with the number of attempts made,
// mirroring the attempts field a VerificationResult records downstream.
type Result struct {
	verify.AssertOutcome
	Attempts int
}

// Run repeatedly evaluates predicate against contexts produced by refresh,
// starting from initial on the first attempt. Termination is whichever
// comes first: elapsed ≥ TimeoutMs, attempts ≥ MaxRetries (if set), or the
// predicate passes. On timeout/retry-exhaustion the last failing outcome
// is returned with its reason prefixed by the termination cause.
func Run(ctx context.Context, predicate verify.Predicate, initial verify.AssertContext, refresh RefreshFunc, cfg Config) Result {
	deadline := time.Now().Add(time.Duration(cfg.TimeoutMs) * time.Millisecond)

	currentCtx := initial
	currentLimit := 0
	if cfg.Growth != nil {
		currentLimit = cfg.Growth.StartLimit
	}

	var lastOutcome verify.AssertOutcome
	attempt := 0

	for {
		attempt++

		frontLoaded := attempt == 1 && cfg.Growth != nil && cfg.Growth.ApplyOn == All
		if attempt > 1 || frontLoaded {
			if refreshed, err := refresh(ctx, currentLimit); err == nil {
				currentCtx = refreshed
			}
			// A refresh error leaves currentCtx stale for this attempt;
			// the predicate will likely fail again and the loop will
			// retry on the next iteration's poll.
		}

		outcome := predicate(currentCtx)
		if outcome.Passed {
			return Result{AssertOutcome: outcome, Attempts: attempt}
		}
		lastOutcome = outcome

		if cfg.Growth != nil {
			currentLimit = cfg.Growth.nextLimit(currentLimit)
		}

		if time.Now().After(deadline) {
			return Result{AssertOutcome: prefixReason(lastOutcome, "timeout"), Attempts: attempt}
		}
		if cfg.MaxRetries > 0 && attempt >= cfg.MaxRetries {
			return Result{AssertOutcome: prefixReason(lastOutcome, "retries exhausted"), Attempts: attempt}
		}

		select {
		case <-ctx.Done():
			return Result{AssertOutcome: prefixReason(lastOutcome, "cancelled"), Attempts: attempt}
		case <-time.After(time.Duration(cfg.PollMs) * time.Millisecond):
		}
	}
}

func prefixReason(o verify.AssertOutcome, cause string) verify.AssertOutcome {
	o.Reason = fmt.Sprintf("%s: %s", cause, o.Reason)
	return o
}
