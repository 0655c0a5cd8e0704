package runtime

import (
	"context"

	"github.com/webverify/agentrt/pkg/eventually"
	"github.com/webverify/agentrt/pkg/snapshot"
	"github.com/webverify/agentrt/pkg/verify"
)

func (r *Runtime) buildAssertContext(snap *snapshot.Snapshot) verify.AssertContext {
	stepID := ""
	if r.currentStep != nil {
		stepID = r.currentStep.StepID
	}
	url := ""
	if snap != nil {
		url = snap.URL
	}
	return verify.AssertContext{Snapshot: snap, URL: url, StepID: stepID}
}

// Assert evaluates predicate once against the current snapshot, records
// the outcome against the open step (opening a synthetic one if none is
// open), and emits a verification event. required controls only whether
// a failure marks the step failed — Assert never retries itself; see
// Check for retry-with-refresh.
func (r *Runtime) Assert(ctx context.Context, predicate verify.Predicate, label string, required bool) (verify.AssertOutcome, error) {
	return r.assertWithKind(ctx, predicate, label, required, KindAssert)
}

func (r *Runtime) assertWithKind(ctx context.Context, predicate verify.Predicate, label string, required bool, kind VerificationKind) (verify.AssertOutcome, error) {
	r.mu.Lock()
	if r.currentStep == nil || r.currentStep.Status != StepOpen {
		r.beginSyntheticStep(label)
	}
	r.mu.Unlock()

	snap, err := r.Snapshot(ctx, snapshot.Options{}, false)
	if err != nil {
		return verify.AssertOutcome{}, err
	}

	outcome := predicate(r.buildAssertContext(snap))
	r.recordVerification(label, required, outcome, 1, kind)
	return outcome, nil
}

// AssertDone evaluates predicate like Assert, then closes the current
// step regardless of outcome — the step-ending counterpart to Assert for
// callers that know this assertion is the step's last act. Its
// verification is recorded as KindAssertDone rather than KindAssert.
func (r *Runtime) AssertDone(ctx context.Context, predicate verify.Predicate, label string) (verify.AssertOutcome, error) {
	outcome, err := r.assertWithKind(ctx, predicate, label, true, KindAssertDone)
	if endErr := r.EmitStepEnd(nil); endErr != nil && err == nil {
		err = endErr
	}
	return outcome, err
}

func (r *Runtime) recordVerification(label string, required bool, outcome verify.AssertOutcome, attempts int, kind VerificationKind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.currentStep == nil {
		return
	}
	v := VerificationResult{
		Label:    label,
		Required: required,
		Passed:   outcome.Passed,
		Reason:   outcome.Reason,
		Details:  outcome.Details,
		Attempts: attempts,
		Kind:     kind,
	}
	r.currentStep.recordVerification(v)
	r.emitVerificationEvent(v)
}

// Check returns a deferred AssertionHandle so the caller can choose
// Once (single evaluation, equivalent to Assert) or Eventually (retry
// with snapshot refresh via pkg/eventually).
func (r *Runtime) Check(predicate verify.Predicate, label string, required bool) *AssertionHandle {
	return &AssertionHandle{runtime: r, predicate: predicate, label: label, required: required}
}

// Once evaluates the handle's predicate a single time.
func (h *AssertionHandle) Once(ctx context.Context) (verify.AssertOutcome, error) {
	return h.runtime.Assert(ctx, h.predicate, h.label, h.required)
}

// Eventually retries the predicate against successively refreshed
// snapshots per cfg until it passes or the retry budget is exhausted,
// recording exactly one VerificationResult for the final outcome with
// Attempts set to however many evaluations it took.
func (h *AssertionHandle) Eventually(ctx context.Context, cfg eventually.Config) (eventually.Result, error) {
	r := h.runtime

	r.mu.Lock()
	if r.currentStep == nil || r.currentStep.Status != StepOpen {
		r.beginSyntheticStep(h.label)
	}
	r.mu.Unlock()

	snap, err := r.Snapshot(ctx, snapshot.Options{}, false)
	if err != nil {
		return eventually.Result{}, err
	}
	initial := r.buildAssertContext(snap)

	refresh := func(ctx context.Context, limit int) (verify.AssertContext, error) {
		opts := snapshot.Options{}
		if limit > 0 {
			opts.Limit = limit
		}
		fresh, err := r.Snapshot(ctx, opts, true)
		if err != nil {
			return verify.AssertContext{}, err
		}
		return r.buildAssertContext(fresh), nil
	}

	result := eventually.Run(ctx, h.predicate, initial, refresh, cfg)
	r.recordVerification(h.label, h.required, result.AssertOutcome, result.Attempts, KindAssert)
	if cancelErr := wrapCancelled(ctx.Err()); cancelErr != nil {
		return result, cancelErr
	}
	return result, nil
}
