package runtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/webverify/agentrt/pkg/backend"
	"github.com/webverify/agentrt/pkg/logging"
	"github.com/webverify/agentrt/pkg/snapshot"
	"github.com/webverify/agentrt/pkg/trace"
)

// Runtime is the agent-facing entry point: one open step at a time,
// on-demand snapshot acquisition through a staleness-aware cache,
// captcha-gated progress, and a trace event for every step/snapshot/
// verification it produces. It holds no LLM or action-grammar knowledge —
// that lives one layer up, in pkg/agent.
type Runtime struct {
	RunID string

	be     backend.Backend
	cache  *snapshot.Cache
	tracer trace.Sink
	logger *logging.Logger

	captchaOpts CaptchaOptions
	artifacts   *trace.ArtifactBundler

	mu          sync.Mutex
	currentStep *Step
	tokenUsage  []TokenUsage
}

// New creates a Runtime over be, acquiring snapshots through cache and
// emitting every event to tracer. A nil tracer is rejected in favor of
// trace.NoopSink by the caller, not silently substituted here.
func New(be backend.Backend, cache *snapshot.Cache, tracer trace.Sink, logger *logging.Logger, captchaOpts CaptchaOptions) *Runtime {
	return &Runtime{
		RunID:       uuid.New().String(),
		be:          be,
		cache:       cache,
		tracer:      tracer,
		logger:      logger,
		captchaOpts: captchaOpts,
	}
}

// WithArtifactBundler attaches a failure-artifact sink for required
// verification failures. Optional: without one, failures are only
// recorded as trace events.
func (r *Runtime) WithArtifactBundler(b *trace.ArtifactBundler) *Runtime {
	r.artifacts = b
	return r
}

// BeginStep opens a new step bracketed by a matching EmitStepEnd. Calling
// it while another step is still open is a programming error — the
// runtime owns exactly one open step.
func (r *Runtime) BeginStep(goal string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.currentStep != nil && r.currentStep.Status == StepOpen {
		return "", &ProgrammerError{Reason: fmt.Sprintf("beginStep(%q) called while step %s is still open", goal, r.currentStep.StepID)}
	}

	step := &Step{
		StepID:  uuid.New().String(),
		Goal:    goal,
		BeganAt: time.Now(),
		Status:  StepOpen,
	}
	r.currentStep = step

	r.emit(trace.Event{
		Type:      trace.EventStepStart,
		RunID:     r.RunID,
		StepID:    step.StepID,
		Timestamp: time.Now().UnixMilli(),
		Data:      map[string]interface{}{"goal": goal},
	})

	return step.StepID, nil
}

// beginSyntheticStep opens an unlabeled step for a bare assert/check call
// made with no enclosing BeginStep, matching the spec's "auto-opened
// verify:<label>" fallback so a caller can assert without first calling
// BeginStep explicitly.
func (r *Runtime) beginSyntheticStep(label string) *Step {
	step := &Step{
		StepID:    uuid.New().String(),
		Goal:      fmt.Sprintf("verify:%s", label),
		BeganAt:   time.Now(),
		Status:    StepOpen,
		Synthetic: true,
	}
	r.currentStep = step
	r.emit(trace.Event{
		Type:      trace.EventStepStart,
		RunID:     r.RunID,
		StepID:    step.StepID,
		Timestamp: time.Now().UnixMilli(),
		Data:      map[string]interface{}{"goal": step.Goal, "synthetic": true},
	})
	return step
}

// EmitStepEnd closes the current step, emitting a step_end event carrying
// extra plus the step's accumulated verification summary. It is
// idempotent: calling it again with no open step is a no-op that returns
// nil, rather than an error, so a deferred EmitStepEnd after an earlier
// explicit call never panics or double-reports.
func (r *Runtime) EmitStepEnd(extra map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.emitStepEndLocked(extra)
}

func (r *Runtime) emitStepEndLocked(extra map[string]interface{}) error {
	step := r.currentStep
	if step == nil || step.Status == StepEnded {
		return nil
	}
	step.Status = StepEnded

	data := map[string]interface{}{}
	for k, v := range extra {
		data[k] = v
	}
	data["goal"] = step.Goal
	data["duration_ms"] = time.Since(step.BeganAt).Milliseconds()
	data["failed"] = step.failed()
	data["verification_count"] = len(step.Verifications)

	r.emit(trace.Event{
		Type:      trace.EventStepEnd,
		RunID:     r.RunID,
		StepID:    step.StepID,
		Timestamp: time.Now().UnixMilli(),
		Data:      data,
	})

	if step.failed() {
		r.writeFailureArtifact(step)
	}

	return nil
}

// Snapshot acquires a snapshot through the cache (honoring forceRefresh),
// emits a snapshot trace event, and applies captcha gating before
// returning it to the caller.
func (r *Runtime) Snapshot(ctx context.Context, opts snapshot.Options, forceRefresh bool) (*snapshot.Snapshot, error) {
	snap, err := r.cache.Get(ctx, opts, forceRefresh)
	if err != nil {
		return nil, wrapCancelled(err)
	}

	r.emitSnapshotEvent(snap)

	gated, err := r.gateCaptcha(ctx, snap)
	if err != nil {
		return gated, err
	}
	return gated, nil
}

// refreshSnapshot forces a fresh acquisition, bypassing the cache's
// staleness budget. Used by the captcha clear-wait poll loop and by
// eventually's RefreshFunc.
func (r *Runtime) refreshSnapshot(ctx context.Context) (*snapshot.Snapshot, error) {
	snap, err := r.cache.Get(ctx, snapshot.Options{}, true)
	if err != nil {
		return nil, wrapCancelled(err)
	}
	r.emitSnapshotEvent(snap)
	return snap, nil
}

func (r *Runtime) emitSnapshotEvent(snap *snapshot.Snapshot) {
	stepID := ""
	if r.currentStep != nil {
		stepID = r.currentStep.StepID
	}
	data := map[string]interface{}{
		"url":           snap.URL,
		"element_count": len(snap.Elements),
		"status":        snap.Status,
	}
	if snap.Diagnostics != nil && snap.Diagnostics.Captcha != nil {
		data["captcha_detected"] = snap.Diagnostics.Captcha.Detected
	}
	r.emit(trace.Event{
		Type:      trace.EventSnapshot,
		RunID:     r.RunID,
		StepID:    stepID,
		Timestamp: time.Now().UnixMilli(),
		Data:      data,
	})
}

// emitVerificationEvent emits a trace event for one recorded
// VerificationResult. Called directly by callers that have already
// appended to currentStep.Verifications.
func (r *Runtime) emitVerificationEvent(v VerificationResult) {
	stepID := ""
	if r.currentStep != nil {
		stepID = r.currentStep.StepID
	}
	r.emit(trace.Event{
		Type:      trace.EventVerification,
		RunID:     r.RunID,
		StepID:    stepID,
		Timestamp: time.Now().UnixMilli(),
		Data: map[string]interface{}{
			"label":    v.Label,
			"kind":     v.Kind,
			"required": v.Required,
			"passed":   v.Passed,
			"reason":   v.Reason,
			"details":  v.Details,
			"attempts": v.Attempts,
		},
	})
}

func (r *Runtime) emit(e trace.Event) {
	if r.tracer == nil {
		return
	}
	if err := r.tracer.Emit(e); err != nil && r.logger != nil {
		r.logger.Warnf("trace: emit failed for %s: %v", e.Type, err)
	}
}

func (r *Runtime) writeFailureArtifact(step *Step) {
	if r.artifacts == nil {
		return
	}
	diag := map[string]interface{}{}
	shot := ""
	if snap := r.cache.Cached(); snap != nil {
		diag["url"] = snap.URL
		if snap.Diagnostics != nil {
			diag["captcha"] = snap.Diagnostics.Captcha
		}
	}
	path, err := r.artifacts.Write(trace.FailureArtifact{
		RunID:               r.RunID,
		StepID:              step.StepID,
		Snapshot:            r.cache.Cached(),
		Diagnostics:         diag,
		Verifications:       step.Verifications,
		ScreenshotPNGBase64: shot,
	})
	if err != nil {
		if r.logger != nil {
			r.logger.Warnf("trace: failure artifact write failed: %v", err)
		}
		return
	}
	r.emit(trace.Event{
		Type:      trace.EventError,
		RunID:     r.RunID,
		StepID:    step.StepID,
		Timestamp: time.Now().UnixMilli(),
		Data:      map[string]interface{}{"artifact_path": path},
	})
}

// RecordTokenUsage appends one LLM call's accounting record to the run's
// ledger. It performs no aggregation itself; callers needing per-role
// totals fold over TokenUsageLedger.
func (r *Runtime) RecordTokenUsage(u TokenUsage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokenUsage = append(r.tokenUsage, u)
}

// TokenUsageLedger returns a copy of every TokenUsage recorded so far.
func (r *Runtime) TokenUsageLedger() []TokenUsage {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]TokenUsage, len(r.tokenUsage))
	copy(out, r.tokenUsage)
	return out
}

// LastSnapshot returns the most recently cached snapshot without
// triggering acquisition, or nil if none has been captured yet.
func (r *Runtime) LastSnapshot() *snapshot.Snapshot {
	return r.cache.Cached()
}

// InvalidateSnapshot zeros the snapshot cache, forcing the next Snapshot
// call to acquire fresh. Callers invalidate after every mutating action.
func (r *Runtime) InvalidateSnapshot() {
	r.cache.Invalidate()
}

// Backend returns the backend this runtime drives actions against.
func (r *Runtime) Backend() backend.Backend { return r.be }

// CurrentStepID returns the open step's ID, or "" if no step is open.
func (r *Runtime) CurrentStepID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.currentStep == nil || r.currentStep.Status != StepOpen {
		return ""
	}
	return r.currentStep.StepID
}
