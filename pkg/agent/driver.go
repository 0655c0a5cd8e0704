package agent

import (
	"context"
	"fmt"

	"github.com/webverify/agentrt/pkg/eventually"
	"github.com/webverify/agentrt/pkg/runtime"
	"github.com/webverify/agentrt/pkg/snapshot"
	"github.com/webverify/agentrt/pkg/verify"
)

// VerificationSpec is one verification a StepSpec wants evaluated after
// its action executes. When Eventually is set, the verification is
// evaluated with retry-with-refresh via pkg/eventually; otherwise it is a
// single evaluation against the post-action snapshot.
//
// Predicate is the usual in-process case: a Go closure built by the
// caller. PredicateName is the serialized-step-plan case — a name
// resolved against the Driver's registry (see WithPredicateRegistry) so
// a step plan loaded from YAML/JSON can reference library predicates by
// name instead of requiring Go code. At most one of the two should be
// set; Predicate wins if both are.
type VerificationSpec struct {
	Predicate     verify.Predicate
	PredicateName string
	Label         string
	Required      bool
	Eventually    *eventually.Config
}

// StepSpec describes one iteration of the step loop.
type StepSpec struct {
	Goal               string
	SnapshotLimitBase  int
	Verifications      []VerificationSpec
	DomContext         string
	HistorySummary     string
}

// RunConfig drives Driver.Run over a sequence of steps.
type RunConfig struct {
	Steps         []StepSpec
	StopOnFailure bool
}

// StepOutcome is the result of one Driver.Step call.
type StepOutcome struct {
	OK            bool
	Finished      bool
	Action        Action
	Verifications []verify.AssertOutcome
	Err           error
}

// Driver owns the step loop: it asks an Executor for the next action,
// parses and executes it against the runtime's backend, re-snapshots, and
// evaluates the step's verifications, escalating to a VisionExecutor on
// required-verification failure when one is configured.
type Driver struct {
	rt             *runtime.Runtime
	executor       Executor
	vision         VisionExecutor
	promptBuilder  PromptBuilder
	selectorConfig snapshot.SelectorConfig
	registry       *verify.Registry

	visionFallback    bool
	maxVisionAttempts int
}

// New creates a Driver over rt driven by executor. Options configure
// vision fallback and prompt construction; sensible defaults apply when
// omitted.
func New(rt *runtime.Runtime, executor Executor, opts ...Option) *Driver {
	d := &Driver{
		rt:                rt,
		executor:          executor,
		selectorConfig:    snapshot.DefaultSelectorConfig(),
		maxVisionAttempts: 1,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.promptBuilder == nil {
		d.promptBuilder = DefaultPromptBuilder(d.selectorConfig)
	}
	return d
}

// Option configures a Driver.
type Option func(*Driver)

// WithVisionExecutor enables vision fallback using vx when a step's
// required verifications fail after its primary action.
func WithVisionExecutor(vx VisionExecutor) Option {
	return func(d *Driver) {
		d.vision = vx
		d.visionFallback = true
	}
}

// WithPromptBuilder overrides the default compact-prompt builder.
func WithPromptBuilder(b PromptBuilder) Option {
	return func(d *Driver) { d.promptBuilder = b }
}

// WithSelectorConfig overrides the default 60/15/10 compaction
// cardinalities used both for prompt rendering and the default builder.
func WithSelectorConfig(cfg snapshot.SelectorConfig) Option {
	return func(d *Driver) { d.selectorConfig = cfg }
}

// WithMaxVisionAttempts bounds how many vision-fallback attempts Step will
// make for a single failing step. Default 1.
func WithMaxVisionAttempts(n int) Option {
	return func(d *Driver) { d.maxVisionAttempts = n }
}

// WithPredicateRegistry lets StepSpec.Verifications reference predicates
// by name (VerificationSpec.PredicateName) instead of only by Go closure,
// so a step plan read from a file can drive the same step loop. Without
// one, a PredicateName that isn't backed by a Predicate always fails.
func WithPredicateRegistry(r *verify.Registry) Option {
	return func(d *Driver) { d.registry = r }
}

// Step drives one iteration of the loop per spec.md §4.6: snapshot, ask
// the executor, parse, execute, re-snapshot, verify, optionally escalate
// to vision, end the step.
func (d *Driver) Step(ctx context.Context, taskGoal string, spec StepSpec) (StepOutcome, error) {
	limit := spec.SnapshotLimitBase
	if limit <= 0 {
		limit = snapshot.DefaultLimit
	}

	if _, err := d.rt.BeginStep(stepLabel(taskGoal, spec.Goal)); err != nil {
		return StepOutcome{}, err
	}

	snap, err := d.rt.Snapshot(ctx, snapshot.Options{Limit: limit}, true)
	if err != nil {
		d.rt.EmitStepEnd(map[string]interface{}{"error": err.Error()})
		return StepOutcome{}, err
	}

	systemPrompt, userPrompt := d.promptBuilder(taskGoal, spec.Goal, spec.DomContext, snap, spec.HistorySummary)

	raw, usage, err := d.executor.NextAction(ctx, systemPrompt, userPrompt)
	if err != nil {
		d.rt.EmitStepEnd(map[string]interface{}{"error": err.Error()})
		return StepOutcome{}, err
	}
	usage.Role = runtime.RoleExecutor
	d.rt.RecordTokenUsage(usage)

	action, err := ParseAction(raw)
	if err != nil {
		d.rt.EmitStepEnd(map[string]interface{}{"error": err.Error(), "raw_action": raw})
		return StepOutcome{Err: err}, nil
	}

	if action.Kind == ActionFinish {
		d.rt.EmitStepEnd(map[string]interface{}{"action": action.String()})
		return StepOutcome{OK: true, Finished: true, Action: action}, nil
	}

	if err := d.executeAction(ctx, snap, action); err != nil {
		d.rt.EmitStepEnd(map[string]interface{}{"action": action.String(), "error": err.Error()})
		return StepOutcome{Action: action, Err: err}, nil
	}
	d.rt.InvalidateSnapshot()

	outcomes, ok := d.runVerifications(ctx, spec.Verifications)

	if !ok && d.visionFallback {
		outcomes, ok = d.attemptVisionFallback(ctx, taskGoal, spec, outcomes)
	}

	d.rt.EmitStepEnd(map[string]interface{}{"action": action.String(), "ok": ok})
	return StepOutcome{OK: ok, Action: action, Verifications: outcomes}, nil
}

// Run iterates Step over cfg.Steps, stopping early on the first failing
// step when StopOnFailure is set, or the first FINISH() action.
func (d *Driver) Run(ctx context.Context, taskGoal string, cfg RunConfig) ([]StepOutcome, error) {
	outcomes := make([]StepOutcome, 0, len(cfg.Steps))
	for _, spec := range cfg.Steps {
		outcome, err := d.Step(ctx, taskGoal, spec)
		outcomes = append(outcomes, outcome)
		if err != nil {
			return outcomes, err
		}
		if outcome.Finished {
			break
		}
		if cfg.StopOnFailure && !outcome.OK {
			break
		}
	}
	return outcomes, nil
}

// resolvePredicate returns v.Predicate directly when set, otherwise
// looks v.PredicateName up in the Driver's registry.
func (d *Driver) resolvePredicate(v VerificationSpec) (verify.Predicate, error) {
	if v.Predicate != nil {
		return v.Predicate, nil
	}
	if v.PredicateName == "" {
		return nil, fmt.Errorf("verification %q: no predicate or predicate name set", v.Label)
	}
	if d.registry == nil {
		return nil, fmt.Errorf("verification %q: predicate name %q set but no registry configured", v.Label, v.PredicateName)
	}
	p, ok := d.registry.Get(v.PredicateName)
	if !ok {
		return nil, fmt.Errorf("verification %q: unknown predicate name %q", v.Label, v.PredicateName)
	}
	return p, nil
}

func (d *Driver) runVerifications(ctx context.Context, specs []VerificationSpec) ([]verify.AssertOutcome, bool) {
	outcomes := make([]verify.AssertOutcome, 0, len(specs))
	ok := true
	for _, v := range specs {
		predicate, resolveErr := d.resolvePredicate(v)
		if resolveErr != nil {
			outcome := verify.AssertOutcome{Passed: false, Reason: resolveErr.Error()}
			outcomes = append(outcomes, outcome)
			if v.Required {
				ok = false
			}
			continue
		}

		handle := d.rt.Check(predicate, v.Label, v.Required)
		var outcome verify.AssertOutcome
		var err error
		if v.Eventually != nil {
			var result eventually.Result
			result, err = handle.Eventually(ctx, *v.Eventually)
			outcome = result.AssertOutcome
		} else {
			outcome, err = handle.Once(ctx)
		}
		if err != nil {
			outcome = verify.AssertOutcome{Passed: false, Reason: err.Error()}
		}
		outcomes = append(outcomes, outcome)
		if v.Required && !outcome.Passed {
			ok = false
		}
	}
	return outcomes, ok
}

// attemptVisionFallback captures a screenshot, asks the vision executor
// for a coordinate-based action, executes it, and re-evaluates the step's
// verifications. It gives up after maxVisionAttempts rounds.
func (d *Driver) attemptVisionFallback(ctx context.Context, taskGoal string, spec StepSpec, lastOutcomes []verify.AssertOutcome) ([]verify.AssertOutcome, bool) {
	if d.vision == nil {
		return lastOutcomes, false
	}

	outcomes := lastOutcomes
	ok := false
	for attempt := 0; attempt < d.maxVisionAttempts; attempt++ {
		shot, err := d.rt.Backend().ScreenshotPNG(ctx)
		if err != nil {
			return outcomes, false
		}

		systemPrompt, userPrompt := d.promptBuilder(taskGoal, spec.Goal, spec.DomContext, d.rt.LastSnapshot(), spec.HistorySummary)
		raw, usage, err := d.vision.NextVisionAction(ctx, systemPrompt, userPrompt, shot)
		if err != nil {
			return outcomes, false
		}
		usage.Role = runtime.RoleVisionExecutor
		d.rt.RecordTokenUsage(usage)

		action, err := ParseAction(raw)
		if err != nil || (action.Kind != ActionClickXY && action.Kind != ActionClickRect) {
			return outcomes, false
		}

		if err := d.executeVisionAction(ctx, action); err != nil {
			return outcomes, false
		}
		d.rt.InvalidateSnapshot()

		outcomes, ok = d.runVerifications(ctx, spec.Verifications)
		if ok {
			return outcomes, true
		}
	}
	return outcomes, ok
}

func (d *Driver) executeAction(ctx context.Context, snap *snapshot.Snapshot, action Action) error {
	be := d.rt.Backend()
	switch action.Kind {
	case ActionClick:
		el, ok := findElement(snap, action.ElementID)
		if !ok {
			return &ElementNotFound{ElementID: action.ElementID}
		}
		x, y := center(el)
		if err := be.MouseMove(ctx, x, y); err != nil {
			return err
		}
		return be.MouseClick(ctx, x, y, "left", 1)

	case ActionType:
		el, ok := findElement(snap, action.ElementID)
		if !ok {
			return &ElementNotFound{ElementID: action.ElementID}
		}
		x, y := center(el)
		if err := be.MouseMove(ctx, x, y); err != nil {
			return err
		}
		if err := be.MouseClick(ctx, x, y, "left", 1); err != nil {
			return err
		}
		return be.TypeText(ctx, action.Text)

	case ActionPress:
		return be.KeyPress(ctx, action.Key)

	default:
		return fmt.Errorf("executeAction: unsupported action kind %q", action.Kind)
	}
}

func (d *Driver) executeVisionAction(ctx context.Context, action Action) error {
	be := d.rt.Backend()
	var x, y float64
	switch action.Kind {
	case ActionClickXY:
		x, y = action.X, action.Y
	case ActionClickRect:
		x, y = action.X+action.W/2, action.Y+action.H/2
	default:
		return fmt.Errorf("executeVisionAction: unsupported action kind %q", action.Kind)
	}
	if err := be.MouseMove(ctx, x, y); err != nil {
		return err
	}
	return be.MouseClick(ctx, x, y, "left", 1)
}

func findElement(snap *snapshot.Snapshot, id int) (snapshot.Element, bool) {
	if snap == nil {
		return snapshot.Element{}, false
	}
	for _, e := range snap.Elements {
		if e.ID == id {
			return e, true
		}
	}
	return snapshot.Element{}, false
}

func center(e snapshot.Element) (float64, float64) {
	return e.BBox.X + e.BBox.Width/2, e.BBox.Y + e.BBox.Height/2
}

func stepLabel(taskGoal, stepGoal string) string {
	if stepGoal == "" {
		return taskGoal
	}
	return fmt.Sprintf("%s: %s", taskGoal, stepGoal)
}
