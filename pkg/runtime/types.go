// Package runtime implements the agent runtime: step lifecycle, snapshot
// acquisition on demand, assertion evaluation (including retry-with-
// refresh via pkg/eventually), captcha-aware gating, scroll-with-
// verification, and the token-usage accounting hook. It owns exactly one
// open step at a time; concurrent beginStep calls on the same runtime are
// a programming error, not a race to be silently tolerated.
package runtime

import (
	"time"

	"github.com/webverify/agentrt/pkg/verify"
)

// StepStatus tracks whether a Step is still accepting verifications.
type StepStatus string

const (
	StepOpen  StepStatus = "open"
	StepEnded StepStatus = "ended"
)

// VerificationKind tags what produced a VerificationResult.
type VerificationKind string

const (
	KindAssert     VerificationKind = "assert"
	KindAssertDone VerificationKind = "assertDone"
	KindScroll     VerificationKind = "scroll"
	KindCustom     VerificationKind = "custom"
	KindCaptcha    VerificationKind = "captcha"
)

// VerificationResult is the outcome of one assert/check/scroll call,
// ready for trace emission.
type VerificationResult struct {
	Label    string
	Required bool
	Passed   bool
	Reason   string
	Details  map[string]interface{}
	Attempts int
	Kind     VerificationKind
}

// Step is a bounded unit of agent work, bracketed by beginStep/emitStepEnd.
// A step ends exactly once.
type Step struct {
	StepID        string
	Goal          string
	BeganAt       time.Time
	Verifications []VerificationResult
	Status        StepStatus
	Synthetic     bool // true for an auto-opened verify:<label> step
}

func (s *Step) recordVerification(v VerificationResult) {
	s.Verifications = append(s.Verifications, v)
}

// failed reports whether any required verification on this step failed.
func (s *Step) failed() bool {
	for _, v := range s.Verifications {
		if v.Required && !v.Passed {
			return true
		}
	}
	return false
}

// Role identifies which LLM call site a TokenUsage record came from, for
// per-role aggregation in the token accounting hook.
type Role string

const (
	RoleExecutor       Role = "executor"
	RoleVisionExecutor Role = "vision_executor"
	RoleVisionVerifier Role = "vision_verifier"
)

// TokenUsage is one LLM call's accounting record.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	ModelName        string
	Role             Role
}

// AssertionHandle is returned by check(); it defers evaluation so the
// caller can choose between an immediate one-shot check and a
// retry-with-refresh evaluation.
type AssertionHandle struct {
	runtime    *Runtime
	predicate  verify.Predicate
	label      string
	required   bool
}
