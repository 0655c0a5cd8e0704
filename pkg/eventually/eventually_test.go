package eventually

import (
	"context"
	"testing"
	"time"

	"github.com/webverify/agentrt/pkg/verify"
)

func passOnAttempt(target int) (verify.Predicate, *int) {
	calls := 0
	return func(verify.AssertContext) verify.AssertOutcome {
		calls++
		if calls >= target {
			return verify.AssertOutcome{Passed: true, Reason: "finally"}
		}
		return verify.AssertOutcome{Passed: false, Reason: "not yet"}
	}, &calls
}

func TestRunPassesOnFirstAttempt(t *testing.T) {
	predicate, calls := passOnAttempt(1)
	refresh := func(ctx context.Context, limit int) (verify.AssertContext, error) {
		t.Fatal("refresh should not be called when the first attempt passes")
		return verify.AssertContext{}, nil
	}

	result := Run(context.Background(), predicate, verify.AssertContext{}, refresh, Config{TimeoutMs: 1000, PollMs: 10})
	if !result.Passed {
		t.Fatalf("expected Run to pass, got %+v", result.AssertOutcome)
	}
	if result.Attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", result.Attempts)
	}
	if *calls != 1 {
		t.Errorf("expected predicate called once, got %d", *calls)
	}
}

func TestRunRetriesUntilPass(t *testing.T) {
	predicate, _ := passOnAttempt(3)
	refreshCalls := 0
	refresh := func(ctx context.Context, limit int) (verify.AssertContext, error) {
		refreshCalls++
		return verify.AssertContext{}, nil
	}

	result := Run(context.Background(), predicate, verify.AssertContext{}, refresh, Config{TimeoutMs: 5000, PollMs: 1})
	if !result.Passed {
		t.Fatalf("expected eventual pass, got %+v", result.AssertOutcome)
	}
	if result.Attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", result.Attempts)
	}
	if refreshCalls != 2 {
		t.Errorf("expected 2 refreshes (attempts 2 and 3), got %d", refreshCalls)
	}
}

func TestRunExhaustsMaxRetries(t *testing.T) {
	predicate, _ := passOnAttempt(1000)
	refresh := func(ctx context.Context, limit int) (verify.AssertContext, error) {
		return verify.AssertContext{}, nil
	}

	result := Run(context.Background(), predicate, verify.AssertContext{}, refresh, Config{TimeoutMs: 60_000, PollMs: 1, MaxRetries: 3})
	if result.Passed {
		t.Fatal("expected failure once retries are exhausted")
	}
	if result.Attempts != 3 {
		t.Errorf("expected exactly 3 attempts, got %d", result.Attempts)
	}
	if got := result.Reason; got == "" || got[:17] != "retries exhausted" {
		t.Errorf("expected reason prefixed by 'retries exhausted', got %q", got)
	}
}

func TestRunTimesOut(t *testing.T) {
	predicate, _ := passOnAttempt(1000)
	refresh := func(ctx context.Context, limit int) (verify.AssertContext, error) {
		return verify.AssertContext{}, nil
	}

	result := Run(context.Background(), predicate, verify.AssertContext{}, refresh, Config{TimeoutMs: 20, PollMs: 5})
	if result.Passed {
		t.Fatal("expected timeout failure")
	}
	if len(result.Reason) < 7 || result.Reason[:7] != "timeout" {
		t.Errorf("expected reason prefixed by 'timeout', got %q", result.Reason)
	}
}

func TestRunHonorsContextCancellation(t *testing.T) {
	predicate, _ := passOnAttempt(1000)
	refresh := func(ctx context.Context, limit int) (verify.AssertContext, error) {
		return verify.AssertContext{}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(15 * time.Millisecond)
		cancel()
	}()

	result := Run(ctx, predicate, verify.AssertContext{}, refresh, Config{TimeoutMs: 5000, PollMs: 50})
	if result.Passed {
		t.Fatal("expected cancellation failure")
	}
	if len(result.Reason) < 10 || result.Reason[:10] != "cancelled:" {
		t.Errorf("expected reason prefixed by 'cancelled:', got %q", result.Reason)
	}
}

func TestGrowthPolicyNextLimit(t *testing.T) {
	g := &GrowthPolicy{StartLimit: 50, Step: 25, MaxLimit: 100}

	if got := g.nextLimit(50); got != 75 {
		t.Errorf("nextLimit(50) = %d, want 75", got)
	}
	if got := g.nextLimit(90); got != 100 {
		t.Errorf("nextLimit(90) should clamp to MaxLimit 100, got %d", got)
	}
}

func TestRunGrowsLimitAcrossRetries(t *testing.T) {
	predicate, _ := passOnAttempt(3)
	var seenLimits []int
	refresh := func(ctx context.Context, limit int) (verify.AssertContext, error) {
		seenLimits = append(seenLimits, limit)
		return verify.AssertContext{}, nil
	}

	cfg := Config{
		TimeoutMs: 5000,
		PollMs:    1,
		Growth:    &GrowthPolicy{StartLimit: 50, Step: 25, MaxLimit: 200},
	}

	Run(context.Background(), predicate, verify.AssertContext{}, refresh, cfg)

	if len(seenLimits) != 2 {
		t.Fatalf("expected 2 refresh calls, got %d: %v", len(seenLimits), seenLimits)
	}
	if seenLimits[0] != 75 || seenLimits[1] != 100 {
		t.Errorf("expected growing limits [75,100], got %v", seenLimits)
	}
}

func TestRunApplyOnAllFrontLoadsFirstRefresh(t *testing.T) {
	predicate, _ := passOnAttempt(2)
	var seenLimits []int
	refresh := func(ctx context.Context, limit int) (verify.AssertContext, error) {
		seenLimits = append(seenLimits, limit)
		return verify.AssertContext{}, nil
	}

	cfg := Config{
		TimeoutMs: 5000,
		PollMs:    1,
		Growth:    &GrowthPolicy{StartLimit: 50, Step: 25, MaxLimit: 200, ApplyOn: All},
	}

	Run(context.Background(), predicate, verify.AssertContext{}, refresh, cfg)

	if len(seenLimits) != 2 {
		t.Fatalf("expected a front-loaded refresh on attempt 1 plus one on attempt 2, got %d: %v", len(seenLimits), seenLimits)
	}
	if seenLimits[0] != 50 {
		t.Errorf("expected the first (front-loaded) refresh to use StartLimit 50, got %d", seenLimits[0])
	}
	if seenLimits[1] != 75 {
		t.Errorf("expected the second refresh to have grown to 75, got %d", seenLimits[1])
	}
}

func TestRunApplyOnOnlyOnFailDoesNotRefreshFirstAttempt(t *testing.T) {
	predicate, _ := passOnAttempt(1)
	refresh := func(ctx context.Context, limit int) (verify.AssertContext, error) {
		t.Fatal("OnlyOnFail should not refresh before the first attempt when it passes")
		return verify.AssertContext{}, nil
	}

	cfg := Config{
		TimeoutMs: 5000,
		PollMs:    1,
		Growth:    &GrowthPolicy{StartLimit: 50, Step: 25, MaxLimit: 200, ApplyOn: OnlyOnFail},
	}

	result := Run(context.Background(), predicate, verify.AssertContext{}, refresh, cfg)
	if !result.Passed || result.Attempts != 1 {
		t.Fatalf("expected a first-attempt pass with no refresh, got %+v", result)
	}
}
