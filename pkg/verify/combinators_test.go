package verify

import "testing"

func always(passed bool, reason string) Predicate {
	return func(AssertContext) AssertOutcome {
		return AssertOutcome{Passed: passed, Reason: reason}
	}
}

func TestAllOf(t *testing.T) {
	ctx := AssertContext{}

	if !AllOf(always(true, "a"), always(true, "b"))(ctx).Passed {
		t.Error("AllOf of two passing predicates should pass")
	}

	o := AllOf(always(true, "a"), always(false, "nope"))(ctx)
	if o.Passed {
		t.Error("AllOf should fail when any sub-predicate fails")
	}
	if len(o.Details) != 2 {
		t.Errorf("expected 2 detail entries, got %d", len(o.Details))
	}
}

func TestAnyOf(t *testing.T) {
	ctx := AssertContext{}

	if !AnyOf(always(false, "nope"), always(true, "yep"))(ctx).Passed {
		t.Error("AnyOf should pass when one sub-predicate passes")
	}

	o := AnyOf(always(false, "a"), always(false, "b"))(ctx)
	if o.Passed {
		t.Error("AnyOf should fail when every sub-predicate fails")
	}
}

func TestCustomRecoversFromPanic(t *testing.T) {
	panicking := Custom(func(AssertContext) bool {
		panic("boom")
	}, "risky check")

	o := panicking(AssertContext{})
	if o.Passed {
		t.Error("a panicking Custom predicate must fail, not panic the caller")
	}
	if o.Reason == "" {
		t.Error("expected a non-empty failure reason describing the panic")
	}
}

func TestCustomPassFail(t *testing.T) {
	pass := Custom(func(AssertContext) bool { return true }, "always true")
	fail := Custom(func(AssertContext) bool { return false }, "always false")

	if !pass(AssertContext{}).Passed {
		t.Error("expected passing Custom predicate to pass")
	}
	if fail(AssertContext{}).Passed {
		t.Error("expected failing Custom predicate to fail")
	}
}
