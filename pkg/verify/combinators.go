package verify

import (
	"strconv"
	"strings"
)

// AllOf is the AND combinator: it passes only when every sub-predicate
// passes, collecting all sub-outcomes and listing the failing reasons.
func AllOf(predicates ...Predicate) Predicate {
	return func(ctx AssertContext) AssertOutcome {
		var failing []string
		details := map[string]interface{}{}
		for i, p := range predicates {
			o := p(ctx)
			if !o.Passed {
				failing = append(failing, o.Reason)
			}
			details[indexKey(i)] = o
		}
		if len(failing) == 0 {
			return AssertOutcome{Passed: true, Reason: "all predicates passed", Details: details}
		}
		return AssertOutcome{
			Passed:  false,
			Reason:  "failed: " + strings.Join(failing, "; "),
			Details: details,
		}
	}
}

// AnyOf is the OR combinator: it passes on the first passing sub-predicate,
// or lists all failure reasons if none pass.
func AnyOf(predicates ...Predicate) Predicate {
	return func(ctx AssertContext) AssertOutcome {
		var failing []string
		details := map[string]interface{}{}
		for i, p := range predicates {
			o := p(ctx)
			details[indexKey(i)] = o
			if o.Passed {
				return AssertOutcome{Passed: true, Reason: o.Reason, Details: details}
			}
			failing = append(failing, o.Reason)
		}
		return AssertOutcome{
			Passed:  false,
			Reason:  "none passed: " + strings.Join(failing, "; "),
			Details: details,
		}
	}
}

// Custom wraps an arbitrary check function with recover, so a panicking
// check produces a failing outcome instead of crashing the caller.
func Custom(fn func(AssertContext) bool, label string) Predicate {
	return func(ctx AssertContext) (outcome AssertOutcome) {
		defer func() {
			if r := recover(); r != nil {
				outcome = fail(label + ": panicked: " + toString(r))
			}
		}()
		if fn(ctx) {
			return pass(label + ": passed")
		}
		return fail(label + ": failed")
	}
}

func indexKey(i int) string {
	return "p" + strconv.Itoa(i)
}

func toString(v interface{}) string {
	if err, ok := v.(error); ok {
		return err.Error()
	}
	if s, ok := v.(string); ok {
		return s
	}
	return "non-string panic value"
}
