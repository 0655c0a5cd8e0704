package verify

import (
	"fmt"
	"strings"
)

// Expectation is the fluent `expect(query)` entry point. Each terminal
// method compiles the query into the same Predicate shape the rest of the
// algebra consumes.
type Expectation struct {
	query ElementQuery
}

// Expect begins a fluent assertion over q.
func Expect(q ElementQuery) Expectation {
	return Expectation{query: q}
}

// ToExist passes when the query matches at least one element.
func (e Expectation) ToExist() Predicate {
	q := e.query
	return func(ctx AssertContext) AssertOutcome {
		if ctx.Snapshot == nil {
			return fail("expect.toExist: no snapshot in context")
		}
		matches := q.MatchAll(ctx.Snapshot.Elements)
		if len(matches) > 0 {
			return pass(fmt.Sprintf("query matched %d element(s)", len(matches)))
		}
		return fail("query matched no elements")
	}
}

// NotToExist passes when the query matches no elements.
func (e Expectation) NotToExist() Predicate {
	q := e.query
	return func(ctx AssertContext) AssertOutcome {
		if ctx.Snapshot == nil {
			return fail("expect.notToExist: no snapshot in context")
		}
		matches := q.MatchAll(ctx.Snapshot.Elements)
		if len(matches) == 0 {
			return pass("query matched no elements")
		}
		return fail(fmt.Sprintf("query unexpectedly matched %d element(s)", len(matches)))
	}
}

// ToBeVisible passes when the first match is in viewport and not occluded.
func (e Expectation) ToBeVisible() Predicate {
	q := e.query
	return func(ctx AssertContext) AssertOutcome {
		if ctx.Snapshot == nil {
			return fail("expect.toBeVisible: no snapshot in context")
		}
		matches := q.MatchAll(ctx.Snapshot.Elements)
		if len(matches) == 0 {
			return fail("query matched no elements")
		}
		el := matches[0]
		if el.InViewport && !el.IsOccluded {
			return pass("element is visible")
		}
		return fail(fmt.Sprintf("element not visible (inViewport=%v occluded=%v)", el.InViewport, el.IsOccluded))
	}
}

// ToHaveTextContains passes when the first match's text contains s
// case-insensitively.
func (e Expectation) ToHaveTextContains(s string) Predicate {
	q := e.query
	return func(ctx AssertContext) AssertOutcome {
		if ctx.Snapshot == nil {
			return fail("expect.toHaveTextContains: no snapshot in context")
		}
		matches := q.MatchAll(ctx.Snapshot.Elements)
		if len(matches) == 0 {
			return fail("query matched no elements")
		}
		if strings.Contains(strings.ToLower(matches[0].Text), strings.ToLower(s)) {
			return pass(fmt.Sprintf("text contains %q", s))
		}
		return fail(fmt.Sprintf("text %q does not contain %q", matches[0].Text, s))
	}
}

// globalExpectations holds the package-level expect.textPresent /
// expect.noText helpers, which scan every element's text rather than a
// single query match.
type globalExpectations struct{}

// GlobalExpect is the `expect` namespace for whole-snapshot text scans.
var GlobalExpect = globalExpectations{}

// TextPresent passes when s appears (case-insensitively) in any element's text.
func (globalExpectations) TextPresent(s string) Predicate {
	return func(ctx AssertContext) AssertOutcome {
		if ctx.Snapshot == nil {
			return fail("expect.textPresent: no snapshot in context")
		}
		needle := strings.ToLower(s)
		for _, el := range ctx.Snapshot.Elements {
			if strings.Contains(strings.ToLower(el.Text), needle) {
				return pass(fmt.Sprintf("text %q found", s))
			}
		}
		return fail(fmt.Sprintf("text %q not found in any element", s))
	}
}

// NoText passes when s does not appear in any element's text.
func (globalExpectations) NoText(s string) Predicate {
	return func(ctx AssertContext) AssertOutcome {
		if ctx.Snapshot == nil {
			return fail("expect.noText: no snapshot in context")
		}
		needle := strings.ToLower(s)
		for _, el := range ctx.Snapshot.Elements {
			if strings.Contains(strings.ToLower(el.Text), needle) {
				return fail(fmt.Sprintf("text %q unexpectedly found", s))
			}
		}
		return pass(fmt.Sprintf("text %q absent", s))
	}
}
