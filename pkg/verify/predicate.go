// Package verify implements the verification algebra: pure predicates over
// a snapshot/URL/download context, their composition, a semantic element
// query DSL, and a fluent expect(...) layer that compiles down to the same
// Predicate shape.
package verify

import "github.com/webverify/agentrt/pkg/snapshot"

// Download is one entry of the download state a Predicate may inspect.
type Download struct {
	Status   string
	Filename string
}

// AssertContext is the immutable input a Predicate evaluates against. A
// Predicate must be pure: the same context always yields the same
// AssertOutcome — no I/O, no time dependence, no hidden state. Refreshing
// the snapshot is the eventually driver's job, never the predicate's.
type AssertContext struct {
	Snapshot  *snapshot.Snapshot
	URL       string
	StepID    string
	Downloads []Download
}

// AssertOutcome is the result of evaluating a Predicate.
type AssertOutcome struct {
	Passed  bool
	Reason  string
	Details map[string]interface{}
}

// Predicate is a pure function from an AssertContext to an AssertOutcome.
type Predicate func(AssertContext) AssertOutcome

func pass(reason string) AssertOutcome {
	return AssertOutcome{Passed: true, Reason: reason}
}

func fail(reason string) AssertOutcome {
	return AssertOutcome{Passed: false, Reason: reason}
}

func failWith(reason string, details map[string]interface{}) AssertOutcome {
	return AssertOutcome{Passed: false, Reason: reason, Details: details}
}
