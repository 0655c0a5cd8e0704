package verify

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/webverify/agentrt/pkg/snapshot"
)

// UrlMatches passes when the current URL matches pattern, which may be a
// glob-style wildcard pattern or a `/regex/` literal.
func UrlMatches(pattern string) Predicate {
	return func(ctx AssertContext) AssertOutcome {
		if matchURLPattern(pattern, ctx.URL) {
			return pass(fmt.Sprintf("url %q matches %q", ctx.URL, pattern))
		}
		return fail(fmt.Sprintf("url %q does not match %q", ctx.URL, pattern))
	}
}

// UrlContains passes when the current URL contains substr.
func UrlContains(substr string) Predicate {
	return func(ctx AssertContext) AssertOutcome {
		if strings.Contains(ctx.URL, substr) {
			return pass(fmt.Sprintf("url %q contains %q", ctx.URL, substr))
		}
		return fail(fmt.Sprintf("url %q does not contain %q", ctx.URL, substr))
	}
}

func matchURLPattern(pattern, url string) bool {
	if strings.HasPrefix(pattern, "/") && strings.HasSuffix(pattern, "/") && len(pattern) > 1 {
		re, err := regexp.Compile(pattern[1 : len(pattern)-1])
		if err == nil {
			return re.MatchString(url)
		}
	}
	return globOrSubstringMatch(pattern, url)
}

// Exists passes when the selector matches at least one element in the
// current snapshot.
func Exists(selector string) Predicate {
	q := ParseSelector(selector)
	return func(ctx AssertContext) AssertOutcome {
		if ctx.Snapshot == nil {
			return fail("exists: no snapshot in context")
		}
		matches := q.MatchAll(ctx.Snapshot.Elements)
		if len(matches) > 0 {
			return pass(fmt.Sprintf("selector %q matched %d element(s)", selector, len(matches)))
		}
		return fail(fmt.Sprintf("selector %q matched no elements", selector))
	}
}

// NotExists passes when the selector matches no elements.
func NotExists(selector string) Predicate {
	q := ParseSelector(selector)
	return func(ctx AssertContext) AssertOutcome {
		if ctx.Snapshot == nil {
			return fail("notExists: no snapshot in context")
		}
		matches := q.MatchAll(ctx.Snapshot.Elements)
		if len(matches) == 0 {
			return pass(fmt.Sprintf("selector %q matched no elements", selector))
		}
		return fail(fmt.Sprintf("selector %q unexpectedly matched %d element(s)", selector, len(matches)))
	}
}

// CountBounds constrains ElementCount's expected match count.
type CountBounds struct {
	Min int
	Max int // 0 means unbounded
}

// ElementCount passes when the number of elements matching selector falls
// within bounds.
func ElementCount(selector string, bounds CountBounds) Predicate {
	q := ParseSelector(selector)
	return func(ctx AssertContext) AssertOutcome {
		if ctx.Snapshot == nil {
			return fail("elementCount: no snapshot in context")
		}
		n := len(q.MatchAll(ctx.Snapshot.Elements))
		if n < bounds.Min || (bounds.Max > 0 && n > bounds.Max) {
			return failWith(
				fmt.Sprintf("selector %q matched %d element(s), expected [%d,%d]", selector, n, bounds.Min, bounds.Max),
				map[string]interface{}{"count": n},
			)
		}
		return pass(fmt.Sprintf("selector %q matched %d element(s) within bounds", selector, n))
	}
}

// elementStateBool finds the first element matched by selector and checks
// a *bool field extracted by field, via check's pass/fail judgment.
func elementStateBool(selector string, check func(*bool) (bool, string), field func(snapshot.Element) *bool) Predicate {
	q := ParseSelector(selector)
	return func(ctx AssertContext) AssertOutcome {
		if ctx.Snapshot == nil {
			return fail("no snapshot in context")
		}
		matches := q.MatchAll(ctx.Snapshot.Elements)
		if len(matches) == 0 {
			return fail(fmt.Sprintf("selector %q matched no elements", selector))
		}
		ok, reason := check(field(matches[0]))
		if ok {
			return pass(reason)
		}
		return fail(reason)
	}
}

func disabledOf(e snapshot.Element) *bool { return e.Disabled }
func checkedOf(e snapshot.Element) *bool  { return e.Checked }
func expandedOf(e snapshot.Element) *bool { return e.Expanded }

// IsEnabled passes when the matched element's disabled field is absent or false.
func IsEnabled(selector string) Predicate {
	return elementStateBool(selector, func(disabled *bool) (bool, string) {
		if disabled == nil || !*disabled {
			return true, "element is enabled"
		}
		return false, "element is disabled"
	}, disabledOf)
}

// IsDisabled passes when the matched element's disabled field is true.
func IsDisabled(selector string) Predicate {
	return elementStateBool(selector, func(disabled *bool) (bool, string) {
		if disabled != nil && *disabled {
			return true, "element is disabled"
		}
		return false, "element is not disabled"
	}, disabledOf)
}

// IsChecked passes when the matched element's checked field is true.
func IsChecked(selector string) Predicate {
	return elementStateBool(selector, func(checked *bool) (bool, string) {
		if checked != nil && *checked {
			return true, "element is checked"
		}
		return false, "element is not checked"
	}, checkedOf)
}

// IsUnchecked passes when the matched element's checked field is absent or false.
func IsUnchecked(selector string) Predicate {
	return elementStateBool(selector, func(checked *bool) (bool, string) {
		if checked == nil || !*checked {
			return true, "element is unchecked"
		}
		return false, "element is checked"
	}, checkedOf)
}

// IsExpanded passes when the matched element's expanded field is true.
func IsExpanded(selector string) Predicate {
	return elementStateBool(selector, func(expanded *bool) (bool, string) {
		if expanded != nil && *expanded {
			return true, "element is expanded"
		}
		return false, "element is not expanded"
	}, expandedOf)
}

// IsCollapsed passes when the matched element's expanded field is absent or false.
func IsCollapsed(selector string) Predicate {
	return elementStateBool(selector, func(expanded *bool) (bool, string) {
		if expanded == nil || !*expanded {
			return true, "element is collapsed"
		}
		return false, "element is expanded"
	}, expandedOf)
}

// ValueEquals passes when the matched element's value field equals v exactly.
func ValueEquals(v string) func(selector string) Predicate {
	return func(selector string) Predicate {
		q := ParseSelector(selector)
		return func(ctx AssertContext) AssertOutcome {
			if ctx.Snapshot == nil {
				return fail("valueEquals: no snapshot in context")
			}
			matches := q.MatchAll(ctx.Snapshot.Elements)
			if len(matches) == 0 {
				return fail(fmt.Sprintf("selector %q matched no elements", selector))
			}
			if matches[0].Value == v {
				return pass(fmt.Sprintf("value equals %q", v))
			}
			return fail(fmt.Sprintf("value %q does not equal %q", matches[0].Value, v))
		}
	}
}

// ValueContains passes when the matched element's value field contains substr.
func ValueContains(substr string) func(selector string) Predicate {
	return func(selector string) Predicate {
		q := ParseSelector(selector)
		return func(ctx AssertContext) AssertOutcome {
			if ctx.Snapshot == nil {
				return fail("valueContains: no snapshot in context")
			}
			matches := q.MatchAll(ctx.Snapshot.Elements)
			if len(matches) == 0 {
				return fail(fmt.Sprintf("selector %q matched no elements", selector))
			}
			if strings.Contains(matches[0].Value, substr) {
				return pass(fmt.Sprintf("value %q contains %q", matches[0].Value, substr))
			}
			return fail(fmt.Sprintf("value %q does not contain %q", matches[0].Value, substr))
		}
	}
}

// DownloadCompleted passes when ctx.Downloads has an entry with
// status=="completed" and, if filenameSubstr is non-empty, a filename
// containing it.
func DownloadCompleted(filenameSubstr string) Predicate {
	return func(ctx AssertContext) AssertOutcome {
		for _, d := range ctx.Downloads {
			if d.Status != "completed" {
				continue
			}
			if filenameSubstr == "" || strings.Contains(d.Filename, filenameSubstr) {
				return pass(fmt.Sprintf("download %q completed", d.Filename))
			}
		}
		return fail(fmt.Sprintf("no completed download matching %q", filenameSubstr))
	}
}
