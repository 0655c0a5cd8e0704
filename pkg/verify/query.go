package verify

import (
	"sort"
	"strings"

	"github.com/gobwas/glob"

	"github.com/webverify/agentrt/pkg/snapshot"
)

// ElementQuery filters a snapshot's elements. Matching is pure and
// order-deterministic: MatchAll sorts results by doc_y ascending so
// "first match" semantics are stable regardless of the snapshot's own
// element ordering.
type ElementQuery struct {
	Role             string
	Name             string // matched against Text, case-insensitive exact
	Text             string // substring/glob, case-insensitive
	TextContains     string
	HrefContains     string
	InViewport       *bool
	Occluded         *bool
	Group            string
	InDominantGroup  *bool
	GroupIndex       *int
	FromDominantList *bool
}

// Match reports whether e satisfies every filter set on q.
// FromDominantList is not consulted: setting it does not change the result.
func (q ElementQuery) Match(e snapshot.Element) bool {
	if q.Role != "" && e.Role != q.Role {
		return false
	}
	if q.Name != "" && !strings.EqualFold(strings.TrimSpace(e.Text), strings.TrimSpace(q.Name)) {
		return false
	}
	if q.Text != "" && !globOrSubstringMatch(q.Text, e.Text) {
		return false
	}
	if q.TextContains != "" && !strings.Contains(strings.ToLower(e.Text), strings.ToLower(q.TextContains)) {
		return false
	}
	if q.HrefContains != "" && !globOrSubstringMatch(q.HrefContains, e.Href) {
		return false
	}
	if q.InViewport != nil && e.InViewport != *q.InViewport {
		return false
	}
	if q.Occluded != nil && e.IsOccluded != *q.Occluded {
		return false
	}
	if q.Group != "" && e.GroupKey != q.Group {
		return false
	}
	if q.InDominantGroup != nil {
		got := e.InDominantGroup != nil && *e.InDominantGroup
		if got != *q.InDominantGroup {
			return false
		}
	}
	if q.GroupIndex != nil {
		if e.GroupIndex == nil || *e.GroupIndex != *q.GroupIndex {
			return false
		}
	}
	return true
}

// MatchAll returns every element in elements matching q, sorted by doc_y
// ascending (falling back to bbox.y) for stable first-match semantics.
func (q ElementQuery) MatchAll(elements []snapshot.Element) []snapshot.Element {
	var out []snapshot.Element
	for _, e := range elements {
		if q.Match(e) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return docYOf(out[i]) < docYOf(out[j])
	})
	return out
}

func docYOf(e snapshot.Element) float64 {
	if e.DocY != nil {
		return *e.DocY
	}
	return e.BBox.Y
}

// globOrSubstringMatch treats pattern as a glob when it contains `*` or
// `?`, otherwise as a case-insensitive substring. This is the element
// matching counterpart of the teacher's file-pattern glob matcher,
// repurposed for selector text/href matching.
func globOrSubstringMatch(pattern, value string) bool {
	lowerValue := strings.ToLower(value)
	if strings.ContainsAny(pattern, "*?") {
		g, err := glob.Compile(strings.ToLower(pattern))
		if err != nil {
			return strings.Contains(lowerValue, strings.ToLower(pattern))
		}
		return g.Match(lowerValue)
	}
	return strings.Contains(lowerValue, strings.ToLower(pattern))
}

// ParseSelector compiles the semantic selector grammar described in the
// verification algebra: space-separated conjunctions of `role=X`,
// `text~'Y'`, and `href~Z` terms (Y/Z may contain glob wildcards).
// Unknown terms are ignored rather than erroring, since the grammar is
// meant to be forgiving for hand-authored step plans.
func ParseSelector(selector string) ElementQuery {
	var q ElementQuery
	for _, term := range splitTerms(selector) {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		switch {
		case strings.HasPrefix(term, "role="):
			q.Role = strings.TrimPrefix(term, "role=")
		case strings.HasPrefix(term, "text~"):
			q.Text = unquote(strings.TrimPrefix(term, "text~"))
		case strings.HasPrefix(term, "href~"):
			q.HrefContains = unquote(strings.TrimPrefix(term, "href~"))
		}
	}
	return q
}

// splitTerms splits on whitespace while keeping single-quoted segments
// intact, so `text~'foo bar'` stays one term.
func splitTerms(selector string) []string {
	var terms []string
	var current strings.Builder
	inQuote := false
	for _, r := range selector {
		switch {
		case r == '\'':
			inQuote = !inQuote
			current.WriteRune(r)
		case r == ' ' && !inQuote:
			if current.Len() > 0 {
				terms = append(terms, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(r)
		}
	}
	if current.Len() > 0 {
		terms = append(terms, current.String())
	}
	return terms
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		return s[1 : len(s)-1]
	}
	return s
}
