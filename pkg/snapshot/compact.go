package snapshot

import (
	"fmt"
	"math"
	"net/url"
	"path"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// SelectorConfig tunes the 3-way merge selection cardinalities used by
// CompactLines. Defaults (60/15/10) are the spec's; callers can tighten
// them for cheaper prompts or widen them for denser pages.
type SelectorConfig struct {
	ByImportance      int
	FromDominantGroup int
	ByPosition        int
}

// DefaultSelectorConfig returns the spec's default cardinalities.
func DefaultSelectorConfig() SelectorConfig {
	return SelectorConfig{ByImportance: 60, FromDominantGroup: 15, ByPosition: 10}
}

const (
	maxTextLen   = 30
	textTruncLen = 27
	maxHrefLen   = 10
)

// SelectElements runs the 3-way merge: top-N by importance desc, top-N
// from the dominant group by group_index, top-N by position (lowest
// doc_y, importance-desc tiebreak), de-duplicated in that priority order.
// Only elements whose role is in the fixed interactive set are considered.
func SelectElements(elements []Element, cfg SelectorConfig) []Element {
	var interactive []Element
	for _, e := range elements {
		if IsInteractiveRole(e.Role) {
			interactive = append(interactive, e)
		}
	}

	_, rankByID := RankWithinDominantGroup(elements)

	byImportance := append([]Element(nil), interactive...)
	sortByImportanceDesc(byImportance)
	byImportance = truncate(byImportance, cfg.ByImportance)

	var dominantMembers []Element
	for _, e := range interactive {
		if e.GroupKey != "" {
			if _, inDominant := rankByID[e.ID]; inDominant {
				dominantMembers = append(dominantMembers, e)
			}
		}
	}
	sortByGroupIndex(dominantMembers)
	dominantMembers = truncate(dominantMembers, cfg.FromDominantGroup)

	byPosition := append([]Element(nil), interactive...)
	sortByRank(byPosition)
	byPosition = truncate(byPosition, cfg.ByPosition)

	seen := make(map[int]bool)
	var selected []Element
	for _, group := range [][]Element{byImportance, dominantMembers, byPosition} {
		for _, e := range group {
			if !seen[e.ID] {
				seen[e.ID] = true
				selected = append(selected, e)
			}
		}
	}
	return selected
}

func truncate(elements []Element, n int) []Element {
	if n < 0 || n >= len(elements) {
		return elements
	}
	return elements[:n]
}

func sortByImportanceDesc(elements []Element) {
	sortStableBy(elements, func(a, b Element) bool { return a.Importance > b.Importance })
}

func sortByGroupIndex(elements []Element) {
	sortStableBy(elements, func(a, b Element) bool {
		ai, bi := groupIndexOf(a), groupIndexOf(b)
		return ai < bi
	})
}

func groupIndexOf(e Element) int {
	if e.GroupIndex != nil {
		return *e.GroupIndex
	}
	return math.MaxInt32
}

// sortStableBy is a tiny stable-sort helper so the selection passes read
// as named comparisons instead of ad hoc sort.Slice closures.
func sortStableBy(elements []Element, less func(a, b Element) bool) {
	n := len(elements)
	for i := 1; i < n; i++ {
		for j := i; j > 0 && less(elements[j], elements[j-1]); j-- {
			elements[j], elements[j-1] = elements[j-1], elements[j]
		}
	}
}

// CompactLines renders the selected elements of snap as pipe-delimited
// lines: id|role|text|importance|is_primary|docYq|ord|DG|href.
func CompactLines(snap *Snapshot, cfg SelectorConfig) []string {
	if snap == nil {
		return nil
	}
	selected := SelectElements(snap.Elements, cfg)
	_, rankByID := RankWithinDominantGroup(snap.Elements)

	lines := make([]string, 0, len(selected))
	for _, e := range selected {
		lines = append(lines, compactLine(e, snap.DominantGroupKey, rankByID))
	}
	return lines
}

func compactLine(e Element, dominantGroupKey string, rankByID map[int]int) string {
	docYq := "0"
	if e.DocY != nil {
		docYq = fmt.Sprintf("%d", int(math.Round(*e.DocY/200)))
	} else {
		docYq = fmt.Sprintf("%d", int(math.Round(e.BBox.Y/200)))
	}

	ord := "-"
	inDominant := e.GroupKey != "" && e.GroupKey == dominantGroupKey
	if inDominant {
		if rank, ok := rankByID[e.ID]; ok {
			ord = fmt.Sprintf("%d", rank)
		}
	}

	dg := "0"
	if e.InDominantGroup != nil && *e.InDominantGroup {
		dg = "1"
	} else if inDominant {
		dg = "1"
	}

	return strings.Join([]string{
		fmt.Sprintf("%d", e.ID),
		e.Role,
		normalizeText(e.Text),
		fmt.Sprintf("%d", e.Importance),
		boolDigit(e.VisualCues.IsPrimary),
		docYq,
		ord,
		dg,
		truncateHref(e.Href),
	}, "|")
}

func boolDigit(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// normalizeText collapses runs of whitespace to a single space, strips
// literal pipes (the compact line's own field separator, so a pipe in an
// element's text must never be allowed to widen the schema), and
// truncates to 27 characters plus an ellipsis when longer than 30.
func normalizeText(s string) string {
	s = strings.ReplaceAll(s, "|", " ")
	fields := strings.Fields(s)
	joined := strings.Join(fields, " ")
	if len(joined) > maxTextLen {
		return joined[:textTruncLen] + "..."
	}
	return joined
}

// truncateHref derives the registrable (second-level) domain for href via
// golang.org/x/net/publicsuffix, falling back to the last path segment
// when href has no parseable host, then truncates to 10 characters.
func truncateHref(href string) string {
	if href == "" {
		return ""
	}

	candidate := href
	if u, err := url.Parse(href); err == nil && u.Host != "" {
		if domain, err := publicsuffix.EffectiveTLDPlusOne(u.Hostname()); err == nil && domain != "" {
			candidate = domain
		} else {
			candidate = u.Hostname()
		}
	} else {
		candidate = lastPathSegment(href)
	}

	if len(candidate) > maxHrefLen {
		return candidate[:maxHrefLen]
	}
	return candidate
}

func lastPathSegment(href string) string {
	cleaned := strings.TrimSuffix(href, "/")
	seg := path.Base(cleaned)
	if seg == "." || seg == "/" {
		return href
	}
	return seg
}
