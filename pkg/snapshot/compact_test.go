package snapshot

import (
	"strings"
	"testing"
)

func TestSelectElementsOnlyInteractiveRoles(t *testing.T) {
	elements := []Element{
		{ID: 1, Role: "button", Importance: 10},
		{ID: 2, Role: "paragraph", Importance: 100},
	}
	selected := SelectElements(elements, DefaultSelectorConfig())
	if len(selected) != 1 || selected[0].ID != 1 {
		t.Fatalf("expected only the interactive button selected, got %+v", selected)
	}
}

func TestSelectElementsDeduplicatesAcrossMergeGroups(t *testing.T) {
	y := 0.0
	elements := []Element{
		{ID: 1, Role: "button", Importance: 100, DocY: &y},
	}
	cfg := SelectorConfig{ByImportance: 10, FromDominantGroup: 10, ByPosition: 10}
	selected := SelectElements(elements, cfg)
	if len(selected) != 1 {
		t.Fatalf("expected a single element to appear once despite matching every merge group, got %d", len(selected))
	}
}

func TestSelectElementsRespectsCardinalities(t *testing.T) {
	var elements []Element
	for i := 0; i < 20; i++ {
		y := float64(i * 10)
		elements = append(elements, Element{ID: i, Role: "link", Importance: i, DocY: &y})
	}
	cfg := SelectorConfig{ByImportance: 3, FromDominantGroup: 0, ByPosition: 0}
	selected := SelectElements(elements, cfg)
	if len(selected) != 3 {
		t.Fatalf("expected exactly 3 elements selected by importance cap, got %d", len(selected))
	}
	// highest importance ids are 19, 18, 17
	want := map[int]bool{19: true, 18: true, 17: true}
	for _, e := range selected {
		if !want[e.ID] {
			t.Errorf("unexpected element %d selected, want top-3 by importance", e.ID)
		}
	}
}

func TestCompactLinesFormat(t *testing.T) {
	y := 450.0
	snap := &Snapshot{
		DominantGroupKey: "g",
		Elements: []Element{
			{ID: 7, Role: "button", Text: "Buy  now", Importance: 5, DocY: &y, GroupKey: "g", Href: "https://shop.example.com/cart"},
		},
	}
	lines := CompactLines(snap, DefaultSelectorConfig())
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	fields := strings.Split(lines[0], "|")
	if len(fields) != 9 {
		t.Fatalf("expected 9 pipe-delimited fields, got %d: %v", len(fields), fields)
	}
	if fields[0] != "7" || fields[1] != "button" || fields[2] != "Buy now" {
		t.Errorf("unexpected fields[0:3] = %v", fields[:3])
	}
}

func TestNormalizeTextTruncatesAndCollapsesWhitespace(t *testing.T) {
	got := normalizeText("  this   is a   very long piece of button text indeed  ")
	wantLen := textTruncLen + 3 // truncated text plus "..."
	if len(got) != wantLen {
		t.Fatalf("expected truncated text of length %d, got %d (%q)", wantLen, len(got), got)
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("expected ellipsis suffix, got %q", got)
	}

	short := normalizeText("  Submit   order  ")
	if short != "Submit order" {
		t.Errorf("expected collapsed whitespace 'Submit order', got %q", short)
	}
}

func TestNormalizeTextStripsPipes(t *testing.T) {
	got := normalizeText("Buy now | Free shipping")
	if strings.Contains(got, "|") {
		t.Errorf("expected pipes to be stripped so the compact line schema stays intact, got %q", got)
	}
	if got != "Buy now Free shipping" {
		t.Errorf("unexpected normalized text: %q", got)
	}
}

func TestTruncateHrefUsesRegistrableDomain(t *testing.T) {
	got := truncateHref("https://www.checkout.example.co.uk/pay")
	if got != "example.co" {
		t.Errorf("expected registrable domain truncated to 10 chars, got %q", got)
	}
}

func TestTruncateHrefFallsBackToLastPathSegment(t *testing.T) {
	got := truncateHref("/relative/path/to/cart")
	if got != "cart" {
		t.Errorf("expected last path segment 'cart', got %q", got)
	}
}

func TestTruncateHrefEmpty(t *testing.T) {
	if got := truncateHref(""); got != "" {
		t.Errorf("expected empty href to render empty, got %q", got)
	}
}
