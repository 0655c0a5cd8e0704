// Package snapshot implements the semantic page model: acquiring a
// point-in-time view of the page from the browser extension bridge,
// caching it with a staleness budget, ranking elements into a dominant
// group, and compacting the result into a pipe-delimited line format cheap
// enough to paste into an LLM prompt.
package snapshot

// Status is the top-level acquisition result of a Snapshot.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Viewport is the page viewport dimensions at capture time.
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// VisualCues are rendering hints an element carries alongside geometry.
type VisualCues struct {
	IsPrimary           bool   `json:"is_primary"`
	BackgroundColorName string `json:"background_color_name,omitempty"`
	IsClickable         bool   `json:"is_clickable"`
}

// BBox is an element's bounding box in CSS viewport pixels.
type BBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Element is one immutable entry in a Snapshot's ranked element list. Ids
// are unique only within a single snapshot — never assume stability across
// snapshots.
type Element struct {
	ID              int        `json:"id"`
	Role            string     `json:"role"`
	Text            string     `json:"text"`
	Importance      int        `json:"importance"`
	BBox            BBox       `json:"bbox"`
	VisualCues      VisualCues `json:"visual_cues"`
	InViewport      bool       `json:"in_viewport"`
	IsOccluded      bool       `json:"is_occluded"`
	ZIndex          int        `json:"z_index"`
	DocY            *float64   `json:"doc_y,omitempty"`
	GroupKey        string     `json:"group_key,omitempty"`
	GroupIndex      *int       `json:"group_index,omitempty"`
	InDominantGroup *bool      `json:"in_dominant_group,omitempty"`
	Href            string     `json:"href,omitempty"`
	Disabled        *bool      `json:"disabled,omitempty"`
	Checked         *bool      `json:"checked,omitempty"`
	Expanded        *bool      `json:"expanded,omitempty"`
	Value           string     `json:"value,omitempty"`
}

// CaptchaEvidence records which heuristics fired while scanning a snapshot
// for captcha presence. Populated iframe_src_hits alone is passive
// evidence and must never gate progress.
type CaptchaEvidence struct {
	IframeSrcHits []string `json:"iframe_src_hits,omitempty"`
	SelectorHits  []string `json:"selector_hits,omitempty"`
	TextHits      []string `json:"text_hits,omitempty"`
	URLHits       []string `json:"url_hits,omitempty"`
}

// CaptchaDiagnostics is the captcha-detection payload attached to a
// snapshot's diagnostics bag.
type CaptchaDiagnostics struct {
	Detected     bool            `json:"detected"`
	Confidence   float64         `json:"confidence"`
	ProviderHint string          `json:"provider_hint,omitempty"`
	Evidence     CaptchaEvidence `json:"evidence"`
}

// IsPassiveOnly reports whether the only evidence present is passive
// (iframe badge) evidence — such evidence must never gate progress
// regardless of confidence.
func (c *CaptchaDiagnostics) IsPassiveOnly() bool {
	if c == nil {
		return true
	}
	hasInteractive := len(c.Evidence.SelectorHits) > 0 || len(c.Evidence.TextHits) > 0 || len(c.Evidence.URLHits) > 0
	return !hasInteractive
}

// Diagnostics is the free-form diagnostic bag attached to a Snapshot.
type Diagnostics struct {
	Captcha *CaptchaDiagnostics `json:"captcha,omitempty"`
}

// Snapshot is an immutable point-in-time view of the page, produced
// atomically by one extension call and never mutated after return.
type Snapshot struct {
	Status           Status       `json:"status"`
	URL              string       `json:"url"`
	Timestamp        int64        `json:"timestamp"`
	Viewport         Viewport     `json:"viewport"`
	Elements         []Element    `json:"elements"`
	DominantGroupKey string       `json:"dominant_group_key,omitempty"`
	Diagnostics      *Diagnostics `json:"diagnostics,omitempty"`
}

// Probe is the diagnostic payload harvested when the extension bridge has
// not injected a snapshot() function within the acquire-phase poll budget.
type Probe struct {
	Defined           bool   `json:"defined"`
	SnapshotAvailable bool   `json:"snapshot_available"`
	URL               string `json:"url"`
	ExtensionID       string `json:"extension_id"`
}

// Options are the snapshot acquisition parameters passed through to the
// extension bridge, unchanged in shape from the wire contract.
type Options struct {
	Limit       int
	Filter      *Filter
	Screenshot  *ScreenshotOption
	ShowOverlay bool
	ShowGrid    bool
	GridID      int
}

// Filter applies extension-side pre-filters before elements are returned.
type Filter struct {
	Clickable  *bool
	Visible    *bool
	InViewport *bool
}

// ScreenshotOption requests a screenshot be attached to the snapshot.
type ScreenshotOption struct {
	Format  string
	Quality int
}

// DefaultLimit is used when Options.Limit is unset.
const DefaultLimit = 50

// interactiveRoles is the fixed set of roles considered for compaction.
// Dominant-group ranking does not filter by role: it ranks every element
// of the dominant group.
var interactiveRoles = map[string]bool{
	"button": true, "link": true, "textbox": true, "searchbox": true,
	"combobox": true, "checkbox": true, "radio": true, "slider": true,
	"tab": true, "menuitem": true, "option": true, "switch": true,
	"cell": true, "a": true, "input": true, "select": true, "textarea": true,
}

// IsInteractiveRole reports whether role is in the fixed interactive set
// considered by compaction.
func IsInteractiveRole(role string) bool {
	return interactiveRoles[role]
}
