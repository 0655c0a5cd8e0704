package agent

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ActionKind identifies which action grammar production a parsed Action
// belongs to.
type ActionKind string

const (
	ActionClick     ActionKind = "click"
	ActionType      ActionKind = "type"
	ActionPress     ActionKind = "press"
	ActionClickXY   ActionKind = "click_xy"
	ActionClickRect ActionKind = "click_rect"
	ActionFinish    ActionKind = "finish"
)

// Action is one parsed step loop action. Fields not relevant to Kind are
// left at their zero value.
type Action struct {
	Kind      ActionKind
	ElementID int
	Text      string
	Key       string
	X, Y      float64
	W, H      float64
}

// String renders a canonical form of the action, matching the grammar it
// was parsed from.
func (a Action) String() string {
	switch a.Kind {
	case ActionClick:
		return fmt.Sprintf("CLICK(%d)", a.ElementID)
	case ActionType:
		return fmt.Sprintf("TYPE(%d,%q)", a.ElementID, a.Text)
	case ActionPress:
		return fmt.Sprintf("PRESS(%q)", a.Key)
	case ActionClickXY:
		return fmt.Sprintf("CLICK_XY(%g,%g)", a.X, a.Y)
	case ActionClickRect:
		return fmt.Sprintf("CLICK_RECT(%g,%g,%g,%g)", a.X, a.Y, a.W, a.H)
	case ActionFinish:
		return "FINISH()"
	default:
		return ""
	}
}

var (
	reClick     = regexp.MustCompile(`(?i)^\s*CLICK\(\s*(-?\d+)\s*\)\s*$`)
	reType      = regexp.MustCompile(`(?is)^\s*TYPE\(\s*(-?\d+)\s*,\s*"((?:[^"\\]|\\.)*)"\s*\)\s*$`)
	rePress     = regexp.MustCompile(`(?is)^\s*PRESS\(\s*"((?:[^"\\]|\\.)*)"\s*\)\s*$`)
	reClickXY   = regexp.MustCompile(`(?i)^\s*CLICK_XY\(\s*(-?\d+(?:\.\d+)?)\s*,\s*(-?\d+(?:\.\d+)?)\s*\)\s*$`)
	reClickRect = regexp.MustCompile(`(?i)^\s*CLICK_RECT\(\s*(-?\d+(?:\.\d+)?)\s*,\s*(-?\d+(?:\.\d+)?)\s*,\s*(-?\d+(?:\.\d+)?)\s*,\s*(-?\d+(?:\.\d+)?)\s*\)\s*$`)
	reFinish    = regexp.MustCompile(`(?i)^\s*FINISH\(\s*\)\s*$`)
)

// ParseAction parses raw against the strict action grammar: CLICK(id),
// TYPE(id,"text"), PRESS("key"), CLICK_XY(x,y), CLICK_RECT(x,y,w,h),
// FINISH(). Keywords are matched case-insensitively; string payloads are
// matched exactly as written (case-sensitive). Anything else is an
// ActionParseError.
func ParseAction(raw string) (Action, error) {
	trimmed := strings.TrimSpace(raw)

	if m := reClick.FindStringSubmatch(trimmed); m != nil {
		id, _ := strconv.Atoi(m[1])
		return Action{Kind: ActionClick, ElementID: id}, nil
	}
	if m := reType.FindStringSubmatch(trimmed); m != nil {
		id, _ := strconv.Atoi(m[1])
		return Action{Kind: ActionType, ElementID: id, Text: unescapeQuoted(m[2])}, nil
	}
	if m := rePress.FindStringSubmatch(trimmed); m != nil {
		return Action{Kind: ActionPress, Key: unescapeQuoted(m[1])}, nil
	}
	if m := reClickXY.FindStringSubmatch(trimmed); m != nil {
		x, _ := strconv.ParseFloat(m[1], 64)
		y, _ := strconv.ParseFloat(m[2], 64)
		return Action{Kind: ActionClickXY, X: x, Y: y}, nil
	}
	if m := reClickRect.FindStringSubmatch(trimmed); m != nil {
		x, _ := strconv.ParseFloat(m[1], 64)
		y, _ := strconv.ParseFloat(m[2], 64)
		w, _ := strconv.ParseFloat(m[3], 64)
		h, _ := strconv.ParseFloat(m[4], 64)
		return Action{Kind: ActionClickRect, X: x, Y: y, W: w, H: h}, nil
	}
	if reFinish.MatchString(trimmed) {
		return Action{Kind: ActionFinish}, nil
	}

	return Action{}, &ActionParseError{Raw: raw}
}

func unescapeQuoted(s string) string {
	return strings.NewReplacer(`\"`, `"`, `\\`, `\`).Replace(s)
}
