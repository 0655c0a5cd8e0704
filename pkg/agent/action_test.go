package agent

import "testing"

func TestParseAction(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Action
	}{
		{"click", "CLICK(42)", Action{Kind: ActionClick, ElementID: 42}},
		{"click lowercase keyword", "click(7)", Action{Kind: ActionClick, ElementID: 7}},
		{"click whitespace", "  CLICK( 3 )  ", Action{Kind: ActionClick, ElementID: 3}},
		{"type", `TYPE(5,"hello world")`, Action{Kind: ActionType, ElementID: 5, Text: "hello world"}},
		{"type escaped quote", `TYPE(5,"say \"hi\"")`, Action{Kind: ActionType, ElementID: 5, Text: `say "hi"`}},
		{"press", `PRESS("Enter")`, Action{Kind: ActionPress, Key: "Enter"}},
		{"press case-sensitive payload", `PRESS("enter")`, Action{Kind: ActionPress, Key: "enter"}},
		{"click_xy", "CLICK_XY(120.5,80)", Action{Kind: ActionClickXY, X: 120.5, Y: 80}},
		{"click_rect", "CLICK_RECT(10,20,30,40)", Action{Kind: ActionClickRect, X: 10, Y: 20, W: 30, H: 40}},
		{"finish", "FINISH()", Action{Kind: ActionFinish}},
		{"finish whitespace", " finish(  ) ", Action{Kind: ActionFinish}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAction(tt.raw)
			if err != nil {
				t.Fatalf("ParseAction(%q) returned error: %v", tt.raw, err)
			}
			if got != tt.want {
				t.Errorf("ParseAction(%q) = %+v, want %+v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParseActionInvalid(t *testing.T) {
	invalid := []string{
		"",
		"CLICK()",
		"CLICK(1,2)",
		"TYPE(1)",
		`TYPE(1,hello)`,
		"DOUBLE_CLICK(1)",
		"CLICK(1.5)",
		"some free-form text the model produced",
	}

	for _, raw := range invalid {
		t.Run(raw, func(t *testing.T) {
			_, err := ParseAction(raw)
			if err == nil {
				t.Fatalf("ParseAction(%q) expected an error, got none", raw)
			}
			if _, ok := err.(*ActionParseError); !ok {
				t.Errorf("ParseAction(%q) error type = %T, want *ActionParseError", raw, err)
			}
		})
	}
}

func TestActionString(t *testing.T) {
	tests := []struct {
		action Action
		want   string
	}{
		{Action{Kind: ActionClick, ElementID: 9}, "CLICK(9)"},
		{Action{Kind: ActionType, ElementID: 2, Text: "hi"}, `TYPE(2,"hi")`},
		{Action{Kind: ActionPress, Key: "Tab"}, `PRESS("Tab")`},
		{Action{Kind: ActionClickXY, X: 1, Y: 2}, "CLICK_XY(1,2)"},
		{Action{Kind: ActionClickRect, X: 1, Y: 2, W: 3, H: 4}, "CLICK_RECT(1,2,3,4)"},
		{Action{Kind: ActionFinish}, "FINISH()"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.action.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseActionRoundTrip(t *testing.T) {
	original := Action{Kind: ActionClickRect, X: 5, Y: 6, W: 7, H: 8}
	reparsed, err := ParseAction(original.String())
	if err != nil {
		t.Fatalf("ParseAction(%q) returned error: %v", original.String(), err)
	}
	if reparsed != original {
		t.Errorf("round trip mismatch: got %+v, want %+v", reparsed, original)
	}
}
