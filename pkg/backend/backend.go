// Package backend defines the minimal browser-control surface the agent
// runtime consumes. It deliberately does not expose element queries or an
// accessibility tree — that richer perception lives in pkg/snapshot, which
// is built on top of a Backend rather than inside one. Keeping the port
// this small is what lets a CDP driver (pkg/backend/cdpdriver) and a
// Playwright driver (pkg/backend/pwdriver) stay behaviorally interchangeable.
package backend

import "context"

// MouseButton identifies which mouse button an input event targets.
type MouseButton string

const (
	ButtonLeft   MouseButton = "left"
	ButtonRight  MouseButton = "right"
	ButtonMiddle MouseButton = "middle"
)

// ReadyState is a value accepted by WaitReadyState.
type ReadyState string

const (
	ReadyStateInteractive ReadyState = "interactive"
	ReadyStateComplete    ReadyState = "complete"
)

// ViewportInfo describes the current viewport and scroll position, derived
// from JS evaluation and cached per runtime step.
type ViewportInfo struct {
	Width         int
	Height        int
	ScrollX       int
	ScrollY       int
	ContentWidth  int
	ContentHeight int
}

// LayoutMetrics carries the geometry needed for screenshot-region math and
// scroll-bounds checks.
type LayoutMetrics struct {
	ViewportX        int
	ViewportY        int
	ViewportWidth    int
	ViewportHeight   int
	ContentWidth     int
	ContentHeight    int
	DevicePixelRatio float64
}

// Backend is the minimal browser-control port the agent runtime depends
// on. Every method may fail; drivers report failures themselves as a
// BackendError (with a ReasonCode), an EvalError, or a TimeoutError.
type Backend interface {
	// RefreshPageInfo is cheap and idempotent. It populates the internal
	// viewport cache used by default-centered wheel events and returns the
	// current ViewportInfo.
	RefreshPageInfo(ctx context.Context) (ViewportInfo, error)

	// Eval executes a JS expression in the page's main frame, awaits any
	// promise result, and returns a JSON-round-trippable value. A thrown
	// exception surfaces as an EvalError.
	Eval(ctx context.Context, expression string) (any, error)

	// Call evaluates a JS function declaration, passing args by value
	// rather than string-concatenating them into the expression. Drivers
	// that cannot bind a function-call primitive fall back to Eval with a
	// generated invocation expression.
	Call(ctx context.Context, functionDeclaration string, args []any) (any, error)

	// GetLayoutMetrics returns viewport origin, content size, and device
	// pixel ratio.
	GetLayoutMetrics(ctx context.Context) (LayoutMetrics, error)

	// ScreenshotPNG captures the current viewport (never full-page) as a
	// base64-encoded PNG.
	ScreenshotPNG(ctx context.Context) (string, error)

	// MouseMove moves the pointer to viewport coordinates (x, y).
	MouseMove(ctx context.Context, x, y float64) error

	// MouseClick dispatches a press+release pair at (x, y) with a short
	// gap between them, repeated clickCount times.
	MouseClick(ctx context.Context, x, y float64, button MouseButton, clickCount int) error

	// Wheel dispatches a wheel event with the given vertical delta. When x
	// or y is nil, the event targets the viewport center.
	Wheel(ctx context.Context, deltaY float64, x, y *float64) error

	// TypeText dispatches per-character keyDown/char/keyUp events with a
	// small inter-character delay.
	TypeText(ctx context.Context, text string) error

	// KeyPress dispatches a single named key press (e.g. "Enter", "Tab",
	// "Escape", or a single character).
	KeyPress(ctx context.Context, key string) error

	// WaitReadyState polls document.readyState until it reaches one of the
	// states accepted for the given target, or fails with TimeoutError.
	WaitReadyState(ctx context.Context, state ReadyState, timeoutMs int) error

	// GetURL returns the current window.location.href.
	GetURL(ctx context.Context) (string, error)
}
