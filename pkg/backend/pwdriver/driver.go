// Package pwdriver implements backend.Backend against Playwright's
// high-level Page API. It is the straightforward driver: most calls are a
// thin pass-through to the Playwright binding, adapted from the teacher's
// SessionManager/Session pattern (playwright.Browser/Context/Page wiring)
// but returning a backend.Backend instead of a tool-call result.
package pwdriver

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/webverify/agentrt/pkg/backend"
)

// Driver adapts a single Playwright page to backend.Backend.
type Driver struct {
	page     playwright.Page
	lastInfo backend.ViewportInfo
}

// New wraps an already-created Playwright page.
func New(page playwright.Page) *Driver {
	return &Driver{page: page}
}

const refreshPageInfoScript = `() => ({
	width: window.innerWidth,
	height: window.innerHeight,
	scrollX: Math.round(window.scrollX),
	scrollY: Math.round(window.scrollY),
	contentWidth: document.documentElement.scrollWidth,
	contentHeight: document.documentElement.scrollHeight,
})`

func (d *Driver) RefreshPageInfo(ctx context.Context) (backend.ViewportInfo, error) {
	raw, err := d.page.Evaluate(refreshPageInfoScript)
	if err != nil {
		return backend.ViewportInfo{}, backend.NewBackendError("RefreshPageInfo", "eval_failed", err)
	}

	m, ok := raw.(map[string]interface{})
	if !ok {
		return backend.ViewportInfo{}, backend.NewBackendError("RefreshPageInfo", "bad_result", fmt.Errorf("unexpected result type %T", raw))
	}

	info := backend.ViewportInfo{
		Width:         intOf(m["width"]),
		Height:        intOf(m["height"]),
		ScrollX:       intOf(m["scrollX"]),
		ScrollY:       intOf(m["scrollY"]),
		ContentWidth:  intOf(m["contentWidth"]),
		ContentHeight: intOf(m["contentHeight"]),
	}
	d.lastInfo = info
	return info, nil
}

func (d *Driver) Eval(ctx context.Context, expression string) (any, error) {
	result, err := d.page.Evaluate(expression)
	if err != nil {
		return nil, &backend.EvalError{Text: err.Error()}
	}
	if result == nil {
		return nil, nil
	}
	return result, nil
}

func (d *Driver) Call(ctx context.Context, functionDeclaration string, args []any) (any, error) {
	result, err := d.page.Evaluate(functionDeclaration, args)
	if err != nil {
		return nil, &backend.EvalError{Text: err.Error()}
	}
	return result, nil
}

func (d *Driver) GetLayoutMetrics(ctx context.Context) (backend.LayoutMetrics, error) {
	size := d.page.ViewportSize()
	raw, err := d.page.Evaluate(`() => ({
		contentWidth: document.documentElement.scrollWidth,
		contentHeight: document.documentElement.scrollHeight,
		devicePixelRatio: window.devicePixelRatio,
	})`)
	if err != nil {
		return backend.LayoutMetrics{}, backend.NewBackendError("GetLayoutMetrics", "eval_failed", err)
	}
	m, _ := raw.(map[string]interface{})
	return backend.LayoutMetrics{
		ViewportX:        0,
		ViewportY:        0,
		ViewportWidth:    size.Width,
		ViewportHeight:   size.Height,
		ContentWidth:     intOf(m["contentWidth"]),
		ContentHeight:    intOf(m["contentHeight"]),
		DevicePixelRatio: floatOf(m["devicePixelRatio"], 1.0),
	}, nil
}

func (d *Driver) ScreenshotPNG(ctx context.Context) (string, error) {
	full := false
	data, err := d.page.Screenshot(playwright.PageScreenshotOptions{
		Type:     playwright.ScreenshotTypePng,
		FullPage: &full,
	})
	if err != nil {
		return "", backend.NewBackendError("ScreenshotPNG", "screenshot_failed", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

func (d *Driver) MouseMove(ctx context.Context, x, y float64) error {
	if err := d.page.Mouse().Move(x, y); err != nil {
		return backend.NewBackendError("MouseMove", "dispatch_failed", err)
	}
	return nil
}

func (d *Driver) MouseClick(ctx context.Context, x, y float64, button backend.MouseButton, clickCount int) error {
	if clickCount <= 0 {
		clickCount = 1
	}
	btn := playwright.MouseButton(button)
	for i := 0; i < clickCount; i++ {
		if err := d.page.Mouse().Move(x, y); err != nil {
			return backend.NewBackendError("MouseClick", "move_failed", err)
		}
		if err := d.page.Mouse().Down(playwright.MouseDownOptions{Button: &btn}); err != nil {
			return backend.NewBackendError("MouseClick", "down_failed", err)
		}
		time.Sleep(50 * time.Millisecond)
		if err := d.page.Mouse().Up(playwright.MouseUpOptions{Button: &btn}); err != nil {
			return backend.NewBackendError("MouseClick", "up_failed", err)
		}
	}
	return nil
}

func (d *Driver) Wheel(ctx context.Context, deltaY float64, x, y *float64) error {
	tx, ty := x, y
	if tx == nil || ty == nil {
		info := d.lastInfo
		if info.Width == 0 {
			if refreshed, err := d.RefreshPageInfo(ctx); err == nil {
				info = refreshed
			}
		}
		cx, cy := float64(info.Width)/2, float64(info.Height)/2
		tx, ty = &cx, &cy
	}
	if err := d.page.Mouse().Move(*tx, *ty); err != nil {
		return backend.NewBackendError("Wheel", "move_failed", err)
	}
	if err := d.page.Mouse().Wheel(0, deltaY); err != nil {
		return backend.NewBackendError("Wheel", "dispatch_failed", err)
	}
	return nil
}

func (d *Driver) TypeText(ctx context.Context, text string) error {
	delay := float64(10)
	if err := d.page.Keyboard().Type(text, playwright.KeyboardTypeOptions{Delay: &delay}); err != nil {
		return backend.NewBackendError("TypeText", "dispatch_failed", err)
	}
	return nil
}

func (d *Driver) KeyPress(ctx context.Context, key string) error {
	if err := d.page.Keyboard().Press(key); err != nil {
		return backend.NewBackendError("KeyPress", "dispatch_failed", err)
	}
	return nil
}

func (d *Driver) WaitReadyState(ctx context.Context, state backend.ReadyState, timeoutMs int) error {
	accepted := map[backend.ReadyState][]string{
		backend.ReadyStateInteractive: {"interactive", "complete"},
		backend.ReadyStateComplete:    {"complete"},
	}[state]
	if accepted == nil {
		accepted = []string{"complete"}
	}

	deadline := time.Now().Add(time.Duration(timeoutMs) * time.Millisecond)
	for {
		raw, err := d.page.Evaluate(`() => document.readyState`)
		if err == nil {
			if current, ok := raw.(string); ok {
				for _, a := range accepted {
					if current == a {
						return nil
					}
				}
			}
		}
		if time.Now().After(deadline) {
			return &backend.TimeoutError{Op: "WaitReadyState", TimeoutMs: timeoutMs}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
}

func (d *Driver) GetURL(ctx context.Context) (string, error) {
	return d.page.URL(), nil
}

func intOf(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

func floatOf(v interface{}, fallback float64) float64 {
	if n, ok := v.(float64); ok {
		return n
	}
	return fallback
}
