// Package cdpdriver implements backend.Backend directly over the Chrome
// DevTools Protocol, for bit-exact compatibility with the CDP method table
// the spec calls out (Runtime.evaluate, Runtime.callFunctionOn,
// Page.getLayoutMetrics, Page.captureScreenshot, Input.dispatchMouseEvent,
// Input.dispatchKeyEvent). Rather than opening a second transport, it rides
// Playwright's own CDP session (BrowserContext.NewCDPSession) the way the
// retrieved accessibility-tree examples obtain one — Playwright launches
// and owns the browser process; this driver only changes which protocol
// layer issues the actual commands.
package cdpdriver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/webverify/agentrt/pkg/backend"
)

// Driver issues raw CDP commands over a Playwright CDP session bound to a
// single page/target.
type Driver struct {
	session  playwright.CDPSession
	page     playwright.Page
	lastInfo backend.ViewportInfo
}

// New creates a CDP driver from an existing CDP session obtained via
// page.Context().NewCDPSession(page). The page is kept only for URL/title
// queries that are simpler via the Playwright binding than via CDP
// round-trips (Target.getTargetInfo requires extra plumbing for no benefit
// here).
func New(session playwright.CDPSession, page playwright.Page) *Driver {
	return &Driver{session: session, page: page}
}

func (d *Driver) send(method string, params map[string]interface{}) (map[string]interface{}, error) {
	raw, err := d.session.Send(method, params)
	if err != nil {
		return nil, err
	}
	result, ok := raw.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("cdp: unexpected result shape for %s: %T", method, raw)
	}
	return result, nil
}

func (d *Driver) evaluate(expression string, awaitPromise bool) (map[string]interface{}, error) {
	return d.send("Runtime.evaluate", map[string]interface{}{
		"expression":    expression,
		"returnByValue": true,
		"awaitPromise":  awaitPromise,
	})
}

func (d *Driver) RefreshPageInfo(ctx context.Context) (backend.ViewportInfo, error) {
	result, err := d.evaluate(`({
		width: window.innerWidth,
		height: window.innerHeight,
		scrollX: Math.round(window.scrollX),
		scrollY: Math.round(window.scrollY),
		contentWidth: document.documentElement.scrollWidth,
		contentHeight: document.documentElement.scrollHeight,
	})`, false)
	if err != nil {
		return backend.ViewportInfo{}, backend.NewBackendError("RefreshPageInfo", "cdp_failed", err)
	}

	value, exceptionText := unwrapEvaluate(result)
	if exceptionText != "" {
		return backend.ViewportInfo{}, &backend.EvalError{Text: exceptionText}
	}
	m, _ := value.(map[string]interface{})
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
	result, err := d.evaluate(expression, true)
	if err != nil {
		return nil, backend.NewBackendError("Eval", "cdp_failed", err)
	}
	value, exceptionText := unwrapEvaluate(result)
	if exceptionText != "" {
		return nil, &backend.EvalError{Text: exceptionText}
	}
	return value, nil
}

func (d *Driver) Call(ctx context.Context, functionDeclaration string, args []any) (any, error) {
	cdpArgs := make([]map[string]interface{}, len(args))
	for i, a := range args {
		cdpArgs[i] = map[string]interface{}{"value": a}
	}

	result, err := d.send("Runtime.callFunctionOn", map[string]interface{}{
		"functionDeclaration": functionDeclaration,
		"arguments":           cdpArgs,
		"returnByValue":       true,
		"awaitPromise":        true,
		"executionContextId":  nil,
	})
	if err != nil {
		// Fall back to Eval with a generated invocation when the driver has
		// no bound execution context (e.g. functionDeclaration needs `this`
		// on a remote object handle we don't hold). The arguments are
		// JSON-encoded into the invocation so they still arrive by value.
		if args == nil {
			args = []any{}
		}
		encoded, jerr := json.Marshal(args)
		if jerr != nil {
			return nil, backend.NewBackendError("Call", "bad_args", jerr)
		}
		return d.Eval(ctx, fmt.Sprintf("(%s)(...%s)", functionDeclaration, encoded))
	}
	value, exceptionText := unwrapEvaluate(result)
	if exceptionText != "" {
		return nil, &backend.EvalError{Text: exceptionText}
	}
	return value, nil
}

func (d *Driver) GetLayoutMetrics(ctx context.Context) (backend.LayoutMetrics, error) {
	result, err := d.send("Page.getLayoutMetrics", nil)
	if err != nil {
		return backend.LayoutMetrics{}, backend.NewBackendError("GetLayoutMetrics", "cdp_failed", err)
	}

	cssVisual, _ := result["cssVisualViewport"].(map[string]interface{})
	cssContent, _ := result["cssContentSize"].(map[string]interface{})

	return backend.LayoutMetrics{
		ViewportX:        intOf(cssVisual["pageX"]),
		ViewportY:        intOf(cssVisual["pageY"]),
		ViewportWidth:    intOf(cssVisual["clientWidth"]),
		ViewportHeight:   intOf(cssVisual["clientHeight"]),
		ContentWidth:     intOf(cssContent["width"]),
		ContentHeight:    intOf(cssContent["height"]),
		DevicePixelRatio: floatOf(cssVisual["zoom"], 1.0),
	}, nil
}

func (d *Driver) ScreenshotPNG(ctx context.Context) (string, error) {
	result, err := d.send("Page.captureScreenshot", map[string]interface{}{
		"format":               "png",
		"captureBeyondViewport": false,
	})
	if err != nil {
		return "", backend.NewBackendError("ScreenshotPNG", "cdp_failed", err)
	}
	data, _ := result["data"].(string)
	if data == "" {
		return "", backend.NewBackendError("ScreenshotPNG", "empty_capture", nil)
	}
	if _, err := base64.StdEncoding.DecodeString(data); err != nil {
		return "", backend.NewBackendError("ScreenshotPNG", "bad_encoding", err)
	}
	return data, nil
}

func (d *Driver) MouseMove(ctx context.Context, x, y float64) error {
	_, err := d.send("Input.dispatchMouseEvent", map[string]interface{}{
		"type": "mouseMoved",
		"x":    x,
		"y":    y,
	})
	if err != nil {
		return backend.NewBackendError("MouseMove", "cdp_failed", err)
	}
	return nil
}

func (d *Driver) MouseClick(ctx context.Context, x, y float64, button backend.MouseButton, clickCount int) error {
	if clickCount <= 0 {
		clickCount = 1
	}
	cdpButton := string(button)
	if cdpButton == "" {
		cdpButton = "left"
	}

	if err := d.MouseMove(ctx, x, y); err != nil {
		return err
	}

	for i := 0; i < clickCount; i++ {
		if _, err := d.send("Input.dispatchMouseEvent", map[string]interface{}{
			"type":       "mousePressed",
			"x":          x,
			"y":          y,
			"button":     cdpButton,
			"clickCount": i + 1,
		}); err != nil {
			return backend.NewBackendError("MouseClick", "press_failed", err)
		}
		time.Sleep(50 * time.Millisecond)
		if _, err := d.send("Input.dispatchMouseEvent", map[string]interface{}{
			"type":       "mouseReleased",
			"x":          x,
			"y":          y,
			"button":     cdpButton,
			"clickCount": i + 1,
		}); err != nil {
			return backend.NewBackendError("MouseClick", "release_failed", err)
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

	_, err := d.send("Input.dispatchMouseEvent", map[string]interface{}{
		"type":   "mouseWheel",
		"x":      *tx,
		"y":      *ty,
		"deltaX": 0,
		"deltaY": deltaY,
	})
	if err != nil {
		return backend.NewBackendError("Wheel", "cdp_failed", err)
	}
	return nil
}

func (d *Driver) TypeText(ctx context.Context, text string) error {
	for _, r := range text {
		ch := string(r)
		if _, err := d.send("Input.dispatchKeyEvent", map[string]interface{}{
			"type": "keyDown",
			"text": ch,
		}); err != nil {
			return backend.NewBackendError("TypeText", "keydown_failed", err)
		}
		if _, err := d.send("Input.dispatchKeyEvent", map[string]interface{}{
			"type": "char",
			"text": ch,
		}); err != nil {
			return backend.NewBackendError("TypeText", "char_failed", err)
		}
		if _, err := d.send("Input.dispatchKeyEvent", map[string]interface{}{
			"type": "keyUp",
			"text": ch,
		}); err != nil {
			return backend.NewBackendError("TypeText", "keyup_failed", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	return nil
}

func (d *Driver) KeyPress(ctx context.Context, key string) error {
	for _, step := range []string{"keyDown", "keyUp"} {
		if _, err := d.send("Input.dispatchKeyEvent", map[string]interface{}{
			"type": step,
			"key":  key,
		}); err != nil {
			return backend.NewBackendError("KeyPress", "cdp_failed", err)
		}
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
		result, err := d.evaluate(`document.readyState`, false)
		if err == nil {
			if value, exc := unwrapEvaluate(result); exc == "" {
				if current, ok := value.(string); ok {
					for _, a := range accepted {
						if current == a {
							return nil
						}
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
	if d.page != nil {
		return d.page.URL(), nil
	}
	result, err := d.evaluate(`window.location.href`, false)
	if err != nil {
		return "", backend.NewBackendError("GetURL", "cdp_failed", err)
	}
	value, exceptionText := unwrapEvaluate(result)
	if exceptionText != "" {
		return "", &backend.EvalError{Text: exceptionText}
	}
	url, _ := value.(string)
	return url, nil
}

// unwrapEvaluate pulls the `.value` out of a Runtime.evaluate/callFunctionOn
// result, or returns the exception's description text when the JS threw.
func unwrapEvaluate(result map[string]interface{}) (any, string) {
	if exceptionDetails, ok := result["exceptionDetails"].(map[string]interface{}); ok {
		if text, ok := exceptionDetails["text"].(string); ok && text != "" {
			return nil, text
		}
		return nil, "uncaught exception"
	}
	rr, _ := result["result"].(map[string]interface{})
	if rr == nil {
		return nil, ""
	}
	if v, ok := rr["value"]; ok {
		return v, ""
	}
	return nil, ""
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
