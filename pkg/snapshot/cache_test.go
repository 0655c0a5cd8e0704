package snapshot

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/webverify/agentrt/pkg/backend"
)

// fakeBackend is a minimal backend.Backend that answers the extension-bridge
// probe and snapshot() calls Service issues via Eval, and reports whatever
// URL/element count has been configured. It exercises no browser at all.
type fakeBackend struct {
	url      string
	elements int
	evalErr  error
}

func (f *fakeBackend) RefreshPageInfo(ctx context.Context) (backend.ViewportInfo, error) {
	return backend.ViewportInfo{}, nil
}

func (f *fakeBackend) Eval(ctx context.Context, expression string) (any, error) {
	if f.evalErr != nil {
		return nil, f.evalErr
	}
	if expression == "" {
		return nil, fmt.Errorf("empty expression")
	}
	// The bridge-ready probe expression always contains "defined:".
	if containsProbe(expression) {
		return map[string]interface{}{
			"defined":            true,
			"snapshot_available": true,
			"url":                f.url,
			"extension_id":       "fake-ext",
		}, nil
	}
	elements := make([]interface{}, f.elements)
	for i := range elements {
		elements[i] = map[string]interface{}{
			"id":   i,
			"role": "button",
			"text": fmt.Sprintf("item %d", i),
		}
	}
	return map[string]interface{}{
		"status":   "success",
		"url":      f.url,
		"elements": elements,
	}, nil
}

func containsProbe(expr string) bool {
	return len(expr) > 0 && expr[0] == '(' // probe expression is a self-invoking arrow function
}

func (f *fakeBackend) Call(ctx context.Context, fn string, args []any) (any, error) { return nil, nil }
func (f *fakeBackend) GetLayoutMetrics(ctx context.Context) (backend.LayoutMetrics, error) {
	return backend.LayoutMetrics{}, nil
}
func (f *fakeBackend) ScreenshotPNG(ctx context.Context) (string, error) { return "", nil }
func (f *fakeBackend) MouseMove(ctx context.Context, x, y float64) error { return nil }
func (f *fakeBackend) MouseClick(ctx context.Context, x, y float64, button backend.MouseButton, clickCount int) error {
	return nil
}
func (f *fakeBackend) Wheel(ctx context.Context, deltaY float64, x, y *float64) error { return nil }
func (f *fakeBackend) TypeText(ctx context.Context, text string) error                { return nil }
func (f *fakeBackend) KeyPress(ctx context.Context, key string) error                 { return nil }
func (f *fakeBackend) WaitReadyState(ctx context.Context, state backend.ReadyState, timeoutMs int) error {
	return nil
}
func (f *fakeBackend) GetURL(ctx context.Context) (string, error) { return f.url, nil }

func TestCacheGetAcquiresOnEmptyCache(t *testing.T) {
	be := &fakeBackend{url: "https://example.com", elements: 3}
	svc := New(be, nil)
	cache := NewCache(svc, 1000)

	snap, err := cache.Get(context.Background(), Options{}, false)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if len(snap.Elements) != 3 {
		t.Errorf("expected 3 elements, got %d", len(snap.Elements))
	}
	if cache.Cached() == nil {
		t.Error("expected cache to hold the acquired snapshot")
	}
}

func TestCacheGetReusesWithinBudget(t *testing.T) {
	be := &fakeBackend{url: "https://example.com", elements: 1}
	svc := New(be, nil)
	cache := NewCache(svc, 60_000)

	first, err := cache.Get(context.Background(), Options{}, false)
	if err != nil {
		t.Fatalf("first Get error: %v", err)
	}

	be.elements = 5 // would be visible only on a fresh acquire
	second, err := cache.Get(context.Background(), Options{}, false)
	if err != nil {
		t.Fatalf("second Get error: %v", err)
	}
	if second != first {
		t.Error("expected the second Get within budget to return the identical cached snapshot")
	}
	if len(second.Elements) != 1 {
		t.Errorf("expected stale cached element count 1, got %d", len(second.Elements))
	}
}

func TestCacheGetForceRefreshBypassesBudget(t *testing.T) {
	be := &fakeBackend{url: "https://example.com", elements: 1}
	svc := New(be, nil)
	cache := NewCache(svc, 60_000)

	if _, err := cache.Get(context.Background(), Options{}, false); err != nil {
		t.Fatalf("first Get error: %v", err)
	}

	be.elements = 9
	refreshed, err := cache.Get(context.Background(), Options{}, true)
	if err != nil {
		t.Fatalf("forced Get error: %v", err)
	}
	if len(refreshed.Elements) != 9 {
		t.Errorf("expected forced refresh to observe updated element count 9, got %d", len(refreshed.Elements))
	}
}

func TestCacheInvalidate(t *testing.T) {
	be := &fakeBackend{url: "https://example.com", elements: 1}
	cache := NewCache(New(be, nil), 60_000)

	if _, err := cache.Get(context.Background(), Options{}, false); err != nil {
		t.Fatalf("Get error: %v", err)
	}
	cache.Invalidate()
	if cache.Cached() != nil {
		t.Error("expected Cached() to be nil after Invalidate")
	}
	if cache.AgeMs() != math.MaxInt64 {
		t.Errorf("expected AgeMs to report MaxInt64 for an empty cache, got %d", cache.AgeMs())
	}
}
