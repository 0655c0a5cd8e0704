package backend

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/webverify/agentrt/pkg/backend/cdpdriver"
	"github.com/webverify/agentrt/pkg/backend/pwdriver"
)

// DriverKind selects which concrete Backend implementation Launch returns.
type DriverKind string

const (
	// DriverPlaywright uses the high-level Playwright Page API.
	DriverPlaywright DriverKind = "playwright"
	// DriverCDP issues raw CDP commands over Playwright's CDP session.
	DriverCDP DriverKind = "cdp"
)

// Options configures a launched browser session.
type Options struct {
	Driver   DriverKind
	Headless bool
	Viewport ViewportSize
	Timeout  time.Duration
}

// ViewportSize is the initial viewport for a launched page.
type ViewportSize struct {
	Width  int
	Height int
}

const (
	defaultViewportWidth  = 1280
	defaultViewportHeight = 720
)

// launched bundles everything opened by Launch so Close can tear it all
// down in reverse order, mirroring the teacher's SessionManager.Shutdown.
type launched struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page
	session playwright.CDPSession
}

func (l *launched) Close() error {
	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if l.page != nil {
		record(l.page.Close())
	}
	if l.context != nil {
		record(l.context.Close())
	}
	if l.browser != nil {
		record(l.browser.Close())
	}
	if l.pw != nil {
		record(l.pw.Stop())
	}
	return firstErr
}

// Launch starts Playwright, launches Chromium, opens a page, and returns a
// Backend wrapping it — either the high-level Playwright driver or the raw
// CDP driver, per opts.Driver. The returned io.Closer tears down the
// browser, context, and Playwright process together.
func Launch(ctx context.Context, opts Options) (Backend, io.Closer, error) {
	if opts.Viewport.Width == 0 {
		opts.Viewport.Width = defaultViewportWidth
	}
	if opts.Viewport.Height == 0 {
		opts.Viewport.Height = defaultViewportHeight
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, nil, NewBackendError("Launch", "playwright_start_failed", err)
	}
	l := &launched{pw: pw}

	headless := opts.Headless
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: &headless,
	})
	if err != nil {
		l.Close()
		return nil, nil, NewBackendError("Launch", "browser_launch_failed", err)
	}
	l.browser = browser

	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{Width: opts.Viewport.Width, Height: opts.Viewport.Height},
	})
	if err != nil {
		l.Close()
		return nil, nil, NewBackendError("Launch", "context_failed", err)
	}
	l.context = bctx

	page, err := bctx.NewPage()
	if err != nil {
		l.Close()
		return nil, nil, NewBackendError("Launch", "page_failed", err)
	}
	l.page = page

	if opts.Timeout > 0 {
		page.SetDefaultTimeout(float64(opts.Timeout.Milliseconds()))
	}

	switch opts.Driver {
	case DriverCDP:
		session, err := bctx.NewCDPSession(page)
		if err != nil {
			l.Close()
			return nil, nil, NewBackendError("Launch", "cdp_session_failed", err)
		}
		l.session = session
		return cdpdriver.New(session, page), l, nil
	case DriverPlaywright, "":
		return pwdriver.New(page), l, nil
	default:
		l.Close()
		return nil, nil, NewBackendError("Launch", "unknown_driver", fmt.Errorf("unknown driver kind %q", opts.Driver))
	}
}
