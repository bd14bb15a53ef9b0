package browser

import (
	"errors"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
)

// ErrNotReady is returned by every operation that needs the shared browser
// process before it has been launched.
var ErrNotReady = errors.New("browser not ready")

// Context is one isolated browsing identity (its own cookie jar) inside the
// shared browser process. A context is owned by at most one session at a time.
type Context interface {
	NewPage() (Page, error)
	Close() error
}

// Page is a single tab inside a Context. Pages are transient: every caller
// that opens one must close it, success or not.
type Page interface {
	// Goto navigates and waits for the network to go idle.
	Goto(url string) error
	// WaitForImage blocks until the image matched by selector has a non-zero
	// rendered width, or the timeout elapses.
	WaitForImage(selector string, timeout time.Duration) error
	// ElementScreenshot captures the rendered region of the matched element.
	ElementScreenshot(selector string) ([]byte, error)
	Fill(selector, value string) error
	Click(selector string) error
	// ClickAndWait clicks and then waits for the resulting navigation to settle.
	ClickAndWait(selector string) error
	// Content returns the full serialized HTML of the current document.
	Content() (string, error)
	Close() error
}

// Pool wraps the single long-lived browser process. It is provisioned once at
// startup and lives until the process exits; Close exists for tests.
type Pool struct {
	pw      *playwright.Playwright
	browser playwright.Browser
}

// Launch starts playwright and one headless Chromium process.
func Launch(headless bool) (*Pool, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	b, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(headless),
	})
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	return &Pool{pw: pw, browser: b}, nil
}

// NewContext allocates an isolated cookie-scoped context. Fails fast with
// ErrNotReady rather than blocking when the browser was never launched.
func (p *Pool) NewContext() (Context, error) {
	if p == nil || p.browser == nil {
		return nil, ErrNotReady
	}

	ctx, err := p.browser.NewContext()
	if err != nil {
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	return &pwContext{inner: ctx}, nil
}

// Close tears the browser process down. Only tests call this; in production
// the pool terminates with the process.
func (p *Pool) Close() error {
	if p == nil || p.browser == nil {
		return nil
	}
	if err := p.browser.Close(); err != nil {
		return err
	}
	return p.pw.Stop()
}

type pwContext struct {
	inner playwright.BrowserContext
}

func (c *pwContext) NewPage() (Page, error) {
	page, err := c.inner.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	return &pwPage{inner: page}, nil
}

func (c *pwContext) Close() error {
	return c.inner.Close()
}

type pwPage struct {
	inner playwright.Page
}

func (p *pwPage) Goto(url string) error {
	_, err := p.inner.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
	})
	return err
}

func (p *pwPage) WaitForImage(selector string, timeout time.Duration) error {
	expr := fmt.Sprintf(
		`() => { const el = document.querySelector(%q); return el !== null && el.complete && el.naturalWidth > 0; }`,
		selector,
	)
	_, err := p.inner.WaitForFunction(expr, nil, playwright.PageWaitForFunctionOptions{
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	return err
}

func (p *pwPage) ElementScreenshot(selector string) ([]byte, error) {
	el, err := p.inner.QuerySelector(selector)
	if err != nil {
		return nil, err
	}
	if el == nil {
		return nil, fmt.Errorf("element %s not found", selector)
	}
	return el.Screenshot(playwright.ElementHandleScreenshotOptions{})
}

func (p *pwPage) Fill(selector, value string) error {
	return p.inner.Fill(selector, value)
}

func (p *pwPage) Click(selector string) error {
	return p.inner.Click(selector)
}

func (p *pwPage) ClickAndWait(selector string) error {
	if err := p.inner.Click(selector); err != nil {
		return err
	}
	return p.inner.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State: playwright.LoadStateNetworkidle,
	})
}

func (p *pwPage) Content() (string, error) {
	return p.inner.Content()
}

func (p *pwPage) Close() error {
	return p.inner.Close()
}
