// Package browsertest provides in-memory fakes for the browser interfaces so
// the session and scrape layers can be tested without a real browser process.
package browsertest

import (
	"sync"
	"time"

	"github.com/webstream-tools/pwi-gateway/internal/browser"
)

// FakePool hands out FakeContexts and records everything the code under test
// does with them.
type FakePool struct {
	mu sync.Mutex

	// PageHTML maps a navigated URL to the HTML Content() should return.
	PageHTML map[string]string
	// AfterSubmitHTML becomes the page content after ClickAndWait, simulating
	// the portal's post-login navigation.
	AfterSubmitHTML string
	// CaptchaImage is returned by ElementScreenshot.
	CaptchaImage []byte

	NewContextErr error
	Contexts      []*FakeContext
}

func (p *FakePool) NewContext() (browser.Context, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.NewContextErr != nil {
		return nil, p.NewContextErr
	}
	ctx := &FakeContext{pool: p}
	p.Contexts = append(p.Contexts, ctx)
	return ctx, nil
}

// LastContext returns the most recently created context.
func (p *FakePool) LastContext() *FakeContext {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.Contexts) == 0 {
		return nil
	}
	return p.Contexts[len(p.Contexts)-1]
}

// Navigations counts Goto calls across every page of every context.
func (p *FakePool) Navigations() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, ctx := range p.Contexts {
		n += ctx.navigations()
	}
	return n
}

type FakeContext struct {
	mu     sync.Mutex
	pool   *FakePool
	Pages  []*FakePage
	Closed bool
}

func (c *FakeContext) NewPage() (browser.Page, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	page := &FakePage{ctx: c}
	if c.pool != nil {
		page.html = c.pool.AfterSubmitHTML // default until a Goto overrides it
	}
	c.Pages = append(c.Pages, page)
	return page, nil
}

func (c *FakeContext) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Closed = true
	return nil
}

func (c *FakeContext) navigations() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, p := range c.Pages {
		n += len(p.Visited)
	}
	return n
}

type FakePage struct {
	mu  sync.Mutex
	ctx *FakeContext

	html    string
	Visited []string
	Filled  map[string]string
	Clicked []string
	Closed  bool

	GotoErr error
	WaitErr error
}

func (p *FakePage) Goto(url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.GotoErr != nil {
		return p.GotoErr
	}
	p.Visited = append(p.Visited, url)
	if p.ctx != nil && p.ctx.pool != nil {
		if html, ok := p.ctx.pool.PageHTML[url]; ok {
			p.html = html
		}
	}
	return nil
}

func (p *FakePage) WaitForImage(selector string, timeout time.Duration) error {
	return p.WaitErr
}

func (p *FakePage) ElementScreenshot(selector string) ([]byte, error) {
	if p.ctx != nil && p.ctx.pool != nil && p.ctx.pool.CaptchaImage != nil {
		return p.ctx.pool.CaptchaImage, nil
	}
	return []byte("png"), nil
}

func (p *FakePage) Fill(selector, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Filled == nil {
		p.Filled = make(map[string]string)
	}
	p.Filled[selector] = value
	return nil
}

func (p *FakePage) Click(selector string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Clicked = append(p.Clicked, selector)
	return nil
}

func (p *FakePage) ClickAndWait(selector string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Clicked = append(p.Clicked, selector)
	if p.ctx != nil && p.ctx.pool != nil {
		p.html = p.ctx.pool.AfterSubmitHTML
	}
	return nil
}

func (p *FakePage) Content() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.html, nil
}

// SetContent overrides the page HTML directly.
func (p *FakePage) SetContent(html string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.html = html
}

func (p *FakePage) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Closed = true
	return nil
}
