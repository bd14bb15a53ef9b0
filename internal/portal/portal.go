// Package portal drives the SASTRA student web information portal ("PWI").
// The portal has no API; everything here works against its server-rendered
// login form and table pages through a browser page.
package portal

import (
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/webstream-tools/pwi-gateway/internal/browser"
)

const (
	// DefaultBaseURL is the production portal root.
	DefaultBaseURL = "https://webstream.sastra.edu/sastrapwi"

	loginPath = "/usermanager/youLogin.jsp"

	captchaSelector  = "#imgCaptcha"
	regNoSelector    = "#txtRegNumber"
	passwordSelector = "#txtPwd"
	answerSelector   = "#answer"
	submitSelector   = "#btnLogin"
	errorSelector    = "#lblError"

	// captchaRenderTimeout bounds the wait for the captcha image to finish
	// rendering; beyond this the portal is treated as stalled.
	captchaRenderTimeout = 15 * time.Second
)

// RejectedError carries the portal's own rejection message verbatim (bad
// credentials or a wrong captcha answer).
type RejectedError struct {
	Reason string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("portal rejected login: %s", e.Reason)
}

// Portal knows the portal's URLs and selectors.
type Portal struct {
	baseURL string
}

func New(baseURL string) *Portal {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Portal{baseURL: strings.TrimSuffix(baseURL, "/")}
}

// HomeURL is the portal root; navigating here establishes fresh cookie state.
func (p *Portal) HomeURL() string {
	return p.baseURL + "/"
}

func (p *Portal) loginURL() string {
	return p.baseURL + loginPath
}

// PageURL resolves a portal-relative path for one scrape category.
func (p *Portal) PageURL(path string) string {
	return p.baseURL + path
}

// CaptureCaptcha navigates the page to the login form, waits for the captcha
// image to finish rendering and returns its rendered region as image bytes.
func (p *Portal) CaptureCaptcha(page browser.Page) ([]byte, error) {
	if err := page.Goto(p.loginURL()); err != nil {
		return nil, fmt.Errorf("failed to open login page: %w", err)
	}
	if err := page.WaitForImage(captchaSelector, captchaRenderTimeout); err != nil {
		return nil, fmt.Errorf("captcha did not render: %w", err)
	}
	img, err := page.ElementScreenshot(captchaSelector)
	if err != nil {
		return nil, fmt.Errorf("failed to capture captcha: %w", err)
	}
	return img, nil
}

// SubmitLogin types the credentials and captcha answer into the live login
// page, submits, and inspects the resulting document. A *RejectedError means
// the portal refused the attempt; nil means the session is authenticated.
func (p *Portal) SubmitLogin(page browser.Page, identifier, secret, answer string) error {
	if err := page.Fill(regNoSelector, identifier); err != nil {
		return fmt.Errorf("failed to fill registration number: %w", err)
	}
	if err := page.Fill(passwordSelector, secret); err != nil {
		return fmt.Errorf("failed to fill password: %w", err)
	}
	if err := page.Fill(answerSelector, answer); err != nil {
		return fmt.Errorf("failed to fill captcha answer: %w", err)
	}
	if err := page.ClickAndWait(submitSelector); err != nil {
		return fmt.Errorf("failed to submit login form: %w", err)
	}

	html, err := page.Content()
	if err != nil {
		return fmt.Errorf("failed to read post-login page: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return fmt.Errorf("failed to parse post-login page: %w", err)
	}

	// The portal reports failure by rendering a known error label; its
	// absence is the only success signal the markup offers.
	if node := doc.Find(errorSelector); node.Length() > 0 {
		reason := strings.TrimSpace(node.Text())
		if reason == "" {
			reason = "login failed"
		}
		return &RejectedError{Reason: reason}
	}
	return nil
}

// Open navigates the page to a category path and returns the parsed document.
func (p *Portal) Open(page browser.Page, path string) (*goquery.Document, error) {
	if err := page.Goto(p.PageURL(path)); err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	html, err := page.Content()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}
