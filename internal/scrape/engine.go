// Package scrape implements the one scrape-a-table-into-JSON operation that
// every data category is an instance of, plus the two form-submission flows
// and the derived bunk projection.
package scrape

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/webstream-tools/pwi-gateway/internal/browser"
	"github.com/webstream-tools/pwi-gateway/internal/portal"
	"github.com/webstream-tools/pwi-gateway/internal/session"
	"github.com/webstream-tools/pwi-gateway/internal/store"
	"github.com/webstream-tools/pwi-gateway/pkg/models"
)

// ErrUnknownCategory is returned for a category name no endpoint maps to.
var ErrUnknownCategory = errors.New("unknown category")

// CategoryError is a scrape-shape failure: the category's table, row or cell
// was not where the policy said. It is non-fatal to the session.
type CategoryError struct {
	Category string
	Err      error
}

func (e *CategoryError) Error() string {
	return fmt.Sprintf("%s: %v", e.Category, e.Err)
}

func (e *CategoryError) Unwrap() error {
	return e.Err
}

// Resolver turns tokens into live sessions. *session.Manager satisfies it.
type Resolver interface {
	Resolve(ctx context.Context, token string) (*session.Session, error)
}

// Uploader pushes an image to the hosting collaborator and returns its URL.
type Uploader interface {
	Upload(ctx context.Context, image []byte) (string, error)
}

// Category is the declarative policy for one data category. Exactly one of
// Extract, Capture or Derive is set.
type Category struct {
	Name string
	Path string
	// Extract reads the parsed category page.
	Extract func(doc *goquery.Document) (any, error)
	// Capture drives the page itself (screenshot categories).
	Capture func(e *Engine, ctx context.Context, page browser.Page) (any, error)
	// Derive computes from previously scraped data without navigating.
	Derive func(e *Engine, ctx context.Context, identifier string) (any, error)
	// Mirror names a second collection that receives a copy of every write.
	Mirror string
}

type Engine struct {
	sessions   Resolver
	store      store.Store
	portal     *portal.Portal
	images     Uploader
	categories map[string]Category
}

func NewEngine(r Resolver, s store.Store, p *portal.Portal, images Uploader) *Engine {
	e := &Engine{
		sessions:   r,
		store:      s,
		portal:     p,
		images:     images,
		categories: make(map[string]Category),
	}
	for _, cat := range categories() {
		e.categories[cat.Name] = cat
	}
	return e
}

// Names lists every registered category, for route registration.
func (e *Engine) Names() []string {
	names := make([]string, 0, len(e.categories))
	for name := range e.categories {
		names = append(names, name)
	}
	return names
}

// Run executes one category for a token. Without force, a cached value is
// served as-is; with force the portal is re-scraped and the cache overwritten.
// The page opened for the scrape is closed on every path; the context stays.
func (e *Engine) Run(ctx context.Context, token, name string, force bool) (*models.CategoryValue, error) {
	cat, ok := e.categories[name]
	if !ok {
		return nil, ErrUnknownCategory
	}

	sess, err := e.sessions.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}

	if !force {
		cached, err := store.ReadCategory(ctx, e.store, sess.Identifier, name)
		if err != nil {
			return nil, err
		}
		if cached != nil {
			return cached, nil
		}
	}

	var value any
	if cat.Derive != nil {
		value, err = cat.Derive(e, ctx, sess.Identifier)
		if err != nil {
			return nil, &CategoryError{Category: name, Err: err}
		}
	} else {
		value, err = e.scrapePage(ctx, sess, cat)
		if err != nil {
			return nil, &CategoryError{Category: name, Err: err}
		}
	}

	data, err := json.Marshal(value)
	if err != nil {
		return nil, &CategoryError{Category: name, Err: err}
	}

	stored, err := store.WriteCategory(ctx, e.store, sess.Identifier, name, data)
	if err != nil {
		return nil, err
	}
	if cat.Mirror != "" {
		if err := e.store.Set(ctx, cat.Mirror, sess.Identifier, data); err != nil {
			log.Printf("warning: mirror write to %s failed for %s: %v", cat.Mirror, sess.Identifier, err)
		}
	}
	return stored, nil
}

func (e *Engine) scrapePage(ctx context.Context, sess *session.Session, cat Category) (any, error) {
	page, err := sess.Context.NewPage()
	if err != nil {
		return nil, err
	}
	defer page.Close()

	if cat.Capture != nil {
		return cat.Capture(e, ctx, page)
	}

	doc, err := e.portal.Open(page, cat.Path)
	if err != nil {
		return nil, err
	}
	return cat.Extract(doc)
}

// SubmitGrievance files a grievance and unions it into the student's
// grievance history.
func (e *Engine) SubmitGrievance(ctx context.Context, token, category, text string) (*models.CategoryValue, error) {
	sess, err := e.sessions.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}

	page, err := sess.Context.NewPage()
	if err != nil {
		return nil, err
	}
	defer page.Close()

	confirmation, err := e.portal.SubmitGrievance(page, category, text)
	if err != nil {
		return nil, &CategoryError{Category: "grievances", Err: err}
	}

	entry, err := json.Marshal(map[string]string{
		"category":    category,
		"text":        text,
		"status":      confirmation,
		"submittedAt": time.Now().Format(time.RFC3339),
	})
	if err != nil {
		return nil, err
	}
	return store.AppendCategory(ctx, e.store, sess.Identifier, "grievances", entry)
}

// SubmitLeave files a leave application and unions it into the student's
// leave-application history.
func (e *Engine) SubmitLeave(ctx context.Context, token, from, to, reason string) (*models.CategoryValue, error) {
	sess, err := e.sessions.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}

	page, err := sess.Context.NewPage()
	if err != nil {
		return nil, err
	}
	defer page.Close()

	confirmation, err := e.portal.SubmitLeave(page, from, to, reason)
	if err != nil {
		return nil, &CategoryError{Category: "leaveApplication", Err: err}
	}

	entry, err := json.Marshal(map[string]string{
		"from":        from,
		"to":          to,
		"reason":      reason,
		"status":      confirmation,
		"submittedAt": time.Now().Format(time.RFC3339),
	})
	if err != nil {
		return nil, err
	}
	return store.AppendCategory(ctx, e.store, sess.Identifier, "leaveApplication", entry)
}
