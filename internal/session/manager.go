// Package session maps opaque client tokens to live authenticated browser
// contexts against the portal, and recovers them from the durable store when
// process memory is lost.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/webstream-tools/pwi-gateway/internal/browser"
	"github.com/webstream-tools/pwi-gateway/internal/portal"
	"github.com/webstream-tools/pwi-gateway/internal/ratelimit"
	"github.com/webstream-tools/pwi-gateway/internal/store"
	"github.com/webstream-tools/pwi-gateway/internal/vault"
	"github.com/webstream-tools/pwi-gateway/pkg/models"
)

var (
	// ErrNoSession means the token is unknown in memory and in the durable
	// store; the caller is unauthenticated.
	ErrNoSession = errors.New("no session for token")
	// ErrNoChallenge means login was finalized without a live pending
	// challenge for the identifier.
	ErrNoChallenge = errors.New("challenge expired or not found")
	// ErrTooManyChallenges means captcha issuing was rate limited.
	ErrTooManyChallenges = errors.New("too many captcha requests")
)

// Session binds a token to an identifier and its live browser context.
type Session struct {
	Token      string
	Identifier string
	Context    browser.Context
	CreatedAt  time.Time
}

// ContextSource allocates isolated browser contexts. *browser.Pool satisfies
// it in production; tests inject a fake.
type ContextSource interface {
	NewContext() (browser.Context, error)
}

// pendingChallenge is a captcha waiting to be answered. The login form lives
// on one designated page; the challenge owns its context only when it was
// allocated for a fresh login (a relogin challenge borrows the session's).
type pendingChallenge struct {
	identifier  string
	context     browser.Context
	page        browser.Page
	ownsContext bool
}

// Manager handles the whole session lifecycle: challenge, finalize, resolve,
// relogin, logout.
type Manager struct {
	pool    ContextSource
	portal  *portal.Portal
	store   store.Store
	vault   *vault.Vault
	limiter *ratelimit.Limiter

	sessions sync.Map // token -> *Session
	pending  sync.Map // identifier -> *pendingChallenge

	mu    sync.Mutex
	locks map[string]*semaphore.Weighted
}

func NewManager(pool ContextSource, p *portal.Portal, s store.Store, v *vault.Vault, limiter *ratelimit.Limiter) *Manager {
	return &Manager{
		pool:    pool,
		portal:  p,
		store:   s,
		vault:   v,
		limiter: limiter,
		locks:   make(map[string]*semaphore.Weighted),
	}
}

// lockIdentifier serializes the two-step challenge/finalize flow per
// identifier; the login form is a single shared page and last-writer-wins on
// it is not acceptable.
func (m *Manager) lockIdentifier(ctx context.Context, identifier string) (func(), error) {
	m.mu.Lock()
	sem, ok := m.locks[identifier]
	if !ok {
		sem = semaphore.NewWeighted(1)
		m.locks[identifier] = sem
	}
	m.mu.Unlock()

	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return func() { sem.Release(1) }, nil
}

// IssueChallenge allocates a fresh context, opens the portal login page,
// captures the rendered captcha and parks the page for FinalizeLogin.
func (m *Manager) IssueChallenge(ctx context.Context, identifier string) ([]byte, error) {
	if identifier == "" {
		return nil, errors.New("identifier is required")
	}
	if m.limiter != nil && !m.limiter.Allow(identifier) {
		return nil, ErrTooManyChallenges
	}

	release, err := m.lockIdentifier(ctx, identifier)
	if err != nil {
		return nil, err
	}
	defer release()

	bctx, err := m.pool.NewContext()
	if err != nil {
		return nil, err
	}
	page, err := bctx.NewPage()
	if err != nil {
		bctx.Close()
		return nil, err
	}

	img, err := m.portal.CaptureCaptcha(page)
	if err != nil {
		page.Close()
		bctx.Close()
		return nil, err
	}

	m.storePending(&pendingChallenge{
		identifier:  identifier,
		context:     bctx,
		page:        page,
		ownsContext: true,
	})
	return img, nil
}

// storePending installs a challenge, closing whatever an earlier unfinished
// challenge for the same identifier left behind.
func (m *Manager) storePending(pc *pendingChallenge) {
	prev, loaded := m.pending.Swap(pc.identifier, pc)
	if !loaded {
		return
	}
	old := prev.(*pendingChallenge)
	old.page.Close()
	if old.ownsContext {
		old.context.Close()
	}
}

// FinalizeLogin consumes the pending challenge for the identifier, submits
// the credentials into its live page and, on success, promotes the context
// into a durable session. The challenge is deleted on every path.
func (m *Manager) FinalizeLogin(ctx context.Context, identifier, secret, answer string) (string, error) {
	release, err := m.lockIdentifier(ctx, identifier)
	if err != nil {
		return "", err
	}
	defer release()

	val, ok := m.pending.LoadAndDelete(identifier)
	if !ok {
		return "", ErrNoChallenge
	}
	pc := val.(*pendingChallenge)
	defer pc.page.Close()

	if err := m.portal.SubmitLogin(pc.page, identifier, secret, answer); err != nil {
		if pc.ownsContext {
			pc.context.Close()
		}
		return "", err
	}

	token := uuid.NewString()
	sess := &Session{
		Token:      token,
		Identifier: identifier,
		Context:    pc.context,
		CreatedAt:  time.Now(),
	}
	m.sessions.Store(token, sess)

	if err := m.persistRecord(ctx, sess); err != nil {
		log.Printf("warning: failed to persist session record for %s: %v", identifier, err)
	}
	if err := m.vault.SaveCredential(ctx, identifier, secret); err != nil {
		log.Printf("warning: failed to store credential for %s: %v", identifier, err)
	}
	return token, nil
}

// Resolve returns the live session for a token. The in-memory table is the
// fast path; after a restart the durable record is used to rebuild a fresh
// context. A rebuilt context starts with new cookies and is not authenticated
// until a relogin runs — the portal redirects its pages to the login form
// until then.
func (m *Manager) Resolve(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrNoSession
	}
	if val, ok := m.sessions.Load(token); ok {
		return val.(*Session), nil
	}

	raw, ok, err := m.store.Get(ctx, store.CollActiveSessions, token)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoSession
	}
	var record models.SessionRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, err
	}

	bctx, err := m.pool.NewContext()
	if err != nil {
		return nil, err
	}
	page, err := bctx.NewPage()
	if err != nil {
		bctx.Close()
		return nil, err
	}
	if err := page.Goto(m.portal.HomeURL()); err != nil {
		page.Close()
		bctx.Close()
		return nil, err
	}
	page.Close()

	sess := &Session{
		Token:      token,
		Identifier: record.Identifier,
		Context:    bctx,
		CreatedAt:  record.CreatedAt,
	}
	// Two concurrent resolves must not leave two live contexts for one token.
	if actual, loaded := m.sessions.LoadOrStore(token, sess); loaded {
		bctx.Close()
		return actual.(*Session), nil
	}
	return sess, nil
}

// ReloginChallenge issues a captcha against the session's existing context so
// the subsequent login keeps its cookie jar.
func (m *Manager) ReloginChallenge(ctx context.Context, token string) ([]byte, error) {
	sess, err := m.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}

	release, err := m.lockIdentifier(ctx, sess.Identifier)
	if err != nil {
		return nil, err
	}
	defer release()

	page, err := sess.Context.NewPage()
	if err != nil {
		return nil, err
	}
	img, err := m.portal.CaptureCaptcha(page)
	if err != nil {
		page.Close()
		return nil, err
	}

	m.storePending(&pendingChallenge{
		identifier:  sess.Identifier,
		context:     sess.Context,
		page:        page,
		ownsContext: false,
	})
	return img, nil
}

// FinalizeRelogin re-authenticates with the stored credential and rotates the
// token: the old one is invalidated everywhere, the new one binds to the same
// identity and context. On portal rejection the context is closed and the
// session torn down — the identity is unusable from that point.
func (m *Manager) FinalizeRelogin(ctx context.Context, token, answer string) (string, error) {
	sess, err := m.Resolve(ctx, token)
	if err != nil {
		return "", err
	}

	release, err := m.lockIdentifier(ctx, sess.Identifier)
	if err != nil {
		return "", err
	}
	defer release()

	val, ok := m.pending.LoadAndDelete(sess.Identifier)
	if !ok {
		return "", ErrNoChallenge
	}
	pc := val.(*pendingChallenge)
	defer pc.page.Close()

	secret, err := m.vault.LoadCredential(ctx, sess.Identifier)
	if err != nil {
		return "", err
	}

	if err := m.portal.SubmitLogin(pc.page, sess.Identifier, secret, answer); err != nil {
		m.sessions.Delete(token)
		if derr := m.store.Delete(ctx, store.CollActiveSessions, token); derr != nil {
			log.Printf("warning: failed to delete session record %s: %v", token, derr)
		}
		sess.Context.Close()
		return "", err
	}

	newToken := uuid.NewString()
	rotated := &Session{
		Token:      newToken,
		Identifier: sess.Identifier,
		Context:    sess.Context,
		CreatedAt:  time.Now(),
	}
	m.sessions.Store(newToken, rotated)
	m.sessions.Delete(token)

	if err := m.persistRecord(ctx, rotated); err != nil {
		log.Printf("warning: failed to persist rotated session for %s: %v", sess.Identifier, err)
	}
	if err := m.store.Delete(ctx, store.CollActiveSessions, token); err != nil {
		log.Printf("warning: failed to delete old session record %s: %v", token, err)
	}
	return newToken, nil
}

// Logout closes the session's context and removes it from memory and the
// durable store. Logging out an unknown token is not an error.
func (m *Manager) Logout(ctx context.Context, token string) error {
	if val, ok := m.sessions.LoadAndDelete(token); ok {
		sess := val.(*Session)
		if err := sess.Context.Close(); err != nil {
			log.Printf("warning: failed to close context for %s: %v", sess.Identifier, err)
		}
	}
	if err := m.store.Delete(ctx, store.CollActiveSessions, token); err != nil {
		log.Printf("warning: failed to delete session record %s: %v", token, err)
	}
	return nil
}

func (m *Manager) persistRecord(ctx context.Context, sess *Session) error {
	record := models.SessionRecord{
		Token:      sess.Token,
		Identifier: sess.Identifier,
		CreatedAt:  sess.CreatedAt,
	}
	encoded, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return m.store.Set(ctx, store.CollActiveSessions, sess.Token, encoded)
}
