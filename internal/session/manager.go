package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"prescripto-auth/internal/client"
	"prescripto-auth/internal/logger"

	"github.com/sethvargo/go-retry"
)

var (
	ErrNoCredential = errors.New("session: no credential")
	ErrSuperseded   = errors.New("session: attempt superseded by a newer one")
	ErrClosed       = errors.New("session: manager closed")
)

const DefaultResolveTimeout = 10 * time.Second

// IdentityAPI performs the identity-resolution read for a credential.
type IdentityAPI interface {
	Profile(ctx context.Context, token string) client.Result
}

// Option configures a Manager.
type Option func(*Manager)

// WithResolveTimeout bounds each resolution attempt. A timeout is
// classified like any other unreachable server.
func WithResolveTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// WithBackoff sets the policy used by Reconnect. newBackoff is called
// once per Reconnect since go-retry backoffs are stateful.
func WithBackoff(newBackoff func() retry.Backoff) Option {
	return func(m *Manager) {
		if newBackoff != nil {
			m.newBackoff = newBackoff
		}
	}
}

func defaultBackoff() retry.Backoff {
	b := retry.NewExponential(500 * time.Millisecond)
	b = retry.WithJitterPercent(10, b)
	return retry.WithCappedDuration(30*time.Second, b)
}

// Manager is the single owner of the client's session state. Other
// components read it through Snapshot and Subscribe; only the Manager
// writes it.
//
// Each resolution attempt is tagged with a generation. Starting an
// attempt, logging in or logging out bumps the generation and cancels
// the previous attempt, and results from old generations are dropped.
type Manager struct {
	api        IdentityAPI
	store      Store
	timeout    time.Duration
	newBackoff func() retry.Backoff

	root     context.Context
	shutdown context.CancelFunc
	wg       sync.WaitGroup

	mu      sync.Mutex
	state   Snapshot
	gen     uint64
	cancel  context.CancelFunc
	notices dedup
	closed  bool

	// events are numbered under mu and delivered strictly in that order
	seq       uint64
	delivered uint64
	deliverMu sync.Mutex
	turn      *sync.Cond
	events    hub[Event]
}

func NewManager(api IdentityAPI, store Store, opts ...Option) *Manager {
	root, shutdown := context.WithCancel(context.Background())
	m := &Manager{
		api:        api,
		store:      store,
		timeout:    DefaultResolveTimeout,
		newBackoff: defaultBackoff,
		root:       root,
		shutdown:   shutdown,
	}
	m.turn = sync.NewCond(&m.deliverMu)
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Snapshot returns the current state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Subscribe registers fn for every state change. fn runs on the
// goroutine that caused the change and must not call Login, Logout,
// Start, Refresh or Do synchronously.
func (m *Manager) Subscribe(fn func(Event)) (unsubscribe func()) {
	return m.events.subscribe(fn)
}

// Start seeds the state from the durable slot. With a stored credential
// it begins resolution in the background; without one it stays
// LoggedOut and makes no request.
func (m *Manager) Start(ctx context.Context) error {
	tok, err := m.store.Load(ctx)
	if err != nil {
		logger.Error("session restore failed", map[string]any{
			"error": err.Error(),
		})
		return err
	}
	if tok == "" {
		logger.Debug("no stored credential", nil)
		return nil
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	m.notices.reset()
	gen, attemptCtx := m.beginLocked(m.root, tok)
	m.spawnLocked(gen, attemptCtx, tok)
	m.publishLocked(nil)
	return nil
}

// Login stores a freshly issued credential and begins resolving it. Any
// attempt still running for a previous credential is cancelled and its
// result ignored.
func (m *Manager) Login(ctx context.Context, tok string) error {
	if tok == "" {
		return ErrNoCredential
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	// persist under the lock so a concurrent teardown cannot clear
	// the slot after we wrote the new value
	if err := m.store.Save(ctx, tok); err != nil {
		m.mu.Unlock()
		logger.Error("session persist failed", map[string]any{
			"error": err.Error(),
		})
		return err
	}
	m.notices.reset()
	gen, attemptCtx := m.beginLocked(m.root, tok)
	m.spawnLocked(gen, attemptCtx, tok)
	m.publishLocked(nil)
	return nil
}

// Logout forgets the credential in memory and in the durable slot.
// Memory is cleared even if the slot cannot be.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	m.supersedeLocked()
	m.state = Snapshot{Status: LoggedOut}
	m.notices.reset()
	err := m.store.Clear(ctx)
	m.publishLocked(nil)

	if err != nil {
		logger.Error("session clear failed", map[string]any{
			"error": err.Error(),
		})
	}
	return err
}

// Retry starts a background resolution attempt for the held credential.
func (m *Manager) Retry() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	tok := m.state.Token
	if tok == "" {
		m.mu.Unlock()
		return ErrNoCredential
	}
	gen, attemptCtx := m.beginLocked(m.root, tok)
	m.spawnLocked(gen, attemptCtx, tok)
	m.publishLocked(nil)
	return nil
}

// Refresh runs one resolution attempt for the held credential and
// waits for it. It returns ErrSuperseded if a newer attempt, login or
// logout overtook it; the result is then discarded.
func (m *Manager) Refresh(ctx context.Context) (client.Result, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}
	tok := m.state.Token
	if tok == "" {
		m.mu.Unlock()
		return nil, ErrNoCredential
	}
	gen, attemptCtx := m.beginLocked(ctx, tok)
	m.publishLocked(nil)

	res := m.api.Profile(attemptCtx, tok)
	if !m.finish(gen, tok, res) {
		return res, ErrSuperseded
	}
	return res, nil
}

// Reconnect retries resolution with backoff while the server is
// unreachable. It returns nil once the session is Authenticated, the
// terminal result as an error if the server answers otherwise, or the
// context error when ctx ends first.
func (m *Manager) Reconnect(ctx context.Context) error {
	return retry.Do(ctx, m.newBackoff(), func(ctx context.Context) error {
		res, err := m.Refresh(ctx)
		if err != nil {
			return err
		}
		switch r := res.(type) {
		case client.Resolved:
			return nil
		case client.Unavailable:
			logger.Debug("server unreachable, backing off", map[string]any{
				"error": r.Error(),
			})
			return retry.RetryableError(r)
		case client.Invalid:
			return r
		case client.Rejected:
			return r
		default:
			return nil
		}
	})
}

// Do runs an authenticated request with the held credential. If the
// request comes back with an invalid-credential rejection, the session
// is torn down exactly as if resolution had failed that way.
func (m *Manager) Do(ctx context.Context, fn func(ctx context.Context, token string) error) error {
	tok := m.Snapshot().Token
	if tok == "" {
		return ErrNoCredential
	}

	err := fn(ctx, tok)
	if invalid, ok := client.Classify(err).(client.Invalid); ok {
		m.mu.Lock()
		if m.state.Token != tok {
			// credential already replaced; nothing to tear down
			m.mu.Unlock()
			return err
		}
		m.supersedeLocked()
		m.invalidateLocked(invalid)
	}
	return err
}

// Close cancels in-flight attempts and waits for them to finish.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	m.supersedeLocked()
	m.mu.Unlock()

	m.shutdown()
	m.wg.Wait()
}

// beginLocked moves to Authenticating for tok under a new generation.
func (m *Manager) beginLocked(parent context.Context, tok string) (uint64, context.Context) {
	m.supersedeLocked()

	ctx, cancel := context.WithTimeout(parent, m.timeout)
	m.cancel = cancel

	class := m.state.Classification
	if m.state.Token != tok {
		class = ClassNone
	}
	m.state = Snapshot{
		Status:         Authenticating,
		Token:          tok,
		Classification: class,
	}
	return m.gen, ctx
}

// supersedeLocked invalidates the current attempt, if any.
func (m *Manager) supersedeLocked() {
	m.gen++
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}

func (m *Manager) spawnLocked(gen uint64, ctx context.Context, tok string) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		res := m.api.Profile(ctx, tok)
		m.finish(gen, tok, res)
	}()
}

// finish applies res if gen is still current. It reports whether the
// result was applied.
func (m *Manager) finish(gen uint64, tok string, res client.Result) bool {
	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		logger.Debug("discarding superseded resolution", map[string]any{
			"generation": gen,
		})
		return false
	}
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}

	switch r := res.(type) {
	case client.Resolved:
		m.state = Snapshot{
			Status:   Authenticated,
			Token:    tok,
			Identity: r.Identity,
		}
		m.notices.reset()
		m.publishLocked(nil)

	case client.Invalid:
		m.invalidateLocked(r)

	case client.Rejected:
		m.state = Snapshot{
			Status:         Degraded,
			Token:          tok,
			Classification: ClassRejected,
		}
		logger.Warn("profile request rejected", map[string]any{
			"status":  r.Status,
			"message": r.Message,
		})
		m.publishLocked(m.notices.raise(Notice{Kind: NoticeRejected, Message: r.Message}))

	default:
		// Unavailable, or nil from a misbehaving API: keep the credential
		m.state = Snapshot{
			Status:         Degraded,
			Token:          tok,
			Classification: ClassUnreachable,
		}
		fields := map[string]any{}
		if u, ok := r.(client.Unavailable); ok {
			fields["error"] = u.Error()
		}
		logger.Warn("server unreachable, keeping credential", fields)

		var notice *Notice
		if tok != "" {
			notice = m.notices.raise(Notice{Kind: NoticeServerUnreachable, Message: msgServerUnreachable})
		}
		m.publishLocked(notice)
	}
	return true
}

// invalidateLocked discards the credential after an explicit
// invalid-credential rejection. It releases m.mu.
func (m *Manager) invalidateLocked(r client.Invalid) {
	m.state = Snapshot{
		Status:         LoggedOut,
		Classification: ClassInvalid,
	}
	logger.Info("credential rejected by server, clearing", map[string]any{
		"message": r.Message,
	})

	if err := m.store.Clear(context.Background()); err != nil {
		logger.Error("session clear failed", map[string]any{
			"error": err.Error(),
		})
	}
	m.publishLocked(m.notices.raise(Notice{Kind: NoticeSessionExpired, Message: msgSessionExpired}))
}

// publishLocked releases m.mu and delivers the resulting event once
// every earlier event has been delivered.
func (m *Manager) publishLocked(notice *Notice) {
	m.seq++
	seq := m.seq
	ev := Event{Snapshot: m.state, Notice: notice}
	m.mu.Unlock()

	m.deliverMu.Lock()
	for m.delivered != seq-1 {
		m.turn.Wait()
	}
	m.deliverMu.Unlock()

	m.events.publish(ev)

	m.deliverMu.Lock()
	m.delivered = seq
	m.turn.Broadcast()
	m.deliverMu.Unlock()
}
