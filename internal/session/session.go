// Package session owns the authenticated identity of the console and its
// token pair.
//
// Login and refresh exchanges are serialized by one mutex, concurrent Refresh
// calls share a single exchange, and every logout bumps a generation counter
// so that an exchange finishing after it is discarded.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"affconsole/internal/gateway"
	"affconsole/internal/i18n"
	"affconsole/internal/models"
	"affconsole/internal/notify"
	"affconsole/internal/tokenstore"
)

var (
	ErrNoSession  = errors.New("no session")
	ErrSuperseded = errors.New("session changed while logging in")
)

// Authenticator performs the token exchanges. *gateway.Client implements it.
type Authenticator interface {
	Login(ctx context.Context, creds models.Credentials) (models.LoginResult, error)
	RefreshToken(ctx context.Context, refreshToken string) (models.RefreshResult, error)
	Logout(ctx context.Context, accessToken string) error
}

type State int

const (
	Unauthenticated State = iota
	Authenticating
	Authenticated
	Refreshing
)

func (s State) String() string {
	switch s {
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	case Refreshing:
		return "refreshing"
	default:
		return "unauthenticated"
	}
}

// Snapshot is a read-only view of the session handed to observers.
type Snapshot struct {
	State State
	User  *models.User
}

func (s Snapshot) IsLoading() bool {
	return s.State == Authenticating || s.State == Refreshing
}

type Options struct {
	// RefreshInterval is the period of the silent refresh. Zero or less
	// disables the timer.
	RefreshInterval time.Duration
	Store           tokenstore.Store
	Notifier        notify.Notifier
	Messages        *i18n.Localizer
	Logger          zerolog.Logger
}

type Manager struct {
	auth     Authenticator
	store    tokenstore.Store
	notifier notify.Notifier
	msgs     *i18n.Localizer
	log      zerolog.Logger
	interval time.Duration

	exchange sync.Mutex
	flight   singleflight.Group

	mu           sync.RWMutex
	state        State
	accessToken  string
	refreshToken string
	user         *models.User
	gen          uint64
	timer        *cron.Cron
	closed       bool
	observers    map[int]func(Snapshot)
	nextObserver int
}

func NewManager(auth Authenticator, opts Options) *Manager {
	if opts.Store == nil {
		opts.Store = tokenstore.NewMemory()
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Discard
	}
	if opts.Messages == nil {
		opts.Messages = i18n.New(i18n.DefaultLanguage)
	}
	return &Manager{
		auth:      auth,
		store:     opts.Store,
		notifier:  opts.Notifier,
		msgs:      opts.Messages,
		log:       opts.Logger.With().Str("component", "session").Logger(),
		interval:  opts.RefreshInterval,
		observers: make(map[int]func(Snapshot)),
	}
}

// Login exchanges credentials for a token pair. On failure the previous
// state is kept.
func (m *Manager) Login(ctx context.Context, creds models.Credentials) (models.User, error) {
	m.exchange.Lock()
	defer m.exchange.Unlock()

	m.mu.Lock()
	prev := m.state
	gen := m.gen
	m.state = Authenticating
	m.mu.Unlock()
	m.emit()

	res, err := m.auth.Login(ctx, creds)
	if err != nil {
		m.mu.Lock()
		if m.gen == gen && m.state == Authenticating {
			m.state = prev
		}
		m.mu.Unlock()
		m.emit()

		m.log.Warn().Str("username", creds.Username).Str("reason", string(gateway.KindOf(err))).Msg("login failed")
		m.notifier.Notify(notify.LevelError, m.msgs.T("auth.loginFailed", gateway.UserMessage(err)))
		return models.User{}, fmt.Errorf("login: %w", err)
	}

	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		if err := m.auth.Logout(ctx, res.Token); err != nil {
			m.log.Debug().Err(err).Msg("logout of superseded login failed")
		}
		return models.User{}, ErrSuperseded
	}
	user := res.User
	m.accessToken = res.Token
	m.refreshToken = res.RefreshToken
	m.user = &user
	m.state = Authenticated
	m.persistLocked()
	m.startTimerLocked()
	m.mu.Unlock()
	m.emit()

	m.log.Info().Str("user_id", user.ID).Str("role", string(user.Role)).Msg("logged in")
	m.notifier.Notify(notify.LevelSuccess, m.msgs.T("auth.welcome", user.Name))
	return user, nil
}

type refreshOutcome int

const (
	refreshed refreshOutcome = iota
	refreshFailed
	refreshSkipped
)

// Refresh exchanges the refresh token for a new access token. The refresh
// token itself is kept. Any failure clears the session and returns false.
// Concurrent callers share one exchange.
func (m *Manager) Refresh(ctx context.Context) bool {
	return m.sharedRefresh(ctx) == refreshed
}

func (m *Manager) sharedRefresh(ctx context.Context) refreshOutcome {
	v, _, _ := m.flight.Do("refresh", func() (any, error) {
		return m.refresh(ctx), nil
	})
	return v.(refreshOutcome)
}

func (m *Manager) refresh(ctx context.Context) refreshOutcome {
	m.exchange.Lock()
	defer m.exchange.Unlock()

	m.mu.Lock()
	if m.refreshToken == "" {
		m.mu.Unlock()
		return refreshSkipped
	}
	token := m.refreshToken
	gen := m.gen
	m.state = Refreshing
	m.mu.Unlock()
	m.emit()

	res, err := m.auth.RefreshToken(ctx, token)

	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		return refreshSkipped
	}
	if err != nil {
		m.clearLocked()
		m.mu.Unlock()
		m.emit()
		m.log.Warn().Str("reason", string(gateway.KindOf(err))).Msg("token refresh failed")
		return refreshFailed
	}

	user := res.User
	m.accessToken = res.Token
	if user.ID != "" {
		m.user = &user
	}
	m.state = Authenticated
	m.persistLocked()
	if m.timer == nil {
		m.startTimerLocked()
	}
	m.mu.Unlock()
	m.emit()

	m.log.Debug().Msg("access token refreshed")
	return refreshed
}

// Logout clears the session and tells the backend, ignoring its answer.
// Calling it without a session is a no-op apart from the notification.
func (m *Manager) Logout(ctx context.Context) {
	m.logout(ctx, notify.LevelSuccess, "auth.logoutSuccess")
}

// Expire drops a session the backend no longer accepts.
func (m *Manager) Expire(ctx context.Context) {
	m.mu.Lock()
	m.clearLocked()
	m.mu.Unlock()
	m.emit()

	m.log.Info().Msg("session expired")
	m.notifier.Notify(notify.LevelError, m.msgs.T("auth.sessionExpired"))
}

func (m *Manager) logout(ctx context.Context, level notify.Level, key string) {
	m.mu.Lock()
	token := m.accessToken
	m.clearLocked()
	m.mu.Unlock()
	m.emit()

	if token != "" {
		if err := m.auth.Logout(ctx, token); err != nil {
			m.log.Debug().Err(err).Msg("backend logout failed")
		}
	}
	m.notifier.Notify(level, m.msgs.T(key))
}

// Restore loads a persisted token pair and refreshes it once to obtain the
// user record.
func (m *Manager) Restore(ctx context.Context) (models.User, error) {
	tokens, err := m.store.Load()
	if err != nil {
		if errors.Is(err, tokenstore.ErrEmpty) {
			return models.User{}, ErrNoSession
		}
		m.log.Warn().Err(err).Msg("stored session unreadable")
		_ = m.store.Clear()
		return models.User{}, ErrNoSession
	}

	m.mu.Lock()
	if m.user == nil {
		m.accessToken = tokens.AccessToken
		m.refreshToken = tokens.RefreshToken
	}
	m.mu.Unlock()

	if m.sharedRefresh(ctx) != refreshed {
		return models.User{}, ErrNoSession
	}
	if u := m.CurrentUser(); u != nil {
		return *u, nil
	}
	return models.User{}, ErrNoSession
}

// Close stops the refresh timer and waits for a tick that is already
// running. The session itself is left intact.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	timer := m.timer
	m.timer = nil
	m.mu.Unlock()

	if timer != nil {
		<-timer.Stop().Done()
	}
}

func (m *Manager) AccessToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.accessToken
}

func (m *Manager) HasRefreshToken() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.refreshToken != ""
}

func (m *Manager) CurrentUser() *models.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return nil
	}
	u := *m.user
	return &u
}

func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

func (m *Manager) IsLoading() bool {
	return m.Snapshot().IsLoading()
}

func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked()
}

// OnChange registers fn for every state change and returns a function that
// removes it.
func (m *Manager) OnChange(fn func(Snapshot)) func() {
	m.mu.Lock()
	id := m.nextObserver
	m.nextObserver++
	m.observers[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.observers, id)
		m.mu.Unlock()
	}
}

func (m *Manager) snapshotLocked() Snapshot {
	s := Snapshot{State: m.state}
	if m.user != nil {
		u := *m.user
		s.User = &u
	}
	return s
}

func (m *Manager) emit() {
	m.mu.RLock()
	snap := m.snapshotLocked()
	observers := make([]func(Snapshot), 0, len(m.observers))
	for _, fn := range m.observers {
		observers = append(observers, fn)
	}
	m.mu.RUnlock()

	for _, fn := range observers {
		fn(snap)
	}
}

func (m *Manager) clearLocked() {
	m.gen++
	m.accessToken = ""
	m.refreshToken = ""
	m.user = nil
	m.state = Unauthenticated
	m.stopTimerLocked()
	if err := m.store.Clear(); err != nil {
		m.log.Warn().Err(err).Msg("clear stored session failed")
	}
}

func (m *Manager) persistLocked() {
	err := m.store.Save(tokenstore.Tokens{AccessToken: m.accessToken, RefreshToken: m.refreshToken})
	if err != nil {
		m.log.Warn().Err(err).Msg("persist session failed")
	}
}
