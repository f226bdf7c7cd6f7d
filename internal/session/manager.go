// Package session owns the client side token lifecycle: persistence, expiry warning and
// forced logout, and an independent inactivity timeout.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/optica/internal/apiclient"
	"github.com/Skotchmaster/optica/internal/logging"
	"github.com/Skotchmaster/optica/internal/models"
	"github.com/Skotchmaster/optica/pkg/clock"
)

const (
	DefaultWarningLead = 5 * time.Minute
	DefaultIdleTimeout = 15 * time.Minute
	DefaultGrace       = 60 * time.Second
)

var (
	ErrInvalidCredentials = apiclient.ErrInvalidCredentials
	ErrUnauthorized       = errors.New("session unauthorized")
	ErrNoSession          = errors.New("no active session")
	ErrClosed             = errors.New("session manager closed")
)

// State is the expiry axis.
type State string

const (
	StateAnonymous     State = "anonymous"
	StateAuthenticated State = "authenticated"
	StateWarning       State = "warning"
	StateExpired       State = "expired"
)

// Activity is the inactivity axis.
type Activity string

const (
	ActivityActive    Activity = "active"
	ActivityWarning   Activity = "inactivity_warning"
	ActivityLoggedOut Activity = "logged_out"
)

type Reason string

const (
	ReasonUser          Reason = "user"
	ReasonExpired       Reason = "expired"
	ReasonInactivity    Reason = "inactivity"
	ReasonRefreshFailed Reason = "refresh_failed"
	ReasonInvalidToken  Reason = "invalid_token"
)

type ActivityKind string

const (
	ActivityPointer  ActivityKind = "pointer"
	ActivityKeyboard ActivityKind = "keyboard"
	ActivityScroll   ActivityKind = "scroll"
	ActivityTouch    ActivityKind = "touch"
)

func (k ActivityKind) Valid() bool {
	switch k {
	case ActivityPointer, ActivityKeyboard, ActivityScroll, ActivityTouch:
		return true
	}
	return false
}

type EventType string

const (
	EventLoggedIn          EventType = "logged_in"
	EventRestored          EventType = "restored"
	EventRefreshed         EventType = "refreshed"
	EventExpiryWarning     EventType = "expiry_warning"
	EventWarningDismissed  EventType = "warning_dismissed"
	EventExpired           EventType = "expired"
	EventInactivityWarning EventType = "inactivity_warning"
	EventSessionExtended   EventType = "session_extended"
	EventLoggedOut         EventType = "logged_out"
	EventRedirectToLogin   EventType = "redirect_to_login"
)

type Event struct {
	Type   EventType
	Reason Reason
	At     time.Time
}

type Session struct {
	Token           string
	User            models.User
	ExpiresAt       time.Time
	WarningFired    bool
	InactivityFired bool
}

type Snapshot struct {
	State      State
	Activity   Activity
	Session    *Session
	LastLogout Reason
}

// Authenticator is the part of the API the manager talks to.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*apiclient.AuthResult, error)
	Refresh(ctx context.Context, token string) (*apiclient.AuthResult, error)
}

type Options struct {
	API      Authenticator
	Store    Store
	Clock    clock.Clock
	Observer func(Event)
	Logger   *slog.Logger

	WarningLead time.Duration
	IdleTimeout time.Duration
	Grace       time.Duration
}

type Manager struct {
	api      Authenticator
	store    Store
	clock    clock.Clock
	observer func(Event)
	log      *slog.Logger

	warningLead time.Duration
	idleTimeout time.Duration
	grace       time.Duration

	mu         sync.Mutex
	closed     bool
	state      State
	activity   Activity
	sess       *Session
	lastLogout Reason

	// one generation per axis; a callback whose generation is stale does nothing
	expiryGen   uint64
	warnTimer   clock.Timer
	logoutTimer clock.Timer

	idleGen   uint64
	idleTimer clock.Timer
}

func New(opts Options) *Manager {
	m := &Manager{
		api:         opts.API,
		store:       opts.Store,
		clock:       opts.Clock,
		observer:    opts.Observer,
		log:         opts.Logger,
		warningLead: opts.WarningLead,
		idleTimeout: opts.IdleTimeout,
		grace:       opts.Grace,
		state:       StateAnonymous,
		activity:    ActivityLoggedOut,
	}
	if m.store == nil {
		m.store = NewMemoryStore()
	}
	if m.clock == nil {
		m.clock = clock.Real{}
	}
	if m.log == nil {
		m.log = logging.Discard()
	}
	if m.warningLead <= 0 {
		m.warningLead = DefaultWarningLead
	}
	if m.idleTimeout <= 0 {
		m.idleTimeout = DefaultIdleTimeout
	}
	if m.grace <= 0 {
		m.grace = DefaultGrace
	}
	return m
}

// Init restores a persisted session. A missing or unreadable one leaves the manager anonymous.
func (m *Manager) Init(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	stored, err := m.store.Load()
	if err == nil && stored != nil && stored.Token != "" {
		var exp time.Time
		if exp, err = TokenExpiry(stored.Token); err == nil {
			m.mu.Lock()
			if m.closed {
				m.mu.Unlock()
				return ErrClosed
			}
			m.sess = &Session{Token: stored.Token, User: stored.User, ExpiresAt: exp}
			evs := []Event{m.event(EventRestored, "")}
			evs = append(evs, m.armLocked()...)
			m.mu.Unlock()
			m.emit(evs)
			return nil
		}
	}

	if err != nil {
		m.log.Warn("session_restore_failed", "error", err)
		if cerr := m.store.Clear(); cerr != nil {
			m.log.Warn("session_clear_failed", "error", cerr)
		}
	}
	return nil
}

// Close cancels timers but keeps the stored session so the next process can restore it.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelExpiryLocked()
	m.cancelIdleLocked()
	m.closed = true
}

func (m *Manager) Login(ctx context.Context, email, password string) (Session, error) {
	if m.isClosed() {
		return Session{}, ErrClosed
	}

	res, err := m.api.Login(ctx, email, password)
	if err != nil {
		if errors.Is(err, apiclient.ErrInvalidCredentials) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, fmt.Errorf("login: %w", err)
	}
	exp, err := TokenExpiry(res.AccessToken)
	if err != nil {
		return Session{}, fmt.Errorf("login: %w", err)
	}

	// persisted under the lock so a concurrent Close or Logout cannot be overwritten
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return Session{}, ErrClosed
	}
	if err := m.store.Save(Stored{Token: res.AccessToken, User: res.User}); err != nil {
		m.mu.Unlock()
		return Session{}, fmt.Errorf("persist session: %w", err)
	}
	m.sess = &Session{Token: res.AccessToken, User: res.User, ExpiresAt: exp}
	evs := []Event{m.event(EventLoggedIn, "")}
	evs = append(evs, m.armLocked()...)
	out := m.currentLocked()
	m.mu.Unlock()

	m.emit(evs)
	if out == nil {
		return Session{}, fmt.Errorf("%w: token already expired", ErrUnauthorized)
	}
	return *out, nil
}

// Refresh is fail closed: any error logs the session out and wraps ErrUnauthorized.
func (m *Manager) Refresh(ctx context.Context) (Session, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return Session{}, ErrClosed
	}
	if m.sess == nil {
		m.mu.Unlock()
		return Session{}, ErrNoSession
	}
	token := m.sess.Token
	m.mu.Unlock()

	res, err := m.api.Refresh(ctx, token)
	var exp time.Time
	if err == nil {
		exp, err = TokenExpiry(res.AccessToken)
	}
	if err != nil {
		return Session{}, m.refreshFailed(token, err)
	}

	m.mu.Lock()
	if m.closed || m.sess == nil || m.sess.Token != token {
		// logged out, closed or replaced while the request was in flight
		m.mu.Unlock()
		return Session{}, fmt.Errorf("%w: session changed during refresh", ErrUnauthorized)
	}
	user := m.sess.User
	if res.User.ID != uuid.Nil {
		user = res.User
	}
	if err := m.store.Save(Stored{Token: res.AccessToken, User: user}); err != nil {
		m.log.Warn("session_refresh_failed", "error", err)
		evs := m.logoutLocked(ReasonRefreshFailed)
		m.mu.Unlock()
		m.emit(evs)
		return Session{}, fmt.Errorf("%w: persist session: %w", ErrUnauthorized, err)
	}
	inactivity := m.sess.InactivityFired
	m.sess = &Session{Token: res.AccessToken, User: user, ExpiresAt: exp, InactivityFired: inactivity}
	evs := []Event{m.event(EventRefreshed, "")}
	evs = append(evs, m.armExpiryLocked()...)
	out := m.currentLocked()
	m.mu.Unlock()

	m.emit(evs)
	if out == nil {
		return Session{}, fmt.Errorf("%w: refreshed token already expired", ErrUnauthorized)
	}
	return *out, nil
}

// refreshFailed logs out only if the session that started the refresh is still current.
func (m *Manager) refreshFailed(token string, cause error) error {
	m.log.Warn("session_refresh_failed", "error", cause)
	m.mu.Lock()
	var evs []Event
	if m.sess != nil && m.sess.Token == token {
		evs = m.logoutLocked(ReasonRefreshFailed)
	}
	m.mu.Unlock()
	m.emit(evs)
	return fmt.Errorf("%w: %w", ErrUnauthorized, cause)
}

func (m *Manager) Logout(reason Reason) {
	if reason == "" {
		reason = ReasonUser
	}
	m.mu.Lock()
	evs := m.logoutLocked(reason)
	m.mu.Unlock()
	m.emit(evs)
}

// DismissWarning hides the expiry warning. The forced logout stays scheduled.
func (m *Manager) DismissWarning() {
	m.mu.Lock()
	if m.state != StateWarning {
		m.mu.Unlock()
		return
	}
	m.state = StateAuthenticated
	evs := []Event{m.event(EventWarningDismissed, "")}
	m.mu.Unlock()
	m.emit(evs)
}

// RecordActivity restarts the idle countdown. During an inactivity warning it counts as an extension.
func (m *Manager) RecordActivity(kind ActivityKind) {
	if !kind.Valid() {
		return
	}
	m.mu.Lock()
	if m.sess == nil || m.closed {
		m.mu.Unlock()
		return
	}
	var evs []Event
	if m.activity == ActivityWarning {
		evs = append(evs, m.event(EventSessionExtended, ""))
	}
	m.armIdleLocked()
	m.mu.Unlock()
	m.emit(evs)
}

func (m *Manager) ExtendSession() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if m.sess == nil {
		m.mu.Unlock()
		return ErrNoSession
	}
	m.armIdleLocked()
	evs := []Event{m.event(EventSessionExtended, "")}
	m.mu.Unlock()
	m.emit(evs)
	return nil
}

func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		State:      m.state,
		Activity:   m.activity,
		Session:    m.currentLocked(),
		LastLogout: m.lastLogout,
	}
}

// Token is the current bearer token, empty when anonymous. Suitable as an apiclient token source.
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sess == nil {
		return ""
	}
	return m.sess.Token
}

func (m *Manager) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *Manager) currentLocked() *Session {
	if m.sess == nil {
		return nil
	}
	cp := *m.sess
	return &cp
}

func (m *Manager) armLocked() []Event {
	evs := m.armExpiryLocked()
	if m.sess != nil {
		m.armIdleLocked()
	}
	return evs
}

func (m *Manager) armExpiryLocked() []Event {
	m.cancelExpiryLocked()

	left := m.sess.ExpiresAt.Sub(m.clock.Now())
	if left <= 0 {
		return m.logoutLocked(ReasonExpired)
	}

	m.state = StateAuthenticated
	m.sess.WarningFired = false
	gen := m.expiryGen

	var evs []Event
	if warnIn := left - m.warningLead; warnIn > 0 {
		m.warnTimer = m.clock.AfterFunc(warnIn, func() { m.onExpiryWarning(gen) })
	} else {
		evs = append(evs, m.warnLocked())
	}
	m.logoutTimer = m.clock.AfterFunc(left, func() { m.onExpired(gen) })
	return evs
}

func (m *Manager) cancelExpiryLocked() {
	m.expiryGen++
	if m.warnTimer != nil {
		m.warnTimer.Stop()
		m.warnTimer = nil
	}
	if m.logoutTimer != nil {
		m.logoutTimer.Stop()
		m.logoutTimer = nil
	}
}

func (m *Manager) warnLocked() Event {
	m.state = StateWarning
	m.sess.WarningFired = true
	return m.event(EventExpiryWarning, "")
}

func (m *Manager) onExpiryWarning(gen uint64) {
	m.mu.Lock()
	if gen != m.expiryGen || m.sess == nil {
		m.mu.Unlock()
		return
	}
	m.warnTimer = nil
	evs := []Event{m.warnLocked()}
	m.mu.Unlock()
	m.emit(evs)
}

func (m *Manager) onExpired(gen uint64) {
	m.mu.Lock()
	if gen != m.expiryGen || m.sess == nil {
		m.mu.Unlock()
		return
	}
	m.logoutTimer = nil
	m.state = StateExpired
	evs := []Event{m.event(EventExpired, ReasonExpired)}
	evs = append(evs, m.logoutLocked(ReasonExpired)...)
	m.mu.Unlock()
	m.emit(evs)
}

func (m *Manager) armIdleLocked() {
	m.cancelIdleLocked()
	m.activity = ActivityActive
	gen := m.idleGen
	m.idleTimer = m.clock.AfterFunc(m.idleTimeout, func() { m.onIdle(gen) })
}

func (m *Manager) cancelIdleLocked() {
	m.idleGen++
	if m.idleTimer != nil {
		m.idleTimer.Stop()
		m.idleTimer = nil
	}
}

func (m *Manager) onIdle(gen uint64) {
	m.mu.Lock()
	if gen != m.idleGen || m.sess == nil {
		m.mu.Unlock()
		return
	}
	m.activity = ActivityWarning
	m.sess.InactivityFired = true
	// the grace timer replaces the idle timer on the same generation
	m.idleTimer = m.clock.AfterFunc(m.grace, func() { m.onGraceElapsed(gen) })
	evs := []Event{m.event(EventInactivityWarning, ReasonInactivity)}
	m.mu.Unlock()
	m.emit(evs)
}

func (m *Manager) onGraceElapsed(gen uint64) {
	m.mu.Lock()
	if gen != m.idleGen || m.sess == nil || m.activity != ActivityWarning {
		m.mu.Unlock()
		return
	}
	m.idleTimer = nil
	evs := m.logoutLocked(ReasonInactivity)
	m.mu.Unlock()
	m.emit(evs)
}

func (m *Manager) logoutLocked(reason Reason) []Event {
	m.cancelExpiryLocked()
	m.cancelIdleLocked()
	if m.sess == nil && m.state == StateAnonymous {
		return nil
	}

	if err := m.store.Clear(); err != nil {
		m.log.Warn("session_clear_failed", "error", err)
	}
	m.sess = nil
	m.state = StateAnonymous
	m.activity = ActivityLoggedOut
	m.lastLogout = reason
	m.log.Info("session_logged_out", "reason", reason)

	return []Event{
		m.event(EventLoggedOut, reason),
		m.event(EventRedirectToLogin, reason),
	}
}

func (m *Manager) event(t EventType, reason Reason) Event {
	return Event{Type: t, Reason: reason, At: m.clock.Now()}
}

func (m *Manager) emit(evs []Event) {
	if m.observer == nil {
		return
	}
	for _, ev := range evs {
		m.observer(ev)
	}
}
