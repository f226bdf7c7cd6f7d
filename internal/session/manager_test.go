package session

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/optica/internal/apiclient"
	"github.com/Skotchmaster/optica/internal/models"
	"github.com/Skotchmaster/optica/internal/tokens"
	"github.com/Skotchmaster/optica/pkg/clock"
)

var testStart = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

type fakeAPI struct {
	issuer     *tokens.Issuer
	user       models.User
	password   string
	refreshErr error
	refreshes  int

	// run while the request is in flight
	duringLogin   func()
	duringRefresh func()
}

func newFakeAPI(clk clock.Clock, lifetime time.Duration) *fakeAPI {
	return &fakeAPI{
		issuer:   tokens.NewIssuer([]byte("test-secret"), lifetime).WithNow(clk.Now),
		user:     models.User{ID: uuid.New(), Email: "seller@tuvision.cl", Name: "Vendedor", Role: models.RoleSeller, IsActive: true},
		password: "secret123",
	}
}

func (f *fakeAPI) issue() (*apiclient.AuthResult, error) {
	tok, _, err := f.issuer.Issue(f.user.ID.String(), f.user.Email, string(f.user.Role))
	if err != nil {
		return nil, err
	}
	return &apiclient.AuthResult{AccessToken: tok, ExpiresIn: f.issuer.Lifetime(), User: f.user}, nil
}

func (f *fakeAPI) Login(_ context.Context, email, password string) (*apiclient.AuthResult, error) {
	if email != f.user.Email || password != f.password {
		return nil, apiclient.ErrInvalidCredentials
	}
	if f.duringLogin != nil {
		f.duringLogin()
	}
	return f.issue()
}

func (f *fakeAPI) Refresh(context.Context, string) (*apiclient.AuthResult, error) {
	f.refreshes++
	if hook := f.duringRefresh; hook != nil {
		f.duringRefresh = nil
		hook()
	}
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return f.issue()
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) observe(ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventType, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

func (r *recorder) find(t EventType) (Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ev := range r.events {
		if ev.Type == t {
			return ev, true
		}
	}
	return Event{}, false
}

type harness struct {
	clk   *clock.Fake
	api   *fakeAPI
	store Store
	rec   *recorder
	m     *Manager
}

func newHarness(t *testing.T, lifetime, idle time.Duration) *harness {
	t.Helper()
	clk := clock.NewFake(testStart)
	h := &harness{clk: clk, api: newFakeAPI(clk, lifetime), store: NewMemoryStore(), rec: &recorder{}}
	h.m = h.newManager(idle)
	return h
}

func (h *harness) newManager(idle time.Duration) *Manager {
	return New(Options{
		API:         h.api,
		Store:       h.store,
		Clock:       h.clk,
		Observer:    h.rec.observe,
		IdleTimeout: idle,
	})
}

func (h *harness) login(t *testing.T) Session {
	t.Helper()
	s, err := h.m.Login(context.Background(), h.api.user.Email, h.api.password)
	require.NoError(t, err)
	return s
}

func TestLogin_PersistsAndArmsTimers(t *testing.T) {
	h := newHarness(t, time.Hour, 0)

	s := h.login(t)
	assert.Equal(t, testStart.Add(time.Hour), s.ExpiresAt)
	assert.Equal(t, h.api.user.Email, s.User.Email)

	snap := h.m.Snapshot()
	assert.Equal(t, StateAuthenticated, snap.State)
	assert.Equal(t, ActivityActive, snap.Activity)
	assert.Equal(t, s.Token, h.m.Token())

	stored, err := h.store.Load()
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, s.Token, stored.Token)

	assert.Equal(t, []time.Duration{DefaultIdleTimeout, 55 * time.Minute, time.Hour}, h.clk.Deadlines())
	assert.Equal(t, []EventType{EventLoggedIn}, h.rec.types())
}

func TestLogin_InvalidCredentials(t *testing.T) {
	h := newHarness(t, time.Hour, 0)

	_, err := h.m.Login(context.Background(), h.api.user.Email, "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, StateAnonymous, h.m.Snapshot().State)
	assert.Zero(t, h.clk.PendingCount())

	stored, err := h.store.Load()
	require.NoError(t, err)
	assert.Nil(t, stored)
}

type failingStore struct{ MemoryStore }

func (s *failingStore) Save(Stored) error { return errors.New("disk full") }

func TestLogin_StoreFailureLeavesAnonymous(t *testing.T) {
	h := newHarness(t, time.Hour, 0)
	h.store = &failingStore{}
	h.m = h.newManager(0)

	_, err := h.m.Login(context.Background(), h.api.user.Email, h.api.password)
	require.Error(t, err)
	assert.Equal(t, StateAnonymous, h.m.Snapshot().State)
	assert.Empty(t, h.m.Token())
	assert.Zero(t, h.clk.PendingCount())
}

func TestTimersAreReplacedNotStacked(t *testing.T) {
	h := newHarness(t, time.Hour, 0)
	h.login(t)
	assert.Equal(t, 3, h.clk.PendingCount())

	for i := 0; i < 5; i++ {
		h.clk.Advance(time.Minute)
		_, err := h.m.Refresh(context.Background())
		require.NoError(t, err)
		h.m.RecordActivity(ActivityKeyboard)
		assert.Equal(t, 3, h.clk.PendingCount())
	}

	h.m.Logout(ReasonUser)
	assert.Zero(t, h.clk.PendingCount())
}

func TestExpiryWarningAndLogoutTiming(t *testing.T) {
	tests := []struct {
		name     string
		lifetime time.Duration
	}{
		{name: "shorter than the lead", lifetime: 10 * time.Second},
		{name: "just under the lead", lifetime: 4 * time.Minute},
		{name: "equal to the lead", lifetime: 5 * time.Minute},
		{name: "one hour", lifetime: time.Hour},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.lifetime, 24*time.Hour)
			h.login(t)

			warnAt := tt.lifetime - DefaultWarningLead
			if warnAt < 0 {
				warnAt = 0
			}
			if warnAt > 0 {
				h.clk.Advance(warnAt - time.Second)
				assert.Equal(t, StateAuthenticated, h.m.Snapshot().State)
				h.clk.Advance(time.Second)
			}

			warn, ok := h.rec.find(EventExpiryWarning)
			require.True(t, ok)
			assert.Equal(t, testStart.Add(warnAt), warn.At)
			snap := h.m.Snapshot()
			assert.Equal(t, StateWarning, snap.State)
			require.NotNil(t, snap.Session)
			assert.True(t, snap.Session.WarningFired)

			h.clk.Advance(tt.lifetime - warnAt - time.Second)
			assert.Equal(t, StateWarning, h.m.Snapshot().State)
			h.clk.Advance(time.Second)

			out, ok := h.rec.find(EventLoggedOut)
			require.True(t, ok)
			assert.Equal(t, ReasonExpired, out.Reason)
			assert.Equal(t, testStart.Add(tt.lifetime), out.At)

			snap = h.m.Snapshot()
			assert.Equal(t, StateAnonymous, snap.State)
			assert.Equal(t, ActivityLoggedOut, snap.Activity)
			assert.Equal(t, ReasonExpired, snap.LastLogout)
			assert.Nil(t, snap.Session)
			assert.Zero(t, h.clk.PendingCount())
		})
	}
}

func TestDismissWarningKeepsLogout(t *testing.T) {
	h := newHarness(t, 10*time.Minute, 24*time.Hour)
	h.login(t)

	h.clk.Advance(5 * time.Minute)
	require.Equal(t, StateWarning, h.m.Snapshot().State)

	h.m.DismissWarning()
	assert.Equal(t, StateAuthenticated, h.m.Snapshot().State)

	h.clk.Advance(5 * time.Minute)
	assert.Equal(t, StateAnonymous, h.m.Snapshot().State)
	assert.Equal(t, ReasonExpired, h.m.Snapshot().LastLogout)
	assert.Contains(t, h.rec.types(), EventWarningDismissed)
}

func TestInactivityLogout(t *testing.T) {
	h := newHarness(t, 8*time.Hour, 0)
	h.login(t)

	h.clk.Advance(DefaultIdleTimeout)
	snap := h.m.Snapshot()
	assert.Equal(t, ActivityWarning, snap.Activity)
	require.NotNil(t, snap.Session)
	assert.True(t, snap.Session.InactivityFired)

	h.clk.Advance(DefaultGrace - time.Second)
	assert.Equal(t, ActivityWarning, h.m.Snapshot().Activity)

	h.clk.Advance(time.Second)
	snap = h.m.Snapshot()
	assert.Equal(t, StateAnonymous, snap.State)
	assert.Equal(t, ActivityLoggedOut, snap.Activity)
	assert.Equal(t, ReasonInactivity, snap.LastLogout)
	assert.Zero(t, h.clk.PendingCount())

	stored, err := h.store.Load()
	require.NoError(t, err)
	assert.Nil(t, stored)

	assert.Equal(t, []EventType{
		EventLoggedIn,
		EventInactivityWarning,
		EventLoggedOut,
		EventRedirectToLogin,
	}, h.rec.types())
}

func TestActivityResetsIdleCountdown(t *testing.T) {
	h := newHarness(t, 8*time.Hour, 0)
	h.login(t)

	h.clk.Advance(14 * time.Minute)
	h.m.RecordActivity(ActivityPointer)
	h.clk.Advance(14 * time.Minute)
	assert.Equal(t, ActivityActive, h.m.Snapshot().Activity)

	h.m.RecordActivity(ActivityKind("resize"))
	h.clk.Advance(time.Minute)
	assert.Equal(t, ActivityWarning, h.m.Snapshot().Activity)
}

func TestExtendDuringInactivityWarning(t *testing.T) {
	tests := []struct {
		name   string
		extend func(t *testing.T, m *Manager)
	}{
		{name: "explicit extend", extend: func(t *testing.T, m *Manager) { require.NoError(t, m.ExtendSession()) }},
		{name: "activity", extend: func(_ *testing.T, m *Manager) { m.RecordActivity(ActivityTouch) }},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, 8*time.Hour, 0)
			h.login(t)

			h.clk.Advance(DefaultIdleTimeout + 30*time.Second)
			require.Equal(t, ActivityWarning, h.m.Snapshot().Activity)

			tt.extend(t, h.m)
			assert.Equal(t, ActivityActive, h.m.Snapshot().Activity)

			h.clk.Advance(DefaultGrace)
			assert.Equal(t, StateAuthenticated, h.m.Snapshot().State)
			assert.Contains(t, h.rec.types(), EventSessionExtended)
		})
	}
}

func TestExtendWithoutSession(t *testing.T) {
	h := newHarness(t, time.Hour, 0)
	assert.ErrorIs(t, h.m.ExtendSession(), ErrNoSession)
}

func TestRefreshReplacesExpiryDeadline(t *testing.T) {
	h := newHarness(t, 10*time.Minute, 24*time.Hour)
	first := h.login(t)

	h.clk.Advance(6 * time.Minute)
	require.Equal(t, StateWarning, h.m.Snapshot().State)

	refreshed, err := h.m.Refresh(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, first.Token, refreshed.Token)
	assert.Equal(t, testStart.Add(16*time.Minute), refreshed.ExpiresAt)
	assert.False(t, refreshed.WarningFired)
	assert.Equal(t, StateAuthenticated, h.m.Snapshot().State)

	// the original deadline passes without effect
	h.clk.Advance(4 * time.Minute)
	assert.Equal(t, StateAuthenticated, h.m.Snapshot().State)

	h.clk.Advance(6 * time.Minute)
	assert.Equal(t, StateAnonymous, h.m.Snapshot().State)
	assert.Equal(t, ReasonExpired, h.m.Snapshot().LastLogout)

	stored, err := h.store.Load()
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestRefreshFailureLogsOut(t *testing.T) {
	h := newHarness(t, time.Hour, 0)
	h.login(t)
	h.api.refreshErr = &apiclient.APIError{Status: 401, Message: "unauthorized"}

	_, err := h.m.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)

	snap := h.m.Snapshot()
	assert.Equal(t, StateAnonymous, snap.State)
	assert.Equal(t, ReasonRefreshFailed, snap.LastLogout)
	assert.Zero(t, h.clk.PendingCount())

	_, err = h.m.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrNoSession)
	assert.Equal(t, 1, h.api.refreshes)
}

func TestLogoutIsIdempotent(t *testing.T) {
	h := newHarness(t, time.Hour, 0)
	h.login(t)

	h.m.Logout(ReasonUser)
	h.m.Logout(ReasonInvalidToken)

	assert.Equal(t, ReasonUser, h.m.Snapshot().LastLogout)
	assert.Equal(t, []EventType{EventLoggedIn, EventLoggedOut, EventRedirectToLogin}, h.rec.types())
}

func TestRestoreAcrossRestart(t *testing.T) {
	clk := clock.NewFake(testStart)
	api := newFakeAPI(clk, time.Hour)
	store := &FileStore{Path: filepath.Join(t.TempDir(), "optica", "session.json")}

	first := New(Options{API: api, Store: store, Clock: clk, IdleTimeout: 24 * time.Hour})
	s, err := first.Login(context.Background(), api.user.Email, api.password)
	require.NoError(t, err)
	first.Close()
	assert.Zero(t, clk.PendingCount())

	clk.Advance(20 * time.Minute)

	rec := &recorder{}
	second := New(Options{API: api, Store: store, Clock: clk, Observer: rec.observe, IdleTimeout: 24 * time.Hour})
	require.NoError(t, second.Init(context.Background()))

	snap := second.Snapshot()
	assert.Equal(t, StateAuthenticated, snap.State)
	require.NotNil(t, snap.Session)
	assert.Equal(t, s.Token, snap.Session.Token)
	assert.Equal(t, api.user.Email, snap.Session.User.Email)
	assert.Equal(t, []EventType{EventRestored}, rec.types())

	// warning stays anchored to the token, not the restart
	assert.Equal(t, []time.Duration{35 * time.Minute, 40 * time.Minute, 24 * time.Hour}, clk.Deadlines())
}

func TestInitWithBadStoredSession(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{name: "malformed token", token: "not-a-jwt"},
		{name: "expired token", token: ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, time.Minute, 0)
			token := tt.token
			if token == "" {
				res, err := h.api.issue()
				require.NoError(t, err)
				token = res.AccessToken
				h.clk.Advance(2 * time.Minute)
			}
			require.NoError(t, h.store.Save(Stored{Token: token, User: h.api.user}))

			require.NoError(t, h.m.Init(context.Background()))
			assert.Equal(t, StateAnonymous, h.m.Snapshot().State)
			assert.Empty(t, h.m.Token())
			assert.Zero(t, h.clk.PendingCount())

			stored, err := h.store.Load()
			require.NoError(t, err)
			assert.Nil(t, stored)
		})
	}
}

func TestClosedManager(t *testing.T) {
	h := newHarness(t, time.Hour, 0)
	h.login(t)
	h.m.Close()

	_, err := h.m.Login(context.Background(), h.api.user.Email, h.api.password)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, h.m.ExtendSession(), ErrClosed)
	assert.Zero(t, h.clk.PendingCount())
}

func TestLogoutDuringRefreshIsNotPersisted(t *testing.T) {
	clk := clock.NewFake(testStart)
	api := newFakeAPI(clk, time.Hour)
	store := NewFileStore(filepath.Join(t.TempDir(), "session.json"))

	m := New(Options{API: api, Store: store, Clock: clk})
	_, err := m.Login(context.Background(), api.user.Email, api.password)
	require.NoError(t, err)

	api.duringRefresh = func() { m.Logout(ReasonInactivity) }
	_, err = m.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)

	snap := m.Snapshot()
	assert.Equal(t, StateAnonymous, snap.State)
	assert.Equal(t, ReasonInactivity, snap.LastLogout)
	assert.Zero(t, clk.PendingCount())

	stored, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, stored)

	m.Close()
	next := New(Options{API: api, Store: store, Clock: clk})
	require.NoError(t, next.Init(context.Background()))
	assert.Equal(t, StateAnonymous, next.Snapshot().State)
}

func TestCloseDuringLoginIsNotPersisted(t *testing.T) {
	h := newHarness(t, time.Hour, 0)
	h.api.duringLogin = h.m.Close

	_, err := h.m.Login(context.Background(), h.api.user.Email, h.api.password)
	assert.ErrorIs(t, err, ErrClosed)

	stored, err := h.store.Load()
	require.NoError(t, err)
	assert.Nil(t, stored)
	assert.Zero(t, h.clk.PendingCount())
}

func TestFailedRefreshKeepsNewerSession(t *testing.T) {
	h := newHarness(t, time.Hour, 0)
	h.login(t)

	var relogged Session
	h.api.refreshErr = errors.New("connection reset")
	h.api.duringRefresh = func() {
		h.m.Logout(ReasonUser)
		h.clk.Advance(time.Minute)
		relogged = h.login(t)
	}

	_, err := h.m.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)

	snap := h.m.Snapshot()
	assert.Equal(t, StateAuthenticated, snap.State)
	require.NotNil(t, snap.Session)
	assert.Equal(t, relogged.Token, snap.Session.Token)

	stored, err := h.store.Load()
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, relogged.Token, stored.Token)
}
