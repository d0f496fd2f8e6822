package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/crewbase/crewbase/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fakeProvider struct {
	mu           sync.Mutex
	refreshCalls int
	signOutCalls int
	refreshErr   error
	pair         TokenPair
}

func (p *fakeProvider) Refresh(_ context.Context, _ string) (TokenPair, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refreshCalls++
	if p.refreshErr != nil {
		return TokenPair{}, p.refreshErr
	}
	return p.pair, nil
}

func (p *fakeProvider) SignOut(_ context.Context, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.signOutCalls++
	return nil
}

func (p *fakeProvider) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.refreshCalls
}

func newTestManager(t *testing.T, clock *fakeClock, provider *fakeProvider) *Manager {
	t.Helper()
	return NewManager(NewMemoryStore(), provider, nil, Options{
		SessionTTL:       60 * time.Minute,
		RefreshThreshold: 5 * time.Minute,
		ActivityWindow:   15 * time.Minute,
		Now:              clock.Now,
	})
}

func sampleSession(m *Manager) domain.Session {
	return m.NewSession(
		domain.SessionUser{ID: "u-1", Email: "alice@example.com"},
		TokenPair{AccessToken: "at-1", RefreshToken: "rt-1"},
	)
}

func TestSetGetRoundTrip(t *testing.T) {
	clock := newFakeClock()
	m := newTestManager(t, clock, &fakeProvider{})

	want := sampleSession(m)
	require.NoError(t, m.Set(want))

	got, ok := m.Get()
	require.True(t, ok)
	assert.Equal(t, want.AccessToken, got.AccessToken)
	assert.Equal(t, want.RefreshToken, got.RefreshToken)
	assert.Equal(t, want.User, got.User)
	assert.True(t, want.ExpiresAt.Equal(got.ExpiresAt))
	assert.Equal(t, clock.Now().Add(60*time.Minute), got.ExpiresAt)
}

func TestGetExpiredClearsStore(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryStore()
	m := NewManager(store, &fakeProvider{}, nil, Options{
		SessionTTL: 60 * time.Minute,
		Now:        clock.Now,
	})

	require.NoError(t, m.Set(sampleSession(m)))
	clock.Advance(61 * time.Minute)

	_, ok := m.Get()
	assert.False(t, ok)

	_, stored := store.Read()
	assert.False(t, stored, "expired record must be cleared")
}

func TestGetCorruptRecordClearsStore(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryStore()
	m := NewManager(store, &fakeProvider{}, nil, Options{Now: clock.Now})

	require.NoError(t, store.Write([]byte("{not json")))

	assert.NotPanics(t, func() {
		_, ok := m.Get()
		assert.False(t, ok)
	})

	_, stored := store.Read()
	assert.False(t, stored)
}

func TestRefreshIfNeededMatrix(t *testing.T) {
	tests := []struct {
		name        string
		idle        time.Duration // advanced after Set, before RefreshIfNeeded
		nearExpiry  bool
		wantCalls   int
	}{
		{name: "needs refresh and active", nearExpiry: true, wantCalls: 1},
		{name: "needs refresh but idle", idle: 20 * time.Minute, nearExpiry: true, wantCalls: 0},
		{name: "fresh and active", wantCalls: 0},
		{name: "fresh and idle", idle: 20 * time.Minute, wantCalls: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := newFakeClock()
			provider := &fakeProvider{pair: TokenPair{AccessToken: "at-2", RefreshToken: "rt-2"}}
			m := newTestManager(t, clock, provider)

			require.NoError(t, m.Set(sampleSession(m)))

			if tt.nearExpiry {
				// Within 5m of the 60m expiry. Keep activity fresh unless the
				// case wants an idle user.
				if tt.idle > 0 {
					clock.Advance(56*time.Minute - tt.idle)
					m.Touch()
					clock.Advance(tt.idle)
				} else {
					clock.Advance(56 * time.Minute)
					m.Touch()
				}
			} else if tt.idle > 0 {
				clock.Advance(tt.idle)
			}

			require.NoError(t, m.RefreshIfNeeded(context.Background()))
			assert.Equal(t, tt.wantCalls, provider.calls())
		})
	}
}

func TestRefreshExtendsExpiry(t *testing.T) {
	clock := newFakeClock()
	provider := &fakeProvider{pair: TokenPair{AccessToken: "at-2", RefreshToken: "rt-2"}}
	m := newTestManager(t, clock, provider)

	require.NoError(t, m.Set(sampleSession(m)))
	clock.Advance(56 * time.Minute)
	m.Touch()

	require.NoError(t, m.RefreshIfNeeded(context.Background()))

	got, ok := m.Get()
	require.True(t, ok)
	assert.Equal(t, "at-2", got.AccessToken)
	assert.Equal(t, "rt-2", got.RefreshToken)
	assert.Equal(t, clock.Now().Add(60*time.Minute), got.ExpiresAt)
}

func TestRefreshFailureClearsSession(t *testing.T) {
	clock := newFakeClock()
	provider := &fakeProvider{refreshErr: errors.New("refresh token consumed")}
	m := newTestManager(t, clock, provider)

	require.NoError(t, m.Set(sampleSession(m)))
	clock.Advance(56 * time.Minute)
	m.Touch()

	require.Error(t, m.RefreshIfNeeded(context.Background()))

	_, ok := m.Get()
	assert.False(t, ok, "failed refresh must force re-authentication")
}

func TestConcurrentRefreshCollapsesToOneCall(t *testing.T) {
	clock := newFakeClock()
	provider := &fakeProvider{pair: TokenPair{AccessToken: "at-2", RefreshToken: "rt-2"}}
	m := newTestManager(t, clock, provider)

	require.NoError(t, m.Set(sampleSession(m)))
	clock.Advance(56 * time.Minute)
	m.Touch()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.RefreshIfNeeded(context.Background())
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, provider.calls())
}

func TestCheckAuthStatus(t *testing.T) {
	clock := newFakeClock()
	provider := &fakeProvider{pair: TokenPair{AccessToken: "at-2", RefreshToken: "rt-2"}}
	m := newTestManager(t, clock, provider)

	status := m.CheckAuthStatus(context.Background())
	assert.False(t, status.IsAuthenticated)

	require.NoError(t, m.Set(sampleSession(m)))
	status = m.CheckAuthStatus(context.Background())
	assert.True(t, status.IsAuthenticated)
	assert.Equal(t, "u-1", status.User.ID)
}

func TestTouchThrottled(t *testing.T) {
	clock := newFakeClock()
	m := newTestManager(t, clock, &fakeProvider{})

	require.NoError(t, m.Set(sampleSession(m)))
	first := clock.Now()

	clock.Advance(200 * time.Millisecond)
	m.Touch() // dropped, inside throttle interval

	m.mu.Lock()
	last := m.lastActivity
	m.mu.Unlock()
	assert.True(t, last.Equal(first))

	clock.Advance(time.Second)
	m.Touch()

	m.mu.Lock()
	last = m.lastActivity
	m.mu.Unlock()
	assert.True(t, last.After(first))
}

func TestIsUserActiveWindow(t *testing.T) {
	clock := newFakeClock()
	m := newTestManager(t, clock, &fakeProvider{})

	assert.False(t, m.IsUserActive(), "no activity recorded yet")

	require.NoError(t, m.Set(sampleSession(m)))
	assert.True(t, m.IsUserActive())

	clock.Advance(16 * time.Minute)
	assert.False(t, m.IsUserActive(), "activity window is shorter than the session TTL")
}

func TestSignOutEverywhere(t *testing.T) {
	clock := newFakeClock()
	provider := &fakeProvider{}
	m := newTestManager(t, clock, provider)

	require.NoError(t, m.Set(sampleSession(m)))
	require.NoError(t, m.SignOutEverywhere(context.Background()))

	_, ok := m.Get()
	assert.False(t, ok)
	assert.Equal(t, 1, provider.signOutCalls)
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := t.TempDir() + "/session.json"
	store := NewFileStore(path)

	require.NoError(t, store.Write([]byte(`{"k":"v"}`)))
	data, ok := store.Read()
	require.True(t, ok)
	assert.JSONEq(t, `{"k":"v"}`, string(data))

	store.Delete()
	_, ok = store.Read()
	assert.False(t, ok)
}

func TestStartStop(t *testing.T) {
	clock := newFakeClock()
	provider := &fakeProvider{pair: TokenPair{AccessToken: "at-2", RefreshToken: "rt-2"}}
	m := NewManager(NewMemoryStore(), provider, nil, Options{
		SessionTTL:       60 * time.Minute,
		RefreshThreshold: 5 * time.Minute,
		ActivityWindow:   15 * time.Minute,
		CheckInterval:    5 * time.Millisecond,
		Now:              clock.Now,
	})

	require.NoError(t, m.Set(sampleSession(m)))
	clock.Advance(56 * time.Minute)
	m.Touch()

	m.Start(context.Background())
	assert.Eventually(t, func() bool { return provider.calls() >= 1 }, time.Second, time.Millisecond)
	m.Stop()

	// A second Stop is a no-op.
	m.Stop()
}
