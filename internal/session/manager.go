package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/crewbase/crewbase/internal/domain"
	"go.uber.org/zap"
)

// TokenPair is what the identity provider returns from a refresh call.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
}

// TokenProvider is the slice of the identity provider the Manager needs.
type TokenProvider interface {
	Refresh(ctx context.Context, refreshToken string) (TokenPair, error)
	SignOut(ctx context.Context, accessToken string) error
}

// AuthStatus is the composite answer each application asks for at load.
type AuthStatus struct {
	IsAuthenticated bool
	User            domain.SessionUser
}

// Options tune the session lifecycle. Zero values fall back to defaults.
type Options struct {
	SessionTTL       time.Duration // full session lifetime, default 60m
	RefreshThreshold time.Duration // refresh when this close to expiry, default 5m
	ActivityWindow   time.Duration // user counts as active within this, default 15m
	CheckInterval    time.Duration // background eligibility check, default 60s
	Now              func() time.Time
}

const (
	defaultSessionTTL       = 60 * time.Minute
	defaultRefreshThreshold = 5 * time.Minute
	defaultActivityWindow   = 15 * time.Minute
	defaultCheckInterval    = 60 * time.Second

	// Activity writes are throttled so a burst of input events does not
	// turn into a write storm.
	activityThrottle = time.Second
)

// Manager owns one shared session for one application instance: it persists
// the session, tracks user activity, and silently refreshes the token pair
// before expiry. Refresh tokens are treated as single-use, so refreshes are
// serialized and eligibility is re-checked under the lock.
type Manager struct {
	store    Store
	provider TokenProvider
	logger   *zap.Logger
	opts     Options

	mu           sync.Mutex
	lastActivity time.Time

	// refreshMu serializes refresh attempts: refresh tokens rotate, so two
	// concurrent timers must collapse into a single provider call.
	refreshMu sync.Mutex

	lifeMu sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewManager(store Store, provider TokenProvider, logger *zap.Logger, opts Options) *Manager {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = defaultSessionTTL
	}
	if opts.RefreshThreshold <= 0 {
		opts.RefreshThreshold = defaultRefreshThreshold
	}
	if opts.ActivityWindow <= 0 || opts.ActivityWindow >= opts.SessionTTL {
		opts.ActivityWindow = defaultActivityWindow
	}
	if opts.CheckInterval <= 0 {
		opts.CheckInterval = defaultCheckInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Manager{
		store:    store,
		provider: provider,
		logger:   logger,
		opts:     opts,
	}
}

// NewSession builds a session from a token pair with a freshly computed
// expiry. The provider's expires_in wins when it is shorter than the TTL.
func (m *Manager) NewSession(user domain.SessionUser, pair TokenPair) domain.Session {
	now := m.opts.Now()
	ttl := m.opts.SessionTTL
	if pair.ExpiresIn > 0 && pair.ExpiresIn < ttl {
		ttl = pair.ExpiresIn
	}
	return domain.Session{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         user,
		ExpiresAt:    now.Add(ttl),
		CreatedAt:    now,
	}
}

// Set persists the session and counts it as user activity.
func (m *Manager) Set(s domain.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	if err := m.store.Write(data); err != nil {
		return err
	}

	m.mu.Lock()
	m.lastActivity = m.opts.Now()
	m.mu.Unlock()
	return nil
}

// Get returns the stored session. An absent, corrupt, or expired record all
// read as "no session"; corrupt and expired records are cleared on the spot.
func (m *Manager) Get() (domain.Session, bool) {
	data, ok := m.store.Read()
	if !ok {
		return domain.Session{}, false
	}

	var s domain.Session
	if err := json.Unmarshal(data, &s); err != nil {
		m.logger.Warn("session record corrupt, clearing", zap.Error(err))
		m.store.Delete()
		return domain.Session{}, false
	}
	if m.IsExpired(s) {
		m.store.Delete()
		return domain.Session{}, false
	}
	return s, true
}

func (m *Manager) IsExpired(s domain.Session) bool {
	return s.ExpiredAt(m.opts.Now())
}

// NeedsRefresh reports whether the session is close enough to expiry that it
// should be renewed.
func (m *Manager) NeedsRefresh(s domain.Session) bool {
	return m.opts.Now().Add(m.opts.RefreshThreshold).After(s.ExpiresAt)
}

// Touch records user activity. Calls within the throttle interval of the
// previous write are dropped.
func (m *Manager) Touch() {
	now := m.opts.Now()

	m.mu.Lock()
	defer m.mu.Unlock()
	if now.Sub(m.lastActivity) < activityThrottle {
		return
	}
	m.lastActivity = now
}

// IsUserActive reports whether activity was seen within the activity window.
// The window is deliberately shorter than the session TTL so an idle user
// stops earning silent refreshes well before the session itself lapses.
func (m *Manager) IsUserActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lastActivity.IsZero() {
		return false
	}
	return m.opts.Now().Sub(m.lastActivity) <= m.opts.ActivityWindow
}

// RefreshIfNeeded renews the token pair when the session is near expiry and
// the user is active. A provider failure clears the session: the refresh
// token may have rotated away, and forcing re-authentication is the only
// safe recovery.
func (m *Manager) RefreshIfNeeded(ctx context.Context) error {
	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()

	s, ok := m.Get()
	if !ok {
		return nil
	}
	if !m.NeedsRefresh(s) || !m.IsUserActive() {
		return nil
	}

	pair, err := m.provider.Refresh(ctx, s.RefreshToken)
	if err != nil {
		m.logger.Warn("token refresh failed, clearing session", zap.Error(err))
		m.store.Delete()
		return err
	}
	if pair.RefreshToken == "" {
		pair.RefreshToken = s.RefreshToken
	}

	renewed := m.NewSession(s.User, pair)
	if err := m.Set(renewed); err != nil {
		return err
	}

	m.logger.Debug("session refreshed",
		zap.String("user_id", s.User.ID),
		zap.Time("expires_at", renewed.ExpiresAt),
	)
	return nil
}

// CheckAuthStatus is the composite read each protected application performs
// at load: get, refresh if needed, get again.
func (m *Manager) CheckAuthStatus(ctx context.Context) AuthStatus {
	if _, ok := m.Get(); !ok {
		return AuthStatus{}
	}
	_ = m.RefreshIfNeeded(ctx)
	s, ok := m.Get()
	if !ok {
		return AuthStatus{}
	}
	return AuthStatus{IsAuthenticated: true, User: s.User}
}

// Clear drops the local session without touching the provider.
func (m *Manager) Clear() {
	m.store.Delete()
}

// SignOutEverywhere revokes the provider-side session, then clears locally.
// Local state is cleared even when revocation fails.
func (m *Manager) SignOutEverywhere(ctx context.Context) error {
	s, ok := m.Get()
	m.store.Delete()
	if !ok {
		return nil
	}
	if err := m.provider.SignOut(ctx, s.AccessToken); err != nil {
		m.logger.Warn("provider sign-out failed", zap.Error(err))
		return err
	}
	return nil
}

// Start runs the recurring refresh-eligibility check until Stop is called or
// the context is cancelled. Starting an already started manager restarts the
// loop.
func (m *Manager) Start(ctx context.Context) {
	m.Stop()

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	m.lifeMu.Lock()
	m.cancel = cancel
	m.done = done
	m.lifeMu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(m.opts.CheckInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_ = m.RefreshIfNeeded(ctx)
			}
		}
	}()
}

// Stop halts the background check loop. Safe to call when not started.
func (m *Manager) Stop() {
	m.lifeMu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.lifeMu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}
