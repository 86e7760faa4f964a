// Package session keeps one active Session fresh without user intervention
// and signals state transitions to a single registered handler set.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/roviton/dispatch-api/internal/core/domain"
	"github.com/roviton/dispatch-api/internal/core/ports"
)

const (
	// DefaultRefreshBuffer is how long before expiry a refresh is attempted.
	DefaultRefreshBuffer = 5 * time.Minute
	// DefaultWarningBuffer is how long before expiry the expiring-soon
	// warning fires.
	DefaultWarningBuffer = 2 * time.Minute
	// DefaultMaxRefreshFailures is the number of consecutive refresh
	// failures tolerated before the manager forces a sign-out.
	DefaultMaxRefreshFailures = 3
	// DefaultRetryBackoff is the base delay before a failed refresh is
	// retried. The delay doubles per consecutive failure.
	DefaultRetryBackoff = 10 * time.Second

	opTimeout = 10 * time.Second
)

// State is the lifecycle state of the manager.
type State int

const (
	StateUninitialized State = iota
	StateActive
	StateRefreshing
	StateExpired
	StateSignedOut
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateRefreshing:
		return "refreshing"
	case StateExpired:
		return "expired"
	case StateSignedOut:
		return "signed_out"
	default:
		return "uninitialized"
	}
}

// Config tunes the manager's timers and retry policy. Zero values fall back
// to the package defaults.
type Config struct {
	RefreshBuffer      time.Duration
	WarningBuffer      time.Duration
	MaxRefreshFailures int
	RetryBackoff       time.Duration
}

func (c Config) withDefaults() Config {
	if c.RefreshBuffer <= 0 {
		c.RefreshBuffer = DefaultRefreshBuffer
	}
	if c.WarningBuffer <= 0 {
		c.WarningBuffer = DefaultWarningBuffer
	}
	if c.MaxRefreshFailures <= 0 {
		c.MaxRefreshFailures = DefaultMaxRefreshFailures
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = DefaultRetryBackoff
	}
	return c
}

// Handlers is the single handler set notified of session transitions.
// Registration is last-write-wins: SetHandlers replaces the prior set
// wholesale, there is no listener list. Nil funcs are skipped.
type Handlers struct {
	OnSessionExpiringSoon func(remaining time.Duration)
	OnSessionRefreshed    func(s *domain.Session)
	OnSessionExpired      func()
	OnError               func(err error)
}

// Manager owns exactly one active session and its timer pair (refresh,
// warning). It is constructed explicitly and passed to its consumers;
// there is no package-level instance.
type Manager struct {
	provider ports.AuthProvider
	store    ports.SessionStore
	clock    Clock
	cfg      Config
	log      zerolog.Logger

	mu           sync.Mutex
	state        State
	current      *domain.Session
	handlers     Handlers
	refreshTimer Timer
	warningTimer Timer
	failures     int
	unsubscribe  ports.UnsubscribeFunc
}

// NewManager builds a Manager. clock may be nil, in which case wall time is
// used.
func NewManager(provider ports.AuthProvider, store ports.SessionStore, cfg Config, clock Clock, log zerolog.Logger) *Manager {
	if clock == nil {
		clock = RealClock()
	}
	return &Manager{
		provider: provider,
		store:    store,
		clock:    clock,
		cfg:      cfg.withDefaults(),
		log:      log,
	}
}

// SetHandlers replaces the registered handler set. The previous set stops
// receiving notifications immediately.
func (m *Manager) SetHandlers(h Handlers) {
	m.mu.Lock()
	m.handlers = h
	m.mu.Unlock()
}

// State returns the manager's current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Initialize fetches the current session from the provider, falling back to
// the persisted store, and schedules the timer pair. Returns (nil, nil)
// when no session exists. A session discovered already expired transitions
// the manager to Expired and fires OnSessionExpired exactly once, with no
// timers scheduled.
func (m *Manager) Initialize(ctx context.Context) (*domain.Session, error) {
	s, err := m.provider.CurrentSession(ctx)
	if err != nil {
		m.log.Warn().Err(err).Msg("provider session fetch failed, falling back to store")
		s, _ = m.store.Load(ctx)
	}
	if s == nil {
		s, _ = m.store.Load(ctx)
	}

	m.mu.Lock()
	m.clearTimersLocked()
	if m.unsubscribe == nil {
		m.unsubscribe = m.provider.OnAuthStateChange(m.onAuthState)
	}
	if s == nil {
		m.state = StateUninitialized
		m.current = nil
		m.mu.Unlock()
		return nil, nil
	}

	if s.Expired(m.clock.Now()) {
		m.state = StateExpired
		m.current = nil
		onExpired := m.handlers.OnSessionExpired
		m.mu.Unlock()
		m.log.Info().Str("user_id", s.UserID).Msg("session already expired at initialize")
		if onExpired != nil {
			onExpired()
		}
		return nil, nil
	}

	m.current = s
	m.state = StateActive
	m.failures = 0
	m.scheduleLocked(s)
	m.mu.Unlock()
	return s, nil
}

// Refresh exchanges the held refresh token for a new session pair. On
// success the held session is replaced, timers are rescheduled and
// OnSessionRefreshed fires. On failure OnError fires and a bounded
// retry/backoff cycle begins; after MaxRefreshFailures consecutive
// failures the manager forces a sign-out.
func (m *Manager) Refresh(ctx context.Context) (*domain.Session, error) {
	m.mu.Lock()
	cur := m.current
	if cur == nil {
		m.mu.Unlock()
		return nil, domain.ErrNoSession
	}
	m.state = StateRefreshing
	refreshToken := cur.RefreshToken
	m.mu.Unlock()

	s, err := m.provider.Refresh(ctx, refreshToken)
	if err != nil {
		return nil, m.refreshFailed(err)
	}

	m.mu.Lock()
	m.current = s
	m.state = StateActive
	m.failures = 0
	m.scheduleLocked(s)
	onRefreshed := m.handlers.OnSessionRefreshed
	m.mu.Unlock()

	if saveErr := m.store.Save(ctx, s); saveErr != nil {
		m.log.Warn().Err(saveErr).Msg("failed to persist refreshed session")
	}
	m.log.Debug().Str("user_id", s.UserID).Time("expires", s.ExpiryTime()).Msg("session refreshed")

	if onRefreshed != nil {
		onRefreshed(s)
	}
	return s, nil
}

func (m *Manager) refreshFailed(cause error) error {
	err := fmt.Errorf("%w: %v", domain.ErrRefreshFailed, cause)

	m.mu.Lock()
	m.failures++
	failures := m.failures
	onError := m.handlers.OnError
	m.mu.Unlock()

	if onError != nil {
		onError(err)
	}

	if failures >= m.cfg.MaxRefreshFailures {
		m.log.Error().Err(cause).Int("failures", failures).Msg("refresh failure limit reached, forcing sign-out")
		m.forceSignOut()
		return err
	}

	// Exponential backoff before the next attempt.
	delay := m.retryDelay(failures)
	m.log.Warn().Err(cause).Int("failures", failures).Dur("retry_in", delay).Msg("session refresh failed, retrying")

	m.mu.Lock()
	m.clearRefreshTimerLocked()
	if m.state == StateRefreshing {
		m.state = StateActive
	}
	m.refreshTimer = m.clock.AfterFunc(delay, m.refreshNow)
	m.mu.Unlock()
	return err
}

// maxBackoffShift bounds the doubling so the delay stays positive for any
// configured failure limit.
const maxBackoffShift = 10

// retryDelay returns the backoff before the next refresh attempt: the base
// delay doubled per consecutive failure, capped at RetryBackoff << 10.
func (m *Manager) retryDelay(failures int) time.Duration {
	shift := failures - 1
	if shift > maxBackoffShift {
		shift = maxBackoffShift
	}
	return m.cfg.RetryBackoff << shift
}

// forceSignOut tears the session down after the retry budget is exhausted.
// OnSessionExpired fires so consumers can route the user to sign-in.
func (m *Manager) forceSignOut() {
	m.mu.Lock()
	m.clearTimersLocked()
	cur := m.current
	m.current = nil
	m.state = StateExpired
	onExpired := m.handlers.OnSessionExpired
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	if cur != nil {
		if err := m.provider.SignOut(ctx, cur.AccessToken); err != nil {
			m.log.Warn().Err(err).Msg("provider sign-out failed during forced sign-out")
		}
	}
	if err := m.store.Clear(ctx); err != nil {
		m.log.Warn().Err(err).Msg("failed to clear persisted session")
	}

	if onExpired != nil {
		onExpired()
	}
}

// CurrentSession is the synchronous best-effort accessor: it reads the
// persisted store directly, bypassing the provider, and returns nil on any
// malformed or missing entry. It never returns an error.
func (m *Manager) CurrentSession() *domain.Session {
	m.mu.Lock()
	if m.current != nil {
		s := m.current
		m.mu.Unlock()
		return s
	}
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	s, err := m.store.Load(ctx)
	if err != nil {
		m.log.Debug().Err(err).Msg("best-effort session read failed")
		return nil
	}
	return s
}

// TimeUntilExpiry reports how long s remains valid. Never negative; a nil
// session yields zero. Seconds-based epoch expiries are normalized before
// the subtraction.
func (m *Manager) TimeUntilExpiry(s *domain.Session) time.Duration {
	if s == nil {
		return 0
	}
	return s.TimeUntilExpiry(m.clock.Now())
}

// SignOut clears the timer pair and revokes the session with the provider.
// It does not decide where the caller navigates next.
func (m *Manager) SignOut(ctx context.Context) error {
	m.mu.Lock()
	m.clearTimersLocked()
	cur := m.current
	m.current = nil
	m.state = StateSignedOut
	m.mu.Unlock()

	if err := m.store.Clear(ctx); err != nil {
		m.log.Warn().Err(err).Msg("failed to clear persisted session")
	}
	if cur == nil {
		return nil
	}
	return m.provider.SignOut(ctx, cur.AccessToken)
}

// Cleanup clears all timers and detaches the provider auth-state listener.
// Safe to call any number of times.
func (m *Manager) Cleanup() {
	m.mu.Lock()
	m.clearTimersLocked()
	unsub := m.unsubscribe
	m.unsubscribe = nil
	m.mu.Unlock()

	if unsub != nil {
		unsub()
	}
}

// scheduleLocked arms the refresh and warning timers for s. Any previously
// scheduled pair is cleared first so timer drift can never produce two
// concurrent refreshes. Callers must hold m.mu.
func (m *Manager) scheduleLocked(s *domain.Session) {
	m.clearTimersLocked()

	until := s.TimeUntilExpiry(m.clock.Now())

	refreshIn := until - m.cfg.RefreshBuffer
	if refreshIn < 0 {
		// Lead time already elapsed: refresh immediately, still off the
		// caller's goroutine.
		refreshIn = 0
	}
	m.refreshTimer = m.clock.AfterFunc(refreshIn, m.refreshNow)

	if warnIn := until - m.cfg.WarningBuffer; warnIn > 0 {
		m.warningTimer = m.clock.AfterFunc(warnIn, m.warnExpiring)
	}
}

func (m *Manager) refreshNow() {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	_, _ = m.Refresh(ctx)
}

func (m *Manager) warnExpiring() {
	m.mu.Lock()
	cur := m.current
	onWarning := m.handlers.OnSessionExpiringSoon
	m.mu.Unlock()
	if cur == nil || onWarning == nil {
		return
	}
	onWarning(cur.TimeUntilExpiry(m.clock.Now()))
}

func (m *Manager) onAuthState(event ports.AuthStateEvent, _ *domain.Session) {
	if event != ports.AuthStateSignedOut {
		return
	}
	m.mu.Lock()
	m.clearTimersLocked()
	m.current = nil
	if m.state != StateExpired {
		m.state = StateSignedOut
	}
	m.mu.Unlock()
}

func (m *Manager) clearTimersLocked() {
	m.clearRefreshTimerLocked()
	if m.warningTimer != nil {
		m.warningTimer.Stop()
		m.warningTimer = nil
	}
}

func (m *Manager) clearRefreshTimerLocked() {
	if m.refreshTimer != nil {
		m.refreshTimer.Stop()
		m.refreshTimer = nil
	}
}
