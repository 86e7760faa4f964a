// Package authctx composes the session lifecycle manager with profile
// lookup into a single source of truth for the authenticated principal.
package authctx

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/roviton/dispatch-api/internal/core/domain"
	"github.com/roviton/dispatch-api/internal/core/ports"
	"github.com/roviton/dispatch-api/internal/core/session"
)

// AuthContext holds the current session and profile and exposes derived
// role flags. All operations return a result/error pair; none panic, so
// callers can render inline error state.
type AuthContext struct {
	manager  *session.Manager
	provider ports.AuthProvider
	profiles ports.ProfileRepository
	log      zerolog.Logger

	mu      sync.RWMutex
	session *domain.Session
	profile *domain.Profile
	loading bool
}

// New builds an AuthContext. Lifecycle is owned by the caller: Mount once
// at startup, Unmount on shutdown.
func New(manager *session.Manager, provider ports.AuthProvider, profiles ports.ProfileRepository, log zerolog.Logger) *AuthContext {
	return &AuthContext{
		manager:  manager,
		provider: provider,
		profiles: profiles,
		log:      log,
	}
}

// Mount initializes the session manager, fetches the profile when a
// session is present, and wires the manager's transition handlers so the
// held state tracks refreshes and expiry.
func (a *AuthContext) Mount(ctx context.Context) error {
	a.setLoading(true)
	defer a.setLoading(false)

	a.manager.SetHandlers(session.Handlers{
		OnSessionRefreshed: func(s *domain.Session) {
			a.mu.Lock()
			a.session = s
			a.mu.Unlock()
		},
		OnSessionExpired: func() {
			a.mu.Lock()
			a.session = nil
			a.profile = nil
			a.mu.Unlock()
		},
		OnError: func(err error) {
			a.log.Warn().Err(err).Msg("session manager error")
		},
	})

	s, err := a.manager.Initialize(ctx)
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.session = s
	a.mu.Unlock()

	if s == nil {
		return nil
	}
	return a.loadProfile(ctx, s.UserID)
}

// Unmount tears down the manager's timers and subscriptions.
func (a *AuthContext) Unmount() {
	a.manager.Cleanup()
}

// Session returns the current session, or nil.
func (a *AuthContext) Session() *domain.Session {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.session
}

// Profile returns the current profile, or nil.
func (a *AuthContext) Profile() *domain.Profile {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.profile
}

// Loading reports whether a mount or refresh round-trip is in flight.
func (a *AuthContext) Loading() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.loading
}

// Role flags are computed strictly from profile role equality; with no
// profile every flag is false.

func (a *AuthContext) IsAdmin() bool      { return a.hasRole(domain.RoleAdmin) }
func (a *AuthContext) IsDispatcher() bool { return a.hasRole(domain.RoleDispatcher) }
func (a *AuthContext) IsDriver() bool     { return a.hasRole(domain.RoleDriver) }
func (a *AuthContext) IsCustomer() bool   { return a.hasRole(domain.RoleCustomer) }

func (a *AuthContext) hasRole(r domain.Role) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.profile != nil && a.profile.Role == r
}

// SignIn authenticates credentials, adopts the resulting session, and
// fetches the matching profile.
func (a *AuthContext) SignIn(ctx context.Context, email, password string) (*domain.Session, error) {
	a.setLoading(true)
	defer a.setLoading(false)

	s, err := a.provider.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if err := a.adoptSession(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// SignUp registers a new account with the given role and adopts its
// session.
func (a *AuthContext) SignUp(ctx context.Context, email, password string, role domain.Role) (*domain.Session, error) {
	a.setLoading(true)
	defer a.setLoading(false)

	s, err := a.provider.SignUp(ctx, email, password, role)
	if err != nil {
		return nil, err
	}
	if err := a.adoptSession(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// SignOut clears the session via the manager. Navigation afterwards is the
// caller's responsibility.
func (a *AuthContext) SignOut(ctx context.Context) error {
	err := a.manager.SignOut(ctx)

	a.mu.Lock()
	a.session = nil
	a.profile = nil
	a.mu.Unlock()
	return err
}

// RefreshSession forces a session refresh through the manager.
func (a *AuthContext) RefreshSession(ctx context.Context) (*domain.Session, error) {
	s, err := a.manager.Refresh(ctx)
	if err != nil {
		return nil, err
	}
	a.mu.Lock()
	a.session = s
	a.mu.Unlock()
	return s, nil
}

// RefreshProfile re-fetches the current profile, invalidating the cached
// copy. No-op without a session.
func (a *AuthContext) RefreshProfile(ctx context.Context) (*domain.Profile, error) {
	a.mu.RLock()
	s := a.session
	a.mu.RUnlock()
	if s == nil {
		return nil, domain.ErrNoSession
	}
	if err := a.loadProfile(ctx, s.UserID); err != nil {
		return nil, err
	}
	return a.Profile(), nil
}

// UpdateUserRole changes another user's role. The caller must currently be
// flagged admin; the check runs locally before the remote write. When the
// caller changes their own role, their profile is re-fetched so the flags
// stay truthful.
func (a *AuthContext) UpdateUserRole(ctx context.Context, userID string, newRole domain.Role) error {
	if !a.IsAdmin() {
		return domain.ErrForbidden
	}
	if !newRole.Valid() {
		return domain.ErrUnknownRole
	}
	if err := a.profiles.UpdateRole(ctx, userID, newRole); err != nil {
		return err
	}

	a.mu.RLock()
	self := a.profile != nil && a.profile.ID == userID
	a.mu.RUnlock()
	if self {
		if _, err := a.RefreshProfile(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (a *AuthContext) adoptSession(ctx context.Context, s *domain.Session) error {
	a.mu.Lock()
	a.session = s
	a.mu.Unlock()

	if _, err := a.manager.Initialize(ctx); err != nil {
		a.log.Warn().Err(err).Msg("failed to start session timers")
	}
	return a.loadProfile(ctx, s.UserID)
}

func (a *AuthContext) loadProfile(ctx context.Context, userID string) error {
	p, err := a.profiles.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	a.mu.Lock()
	a.profile = p
	a.mu.Unlock()
	return nil
}

func (a *AuthContext) setLoading(v bool) {
	a.mu.Lock()
	a.loading = v
	a.mu.Unlock()
}
