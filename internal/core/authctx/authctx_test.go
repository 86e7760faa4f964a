package authctx

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/roviton/dispatch-api/internal/core/domain"
	"github.com/roviton/dispatch-api/internal/core/ports"
	"github.com/roviton/dispatch-api/internal/core/session"
)

type stubProvider struct {
	session *domain.Session
	signErr error
}

func (p *stubProvider) SignUp(_ context.Context, email, _ string, role domain.Role) (*domain.Session, error) {
	if p.signErr != nil {
		return nil, p.signErr
	}
	return p.session, nil
}

func (p *stubProvider) SignIn(context.Context, string, string) (*domain.Session, error) {
	if p.signErr != nil {
		return nil, p.signErr
	}
	return p.session, nil
}

func (p *stubProvider) Refresh(context.Context, string) (*domain.Session, error) {
	return p.session, nil
}

func (p *stubProvider) SignOut(context.Context, string) error { return nil }

func (p *stubProvider) CurrentSession(context.Context) (*domain.Session, error) {
	return p.session, nil
}

func (p *stubProvider) OnAuthStateChange(func(ports.AuthStateEvent, *domain.Session)) ports.UnsubscribeFunc {
	return func() {}
}

type stubStore struct {
	mu      sync.Mutex
	session *domain.Session
}

func (s *stubStore) Save(_ context.Context, sess *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = sess
	return nil
}

func (s *stubStore) Load(context.Context) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session, nil
}

func (s *stubStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = nil
	return nil
}

type stubProfiles struct {
	mu       sync.Mutex
	byID     map[string]*domain.Profile
	findErr  error
	upd      int
	lastRole domain.Role
}

func newStubProfiles(profiles ...*domain.Profile) *stubProfiles {
	byID := make(map[string]*domain.Profile)
	for _, p := range profiles {
		byID[p.ID] = p
	}
	return &stubProfiles{byID: byID}
}

func (r *stubProfiles) Create(_ context.Context, p *domain.Profile) (*domain.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[p.ID] = p
	return p, nil
}

func (r *stubProfiles) FindByID(_ context.Context, id string) (*domain.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	p, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	clone := *p
	return &clone, nil
}

func (r *stubProfiles) FindByEmail(_ context.Context, email string) (*domain.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.byID {
		if p.Email == email {
			clone := *p
			return &clone, nil
		}
	}
	return nil, domain.ErrProfileNotFound
}

func (r *stubProfiles) UpdateRole(_ context.Context, id string, role domain.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return domain.ErrProfileNotFound
	}
	p.Role = role
	r.upd++
	r.lastRole = role
	return nil
}

func futureSession(userID string) *domain.Session {
	return &domain.Session{
		AccessToken:  "access",
		RefreshToken: "refresh",
		ExpiresAt:    time.Now().Add(time.Hour).Unix(),
		UserID:       userID,
	}
}

func newTestContext(t *testing.T, provider *stubProvider, profiles *stubProfiles) *AuthContext {
	t.Helper()
	store := &stubStore{}
	mgr := session.NewManager(provider, store, session.Config{}, nil, zerolog.Nop())
	a := New(mgr, provider, profiles, zerolog.Nop())
	t.Cleanup(a.Unmount)
	return a
}

func TestMount_NoSession(t *testing.T) {
	a := newTestContext(t, &stubProvider{}, newStubProfiles())

	if err := a.Mount(context.Background()); err != nil {
		t.Fatalf("Mount returned error: %v", err)
	}
	if a.Session() != nil || a.Profile() != nil {
		t.Fatalf("expected empty state without a session")
	}
	if a.IsAdmin() || a.IsDispatcher() || a.IsDriver() || a.IsCustomer() {
		t.Fatalf("role flags set without a profile")
	}
}

func TestMount_FetchesProfileAndFlags(t *testing.T) {
	provider := &stubProvider{session: futureSession("user_1")}
	profiles := newStubProfiles(&domain.Profile{ID: "user_1", Email: "d@x.com", Role: domain.RoleDispatcher})
	a := newTestContext(t, provider, profiles)

	if err := a.Mount(context.Background()); err != nil {
		t.Fatalf("Mount returned error: %v", err)
	}
	if a.Session() == nil || a.Profile() == nil {
		t.Fatalf("expected session and profile after mount")
	}
	if !a.IsDispatcher() {
		t.Fatalf("IsDispatcher false for dispatcher profile")
	}
	if a.IsAdmin() || a.IsDriver() || a.IsCustomer() {
		t.Fatalf("sibling role flags must remain false")
	}
}

func TestSignIn_ErrorReturnedNotThrown(t *testing.T) {
	provider := &stubProvider{signErr: domain.ErrInvalidCredentials}
	a := newTestContext(t, provider, newStubProfiles())

	s, err := a.SignIn(context.Background(), "x@y.com", "bad")
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if s != nil {
		t.Fatalf("expected nil session on failed sign-in")
	}
}

func TestSignOut_ClearsState(t *testing.T) {
	provider := &stubProvider{session: futureSession("user_1")}
	profiles := newStubProfiles(&domain.Profile{ID: "user_1", Role: domain.RoleAdmin})
	a := newTestContext(t, provider, profiles)

	if err := a.Mount(context.Background()); err != nil {
		t.Fatalf("Mount returned error: %v", err)
	}
	if err := a.SignOut(context.Background()); err != nil {
		t.Fatalf("SignOut returned error: %v", err)
	}
	if a.Session() != nil || a.Profile() != nil {
		t.Fatalf("state not cleared after sign-out")
	}
	if a.IsAdmin() {
		t.Fatalf("admin flag survived sign-out")
	}
}

func TestUpdateUserRole_RequiresAdmin(t *testing.T) {
	provider := &stubProvider{session: futureSession("user_1")}
	profiles := newStubProfiles(
		&domain.Profile{ID: "user_1", Role: domain.RoleDispatcher},
		&domain.Profile{ID: "user_2", Role: domain.RoleDriver},
	)
	a := newTestContext(t, provider, profiles)

	if err := a.Mount(context.Background()); err != nil {
		t.Fatalf("Mount returned error: %v", err)
	}
	err := a.UpdateUserRole(context.Background(), "user_2", domain.RoleCustomer)
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for non-admin caller, got %v", err)
	}
	if profiles.upd != 0 {
		t.Fatalf("remote role change attempted despite local rejection")
	}
}

func TestUpdateUserRole_SelfChangeRefetches(t *testing.T) {
	provider := &stubProvider{session: futureSession("user_1")}
	profiles := newStubProfiles(&domain.Profile{ID: "user_1", Role: domain.RoleAdmin})
	a := newTestContext(t, provider, profiles)

	if err := a.Mount(context.Background()); err != nil {
		t.Fatalf("Mount returned error: %v", err)
	}
	if err := a.UpdateUserRole(context.Background(), "user_1", domain.RoleCustomer); err != nil {
		t.Fatalf("UpdateUserRole returned error: %v", err)
	}
	if !a.IsCustomer() {
		t.Fatalf("own profile not re-fetched after self role change")
	}
	if a.IsAdmin() {
		t.Fatalf("stale admin flag after self role change")
	}
}

func TestUpdateUserRole_RejectsUnknownRole(t *testing.T) {
	provider := &stubProvider{session: futureSession("user_1")}
	profiles := newStubProfiles(&domain.Profile{ID: "user_1", Role: domain.RoleAdmin})
	a := newTestContext(t, provider, profiles)

	if err := a.Mount(context.Background()); err != nil {
		t.Fatalf("Mount returned error: %v", err)
	}
	if err := a.UpdateUserRole(context.Background(), "user_1", domain.Role("root")); !errors.Is(err, domain.ErrUnknownRole) {
		t.Fatalf("expected ErrUnknownRole, got %v", err)
	}
}
