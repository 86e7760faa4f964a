package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/roviton/dispatch-api/internal/core/domain"
	"github.com/roviton/dispatch-api/internal/core/ports"
)

const (
	defaultAccessTTL  = time.Hour
	defaultRefreshTTL = 30 * 24 * time.Hour

	refreshTokenType = "refresh"
)

// AuthService is the token endpoint behind the session lifecycle manager:
// it registers accounts, verifies credentials, and mints/refreshes Session
// credential pairs. Access and refresh tokens are HS256 JWTs; the refresh
// token carries a typ claim so the two can never be swapped.
type AuthService struct {
	profiles   ports.ProfileRepository
	store      ports.SessionStore
	jwtSecret  string
	accessTTL  time.Duration
	refreshTTL time.Duration
	log        zerolog.Logger

	mu        sync.Mutex
	listeners map[int]func(ports.AuthStateEvent, *domain.Session)
	nextID    int
}

var _ ports.AuthProvider = (*AuthService)(nil)

func NewAuthService(profiles ports.ProfileRepository, store ports.SessionStore, jwtSecret string, accessTTL time.Duration, log zerolog.Logger) *AuthService {
	if accessTTL <= 0 {
		accessTTL = defaultAccessTTL
	}
	return &AuthService{
		profiles:   profiles,
		store:      store,
		jwtSecret:  jwtSecret,
		accessTTL:  accessTTL,
		refreshTTL: defaultRefreshTTL,
		log:        log,
		listeners:  make(map[int]func(ports.AuthStateEvent, *domain.Session)),
	}
}

// SignUp registers a new account with the given role and returns its
// initial session.
func (s *AuthService) SignUp(ctx context.Context, email, password string, role domain.Role) (*domain.Session, error) {
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}
	if !role.Valid() {
		return nil, domain.ErrUnknownRole
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	profile := &domain.Profile{
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	created, err := s.profiles.Create(ctx, profile)
	if err != nil {
		return nil, err
	}

	session, err := s.mintSession(created)
	if err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, session); err != nil {
		s.log.Warn().Err(err).Msg("failed to persist session after sign-up")
	}
	s.notify(ports.AuthStateSignedIn, session)
	return session, nil
}

// SignIn authenticates credentials and returns a fresh session.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*domain.Session, error) {
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	profile, err := s.profiles.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrProfileNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(password)) != nil {
		return nil, domain.ErrInvalidCredentials
	}

	session, err := s.mintSession(profile)
	if err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, session); err != nil {
		s.log.Warn().Err(err).Msg("failed to persist session after sign-in")
	}
	s.notify(ports.AuthStateSignedIn, session)
	return session, nil
}

// Refresh exchanges a refresh token for a new session pair.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*domain.Session, error) {
	claims := jwt.MapClaims{}
	tkn, err := jwt.ParseWithClaims(refreshToken, claims, func(token *jwt.Token) (any, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil || !tkn.Valid {
		return nil, fmt.Errorf("%w: %v", domain.ErrRefreshFailed, err)
	}
	if typ, _ := claims["typ"].(string); typ != refreshTokenType {
		return nil, fmt.Errorf("%w: not a refresh token", domain.ErrRefreshFailed)
	}

	userID, _ := claims["sub"].(string)
	profile, err := s.profiles.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRefreshFailed, err)
	}

	session, err := s.mintSession(profile)
	if err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, session); err != nil {
		s.log.Warn().Err(err).Msg("failed to persist refreshed session")
	}
	s.notify(ports.AuthStateRefreshed, session)
	return session, nil
}

// SignOut revokes the persisted session. Token revocation is storage-side
// only: the short access TTL bounds the window of a still-circulating JWT.
func (s *AuthService) SignOut(ctx context.Context, _ string) error {
	if err := s.store.Clear(ctx); err != nil {
		return err
	}
	s.notify(ports.AuthStateSignedOut, nil)
	return nil
}

// CurrentSession returns the persisted session, or (nil, nil) when none
// exists.
func (s *AuthService) CurrentSession(ctx context.Context) (*domain.Session, error) {
	return s.store.Load(ctx)
}

// OnAuthStateChange registers a listener for sign-in/sign-out/refresh
// events.
func (s *AuthService) OnAuthStateChange(fn func(ports.AuthStateEvent, *domain.Session)) ports.UnsubscribeFunc {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// VerifyAccessToken parses an access token and returns its claims. Used by
// the HTTP auth middleware.
func (s *AuthService) VerifyAccessToken(token string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	tkn, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil || !tkn.Valid {
		return nil, domain.ErrInvalidCredentials
	}
	if typ, _ := claims["typ"].(string); typ == refreshTokenType {
		return nil, domain.ErrInvalidCredentials
	}
	return claims, nil
}

func (s *AuthService) mintSession(p *domain.Profile) (*domain.Session, error) {
	now := time.Now()
	expiresAt := now.Add(s.accessTTL)

	access := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":            p.ID,
		"email":          p.Email,
		"role":           string(p.Role),
		"org_id":         p.OrganizationID,
		"email_verified": p.EmailVerified,
		"exp":            expiresAt.Unix(),
	})
	accessToken, err := access.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return nil, err
	}

	refresh := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": p.ID,
		"typ": refreshTokenType,
		"exp": now.Add(s.refreshTTL).Unix(),
	})
	refreshToken, err := refresh.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return nil, err
	}

	// Providers emit expiry as epoch seconds; consumers normalize.
	return &domain.Session{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt.Unix(),
		UserID:       p.ID,
	}, nil
}

func (s *AuthService) notify(event ports.AuthStateEvent, session *domain.Session) {
	s.mu.Lock()
	fns := make([]func(ports.AuthStateEvent, *domain.Session), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(event, session)
	}
}
