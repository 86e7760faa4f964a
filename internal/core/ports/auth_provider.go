package ports

import (
	"context"

	"github.com/roviton/dispatch-api/internal/core/domain"
)

// AuthStateEvent identifies a provider-level auth state change.
type AuthStateEvent string

const (
	AuthStateSignedIn  AuthStateEvent = "signed_in"
	AuthStateSignedOut AuthStateEvent = "signed_out"
	AuthStateRefreshed AuthStateEvent = "token_refreshed"
)

// UnsubscribeFunc detaches a previously registered auth-state listener.
type UnsubscribeFunc func()

// AuthProvider is the token endpoint the session lifecycle manager talks
// to. Implementations issue, refresh and revoke Session credential pairs.
type AuthProvider interface {
	// SignUp registers a new account and returns its initial session.
	SignUp(ctx context.Context, email, password string, role domain.Role) (*domain.Session, error)

	// SignIn authenticates credentials and returns a fresh session.
	SignIn(ctx context.Context, email, password string) (*domain.Session, error)

	// Refresh exchanges a refresh token for a new session pair.
	Refresh(ctx context.Context, refreshToken string) (*domain.Session, error)

	// SignOut revokes the session identified by the access token.
	SignOut(ctx context.Context, accessToken string) error

	// CurrentSession returns the provider's view of the active session, or
	// (nil, nil) when none exists.
	CurrentSession(ctx context.Context) (*domain.Session, error)

	// OnAuthStateChange registers a listener for sign-in/sign-out/refresh
	// events. The returned func removes the listener.
	OnAuthStateChange(fn func(event AuthStateEvent, s *domain.Session)) UnsubscribeFunc
}
