package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/roviton/dispatch-api/internal/api/metrics"
	"github.com/roviton/dispatch-api/internal/core/domain"
	"github.com/roviton/dispatch-api/internal/core/routes"
)

// SessionInfo is what the guard needs to know about the caller: the bare
// session, if any, and whether the account's email is verified (carried in
// the token, available before any profile lookup).
type SessionInfo struct {
	Session       *domain.Session
	EmailVerified bool
}

// ResolveSession extracts the caller's session from the request,
// best-effort: no session yields nil, never an error.
type ResolveSession func(c echo.Context) *SessionInfo

// FetchProfile looks the caller's profile up by user ID.
type FetchProfile func(ctx context.Context, userID string) (*domain.Profile, error)

// GuardConfig names the fixed navigation targets the guard redirects to.
type GuardConfig struct {
	ProtectedPrefix  string
	SignInPath       string
	AuthEntryPaths   []string
	VerifyPath       string
	LandingPath      string
	UnauthorizedPath string
}

// DefaultGuardConfig is the dashboard's navigation map.
func DefaultGuardConfig() GuardConfig {
	return GuardConfig{
		ProtectedPrefix:  "/dashboard",
		SignInPath:       "/sign-in",
		AuthEntryPaths:   []string{"/sign-in", "/sign-up"},
		VerifyPath:       "/verify-email",
		LandingPath:      "/dashboard",
		UnauthorizedPath: routes.DefaultUnauthorizedPath,
	}
}

// Guard enforces authentication and authorization before a protected view
// is served. Rules, in order:
//
//  1. Protected path without a session → redirect to sign-in.
//  2. Session present on an auth-entry path → redirect to the landing page.
//  3. Protected path with an unverified email → redirect to the
//     verification page, unless already there.
//  4. Profile absent → redirect to the unauthorized page.
//  5. Role registry denial → redirect to the registry's target.
//  6. Otherwise the request proceeds unmodified.
//
// A profile lookup error is logged and the request allowed through:
// routing-layer enforcement fails open, page-level enforcement is expected
// downstream.
func Guard(cfg GuardConfig, resolve ResolveSession, fetchProfile FetchProfile, registry *routes.Registry, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			info := resolve(c)
			hasSession := info != nil && info.Session != nil
			protected := underPrefix(path, cfg.ProtectedPrefix)

			if protected && !hasSession {
				metrics.RouteDenialsTotal.WithLabelValues("no_session").Inc()
				return c.Redirect(http.StatusFound, cfg.SignInPath)
			}

			if hasSession && isAuthEntry(path, cfg.AuthEntryPaths) {
				return c.Redirect(http.StatusFound, cfg.LandingPath)
			}

			if !protected {
				return next(c)
			}

			if !info.EmailVerified && path != cfg.VerifyPath {
				metrics.RouteDenialsTotal.WithLabelValues("unverified_email").Inc()
				return c.Redirect(http.StatusFound, cfg.VerifyPath)
			}

			profile, err := fetchProfile(c.Request().Context(), info.Session.UserID)
			if err != nil {
				if errors.Is(err, domain.ErrProfileNotFound) {
					if path == cfg.UnauthorizedPath {
						return next(c)
					}
					metrics.RouteDenialsTotal.WithLabelValues("no_profile").Inc()
					return c.Redirect(http.StatusFound, cfg.UnauthorizedPath)
				}
				// Fail open: page-level enforcement still applies.
				log.Error().Err(err).Str("path", path).Str("user_id", info.Session.UserID).Msg("profile lookup failed, allowing request")
				return next(c)
			}

			if !registry.CanAccess(path, profile.Role) {
				metrics.RouteDenialsTotal.WithLabelValues("role_denied").Inc()
				return c.Redirect(http.StatusFound, registry.RedirectPath(path))
			}

			return next(c)
		}
	}
}

// underPrefix reports whether path sits at or below prefix on a segment
// boundary.
func underPrefix(path, prefix string) bool {
	if prefix == "" {
		return false
	}
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

func isAuthEntry(path string, entries []string) bool {
	for _, entry := range entries {
		if path == entry {
			return true
		}
	}
	return false
}
