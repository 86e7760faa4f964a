package domain

import (
	"errors"
	"time"
)

// Epoch values below this threshold are interpreted as seconds; at or above
// it, milliseconds. 1e12 ms is September 2001, 1e12 s is ~33700 AD, so the
// split is unambiguous for any realistic expiry.
const epochMillisThreshold = 1e12

var (
	ErrNoSession          = errors.New("no active session")
	ErrSessionExpired     = errors.New("session expired")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrRefreshFailed      = errors.New("session refresh failed")
)

// Session is the bearer credential pair used to authenticate requests on
// behalf of a user. ExpiresAt is a numeric epoch timestamp that may arrive
// in seconds or milliseconds depending on the issuing provider.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
	UserID       string `json:"user_id"`
}

// ExpiryTime returns the session expiry as a time.Time, normalizing
// seconds-based epochs to milliseconds first.
func (s *Session) ExpiryTime() time.Time {
	ms := s.ExpiresAt
	if ms < epochMillisThreshold {
		ms *= 1000
	}
	return time.UnixMilli(ms)
}

// TimeUntilExpiry returns how long the session remains valid relative to
// now. Never negative: an already-expired session yields zero.
func (s *Session) TimeUntilExpiry(now time.Time) time.Duration {
	d := s.ExpiryTime().Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// Expired reports whether the session's expiry has passed.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiryTime().After(now)
}
