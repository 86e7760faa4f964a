package ports

import (
	"context"

	"github.com/roviton/dispatch-api/internal/core/domain"
)

// SessionStore persists the active session blob under a single key derived
// from the auth project identifier. Load tolerates malformed or missing
// entries by returning (nil, nil); it never fabricates an error a caller
// would have to distinguish from "no session".
type SessionStore interface {
	Save(ctx context.Context, s *domain.Session) error
	Load(ctx context.Context) (*domain.Session, error)
	Clear(ctx context.Context) error
}
