package ports

import (
	"context"

	"github.com/roviton/dispatch-api/internal/core/domain"
)

// ProfileRepository defines persistence for application-level user records.
type ProfileRepository interface {
	Create(ctx context.Context, p *domain.Profile) (*domain.Profile, error)
	FindByID(ctx context.Context, id string) (*domain.Profile, error)
	FindByEmail(ctx context.Context, email string) (*domain.Profile, error)
	// UpdateRole changes a user's role. Returns domain.ErrProfileNotFound
	// when no record matches id.
	UpdateRole(ctx context.Context, id string, role domain.Role) error
}
