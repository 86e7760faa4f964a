package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/roviton/dispatch-api/internal/core/domain"
)

// SessionStore persists the active session under a single project-scoped key.
// Key format: sb-<project_ref>-auth-token. The value is a JSON envelope so the
// shape stays compatible with entries written by older releases.
type SessionStore struct {
	client     *redis.Client
	projectRef string
	log        zerolog.Logger
}

type sessionEnvelope struct {
	Session *domain.Session `json:"session"`
}

// NewSessionStore creates a SessionStore scoped to the given project ref.
func NewSessionStore(client *redis.Client, projectRef string, log zerolog.Logger) *SessionStore {
	return &SessionStore{client: client, projectRef: projectRef, log: log}
}

func (s *SessionStore) Save(ctx context.Context, sess *domain.Session) error {
	raw, err := json.Marshal(sessionEnvelope{Session: sess})
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.client.Set(ctx, s.key(), raw, 0).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Load returns the stored session, or (nil, nil) when the key is absent or
// the stored value cannot be parsed. Corrupt entries are cleared so they do
// not poison subsequent reads.
func (s *SessionStore) Load(ctx context.Context) (*domain.Session, error) {
	raw, err := s.client.Get(ctx, s.key()).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("load session: %w", err)
	}

	sess, err := decodeSessionEnvelope(raw)
	if err != nil {
		s.log.Warn().Err(err).Msg("discarding malformed session entry")
		_ = s.client.Del(ctx, s.key()).Err()
		return nil, nil
	}
	return sess, nil
}

// decodeSessionEnvelope parses a stored session blob. A blob that is not
// valid JSON yields an error; a valid envelope with a null session yields
// (nil, nil).
func decodeSessionEnvelope(raw []byte) (*domain.Session, error) {
	var env sessionEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode session envelope: %w", err)
	}
	return env.Session, nil
}

func (s *SessionStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key()).Err(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func (s *SessionStore) key() string {
	return fmt.Sprintf("sb-%s-auth-token", s.projectRef)
}
