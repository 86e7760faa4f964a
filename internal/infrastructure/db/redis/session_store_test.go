package redis

import (
	"encoding/json"
	"testing"

	"github.com/roviton/dispatch-api/internal/core/domain"
)

func TestDecodeSessionEnvelope_Valid(t *testing.T) {
	raw, err := json.Marshal(sessionEnvelope{Session: &domain.Session{
		AccessToken:  "access",
		RefreshToken: "refresh",
		ExpiresAt:    1_700_003_600,
		UserID:       "user-1",
	}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	sess, err := decodeSessionEnvelope(raw)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if sess == nil || sess.UserID != "user-1" || sess.ExpiresAt != 1_700_003_600 {
		t.Fatalf("unexpected session: %+v", sess)
	}
}

func TestDecodeSessionEnvelope_Malformed(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"truncated json", `{"session": {"access_to`},
		{"not json at all", "garbage\x00bytes"},
		{"wrong shape", `{"session": "a string, not an object"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := decodeSessionEnvelope([]byte(tc.raw)); err == nil {
				t.Fatalf("expected decode error for %q", tc.raw)
			}
		})
	}
}

func TestDecodeSessionEnvelope_EmptySession(t *testing.T) {
	for _, raw := range []string{`{}`, `{"session": null}`} {
		sess, err := decodeSessionEnvelope([]byte(raw))
		if err != nil {
			t.Fatalf("decode of %q failed: %v", raw, err)
		}
		if sess != nil {
			t.Fatalf("expected nil session for %q, got %+v", raw, sess)
		}
	}
}
