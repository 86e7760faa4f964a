// Package webhook verifies inbound provider signatures: the auth provider
// signs deliveries svix-style, the payment provider Stripe-style. Both
// schemes HMAC-SHA256 a timestamped payload; neither requires the
// provider's SDK on the receiving side.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DefaultTolerance is the maximum accepted clock skew between the signed
// timestamp and the receiver.
const DefaultTolerance = 5 * time.Minute

var (
	ErrMissingHeaders    = errors.New("webhook: missing signature headers")
	ErrSignatureMismatch = errors.New("webhook: signature mismatch")
	ErrTimestampExpired  = errors.New("webhook: signed timestamp outside tolerance")
)

// Verifier checks a delivery's signature headers against its raw body.
type Verifier interface {
	Verify(headers http.Header, body []byte, now time.Time) error
}

// ── svix-style (auth provider) ────────────────────────────────────────────────

// SvixVerifier verifies svix-id/svix-timestamp/svix-signature headers.
// The signed content is "<id>.<timestamp>.<body>"; the signature header
// holds space-separated "v1,<base64 mac>" entries, any one of which may
// match (the provider rotates keys this way).
type SvixVerifier struct {
	key       []byte
	tolerance time.Duration
}

// NewSvixVerifier builds a verifier from a "whsec_"-prefixed base64 secret.
func NewSvixVerifier(secret string) (*SvixVerifier, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(secret, "whsec_"))
	if err != nil {
		return nil, fmt.Errorf("webhook: decode secret: %w", err)
	}
	return &SvixVerifier{key: key, tolerance: DefaultTolerance}, nil
}

func (v *SvixVerifier) Verify(headers http.Header, body []byte, now time.Time) error {
	id := headers.Get("svix-id")
	ts := headers.Get("svix-timestamp")
	sigHeader := headers.Get("svix-signature")
	if id == "" || ts == "" || sigHeader == "" {
		return ErrMissingHeaders
	}

	if err := checkTimestamp(ts, now, v.tolerance); err != nil {
		return err
	}

	mac := hmac.New(sha256.New, v.key)
	fmt.Fprintf(mac, "%s.%s.", id, ts)
	mac.Write(body)
	expected := mac.Sum(nil)

	for _, entry := range strings.Fields(sigHeader) {
		version, sig, found := strings.Cut(entry, ",")
		if !found || version != "v1" {
			continue
		}
		got, err := base64.StdEncoding.DecodeString(sig)
		if err != nil {
			continue
		}
		if hmac.Equal(expected, got) {
			return nil
		}
	}
	return ErrSignatureMismatch
}

// ── Stripe-style (payment provider) ───────────────────────────────────────────

// StripeVerifier verifies the Stripe-Signature header, formatted as
// "t=<unix>,v1=<hex mac>[,v1=...]". The signed payload is "<t>.<body>".
type StripeVerifier struct {
	secret    []byte
	tolerance time.Duration
}

func NewStripeVerifier(secret string) *StripeVerifier {
	return &StripeVerifier{secret: []byte(secret), tolerance: DefaultTolerance}
}

func (v *StripeVerifier) Verify(headers http.Header, body []byte, now time.Time) error {
	header := headers.Get("Stripe-Signature")
	if header == "" {
		return ErrMissingHeaders
	}

	var ts string
	var sigs [][]byte
	for _, pair := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(pair), "=")
		if !found {
			continue
		}
		switch key {
		case "t":
			ts = value
		case "v1":
			if sig, err := hex.DecodeString(value); err == nil {
				sigs = append(sigs, sig)
			}
		}
	}
	if ts == "" || len(sigs) == 0 {
		return ErrMissingHeaders
	}

	if err := checkTimestamp(ts, now, v.tolerance); err != nil {
		return err
	}

	mac := hmac.New(sha256.New, v.secret)
	fmt.Fprintf(mac, "%s.", ts)
	mac.Write(body)
	expected := mac.Sum(nil)

	for _, sig := range sigs {
		if hmac.Equal(expected, sig) {
			return nil
		}
	}
	return ErrSignatureMismatch
}

func checkTimestamp(raw string, now time.Time, tolerance time.Duration) error {
	unix, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return ErrMissingHeaders
	}
	signed := time.Unix(unix, 0)
	if signed.Before(now.Add(-tolerance)) || signed.After(now.Add(tolerance)) {
		return ErrTimestampExpired
	}
	return nil
}
