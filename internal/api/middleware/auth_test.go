package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims jwt.MapClaims, secret string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func accessClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"sub":            "user_1",
		"email":          "d@example.com",
		"role":           "dispatcher",
		"org_id":         "org_1",
		"email_verified": true,
		"exp":            time.Now().Add(time.Hour).Unix(),
	}
}

func runAuth(t *testing.T, req *http.Request) (echo.Context, *httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := Auth(testSecret)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	return c, rec, handler(c)
}

func TestAuth_ValidBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/loads", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, accessClaims(), testSecret))

	c, rec, err := runAuth(t, req)
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got, _ := c.Get("role").(string); got != "dispatcher" {
		t.Fatalf("role claim not injected, got %q", got)
	}
	if got, _ := c.Get("user_id").(string); got != "user_1" {
		t.Fatalf("user_id claim not injected, got %q", got)
	}
}

func TestAuth_CookieFallback(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/loads", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: signToken(t, accessClaims(), testSecret)})

	_, rec, err := runAuth(t, req)
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuth_MissingToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/loads", nil)

	_, _, err := runAuth(t, req)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestAuth_WrongSecret(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/loads", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, accessClaims(), "other-secret"))

	_, _, err := runAuth(t, req)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestAuth_RefreshTokenRejected(t *testing.T) {
	claims := jwt.MapClaims{
		"sub": "user_1",
		"typ": "refresh",
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	req := httptest.NewRequest(http.MethodGet, "/v1/loads", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, claims, testSecret))

	_, _, err := runAuth(t, req)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnauthorized {
		t.Fatalf("refresh token accepted as credential: %v", err)
	}
}

func TestAuth_ExpiredToken(t *testing.T) {
	claims := accessClaims()
	claims["exp"] = time.Now().Add(-time.Minute).Unix()
	req := httptest.NewRequest(http.MethodGet, "/v1/loads", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, claims, testSecret))

	_, _, err := runAuth(t, req)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnauthorized {
		t.Fatalf("expired token accepted: %v", err)
	}
}
