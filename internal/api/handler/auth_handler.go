package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/roviton/dispatch-api/internal/api/middleware"
	"github.com/roviton/dispatch-api/internal/core/domain"
	"github.com/roviton/dispatch-api/internal/core/ports"
)

type AuthHandler struct {
	provider ports.AuthProvider
	profiles ports.ProfileRepository
}

func NewAuthHandler(provider ports.AuthProvider, profiles ports.ProfileRepository) *AuthHandler {
	return &AuthHandler{provider: provider, profiles: profiles}
}

type signUpRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"required,oneof=admin dispatcher driver customer"`
}

type signInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type sessionResponse struct {
	Session *domain.Session `json:"session,omitempty"`
	Profile *domain.Profile `json:"profile,omitempty"`
}

// SignUp registers a new account.
//
// @Summary      Register a new account
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      signUpRequest  true  "Registration details"
// @Success      201   {object}  sessionResponse
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /auth/sign-up [post]
func (h *AuthHandler) SignUp(c echo.Context) error {
	var req signUpRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	role, err := domain.ParseRole(req.Role)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown role")
	}

	session, err := h.provider.SignUp(c.Request().Context(), req.Email, req.Password, role)
	if err != nil {
		return err
	}

	h.setSessionCookie(c, session)
	return c.JSON(http.StatusCreated, h.respond(c, session))
}

// SignIn authenticates credentials and returns a session pair.
//
// @Summary      Sign in
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      signInRequest  true  "Credentials"
// @Success      200   {object}  sessionResponse
// @Failure      401   {object}  map[string]string
// @Router       /auth/sign-in [post]
func (h *AuthHandler) SignIn(c echo.Context) error {
	var req signInRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	session, err := h.provider.SignIn(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}

	h.setSessionCookie(c, session)
	return c.JSON(http.StatusOK, h.respond(c, session))
}

// Refresh exchanges a refresh token for a new session pair.
//
// @Summary      Refresh the session
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      refreshRequest  true  "Refresh token"
// @Success      200   {object}  sessionResponse
// @Failure      401   {object}  map[string]string
// @Router       /auth/refresh [post]
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	session, err := h.provider.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid refresh token")
	}

	h.setSessionCookie(c, session)
	return c.JSON(http.StatusOK, sessionResponse{Session: session})
}

// SignOut revokes the current session and clears the cookie.
//
// @Summary      Sign out
// @Tags         auth
// @Produce      json
// @Success      204
// @Router       /auth/sign-out [post]
func (h *AuthHandler) SignOut(c echo.Context) error {
	token := ""
	if cookie, err := c.Cookie(middleware.SessionCookieName); err == nil {
		token = cookie.Value
	}
	if err := h.provider.SignOut(c.Request().Context(), token); err != nil {
		return err
	}

	c.SetCookie(&http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	return c.NoContent(http.StatusNoContent)
}

// respond attaches the profile when it can be resolved; a missing profile
// is not an error at sign-in time.
func (h *AuthHandler) respond(c echo.Context, session *domain.Session) sessionResponse {
	resp := sessionResponse{Session: session}
	if profile, err := h.profiles.FindByID(c.Request().Context(), session.UserID); err == nil {
		resp.Profile = profile
	}
	return resp
}

func (h *AuthHandler) setSessionCookie(c echo.Context, s *domain.Session) {
	c.SetCookie(&http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    s.AccessToken,
		Path:     "/",
		Expires:  s.ExpiryTime(),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
