package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/roviton/dispatch-api/internal/core/domain"
	"github.com/roviton/dispatch-api/internal/core/ports"
)

// ctxCaller extracts the auth claims injected by the Auth middleware and
// performs a fast-fail check before any service call:
//   - role must parse to one of the closed roles (presence proves the
//     middleware ran; an unknown claim is never trusted).
//   - customer role requires a non-empty org_id; without it the JWT is
//     structurally valid but operationally unusable — reject with 401.
func ctxCaller(c echo.Context) (ports.Caller, error) {
	raw, _ := c.Get("role").(string)
	role, err := domain.ParseRole(raw)
	if err != nil {
		return ports.Caller{}, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}

	userID, _ := c.Get("user_id").(string)
	orgID, _ := c.Get("org_id").(string)
	if role == domain.RoleCustomer && orgID == "" {
		return ports.Caller{}, echo.NewHTTPError(http.StatusUnauthorized, "token missing organization identity")
	}

	return ports.Caller{UserID: userID, Role: role, OrganizationID: orgID}, nil
}
