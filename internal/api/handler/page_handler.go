package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// PageHandler serves the dashboard shell. Each protected view resolves to a
// page descriptor the frontend hydrates; access control happens in the guard
// middleware before this handler runs.
type PageHandler struct{}

func NewPageHandler() *PageHandler {
	return &PageHandler{}
}

// Render returns the descriptor for the requested page path.
func (h *PageHandler) Render(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"page": c.Request().URL.Path,
	})
}
