package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RegisterRoutes binds the API surface onto e. Lock and unlock are
// operator routes; deployments front them with their own authentication.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/v1/account/login", h.Login)
	e.POST("/v1/account/lock", h.Lock)
	e.POST("/v1/account/unlock", h.Unlock)
	e.GET("/v1/account/:uid/lock", h.LockStatus)
	e.POST("/v1/session/destroy", h.DestroySession)
	e.POST("/v1/session/status", h.SessionStatus)

	e.GET("/__heartbeat__", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{})
	})
}
