package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/cinetalk/cinetalk/services/auth/internal/middleware"
)

type Deps struct {
	AuthHandler *AuthHTTP
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	e.POST("/register", d.AuthHandler.Register)
	e.POST("/login", d.AuthHandler.Login)
	e.POST("/refresh", d.AuthHandler.Refresh)
	e.POST("/validate-token", d.AuthHandler.ValidateToken)

	// logout decodes the bearer token itself (it must work with an
	// already-expired access token), so it stays outside the validator
	e.POST("/logout", d.AuthHandler.Logout)
	e.POST("/logout-all", d.AuthHandler.LogoutAll)

	authMw := middleware.NewLocalAuth(d.AuthHandler.Svc)
	private := e.Group("")
	private.Use(authMw.RequireAuth)
	private.GET("/profile", d.AuthHandler.GetProfile)
	private.PUT("/profile", d.AuthHandler.UpdateProfile)
}
