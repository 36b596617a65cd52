package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/cinetalk/cinetalk/pkg/remoteauth"
)

type Deps struct {
	FavoritesHandler *FavoritesHTTP
	Auth             *remoteauth.Middleware
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	private := e.Group("/favorites")
	private.Use(d.Auth.RequireAuth)
	private.GET("", d.FavoritesHandler.List)
	private.POST("", d.FavoritesHandler.Add)
	private.DELETE("/:movieId", d.FavoritesHandler.Remove)
}
