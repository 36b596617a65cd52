package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/cinetalk/cinetalk/pkg/remoteauth"
)

type Deps struct {
	DiscussionHandler *DiscussionHTTP
	MoviesHandler     *MoviesHTTP
	Auth              *remoteauth.Middleware
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	// reads are public, writes require a validated token
	e.GET("/discussions", d.DiscussionHandler.List)
	e.GET("/discussions/search", d.DiscussionHandler.SearchDiscussions)
	e.GET("/discussions/:id", d.DiscussionHandler.Get)
	e.GET("/discussions/:id/comments", d.DiscussionHandler.ListComments)

	private := e.Group("/discussions")
	private.Use(d.Auth.RequireAuth)
	private.POST("", d.DiscussionHandler.Create)
	private.DELETE("/:id", d.DiscussionHandler.Delete)
	private.POST("/:id/comments", d.DiscussionHandler.CreateComment)
	private.DELETE("/:id/comments/:commentId", d.DiscussionHandler.DeleteComment)
	private.POST("/:id/vote", d.DiscussionHandler.Vote)

	if d.MoviesHandler != nil {
		e.GET("/movies/search", d.MoviesHandler.Search)
		e.GET("/movies/:movieId", d.MoviesHandler.Get)
	}
}
