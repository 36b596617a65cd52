package httpserver

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/cinetalk/cinetalk/pkg/logging"
	"github.com/cinetalk/cinetalk/services/discussion/internal/tmdb"
)

// MoviesHTTP proxies metadata lookups so clients never hold the TMDB
// API key.
type MoviesHTTP struct {
	TMDB *tmdb.Client
}

func (h *MoviesHTTP) Get(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "movie_get")

	movieID, err := strconv.ParseInt(c.Param("movieId"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid movie id")
	}

	payload, err := h.TMDB.Movie(ctx, movieID)
	if errors.Is(err, tmdb.ErrUpstream) {
		l.Error("tmdb_unavailable", "movie_id", movieID, "error", err)
		return echo.NewHTTPError(http.StatusBadGateway, "movie metadata unavailable")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not fetch movie")
	}
	return c.JSONBlob(http.StatusOK, payload)
}

func (h *MoviesHTTP) Search(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "movie_search")

	q := c.QueryParam("q")
	if q == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "q required")
	}

	payload, err := h.TMDB.SearchMovies(ctx, q)
	if errors.Is(err, tmdb.ErrUpstream) {
		l.Error("tmdb_unavailable", "query", q, "error", err)
		return echo.NewHTTPError(http.StatusBadGateway, "movie metadata unavailable")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not search movies")
	}
	return c.JSONBlob(http.StatusOK, payload)
}
