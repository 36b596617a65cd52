package httpserver

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/cinetalk/cinetalk/pkg/logging"
	"github.com/cinetalk/cinetalk/pkg/remoteauth"
	"github.com/cinetalk/cinetalk/services/favorites/internal/models"
	"github.com/cinetalk/cinetalk/services/favorites/internal/repo"
)

type FavoritesHTTP struct {
	Repo *repo.GormRepo
}

func currentUserID(c echo.Context) (string, error) {
	id, _ := c.Get(remoteauth.CtxUserID).(string)
	if id == "" {
		return "", errors.New("unauthorized")
	}
	return id, nil
}

func (h *FavoritesHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "favorites_list")

	userID, err := currentUserID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	favorites, err := h.Repo.List(ctx, userID)
	if err != nil {
		l.Error("favorites_list_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "could not load favorites")
	}
	return c.JSON(http.StatusOK, favorites)
}

func (h *FavoritesHTTP) Add(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "favorites_add")

	userID, err := currentUserID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var req struct {
		MovieID    int64  `json:"movie_id"`
		Title      string `json:"title"`
		PosterPath string `json:"poster_path"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.MovieID == 0 || req.Title == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "movie_id and title required")
	}

	favorite := models.Favorite{
		UserID:     userID,
		MovieID:    req.MovieID,
		Title:      req.Title,
		PosterPath: req.PosterPath,
	}
	if err := h.Repo.Add(ctx, &favorite); err != nil {
		l.Error("favorites_add_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "could not save favorite")
	}

	l.Info("favorite_added", "user_id", userID, "movie_id", req.MovieID)
	return c.JSON(http.StatusCreated, favorite)
}

func (h *FavoritesHTTP) Remove(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "favorites_remove")

	userID, err := currentUserID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	movieID, err := strconv.ParseInt(c.Param("movieId"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid movie id")
	}

	if err := h.Repo.Remove(ctx, userID, movieID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "favorite not found")
		}
		l.Error("favorites_remove_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "could not remove favorite")
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "favorite removed"})
}
