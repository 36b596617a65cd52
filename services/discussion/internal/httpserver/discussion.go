package httpserver

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/cinetalk/cinetalk/pkg/logging"
	"github.com/cinetalk/cinetalk/pkg/remoteauth"
	"github.com/cinetalk/cinetalk/services/discussion/internal/models"
	"github.com/cinetalk/cinetalk/services/discussion/internal/repo"
	"github.com/cinetalk/cinetalk/services/discussion/internal/search"
	"github.com/cinetalk/cinetalk/services/discussion/internal/util"
)

type DiscussionHTTP struct {
	Repo *repo.GormRepo
	// Search may be nil when Elasticsearch is not configured; the
	// search route then answers 503 and writes skip indexing.
	Search *search.Index
}

func identity(c echo.Context) (userID, username string, err error) {
	userID, _ = c.Get(remoteauth.CtxUserID).(string)
	username, _ = c.Get(remoteauth.CtxUsername).(string)
	if userID == "" {
		return "", "", errors.New("unauthorized")
	}
	return userID, username, nil
}

func (h *DiscussionHTTP) Create(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "discussion_create")

	userID, username, err := identity(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var req struct {
		MovieID int64  `json:"movie_id"`
		Title   string `json:"title"`
		Body    string `json:"body"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.MovieID == 0 || req.Title == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "movie_id and title required")
	}

	d := models.Discussion{
		UserID:   userID,
		Username: username,
		MovieID:  req.MovieID,
		Title:    req.Title,
		Body:     req.Body,
	}
	if err := h.Repo.CreateDiscussion(ctx, &d); err != nil {
		l.Error("discussion_create_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "could not create discussion")
	}

	if h.Search != nil {
		if err := h.Search.Put(ctx, &d); err != nil {
			// the row is committed; the index catches up on the next write
			l.Error("discussion_index_error", "discussion_id", d.ID, "error", err)
		}
	}

	l.Info("discussion_created", "discussion_id", d.ID, "movie_id", d.MovieID, "user_id", userID)
	return c.JSON(http.StatusCreated, d)
}

func (h *DiscussionHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "discussion_list")

	movieID, err := strconv.ParseInt(c.QueryParam("movie_id"), 10, 64)
	if err != nil || movieID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "movie_id required")
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	size, _ := strconv.Atoi(c.QueryParam("size"))
	offset, limit := util.Calculate(page, size)

	sort := c.QueryParam("sort")
	if sort != repo.SortVotes {
		sort = repo.SortRecent
	}

	total, items, err := h.Repo.ListDiscussions(ctx, movieID, sort, offset, limit)
	if err != nil {
		l.Error("discussion_list_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "could not list discussions")
	}
	return c.JSON(http.StatusOK, echo.Map{"total": total, "discussions": items})
}

func (h *DiscussionHTTP) Get(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := discussionID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid discussion id")
	}

	d, err := h.Repo.GetDiscussion(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "discussion not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not load discussion")
	}
	return c.JSON(http.StatusOK, d)
}

func (h *DiscussionHTTP) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "discussion_delete")

	userID, _, err := identity(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	id, err := discussionID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid discussion id")
	}

	switch err := h.Repo.DeleteDiscussion(ctx, id, userID); {
	case errors.Is(err, repo.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "discussion not found")
	case errors.Is(err, repo.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, "not your discussion")
	case err != nil:
		l.Error("discussion_delete_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "could not delete discussion")
	}

	if h.Search != nil {
		if err := h.Search.Delete(ctx, id); err != nil {
			l.Error("discussion_unindex_error", "discussion_id", id, "error", err)
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "discussion deleted"})
}

func (h *DiscussionHTTP) SearchDiscussions(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "discussion_search")

	if h.Search == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "search is not configured")
	}

	q := c.QueryParam("q")
	if q == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "q required")
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	size, _ := strconv.Atoi(c.QueryParam("size"))
	from, limit := util.Calculate(page, size)

	total, items, err := h.Search.Search(ctx, q, from, limit)
	if err != nil {
		l.Error("discussion_search_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "search failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"total": total, "discussions": items})
}

func discussionID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id")
	}
	return uint(id), nil
}
