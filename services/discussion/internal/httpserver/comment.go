package httpserver

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/cinetalk/cinetalk/pkg/logging"
	"github.com/cinetalk/cinetalk/services/discussion/internal/models"
	"github.com/cinetalk/cinetalk/services/discussion/internal/repo"
)

func (h *DiscussionHTTP) CreateComment(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "comment_create")

	userID, username, err := identity(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	id, err := discussionID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid discussion id")
	}

	var req struct {
		Body string `json:"body"`
	}
	if err := c.Bind(&req); err != nil || req.Body == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "body required")
	}

	comment := models.Comment{
		DiscussionID: id,
		UserID:       userID,
		Username:     username,
		Body:         req.Body,
	}
	switch err := h.Repo.CreateComment(ctx, &comment); {
	case errors.Is(err, repo.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "discussion not found")
	case err != nil:
		l.Error("comment_create_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "could not create comment")
	}

	return c.JSON(http.StatusCreated, comment)
}

func (h *DiscussionHTTP) ListComments(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := discussionID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid discussion id")
	}

	comments, err := h.Repo.ListComments(ctx, id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not list comments")
	}
	return c.JSON(http.StatusOK, comments)
}

func (h *DiscussionHTTP) DeleteComment(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "comment_delete")

	userID, _, err := identity(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	commentID, err := strconv.ParseUint(c.Param("commentId"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid comment id")
	}

	switch err := h.Repo.DeleteComment(ctx, uint(commentID), userID); {
	case errors.Is(err, repo.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "comment not found")
	case errors.Is(err, repo.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, "not your comment")
	case err != nil:
		l.Error("comment_delete_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "could not delete comment")
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "comment deleted"})
}

func (h *DiscussionHTTP) Vote(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "discussion_vote")

	userID, _, err := identity(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	id, err := discussionID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid discussion id")
	}

	var req struct {
		Value int `json:"value"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	tally, err := h.Repo.CastVote(ctx, id, userID, req.Value)
	switch {
	case errors.Is(err, repo.ErrBadVote):
		return echo.NewHTTPError(http.StatusBadRequest, "value must be 1 or -1")
	case errors.Is(err, repo.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "discussion not found")
	case err != nil:
		l.Error("discussion_vote_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "could not record vote")
	}

	return c.JSON(http.StatusOK, echo.Map{"votes": tally})
}
