package httpserver

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/cinetalk/cinetalk/pkg/logging"
	"github.com/cinetalk/cinetalk/services/auth/internal/middleware"
	"github.com/cinetalk/cinetalk/services/auth/internal/repo"
)

func currentUserID(c echo.Context) (uuid.UUID, error) {
	v, _ := c.Get(middleware.CtxUserID).(string)
	id, err := uuid.Parse(v)
	if err != nil {
		return uuid.Nil, errors.New("unauthorized")
	}
	return id, nil
}

func (h *AuthHTTP) GetProfile(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_profile")

	userID, err := currentUserID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	user, err := h.Svc.Repo.FindUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "user not found")
		}
		l.Error("profile_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "profile lookup failed")
	}

	return c.JSON(http.StatusOK, echo.Map{"user": toUserPayload(user)})
}

func (h *AuthHTTP) UpdateProfile(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_profile_update")

	userID, err := currentUserID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	user, err := h.Svc.Repo.FindUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "user not found")
		}
		l.Error("profile_update_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "profile update failed")
	}

	if req.Username != "" {
		user.Username = req.Username
	}
	if req.Email != "" {
		user.Email = req.Email
	}
	if err := h.Svc.Repo.UpdateUser(ctx, user); err != nil {
		l.Error("profile_update_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "profile update failed")
	}

	return c.JSON(http.StatusOK, echo.Map{"user": toUserPayload(user)})
}
