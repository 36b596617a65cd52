package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/cinetalk/cinetalk/pkg/logging"
	"github.com/cinetalk/cinetalk/pkg/tokens"
	"github.com/cinetalk/cinetalk/services/auth/internal/middleware"
	"github.com/cinetalk/cinetalk/services/auth/internal/models"
	"github.com/cinetalk/cinetalk/services/auth/internal/service"
)

type AuthHTTP struct {
	Svc *service.AuthService
}

type userPayload struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func toUserPayload(u *models.User) userPayload {
	return userPayload{ID: u.ID.String(), Username: u.Username, Email: u.Email}
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_register")

	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("register_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	user, err := h.Svc.Register(ctx, req.Username, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrUserExists):
			return echo.NewHTTPError(http.StatusBadRequest, "user already exists")
		default:
			l.Error("register_error", "status", 500, "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "registration failed")
		}
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"message": "user registered successfully",
		"user":    toUserPayload(user),
	})
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	res, err := h.Svc.Login(ctx, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrInvalidCredentials):
			return echo.NewHTTPError(http.StatusBadRequest, "invalid credentials")
		default:
			l.Error("login_error", "status", 500, "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "login failed")
		}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message":      "login successful",
		"accessToken":  res.AccessToken,
		"refreshToken": res.RefreshToken,
		"user":         toUserPayload(res.User),
	})
}

// Refresh distinguishes a missing refresh token (401) from one the
// authority rejected (403): the former may be a client bug, the latter
// ends the session for good.
func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_refresh")

	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.RefreshToken == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "refresh token required")
	}

	res, err := h.Svc.Rotate(ctx, req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRefreshExpired):
			return echo.NewHTTPError(http.StatusForbidden, "refresh token expired")
		case errors.Is(err, service.ErrRefreshRejected):
			return echo.NewHTTPError(http.StatusForbidden, "invalid refresh token")
		default:
			l.Error("refresh_error", "status", 500, "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "refresh failed")
		}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"accessToken": res.AccessToken,
		"user":        toUserPayload(res.User),
	})
}

// Logout is best-effort on the server: whatever the ledger bookkeeping
// does, the caller gets a 200 and is expected to drop its tokens.
func (h *AuthHTTP) Logout(c echo.Context) error {
	ctx := c.Request().Context()

	accessToken := middleware.BearerToken(c)
	if accessToken == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	// an empty or malformed body is fine, the refresh token is optional
	_ = c.Bind(&req)

	h.Svc.Logout(ctx, accessToken, req.RefreshToken)

	return c.JSON(http.StatusOK, echo.Map{"message": "logged out successfully"})
}

func (h *AuthHTTP) LogoutAll(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_logout_all")

	accessToken := middleware.BearerToken(c)
	if accessToken == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	if err := h.Svc.LogoutAll(ctx, accessToken); err != nil {
		if errors.Is(err, tokens.ErrMalformed) {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid token")
		}
		l.Error("logout_all_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "logout-all failed")
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "logged out from all devices"})
}
