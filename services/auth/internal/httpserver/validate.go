package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/cinetalk/cinetalk/pkg/logging"
	"github.com/cinetalk/cinetalk/services/auth/internal/middleware"
	"github.com/cinetalk/cinetalk/services/auth/internal/service"
)

// ValidateToken is the endpoint other services call to get a verdict on
// a token they did not issue. Invalid tokens come back as 200 with
// valid=false; only a missing token or an internal failure breaks the
// shape.
func (h *AuthHTTP) ValidateToken(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_validate_token")

	var req struct {
		Token string `json:"token"`
	}
	if err := c.Bind(&req); err != nil || req.Token == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"valid":   false,
			"message": "token is required",
		})
	}

	verdict, err := h.Svc.Validate(ctx, req.Token)
	if err != nil {
		l.Error("validate_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "validation failed")
	}

	switch verdict.Reason {
	case service.VerdictOK:
		return c.JSON(http.StatusOK, echo.Map{
			"valid": true,
			"user": echo.Map{
				"userId":   verdict.Claims.UserID,
				"username": verdict.Claims.Username,
				"exp":      verdict.Claims.ExpiresAt.Unix(),
				"iat":      verdict.Claims.IssuedAt.Unix(),
			},
		})
	case service.VerdictRevoked:
		return c.JSON(http.StatusOK, echo.Map{
			"valid":   false,
			"message": "token has been revoked",
		})
	case service.VerdictExpired:
		return c.JSON(http.StatusOK, echo.Map{
			"valid":   false,
			"message": "token expired",
			"code":    middleware.CodeTokenExpired,
		})
	case service.VerdictNoSubject:
		return c.JSON(http.StatusOK, echo.Map{
			"valid":   false,
			"message": "invalid token structure",
		})
	default:
		return c.JSON(http.StatusOK, echo.Map{
			"valid":   false,
			"message": "invalid token",
		})
	}
}
