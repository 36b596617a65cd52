package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/cinetalk/cinetalk/services/auth/internal/service"
)

const (
	CtxUserID   = "user_id"
	CtxUsername = "username"
)

const CodeTokenExpired = "TOKEN_EXPIRED"

// LocalAuth protects the authority's own routes. It has the revocation
// ledger at hand, so every verdict here is final.
type LocalAuth struct {
	Svc *service.AuthService
}

func NewLocalAuth(svc *service.AuthService) *LocalAuth {
	return &LocalAuth{Svc: svc}
}

func (m *LocalAuth) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if len(m.Svc.Secret) == 0 {
			// the secret is checked at startup; reaching this means the
			// service is misconfigured, not that the caller did wrong
			return echo.NewHTTPError(http.StatusInternalServerError, "signing secret not configured")
		}

		token := BearerToken(c)
		if token == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "access denied, no token provided")
		}

		verdict, err := m.Svc.Validate(c.Request().Context(), token)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "token validation failed")
		}

		switch verdict.Reason {
		case service.VerdictOK:
			c.Set(CtxUserID, verdict.Claims.UserID)
			c.Set(CtxUsername, verdict.Claims.Username)
			return next(c)
		case service.VerdictRevoked:
			return echo.NewHTTPError(http.StatusUnauthorized, "token has been revoked, log in again")
		case service.VerdictExpired:
			return c.JSON(http.StatusUnauthorized, echo.Map{
				"message": "token expired, refresh it",
				"code":    CodeTokenExpired,
			})
		case service.VerdictNoSubject:
			return echo.NewHTTPError(http.StatusForbidden, "invalid token structure")
		default:
			return echo.NewHTTPError(http.StatusBadRequest, "invalid token")
		}
	}
}

// BearerToken extracts the token from the Authorization header, or ""
func BearerToken(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	const prefix = "Bearer "
	if strings.HasPrefix(header, prefix) {
		return strings.TrimPrefix(header, prefix)
	}
	return ""
}
