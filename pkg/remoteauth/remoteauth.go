// Package remoteauth protects routes on services that do not own the
// revocation ledger. Every verdict comes from the auth service (or a
// short-lived cache of its answers); when the authority cannot be
// reached the request fails closed with 503 rather than letting a
// network partition double as an auth bypass.
package remoteauth

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/cinetalk/cinetalk/pkg/authclient"
	"github.com/cinetalk/cinetalk/pkg/logging"
	"github.com/cinetalk/cinetalk/pkg/tokens"
)

const (
	CtxUserID   = "user_id"
	CtxUsername = "username"
)

const CodeTokenExpired = "TOKEN_EXPIRED"

// Validator is the slice of authclient.Client the middleware needs.
type Validator interface {
	ValidateToken(ctx echo.Context, token string) (*authclient.ValidateResult, error)
}

// clientValidator adapts authclient.Client to Validator.
type clientValidator struct {
	client *authclient.Client
}

func (v clientValidator) ValidateToken(c echo.Context, token string) (*authclient.ValidateResult, error) {
	return v.client.ValidateToken(c.Request().Context(), token)
}

// Middleware validates bearer tokens against the authority, caching
// positive verdicts briefly.
type Middleware struct {
	validator Validator
	cache     *Cache
}

func New(client *authclient.Client, cache *Cache) *Middleware {
	return NewWithValidator(clientValidator{client: client}, cache)
}

func NewWithValidator(v Validator, cache *Cache) *Middleware {
	if cache == nil {
		cache = NewCache(DefaultTTL, DefaultCapacity)
	}
	return &Middleware{validator: v, cache: cache}
}

func (m *Middleware) Cache() *Cache { return m.cache }

func (m *Middleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := bearerToken(c)
		if token == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "access denied, no token provided")
		}

		if user, ok := m.cache.Get(token, time.Now()); ok {
			setIdentity(c, user)
			return next(c)
		}

		result, err := m.validator.ValidateToken(c, token)
		if err != nil {
			if errors.Is(err, authclient.ErrUnavailable) {
				l := logging.FromContext(c.Request().Context())
				l.Error("auth_service_unreachable", "error", err)
				return echo.NewHTTPError(http.StatusServiceUnavailable, "authentication service temporarily unavailable")
			}
			return echo.NewHTTPError(http.StatusBadRequest, "token validation failed")
		}

		if !result.Valid {
			if result.Code == CodeTokenExpired {
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"message": result.Message,
					"code":    CodeTokenExpired,
				})
			}
			return echo.NewHTTPError(http.StatusUnauthorized, result.Message)
		}
		if result.User == nil {
			return echo.NewHTTPError(http.StatusForbidden, "invalid token structure")
		}

		m.cache.Put(token, *result.User, time.Now())
		setIdentity(c, *result.User)
		return next(c)
	}
}

// FallbackLocal validates signature and expiry against the shared
// signing secret without consulting the authority. It cannot see
// revocations, so a logged-out token stays alive here until its natural
// expiry. Wire it in only as a deliberate degraded mode while the
// authority is known to be down, never as the default.
func FallbackLocal(secret []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := bearerToken(c)
			if token == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "access denied, no token provided")
			}

			claims, err := tokens.Decode(token, secret)
			if err != nil {
				if errors.Is(err, tokens.ErrExpired) {
					return c.JSON(http.StatusUnauthorized, echo.Map{
						"message": "token expired, refresh it",
						"code":    CodeTokenExpired,
					})
				}
				return echo.NewHTTPError(http.StatusBadRequest, "invalid token")
			}
			if claims.UserID == "" {
				return echo.NewHTTPError(http.StatusForbidden, "invalid token structure")
			}

			c.Set(CtxUserID, claims.UserID)
			c.Set(CtxUsername, claims.Username)
			return next(c)
		}
	}
}

func setIdentity(c echo.Context, user authclient.User) {
	c.Set(CtxUserID, user.UserID)
	c.Set(CtxUsername, user.Username)
}

func bearerToken(c echo.Context) string {
	const prefix = "Bearer "
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):]
	}
	return ""
}
