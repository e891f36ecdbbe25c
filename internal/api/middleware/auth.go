package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	// CookieName is the cookie login sets and Auth reads.
	CookieName = "auth_token"
	// ContextKeyToken holds the accepted token on the echo context.
	ContextKeyToken = "auth_token"
)

// TokenValidator is the part of the auth service the middleware needs.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (bool, error)
}

// Auth accepts a request only when its token belongs to a live session. The
// token comes from "Authorization: Bearer <token>", falling back to the
// auth_token cookie. A rejected token is deactivated by the validator.
func Auth(validator TokenValidator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, err := TokenFromRequest(c.Request())
			if err != nil {
				return err
			}

			ok, err := validator.ValidateToken(c.Request().Context(), token)
			if err != nil {
				return err
			}
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			c.Set(ContextKeyToken, token)
			return next(c)
		}
	}
}

// TokenFromRequest extracts the bearer token, preferring the Authorization
// header over the cookie.
func TokenFromRequest(r *http.Request) (string, error) {
	if authHeader := r.Header.Get(echo.HeaderAuthorization); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
			return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
		}
		return strings.TrimSpace(parts[1]), nil
	}

	if cookie, err := r.Cookie(CookieName); err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}
	return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
}
