package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ruby/userauth-service/internal/api/middleware"
)

// ctxToken returns the token the Auth middleware accepted. An empty value
// means the route was mounted without the middleware.
func ctxToken(c echo.Context) (string, error) {
	token, _ := c.Get(middleware.ContextKeyToken).(string)
	if token == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authentication token")
	}
	return token, nil
}
