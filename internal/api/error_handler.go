package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ruby/userauth-service/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error string `json:"error"`
}

// knownError maps a domain sentinel to its response. An empty message means
// the error text itself is safe to return.
type knownError struct {
	err     error
	code    int
	message string
}

// Both login failures share one response so a caller cannot tell an unknown
// email from a wrong password.
var knownErrors = []knownError{
	{domain.ErrUserAlreadyExists, http.StatusConflict, "user already exists"},
	{domain.ErrUserNotRegistered, http.StatusUnauthorized, "invalid email or password"},
	{domain.ErrIncorrectPassword, http.StatusUnauthorized, "invalid email or password"},
	{domain.ErrTokenInvalid, http.StatusUnauthorized, "invalid token"},
	{domain.ErrInvalidInput, http.StatusBadRequest, ""},
}

// NewHTTPErrorHandler renders every error as {"error": "<message>"}. Echo
// errors keep their code, known domain errors get a fixed status, and
// anything else is logged and returned as a bare 500.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, errorResponse{Error: msg})
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	for _, k := range knownErrors {
		if errors.Is(err, k.err) {
			if k.message == "" {
				return k.code, err.Error()
			}
			return k.code, k.message
		}
	}

	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")
	return http.StatusInternalServerError, "internal server error"
}
