package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ruby/userauth-service/internal/api/metrics"
	"github.com/ruby/userauth-service/internal/api/middleware"
	"github.com/ruby/userauth-service/internal/core/domain"
	"github.com/ruby/userauth-service/internal/core/ports"
)

// CookieOptions controls the auth_token cookie set on login.
type CookieOptions struct {
	Secure bool
	TTL    time.Duration
}

type AuthHandler struct {
	authService ports.AuthService
	cookie      CookieOptions
}

func NewAuthHandler(authService ports.AuthService, cookie CookieOptions) *AuthHandler {
	return &AuthHandler{authService: authService, cookie: cookie}
}

// Signup creates a new account with the default role.
//
// @Summary      Register a new account
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      signupRequest  true  "Account details"
// @Success      201   {object}  userResponse
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /auth/signup [post]
func (h *AuthHandler) Signup(c echo.Context) error {
	var req signupRequest
	if err := c.Bind(&req); err != nil {
		metrics.AuthOperationsTotal.WithLabelValues("signup", "invalid").Inc()
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		metrics.AuthOperationsTotal.WithLabelValues("signup", "invalid").Inc()
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	user, err := h.authService.Signup(c.Request().Context(), req.Email, req.Name, req.Password)
	if err != nil {
		metrics.AuthOperationsTotal.WithLabelValues("signup", resultLabel(err)).Inc()
		return err
	}

	metrics.AuthOperationsTotal.WithLabelValues("signup", "ok").Inc()
	return c.JSON(http.StatusCreated, toUserResponse(user))
}

// Login checks credentials and opens a session. The token is returned in the
// Authorization header, an HttpOnly cookie and the body.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  loginResponse
// @Header       200   {string}  Authorization  "Bearer <token>"
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		metrics.AuthOperationsTotal.WithLabelValues("login", "invalid").Inc()
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		metrics.AuthOperationsTotal.WithLabelValues("login", "invalid").Inc()
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	user, token, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		metrics.AuthOperationsTotal.WithLabelValues("login", resultLabel(err)).Inc()
		return err
	}

	c.Response().Header().Set(echo.HeaderAuthorization, "Bearer "+token)
	c.SetCookie(h.tokenCookie(token))

	metrics.AuthOperationsTotal.WithLabelValues("login", "ok").Inc()
	return c.JSON(http.StatusOK, toLoginResponse(user, token))
}

// ValidateToken reports whether the token in the body belongs to a live
// session. A rejected token deactivates its session.
//
// @Summary      Validate a token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      validateTokenRequest  true  "Token to check"
// @Success      200   {object}  messageResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /auth/validateToken [post]
func (h *AuthHandler) ValidateToken(c echo.Context) error {
	var req validateTokenRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	ok, err := h.authService.ValidateToken(c.Request().Context(), req.Token)
	if err != nil {
		metrics.TokenValidationsTotal.WithLabelValues("error").Inc()
		return err
	}
	if !ok {
		metrics.TokenValidationsTotal.WithLabelValues("invalid").Inc()
		return domain.ErrTokenInvalid
	}

	metrics.TokenValidationsTotal.WithLabelValues("valid").Inc()
	return c.JSON(http.StatusOK, messageResponse{Message: "token is valid"})
}

// Validate answers for the token the Auth middleware already accepted, taken
// from the Authorization header or the auth_token cookie.
//
// @Summary      Validate the caller's token
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200   {object}  messageResponse
// @Failure      401   {object}  errorResponse
// @Router       /auth/validate [get]
func (h *AuthHandler) Validate(c echo.Context) error {
	if _, err := ctxToken(c); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "token is valid"})
}

func (h *AuthHandler) tokenCookie(token string) *http.Cookie {
	cookie := &http.Cookie{
		Name:     middleware.CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	if h.cookie.TTL > 0 {
		cookie.MaxAge = int(h.cookie.TTL / time.Second)
	}
	return cookie
}

func resultLabel(err error) string {
	switch {
	case errors.Is(err, domain.ErrUserAlreadyExists):
		return "conflict"
	case errors.Is(err, domain.ErrUserNotRegistered), errors.Is(err, domain.ErrIncorrectPassword):
		return "unauthorized"
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid"
	default:
		return "error"
	}
}
