package httpserver

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/mokosho/shop/internal/logging"
	"github.com/mokosho/shop/internal/repo"
	"github.com/mokosho/shop/internal/service"
)

type AuthHTTP struct {
	Svc *service.AuthService
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.register")

	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("register_error", "status", 400, "error", err)
		return c.JSON(http.StatusBadRequest, "invalid body")
	}

	if err := h.Svc.Register(ctx, req.Username, req.Password); err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			return c.JSON(http.StatusBadRequest, "username and password required")
		case errors.Is(err, repo.ErrUserAlreadyExist):
			return c.JSON(http.StatusConflict, "user already exist")
		default:
			l.Error("register_error", "status", 500, "error", err)
			return c.JSON(http.StatusInternalServerError, "internal error")
		}
	}

	return c.NoContent(http.StatusCreated)
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.login")

	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "error", err)
		return c.JSON(http.StatusBadRequest, "invalid body")
	}

	res, err := h.Svc.Login(ctx, req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			return c.JSON(http.StatusBadRequest, "username and password required")
		case errors.Is(err, repo.ErrInvalidCredentials):
			return c.JSON(http.StatusUnauthorized, "invalid username or password")
		default:
			l.Error("login_error", "status", 500, "error", err)
			return c.JSON(http.StatusInternalServerError, "internal error")
		}
	}

	c.SetCookie(&http.Cookie{
		Name:     "refreshToken",
		Value:    res.RefreshToken,
		Path:     "/",
		Expires:  res.RefreshExp,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return c.JSON(http.StatusOK, dataResponse{Data: loginResponse{
		AccessToken: res.AccessToken,
		IsAdmin:     res.IsAdmin,
	}})
}

// Refresh redeems the refreshToken cookie for a new access/refresh pair.
// The presented token is revoked on success, so a replayed cookie gets 401.
func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.refresh")

	ck, err := c.Cookie("refreshToken")
	if err != nil || ck.Value == "" {
		return c.JSON(http.StatusUnauthorized, "refresh token missing")
	}

	res, err := h.Svc.Refresh(ctx, ck.Value)
	if err != nil {
		if errors.Is(err, repo.ErrInvalidCredentials) {
			return c.JSON(http.StatusUnauthorized, "invalid refresh token")
		}
		l.Error("refresh_error", "status", 500, "error", err)
		return c.JSON(http.StatusInternalServerError, "internal error")
	}

	c.SetCookie(&http.Cookie{
		Name:     "refreshToken",
		Value:    res.RefreshToken,
		Path:     "/",
		Expires:  res.RefreshExp,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return c.JSON(http.StatusOK, dataResponse{Data: loginResponse{
		AccessToken: res.AccessToken,
		IsAdmin:     res.IsAdmin,
	}})
}

func (h *AuthHTTP) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.logout")

	if ck, err := c.Cookie("refreshToken"); err == nil {
		if err := h.Svc.Logout(ctx, ck.Value); err != nil {
			l.Error("logout_error", "error", err)
		}
	}

	c.SetCookie(&http.Cookie{
		Name:    "refreshToken",
		Value:   "",
		Path:    "/",
		Expires: time.Unix(0, 0),
	})
	return c.NoContent(http.StatusOK)
}
