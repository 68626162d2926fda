package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/storefront-go/storefront/internal/events"
	"github.com/storefront-go/storefront/internal/hash"
	"github.com/storefront-go/storefront/internal/logging"
	authmw "github.com/storefront-go/storefront/internal/middleware/auth"
	"github.com/storefront-go/storefront/internal/models"
	"github.com/storefront-go/storefront/internal/repo"
	"github.com/storefront-go/storefront/internal/service/cart"
	"github.com/storefront-go/storefront/internal/tokens"
	"github.com/storefront-go/storefront/internal/transport"
)

const accessTokenTTL = 15 * time.Minute

type AuthHTTP struct {
	Repo      *repo.GormRepo
	Cart      *cart.Service
	Producer  *events.Producer
	JWTSecret []byte
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.register")

	var req transport.RegisterRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("register_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	passwordHash, err := hash.HashPassword(req.Password)
	if err != nil {
		l.Error("register_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	user := models.User{
		Username:     req.Username,
		PasswordHash: passwordHash,
		Role:         "user",
	}
	if err := h.Repo.CreateUser(ctx, &user); err != nil {
		l.Warn("register_error", "status", 409, "error", err)
		return echo.NewHTTPError(http.StatusConflict, "username already taken")
	}

	publishCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := h.Producer.Publish(publishCtx, events.TopicUsers, req.Username, map[string]any{
		"type":    "user_registered",
		"user_id": user.ID,
	}); err != nil {
		l.Error("kafka_publish_error", "error", err)
	}

	l.Info("user_registered", "user_id", user.ID)
	return c.JSON(http.StatusCreated, user)
}

// Login verifies credentials, issues an access token and merges any guest
// cart carried by the session cookie into the user's cart.
func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.login")

	var req transport.LoginRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, err := h.Repo.UserByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.Warn("login_error", "status", 401)
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
		}
		l.Error("login_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	if !hash.CheckPassword(user.PasswordHash, req.Password) {
		l.Warn("login_error", "status", 401)
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}

	if sid := authmw.GuestSessionID(c); sid != "" {
		if err := h.Cart.TransferOwnership(ctx, sid, user.ID); err != nil {
			l.Error("login_error", "status", 500, "reason", "cart merge failed", "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
		}
	}

	token, err := tokens.NewAccessToken(user.ID, user.Role, h.JWTSecret, accessTokenTTL)
	if err != nil {
		l.Error("login_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	l.Info("login_success", "user_id", user.ID)
	return c.JSON(http.StatusOK, transport.LoginResponse{
		AccessToken: token,
		User:        user,
	})
}
