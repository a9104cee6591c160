package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/gigmarket/internal/apperrors"
	"github.com/Skotchmaster/gigmarket/internal/hash"
	"github.com/Skotchmaster/gigmarket/internal/logging"
	authmw "github.com/Skotchmaster/gigmarket/internal/middleware/auth"
	"github.com/Skotchmaster/gigmarket/internal/models"
	"github.com/Skotchmaster/gigmarket/internal/mykafka"
	"github.com/Skotchmaster/gigmarket/internal/repo"
	"github.com/Skotchmaster/gigmarket/internal/tokens"
)

type AuthHandler struct {
	Repo     *repo.GormRepo
	Tokens   *tokens.Codec
	Producer mykafka.Publisher
}

type registerRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
	Name     string `json:"name" form:"name"`
	Role     string `json:"role" form:"role" validate:"omitempty,oneof=employer freelancer"`
}

type loginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

type userSummary struct {
	ID    uint   `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

type authResponse struct {
	Token string      `json:"token"`
	User  userSummary `json:"user"`
}

func summary(u *models.User) userSummary {
	return userSummary{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role}
}

func (h *AuthHandler) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_register")

	var req registerRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("register_error", "status", 400, "error", err)
		return apperrors.Validation("invalid body")
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		return apperrors.Validation("missing fields")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	digest, err := hash.HashPassword(req.Password)
	if err != nil {
		if errors.Is(err, hash.ErrPasswordTooLong) {
			return apperrors.Validation("password too long")
		}
		return apperrors.Internal(err)
	}

	user := &models.User{
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: digest,
		Role:         req.Role,
	}
	if user.Name == "" {
		user.Name = strings.SplitN(req.Email, "@", 2)[0]
	}
	if user.Role == "" {
		user.Role = models.RoleFreelancer
	}

	if err := h.Repo.CreateUserIfNotExists(ctx, user); err != nil {
		if errors.Is(err, repo.ErrEmailTaken) {
			l.Warn("register_error", "status", 409, "reason", "email taken")
			return apperrors.Conflict(err.Error(), err)
		}
		return apperrors.Internal(err)
	}

	token, _, err := h.Tokens.Issue(user.ID)
	if err != nil {
		return apperrors.Internal(err)
	}

	publish(ctx, h.Producer, mykafka.TopicUserEvents, fmt.Sprint(user.ID), map[string]any{
		"type":    "user_registered",
		"user_id": user.ID,
		"role":    user.Role,
	})
	l.Info("register_successful", "user_id", user.ID)

	return c.JSON(http.StatusCreated, authResponse{Token: token, User: summary(user)})
}

func (h *AuthHandler) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req loginRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "error", err)
		return apperrors.Validation("invalid body")
	}

	user, err := h.Repo.Authenticate(ctx, strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		if errors.Is(err, repo.ErrInvalidCredentials) {
			l.Warn("login_failed", "status", 401)
			return apperrors.Unauthenticated("invalid credentials")
		}
		return apperrors.Internal(err)
	}

	token, _, err := h.Tokens.Issue(user.ID)
	if err != nil {
		return apperrors.Internal(err)
	}
	l.Info("login_successful", "user_id", user.ID)

	return c.JSON(http.StatusOK, authResponse{Token: token, User: summary(user)})
}

// LogOut revokes only the presented token; other sessions of the same
// principal stay valid.
func (h *AuthHandler) LogOut(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_logout")

	claims, ok := authmw.Claims(c)
	if !ok {
		return apperrors.Unauthenticated("no token")
	}
	user, _ := authmw.Principal(c)

	if err := h.Repo.RevokeToken(ctx, claims.ID, user.ID, claims.ExpiresAt.Time); err != nil {
		l.Error("logout_failed", "status", 500, "error", err)
		return apperrors.Internal(err)
	}

	l.Info("successful_logout")
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

func (h *AuthHandler) Me(c echo.Context) error {
	user, ok := authmw.Principal(c)
	if !ok {
		return apperrors.Unauthenticated("no token")
	}
	return c.JSON(http.StatusOK, echo.Map{"user": user})
}
