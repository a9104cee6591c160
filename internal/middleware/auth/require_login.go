package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/gigmarket/internal/apperrors"
	"github.com/Skotchmaster/gigmarket/internal/logging"
	"github.com/Skotchmaster/gigmarket/internal/models"
	"github.com/Skotchmaster/gigmarket/internal/repo"
	"github.com/Skotchmaster/gigmarket/internal/tokens"
)

const (
	CtxPrincipal = "principal"
	CtxClaims    = "session_claims"
)

const (
	msgNoToken      = "no token"
	msgInvalidToken = "invalid token"
)

type TokenVerifier interface {
	Verify(raw string) (*tokens.SessionClaims, error)
}

type PrincipalStore interface {
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// Gate resolves the caller from an Authorization: Bearer header. It only
// reads: nothing is written on either the success or the failure path.
type Gate struct {
	Tokens TokenVerifier
	Store  PrincipalStore
}

func (g *Gate) RequireLogin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		l := logging.FromContext(ctx).With("mw", "require_login")

		raw, ok := BearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
		if !ok {
			return apperrors.Unauthenticated(msgNoToken)
		}

		claims, err := g.Tokens.Verify(raw)
		if err != nil {
			l.Info("auth_rejected", "status", 401, "reason", "verify", "error", err)
			return apperrors.Unauthenticated(msgInvalidToken)
		}

		if claims.ID != "" {
			revoked, err := g.Store.IsRevoked(ctx, claims.ID)
			if err != nil {
				return apperrors.Internal(err)
			}
			if revoked {
				l.Info("auth_rejected", "status", 401, "reason", "revoked")
				return apperrors.Unauthenticated(msgInvalidToken)
			}
		}

		id, err := claims.PrincipalID()
		if err != nil {
			return apperrors.Unauthenticated(msgInvalidToken)
		}
		user, err := g.Store.GetUserByID(ctx, id)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				l.Info("auth_rejected", "status", 401, "reason", "unknown principal", "user_id", id)
				return apperrors.Unauthenticated(msgInvalidToken)
			}
			return apperrors.Internal(err)
		}

		c.Set(CtxPrincipal, user)
		c.Set(CtxClaims, claims)
		c.SetRequest(c.Request().WithContext(logging.IntoContext(ctx, logging.FromContext(ctx).With("user_id", user.ID))))

		return next(c)
	}
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	raw := strings.TrimSpace(header[len(prefix):])
	return raw, raw != ""
}

func Principal(c echo.Context) (*models.User, bool) {
	u, ok := c.Get(CtxPrincipal).(*models.User)
	return u, ok && u != nil
}

func Claims(c echo.Context) (*tokens.SessionClaims, bool) {
	cl, ok := c.Get(CtxClaims).(*tokens.SessionClaims)
	return cl, ok && cl != nil
}
