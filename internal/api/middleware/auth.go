package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/hugh/canicloud/internal/api/respond"
	"github.com/hugh/canicloud/internal/auth"
	"github.com/hugh/canicloud/internal/database/models"
)

type contextKey string

const (
	UserKey   contextKey = "user"
	ClaimsKey contextKey = "claims"
	TokenKey  contextKey = "token"
)

// UserLoader resolves the account behind a verified token.
type UserLoader interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Auth rejects requests without a valid, unrevoked token for an active user.
func Auth(tokens auth.TokenService, revoker auth.Revoker, users UserLoader, rs *respond.Responder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := auth.ExtractToken(r)
			if token == "" {
				rs.Fail(w, http.StatusUnauthorized, "auth", "authorization token is required")
				return
			}

			revoked, err := revoker.IsBlacklisted(r.Context(), token)
			if err != nil {
				rs.Error(w, http.StatusInternalServerError, "auth", "could not check token", err)
				return
			}
			if revoked {
				rs.Fail(w, http.StatusUnauthorized, "auth", "token has been revoked")
				return
			}

			claims, ok := tokens.VerifyToken(token)
			if !ok || claims.Delegated() {
				rs.Fail(w, http.StatusUnauthorized, "auth", "invalid or expired token")
				return
			}

			user, err := users.GetUserByID(r.Context(), claims.UserID)
			if err != nil {
				rs.Fail(w, http.StatusUnauthorized, "auth", "user not found")
				return
			}

			ctx := r.Context()
			ctx = context.WithValue(ctx, UserKey, user)
			ctx = context.WithValue(ctx, ClaimsKey, claims)
			ctx = context.WithValue(ctx, TokenKey, token)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetUser(ctx context.Context) *models.User {
	if u, ok := ctx.Value(UserKey).(*models.User); ok {
		return u
	}
	return nil
}

func GetUserID(ctx context.Context) uuid.UUID {
	if u := GetUser(ctx); u != nil {
		return u.ID
	}
	return uuid.Nil
}

func GetClaims(ctx context.Context) *auth.Claims {
	if c, ok := ctx.Value(ClaimsKey).(*auth.Claims); ok {
		return c
	}
	return nil
}

// GetToken returns the raw bearer token of the request.
func GetToken(ctx context.Context) string {
	if t, ok := ctx.Value(TokenKey).(string); ok {
		return t
	}
	return ""
}
