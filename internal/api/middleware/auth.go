package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mkessler/cardvault-api/internal/api/shared"
	"github.com/mkessler/cardvault-api/internal/redact"
	"github.com/mkessler/cardvault-api/internal/service/auth"
)

// AuthMiddleware provides JWT authentication for the mutating routes.
type AuthMiddleware struct {
	jwtService auth.JWTService
}

// NewAuthMiddleware creates a new AuthMiddleware.
func NewAuthMiddleware(jwtService auth.JWTService) *AuthMiddleware {
	return &AuthMiddleware{jwtService: jwtService}
}

// Authenticate validates the Bearer token from the Authorization header
// and adds the operator claims to the request context.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Authorization header required")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid authorization format")
			return
		}

		claims, err := m.jwtService.ValidateToken(r.Context(), parts[1])
		if err != nil {
			switch err {
			case auth.ErrExpiredToken:
				shared.RespondWithError(w, r, http.StatusUnauthorized, "Token expired")
			case auth.ErrInvalidToken:
				shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid token")
			default:
				slog.Error("failed to validate token", "error", redact.Error(err))
				shared.RespondWithError(
					w,
					r,
					http.StatusInternalServerError,
					"Authentication error",
				)
			}
			return
		}

		ctx := context.WithValue(r.Context(), shared.OperatorContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetOperator extracts the validated operator claims from the request
// context. Returns the claims and whether they were present.
func GetOperator(r *http.Request) (*auth.Claims, bool) {
	claims, ok := r.Context().Value(shared.OperatorContextKey).(*auth.Claims)
	return claims, ok
}
