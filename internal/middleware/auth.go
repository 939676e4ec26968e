package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/lendstack/backoffice-server-go/internal/model"
	"github.com/lendstack/backoffice-server-go/internal/repository"
	"github.com/lendstack/backoffice-server-go/internal/token"
)

type contextKey string

const AdminContextKey contextKey = "admin"

// GetAdmin returns the authenticated administrator from the request context,
// or nil on unauthenticated requests.
func GetAdmin(ctx context.Context) *model.Admin {
	if admin, ok := ctx.Value(AdminContextKey).(*model.Admin); ok {
		return admin
	}
	return nil
}

// AuthMiddleware resolves a bearer access token to an administrator
// principal. This is the guard the rest of the back office sits behind;
// permission evaluation happens elsewhere.
type AuthMiddleware struct {
	adminRepo repository.AdminRepository
	tokens    *token.Issuer
}

func NewAuthMiddleware(adminRepo repository.AdminRepository, tokens *token.Issuer) *AuthMiddleware {
	return &AuthMiddleware{adminRepo: adminRepo, tokens: tokens}
}

func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := extractBearer(r)
		if tokenString == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error": "Missing authentication token",
			})
			return
		}

		claims, err := m.tokens.VerifyAccess(tokenString)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error": "Invalid token",
			})
			return
		}

		admin, err := m.adminRepo.FindByID(r.Context(), claims.Subject)
		if err != nil {
			log.Error().Err(err).Msg("auth middleware: database error")
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "Authentication failed",
			})
			return
		}

		if admin == nil || !admin.IsActive() {
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error": "Invalid token",
			})
			return
		}

		ctx := context.WithValue(r.Context(), AdminContextKey, admin)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func extractBearer(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}
