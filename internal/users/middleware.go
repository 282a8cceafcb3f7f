// internal/users/middleware.go
// JWT authentication middleware. Verified user info rides the request
// context so handlers don't re-validate.

package users

import (
	"context"
	"net/http"
	"strings"

	"github.com/giit-community/futurenet-backend/internal/common/authctx"
	"github.com/giit-community/futurenet-backend/internal/common/utils"
)

// AuthMiddleware is the middleware signature route registrars accept.
type AuthMiddleware func(http.HandlerFunc) http.HandlerFunc

// Middleware provides authentication middleware
type Middleware struct {
	service *Service
}

func NewMiddleware(service *Service) *Middleware {
	return &Middleware{service: service}
}

// Authenticate protects a route: it verifies the bearer token and adds
// the user id to the request context.
func (m *Middleware) Authenticate(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" {
			utils.ErrorResponse(w, "Missing or invalid authorization header", http.StatusUnauthorized)
			return
		}

		claims, err := m.service.ValidateToken(token)
		if err != nil {
			utils.ErrorResponse(w, "Invalid or expired token", http.StatusUnauthorized)
			return
		}

		ctx := authctx.WithUser(r.Context(), claims.UserID, claims.Email)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// extractToken pulls the bearer token from the Authorization header,
// falling back to the token query parameter for websocket dials.
func extractToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

// UserIDFromContext returns the authenticated user id, if any.
func UserIDFromContext(ctx context.Context) (string, bool) {
	return authctx.UserID(ctx)
}
