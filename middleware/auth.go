package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/chirp/identity"
	"github.com/cppla/chirp/utils"
)

const (
	// ContextUserIDKey is the key used to store the session subject in Gin context.
	ContextUserIDKey = "user_id"
	// ContextSessionIDKey stores the session id inside Gin context.
	ContextSessionIDKey = "session_id"
)

// TokenVerifier validates a raw session token.
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (*identity.SessionClaims, error)
}

// SessionAuth verifies an optional bearer session token. Requests without an
// Authorization header pass through anonymously; a header that does not carry a
// valid token is rejected. A nil verifier disables session handling.
func SessionAuth(verifier TokenVerifier) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		authHeader := ctx.GetHeader("Authorization")
		if verifier == nil || authHeader == "" {
			ctx.Next()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			utils.Abort(ctx, http.StatusUnauthorized, 40102, "invalid authorization header format")
			return
		}

		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			utils.Abort(ctx, http.StatusUnauthorized, 40103, "empty bearer token")
			return
		}

		claims, err := verifier.Verify(ctx.Request.Context(), tokenString)
		if err != nil {
			utils.Logger.Debug("session token rejected")
			utils.Abort(ctx, http.StatusUnauthorized, 40105, "invalid session token")
			return
		}

		ctx.Set(ContextUserIDKey, claims.Subject)
		ctx.Set(ContextSessionIDKey, claims.SessionID)
		ctx.Next()
	}
}

// SessionRequired rejects requests that SessionAuth did not authenticate.
func SessionRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if _, ok := CurrentUserID(ctx); !ok {
			utils.Abort(ctx, http.StatusUnauthorized, 40101, "sign in required")
			return
		}
		ctx.Next()
	}
}

// CurrentUserID returns the authenticated user id, if any.
func CurrentUserID(ctx *gin.Context) (string, bool) {
	value, exists := ctx.Get(ContextUserIDKey)
	if !exists {
		return "", false
	}
	id, ok := value.(string)
	return id, ok && id != ""
}
