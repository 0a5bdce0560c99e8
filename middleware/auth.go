package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Firesolami/needles-sub001/utils"
)

const (
	// ContextUserIDKey is the key used to store authenticated user ID in Gin context.
	ContextUserIDKey = "user_id"
	// ContextUsernameKey stores the username inside Gin context.
	ContextUsernameKey = "username"
	// ContextTokenKey stores the raw bearer token for logout.
	ContextTokenKey = "token"
	// ContextTokenExpiryKey stores the token's expiry time.
	ContextTokenExpiryKey = "token_expires_at"
)

// AuthRequired ensures the request is authenticated via JWT.
func AuthRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token, status, code, msg := bearerToken(ctx)
		if status != 0 {
			utils.Error(ctx, status, code, msg)
			ctx.Abort()
			return
		}
		if !authenticate(ctx, token) {
			return
		}
		ctx.Next()
	}
}

// OptionalAuth identifies the caller when a bearer token is present and
// lets anonymous requests through. A present but invalid token is rejected.
func OptionalAuth() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if ctx.GetHeader("Authorization") == "" {
			ctx.Next()
			return
		}
		token, status, code, msg := bearerToken(ctx)
		if status != 0 {
			utils.Error(ctx, status, code, msg)
			ctx.Abort()
			return
		}
		if !authenticate(ctx, token) {
			return
		}
		ctx.Next()
	}
}

func bearerToken(ctx *gin.Context) (string, int, int, string) {
	authHeader := ctx.GetHeader("Authorization")
	if authHeader == "" {
		return "", http.StatusUnauthorized, 40101, "authorization header missing"
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", http.StatusUnauthorized, 40102, "invalid authorization header format"
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", http.StatusUnauthorized, 40103, "empty bearer token"
	}
	return token, 0, 0, ""
}

func authenticate(ctx *gin.Context, token string) bool {
	if utils.IsTokenBlacklisted(ctx.Request.Context(), token) {
		utils.Error(ctx, http.StatusUnauthorized, 40104, "token revoked")
		ctx.Abort()
		return false
	}

	claims, err := utils.ParseToken(token)
	if err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40105, "invalid token")
		ctx.Abort()
		return false
	}

	ctx.Set(ContextUserIDKey, claims.UserID)
	ctx.Set(ContextUsernameKey, claims.Username)
	ctx.Set(ContextTokenKey, token)
	if claims.ExpiresAt != nil {
		ctx.Set(ContextTokenExpiryKey, claims.ExpiresAt.Time)
	}
	return true
}
