package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"sitegen/internal/database"
)

// ProfileLookup loads the caller's profile.
type ProfileLookup interface {
	GetProfile(ctx context.Context, id string) (*database.Profile, error)
}

const (
	bannedMessage        = "account is suspended"
	adminRequiredMessage = "Admin access required"
)

// RequireActiveAccountMiddleware 阻止被封禁的账号访问业务接口。
// 尚未同步资料的新用户放行，由各接口自行处理。
func RequireActiveAccountMiddleware(profiles ProfileLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString(UserIDKey)
		profile, err := profiles.GetProfile(c.Request.Context(), userID)
		switch {
		case errors.Is(err, database.ErrNotFound):
		case err != nil:
			LoggerFromContext(c).Error("load profile for account gate", slog.Any("error", err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		case profile.IsBanned:
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": bannedMessage})
			return
		}
		c.Next()
	}
}

// RequireAdminMiddleware 要求调用者的资料角色为 admin，必须挂在 AuthMiddleware 之后。
func RequireAdminMiddleware(profiles ProfileLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString(UserIDKey)
		profile, err := profiles.GetProfile(c.Request.Context(), userID)
		switch {
		case errors.Is(err, database.ErrNotFound):
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": adminRequiredMessage})
			return
		case err != nil:
			LoggerFromContext(c).Error("load profile for admin check", slog.Any("error", err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		case profile.Role != database.RoleAdmin:
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": adminRequiredMessage})
			return
		}
		c.Next()
	}
}
