package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"Campus_Community/internal/logging"
	"Campus_Community/internal/model"
	"Campus_Community/internal/pkg"

	"github.com/gin-gonic/gin"
)

const (
	ContextUserIDKey = "user_id"
	ContextRoleKey   = "role"
)

// SessionChecker 校验 token 是否为该用户当前有效的登录态
type SessionChecker interface {
	CheckSession(ctx context.Context, userID uint64, token string) error
}

type BanEnforcer interface {
	Enforce(ctx context.Context, userID uint64) (model.BanStatus, error)
}

// bearerToken 优先读 Authorization 头；浏览器 websocket 无法带头，退回 ?token=
func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		if t := c.Query("token"); t != "" {
			return t, true
		}
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func AuthMiddleware(sessions SessionChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": "missing or invalid authorization header"})
			return
		}

		claims, err := pkg.ParseAccess(tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": "invalid or expired token"})
			return
		}

		// redis校验是否是正确的token，通过后续期
		if err = sessions.CheckSession(c.Request.Context(), claims.UserID, tokenStr); err != nil {
			if errors.Is(err, pkg.ErrUnauthorized) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": "Account has been logging elsewhere"})
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"msg": "session check failed"})
			return
		}

		// 注入 user_id 和 role
		c.Set(ContextUserIDKey, claims.UserID)
		c.Set(ContextRoleKey, claims.Role)
		c.Next()
	}
}

// BanGuard 每个登录请求都做封禁检查；被封禁的用户会被强制下线
func BanGuard(bans BanEnforcer) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, err := bans.Enforce(c.Request.Context(), UserID(c))
		switch {
		case err == nil:
			c.Next()
		case errors.Is(err, pkg.ErrBanned):
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"msg": "account banned", "logout": true})
		case errors.Is(err, pkg.ErrNotFound):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": "unauthorized", "logout": true})
		default:
			logging.Log.Error().Err(err).Uint64("user_id", UserID(c)).Msg("ban check failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"msg": "internal error"})
		}
	}
}

func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if Role(c) < model.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"msg": "admin only"})
			return
		}
		c.Next()
	}
}

func UserID(c *gin.Context) uint64 {
	if v, ok := c.Get(ContextUserIDKey); ok {
		if id, ok2 := v.(uint64); ok2 {
			return id
		}
	}
	return 0
}

func Role(c *gin.Context) int {
	if v, ok := c.Get(ContextRoleKey); ok {
		if r, ok2 := v.(int); ok2 {
			return r
		}
	}
	return model.RoleStudent
}
