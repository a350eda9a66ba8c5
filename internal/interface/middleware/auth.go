package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/bizbridge-auth/internal/domain/entity"
	"github.com/oksasatya/bizbridge-auth/pkg/helpers"
	"github.com/oksasatya/bizbridge-auth/pkg/response"
)

const (
	CtxUserIDKey    = "userID"
	CtxUserRoleKey  = "userRole"
	CtxSessionIDKey = "sessionID"
)

// accessToken reads the access_token cookie, falling back to a Bearer header.
func accessToken(c *gin.Context) string {
	if token, err := c.Cookie(helpers.AccessCookie); err == nil && token != "" {
		return token
	}
	h := c.GetHeader("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// Auth validates the access token and requires it to belong to the active
// session in Redis. It sets userID, userRole and sessionID in the Gin context.
func Auth(rdb *redis.Client, jwt *helpers.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := accessToken(c)
		if token == "" {
			response.Error(c, http.StatusUnauthorized, "Please login to access this resource", nil)
			return
		}
		claims, err := jwt.ParseAccessToken(token)
		if err != nil {
			response.Error(c, http.StatusUnauthorized, "invalid access token", nil)
			return
		}

		data, err := rdb.HGetAll(c.Request.Context(), helpers.SessionKey(claims.UserID)).Result()
		if err != nil || len(data) == 0 || data["sid"] != claims.SessionID {
			response.Error(c, http.StatusUnauthorized, "session expired, please login again", nil)
			return
		}

		c.Set(CtxUserIDKey, data["user_id"])
		c.Set(CtxUserRoleKey, data["role"])
		c.Set(CtxSessionIDKey, claims.SessionID)
		c.Next()
	}
}

// RequireAdmin must run after Auth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if entity.Role(c.GetString(CtxUserRoleKey)) != entity.RoleAdmin {
			response.Error(c, http.StatusForbidden, "Access denied: admin only", nil)
			return
		}
		c.Next()
	}
}
