package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// UserHeader 上游认证服务写入的用户标识请求头
const UserHeader = "X-User-ID"

const userIDKey = "UserID"

// RequireUser 要求请求携带用户标识
// 认证由上游完成，这里只信任请求头中的用户ID
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(UserHeader))
		if userID == "" {
			HandleError(c, NewUnauthorizedError("missing "+UserHeader+" header"))
			c.Abort()
			return
		}

		c.Set(userIDKey, userID)
		c.Next()
	}
}

// UserID 返回当前请求的用户ID
func UserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}
