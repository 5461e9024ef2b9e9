package middleware

import (
	"strings"

	"tradepulse/backend/internal/service"
	"tradepulse/backend/internal/util"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware creates authentication middleware. The token comes from
// the Authorization header, or from the token query parameter for
// WebSocket upgrades where browsers cannot set headers.
func AuthMiddleware(sessionService *service.SessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			token = c.Query("token")
		}
		if token == "" {
			util.AbortWithCustomError(c, 401, util.ErrCodeUnauthorized, "Missing authorization token")
			return
		}

		claims, err := sessionService.ValidateAccessToken(c.Request.Context(), token)
		if err != nil {
			util.AbortWithError(c, err)
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("session_id", claims.SessionID)

		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}
