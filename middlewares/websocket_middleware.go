package middlewares

import (
	"github.com/gin-gonic/gin"

	"github.com/suman7063/Restaurant-Managment-sub002/utils"
)

// WebSocketAuthMiddleware reads the token from the query string because
// browsers cannot set headers on a websocket upgrade.
func WebSocketAuthMiddleware(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			unauthorized(c, "token tidak ditemukan")
			return
		}

		// Validasi token
		claims, err := utils.ParseToken(secret, token)
		if err != nil {
			unauthorized(c, "Invalid or expired token")
			return
		}

		setClaims(c, claims)
		c.Next()
	}
}
