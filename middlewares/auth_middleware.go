package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/suman7063/Restaurant-Managment-sub002/policy"
	"github.com/suman7063/Restaurant-Managment-sub002/utils"
)

const (
	ActorKey     = "actor"
	SessionIDKey = "session_id"
)

func unauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, utils.JSONResponse{
		Status:  false,
		Message: message,
		Kind:    string(utils.KindAuthorization),
	})
}

func setClaims(c *gin.Context, claims *utils.CustomClaims) {
	c.Set(ActorKey, claims.Actor())
	if claims.SessionID != 0 {
		c.Set(SessionIDKey, claims.SessionID)
	}
}

// AuthMiddleware verifies the bearer token and stores the Actor on the
// context.
func AuthMiddleware(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			unauthorized(c, "Authorization header missing")
			return
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			unauthorized(c, "format token tidak valid")
			return
		}

		claims, err := utils.ParseToken(secret, strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			unauthorized(c, "Invalid or expired token")
			return
		}

		setClaims(c, claims)
		c.Next()
	}
}

// ActorFrom returns the authenticated actor. Routes without auth get a zero
// actor, which the policy engine denies everywhere.
func ActorFrom(c *gin.Context) policy.Actor {
	if v, ok := c.Get(ActorKey); ok {
		if actor, ok := v.(policy.Actor); ok {
			return actor
		}
	}
	return policy.Actor{Role: policy.RolePublic}
}

// SessionIDFrom returns the session a customer token is bound to.
func SessionIDFrom(c *gin.Context) (uint, bool) {
	v, ok := c.Get(SessionIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok && id != 0
}
