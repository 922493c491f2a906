package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/suman7063/Restaurant-Managment-sub002/policy"
	"github.com/suman7063/Restaurant-Managment-sub002/utils"
)

// RoleCheck is a coarse route guard in front of the policy engine: it keeps
// customer tokens off staff routes and the other way round. Fine-grained
// decisions still happen per resource.
func RoleCheck(roles ...policy.Role) gin.HandlerFunc {
	allowed := make(map[policy.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		actor := ActorFrom(c)
		if !allowed[actor.Role] {
			c.AbortWithStatusJSON(http.StatusForbidden, utils.JSONResponse{
				Status:  false,
				Message: "not permitted",
				Kind:    string(utils.KindAuthorization),
			})
			return
		}
		c.Next()
	}
}

func RequireStaff() gin.HandlerFunc {
	return RoleCheck(policy.RoleWaiter, policy.RoleAdmin, policy.RoleOwner)
}

func RequireCustomer() gin.HandlerFunc {
	return RoleCheck(policy.RoleCustomer)
}
