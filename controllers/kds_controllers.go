package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/suman7063/Restaurant-Managment-sub002/kds"
	"github.com/suman7063/Restaurant-Managment-sub002/middlewares"
	"github.com/suman7063/Restaurant-Managment-sub002/policy"
	"github.com/suman7063/Restaurant-Managment-sub002/utils"
)

type KDSController struct {
	Hub           *kds.Hub
	AllowedOrigin string
}

func (kc *KDSController) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			if kc.AllowedOrigin == "" || kc.AllowedOrigin == "*" {
				return true
			}
			return r.Header.Get("Origin") == kc.AllowedOrigin
		},
	}
}

// KDSHandler -> endpoint WebSocket untuk staff dan customer
func (kc *KDSController) KDSHandler(c *gin.Context) {
	actor := middlewares.ActorFrom(c)

	var sessionID uint
	switch {
	case actor.Role.IsStaff():
	case actor.Role == policy.RoleCustomer:
		id, ok := middlewares.SessionIDFrom(c)
		if !ok {
			utils.RespondError(c, utils.AuthorizationError("customer token has no session"))
			return
		}
		sessionID = id
	default:
		c.AbortWithStatus(http.StatusForbidden)
		return
	}

	up := kc.upgrader()
	ws, err := up.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.ErrorLogger.Printf("websocket upgrade failed: %v", err)
		return
	}

	kc.Hub.Register(ws, actor.TenantID, string(actor.Role), sessionID)
	defer kc.Hub.Unregister(ws)

	// Baca pesan sampai client disconnect
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}
}
