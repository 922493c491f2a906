package controllers

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/suman7063/Restaurant-Managment-sub002/utils"
)

const defaultTimeout = 5 * time.Second

// withTimeout bounds an operation by the request context and d.
func withTimeout(c *gin.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = defaultTimeout
	}
	return context.WithTimeout(c.Request.Context(), d)
}

func paramID(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, utils.ValidationError("invalid %s", name)
	}
	return uint(id), nil
}

// userIDFrom reads the numeric id out of a "user:<id>" identity.
func userIDFrom(identity string) (uint, bool) {
	var id uint
	if _, err := fmt.Sscanf(identity, "user:%d", &id); err != nil || id == 0 {
		return 0, false
	}
	return id, true
}
