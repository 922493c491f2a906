package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/suman7063/Restaurant-Managment-sub002/middlewares"
	"github.com/suman7063/Restaurant-Managment-sub002/models"
	"github.com/suman7063/Restaurant-Managment-sub002/policy"
	"github.com/suman7063/Restaurant-Managment-sub002/services"
	"github.com/suman7063/Restaurant-Managment-sub002/utils"
)

// RecordController exposes soft delete, restore and purge for every
// soft-deletable entity under /admin/records/:entity/:id.
type RecordController struct {
	Records *services.RecordService
	Timeout time.Duration
}

func (rc *RecordController) handle(c *gin.Context, message string, op func(ctx *gin.Context, actor policy.Actor, entity string, id uint) (models.Record, error)) {
	id, err := paramID(c, "id")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	rec, err := op(c, middlewares.ActorFrom(c), c.Param("entity"), id)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, message, rec)
}

func (rc *RecordController) SoftDelete(c *gin.Context) {
	rc.handle(c, "Record deleted", func(c *gin.Context, actor policy.Actor, entity string, id uint) (models.Record, error) {
		ctx, cancel := withTimeout(c, rc.Timeout)
		defer cancel()
		return rc.Records.SoftDelete(ctx, actor, entity, id)
	})
}

func (rc *RecordController) Restore(c *gin.Context) {
	rc.handle(c, "Record restored", func(c *gin.Context, actor policy.Actor, entity string, id uint) (models.Record, error) {
		ctx, cancel := withTimeout(c, rc.Timeout)
		defer cancel()
		return rc.Records.Restore(ctx, actor, entity, id)
	})
}

// Purge -> hapus permanen, hanya untuk owner dan hanya record yang sudah dihapus
func (rc *RecordController) Purge(c *gin.Context) {
	rc.handle(c, "Record purged", func(c *gin.Context, actor policy.Actor, entity string, id uint) (models.Record, error) {
		ctx, cancel := withTimeout(c, rc.Timeout)
		defer cancel()
		return rc.Records.Purge(ctx, actor, entity, id)
	})
}
