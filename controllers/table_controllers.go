package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/suman7063/Restaurant-Managment-sub002/kds"
	"github.com/suman7063/Restaurant-Managment-sub002/middlewares"
	"github.com/suman7063/Restaurant-Managment-sub002/models"
	"github.com/suman7063/Restaurant-Managment-sub002/policy"
	"github.com/suman7063/Restaurant-Managment-sub002/store"
	"github.com/suman7063/Restaurant-Managment-sub002/utils"
)

type TableController struct {
	Store    *store.Store
	Notifier kds.Notifier
	Timeout  time.Duration
}

func tableResource(tenantID uint) policy.Resource {
	return policy.Resource{Entity: models.EntityTable, TenantID: tenantID}
}

func (tc *TableController) broadcast(c *gin.Context, table *models.Table) {
	if tc.Notifier != nil {
		tc.Notifier.Publish(c.Request.Context(), kds.NewEvent(kds.EventTableUpdate, table.RestaurantID, table))
	}
}

// CreateTable -> menambahkan meja baru
func (tc *TableController) CreateTable(c *gin.Context) {
	var req struct {
		TableNumber string `json:"table_number" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondBadRequest(c, err)
		return
	}
	actor := middlewares.ActorFrom(c)
	if err := tc.Store.AuthorizeResource(actor, policy.ActionManageTable, tableResource(actor.TenantID)); err != nil {
		utils.RespondError(c, err)
		return
	}
	ctx, cancel := withTimeout(c, tc.Timeout)
	defer cancel()

	table := models.Table{
		RestaurantID: actor.TenantID,
		TableNumber:  strings.TrimSpace(req.TableNumber),
		Status:       models.TableAvailable,
	}
	if err := tc.Store.Create(ctx, &table, "table"); err != nil {
		utils.RespondError(c, err)
		return
	}

	tc.broadcast(c, &table)
	utils.InfoLogger.Printf("New table created: %s (restaurant=%d)", table.TableNumber, table.RestaurantID)
	utils.RespondJSON(c, http.StatusCreated, "Table created successfully", table)
}

// GetAllTables -> menampilkan seluruh meja restoran
func (tc *TableController) GetAllTables(c *gin.Context) {
	actor := middlewares.ActorFrom(c)
	if err := tc.Store.AuthorizeResource(actor, policy.ActionReadTable, tableResource(actor.TenantID)); err != nil {
		utils.RespondError(c, err)
		return
	}
	ctx, cancel := withTimeout(c, tc.Timeout)
	defer cancel()

	var tables []models.Table
	if err := tc.Store.DB(ctx).Where("restaurant_id = ?", actor.TenantID).Order("table_number").Find(&tables).Error; err != nil {
		utils.RespondError(c, utils.WrapDBError(err, "table"))
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of tables", tables)
}

// UpdateTable -> ganti nomor meja
func (tc *TableController) UpdateTable(c *gin.Context) {
	id, err := paramID(c, "table_id")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	var body struct {
		TableNumber string `json:"table_number" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondBadRequest(c, err)
		return
	}
	ctx, cancel := withTimeout(c, tc.Timeout)
	defer cancel()

	var table models.Table
	if err := tc.Store.Fetch(ctx, middlewares.ActorFrom(c), policy.ActionManageTable, &table, id); err != nil {
		utils.RespondError(c, err)
		return
	}
	if _, err := tc.Store.UpdateIf(ctx, &models.Table{}, id, nil, map[string]interface{}{
		"table_number": strings.TrimSpace(body.TableNumber),
	}); err != nil {
		utils.RespondError(c, err)
		return
	}
	if err := tc.Store.Get(ctx, &table, id); err != nil {
		utils.RespondError(c, err)
		return
	}

	tc.broadcast(c, &table)
	utils.RespondJSON(c, http.StatusOK, "Table updated", table)
}

// MarkTableClean -> dirty ke available setelah meja dibersihkan
func (tc *TableController) MarkTableClean(c *gin.Context) {
	id, err := paramID(c, "table_id")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	ctx, cancel := withTimeout(c, tc.Timeout)
	defer cancel()

	var table models.Table
	if err := tc.Store.Fetch(ctx, middlewares.ActorFrom(c), policy.ActionCleanTable, &table, id); err != nil {
		utils.RespondError(c, err)
		return
	}
	ok, err := tc.Store.UpdateIf(ctx, &models.Table{}, id,
		map[string]interface{}{"status": models.TableDirty},
		map[string]interface{}{"status": models.TableAvailable})
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	if !ok {
		utils.RespondError(c, utils.InvalidStateError("table is %s, not dirty", table.Status))
		return
	}
	table.Status = models.TableAvailable

	tc.broadcast(c, &table)
	utils.InfoLogger.Printf("Table %d marked clean", table.ID)
	utils.RespondJSON(c, http.StatusOK, "Table marked clean", table)
}
