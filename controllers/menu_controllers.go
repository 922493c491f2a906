package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/suman7063/Restaurant-Managment-sub002/middlewares"
	"github.com/suman7063/Restaurant-Managment-sub002/models"
	"github.com/suman7063/Restaurant-Managment-sub002/policy"
	"github.com/suman7063/Restaurant-Managment-sub002/store"
	"github.com/suman7063/Restaurant-Managment-sub002/utils"
)

type MenuController struct {
	Store   *store.Store
	Timeout time.Duration
}

func menuResource(tenantID uint) policy.Resource {
	return policy.Resource{Entity: models.EntityMenuItem, TenantID: tenantID}
}

func (mc *MenuController) list(c *gin.Context, actor policy.Actor, onlyAvailable bool) {
	if err := mc.Store.AuthorizeResource(actor, policy.ActionReadMenu, menuResource(actor.TenantID)); err != nil {
		utils.RespondPublicError(c, err)
		return
	}
	ctx, cancel := withTimeout(c, mc.Timeout)
	defer cancel()

	q := mc.Store.DB(ctx).Where("restaurant_id = ?", actor.TenantID)
	if onlyAvailable {
		q = q.Where("available = ?", true)
	}
	if category := c.Query("category"); category != "" {
		q = q.Where("category = ?", category)
	}
	var menus []models.MenuItem
	if err := q.Order("category, name").Find(&menus).Error; err != nil {
		utils.RespondError(c, utils.WrapDBError(err, "menu item"))
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of menus", menus)
}

// GetPublicMenu -> menu yang tersedia, tanpa login
func (mc *MenuController) GetPublicMenu(c *gin.Context) {
	restaurantID, err := paramID(c, "restaurant_id")
	if err != nil {
		utils.RespondPublicError(c, err)
		return
	}
	mc.list(c, policy.Public(restaurantID), true)
}

// GetAllMenus -> semua menu restoran milik token
func (mc *MenuController) GetAllMenus(c *gin.Context) {
	actor := middlewares.ActorFrom(c)
	mc.list(c, actor, !actor.Role.IsStaff())
}

type menuInput struct {
	Name        *string          `json:"name"`
	Category    *string          `json:"category"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Available   *bool            `json:"available"`
}

func (in menuInput) validate(create bool) error {
	if create && (in.Name == nil || strings.TrimSpace(*in.Name) == "") {
		return utils.ValidationError("name is required")
	}
	if create && in.Price == nil {
		return utils.ValidationError("price is required")
	}
	if in.Price != nil && !in.Price.IsPositive() {
		return utils.ValidationError("price must be positive")
	}
	return nil
}

func (in menuInput) updates() map[string]interface{} {
	m := map[string]interface{}{}
	if in.Name != nil {
		m["name"] = strings.TrimSpace(*in.Name)
	}
	if in.Category != nil {
		m["category"] = strings.TrimSpace(*in.Category)
	}
	if in.Description != nil {
		m["description"] = *in.Description
	}
	if in.Price != nil {
		m["price"] = in.Price.StringFixed(2)
	}
	if in.Available != nil {
		m["available"] = *in.Available
	}
	return m
}

// CreateMenu
func (mc *MenuController) CreateMenu(c *gin.Context) {
	var in menuInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.RespondBadRequest(c, err)
		return
	}
	if err := in.validate(true); err != nil {
		utils.RespondError(c, err)
		return
	}
	actor := middlewares.ActorFrom(c)
	if err := mc.Store.AuthorizeResource(actor, policy.ActionInsertMenuItem, menuResource(actor.TenantID)); err != nil {
		utils.RespondError(c, err)
		return
	}
	ctx, cancel := withTimeout(c, mc.Timeout)
	defer cancel()

	item := models.MenuItem{
		RestaurantID: actor.TenantID,
		Name:         strings.TrimSpace(*in.Name),
		Price:        in.Price.Round(2),
		Available:    true,
	}
	if in.Category != nil {
		item.Category = strings.TrimSpace(*in.Category)
	}
	if in.Description != nil {
		item.Description = *in.Description
	}
	if in.Available != nil {
		item.Available = *in.Available
	}
	if err := mc.Store.Create(ctx, &item, "menu item"); err != nil {
		utils.RespondError(c, err)
		return
	}
	// default:true menelan nilai false saat insert
	if in.Available != nil && !*in.Available {
		if _, err := mc.Store.UpdateIf(ctx, &models.MenuItem{}, item.ID, nil, map[string]interface{}{"available": false}); err != nil {
			utils.RespondError(c, err)
			return
		}
		item.Available = false
	}
	utils.RespondJSON(c, http.StatusCreated, "Menu created", item)
}

// UpdateMenu
func (mc *MenuController) UpdateMenu(c *gin.Context) {
	id, err := paramID(c, "menu_id")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	var in menuInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.RespondBadRequest(c, err)
		return
	}
	if err := in.validate(false); err != nil {
		utils.RespondError(c, err)
		return
	}
	ctx, cancel := withTimeout(c, mc.Timeout)
	defer cancel()

	var item models.MenuItem
	if err := mc.Store.Fetch(ctx, middlewares.ActorFrom(c), policy.ActionUpdateMenuItem, &item, id); err != nil {
		utils.RespondError(c, err)
		return
	}
	if updates := in.updates(); len(updates) > 0 {
		if _, err := mc.Store.UpdateIf(ctx, &models.MenuItem{}, id, nil, updates); err != nil {
			utils.RespondError(c, err)
			return
		}
	}
	if err := mc.Store.Get(ctx, &item, id); err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Menu updated", item)
}
