package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/suman7063/Restaurant-Managment-sub002/middlewares"
	"github.com/suman7063/Restaurant-Managment-sub002/services"
	"github.com/suman7063/Restaurant-Managment-sub002/utils"
)

type OrderController struct {
	Ledger  *services.OrderLedger
	Timeout time.Duration
}

// CreateOrder -> order baru; untuk customer otomatis ke sesi miliknya
func (oc *OrderController) CreateOrder(c *gin.Context) {
	var input services.PlaceOrderInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondBadRequest(c, err)
		return
	}
	ctx, cancel := withTimeout(c, oc.Timeout)
	defer cancel()

	order, err := oc.Ledger.PlaceOrder(ctx, middlewares.ActorFrom(c), input)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Order created", order)
}

func (oc *OrderController) GetAllOrders(c *gin.Context) {
	var query struct {
		SessionID uint   `form:"session_id"`
		Status    string `form:"status"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		utils.RespondBadRequest(c, err)
		return
	}
	ctx, cancel := withTimeout(c, oc.Timeout)
	defer cancel()

	orders, err := oc.Ledger.ListOrders(ctx, middlewares.ActorFrom(c), services.OrderFilter{
		SessionID: query.SessionID,
		Status:    query.Status,
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of orders", orders)
}

func (oc *OrderController) GetOrderByID(c *gin.Context) {
	id, err := paramID(c, "order_id")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	ctx, cancel := withTimeout(c, oc.Timeout)
	defer cancel()

	order, err := oc.Ledger.GetOrder(ctx, middlewares.ActorFrom(c), id)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order detail", order)
}

// UpdateOrderStatus -> pending, preparing, ready, served atau cancelled
func (oc *OrderController) UpdateOrderStatus(c *gin.Context) {
	id, err := paramID(c, "order_id")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	var body struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondBadRequest(c, err)
		return
	}
	ctx, cancel := withTimeout(c, oc.Timeout)
	defer cancel()

	order, err := oc.Ledger.UpdateStatus(ctx, middlewares.ActorFrom(c), id, body.Status)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order status updated", order)
}

// AttributeOrder -> hubungkan order ke sesi dan customer
func (oc *OrderController) AttributeOrder(c *gin.Context) {
	id, err := paramID(c, "order_id")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	var body struct {
		SessionID         uint `json:"session_id" binding:"required"`
		SessionCustomerID uint `json:"session_customer_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondBadRequest(c, err)
		return
	}
	ctx, cancel := withTimeout(c, oc.Timeout)
	defer cancel()

	order, err := oc.Ledger.Attribute(ctx, middlewares.ActorFrom(c), id, body.SessionID, body.SessionCustomerID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order attributed", order)
}

func (oc *OrderController) DetachOrder(c *gin.Context) {
	id, err := paramID(c, "order_id")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	ctx, cancel := withTimeout(c, oc.Timeout)
	defer cancel()

	order, err := oc.Ledger.Detach(ctx, middlewares.ActorFrom(c), id)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order detached", order)
}
