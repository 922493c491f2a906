package services

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/suman7063/Restaurant-Managment-sub002/kds"
	"github.com/suman7063/Restaurant-Managment-sub002/models"
	"github.com/suman7063/Restaurant-Managment-sub002/policy"
	"github.com/suman7063/Restaurant-Managment-sub002/store"
	"github.com/suman7063/Restaurant-Managment-sub002/utils"
)

// OrderLedger menghubungkan order ke sesi dan customer, dan menghitung
// ringkasan tagihan per customer.
type OrderLedger struct {
	store    *store.Store
	notifier kds.Notifier
}

func NewOrderLedger(st *store.Store, notifier kds.Notifier) *OrderLedger {
	if notifier == nil {
		notifier = kds.Nop{}
	}
	return &OrderLedger{store: st, notifier: notifier}
}

type CustomerTotal struct {
	CustomerID  uint            `json:"customer_id"`
	DisplayName string          `json:"display_name"`
	Total       decimal.Decimal `json:"total"`
	OrderCount  int             `json:"order_count"`
}

// Summary is a read-only view of a session's attributed orders. Cancelled
// and deleted orders are excluded.
type Summary struct {
	SessionID         uint                     `json:"session_id"`
	Status            string                   `json:"status"`
	PerCustomerTotals map[uint]decimal.Decimal `json:"per_customer_totals"`
	Customers         []CustomerTotal          `json:"customers"`
	OrderCount        int                      `json:"order_count"`
	GrandTotal        decimal.Decimal          `json:"grand_total"`
}

type OrderItemInput struct {
	MenuItemID uint   `json:"menu_item_id" binding:"required"`
	Quantity   int    `json:"quantity" binding:"required"`
	Notes      string `json:"notes"`
}

type PlaceOrderInput struct {
	SessionID  *uint            `json:"session_id"`
	CustomerID *uint            `json:"session_customer_id"`
	Items      []OrderItemInput `json:"items" binding:"required"`
}

// Bill is everything the printed bill of a session shows.
type Bill struct {
	Session models.Session `json:"session"`
	Table   models.Table   `json:"table"`
	Orders  []models.Order `json:"orders"`
	Summary *Summary       `json:"summary"`
}

// CustomerID extracts the session customer id from a "customer:<id>"
// identity.
func CustomerID(actor policy.Actor) (uint, bool) {
	raw, ok := strings.CutPrefix(actor.IdentityID, "customer:")
	if !ok || actor.Role != policy.RoleCustomer {
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// lockActiveSession re-checks inside tx that the session is still active.
// The no-op write makes concurrent closes wait for this transaction.
func lockActiveSession(ctx context.Context, tx *store.Store, sessionID uint) error {
	ok, err := tx.UpdateIf(ctx, &models.Session{}, sessionID,
		map[string]interface{}{"status": models.SessionActive},
		map[string]interface{}{"updated_at": tx.Now()})
	if err != nil {
		return err
	}
	if !ok {
		return utils.InvalidStateError("session is not active")
	}
	return nil
}

// Attribute links an order to a session and one of its customers. Totals of
// the new and any previous session are recomputed.
func (l *OrderLedger) Attribute(ctx context.Context, actor policy.Actor, orderID, sessionID, customerID uint) (*models.Order, error) {
	var order models.Order
	if err := l.store.Fetch(ctx, actor, policy.ActionAttributeOrder, &order, orderID); err != nil {
		return nil, err
	}
	var session models.Session
	if err := l.store.Fetch(ctx, actor, policy.ActionAttributeOrder, &session, sessionID); err != nil {
		return nil, err
	}
	var customer models.SessionCustomer
	if err := l.store.Get(ctx, &customer, customerID); err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.ValidationError("customer %d is not part of session %d", customerID, sessionID)
		}
		return nil, err
	}
	if customer.SessionID != session.ID {
		return nil, utils.ValidationError("customer %d is not part of session %d", customerID, sessionID)
	}
	if !session.IsActive() {
		return nil, utils.InvalidStateError("session is %s, not active", session.Status)
	}

	previous := order.SessionID
	err := l.store.Transaction(ctx, func(tx *store.Store) error {
		if err := lockActiveSession(ctx, tx, sessionID); err != nil {
			return err
		}
		ok, err := tx.UpdateIf(ctx, &models.Order{}, orderID, nil, map[string]interface{}{
			"session_id":          sessionID,
			"session_customer_id": customerID,
		})
		if err != nil {
			return err
		}
		if !ok {
			return utils.NotFoundError("order not found")
		}
		if _, err := recomputeSessionTotal(ctx, tx, sessionID); err != nil {
			return err
		}
		if previous != nil && *previous != sessionID {
			_, err = recomputeSessionTotal(ctx, tx, *previous)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	if err := l.store.Get(ctx, &order, orderID); err != nil {
		return nil, err
	}
	l.notifier.Publish(ctx, kds.NewEvent(kds.EventOrderAttributed, order.RestaurantID, order).WithSession(sessionID).WithOrder(orderID))
	return &order, nil
}

// Detach clears an order's session and customer links.
func (l *OrderLedger) Detach(ctx context.Context, actor policy.Actor, orderID uint) (*models.Order, error) {
	var order models.Order
	if err := l.store.Fetch(ctx, actor, policy.ActionDetachOrder, &order, orderID); err != nil {
		return nil, err
	}

	previous := order.SessionID
	err := l.store.Transaction(ctx, func(tx *store.Store) error {
		ok, err := tx.UpdateIf(ctx, &models.Order{}, orderID, nil, map[string]interface{}{
			"session_id":          nil,
			"session_customer_id": nil,
		})
		if err != nil {
			return err
		}
		if !ok {
			return utils.NotFoundError("order not found")
		}
		if previous != nil {
			_, err = recomputeSessionTotal(ctx, tx, *previous)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	if err := l.store.Get(ctx, &order, orderID); err != nil {
		return nil, err
	}
	event := kds.NewEvent(kds.EventOrderDetached, order.RestaurantID, order).WithOrder(orderID)
	if previous != nil {
		event = event.WithSession(*previous)
	}
	l.notifier.Publish(ctx, event)
	return &order, nil
}

// Summarize reads per-customer totals. GrandTotal matches the stored
// session total whenever no write is in flight.
func (l *OrderLedger) Summarize(ctx context.Context, actor policy.Actor, sessionID uint) (*Summary, error) {
	var session models.Session
	if err := l.store.Fetch(ctx, actor, policy.ActionReadSummary, &session, sessionID); err != nil {
		return nil, err
	}
	return l.summarize(ctx, &session)
}

func (l *OrderLedger) summarize(ctx context.Context, session *models.Session) (*Summary, error) {
	var orders []models.Order
	err := l.store.DB(ctx).
		Where("session_id = ? AND status <> ?", session.ID, models.OrderCancelled).
		Find(&orders).Error
	if err != nil {
		return nil, utils.WrapDBError(err, "order")
	}
	var customers []models.SessionCustomer
	if err := l.store.DB(ctx).Unscoped().Where("session_id = ?", session.ID).Find(&customers).Error; err != nil {
		return nil, utils.WrapDBError(err, "customer")
	}

	summary := &Summary{
		SessionID:         session.ID,
		Status:            session.Status,
		PerCustomerTotals: map[uint]decimal.Decimal{},
		GrandTotal:        decimal.Zero,
	}
	counts := map[uint]int{}
	for _, o := range orders {
		summary.OrderCount++
		summary.GrandTotal = summary.GrandTotal.Add(o.TotalAmount)
		if o.SessionCustomerID == nil {
			continue
		}
		id := *o.SessionCustomerID
		summary.PerCustomerTotals[id] = summary.PerCustomerTotals[id].Add(o.TotalAmount)
		counts[id]++
	}
	for _, c := range customers {
		if c.DeletedAt.Valid && counts[c.ID] == 0 {
			continue
		}
		total, ok := summary.PerCustomerTotals[c.ID]
		if !ok {
			total = decimal.Zero
		}
		summary.Customers = append(summary.Customers, CustomerTotal{
			CustomerID:  c.ID,
			DisplayName: c.DisplayName,
			Total:       total,
			OrderCount:  counts[c.ID],
		})
	}
	sort.Slice(summary.Customers, func(i, j int) bool {
		return summary.Customers[i].CustomerID < summary.Customers[j].CustomerID
	})
	return summary, nil
}

// PlaceOrder creates an order with price snapshots. A customer's order is
// always attributed to the customer and their own session.
func (l *OrderLedger) PlaceOrder(ctx context.Context, actor policy.Actor, in PlaceOrderInput) (*models.Order, error) {
	if len(in.Items) == 0 {
		return nil, utils.ValidationError("order needs at least one item")
	}
	for _, it := range in.Items {
		if it.Quantity <= 0 {
			return nil, utils.ValidationError("quantity must be greater than zero")
		}
	}

	if customerID, ok := CustomerID(actor); ok {
		var customer models.SessionCustomer
		if err := l.store.Get(ctx, &customer, customerID); err != nil {
			return nil, err
		}
		in.SessionID = &customer.SessionID
		in.CustomerID = &customer.ID
	} else if actor.Role == policy.RoleCustomer {
		return nil, utils.AuthorizationError(policy.ReasonOwnerMismatch)
	}

	order := &models.Order{
		RestaurantID: actor.TenantID,
		PlacedBy:     actor.IdentityID,
		Status:       models.OrderPending,
	}
	if err := l.store.Authorize(actor, policy.ActionCreateOrder, order); err != nil {
		return nil, err
	}

	if in.SessionID != nil {
		var session models.Session
		if err := l.store.Fetch(ctx, actor, policy.ActionCreateOrder, &session, *in.SessionID); err != nil {
			return nil, err
		}
		if !session.IsActive() {
			return nil, utils.InvalidStateError("session is %s, not active", session.Status)
		}
		if in.CustomerID == nil {
			return nil, utils.ValidationError("session_customer_id is required with session_id")
		}
		var customer models.SessionCustomer
		if err := l.store.Get(ctx, &customer, *in.CustomerID); err != nil || customer.SessionID != session.ID {
			return nil, utils.ValidationError("customer %d is not part of session %d", *in.CustomerID, session.ID)
		}
		order.SessionID = in.SessionID
		order.SessionCustomerID = in.CustomerID
	} else if in.CustomerID != nil {
		return nil, utils.ValidationError("session_id is required with session_customer_id")
	}

	total := decimal.Zero
	for _, it := range in.Items {
		var menu models.MenuItem
		if err := l.store.Get(ctx, &menu, it.MenuItemID); err != nil || menu.RestaurantID != actor.TenantID || !menu.Available {
			return nil, utils.ValidationError("menu item %d is not available", it.MenuItemID)
		}
		item := models.OrderItem{
			RestaurantID: actor.TenantID,
			MenuItemID:   menu.ID,
			Name:         menu.Name,
			Quantity:     it.Quantity,
			PriceAtTime:  menu.Price,
			Notes:        strings.TrimSpace(it.Notes),
		}
		total = total.Add(item.Subtotal())
		order.Items = append(order.Items, item)
	}
	order.TotalAmount = total

	err := l.store.Transaction(ctx, func(tx *store.Store) error {
		if order.SessionID != nil {
			if err := lockActiveSession(ctx, tx, *order.SessionID); err != nil {
				return err
			}
		}
		if err := tx.Create(ctx, order, "order"); err != nil {
			return err
		}
		if order.SessionID != nil {
			_, err := recomputeSessionTotal(ctx, tx, *order.SessionID)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"order_id":  order.ID,
		"placed_by": order.PlacedBy,
		"total":     order.TotalAmount.StringFixed(2),
	}).Info("order placed")
	event := kds.NewEvent(kds.EventOrderPlaced, order.RestaurantID, order).WithOrder(order.ID)
	if order.SessionID != nil {
		event = event.WithSession(*order.SessionID)
	}
	l.notifier.Publish(ctx, event)
	return order, nil
}

// UpdateStatus moves an order along pending, preparing, ready, served.
// Customers may only cancel their own orders.
func (l *OrderLedger) UpdateStatus(ctx context.Context, actor policy.Actor, orderID uint, status string) (*models.Order, error) {
	if !models.ValidOrderStatus(status) {
		return nil, utils.ValidationError("unknown order status %q", status)
	}
	action := policy.ActionOrderStatus
	if status == models.OrderCancelled && !actor.Role.IsStaff() {
		action = policy.ActionCancelOrder
	}

	var order models.Order
	if err := l.store.Fetch(ctx, actor, action, &order, orderID); err != nil {
		return nil, err
	}
	if !models.CanTransition(order.Status, status) {
		return nil, utils.InvalidStateError("order cannot move from %s to %s", order.Status, status)
	}

	err := l.store.Transaction(ctx, func(tx *store.Store) error {
		ok, err := tx.UpdateIf(ctx, &models.Order{}, orderID,
			map[string]interface{}{"status": order.Status},
			map[string]interface{}{"status": status})
		if err != nil {
			return err
		}
		if !ok {
			return utils.InvalidStateError("order status changed concurrently")
		}
		if status == models.OrderCancelled && order.SessionID != nil {
			_, err = recomputeSessionTotal(ctx, tx, *order.SessionID)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	order.Status = status
	event := kds.NewEvent(kds.EventOrderStatusChanged, order.RestaurantID, order).WithOrder(orderID)
	if order.SessionID != nil {
		event = event.WithSession(*order.SessionID)
	}
	l.notifier.Publish(ctx, event)
	return &order, nil
}

func (l *OrderLedger) GetOrder(ctx context.Context, actor policy.Actor, orderID uint) (*models.Order, error) {
	var order models.Order
	if err := l.store.Fetch(ctx, actor, policy.ActionReadOrder, &order, orderID); err != nil {
		return nil, err
	}
	if actor.Role == policy.RoleCustomer && !l.visibleToCustomer(ctx, actor, &order) {
		return nil, utils.NotFoundError("order not found")
	}
	if err := l.store.DB(ctx).Where("order_id = ?", order.ID).Find(&order.Items).Error; err != nil {
		return nil, utils.WrapDBError(err, "order item")
	}
	return &order, nil
}

func (l *OrderLedger) visibleToCustomer(ctx context.Context, actor policy.Actor, order *models.Order) bool {
	if order.PlacedBy == actor.IdentityID {
		return true
	}
	customerID, ok := CustomerID(actor)
	if !ok || order.SessionID == nil {
		return false
	}
	var customer models.SessionCustomer
	if err := l.store.Get(ctx, &customer, customerID); err != nil {
		return false
	}
	return customer.SessionID == *order.SessionID
}

type OrderFilter struct {
	SessionID uint
	Status    string
}

func (l *OrderLedger) ListOrders(ctx context.Context, actor policy.Actor, filter OrderFilter) ([]models.Order, error) {
	res := policy.Resource{Entity: models.EntityOrder, TenantID: actor.TenantID}
	if err := l.store.AuthorizeResource(actor, policy.ActionListOrders, res); err != nil {
		return nil, err
	}
	q := l.store.DB(ctx).Where("restaurant_id = ?", actor.TenantID).Preload("Items")
	if filter.SessionID != 0 {
		q = q.Where("session_id = ?", filter.SessionID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	var orders []models.Order
	if err := q.Order("id DESC").Find(&orders).Error; err != nil {
		return nil, utils.WrapDBError(err, "order")
	}
	return orders, nil
}

// RecomputeOrderTotal recalculates an order from its items, then its
// session.
func (l *OrderLedger) RecomputeOrderTotal(ctx context.Context, orderID uint) error {
	return recomputeOrderTotal(ctx, l.store, orderID)
}

// Bill collects the session, its table, its billable orders and the summary.
func (l *OrderLedger) Bill(ctx context.Context, actor policy.Actor, sessionID uint) (*Bill, error) {
	var session models.Session
	if err := l.store.Fetch(ctx, actor, policy.ActionReadSummary, &session, sessionID); err != nil {
		return nil, err
	}
	bill := &Bill{Session: session}
	if err := l.store.Get(ctx, &bill.Table, session.TableID, store.IncludeDeleted()); err != nil {
		return nil, err
	}
	err := l.store.DB(ctx).Preload("Items").
		Where("session_id = ? AND status <> ?", sessionID, models.OrderCancelled).
		Order("id").Find(&bill.Orders).Error
	if err != nil {
		return nil, utils.WrapDBError(err, "order")
	}
	summary, err := l.summarize(ctx, &session)
	if err != nil {
		return nil, err
	}
	bill.Summary = summary
	return bill, nil
}
